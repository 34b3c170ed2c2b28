// Package scope holds reusable gorm query scopes shared by the
// repository implementations.
package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}
