package specification

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Specifications over the car_embeddings JSONB metadata column. The
// retrieval engine translates a structured filter set into these.

type MetadataEquals struct {
	Key   string
	Value string
}

func (s MetadataEquals) Apply(db *gorm.DB) *gorm.DB {
	clause := fmt.Sprintf("lower(metadata->>'%s') = lower(?)", s.Key)
	return db.Where(clause, s.Value)
}

type MetadataNumericMin struct {
	Key   string
	Value float64
}

func (s MetadataNumericMin) Apply(db *gorm.DB) *gorm.DB {
	clause := fmt.Sprintf("(metadata->>'%s')::numeric >= ?", s.Key)
	return db.Where(clause, s.Value)
}

type MetadataNumericMax struct {
	Key   string
	Value float64
}

func (s MetadataNumericMax) Apply(db *gorm.DB) *gorm.DB {
	clause := fmt.Sprintf("(metadata->>'%s')::numeric <= ?", s.Key)
	return db.Where(clause, s.Value)
}

// MetadataPathMin/Max address nested keys, e.g. {reviews,average_rating}.
type MetadataPathMin struct {
	Path  []string
	Value float64
}

func (s MetadataPathMin) Apply(db *gorm.DB) *gorm.DB {
	clause := fmt.Sprintf("(metadata#>>'{%s}')::numeric >= ?", strings.Join(s.Path, ","))
	return db.Where(clause, s.Value)
}

type MetadataPathMax struct {
	Path  []string
	Value float64
}

func (s MetadataPathMax) Apply(db *gorm.DB) *gorm.DB {
	clause := fmt.Sprintf("(metadata#>>'{%s}')::numeric <= ?", strings.Join(s.Path, ","))
	return db.Where(clause, s.Value)
}

type MetadataBoolEquals struct {
	Key   string
	Value bool
}

func (s MetadataBoolEquals) Apply(db *gorm.DB) *gorm.DB {
	clause := fmt.Sprintf("(metadata->>'%s')::boolean = ?", s.Key)
	return db.Where(clause, s.Value)
}

// MetadataContainsAny matches when the JSONB string array under Key contains
// at least one of Values. Uses jsonb_exists_any to avoid the '?' operator
// colliding with GORM placeholders. The second argument has to be a real
// text[], so each value gets its own placeholder inside an ARRAY constructor;
// a slice bound to a single '?' would render as a record.
type MetadataContainsAny struct {
	Key    string
	Values []string
}

func (s MetadataContainsAny) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Values) == 0 {
		return db
	}
	clause, args := containsAnyClause(s.Key, s.Values)
	return db.Where(clause, args...)
}

func containsAnyClause(key string, values []string) (string, []interface{}) {
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = strings.ToLower(v)
	}
	clause := fmt.Sprintf("jsonb_exists_any(metadata->'%s', ARRAY[%s]::text[])", key, strings.Join(placeholders, ","))
	return clause, args
}

type ExcludeCarIds struct {
	CarIds []uuid.UUID
}

func (s ExcludeCarIds) Apply(db *gorm.DB) *gorm.DB {
	if len(s.CarIds) == 0 {
		return db
	}
	return db.Where("car_id NOT IN ?", s.CarIds)
}

type ByCarIds struct {
	CarIds []uuid.UUID
}

func (s ByCarIds) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("car_id IN ?", s.CarIds)
}
