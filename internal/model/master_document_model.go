package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MasterDocument is the root of a policy/help content tree (terms, faq,
// help, privacy). Sections and contents are ordered; the indexing pipeline
// walks the active document of each type.
type MasterDocument struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocType       string    `gorm:"type:varchar(50);not null;index"`
	Version       string    `gorm:"type:varchar(50);not null;default:'1.0'"`
	EffectiveFrom *time.Time
	IsActive      bool      `gorm:"default:true;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (MasterDocument) TableName() string {
	return "master_documents"
}

type DocumentSection struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MasterDocumentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Title            string    `gorm:"type:varchar(500);not null"`
	SortOrder        int       `gorm:"default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (DocumentSection) TableName() string {
	return "document_sections"
}

type DocumentContent struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SectionId   uuid.UUID `gorm:"type:uuid;not null;index"`
	ContentType string    `gorm:"type:varchar(20);not null"` // text, qa, table
	Text        string    `gorm:"type:text"`
	Question    string    `gorm:"type:text"`
	Answer      string    `gorm:"type:text"`
	TableRows   datatypes.JSON              `gorm:"type:jsonb"` // [][]string for table content
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Category    string                      `gorm:"type:varchar(100)"` // faq grouping
	SortOrder   int                         `gorm:"default:0"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"autoUpdateTime"`
}

func (DocumentContent) TableName() string {
	return "document_contents"
}
