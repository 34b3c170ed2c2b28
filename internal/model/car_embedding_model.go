package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CarEmbedding struct {
	Id             uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CarId          uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex"` // one row per car
	Content        string             `gorm:"type:text"`
	EmbeddingValue pgvector.Vector    `gorm:"type:vector(384)"` // all-minilm dimension
	Metadata       datatypes.JSONMap  `gorm:"type:jsonb"`
	SearchCount    int64              `gorm:"default:0"`
	LastSearchedAt *time.Time
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (CarEmbedding) TableName() string {
	return "car_embeddings"
}
