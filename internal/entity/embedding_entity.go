package entity

import (
	"time"

	"github.com/google/uuid"
)

type CarEmbedding struct {
	Id             uuid.UUID
	CarId          uuid.UUID
	Content        string
	EmbeddingValue []float32
	Metadata       map[string]interface{}
	SearchCount    int64
	LastSearchedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	IsDeleted      bool
}

type DocumentEmbedding struct {
	Id             uuid.UUID
	DocId          string
	DocType        string
	Title          string
	Content        string
	ChunkIndex     int
	EmbeddingValue []float32
	Metadata       map[string]interface{}
	RefreshBatch   uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
