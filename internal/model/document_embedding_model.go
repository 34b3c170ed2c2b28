package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type DocumentEmbedding struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocId          string            `gorm:"type:varchar(255);uniqueIndex;not null"` // {doc_type}_{master_id}_{chunk_index}
	DocType        string            `gorm:"type:varchar(50);not null;index"`        // terms, faq, help, privacy
	Title          string            `gorm:"type:varchar(500)"`
	Content        string            `gorm:"type:text"`
	ChunkIndex     int               `gorm:"default:0"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(384)"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	RefreshBatch   uuid.UUID         `gorm:"type:uuid;not null;index"` // generation marker for stage-and-swap refresh
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (DocumentEmbedding) TableName() string {
	return "document_embeddings"
}
