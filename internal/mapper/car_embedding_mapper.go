package mapper

import (
	"time"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type CarEmbeddingMapper struct{}

func NewCarEmbeddingMapper() *CarEmbeddingMapper {
	return &CarEmbeddingMapper{}
}

func (m *CarEmbeddingMapper) ToEntity(e *model.CarEmbedding) *entity.CarEmbedding {
	if e == nil {
		return nil
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	return &entity.CarEmbedding{
		Id:             e.Id,
		CarId:          e.CarId,
		Content:        e.Content,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		Metadata:       map[string]interface{}(e.Metadata),
		SearchCount:    e.SearchCount,
		LastSearchedAt: e.LastSearchedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *CarEmbeddingMapper) ToModel(e *entity.CarEmbedding) *model.CarEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.CarEmbedding{
		Id:             e.Id,
		CarId:          e.CarId,
		Content:        e.Content,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		Metadata:       e.Metadata,
		SearchCount:    e.SearchCount,
		LastSearchedAt: e.LastSearchedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *CarEmbeddingMapper) ToEntities(embeddings []*model.CarEmbedding) []*entity.CarEmbedding {
	entities := make([]*entity.CarEmbedding, len(embeddings))
	for i, e := range embeddings {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
