package contract

import (
	"context"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredCarEmbedding pairs an embedding row with its cosine similarity score.
type ScoredCarEmbedding struct {
	Embedding  *entity.CarEmbedding
	Similarity float64
}

type CarEmbeddingRepository interface {
	Upsert(ctx context.Context, embedding *entity.CarEmbedding) error
	FindByCarId(ctx context.Context, carId uuid.UUID) (*entity.CarEmbedding, error)
	FindByCarIds(ctx context.Context, carIds []uuid.UUID) ([]*entity.CarEmbedding, error)
	DeleteByCarId(ctx context.Context, carId uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore runs filtered cosine similarity over the vector
	// column. Extra specifications constrain the JSONB metadata.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64, specs ...specification.Specification) ([]*ScoredCarEmbedding, error)

	// FindPopular orders by usage counters as a context-free fallback.
	FindPopular(ctx context.Context, limit int) ([]*entity.CarEmbedding, error)

	// IncrementSearchStats bumps search_count / last_searched_at. Best-effort
	// by contract: callers log and swallow the error.
	IncrementSearchStats(ctx context.Context, carIds []uuid.UUID) error
}
