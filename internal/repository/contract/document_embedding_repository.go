package contract

import (
	"context"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ScoredDocumentEmbedding struct {
	Embedding  *entity.DocumentEmbedding
	Similarity float64
}

type DocumentEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.DocumentEmbedding) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore restricts the search to the given doc types
	// (terms, faq, help, privacy). An empty set means all types.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, docTypes []string, limit int, threshold float64) ([]*ScoredDocumentEmbedding, error)

	// SwapRefreshBatch deletes every row whose refresh_batch differs from
	// keep, promoting the staged generation in a single statement.
	SwapRefreshBatch(ctx context.Context, keep uuid.UUID) error
}
