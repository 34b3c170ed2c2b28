package embedding

// Dimension is the width of every vector this system stores. The vector
// columns are declared vector(384); a provider returning anything else is
// misconfigured.
const Dimension = 384

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings.
// Implementations must be deterministic for identical input so content-hash
// skip logic in the indexing pipeline stays meaningful.
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
	GenerateBatch(texts []string, taskType string) ([]*EmbeddingResponse, error)
}
