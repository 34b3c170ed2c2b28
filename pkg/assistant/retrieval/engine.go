package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/internal/repository/specification"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/embedding"
)

// Evidence source tags.
const (
	SourceSemanticSearch  = "semantic_search"
	SourceHybridSearch    = "hybrid_search"
	SourcePopularCars     = "popular_cars"
	SourcePopularFallback = "popular_fallback"
	SourceBookingHistory  = "booking_history"
	SourceDirectLookup    = "direct_id_lookup"
)

// defaultHybridDocTypes are the document collections a hybrid search covers
// when the caller does not narrow them.
var defaultHybridDocTypes = []string{"terms", "faq", "help", "privacy"}

// RecommendationSimilarityFloor keeps taste-profile matches meaningful; a
// lower cut produces arbitrary suggestions.
const RecommendationSimilarityFloor = 0.6

const recentBookingsForProfile = 5

const popularCacheKeyPrefix = "popular_cars"

// Engine answers every vector retrieval question the handlers ask: filtered
// semantic search over listings, policy document search, booking-history
// recommendations, and the popularity fallback.
type Engine struct {
	embedder         embedding.EmbeddingProvider
	carEmbeddingRepo contract.CarEmbeddingRepository
	docEmbeddingRepo contract.DocumentEmbeddingRepository
	bookingRepo      contract.BookingRepository
	popularCache     *gocache.Cache
	logger           logger.ILogger
}

func NewEngine(
	embedder embedding.EmbeddingProvider,
	carEmbeddingRepo contract.CarEmbeddingRepository,
	docEmbeddingRepo contract.DocumentEmbeddingRepository,
	bookingRepo contract.BookingRepository,
	popularCacheTTL time.Duration,
	log logger.ILogger,
) *Engine {
	return &Engine{
		embedder:         embedder,
		carEmbeddingRepo: carEmbeddingRepo,
		docEmbeddingRepo: docEmbeddingRepo,
		bookingRepo:      bookingRepo,
		popularCache:     gocache.New(popularCacheTTL, 2*popularCacheTTL),
		logger:           log,
	}
}

// SearchCars embeds the query and runs a filtered similarity search.
// Results are deduplicated by car id (first, highest-scoring occurrence
// wins) and usage counters are bumped best-effort.
func (e *Engine) SearchCars(ctx context.Context, query string, filter *assistant.SearchFilter, limit int, threshold float64) ([]assistant.CarEvidence, error) {
	embedded, err := e.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	specs := SpecsForFilter(filter)
	scored, err := e.carEmbeddingRepo.SearchSimilarWithScore(ctx, embedded.Embedding.Values, limit, threshold, specs...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := e.toCarEvidence(scored, SourceSemanticSearch)
	results = ApplyDateFilters(results, filter, time.Now().UTC())
	results = dedupeByCarId(results)

	e.bumpSearchStats(ctx, results)
	return results, nil
}

// SearchDocuments embeds the query and searches policy/help chunks,
// optionally restricted to specific document types.
func (e *Engine) SearchDocuments(ctx context.Context, query string, docTypes []string, limit int, threshold float64) ([]assistant.DocumentEvidence, error) {
	embedded, err := e.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	scored, err := e.docEmbeddingRepo.SearchSimilarWithScore(ctx, embedded.Embedding.Values, docTypes, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("document similarity search: %w", err)
	}
	return toDocumentEvidence(scored), nil
}

// HybridSearch apportions the top-k budget between listings and documents
// per the caller's percentages (half and half when unset), runs both
// searches off a single query embedding, and keeps the overall top limit
// entries across the two collections by score.
func (e *Engine) HybridSearch(ctx context.Context, query string, filter *assistant.SearchFilter, limit int, threshold float64) ([]assistant.CarEvidence, []assistant.DocumentEvidence, error) {
	embedded, err := e.embedder.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, nil, fmt.Errorf("embedding query: %w", err)
	}

	carLimit, docLimit := hybridSplit(limit, filter)

	scored, err := e.carEmbeddingRepo.SearchSimilarWithScore(ctx, embedded.Embedding.Values, carLimit, threshold, SpecsForFilter(filter)...)
	if err != nil {
		return nil, nil, fmt.Errorf("similarity search: %w", err)
	}
	cars := e.toCarEvidence(scored, SourceHybridSearch)
	cars = ApplyDateFilters(cars, filter, time.Now().UTC())
	cars = dedupeByCarId(cars)

	docTypes := defaultHybridDocTypes
	if filter != nil && len(filter.DocTypes) > 0 {
		docTypes = filter.DocTypes
	}
	docScored, err := e.docEmbeddingRepo.SearchSimilarWithScore(ctx, embedded.Embedding.Values, docTypes, docLimit, threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("document similarity search: %w", err)
	}
	docs := toDocumentEvidence(docScored)

	cars, docs = trimHybridByScore(cars, docs, limit)
	e.bumpSearchStats(ctx, cars)
	return cars, docs, nil
}

// hybridSplit apportions limit by the filter's percentages, truncating like
// the callers expect: 10 at 30/70 becomes 3 cars and 7 documents.
func hybridSplit(limit int, filter *assistant.SearchFilter) (int, int) {
	carPct, docPct := 0.5, 0.5
	if filter != nil {
		if filter.CarPercent != nil {
			carPct = *filter.CarPercent
		}
		if filter.DocPercent != nil {
			docPct = *filter.DocPercent
		}
	}
	return int(float64(limit) * carPct), int(float64(limit) * docPct)
}

// trimHybridByScore keeps the top limit entries across both result lists,
// preserving each list's internal (score-descending) order.
func trimHybridByScore(cars []assistant.CarEvidence, docs []assistant.DocumentEvidence, limit int) ([]assistant.CarEvidence, []assistant.DocumentEvidence) {
	if len(cars)+len(docs) <= limit {
		return cars, docs
	}

	type ref struct {
		score float64
		isCar bool
		idx   int
	}
	refs := make([]ref, 0, len(cars)+len(docs))
	for i, c := range cars {
		refs = append(refs, ref{score: c.Score, isCar: true, idx: i})
	}
	for i, d := range docs {
		refs = append(refs, ref{score: d.Score, isCar: false, idx: i})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].score > refs[j].score
	})
	refs = refs[:limit]

	keptCars := make([]assistant.CarEvidence, 0, limit)
	keptDocs := make([]assistant.DocumentEvidence, 0, limit)
	for _, r := range refs {
		if r.isCar {
			keptCars = append(keptCars, cars[r.idx])
		} else {
			keptDocs = append(keptDocs, docs[r.idx])
		}
	}
	sort.SliceStable(keptCars, func(i, j int) bool { return keptCars[i].Score > keptCars[j].Score })
	sort.SliceStable(keptDocs, func(i, j int) bool { return keptDocs[i].Score > keptDocs[j].Score })
	return keptCars, keptDocs
}

func toDocumentEvidence(scored []*contract.ScoredDocumentEmbedding) []assistant.DocumentEvidence {
	results := make([]assistant.DocumentEvidence, 0, len(scored))
	for _, s := range scored {
		results = append(results, assistant.DocumentEvidence{
			DocId:          s.Embedding.DocId,
			Score:          s.Similarity,
			DocType:        s.Embedding.DocType,
			Title:          s.Embedding.Title,
			Content:        s.Embedding.Content,
			ContentPreview: previewContent(s.Embedding.Content, 300),
			ChunkIndex:     s.Embedding.ChunkIndex,
			Metadata:       s.Embedding.Metadata,
		})
	}
	return results
}

// RecommendFromHistory builds a taste profile from the user's recent
// bookings and searches around it, excluding everything they already booked
// or currently hold. An empty result with nil error means no usable history;
// callers fall through to the popularity ranking.
func (e *Engine) RecommendFromHistory(ctx context.Context, userId uuid.UUID, limit int) ([]assistant.CarEvidence, error) {
	bookings, err := e.bookingRepo.RecentByUser(ctx, userId, recentBookingsForProfile)
	if err != nil {
		return nil, fmt.Errorf("loading booking history: %w", err)
	}
	if len(bookings) == 0 {
		return nil, nil
	}

	carIds := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		carIds = append(carIds, b.CarId)
	}
	embeddings, err := e.carEmbeddingRepo.FindByCarIds(ctx, carIds)
	if err != nil {
		return nil, fmt.Errorf("loading booked car embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(embeddings))
	for _, emb := range embeddings {
		vectors = append(vectors, emb.EmbeddingValue)
	}
	profile := averageVectors(vectors)

	exclude, err := e.excludedCarIds(ctx, userId)
	if err != nil {
		return nil, err
	}

	specs := append(SpecsForFilter(nil), specification.ExcludeCarIds{CarIds: exclude})
	scored, err := e.carEmbeddingRepo.SearchSimilarWithScore(ctx, profile, limit, RecommendationSimilarityFloor, specs...)
	if err != nil {
		return nil, fmt.Errorf("profile similarity search: %w", err)
	}

	reason := fmt.Sprintf("based_on_%d_recent_bookings", len(bookings))
	results := e.toCarEvidence(scored, SourceBookingHistory)
	for i := range results {
		results[i].Metadata["reason"] = reason
	}
	return dedupeByCarId(results), nil
}

// PopularCars returns the most searched active listings at a fixed 0.5
// score, tagged with the given source. Rankings are cached since popularity
// moves slowly.
func (e *Engine) PopularCars(ctx context.Context, limit int, source string) ([]assistant.CarEvidence, error) {
	cacheKey := fmt.Sprintf("%s:%d", popularCacheKeyPrefix, limit)
	if cached, found := e.popularCache.Get(cacheKey); found {
		return tagSource(cached.([]assistant.CarEvidence), source), nil
	}

	embeddings, err := e.carEmbeddingRepo.FindPopular(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading popular cars: %w", err)
	}

	results := make([]assistant.CarEvidence, 0, len(embeddings))
	for _, emb := range embeddings {
		results = append(results, carEvidenceFrom(emb, 0.5, source))
	}
	e.popularCache.Set(cacheKey, results, gocache.DefaultExpiration)
	return results, nil
}

// DirectLookup fetches specific listings by id at full score. Used when the
// conversation already pinned down exact cars.
func (e *Engine) DirectLookup(ctx context.Context, carIds []uuid.UUID) ([]assistant.CarEvidence, error) {
	if len(carIds) == 0 {
		return nil, nil
	}
	embeddings, err := e.carEmbeddingRepo.FindByCarIds(ctx, carIds)
	if err != nil {
		return nil, fmt.Errorf("direct lookup: %w", err)
	}
	results := make([]assistant.CarEvidence, 0, len(embeddings))
	for _, emb := range embeddings {
		results = append(results, carEvidenceFrom(emb, 1.0, SourceDirectLookup))
	}
	return results, nil
}

func (e *Engine) excludedCarIds(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	booked, err := e.bookingRepo.BookedCarIdsByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("loading booked car ids: %w", err)
	}
	active, err := e.bookingRepo.ActiveCarIdsByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("loading active car ids: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(booked)+len(active))
	merged := make([]uuid.UUID, 0, len(booked)+len(active))
	for _, id := range append(booked, active...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	return merged, nil
}

// bumpSearchStats is fire-and-forget: a failed counter update never fails
// the search that produced the results.
func (e *Engine) bumpSearchStats(ctx context.Context, results []assistant.CarEvidence) {
	if len(results) == 0 {
		return
	}
	carIds := make([]uuid.UUID, 0, len(results))
	for _, r := range results {
		carIds = append(carIds, r.CarId)
	}
	if err := e.carEmbeddingRepo.IncrementSearchStats(ctx, carIds); err != nil {
		e.logger.Warn("retrieval-engine", "search stats update failed", map[string]interface{}{
			"error":   err.Error(),
			"car_ids": len(carIds),
		})
	}
}

func (e *Engine) toCarEvidence(scored []*contract.ScoredCarEmbedding, source string) []assistant.CarEvidence {
	results := make([]assistant.CarEvidence, 0, len(scored))
	for _, s := range scored {
		results = append(results, carEvidenceFrom(s.Embedding, s.Similarity, source))
	}
	return results
}

func carEvidenceFrom(emb *entity.CarEmbedding, score float64, source string) assistant.CarEvidence {
	metadata := map[string]interface{}{}
	for k, v := range emb.Metadata {
		metadata[k] = v
	}
	metadata["source"] = source
	return assistant.CarEvidence{
		CarId:        emb.CarId,
		Score:        score,
		Brand:        metaString(metadata, metaKeyBrand),
		Model:        metaString(metadata, metaKeyModel),
		PricePerHour: metaFloat(metadata, metaKeyPricePerHour),
		Metadata:     metadata,
	}
}

func tagSource(results []assistant.CarEvidence, source string) []assistant.CarEvidence {
	tagged := make([]assistant.CarEvidence, len(results))
	for i, r := range results {
		metadata := map[string]interface{}{}
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		metadata["source"] = source
		r.Metadata = metadata
		tagged[i] = r
	}
	return tagged
}

// dedupeByCarId keeps the first occurrence of each car. Inputs arrive sorted
// by score, so first is also highest.
func dedupeByCarId(results []assistant.CarEvidence) []assistant.CarEvidence {
	seen := make(map[uuid.UUID]struct{}, len(results))
	deduped := results[:0]
	for _, r := range results {
		if _, ok := seen[r.CarId]; ok {
			continue
		}
		seen[r.CarId] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped
}

// MergeAndDeduplicate combines evidence lists, keeping the highest score per
// car, and returns them ordered by score descending.
func MergeAndDeduplicate(lists ...[]assistant.CarEvidence) []assistant.CarEvidence {
	best := map[uuid.UUID]assistant.CarEvidence{}
	order := []uuid.UUID{}
	for _, list := range lists {
		for _, r := range list {
			existing, ok := best[r.CarId]
			if !ok {
				best[r.CarId] = r
				order = append(order, r.CarId)
				continue
			}
			if r.Score > existing.Score {
				best[r.CarId] = r
			}
		}
	}

	merged := make([]assistant.CarEvidence, 0, len(order))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

// averageVectors computes the normalized centroid of the input vectors.
func averageVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}

	var norm float64
	avg := make([]float32, dim)
	for i := range sum {
		sum[i] /= float64(len(vectors))
		norm += sum[i] * sum[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return avg
	}
	for i := range sum {
		avg[i] = float32(sum[i] / norm)
	}
	return avg
}

func previewContent(content string, max int) string {
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
