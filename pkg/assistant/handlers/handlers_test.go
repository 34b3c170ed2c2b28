package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/internal/repository/specification"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/retrieval"
	"car-rental-assistant-be/pkg/assistant/sqltool"
	"car-rental-assistant-be/pkg/embedding"
	"car-rental-assistant-be/pkg/llm"
)

// --- fakes ---

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: make([]float32, embedding.Dimension)},
	}, nil
}

func (f fakeEmbedder) GenerateBatch(texts []string, taskType string) ([]*embedding.EmbeddingResponse, error) {
	out := make([]*embedding.EmbeddingResponse, len(texts))
	for i := range texts {
		out[i], _ = f.Generate(texts[i], taskType)
	}
	return out, nil
}

type fakeCarEmbeddingRepo struct {
	scored  []*contract.ScoredCarEmbedding
	popular []*entity.CarEmbedding
	byIds   []*entity.CarEmbedding
}

func (f *fakeCarEmbeddingRepo) Upsert(ctx context.Context, e *entity.CarEmbedding) error { return nil }
func (f *fakeCarEmbeddingRepo) FindByCarId(ctx context.Context, carId uuid.UUID) (*entity.CarEmbedding, error) {
	return nil, nil
}
func (f *fakeCarEmbeddingRepo) FindByCarIds(ctx context.Context, carIds []uuid.UUID) ([]*entity.CarEmbedding, error) {
	return f.byIds, nil
}
func (f *fakeCarEmbeddingRepo) DeleteByCarId(ctx context.Context, carId uuid.UUID) error { return nil }
func (f *fakeCarEmbeddingRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.scored)), nil
}
func (f *fakeCarEmbeddingRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, limit int, threshold float64, specs ...specification.Specification) ([]*contract.ScoredCarEmbedding, error) {
	return f.scored, nil
}
func (f *fakeCarEmbeddingRepo) FindPopular(ctx context.Context, limit int) ([]*entity.CarEmbedding, error) {
	return f.popular, nil
}
func (f *fakeCarEmbeddingRepo) IncrementSearchStats(ctx context.Context, carIds []uuid.UUID) error {
	return nil
}

type fakeDocEmbeddingRepo struct {
	scored       []*contract.ScoredDocumentEmbedding
	searchedDocs [][]string
}

func (f *fakeDocEmbeddingRepo) CreateBulk(ctx context.Context, embeddings []*entity.DocumentEmbedding) error {
	return nil
}
func (f *fakeDocEmbeddingRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.scored)), nil
}
func (f *fakeDocEmbeddingRepo) SearchSimilarWithScore(ctx context.Context, emb []float32, docTypes []string, limit int, threshold float64) ([]*contract.ScoredDocumentEmbedding, error) {
	f.searchedDocs = append(f.searchedDocs, docTypes)
	return f.scored, nil
}
func (f *fakeDocEmbeddingRepo) SwapRefreshBatch(ctx context.Context, keep uuid.UUID) error {
	return nil
}

type fakeBookingRepo struct {
	recent        []*entity.Booking
	bookedIds     []uuid.UUID
	activeIds     []uuid.UUID
	busyIds       []uuid.UUID
	busyWindows   [][2]time.Time
	nextAvailable map[uuid.UUID]*time.Time
}

func (f *fakeBookingRepo) RecentByUser(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.Booking, error) {
	return f.recent, nil
}
func (f *fakeBookingRepo) BookedCarIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	return f.bookedIds, nil
}
func (f *fakeBookingRepo) ActiveCarIdsByUser(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	return f.activeIds, nil
}
func (f *fakeBookingRepo) CarIdsBookedBetween(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	f.busyWindows = append(f.busyWindows, [2]time.Time{start, end})
	return f.busyIds, nil
}
func (f *fakeBookingRepo) NextAvailableTime(ctx context.Context, carId uuid.UUID) (*time.Time, error) {
	return f.nextAvailable[carId], nil
}

type fakeLLM struct {
	result *llm.ChatResult
	err    error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.result.Content, f.err
}
func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.result.Content, f.err
}
func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) (string, error) {
	return f.result.Content, f.err
}
func (f *fakeLLM) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	return f.result, f.err
}

type fakeRawQueryRepo struct {
	rows    []map[string]interface{}
	queries []string
}

func (f *fakeRawQueryRepo) QueryRows(ctx context.Context, query string) ([]map[string]interface{}, error) {
	f.queries = append(f.queries, query)
	return f.rows, nil
}

func scoredCar(carId uuid.UUID, score float64) *contract.ScoredCarEmbedding {
	return &contract.ScoredCarEmbedding{
		Embedding: &entity.CarEmbedding{
			Id:    uuid.New(),
			CarId: carId,
			Metadata: map[string]interface{}{
				"brand":          "Toyota",
				"model":          "Innova",
				"price_per_hour": 250.0,
				"status":         "ACTIVE",
			},
		},
		Similarity: score,
	}
}

func newEngine(carRepo *fakeCarEmbeddingRepo, docRepo *fakeDocEmbeddingRepo, bookingRepo *fakeBookingRepo) *retrieval.Engine {
	return retrieval.NewEngine(fakeEmbedder{}, carRepo, docRepo, bookingRepo, time.Minute, logger.NewNoopLogger())
}

func newStateWithIntent(query string, intentType assistant.IntentType, sub assistant.SubIntent) *assistant.TurnState {
	state := assistant.NewTurnState(uuid.New(), "session-1", query)
	state.Intent = &assistant.Intent{Type: intentType, SubIntent: sub, Confidence: 0.9}
	return state
}

// --- inventory ---

func TestInventorySemanticSearch(t *testing.T) {
	carRepo := &fakeCarEmbeddingRepo{scored: []*contract.ScoredCarEmbedding{
		scoredCar(uuid.New(), 0.8),
		scoredCar(uuid.New(), 0.6),
	}}
	bookingRepo := &fakeBookingRepo{}
	h := NewInventoryHandler(newEngine(carRepo, &fakeDocEmbeddingRepo{}, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())
	state := newStateWithIntent("suv with sunroof", assistant.IntentInventory, assistant.SubSemanticSearch)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.CarEvidence) != 2 {
		t.Fatalf("evidence = %d, want 2", len(state.CarEvidence))
	}
	if state.Metadata.ResultsCount != 2 {
		t.Errorf("ResultsCount = %d, want 2", state.Metadata.ResultsCount)
	}
	if state.CarEvidence[0].Brand != "Toyota" {
		t.Errorf("Brand = %q, want Toyota", state.CarEvidence[0].Brand)
	}
}

func TestInventorySemanticSearchSubstitutesPopular(t *testing.T) {
	popularCar := uuid.New()
	carRepo := &fakeCarEmbeddingRepo{
		popular: []*entity.CarEmbedding{
			{
				Id:    uuid.New(),
				CarId: popularCar,
				Metadata: map[string]interface{}{
					"brand": "Hyundai", "model": "Creta", "price_per_hour": 180.0, "status": "ACTIVE",
				},
			},
		},
	}
	bookingRepo := &fakeBookingRepo{}
	h := NewInventoryHandler(newEngine(carRepo, &fakeDocEmbeddingRepo{}, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())
	state := newStateWithIntent("flying car with jetpack", assistant.IntentInventory, assistant.SubSemanticSearch)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.CarEvidence) != 1 || state.CarEvidence[0].CarId != popularCar {
		t.Fatalf("expected the popular listing to stand in, got %+v", state.CarEvidence)
	}
	if state.Metadata.Source != retrieval.SourcePopularCars {
		t.Errorf("Source = %q, want %s", state.Metadata.Source, retrieval.SourcePopularCars)
	}
	if src, _ := state.CarEvidence[0].Metadata["source"].(string); src != retrieval.SourcePopularCars {
		t.Errorf("evidence source = %q, want %s", src, retrieval.SourcePopularCars)
	}
	if state.CarEvidence[0].Score != 0.5 {
		t.Errorf("popular score = %v, want 0.5", state.CarEvidence[0].Score)
	}
}

func TestInventoryHybridSearchSplitsEvidence(t *testing.T) {
	carRepo := &fakeCarEmbeddingRepo{scored: []*contract.ScoredCarEmbedding{
		scoredCar(uuid.New(), 0.9),
		scoredCar(uuid.New(), 0.7),
	}}
	docRepo := &fakeDocEmbeddingRepo{scored: []*contract.ScoredDocumentEmbedding{
		{
			Embedding: &entity.DocumentEmbedding{
				DocId:   "terms_1_0",
				DocType: DocTypeTerms,
				Title:   "Insurance coverage",
				Content: "Every rental includes third-party insurance.",
			},
			Similarity: 0.8,
		},
	}}
	bookingRepo := &fakeBookingRepo{}
	h := NewInventoryHandler(newEngine(carRepo, docRepo, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())

	carPct, docPct := 0.6, 0.4
	state := newStateWithIntent("suvs and their insurance terms", assistant.IntentInventory, assistant.SubSemanticSearch)
	state.Intent.Filters = &assistant.SearchFilter{CarPercent: &carPct, DocPercent: &docPct}

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.CarEvidence) != 2 {
		t.Fatalf("car evidence = %d, want 2", len(state.CarEvidence))
	}
	if len(state.DocumentEvidence) != 1 {
		t.Fatalf("document evidence = %d, want 1", len(state.DocumentEvidence))
	}
	if state.Metadata.Source != retrieval.SourceHybridSearch {
		t.Errorf("Source = %q, want %s", state.Metadata.Source, retrieval.SourceHybridSearch)
	}
	if src, _ := state.CarEvidence[0].Metadata["source"].(string); src != retrieval.SourceHybridSearch {
		t.Errorf("car source = %q, want %s", src, retrieval.SourceHybridSearch)
	}
}

func TestInventoryAvailabilityBuffersWindow(t *testing.T) {
	freeCar := uuid.New()
	busyCar := uuid.New()
	carRepo := &fakeCarEmbeddingRepo{scored: []*contract.ScoredCarEmbedding{
		scoredCar(freeCar, 0.8),
		scoredCar(busyCar, 0.7),
	}}
	bookingRepo := &fakeBookingRepo{busyIds: []uuid.UUID{busyCar}}
	h := NewInventoryHandler(newEngine(carRepo, &fakeDocEmbeddingRepo{}, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	state := newStateWithIntent("is the innova free", assistant.IntentInventory, assistant.SubAvailability)
	state.Intent.StartDate = &start
	state.Intent.EndDate = &end

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(bookingRepo.busyWindows) != 1 {
		t.Fatalf("booking window queries = %d, want 1", len(bookingRepo.busyWindows))
	}
	window := bookingRepo.busyWindows[0]
	wantStart := time.Date(2025, 6, 1, 6, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 6, 3, 14, 0, 0, 0, time.UTC)
	if !window[0].Equal(wantStart) || !window[1].Equal(wantEnd) {
		t.Errorf("window = [%v, %v], want [%v, %v]", window[0], window[1], wantStart, wantEnd)
	}

	if len(state.CarEvidence) != 1 || state.CarEvidence[0].CarId != freeCar {
		t.Errorf("expected only the free car to survive, got %+v", state.CarEvidence)
	}
	if avail, _ := state.CarEvidence[0].Metadata["available"].(bool); !avail {
		t.Error("free car not marked available")
	}
	if count, _ := state.Metadata.FlowAnalysis["available_count"].(int); count != 1 {
		t.Errorf("available_count = %v, want 1", state.Metadata.FlowAnalysis["available_count"])
	}
	if ask, _ := state.Metadata.FlowAnalysis["ask_preferences"].(bool); !ask {
		t.Error("availability must queue the preference follow-ups")
	}
}

func TestInventoryAvailabilityAllBusyReportsNextFree(t *testing.T) {
	busyCar := uuid.New()
	nextFree := time.Date(2025, 6, 5, 18, 0, 0, 0, time.UTC)
	carRepo := &fakeCarEmbeddingRepo{scored: []*contract.ScoredCarEmbedding{
		scoredCar(busyCar, 0.8),
	}}
	bookingRepo := &fakeBookingRepo{
		busyIds:       []uuid.UUID{busyCar},
		nextAvailable: map[uuid.UUID]*time.Time{busyCar: &nextFree},
	}
	h := NewInventoryHandler(newEngine(carRepo, &fakeDocEmbeddingRepo{}, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	state := newStateWithIntent("any innova this weekend", assistant.IntentInventory, assistant.SubAvailability)
	state.Intent.StartDate = &start
	state.Intent.EndDate = &end

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.CarEvidence) != 1 || state.CarEvidence[0].CarId != busyCar {
		t.Fatalf("expected the busy car to be reported, got %+v", state.CarEvidence)
	}
	car := state.CarEvidence[0]
	if avail, _ := car.Metadata["available"].(bool); avail {
		t.Error("busy car marked available")
	}
	if car.NextAvailableAt == nil || !car.NextAvailableAt.Equal(nextFree) {
		t.Errorf("NextAvailableAt = %v, want %v", car.NextAvailableAt, nextFree)
	}
	if got, _ := car.Metadata["next_available"].(string); got != nextFree.Format(time.RFC3339) {
		t.Errorf("next_available = %q, want %q", got, nextFree.Format(time.RFC3339))
	}
	if count, _ := state.Metadata.FlowAnalysis["unavailable_count"].(int); count != 1 {
		t.Errorf("unavailable_count = %v, want 1", state.Metadata.FlowAnalysis["unavailable_count"])
	}
	questions, _ := state.Metadata.FlowAnalysis["preference_questions"].([]string)
	if len(questions) != 2 {
		t.Errorf("preference_questions = %v, want budget and car type", questions)
	}
}

func TestInventoryAvailabilityWithoutDatesAsksForThem(t *testing.T) {
	carRepo := &fakeCarEmbeddingRepo{}
	bookingRepo := &fakeBookingRepo{}
	h := NewInventoryHandler(newEngine(carRepo, &fakeDocEmbeddingRepo{}, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())
	state := newStateWithIntent("is it available", assistant.IntentInventory, assistant.SubAvailability)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if !state.Metadata.NeedsClarification {
		t.Error("expected a clarification request when no dates are given")
	}
	if len(bookingRepo.busyWindows) != 0 {
		t.Error("availability window must not be queried without dates")
	}
}

func TestInventoryRecommendationFallsBackToPopular(t *testing.T) {
	popularCar := uuid.New()
	carRepo := &fakeCarEmbeddingRepo{
		popular: []*entity.CarEmbedding{
			{
				Id:    uuid.New(),
				CarId: popularCar,
				Metadata: map[string]interface{}{
					"brand": "Maruti", "model": "Swift", "price_per_hour": 120.0, "status": "ACTIVE",
				},
			},
		},
	}
	// No booking history at all.
	bookingRepo := &fakeBookingRepo{}
	h := NewInventoryHandler(newEngine(carRepo, &fakeDocEmbeddingRepo{}, bookingRepo), bookingRepo, DefaultConfig(), logger.NewNoopLogger())
	state := newStateWithIntent("recommend me something", assistant.IntentInventory, assistant.SubRecommendation)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.CarEvidence) != 1 || state.CarEvidence[0].CarId != popularCar {
		t.Fatalf("expected the popular car, got %+v", state.CarEvidence)
	}
	if src, _ := state.CarEvidence[0].Metadata["source"].(string); src != retrieval.SourcePopularFallback {
		t.Errorf("source = %q, want %s", src, retrieval.SourcePopularFallback)
	}
	if state.CarEvidence[0].Score != 0.5 {
		t.Errorf("popular fallback score = %v, want 0.5", state.CarEvidence[0].Score)
	}
}

// --- documents ---

func TestDocumentsHandlerMapsSubIntentToTypes(t *testing.T) {
	docRepo := &fakeDocEmbeddingRepo{scored: []*contract.ScoredDocumentEmbedding{
		{
			Embedding: &entity.DocumentEmbedding{
				DocId:   "terms_1_0",
				DocType: DocTypeTerms,
				Title:   "Cancellation policy",
				Content: "Bookings may be cancelled up to 24 hours before pickup.",
			},
			Similarity: 0.72,
		},
	}}
	h := NewDocumentsHandler(newEngine(&fakeCarEmbeddingRepo{}, docRepo, &fakeBookingRepo{}), DefaultConfig(), logger.NewNoopLogger())
	state := newStateWithIntent("can I cancel my booking", assistant.IntentDocuments, assistant.SubTerms)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.DocumentEvidence) != 1 {
		t.Fatalf("evidence = %d, want 1", len(state.DocumentEvidence))
	}
	docContext := state.Metadata.DocumentContext
	if docContext == nil {
		t.Fatal("DocumentContext not set")
	}
	topics, _ := docContext["topics"].([]string)
	if len(topics) != 1 || topics[0] != "Cancellation policy" {
		t.Errorf("topics = %v", topics)
	}
}

func TestDocumentsHandlerClarifiesOnEmpty(t *testing.T) {
	cases := []struct {
		sub           assistant.SubIntent
		wantFirst     string
		wantQuestions int
	}{
		{assistant.SubTerms, "What specific term or condition would you like to know about?", 2},
		{assistant.SubFaq, "What would you like help with?", 2},
		{assistant.SubPrivacy, "What aspect of our privacy policy are you interested in?", 2},
		{assistant.SubHelp, "What do you need help with?", 2},
		{assistant.SubIntent("unknown"), docGenericClarifications[0], 1},
	}
	for _, tc := range cases {
		t.Run(string(tc.sub), func(t *testing.T) {
			h := NewDocumentsHandler(newEngine(&fakeCarEmbeddingRepo{}, &fakeDocEmbeddingRepo{}, &fakeBookingRepo{}), DefaultConfig(), logger.NewNoopLogger())
			state := newStateWithIntent("zzz", assistant.IntentDocuments, tc.sub)

			if err := h.Handle(context.Background(), state); err != nil {
				t.Fatalf("Handle: %v", err)
			}

			if !state.Metadata.NeedsClarification {
				t.Fatal("expected clarification when nothing matched")
			}
			questions := state.Metadata.ClarificationQuestions
			if len(questions) != tc.wantQuestions {
				t.Fatalf("questions = %v, want %d", questions, tc.wantQuestions)
			}
			if questions[0] != tc.wantFirst {
				t.Errorf("first question = %q, want %q", questions[0], tc.wantFirst)
			}
		})
	}
}

func TestDocumentsFaqContextCollectsQaPairs(t *testing.T) {
	docRepo := &fakeDocEmbeddingRepo{scored: []*contract.ScoredDocumentEmbedding{
		{
			Embedding: &entity.DocumentEmbedding{
				DocId:   "faq_1_0",
				DocType: DocTypeFaq,
				Title:   "Booking basics",
				Content: "You can book a car through the app in under a minute.",
				Metadata: map[string]interface{}{
					"content_type": "qa",
					"question":     "How do I book a car?",
					"category":     "Bookings",
				},
			},
			Similarity: 0.85,
		},
		{
			Embedding: &entity.DocumentEmbedding{
				DocId:   "faq_1_1",
				DocType: DocTypeFaq,
				Title:   "Payments",
				Content: "We accept UPI, cards, and net banking.",
				Metadata: map[string]interface{}{
					"content_type": "qa",
					"question":     "How can I pay?",
				},
			},
			Similarity: 0.7,
		},
		{
			// Narrative chunk without QA structure, skipped from the pairs.
			Embedding: &entity.DocumentEmbedding{
				DocId:   "faq_2_0",
				DocType: DocTypeFaq,
				Content: "Welcome to our frequently asked questions.",
			},
			Similarity: 0.6,
		},
	}}
	h := NewDocumentsHandler(newEngine(&fakeCarEmbeddingRepo{}, docRepo, &fakeBookingRepo{}), DefaultConfig(), logger.NewNoopLogger())
	state := newStateWithIntent("how do bookings work", assistant.IntentDocuments, assistant.SubFaq)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Metadata.Source != "faq_documents" {
		t.Errorf("Source = %q, want faq_documents", state.Metadata.Source)
	}
	docContext := state.Metadata.DocumentContext
	if docContext == nil {
		t.Fatal("DocumentContext not set")
	}
	if kind, _ := docContext["type"].(string); kind != "faq" {
		t.Errorf("context type = %q, want faq", kind)
	}
	pairs, _ := docContext["qa_pairs"].([]map[string]interface{})
	if len(pairs) != 2 {
		t.Fatalf("qa_pairs = %d, want 2", len(pairs))
	}
	if q, _ := pairs[0]["question"].(string); q != "How do I book a car?" {
		t.Errorf("first question = %q", q)
	}
	if cat, _ := pairs[1]["category"].(string); cat != "General" {
		t.Errorf("missing category should default to General, got %q", cat)
	}
	categories, _ := docContext["categories"].([]string)
	if len(categories) != 2 {
		t.Errorf("categories = %v, want Bookings and General", categories)
	}
}

// --- contextual ---

func TestContextualUnclearAlwaysClarifies(t *testing.T) {
	h := NewContextualHandler(newEngine(&fakeCarEmbeddingRepo{}, &fakeDocEmbeddingRepo{}, &fakeBookingRepo{}), logger.NewNoopLogger())
	state := newStateWithIntent("hmm", assistant.IntentGeneral, assistant.SubUnclear)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if !state.Metadata.NeedsClarification {
		t.Error("unclear queries must request clarification")
	}
	if len(state.Metadata.ClarificationQuestions) == 0 {
		t.Error("no clarification question recorded")
	}
}

func TestContextualAboutSearchesAllPolicyCollections(t *testing.T) {
	docRepo := &fakeDocEmbeddingRepo{scored: []*contract.ScoredDocumentEmbedding{
		{
			Embedding: &entity.DocumentEmbedding{
				DocId:   "faq_3_0",
				DocType: DocTypeFaq,
				Title:   "About us",
				Content: "We rent cars across twelve cities.",
			},
			Similarity: 0.65,
		},
	}}
	h := NewContextualHandler(newEngine(&fakeCarEmbeddingRepo{}, docRepo, &fakeBookingRepo{}), logger.NewNoopLogger())
	state := newStateWithIntent("who are you guys", assistant.IntentAbout, assistant.SubCompany)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Metadata.Source != "about_company" {
		t.Errorf("Source = %q, want about_company", state.Metadata.Source)
	}
	if len(docRepo.searchedDocs) != 1 {
		t.Fatalf("searches = %d, want 1", len(docRepo.searchedDocs))
	}
	want := []string{DocTypeFaq, DocTypeHelp, DocTypeTerms, DocTypePrivacy}
	got := docRepo.searchedDocs[0]
	if len(got) != len(want) {
		t.Fatalf("doc types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("doc types = %v, want %v", got, want)
		}
	}
}

func TestContextualGreetingSkipsRetrieval(t *testing.T) {
	docRepo := &fakeDocEmbeddingRepo{scored: []*contract.ScoredDocumentEmbedding{
		{Embedding: &entity.DocumentEmbedding{DocId: "faq_1_0", DocType: DocTypeFaq}, Similarity: 0.9},
	}}
	h := NewContextualHandler(newEngine(&fakeCarEmbeddingRepo{}, docRepo, &fakeBookingRepo{}), logger.NewNoopLogger())
	state := newStateWithIntent("hello!", assistant.IntentGeneral, assistant.SubGreeting)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.DocumentEvidence) != 0 {
		t.Errorf("greeting pulled %d documents, want 0", len(state.DocumentEvidence))
	}
}

// --- booking ---

func newBookingHandler(llmResult *llm.ChatResult, rawRepo *fakeRawQueryRepo) *BookingHandler {
	executor := sqltool.NewExecutor(sqltool.NewValidator(sqltool.DefaultAllowedTables), rawRepo, logger.NewNoopLogger())
	return NewBookingHandler(&fakeLLM{result: llmResult}, executor, DefaultConfig(), logger.NewNoopLogger())
}

func TestBookingRejectsAnonymousUser(t *testing.T) {
	h := newBookingHandler(&llm.ChatResult{}, &fakeRawQueryRepo{})
	state := newStateWithIntent("show my bookings", assistant.IntentBooking, assistant.SubBookingHistory)
	state.User.UserId = uuid.Nil

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Reply != MsgAccountNotFound {
		t.Errorf("Reply = %q, want account message", state.Reply)
	}
}

func TestBookingReservationAttemptGetsComingSoon(t *testing.T) {
	h := newBookingHandler(&llm.ChatResult{}, &fakeRawQueryRepo{})
	state := newStateWithIntent("book the innova for tomorrow", assistant.IntentBooking, "")

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Reply != MsgFeatureComingSoon {
		t.Errorf("Reply = %q, want coming soon message", state.Reply)
	}
}

func TestBookingExecutesToolCall(t *testing.T) {
	rawRepo := &fakeRawQueryRepo{rows: []map[string]interface{}{
		{"id": "b1", "status": "CONFIRMED"},
	}}
	result := &llm.ChatResult{ToolCalls: []llm.ToolCall{{
		Name: sqltool.ToolName,
		Arguments: map[string]interface{}{
			"query":       "SELECT * FROM bookings WHERE booked_by = 'u1'",
			"explanation": "recent bookings for the user",
		},
	}}}
	h := newBookingHandler(result, rawRepo)
	state := newStateWithIntent("show my bookings", assistant.IntentBooking, assistant.SubBookingHistory)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(state.BookingResults) != 1 {
		t.Fatalf("BookingResults = %d rows, want 1", len(state.BookingResults))
	}
	if state.Metadata.SqlQuery == "" || state.Metadata.QueryExplanation == "" {
		t.Error("query provenance not recorded in metadata")
	}
	if len(rawRepo.queries) != 1 {
		t.Fatalf("executed %d queries, want 1", len(rawRepo.queries))
	}
	if rawRepo.queries[0] != "SELECT * FROM bookings WHERE booked_by = 'u1' LIMIT 10" {
		t.Errorf("executed query = %q, limit not appended", rawRepo.queries[0])
	}
}

func TestBookingEmptyRowsGetCannedMessage(t *testing.T) {
	rawRepo := &fakeRawQueryRepo{rows: []map[string]interface{}{}}
	result := &llm.ChatResult{ToolCalls: []llm.ToolCall{{
		Name: sqltool.ToolName,
		Arguments: map[string]interface{}{
			"query":       "SELECT * FROM payments",
			"explanation": "payments",
		},
	}}}
	h := newBookingHandler(result, rawRepo)
	state := newStateWithIntent("show my payments", assistant.IntentBooking, assistant.SubPaymentHistory)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Reply != noResultsMessages[assistant.SubPaymentHistory] {
		t.Errorf("Reply = %q, want canned no-payments message", state.Reply)
	}
}

func TestBookingProseNothingFoundNormalized(t *testing.T) {
	h := newBookingHandler(&llm.ChatResult{Content: "No bookings were found for this user."}, &fakeRawQueryRepo{})
	state := newStateWithIntent("show my bookings", assistant.IntentBooking, assistant.SubBookingHistory)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Reply != noResultsMessages[assistant.SubBookingHistory] {
		t.Errorf("Reply = %q, want canned message", state.Reply)
	}
}

func TestBookingUnusableProseAsksForRephrase(t *testing.T) {
	h := newBookingHandler(&llm.ChatResult{Content: "Sure, let me think about that."}, &fakeRawQueryRepo{})
	state := newStateWithIntent("show my bookings", assistant.IntentBooking, assistant.SubBookingHistory)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if state.Reply != "" {
		t.Errorf("Reply = %q, prose must not pass through as the answer", state.Reply)
	}
	if !state.Metadata.NeedsClarification {
		t.Fatal("expected a clarification request")
	}
	questions := state.Metadata.ClarificationQuestions
	if len(questions) != 1 || questions[0] != MsgCannotPlanQuery {
		t.Errorf("questions = %v, want the rephrase prompt", questions)
	}
}

func TestBookingToolFailureSurfacesError(t *testing.T) {
	result := &llm.ChatResult{ToolCalls: []llm.ToolCall{{
		Name: sqltool.ToolName,
		Arguments: map[string]interface{}{
			"query":       "DELETE FROM bookings",
			"explanation": "remove bookings",
		},
	}}}
	rawRepo := &fakeRawQueryRepo{}
	h := newBookingHandler(result, rawRepo)
	state := newStateWithIntent("show my bookings", assistant.IntentBooking, assistant.SubBookingHistory)

	if err := h.Handle(context.Background(), state); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(rawRepo.queries) != 0 {
		t.Fatal("rejected query must never execute")
	}
	if state.Reply != "" {
		t.Errorf("Reply = %q, a failed tool run must not look like an empty result", state.Reply)
	}
	if !state.Metadata.NeedsClarification {
		t.Fatal("expected a clarification request")
	}
	questions := state.Metadata.ClarificationQuestions
	if len(questions) != 1 || !strings.HasPrefix(questions[0], "I encountered an error:") {
		t.Errorf("questions = %v, want an error-carrying question", questions)
	}
}
