package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/retrieval"
)

// availabilityBuffer pads both ends of a requested rental window so that
// back-to-back bookings leave time for return, cleaning, and delivery.
const availabilityBuffer = 4 * time.Hour

// InventoryHandler answers vehicle questions: semantic search, details for
// already-identified cars, date availability, and recommendations.
type InventoryHandler struct {
	engine      *retrieval.Engine
	bookingRepo contract.BookingRepository
	cfg         Config
	logger      logger.ILogger
}

func NewInventoryHandler(engine *retrieval.Engine, bookingRepo contract.BookingRepository, cfg Config, log logger.ILogger) *InventoryHandler {
	return &InventoryHandler{
		engine:      engine,
		bookingRepo: bookingRepo,
		cfg:         cfg,
		logger:      log,
	}
}

func (h *InventoryHandler) Node() string { return assistant.NodeInventory }

func (h *InventoryHandler) Handle(ctx context.Context, state *assistant.TurnState) error {
	sub := assistant.SubSemanticSearch
	if state.Intent != nil && state.Intent.SubIntent != "" {
		sub = state.Intent.SubIntent
	}

	var err error
	switch sub {
	case assistant.SubCarDetails:
		err = h.handleCarDetails(ctx, state)
	case assistant.SubAvailability:
		err = h.handleAvailability(ctx, state)
	case assistant.SubRecommendation:
		err = h.handleRecommendation(ctx, state)
	default:
		err = h.handleSemanticSearch(ctx, state)
	}
	if err != nil {
		return err
	}

	state.Metadata.ResultsCount = len(state.CarEvidence)
	return nil
}

func (h *InventoryHandler) handleSemanticSearch(ctx context.Context, state *assistant.TurnState) error {
	filter := h.intentFilters(state)

	if wantsHybrid(filter) {
		cars, docs, err := h.engine.HybridSearch(ctx, state.EffectiveQuery(), filter, h.cfg.InventoryTopK, h.cfg.InventoryThreshold)
		if err != nil {
			return err
		}
		state.CarEvidence = cars
		state.DocumentEvidence = docs
		state.Metadata.Source = retrieval.SourceHybridSearch
		if len(cars) == 0 && len(docs) == 0 {
			return h.substitutePopular(ctx, state)
		}
		return nil
	}

	results, err := h.engine.SearchCars(ctx, state.EffectiveQuery(), filter, h.cfg.InventoryTopK, h.cfg.InventoryThreshold)
	if err != nil {
		return err
	}
	state.CarEvidence = results
	state.Metadata.Source = retrieval.SourceSemanticSearch
	if len(results) == 0 {
		return h.substitutePopular(ctx, state)
	}
	return nil
}

// substitutePopular fills an empty search with the most-searched listings so
// the user always sees something to react to.
func (h *InventoryHandler) substitutePopular(ctx context.Context, state *assistant.TurnState) error {
	popular, err := h.engine.PopularCars(ctx, h.cfg.PopularLimit, retrieval.SourcePopularCars)
	if err != nil {
		h.logger.Warn("inventory-handler", "popular substitute failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	if len(popular) == 0 {
		return nil
	}
	state.CarEvidence = popular
	state.Metadata.Source = retrieval.SourcePopularCars
	return nil
}

// wantsHybrid reports whether the classified filters ask for a mixed
// listing/document split.
func wantsHybrid(filter *assistant.SearchFilter) bool {
	return filter != nil && (filter.CarPercent != nil || filter.DocPercent != nil)
}

// handleCarDetails prefers cars the conversation already pinned down; only
// when none are pinned does it fall back to searching the query text.
func (h *InventoryHandler) handleCarDetails(ctx context.Context, state *assistant.TurnState) error {
	if carIds := pinnedCarIds(state); len(carIds) > 0 {
		results, err := h.engine.DirectLookup(ctx, carIds)
		if err != nil {
			return err
		}
		if len(results) > 0 {
			state.CarEvidence = results
			state.Metadata.Source = retrieval.SourceDirectLookup
			return nil
		}
	}
	return h.handleSemanticSearch(ctx, state)
}

func (h *InventoryHandler) handleAvailability(ctx context.Context, state *assistant.TurnState) error {
	if state.Intent == nil || state.Intent.StartDate == nil || state.Intent.EndDate == nil {
		state.Metadata.NeedsClarification = true
		state.Metadata.ClarificationQuestions = append(state.Metadata.ClarificationQuestions,
			"Which dates would you like to rent for? Please share a start and end date.")
		return h.handleSemanticSearch(ctx, state)
	}

	results, err := h.engine.SearchCars(ctx, state.EffectiveQuery(), h.intentFilters(state), h.cfg.InventoryTopK, h.cfg.InventoryThreshold)
	if err != nil {
		return err
	}

	windowStart := state.Intent.StartDate.Add(-availabilityBuffer)
	windowEnd := state.Intent.EndDate.Add(availabilityBuffer)
	busyIds, err := h.bookingRepo.CarIdsBookedBetween(ctx, windowStart, windowEnd)
	if err != nil {
		return err
	}
	busy := make(map[uuid.UUID]struct{}, len(busyIds))
	for _, id := range busyIds {
		busy[id] = struct{}{}
	}

	available := make([]assistant.CarEvidence, 0, len(results))
	unavailable := make([]assistant.CarEvidence, 0, len(results))
	for _, r := range results {
		if _, taken := busy[r.CarId]; !taken {
			r.Metadata["available"] = true
			available = append(available, r)
			continue
		}
		r.Metadata["available"] = false
		next, err := h.bookingRepo.NextAvailableTime(ctx, r.CarId)
		if err != nil {
			h.logger.Warn("inventory-handler", "next available lookup failed", map[string]interface{}{
				"error":  err.Error(),
				"car_id": r.CarId.String(),
			})
		} else if next != nil {
			r.NextAvailableAt = next
			r.Metadata["next_available"] = next.Format(time.RFC3339)
		}
		unavailable = append(unavailable, r)
	}

	// Busy fleets still get an answer: when nothing is free for the window,
	// report the matches anyway with their next-free times.
	if len(available) > 0 {
		state.CarEvidence = available
		state.Metadata.FlowAnalysis["available_count"] = len(available)
	} else {
		state.CarEvidence = unavailable
		state.Metadata.FlowAnalysis["unavailable_count"] = len(unavailable)
	}

	state.Metadata.Source = "availability_check"
	state.Metadata.FlowAnalysis["availability_window_start"] = windowStart.Format(time.RFC3339)
	state.Metadata.FlowAnalysis["availability_window_end"] = windowEnd.Format(time.RFC3339)
	state.Metadata.FlowAnalysis["ask_preferences"] = true
	state.Metadata.FlowAnalysis["preference_questions"] = []string{
		"What's your budget per day?",
		"What's your preferred car type?",
	}
	return nil
}

// handleRecommendation runs the taste-profile search under a hard deadline
// and merges whatever arrived with the popularity ranking and a plain search
// of the original query. A slow or failing profile lookup degrades, never
// blocks.
func (h *InventoryHandler) handleRecommendation(ctx context.Context, state *assistant.TurnState) error {
	recCtx, cancel := context.WithTimeout(ctx, h.cfg.RecommendationTimeout)
	defer cancel()

	var history []assistant.CarEvidence
	if state.User.UserId != uuid.Nil {
		var err error
		history, err = h.engine.RecommendFromHistory(recCtx, state.User.UserId, h.cfg.InventoryTopK)
		if err != nil {
			h.logger.Warn("inventory-handler", "history recommendation failed, degrading", map[string]interface{}{
				"error":   err.Error(),
				"user_id": state.User.UserId.String(),
			})
			history = nil
		}
	}

	var popular []assistant.CarEvidence
	if len(history) == 0 {
		var err error
		popular, err = h.engine.PopularCars(ctx, h.cfg.PopularLimit, retrieval.SourcePopularFallback)
		if err != nil {
			h.logger.Warn("inventory-handler", "popular fallback failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	semantic, err := h.engine.SearchCars(ctx, state.EffectiveQuery(), h.intentFilters(state), h.cfg.InventoryTopK, h.cfg.InventoryThreshold)
	if err != nil {
		h.logger.Warn("inventory-handler", "semantic leg of recommendation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	merged := retrieval.MergeAndDeduplicate(history, popular, semantic)
	if len(merged) > h.cfg.InventoryTopK {
		merged = merged[:h.cfg.InventoryTopK]
	}

	state.CarEvidence = merged
	switch {
	case len(history) > 0:
		state.Metadata.Source = retrieval.SourceBookingHistory
	case len(popular) > 0:
		state.Metadata.Source = retrieval.SourcePopularFallback
	default:
		state.Metadata.Source = retrieval.SourceSemanticSearch
	}
	return nil
}

func (h *InventoryHandler) intentFilters(state *assistant.TurnState) *assistant.SearchFilter {
	if state.Intent == nil {
		return nil
	}
	return state.Intent.Filters
}

// pinnedCarIds collects car ids the conversation already carries, from the
// caller's booking context, the continuation context, or an active flow.
func pinnedCarIds(state *assistant.TurnState) []uuid.UUID {
	var sources []map[string]interface{}
	if state.Intent != nil && state.Intent.ContinuationContext != nil {
		sources = append(sources, state.Intent.ContinuationContext)
	}
	if state.Flow != nil && state.Flow.Context != nil {
		sources = append(sources, state.Flow.Context)
	}

	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	if state.BookingDetails != nil && state.BookingDetails.CarId != nil {
		seen[*state.BookingDetails.CarId] = struct{}{}
		ids = append(ids, *state.BookingDetails.CarId)
	}
	for _, src := range sources {
		for _, key := range []string{"car_id", "car_ids"} {
			switch v := src[key].(type) {
			case string:
				if id, err := uuid.Parse(v); err == nil {
					if _, ok := seen[id]; !ok {
						seen[id] = struct{}{}
						ids = append(ids, id)
					}
				}
			case []interface{}:
				for _, item := range v {
					s, ok := item.(string)
					if !ok {
						continue
					}
					if id, err := uuid.Parse(s); err == nil {
						if _, ok := seen[id]; !ok {
							seen[id] = struct{}{}
							ids = append(ids, id)
						}
					}
				}
			}
		}
	}
	return ids
}
