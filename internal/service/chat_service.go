package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"car-rental-assistant-be/internal/dto"
	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/unitofwork"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/flowstore"
	"car-rental-assistant-be/pkg/assistant/orchestrator"
	"car-rental-assistant-be/pkg/events"
	"car-rental-assistant-be/pkg/llm"
	"car-rental-assistant-be/pkg/nats"

	"github.com/google/uuid"
)

const (
	// defaultHistoryKeepLast is how many trailing messages survive
	// compaction when the config does not say otherwise. Older messages
	// are folded into the conversation summary.
	defaultHistoryKeepLast = 11

	maxSessionTitleLength = 500

	sessionListLimit = 50
)

// summaryFallback stands in when the summarizer model is unavailable so the
// turn never fails over compaction.
const summaryFallback = "Previous conversation context available."

// IChatService defines the conversational assistant service interface.
type IChatService interface {
	ProcessTurn(ctx context.Context, userId uuid.UUID, request *dto.SendQueryRequest, sink assistant.EventSink) (*assistant.Response, error)
	GetSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error)
	GetSessionMessages(ctx context.Context, userId uuid.UUID, sessionId string, limit int) (*dto.SessionMessagesResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) error

	// CleanupStaleFlows drops abandoned multi-step flows from checkpointed
	// conversations. Meant to run on a timer from main.
	CleanupStaleFlows(ctx context.Context, idleAfter time.Duration) (int, error)
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator *orchestrator.Orchestrator
	flowStore    flowstore.Store
	llmProvider  llm.LLMProvider
	publisher    *nats.Publisher
	log          logger.ILogger
	chatModel    string
	keepLast     int
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orch *orchestrator.Orchestrator,
	flowStore flowstore.Store,
	llmProvider llm.LLMProvider,
	publisher *nats.Publisher,
	log logger.ILogger,
	chatModel string,
	historyKeepLast int,
) IChatService {
	if historyKeepLast <= 0 {
		historyKeepLast = defaultHistoryKeepLast
	}
	return &chatService{
		uowFactory:   uowFactory,
		orchestrator: orch,
		flowStore:    flowStore,
		llmProvider:  llmProvider,
		publisher:    publisher,
		log:          log,
		chatModel:    chatModel,
		keepLast:     historyKeepLast,
	}
}

func (s *chatService) ProcessTurn(ctx context.Context, userId uuid.UUID, request *dto.SendQueryRequest, sink assistant.EventSink) (*assistant.Response, error) {
	sessionId := strings.TrimSpace(request.SessionId)
	if sessionId == "" {
		sessionId = uuid.NewString()
	}

	if err := s.ensureSession(ctx, userId, sessionId, request.Query); err != nil {
		err = fmt.Errorf("ensure session: %w", err)
		// The orchestrator never ran, so nothing else will close the
		// event stream. Emit the terminal error here.
		sink(assistant.Event{Type: assistant.EventError, Error: err.Error()})
		return nil, err
	}

	state, found, err := s.flowStore.Get(ctx, sessionId)
	if err != nil {
		s.log.Warn("chat_service", "checkpoint load failed, starting fresh", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		found = false
	}
	if found && state != nil {
		state.User.UserId = userId
		state.ResetForTurn(request.Query)
	} else {
		state = assistant.NewTurnState(userId, sessionId, request.Query)
	}

	applyBookingContext(state, request.BookingContext)

	s.compactHistory(ctx, state)

	response, err := s.orchestrator.RunTurn(ctx, state, sink)
	if err != nil {
		return nil, err
	}

	if err := s.flowStore.Put(ctx, state); err != nil {
		s.log.Warn("chat_service", "checkpoint save failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Touch(ctx, sessionId); err != nil {
		s.log.Warn("chat_service", "session touch failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	s.publishTurnCompleted(ctx, userId, sessionId, state)

	return response, nil
}

// applyBookingContext copies client-supplied booking details onto the turn so
// handlers can pin the car under discussion without re-asking. Fields the
// client omits keep whatever an earlier turn established.
func applyBookingContext(state *assistant.TurnState, bc *dto.BookingContextRequest) {
	if bc == nil {
		return
	}
	if state.BookingDetails == nil {
		state.BookingDetails = &assistant.BookingDetails{}
	}
	if bc.CarId != nil {
		state.BookingDetails.CarId = bc.CarId
	}
	if bc.StartTime != nil {
		state.BookingDetails.StartTime = bc.StartTime
	}
	if bc.EndTime != nil {
		state.BookingDetails.EndTime = bc.EndTime
	}
	if bc.PickupLocation != "" {
		state.BookingDetails.PickupLocation = bc.PickupLocation
	}
}

func (s *chatService) ensureSession(ctx context.Context, userId uuid.UUID, sessionId, query string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.ChatSessionRepository()

	existing, err := repo.FindBySessionId(ctx, sessionId, userId)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	title := strings.TrimSpace(query)
	if len(title) > maxSessionTitleLength {
		title = title[:maxSessionTitleLength]
	}

	return repo.Create(ctx, &entity.ChatSession{
		Id:        uuid.New(),
		SessionId: sessionId,
		ThreadId:  sessionId,
		UserId:    userId,
		Title:     title,
		IsActive:  true,
	})
}

// compactHistory folds older messages into the running summary once the
// window exceeds keepLast, keeping the trailing window intact.
func (s *chatService) compactHistory(ctx context.Context, state *assistant.TurnState) {
	if len(state.Messages) <= s.keepLast {
		return
	}

	cut := len(state.Messages) - s.keepLast
	older := state.Messages[:cut]

	newSummary := s.summarize(ctx, older)
	if state.ConversationSummary != "" {
		state.ConversationSummary = fmt.Sprintf("%s\n\nRecent context: %s", state.ConversationSummary, newSummary)
	} else {
		state.ConversationSummary = newSummary
	}
	state.Messages = state.Messages[cut:]

	s.log.Debug("chat_service", "history compacted", map[string]interface{}{
		"thread_id":      state.ThreadId,
		"folded":         cut,
		"kept":           len(state.Messages),
		"summary_length": len(state.ConversationSummary),
	})
}

func (s *chatService) summarize(ctx context.Context, messages []assistant.Message) string {
	var transcript strings.Builder
	for _, msg := range messages {
		transcript.WriteString(msg.Role)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		transcript.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Summarize this vehicle rental conversation in 2-3 sentences. Preserve concrete details: vehicles discussed, dates, locations, bookings and unresolved questions.

%s

Summary:`, transcript.String())

	summary, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.3), llm.WithModel(s.chatModel))
	if err != nil {
		s.log.Warn("chat_service", "history summarization failed", map[string]interface{}{
			"error": err.Error(),
		})
		return summaryFallback
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return summaryFallback
	}
	return summary
}

func (s *chatService) publishTurnCompleted(ctx context.Context, userId uuid.UUID, sessionId string, state *assistant.TurnState) {
	if s.publisher == nil {
		return
	}
	intentType, subIntent := "", ""
	if state.Intent != nil {
		intentType = string(state.Intent.Type)
		subIntent = string(state.Intent.SubIntent)
	}
	event := events.NewTurnCompleted(userId.String(), sessionId, intentType, subIntent, state.Metadata.ResultsCount)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("chat_service", "turn event publish failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func (s *chatService) GetSessions(ctx context.Context, userId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindByUser(ctx, userId, sessionListLimit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	responses := make([]*dto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, &dto.SessionResponse{
			Id:        session.Id,
			SessionId: session.SessionId,
			Title:     session.Title,
			IsActive:  session.IsActive,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}
	return responses, nil
}

// GetSessionMessages returns a session's transcript from its checkpoint.
// A positive limit keeps only the most recent messages; Total still reflects
// the full transcript length.
func (s *chatService) GetSessionMessages(ctx context.Context, userId uuid.UUID, sessionId string, limit int) (*dto.SessionMessagesResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindBySessionId(ctx, sessionId, userId)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found")
	}

	response := &dto.SessionMessagesResponse{
		SessionId: sessionId,
		Messages:  []dto.SessionMessageResponse{},
	}

	state, found, err := s.flowStore.Get(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if !found || state == nil {
		return response, nil
	}

	response.Summary = state.ConversationSummary
	response.Total = len(state.Messages)

	messages := state.Messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, dto.SessionMessageResponse{
			Id:      msg.Id,
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	response.Returned = len(response.Messages)
	return response, nil
}

func (s *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId, userId); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := s.flowStore.Delete(ctx, sessionId); err != nil {
		s.log.Warn("chat_service", "checkpoint delete failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewChatSessionClosed(userId.String(), sessionId)); err != nil {
			s.log.Warn("chat_service", "session event publish failed", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}

	return nil
}

func (s *chatService) CleanupStaleFlows(ctx context.Context, idleAfter time.Duration) (int, error) {
	cleared, err := s.flowStore.CleanupStaleFlows(ctx, idleAfter)
	if err != nil {
		return cleared, fmt.Errorf("cleanup stale flows: %w", err)
	}
	if cleared > 0 {
		s.log.Info("chat_service", "stale flows cleared", map[string]interface{}{
			"cleared": cleared,
		})
	}
	return cleared, nil
}
