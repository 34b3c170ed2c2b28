package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"car-rental-assistant-be/internal/dto"
	"car-rental-assistant-be/internal/entity"
	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/internal/repository/contract"
	"car-rental-assistant-be/internal/repository/unitofwork"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/llm"

	"github.com/google/uuid"
)

type stubLLM struct {
	generateReply string
	generateErr   error
	prompts       []string
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.generateReply, s.generateErr
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.generateReply, s.generateErr
}

func (s *stubLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) (string, error) {
	return s.generateReply, s.generateErr
}

func (s *stubLLM) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	return &llm.ChatResult{Content: s.generateReply}, s.generateErr
}

type failingSessionRepo struct {
	err error
}

func (r *failingSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	return r.err
}
func (r *failingSessionRepo) FindBySessionId(ctx context.Context, sessionId string, userId uuid.UUID) (*entity.ChatSession, error) {
	return nil, r.err
}
func (r *failingSessionRepo) FindByUser(ctx context.Context, userId uuid.UUID, limit int) ([]*entity.ChatSession, error) {
	return nil, r.err
}
func (r *failingSessionRepo) Touch(ctx context.Context, sessionId string) error { return r.err }
func (r *failingSessionRepo) Delete(ctx context.Context, sessionId string, userId uuid.UUID) error {
	return r.err
}

type stubUnitOfWork struct {
	sessions contract.ChatSessionRepository
}

func (u *stubUnitOfWork) Begin(ctx context.Context) error { return nil }
func (u *stubUnitOfWork) Commit() error                   { return nil }
func (u *stubUnitOfWork) Rollback() error                 { return nil }
func (u *stubUnitOfWork) CarRepository() contract.CarRepository {
	return nil
}
func (u *stubUnitOfWork) CarEmbeddingRepository() contract.CarEmbeddingRepository {
	return nil
}
func (u *stubUnitOfWork) DocumentEmbeddingRepository() contract.DocumentEmbeddingRepository {
	return nil
}
func (u *stubUnitOfWork) BookingRepository() contract.BookingRepository { return nil }
func (u *stubUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return u.sessions
}
func (u *stubUnitOfWork) MasterDocumentRepository() contract.MasterDocumentRepository {
	return nil
}
func (u *stubUnitOfWork) RawQueryRepository() contract.RawQueryRepository { return nil }

type stubUowFactory struct {
	uow unitofwork.UnitOfWork
}

func (f *stubUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

func newTestChatService(provider llm.LLMProvider) *chatService {
	return &chatService{
		llmProvider: provider,
		log:         logger.NewNoopLogger(),
		chatModel:   "llama3",
		keepLast:    defaultHistoryKeepLast,
	}
}

func stateWithMessages(n int) *assistant.TurnState {
	state := assistant.NewTurnState(uuid.New(), "session-1", "first question")
	for i := 1; i < n; i++ {
		role := "assistant"
		if i%2 == 0 {
			role = "user"
		}
		state.AppendMessage(assistant.NewMessage(role, fmt.Sprintf("message %d", i)))
	}
	return state
}

func TestProcessTurnSessionFailureEmitsTerminalError(t *testing.T) {
	svc := newTestChatService(&stubLLM{})
	svc.uowFactory = &stubUowFactory{uow: &stubUnitOfWork{
		sessions: &failingSessionRepo{err: errors.New("database gone")},
	}}

	var events []assistant.Event
	sink := func(e assistant.Event) { events = append(events, e) }

	_, err := svc.ProcessTurn(context.Background(), uuid.New(), &dto.SendQueryRequest{Query: "hi"}, sink)
	if err == nil {
		t.Fatal("expected an error from the failing session lookup")
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly one terminal error", len(events))
	}
	if events[0].Type != assistant.EventError {
		t.Errorf("event type = %q, want %q", events[0].Type, assistant.EventError)
	}
	if !strings.Contains(events[0].Error, "database gone") {
		t.Errorf("event error = %q, missing cause", events[0].Error)
	}
}

func TestApplyBookingContext(t *testing.T) {
	carId := uuid.New()
	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	state := assistant.NewTurnState(uuid.New(), "session-1", "confirm my booking")

	applyBookingContext(state, &dto.BookingContextRequest{
		CarId:          &carId,
		StartTime:      &start,
		EndTime:        &end,
		PickupLocation: "Indiranagar",
	})

	if state.BookingDetails == nil {
		t.Fatal("BookingDetails not set")
	}
	if state.BookingDetails.CarId == nil || *state.BookingDetails.CarId != carId {
		t.Errorf("CarId = %v, want %v", state.BookingDetails.CarId, carId)
	}
	if state.BookingDetails.PickupLocation != "Indiranagar" {
		t.Errorf("PickupLocation = %q", state.BookingDetails.PickupLocation)
	}

	// A later turn that only names a location keeps the established car.
	applyBookingContext(state, &dto.BookingContextRequest{PickupLocation: "Airport"})
	if state.BookingDetails.CarId == nil || *state.BookingDetails.CarId != carId {
		t.Error("partial update dropped the pinned car")
	}
	if state.BookingDetails.PickupLocation != "Airport" {
		t.Errorf("PickupLocation = %q, want Airport", state.BookingDetails.PickupLocation)
	}

	applyBookingContext(state, nil)
	if state.BookingDetails == nil {
		t.Error("nil context must not clear existing details")
	}
}

func TestCompactHistoryLeavesShortHistoryAlone(t *testing.T) {
	provider := &stubLLM{generateReply: "should not be called"}
	svc := newTestChatService(provider)
	state := stateWithMessages(11)

	svc.compactHistory(context.Background(), state)

	if len(state.Messages) != 11 {
		t.Fatalf("messages = %d, want 11", len(state.Messages))
	}
	if state.ConversationSummary != "" {
		t.Errorf("summary = %q, want empty", state.ConversationSummary)
	}
	if len(provider.prompts) != 0 {
		t.Errorf("summarizer called %d times, want 0", len(provider.prompts))
	}
}

func TestCompactHistoryFoldsOlderMessages(t *testing.T) {
	provider := &stubLLM{generateReply: "User compared SUVs for a June trip."}
	svc := newTestChatService(provider)
	state := stateWithMessages(14)
	lastContent := state.Messages[13].Content

	svc.compactHistory(context.Background(), state)

	if len(state.Messages) != 11 {
		t.Fatalf("messages = %d, want 11", len(state.Messages))
	}
	if got := state.Messages[10].Content; got != lastContent {
		t.Errorf("trailing message = %q, want %q", got, lastContent)
	}
	if state.ConversationSummary != "User compared SUVs for a June trip." {
		t.Errorf("summary = %q", state.ConversationSummary)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("summarizer called %d times, want 1", len(provider.prompts))
	}
	// The folded prefix, not the kept window, feeds the summarizer.
	if !strings.Contains(provider.prompts[0], "first question") {
		t.Errorf("summarizer prompt missing folded message: %q", provider.prompts[0])
	}
	if strings.Contains(provider.prompts[0], lastContent) {
		t.Errorf("summarizer prompt contains kept message %q", lastContent)
	}
}

func TestCompactHistoryMergesExistingSummary(t *testing.T) {
	provider := &stubLLM{generateReply: "Then the user asked about child seats."}
	svc := newTestChatService(provider)
	state := stateWithMessages(12)
	state.ConversationSummary = "User wanted a hatchback."

	svc.compactHistory(context.Background(), state)

	want := "User wanted a hatchback.\n\nRecent context: Then the user asked about child seats."
	if state.ConversationSummary != want {
		t.Errorf("summary = %q, want %q", state.ConversationSummary, want)
	}
}

func TestCompactHistorySummarizerFailure(t *testing.T) {
	provider := &stubLLM{generateErr: errors.New("model offline")}
	svc := newTestChatService(provider)
	state := stateWithMessages(12)

	svc.compactHistory(context.Background(), state)

	if len(state.Messages) != 11 {
		t.Fatalf("messages = %d, want 11", len(state.Messages))
	}
	if state.ConversationSummary != summaryFallback {
		t.Errorf("summary = %q, want fallback", state.ConversationSummary)
	}
}
