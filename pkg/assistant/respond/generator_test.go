package respond

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/llm"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *stubLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if err := onToken(s.response); err != nil {
		return "", err
	}
	return s.response, nil
}

func (s *stubLLM) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	return &llm.ChatResult{Content: s.response}, s.err
}

func newState(query string, intentType assistant.IntentType) *assistant.TurnState {
	state := assistant.NewTurnState(uuid.New(), "session-1", query)
	state.Intent = &assistant.Intent{Type: intentType, Confidence: 0.9}
	return state
}

func collectTokens(tokens *[]string) llm.TokenHandler {
	return func(token string) error {
		*tokens = append(*tokens, token)
		return nil
	}
}

func TestExtractSuggestedActions(t *testing.T) {
	text := "Here are two great options for your trip.\n\n```json\n{\"suggested_actions\": [{\"action\": \"check_availability\", \"label\": \"Check availability\"}]}\n```"

	cleaned, actions := extractSuggestedActions(text)

	if strings.Contains(cleaned, "suggested_actions") {
		t.Errorf("actions block not stripped: %q", cleaned)
	}
	if cleaned != "Here are two great options for your trip." {
		t.Errorf("cleaned = %q", cleaned)
	}
	if len(actions) != 1 || actions[0].Action != "check_availability" {
		t.Errorf("actions = %+v", actions)
	}
}

func TestExtractSuggestedActionsMissingBlock(t *testing.T) {
	cleaned, actions := extractSuggestedActions("Just a plain answer.")

	if cleaned != "Just a plain answer." {
		t.Errorf("cleaned = %q", cleaned)
	}
	if actions != nil {
		t.Errorf("actions = %+v, want nil", actions)
	}
}

func TestExtractSuggestedActionsMalformedBlock(t *testing.T) {
	text := "Answer.\n```json\n{\"suggested_actions\": [{]}\n```"

	cleaned, actions := extractSuggestedActions(text)

	if actions != nil {
		t.Errorf("actions = %+v, want nil for malformed block", actions)
	}
	if !strings.HasPrefix(cleaned, "Answer.") {
		t.Errorf("cleaned = %q", cleaned)
	}
}

func TestGenerateStreamsAndFinalizes(t *testing.T) {
	provider := &stubLLM{response: "The Innova fits seven people comfortably.\n```json\n{\"suggested_actions\": [{\"action\": \"view_car_details\", \"label\": \"View details\"}]}\n```"}
	g := NewGenerator(provider, "llama3", logger.NewNoopLogger())
	state := newState("which car seats 7?", assistant.IntentInventory)

	var tokens []string
	if err := g.Generate(context.Background(), state, collectTokens(&tokens)); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(tokens) == 0 {
		t.Error("no tokens streamed")
	}
	if strings.Contains(state.Reply, "suggested_actions") {
		t.Errorf("actions block leaked into reply: %q", state.Reply)
	}
	if len(state.SuggestedActions) != 1 || state.SuggestedActions[0].Action != "view_car_details" {
		t.Errorf("SuggestedActions = %+v", state.SuggestedActions)
	}

	last := state.Messages[len(state.Messages)-1]
	if last.Role != "assistant" || last.Content != state.Reply {
		t.Errorf("assistant message not appended: %+v", last)
	}
}

func TestGenerateUsesDefaultActionsWhenModelOmitsThem(t *testing.T) {
	provider := &stubLLM{response: "We have several SUVs available."}
	g := NewGenerator(provider, "llama3", logger.NewNoopLogger())
	state := newState("any suvs?", assistant.IntentInventory)

	if err := g.Generate(context.Background(), state, collectTokens(&[]string{})); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(state.SuggestedActions) == 0 {
		t.Fatal("expected default actions")
	}
	want := DefaultActions(assistant.IntentInventory)
	if state.SuggestedActions[0].Action != want[0].Action {
		t.Errorf("SuggestedActions = %+v, want defaults for inventory", state.SuggestedActions)
	}
}

func TestGenerateApologizesOnProviderError(t *testing.T) {
	provider := &stubLLM{err: errors.New("model offline")}
	g := NewGenerator(provider, "llama3", logger.NewNoopLogger())
	state := newState("hello", assistant.IntentGeneral)

	var tokens []string
	if err := g.Generate(context.Background(), state, collectTokens(&tokens)); err != nil {
		t.Fatalf("Generate must degrade, not fail: %v", err)
	}

	if state.Reply != ApologyMessage {
		t.Errorf("Reply = %q, want apology", state.Reply)
	}
	if len(tokens) != 1 || tokens[0] != ApologyMessage {
		t.Errorf("tokens = %v, want the apology streamed once", tokens)
	}
	if len(state.SuggestedActions) == 0 {
		t.Error("expected default actions after apology")
	}
}

func TestGenerateSkipsModelForCannedReply(t *testing.T) {
	provider := &stubLLM{err: errors.New("must not be called")}
	g := NewGenerator(provider, "llama3", logger.NewNoopLogger())
	state := newState("show my bookings", assistant.IntentBooking)
	state.Reply = "You don't have any bookings yet. Would you like me to help you find a car?"

	var tokens []string
	if err := g.Generate(context.Background(), state, collectTokens(&tokens)); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(tokens) != 1 || tokens[0] != state.Reply {
		t.Errorf("canned reply not streamed verbatim: %v", tokens)
	}
	if len(state.SuggestedActions) == 0 {
		t.Error("expected default actions for canned reply")
	}
}

func TestFormatBookingRowsDeterministic(t *testing.T) {
	rows := []map[string]interface{}{
		{"status": "CONFIRMED", "id": "b1", "amount": 1200},
	}

	want := "Record 1: amount=1200 id=b1 status=CONFIRMED\n"
	for i := 0; i < 20; i++ {
		if got := formatBookingRows(rows); got != want {
			t.Fatalf("formatBookingRows = %q, want %q", got, want)
		}
	}
}

func TestFormatCarEvidenceCapsAtFive(t *testing.T) {
	cars := make([]assistant.CarEvidence, 8)
	for i := range cars {
		cars[i] = assistant.CarEvidence{
			CarId:        uuid.New(),
			Brand:        "Brand",
			Model:        "Model",
			PricePerHour: 100,
		}
	}

	formatted := formatCarEvidence(cars)

	if got := strings.Count(formatted, "\n"); got != 5 {
		t.Errorf("formatted lines = %d, want 5", got)
	}
}
