package intent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

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
	if s.err == nil {
		if err := onToken(s.response); err != nil {
			return "", err
		}
	}
	return s.response, s.err
}

func (s *stubLLM) ChatWithTools(ctx context.Context, history []llm.Message, tools []llm.Tool, options ...llm.Option) (*llm.ChatResult, error) {
	return &llm.ChatResult{Content: s.response}, s.err
}

func newTestState(query string) *assistant.TurnState {
	return assistant.NewTurnState(uuid.New(), "session-1", query)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare object",
			response: `{"intent_type": "inventory"}`,
			want:     `{"intent_type": "inventory"}`,
		},
		{
			name:     "fenced block",
			response: "Here you go:\n```json\n{\"intent_type\": \"general\"}\n```\nDone.",
			want:     `{"intent_type": "general"}`,
		},
		{
			name:     "narration around braces",
			response: `Sure! {"intent_type": "booking"} hope that helps`,
			want:     `{"intent_type": "booking"}`,
		},
		{
			name:     "no json at all",
			response: "I cannot classify this.",
			want:     "",
		},
		{
			name:     "truncated object keeps tail",
			response: `{"intent_type": "inventory", "filters": {"seats_min": 7`,
			want:     `{"intent_type": "inventory", "filters": {"seats_min": 7`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.response); got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "trailing comma in object",
			input: `{"intent_type": "inventory", "confidence": 0.9,}`,
		},
		{
			name:  "trailing comma in array",
			input: `{"features": ["sunroof", "gps",]}`,
		},
		{
			name:  "unbalanced braces",
			input: `{"intent_type": "inventory", "filters": {"seats_min": 7`,
		},
		{
			name:  "unterminated string",
			input: `{"intent_type": "inventory", "sub_intent": "semantic_sea`,
		},
		{
			name:  "both defects",
			input: `{"intent_type": "booking", "filters": {"brand": "Toyota",`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired := repairJSON(tt.input)
			var out map[string]interface{}
			if err := json.Unmarshal([]byte(repaired), &out); err != nil {
				t.Errorf("repaired output still invalid: %v (repaired: %q)", err, repaired)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{
			name:  "iso datetime",
			input: "2025-06-01T10:00:00",
			want:  timePtr(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:  "space separated datetime",
			input: "2025-06-01 10:00:00",
			want:  timePtr(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:  "date only",
			input: "2025-06-01",
			want:  timePtr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
		{
			name:  "literal null",
			input: "null",
			want:  nil,
		},
		{
			name:  "garbage",
			input: "next tuesday",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDate(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("parseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyParsesWellFormedReply(t *testing.T) {
	provider := &stubLLM{response: `{
		"intent_type": "inventory",
		"sub_intent": "semantic_search",
		"confidence": 0.92,
		"filters": {"category": "SUV", "seats_min": 7},
		"has_dates": false,
		"flow_continuation": false
	}`}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("I need a 7 seater SUV")

	intent := c.Classify(context.Background(), state)

	if intent.Type != assistant.IntentInventory {
		t.Errorf("Type = %s, want inventory", intent.Type)
	}
	if intent.SubIntent != assistant.SubSemanticSearch {
		t.Errorf("SubIntent = %s, want semantic_search", intent.SubIntent)
	}
	if intent.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", intent.Confidence)
	}
	if intent.Filters == nil || intent.Filters.SeatsMin == nil || *intent.Filters.SeatsMin != 7 {
		t.Errorf("Filters.SeatsMin not carried through: %+v", intent.Filters)
	}
}

func TestClassifyRepairsMalformedReply(t *testing.T) {
	provider := &stubLLM{response: "```json\n" + `{"intent_type": "documents", "sub_intent": "faq", "confidence": 0.8,` + "\n```"}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("what is the cancellation policy")

	intent := c.Classify(context.Background(), state)

	if intent.Type != assistant.IntentDocuments {
		t.Errorf("Type = %s, want documents", intent.Type)
	}
	if intent.SubIntent != assistant.SubFaq {
		t.Errorf("SubIntent = %s, want faq", intent.SubIntent)
	}
}

func TestClassifyParseFailureFallsBack(t *testing.T) {
	provider := &stubLLM{response: "I am just a language model and cannot help with that."}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("asdfgh")

	intent := c.Classify(context.Background(), state)

	if intent.Type != assistant.IntentGeneral || intent.SubIntent != assistant.SubUnclear {
		t.Errorf("fallback intent = %s/%s, want general/unclear", intent.Type, intent.SubIntent)
	}
	if intent.Confidence != 0.3 {
		t.Errorf("Confidence = %v, want 0.3", intent.Confidence)
	}
	if failed, _ := state.Metadata.FlowAnalysis["parsing_failed"].(bool); !failed {
		t.Error("parsing_failed not recorded in flow analysis")
	}
}

func TestClassifyProviderErrorFallsBack(t *testing.T) {
	provider := &stubLLM{err: errors.New("connection refused")}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("show me SUVs")

	intent := c.Classify(context.Background(), state)

	if intent.Confidence != 0.1 {
		t.Errorf("Confidence = %v, want 0.1", intent.Confidence)
	}
	if !state.Metadata.NeedsClarification {
		t.Error("NeedsClarification not set after provider error")
	}
	if len(state.Metadata.ClarificationQuestions) != 1 || state.Metadata.ClarificationQuestions[0] != ClarificationOnError {
		t.Errorf("ClarificationQuestions = %v", state.Metadata.ClarificationQuestions)
	}
}

func TestClassifyNormalizesUnknownLabels(t *testing.T) {
	provider := &stubLLM{response: `{"intent_type": "purchase", "sub_intent": "buy_now", "confidence": 0.9}`}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("I want to buy this car")

	intent := c.Classify(context.Background(), state)

	if intent.Type != assistant.IntentGeneral || intent.SubIntent != assistant.SubUnclear {
		t.Errorf("normalized intent = %s/%s, want general/unclear", intent.Type, intent.SubIntent)
	}
	if intent.Confidence > 0.3 {
		t.Errorf("Confidence = %v, want capped at 0.3", intent.Confidence)
	}
}

func TestFlowPolicyOpensBookingFlow(t *testing.T) {
	provider := &stubLLM{response: `{
		"intent_type": "booking",
		"sub_intent": "booking_history",
		"confidence": 0.85,
		"extracted_start_date": "2025-06-01T10:00:00",
		"extracted_end_date": "2025-06-03",
		"has_dates": true
	}`}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("book a car from June 1st 10am to June 3rd")

	c.Classify(context.Background(), state)

	if state.Flow == nil {
		t.Fatal("expected a booking flow to open")
	}
	if state.Flow.CurrentStep != assistant.FlowStepDatesProvided {
		t.Errorf("CurrentStep = %s, want dates_provided", state.Flow.CurrentStep)
	}
	if state.Flow.PendingAction != "collect_location" {
		t.Errorf("PendingAction = %s, want collect_location", state.Flow.PendingAction)
	}
	if _, ok := state.Flow.Context["start_date"]; !ok {
		t.Error("start_date missing from flow context")
	}
	if action, _ := state.Metadata.FlowAnalysis["flow_action"].(string); action != "opened" {
		t.Errorf("flow_action = %q, want opened", action)
	}
}

func TestFlowPolicyContinuesActiveFlow(t *testing.T) {
	provider := &stubLLM{response: `{
		"intent_type": "booking",
		"sub_intent": "booking_history",
		"confidence": 0.9,
		"flow_continuation": true,
		"continuation_context": {"pickup_location": "airport"}
	}`}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("pick it up at the airport")
	state.Flow = assistant.NewConversationFlow(assistant.FlowBooking)

	c.Classify(context.Background(), state)

	if state.Flow == nil {
		t.Fatal("flow was cleared on continuation")
	}
	if state.Flow.CurrentStep != assistant.FlowStepIntentClassified {
		t.Errorf("CurrentStep = %s, want intent_classified", state.Flow.CurrentStep)
	}
	if loc, _ := state.Flow.Context["pickup_location"].(string); loc != "airport" {
		t.Errorf("pickup_location = %q, want airport", loc)
	}
}

func TestFlowPolicyClearsAbandonedFlow(t *testing.T) {
	provider := &stubLLM{response: `{"intent_type": "documents", "sub_intent": "faq", "confidence": 0.88}`}
	c := NewClassifier(provider, logger.NewNoopLogger(), "llama3")
	state := newTestState("actually, what is your refund policy")
	state.Flow = assistant.NewConversationFlow(assistant.FlowBooking)

	c.Classify(context.Background(), state)

	if state.Flow != nil {
		t.Error("expected abandoned flow to be cleared")
	}
	if action, _ := state.Metadata.FlowAnalysis["flow_action"].(string); action != "cleared" {
		t.Errorf("flow_action = %q, want cleared", action)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
