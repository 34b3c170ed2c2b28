package assistant

import (
	"fmt"
	"strings"
	"time"
)

type FlowType string

const (
	FlowBooking FlowType = "booking"
)

// Flow step labels.
const (
	FlowStepStart            = "start"
	FlowStepDatesProvided    = "dates_provided"
	FlowStepIntentClassified = "intent_classified"
)

type FlowTransition struct {
	Step       string                 `json:"step"`
	IntentType string                 `json:"intent_type"`
	Context    map[string]interface{} `json:"context,omitempty"`
	At         time.Time              `json:"at"`
}

// ConversationFlow tracks a multi-turn commitment (today: booking). Scoped
// to one conversation, never shared across threads.
type ConversationFlow struct {
	FlowType      FlowType               `json:"flow_type"`
	CurrentStep   string                 `json:"current_step"`
	Context       map[string]interface{} `json:"context"`
	PendingAction string                 `json:"pending_action,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	LastUpdated   time.Time              `json:"last_updated"`
	History       []FlowTransition       `json:"history,omitempty"`
}

func NewConversationFlow(flowType FlowType) *ConversationFlow {
	now := time.Now().UTC()
	return &ConversationFlow{
		FlowType:    flowType,
		CurrentStep: FlowStepStart,
		Context:     map[string]interface{}{},
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Advance moves the flow to step, merges extra context, and records the
// transition in the append-only history.
func (f *ConversationFlow) Advance(step string, intentType IntentType, extra map[string]interface{}) {
	f.CurrentStep = step
	if f.Context == nil {
		f.Context = map[string]interface{}{}
	}
	for k, v := range extra {
		f.Context[k] = v
	}
	f.LastUpdated = time.Now().UTC()
	f.History = append(f.History, FlowTransition{
		Step:       step,
		IntentType: string(intentType),
		Context:    extra,
		At:         f.LastUpdated,
	})
}

// Render produces the summary the classifier prompt embeds so the model can
// judge continuation.
func (f *ConversationFlow) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active flow: %s (step: %s)", f.FlowType, f.CurrentStep)
	if f.PendingAction != "" {
		fmt.Fprintf(&b, ", pending: %s", f.PendingAction)
	}
	if len(f.Context) > 0 {
		b.WriteString("\nContext:")
		for k, v := range f.Context {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
	}
	return b.String()
}
