package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/llm"
)

// ClarificationOnError is surfaced to the user when classification cannot
// recover at all.
const ClarificationOnError = "Sorry, I encountered an error. Could you rephrase your query?"

const historyWindow = 5

// rawIntent mirrors the JSON contract the classifier prompt asks the model
// to emit. Dates arrive as strings in one of several layouts.
type rawIntent struct {
	IntentType          string                  `json:"intent_type"`
	SubIntent           string                  `json:"sub_intent"`
	Confidence          float64                 `json:"confidence"`
	Filters             *assistant.SearchFilter `json:"filters"`
	ExtractedStartDate  string                  `json:"extracted_start_date"`
	ExtractedEndDate    string                  `json:"extracted_end_date"`
	HasDates            bool                    `json:"has_dates"`
	FlowContinuation    bool                    `json:"flow_continuation"`
	ContinuationContext map[string]interface{}  `json:"continuation_context"`
}

// Classifier turns a raw user query into a typed intent using a single
// deterministic LLM call. It never fails the turn: every error path degrades
// to a low-confidence general intent.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
	model       string
}

func NewClassifier(llmProvider llm.LLMProvider, log logger.ILogger, model string) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      log,
		model:       model,
	}
}

// Classify resolves the intent for the state's current query. It mutates the
// state's conversation flow according to the flow policy and records the
// decision under metadata.flow_analysis.
func (c *Classifier) Classify(ctx context.Context, state *assistant.TurnState) *assistant.Intent {
	prompt := c.buildPrompt(state)

	response, err := c.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithModel(c.model),
	)
	if err != nil {
		c.logger.Error("intent-classifier", "classification call failed", map[string]interface{}{
			"error": err.Error(),
		})
		intent := c.errorFallback(state)
		c.applyFlowPolicy(state, intent)
		return intent
	}

	intent, err := c.parseIntent(response)
	if err != nil {
		c.logger.Warn("intent-classifier", "unparseable classification, degrading to general", map[string]interface{}{
			"error":    err.Error(),
			"response": preview(response, 200),
		})
		intent = c.parseFallback(state)
		c.applyFlowPolicy(state, intent)
		return intent
	}

	intent.Normalize()
	c.applyFlowPolicy(state, intent)

	c.logger.Info("intent-classifier", "intent resolved", map[string]interface{}{
		"intent_type": string(intent.Type),
		"sub_intent":  string(intent.SubIntent),
		"confidence":  intent.Confidence,
		"has_dates":   intent.HasDates,
	})
	return intent
}

func (c *Classifier) parseIntent(response string) (*assistant.Intent, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		repaired := repairJSON(jsonContent)
		if err2 := json.Unmarshal([]byte(repaired), &raw); err2 != nil {
			return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
		}
	}

	intent := &assistant.Intent{
		Type:                assistant.IntentType(strings.ToLower(strings.TrimSpace(raw.IntentType))),
		SubIntent:           assistant.SubIntent(strings.ToLower(strings.TrimSpace(raw.SubIntent))),
		Confidence:          raw.Confidence,
		Filters:             raw.Filters,
		StartDate:           parseDate(raw.ExtractedStartDate),
		EndDate:             parseDate(raw.ExtractedEndDate),
		FlowContinuation:    raw.FlowContinuation,
		ContinuationContext: raw.ContinuationContext,
	}
	intent.HasDates = raw.HasDates || intent.StartDate != nil || intent.EndDate != nil
	return intent, nil
}

// parseFallback covers a model reply that produced no usable JSON. Routing
// still proceeds, at clarification-forcing confidence.
func (c *Classifier) parseFallback(state *assistant.TurnState) *assistant.Intent {
	state.Metadata.FlowAnalysis["parsing_failed"] = true
	return &assistant.Intent{
		Type:       assistant.IntentGeneral,
		SubIntent:  assistant.SubUnclear,
		Confidence: 0.3,
	}
}

// errorFallback covers a failed LLM call. The turn continues with a
// clarification request instead of an error page.
func (c *Classifier) errorFallback(state *assistant.TurnState) *assistant.Intent {
	state.Metadata.FlowAnalysis["classification_error"] = true
	state.Metadata.NeedsClarification = true
	state.Metadata.ClarificationQuestions = append(state.Metadata.ClarificationQuestions, ClarificationOnError)
	return &assistant.Intent{
		Type:       assistant.IntentGeneral,
		SubIntent:  assistant.SubUnclear,
		Confidence: 0.1,
	}
}

// applyFlowPolicy reconciles the classified intent with any active
// conversation flow. A booking query carrying dates opens a flow, an
// explicit continuation advances it, and anything else abandons it.
func (c *Classifier) applyFlowPolicy(state *assistant.TurnState, intent *assistant.Intent) {
	switch {
	case state.Flow == nil && intent.Type == assistant.IntentBooking && intent.HasDates:
		flow := assistant.NewConversationFlow(assistant.FlowBooking)
		flowContext := map[string]interface{}{}
		if intent.StartDate != nil {
			flowContext["start_date"] = intent.StartDate.Format(time.RFC3339)
		}
		if intent.EndDate != nil {
			flowContext["end_date"] = intent.EndDate.Format(time.RFC3339)
		}
		flow.Advance(assistant.FlowStepDatesProvided, intent.Type, flowContext)
		flow.PendingAction = "collect_location"
		state.Flow = flow
		state.Metadata.FlowAnalysis["flow_action"] = "opened"

	case state.Flow != nil && intent.FlowContinuation:
		state.Flow.Advance(assistant.FlowStepIntentClassified, intent.Type, intent.ContinuationContext)
		state.Metadata.FlowAnalysis["flow_action"] = "continued"

	case state.Flow != nil:
		state.Flow = nil
		state.Metadata.FlowAnalysis["flow_action"] = "cleared"
	}
}

func (c *Classifier) buildPrompt(state *assistant.TurnState) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are an intent analyzer for a vehicle rental assistant. Your ONLY job is to classify what the user wants.\n")
	prompt.WriteString("You do NOT answer questions. You only classify intent and extract structured filters.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<session_state>\n")
	if state.ConversationSummary != "" {
		prompt.WriteString("CONVERSATION_SUMMARY: ")
		prompt.WriteString(state.ConversationSummary)
		prompt.WriteString("\n")
	}
	if recent := recentMessages(state.Messages, historyWindow); len(recent) > 0 {
		prompt.WriteString("RECENT_MESSAGES:\n")
		for _, msg := range recent {
			fmt.Fprintf(&prompt, "  %s: %s\n", msg.Role, preview(msg.Content, 300))
		}
	}
	if state.Flow != nil {
		prompt.WriteString(state.Flow.Render())
		prompt.WriteString("\n")
	} else {
		prompt.WriteString("No active flow.\n")
	}
	prompt.WriteString("</session_state>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(state.CurrentQuery)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("Choose ONE intent_type and ONE matching sub_intent:\n\n")

	prompt.WriteString("inventory: User asks about vehicles, their features, prices, or availability\n")
	prompt.WriteString("  sub_intents: semantic_search (find cars by description), car_details (a specific car), availability (is a car free for dates), recommendation (suggest cars for me)\n")
	prompt.WriteString("  - Extract every constraint the user states into filters\n\n")

	prompt.WriteString("documents: User asks about policies, terms, FAQs, privacy, or platform help\n")
	prompt.WriteString("  sub_intents: terms, faq, privacy, help\n\n")

	prompt.WriteString("booking: User asks about THEIR OWN bookings, payments, or booking freezes\n")
	prompt.WriteString("  sub_intents: booking_history, payment_history, freeze_history\n")
	prompt.WriteString("  - Also choose booking when the user wants to reserve a car\n\n")

	prompt.WriteString("about: User asks about the company, its services, or contact channels\n")
	prompt.WriteString("  sub_intents: company, services, contact, general_info\n\n")

	prompt.WriteString("general: Greetings, small talk, unclear requests, or generic help\n")
	prompt.WriteString("  sub_intents: greeting, chitchat, unclear, help_request\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<date_extraction>\n")
	prompt.WriteString("When the user mentions rental dates, fill extracted_start_date and extracted_end_date\n")
	prompt.WriteString("using YYYY-MM-DDTHH:MM:SS (or YYYY-MM-DD when no time is given) and set has_dates to true.\n")
	fmt.Fprintf(&prompt, "Today is %s.\n", time.Now().UTC().Format("2006-01-02"))
	prompt.WriteString("</date_extraction>\n\n")

	prompt.WriteString("<flow_rules>\n")
	prompt.WriteString("If an active flow is shown above and this query continues it, set flow_continuation to true\n")
	prompt.WriteString("and put any newly provided details (location, dates, car choice) in continuation_context.\n")
	prompt.WriteString("If the user changes subject, set flow_continuation to false.\n")
	prompt.WriteString("</flow_rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"intent_type\": \"inventory|documents|booking|about|general\",\n")
	prompt.WriteString("  \"sub_intent\": \"one of the sub_intents listed for the chosen type\",\n")
	prompt.WriteString("  \"confidence\": 0.95,\n")
	prompt.WriteString("  \"filters\": {\"category\": \"SUV\", \"seats_min\": 7, \"price_per_day_max\": 3000, \"fuel_type\": \"diesel\", \"transmission\": \"automatic\", \"features\": [\"sunroof\"]},\n")
	prompt.WriteString("  \"extracted_start_date\": \"2025-06-01T10:00:00\",\n")
	prompt.WriteString("  \"extracted_end_date\": \"2025-06-03\",\n")
	prompt.WriteString("  \"has_dates\": true,\n")
	prompt.WriteString("  \"flow_continuation\": false,\n")
	prompt.WriteString("  \"continuation_context\": {}\n")
	prompt.WriteString("}\n")
	prompt.WriteString("Omit filters and dates that the user did not state.\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate accepts the layouts the prompt allows, treating naive timestamps
// as UTC. Unparseable input yields nil rather than an error.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

func recentMessages(messages []assistant.Message, n int) []assistant.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
