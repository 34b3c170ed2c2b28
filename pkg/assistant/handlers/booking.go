package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/sqltool"
	"car-rental-assistant-be/pkg/llm"
)

// Canned replies for the booking node.
const (
	MsgFeatureComingSoon = "This feature is coming soon. Please contact support for assistance."
	MsgAccountNotFound   = "I couldn't identify your account. Please log in again."
	MsgCannotPlanQuery   = "I couldn't generate a query for your request. Please rephrase."
)

var noResultsMessages = map[assistant.SubIntent]string{
	assistant.SubBookingHistory: "You don't have any bookings yet. Would you like me to help you find a car?",
	assistant.SubPaymentHistory: "I couldn't find any payments on your account.",
	assistant.SubFreezeHistory:  "There are no booking freezes on your account.",
}

// BookingHandler answers questions about the user's own bookings, payments,
// and freezes by letting the model author a SELECT against an allow-listed
// schema and executing it through the validated query tool.
type BookingHandler struct {
	llmProvider llm.LLMProvider
	executor    *sqltool.Executor
	cfg         Config
	logger      logger.ILogger
}

func NewBookingHandler(llmProvider llm.LLMProvider, executor *sqltool.Executor, cfg Config, log logger.ILogger) *BookingHandler {
	return &BookingHandler{
		llmProvider: llmProvider,
		executor:    executor,
		cfg:         cfg,
		logger:      log,
	}
}

func (h *BookingHandler) Node() string { return assistant.NodeBooking }

func (h *BookingHandler) Handle(ctx context.Context, state *assistant.TurnState) error {
	if state.User.UserId == uuid.Nil {
		state.Reply = MsgAccountNotFound
		return nil
	}

	sub := assistant.SubIntent("")
	if state.Intent != nil {
		sub = state.Intent.SubIntent
	}
	if _, handled := noResultsMessages[sub]; !handled {
		// Reservation attempts and anything else land here.
		state.Reply = MsgFeatureComingSoon
		return nil
	}

	result, err := h.llmProvider.ChatWithTools(ctx,
		[]llm.Message{
			{Role: "system", Content: h.buildSystemPrompt(state.User.UserId, sub)},
			{Role: "user", Content: state.EffectiveQuery()},
		},
		[]llm.Tool{queryTool()},
		llm.WithTemperature(0.0),
		llm.WithModel(h.cfg.ChatModel),
	)
	if err != nil {
		return fmt.Errorf("booking query planning: %w", err)
	}

	call := firstQueryCall(result)
	if call == nil {
		// The model answered in prose instead of calling the tool. A reply
		// admitting it found nothing is normalized to the canned message;
		// anything else means the planner could not produce a query, so ask
		// the user to rephrase instead of passing the prose through.
		if saysNothingFound(result.Content) {
			state.Reply = noResultsMessages[sub]
			return nil
		}
		state.Metadata.NeedsClarification = true
		state.Metadata.ClarificationQuestions = append(state.Metadata.ClarificationQuestions, MsgCannotPlanQuery)
		return nil
	}

	query, _ := call.Arguments["query"].(string)
	explanation, _ := call.Arguments["explanation"].(string)
	state.Metadata.SqlQuery = query
	state.Metadata.QueryExplanation = explanation

	rows, err := h.executor.Execute(ctx, query, explanation)
	if err != nil {
		h.logger.Warn("booking-handler", "query tool failed", map[string]interface{}{
			"error":   err.Error(),
			"user_id": state.User.UserId.String(),
		})
		// A failed tool run is not the same as an empty result set. Surface
		// it so the user knows to try again.
		state.Metadata.NeedsClarification = true
		state.Metadata.ClarificationQuestions = append(state.Metadata.ClarificationQuestions,
			fmt.Sprintf("I encountered an error: %v", err))
		return nil
	}

	state.BookingResults = rows
	state.Metadata.ResultsCount = len(rows)
	state.Metadata.Source = "sql_query"
	if len(rows) == 0 {
		state.Reply = noResultsMessages[sub]
	}
	return nil
}

func (h *BookingHandler) buildSystemPrompt(userId uuid.UUID, sub assistant.SubIntent) string {
	var b strings.Builder
	b.WriteString("You are a data access planner for a vehicle rental platform.\n")
	b.WriteString("Translate the user's question about their account into ONE call to the ")
	b.WriteString(sqltool.ToolName)
	b.WriteString(" tool.\n\n")
	b.WriteString(sqltool.SchemaReference)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "The current user's id is '%s'. Every query MUST filter by this id.\n", userId)
	switch sub {
	case assistant.SubPaymentHistory:
		b.WriteString("The user is asking about their payments.\n")
	case assistant.SubFreezeHistory:
		b.WriteString("The user is asking about freezes placed on their bookings.\n")
	default:
		b.WriteString("The user is asking about their bookings.\n")
	}
	b.WriteString("Order results by most recent first.")
	return b.String()
}

func queryTool() llm.Tool {
	return llm.Tool{
		Name:        sqltool.ToolName,
		Description: "Run a read-only SQL SELECT against the rental database and return the rows.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "A single SELECT statement over the documented tables.",
				},
				"explanation": map[string]interface{}{
					"type":        "string",
					"description": "One sentence describing what the query retrieves.",
				},
			},
			"required": []string{"query", "explanation"},
		},
	}
}

func firstQueryCall(result *llm.ChatResult) *llm.ToolCall {
	if result == nil {
		return nil
	}
	for i := range result.ToolCalls {
		if result.ToolCalls[i].Name == sqltool.ToolName {
			return &result.ToolCalls[i]
		}
	}
	return nil
}

// saysNothingFound is a deliberately blunt lexical check for replies like
// "no bookings were found".
func saysNothingFound(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "no") && strings.Contains(lower, "found")
}
