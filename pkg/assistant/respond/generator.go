package respond

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/llm"
)

// ApologyMessage replaces the reply when generation itself fails. The turn
// still completes; the user is never shown a raw error.
const ApologyMessage = "I'm sorry, something went wrong while preparing your answer. Please try asking again."

const (
	maxCarsInPrompt    = 5
	maxRowsInPrompt    = 10
	docSnippetMaxRunes = 300
	historyWindow      = 10
)

// Generator produces the final streamed reply for a turn from whatever
// evidence the handler attached.
type Generator struct {
	llmProvider llm.LLMProvider
	model       string
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, model string, log logger.ILogger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		model:       model,
		logger:      log,
	}
}

// Generate streams the reply through onToken and finalizes the state: reply
// text, suggested actions, and the assistant history entry. A handler that
// already set a canned reply short-circuits the model call.
func (g *Generator) Generate(ctx context.Context, state *assistant.TurnState, onToken llm.TokenHandler) error {
	intentType := assistant.IntentGeneral
	if state.Intent != nil {
		intentType = state.Intent.Type
	}

	if state.Reply != "" {
		if err := onToken(state.Reply); err != nil {
			return err
		}
		g.finalize(state, state.Reply, nil, intentType)
		return nil
	}

	history := g.buildHistory(state)
	fullText, err := g.llmProvider.ChatStream(ctx, history, onToken,
		llm.WithModel(g.model),
	)
	if err != nil {
		g.logger.Error("response-generator", "generation failed", map[string]interface{}{
			"error":       err.Error(),
			"intent_type": string(intentType),
		})
		if tokenErr := onToken(ApologyMessage); tokenErr != nil {
			return tokenErr
		}
		g.finalize(state, ApologyMessage, nil, intentType)
		return nil
	}

	cleaned, actions := extractSuggestedActions(fullText)
	if cleaned == "" {
		cleaned = ApologyMessage
	}
	g.finalize(state, cleaned, actions, intentType)
	return nil
}

func (g *Generator) finalize(state *assistant.TurnState, reply string, actions []assistant.SuggestedAction, intentType assistant.IntentType) {
	if len(actions) == 0 {
		actions = DefaultActions(intentType)
	}
	state.Reply = reply
	state.SuggestedActions = actions
	state.AppendMessage(assistant.NewMessage("assistant", reply))
}

func (g *Generator) buildHistory(state *assistant.TurnState) []llm.Message {
	messages := []llm.Message{
		{Role: "system", Content: g.buildSystemPrompt(state)},
	}
	for _, msg := range recentHistory(state.Messages, historyWindow) {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: g.buildTurnPrompt(state)})
	return messages
}

func (g *Generator) buildSystemPrompt(state *assistant.TurnState) string {
	var b strings.Builder
	b.WriteString("You are the assistant of a vehicle rental platform. Be concise, warm, and concrete.\n")
	b.WriteString("Answer ONLY from the evidence provided in the user's last message. Never invent cars, prices, or policies.\n")

	if state.Intent != nil {
		switch state.Intent.Type {
		case assistant.IntentInventory:
			b.WriteString("Present the matching cars as a short list with brand, model, and hourly price. Recommend at most three.\n")
		case assistant.IntentDocuments:
			b.WriteString("Answer the policy question from the document excerpts and mention which section the answer comes from.\n")
		case assistant.IntentBooking:
			b.WriteString("Summarize the user's records in plain language, most recent first. Do not show raw ids.\n")
		case assistant.IntentAbout:
			b.WriteString("Describe the platform using the provided material only.\n")
		default:
			b.WriteString("Reply naturally. If the user seems lost, point out what you can help with: finding cars, checking bookings, and answering policy questions.\n")
		}
	}

	if state.ConversationSummary != "" {
		b.WriteString("\nEarlier conversation summary:\n")
		b.WriteString(state.ConversationSummary)
		b.WriteString("\n")
	}

	if state.Metadata.NeedsClarification && len(state.Metadata.ClarificationQuestions) > 0 {
		b.WriteString("\nThe request was ambiguous. Work this clarification question into your reply: ")
		b.WriteString(state.Metadata.ClarificationQuestions[0])
		b.WriteString("\n")
	}

	b.WriteString("\nAfter your reply, append up to three quick actions as a fenced block:\n")
	b.WriteString("```json\n{\"suggested_actions\": [{\"action\": \"check_availability\", \"label\": \"Check availability\"}]}\n```")
	return b.String()
}

func (g *Generator) buildTurnPrompt(state *assistant.TurnState) string {
	var b strings.Builder

	if len(state.CarEvidence) > 0 {
		b.WriteString("<matching_cars>\n")
		b.WriteString(formatCarEvidence(state.CarEvidence))
		b.WriteString("</matching_cars>\n\n")
	}
	if len(state.DocumentEvidence) > 0 {
		b.WriteString("<policy_excerpts>\n")
		b.WriteString(formatDocumentEvidence(state.DocumentEvidence))
		b.WriteString("</policy_excerpts>\n\n")
	}
	if len(state.BookingResults) > 0 {
		b.WriteString("<account_records>\n")
		b.WriteString(formatBookingRows(state.BookingResults))
		b.WriteString("</account_records>\n\n")
	}
	if b.Len() == 0 {
		b.WriteString("(no supporting evidence was retrieved for this turn)\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(state.EffectiveQuery())
	return b.String()
}

func formatCarEvidence(cars []assistant.CarEvidence) string {
	var b strings.Builder
	for i, car := range cars {
		if i >= maxCarsInPrompt {
			break
		}
		fmt.Fprintf(&b, "%d. %s %s", i+1, car.Brand, car.Model)
		if year := metaInt(car.Metadata, "year"); year > 0 {
			fmt.Fprintf(&b, " (%d", year)
			if category, _ := car.Metadata["category"].(string); category != "" {
				fmt.Fprintf(&b, " %s", category)
			}
			if seats := metaInt(car.Metadata, "seats"); seats > 0 {
				fmt.Fprintf(&b, ", %d seats", seats)
			}
			b.WriteString(")")
		}
		fmt.Fprintf(&b, " - ₹%.0f/hour", car.PricePerHour)
		if car.NextAvailableAt != nil {
			fmt.Fprintf(&b, ", next available %s", car.NextAvailableAt.Format("Jan 2 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatDocumentEvidence(docs []assistant.DocumentEvidence) string {
	var b strings.Builder
	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = doc.DocType
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, title, truncateRunes(doc.Content, docSnippetMaxRunes))
	}
	return b.String()
}

func formatBookingRows(rows []map[string]interface{}) string {
	var b strings.Builder
	for i, row := range rows {
		if i >= maxRowsInPrompt {
			break
		}
		fmt.Fprintf(&b, "Record %d:", i+1)
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, " %s=%v", key, row[key])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func metaInt(metadata map[string]interface{}, key string) int {
	switch v := metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func recentHistory(messages []assistant.Message, n int) []assistant.Message {
	// The current user message is delivered as the evidence-bearing prompt,
	// so it is excluded from the replayed history.
	if len(messages) > 0 {
		messages = messages[:len(messages)-1]
	}
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
