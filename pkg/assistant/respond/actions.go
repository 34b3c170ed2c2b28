package respond

import (
	"encoding/json"
	"regexp"
	"strings"

	"car-rental-assistant-be/pkg/assistant"
)

// actionsBlockRe matches the fenced JSON the model is asked to append after
// its prose answer.
var actionsBlockRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\"suggested_actions\".*?\\})\\s*```")

type actionsEnvelope struct {
	SuggestedActions []assistant.SuggestedAction `json:"suggested_actions"`
}

// extractSuggestedActions pulls the trailing actions block out of the model
// reply and returns the cleaned prose. A missing or malformed block yields
// the original text and no actions.
func extractSuggestedActions(text string) (string, []assistant.SuggestedAction) {
	m := actionsBlockRe.FindStringSubmatchIndex(text)
	if m == nil {
		return strings.TrimSpace(text), nil
	}

	var envelope actionsEnvelope
	if err := json.Unmarshal([]byte(text[m[2]:m[3]]), &envelope); err != nil {
		return strings.TrimSpace(text), nil
	}

	cleaned := text[:m[0]] + text[m[1]:]
	return strings.TrimSpace(cleaned), envelope.SuggestedActions
}

var defaultActionsByIntent = map[assistant.IntentType][]assistant.SuggestedAction{
	assistant.IntentInventory: {
		{Action: "view_car_details", Label: "View car details"},
		{Action: "check_availability", Label: "Check availability"},
		{Action: "refine_search", Label: "Refine my search"},
	},
	assistant.IntentDocuments: {
		{Action: "view_terms", Label: "Read the full terms"},
		{Action: "browse_faq", Label: "Browse FAQs"},
		{Action: "contact_support", Label: "Contact support"},
	},
	assistant.IntentBooking: {
		{Action: "view_bookings", Label: "View my bookings"},
		{Action: "search_cars", Label: "Find a car"},
		{Action: "contact_support", Label: "Contact support"},
	},
	assistant.IntentAbout: {
		{Action: "browse_cars", Label: "Browse cars"},
		{Action: "browse_faq", Label: "Browse FAQs"},
	},
	assistant.IntentGeneral: {
		{Action: "search_cars", Label: "Find a car"},
		{Action: "view_bookings", Label: "View my bookings"},
		{Action: "browse_faq", Label: "Browse FAQs"},
	},
}

// DefaultActions returns the fallback quick-reply set for an intent.
func DefaultActions(intentType assistant.IntentType) []assistant.SuggestedAction {
	if actions, ok := defaultActionsByIntent[intentType]; ok {
		return actions
	}
	return defaultActionsByIntent[assistant.IntentGeneral]
}
