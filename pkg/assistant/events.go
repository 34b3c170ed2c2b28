package assistant

// Node names as they appear in stream events.
const (
	NodeClassify         = "classify"
	NodeInventory        = "inventory"
	NodeDocuments        = "documents"
	NodeContextual       = "contextual"
	NodeBooking          = "booking"
	NodeGenerateResponse = "generate_response"
	NodeEnd              = "end"
)

type EventType string

const (
	EventNodeStart    EventType = "node_start"
	EventNodeComplete EventType = "node_complete"
	EventToken        EventType = "token"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
)

// Event is one item of the outward turn stream. A stream ends in exactly one
// of complete or error.
type Event struct {
	Type       EventType `json:"type"`
	Node       string    `json:"node,omitempty"`
	Token      string    `json:"token,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	SubIntent  string    `json:"sub_intent,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Status     string    `json:"status,omitempty"`
	Response   *Response `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	Complete   bool      `json:"complete"`
}

// EventSink receives stream events in order. Implementations must tolerate
// being called from the turn's goroutine only.
type EventSink func(Event)

// RouteAfterClassify is the single conditional edge of the turn state
// machine: it maps the classified intent's primary type to a handler node.
// Missing or unroutable intents end the turn without a reply.
func RouteAfterClassify(intent *Intent) string {
	if intent == nil {
		return NodeEnd
	}
	switch intent.Type {
	case IntentInventory:
		return NodeInventory
	case IntentDocuments:
		return NodeDocuments
	case IntentBooking:
		return NodeBooking
	case IntentAbout, IntentGeneral:
		return NodeContextual
	default:
		return NodeEnd
	}
}
