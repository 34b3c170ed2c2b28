package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "ASSISTANT_TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Event type codes.
const (
	TypeTurnCompleted     = "ASSISTANT_TURN_COMPLETED"
	TypeCarsIndexed       = "CARS_INDEXED"
	TypeDocumentsIndexed  = "DOCUMENTS_INDEXED"
	TypeChatSessionClosed = "CHAT_SESSION_CLOSED"

	// TypeCarUpdated is published by the rental platform whenever a car's
	// listing data changes. The assistant consumes it to keep the vector
	// index current.
	TypeCarUpdated = "CAR_UPDATED"
)

// NewTurnCompleted describes one finished assistant exchange. Published
// best-effort for analytics; nothing downstream is allowed to block a turn.
func NewTurnCompleted(userId, sessionId, intentType, subIntent string, resultsCount int) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"user_id":       userId,
			"session_id":    sessionId,
			"intent_type":   intentType,
			"sub_intent":    subIntent,
			"results_count": resultsCount,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewCarsIndexed summarizes a bulk listing index run.
func NewCarsIndexed(indexed, skipped, failed int) Event {
	return BaseEvent{
		Type: TypeCarsIndexed,
		Data: map[string]interface{}{
			"indexed": indexed,
			"skipped": skipped,
			"failed":  failed,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewDocumentsIndexed summarizes a document refresh run.
func NewDocumentsIndexed(documents, chunks int) Event {
	return BaseEvent{
		Type: TypeDocumentsIndexed,
		Data: map[string]interface{}{
			"documents": documents,
			"chunks":    chunks,
		},
		OccurredAt: time.Now().UTC(),
	}
}

// NewChatSessionClosed records a deleted conversation.
func NewChatSessionClosed(userId, sessionId string) Event {
	return BaseEvent{
		Type: TypeChatSessionClosed,
		Data: map[string]interface{}{
			"user_id":    userId,
			"session_id": sessionId,
		},
		OccurredAt: time.Now().UTC(),
	}
}
