package flowstore

import (
	"context"
	"time"

	"car-rental-assistant-be/pkg/assistant"
)

// Store checkpoints conversation state between turns, keyed by thread id.
// A missing checkpoint is not an error; the caller starts a fresh state.
type Store interface {
	Get(ctx context.Context, threadId string) (*assistant.TurnState, bool, error)
	Put(ctx context.Context, state *assistant.TurnState) error
	Delete(ctx context.Context, threadId string) error

	// CleanupStaleFlows clears the conversation flow from every checkpoint
	// whose flow has been idle longer than idleAfter. The checkpoint itself
	// is kept; only the abandoned multi-step flow is dropped. Returns the
	// number of flows cleared.
	CleanupStaleFlows(ctx context.Context, idleAfter time.Duration) (int, error)
}
