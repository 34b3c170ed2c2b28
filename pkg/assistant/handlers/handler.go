package handlers

import (
	"context"
	"time"

	"car-rental-assistant-be/pkg/assistant"
)

// Handler executes one domain node of the turn state machine. Handlers
// attach evidence and metadata to the state; they never write the final
// reply text except where a canned message ends the turn early.
type Handler interface {
	Node() string
	Handle(ctx context.Context, state *assistant.TurnState) error
}

// Config carries the retrieval knobs shared by the handlers.
type Config struct {
	InventoryTopK         int
	InventoryThreshold    float64
	DocumentTopK          int
	DocumentThreshold     float64
	RecommendationTimeout time.Duration
	PopularLimit          int
	ChatModel             string
}

// DefaultConfig mirrors the tuned production values.
func DefaultConfig() Config {
	return Config{
		InventoryTopK:         15,
		InventoryThreshold:    0.25,
		DocumentTopK:          10,
		DocumentThreshold:     0.3,
		RecommendationTimeout: 8 * time.Second,
		PopularLimit:          7,
		ChatModel:             "llama3",
	}
}
