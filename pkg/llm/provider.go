package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Tool describes a function the model may call. Parameters is a JSON-schema
// fragment in the shape the chat API expects.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is the model's request to invoke a tool with JSON arguments.
type ToolCall struct {
	Name      string
	Arguments map[string]interface{}
}

// ChatResult carries either free-form content, a tool call, or both.
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
}

// TokenHandler receives streamed tokens in arrival order. Returning an error
// aborts the stream.
type TokenHandler func(token string) error

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// ChatStream streams the reply token by token through onToken and
	// returns the assembled full text.
	ChatStream(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) (string, error)

	// ChatWithTools offers the model a tool set; at most one call per
	// invocation is honored by callers.
	ChatWithTools(ctx context.Context, history []Message, tools []Tool, options ...Option) (*ChatResult, error)
}
