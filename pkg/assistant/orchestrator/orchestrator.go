package orchestrator

import (
	"context"
	"fmt"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/handlers"
	"car-rental-assistant-be/pkg/assistant/intent"
	"car-rental-assistant-be/pkg/assistant/respond"
)

// Node completion statuses.
const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
)

// Orchestrator drives one turn through the fixed state machine: classify,
// route to a domain handler, generate the streamed response. Every node
// failure degrades the turn instead of aborting it; the only hard stop is a
// broken event sink or a cancelled context.
type Orchestrator struct {
	classifier *intent.Classifier
	generator  *respond.Generator
	handlers   map[string]handlers.Handler
	logger     logger.ILogger
}

func New(classifier *intent.Classifier, generator *respond.Generator, log logger.ILogger, domainHandlers ...handlers.Handler) *Orchestrator {
	byNode := make(map[string]handlers.Handler, len(domainHandlers))
	for _, h := range domainHandlers {
		byNode[h.Node()] = h
	}
	return &Orchestrator{
		classifier: classifier,
		generator:  generator,
		handlers:   byNode,
		logger:     log,
	}
}

// RunTurn executes the state machine over a prepared state and emits the
// event stream. It guarantees the stream ends in exactly one complete or
// error event.
func (o *Orchestrator) RunTurn(ctx context.Context, state *assistant.TurnState, sink assistant.EventSink) (*assistant.Response, error) {
	if err := ctx.Err(); err != nil {
		sink(assistant.Event{Type: assistant.EventError, Error: err.Error()})
		return nil, err
	}

	// classify
	sink(assistant.Event{Type: assistant.EventNodeStart, Node: assistant.NodeClassify})
	classified := o.classifyNode(ctx, state)
	state.Intent = classified
	sink(assistant.Event{
		Type:       assistant.EventNodeComplete,
		Node:       assistant.NodeClassify,
		Intent:     string(classified.Type),
		SubIntent:  string(classified.SubIntent),
		Confidence: &classified.Confidence,
		Status:     StatusSuccess,
	})

	// domain handler
	node := assistant.RouteAfterClassify(classified)
	if node == assistant.NodeEnd {
		// Routing decided the turn needs no domain work or generation.
		// Normalized intents never land here today, but a terminal event is
		// still owed.
		response := state.BuildResponse()
		sink(assistant.Event{Type: assistant.EventComplete, Response: response, Complete: true})
		return response, nil
	}
	if handler, ok := o.handlers[node]; ok {
		sink(assistant.Event{Type: assistant.EventNodeStart, Node: node})
		status := o.handleNode(ctx, handler, state)
		sink(assistant.Event{Type: assistant.EventNodeComplete, Node: node, Status: status})
	}

	if err := ctx.Err(); err != nil {
		sink(assistant.Event{Type: assistant.EventError, Error: err.Error()})
		return nil, err
	}

	// response
	sink(assistant.Event{Type: assistant.EventNodeStart, Node: assistant.NodeGenerateResponse})
	onToken := func(token string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sink(assistant.Event{Type: assistant.EventToken, Node: assistant.NodeGenerateResponse, Token: token})
		return nil
	}
	if err := o.generator.Generate(ctx, state, onToken); err != nil {
		// Only a dead sink or a cancelled context reaches this branch; the
		// generator swallows model failures itself.
		sink(assistant.Event{Type: assistant.EventError, Error: err.Error()})
		return nil, err
	}
	sink(assistant.Event{Type: assistant.EventNodeComplete, Node: assistant.NodeGenerateResponse, Status: StatusSuccess})

	response := state.BuildResponse()
	sink(assistant.Event{Type: assistant.EventComplete, Response: response, Complete: true})
	return response, nil
}

func (o *Orchestrator) classifyNode(ctx context.Context, state *assistant.TurnState) (classified *assistant.Intent) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator", "classify node panicked", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			classified = &assistant.Intent{
				Type:       assistant.IntentGeneral,
				SubIntent:  assistant.SubUnclear,
				Confidence: 0.1,
			}
		}
	}()
	return o.classifier.Classify(ctx, state)
}

// handleNode runs a domain handler under panic recovery. A failed handler
// leaves the turn with no evidence; the response node still answers.
func (o *Orchestrator) handleNode(ctx context.Context, handler handlers.Handler, state *assistant.TurnState) (status string) {
	status = StatusSuccess
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestrator", "handler panicked", map[string]interface{}{
				"node":  handler.Node(),
				"panic": fmt.Sprintf("%v", r),
			})
			state.Metadata.FlowAnalysis["handler_error"] = fmt.Sprintf("panic: %v", r)
			status = StatusDegraded
		}
	}()

	if err := handler.Handle(ctx, state); err != nil {
		o.logger.Error("orchestrator", "handler failed", map[string]interface{}{
			"node":  handler.Node(),
			"error": err.Error(),
		})
		state.Metadata.FlowAnalysis["handler_error"] = err.Error()
		return StatusDegraded
	}
	return status
}
