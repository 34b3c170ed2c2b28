package handlers

import (
	"context"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/retrieval"
)

// contextualProfile tunes how much supporting evidence each conversational
// situation pulls in. The about sub-types run the same search and differ
// only in the source tag they record.
type contextualProfile struct {
	source          string
	docTypes        []string
	topK            int
	threshold       float64
	maxSnippets     int
	forceClarify    bool
	clarifyQuestion string
	skipRetrieval   bool
}

// aboutDocTypes covers every collection that might mention the company
// itself; dedicated about pages are rare.
var aboutDocTypes = []string{DocTypeFaq, DocTypeHelp, DocTypeTerms, DocTypePrivacy}

var contextualProfiles = map[assistant.SubIntent]contextualProfile{
	assistant.SubCompany:     {source: "about_company", docTypes: aboutDocTypes, topK: 3, threshold: 0.4, maxSnippets: 3},
	assistant.SubServices:    {source: "about_services", docTypes: aboutDocTypes, topK: 3, threshold: 0.4, maxSnippets: 3},
	assistant.SubContact:     {source: "about_contact", docTypes: aboutDocTypes, topK: 3, threshold: 0.4, maxSnippets: 3},
	assistant.SubGeneralInfo: {source: "about_general", docTypes: aboutDocTypes, topK: 3, threshold: 0.4, maxSnippets: 3},

	// Unclear queries get a narrow FAQ lookup and always ask for
	// clarification.
	assistant.SubUnclear: {
		source:          "unclear",
		docTypes:        []string{DocTypeFaq},
		topK:            2,
		threshold:       0.5,
		maxSnippets:     2,
		forceClarify:    true,
		clarifyQuestion: "Could you tell me a bit more about what you're looking for? For example, finding a car, checking a booking, or a question about our policies.",
	},

	// Generic help requests search FAQs and help articles.
	assistant.SubHelpRequest: {source: "help_request", docTypes: []string{DocTypeFaq, DocTypeHelp}, topK: 3, threshold: 0.4, maxSnippets: 3},

	// Small talk needs no evidence at all.
	assistant.SubGreeting: {source: "greeting", skipRetrieval: true},
	assistant.SubChitchat: {source: "chitchat", skipRetrieval: true},
}

// ContextualHandler covers the about and general intents: light document
// grounding for company questions, clarification for unclear ones, nothing
// at all for small talk.
type ContextualHandler struct {
	engine *retrieval.Engine
	logger logger.ILogger
}

func NewContextualHandler(engine *retrieval.Engine, log logger.ILogger) *ContextualHandler {
	return &ContextualHandler{
		engine: engine,
		logger: log,
	}
}

func (h *ContextualHandler) Node() string { return assistant.NodeContextual }

func (h *ContextualHandler) Handle(ctx context.Context, state *assistant.TurnState) error {
	sub := assistant.SubGeneralInfo
	if state.Intent != nil && state.Intent.SubIntent != "" {
		sub = state.Intent.SubIntent
	}

	profile, ok := contextualProfiles[sub]
	if !ok {
		profile = contextualProfiles[assistant.SubGeneralInfo]
	}

	if profile.source != "" {
		state.Metadata.Source = profile.source
	}
	if profile.forceClarify {
		state.Metadata.NeedsClarification = true
		state.Metadata.ClarificationQuestions = append(state.Metadata.ClarificationQuestions, profile.clarifyQuestion)
	}
	if profile.skipRetrieval {
		return nil
	}

	results, err := h.engine.SearchDocuments(ctx, state.EffectiveQuery(), profile.docTypes, profile.topK, profile.threshold)
	if err != nil {
		// Grounding is optional here; the response node can still answer.
		h.logger.Warn("contextual-handler", "document grounding failed", map[string]interface{}{
			"error":      err.Error(),
			"sub_intent": string(sub),
		})
		return nil
	}
	if len(results) > profile.maxSnippets {
		results = results[:profile.maxSnippets]
	}

	state.DocumentEvidence = results
	state.Metadata.ResultsCount = len(results)
	state.Metadata.DocumentContext = summarizeDocumentContext(sub, results)
	return nil
}
