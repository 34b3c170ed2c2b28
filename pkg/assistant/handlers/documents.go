package handlers

import (
	"context"

	"car-rental-assistant-be/internal/pkg/logger"
	"car-rental-assistant-be/pkg/assistant"
	"car-rental-assistant-be/pkg/assistant/retrieval"
)

// Document type labels as stored on document embeddings.
const (
	DocTypeTerms   = "terms"
	DocTypeFaq     = "faq"
	DocTypePrivacy = "privacy"
	DocTypeHelp    = "help"
	DocTypeAbout   = "about"
)

// docTypesBySubIntent maps a documents sub-intent to the chunk types worth
// searching. Help questions also look at FAQs since the two collections
// overlap heavily.
var docTypesBySubIntent = map[assistant.SubIntent][]string{
	assistant.SubTerms:   {DocTypeTerms},
	assistant.SubFaq:     {DocTypeFaq},
	assistant.SubPrivacy: {DocTypePrivacy},
	assistant.SubHelp:    {DocTypeHelp, DocTypeFaq},
}

var docSourceBySubIntent = map[assistant.SubIntent]string{
	assistant.SubTerms:   "terms_documents",
	assistant.SubFaq:     "faq_documents",
	assistant.SubPrivacy: "privacy_documents",
	assistant.SubHelp:    "help_documents",
}

// docClarificationsBySubIntent asks for the detail that narrows the next
// search when nothing matched.
var docClarificationsBySubIntent = map[assistant.SubIntent][]string{
	assistant.SubTerms: {
		"What specific term or condition would you like to know about?",
		"Are you looking for rental terms, cancellation policy, or payment terms?",
	},
	assistant.SubFaq: {
		"What would you like help with?",
		"Are you looking for information about bookings, payments, or vehicle policies?",
	},
	assistant.SubPrivacy: {
		"What aspect of our privacy policy are you interested in?",
		"Are you looking for information about data collection, usage, or your rights?",
	},
	assistant.SubHelp: {
		"What do you need help with?",
		"Are you looking for guides on how to book, make payments, or manage your account?",
	},
}

var docGenericClarifications = []string{
	"I couldn't find a matching policy section. Could you tell me which topic you're asking about, for example cancellations, payments, or insurance?",
}

// DocumentsHandler answers policy, FAQ, privacy, and help questions from the
// embedded document corpus.
type DocumentsHandler struct {
	engine *retrieval.Engine
	cfg    Config
	logger logger.ILogger
}

func NewDocumentsHandler(engine *retrieval.Engine, cfg Config, log logger.ILogger) *DocumentsHandler {
	return &DocumentsHandler{
		engine: engine,
		cfg:    cfg,
		logger: log,
	}
}

func (h *DocumentsHandler) Node() string { return assistant.NodeDocuments }

func (h *DocumentsHandler) Handle(ctx context.Context, state *assistant.TurnState) error {
	sub := assistant.SubIntent("")
	if state.Intent != nil {
		sub = state.Intent.SubIntent
	}
	docTypes := docTypesBySubIntent[sub]

	results, err := h.engine.SearchDocuments(ctx, state.EffectiveQuery(), docTypes, h.cfg.DocumentTopK, h.cfg.DocumentThreshold)
	if err != nil {
		return err
	}

	state.DocumentEvidence = results
	state.Metadata.ResultsCount = len(results)

	if len(results) == 0 {
		questions := docClarificationsBySubIntent[sub]
		if len(questions) == 0 {
			questions = docGenericClarifications
		}
		state.Metadata.NeedsClarification = true
		state.Metadata.ClarificationQuestions = append(state.Metadata.ClarificationQuestions, questions...)
		return nil
	}

	source := docSourceBySubIntent[sub]
	if source == "" {
		source = "document_search"
	}
	state.Metadata.Source = source
	state.Metadata.DocumentContext = summarizeDocumentContext(sub, results)
	return nil
}

// summarizeDocumentContext condenses retrieved chunks into the compact shape
// the response prompt and the stored turn metadata share. FAQ results carry
// their question/answer structure; everything else summarizes to topics.
func summarizeDocumentContext(sub assistant.SubIntent, results []assistant.DocumentEvidence) map[string]interface{} {
	if len(results) == 0 {
		return nil
	}
	if sub == assistant.SubFaq {
		return summarizeFaqContext(results)
	}

	topics := make([]string, 0, len(results))
	seenTitles := map[string]struct{}{}
	types := map[string]int{}
	for _, r := range results {
		types[r.DocType]++
		if r.Title == "" {
			continue
		}
		if _, ok := seenTitles[r.Title]; ok {
			continue
		}
		seenTitles[r.Title] = struct{}{}
		topics = append(topics, r.Title)
	}

	return map[string]interface{}{
		"topics":      topics,
		"doc_types":   types,
		"chunk_count": len(results),
		"top_score":   results[0].Score,
	}
}

// summarizeFaqContext pulls the question/answer pairs out of QA-typed FAQ
// chunks along with their categories.
func summarizeFaqContext(results []assistant.DocumentEvidence) map[string]interface{} {
	qaPairs := make([]map[string]interface{}, 0, len(results))
	categories := make([]string, 0, len(results))
	seenCategories := map[string]struct{}{}

	for _, r := range results {
		contentType, _ := r.Metadata["content_type"].(string)
		if contentType != "qa" {
			continue
		}
		question, _ := r.Metadata["question"].(string)
		category, _ := r.Metadata["category"].(string)
		if category == "" {
			category = "General"
		}
		qaPairs = append(qaPairs, map[string]interface{}{
			"question":       question,
			"answer_preview": r.ContentPreview,
			"category":       category,
			"score":          r.Score,
		})
		if _, ok := seenCategories[category]; !ok {
			seenCategories[category] = struct{}{}
			categories = append(categories, category)
		}
	}

	return map[string]interface{}{
		"type":            "faq",
		"total_questions": len(qaPairs),
		"qa_pairs":        qaPairs,
		"categories":      categories,
	}
}
