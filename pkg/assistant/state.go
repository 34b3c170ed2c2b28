package assistant

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in a conversation's history.
type Message struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMessage(role, content string) Message {
	return Message{
		Id:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

type UserContext struct {
	UserId    uuid.UUID `json:"user_id"`
	SessionId string    `json:"session_id"`
	ThreadId  string    `json:"thread_id"`
}

// BookingDetails is optional caller-supplied context for an in-progress
// booking conversation.
type BookingDetails struct {
	CarId          *uuid.UUID `json:"car_id,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	PickupLocation string     `json:"pickup_location,omitempty"`
}

// CarEvidence is a vehicle match attached to the turn by the inventory
// handler.
type CarEvidence struct {
	CarId            uuid.UUID              `json:"car_id"`
	Score            float64                `json:"score"`
	Brand            string                 `json:"brand"`
	Model            string                 `json:"model"`
	PricePerHour     float64                `json:"price_per_hour"`
	NextAvailableAt  *time.Time             `json:"next_available_at,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// DocumentEvidence is a policy/help snippet attached by the documents or
// contextual handler.
type DocumentEvidence struct {
	DocId          string                 `json:"doc_id"`
	Score          float64                `json:"score"`
	DocType        string                 `json:"doc_type"`
	Title          string                 `json:"title"`
	Content        string                 `json:"content"`
	ContentPreview string                 `json:"content_preview"`
	ChunkIndex     int                    `json:"chunk_index"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type SuggestedAction struct {
	Action string `json:"action"`
	Label  string `json:"label"`
}

// TurnMetadata holds per-turn flags and provenance. Unlike evidence it is
// rebuilt at every turn start, preserving only CreatedAt.
type TurnMetadata struct {
	CreatedAt              time.Time              `json:"created_at"`
	Version                string                 `json:"version"`
	NeedsClarification     bool                   `json:"needs_clarification"`
	ClarificationQuestions []string               `json:"clarification_questions"`
	FlowAnalysis           map[string]interface{} `json:"flow_analysis"`
	Source                 string                 `json:"source,omitempty"`
	ResultsCount           int                    `json:"results_count,omitempty"`
	SqlQuery               string                 `json:"sql_query,omitempty"`
	QueryExplanation       string                 `json:"query_explanation,omitempty"`
	DocumentContext        map[string]interface{} `json:"document_context,omitempty"`
}

// TurnState is the unit of work for one conversational exchange. Every node
// mutates it in sequence; the checkpoint store persists it between turns.
type TurnState struct {
	SessionId           string                   `json:"session_id"`
	ThreadId            string                   `json:"thread_id"`
	User                UserContext              `json:"user_context"`
	Messages            []Message                `json:"messages"`
	CurrentQuery        string                   `json:"current_query"`
	RephrasedQuery      string                   `json:"rephrased_query,omitempty"`
	ConversationSummary string                   `json:"conversation_summary,omitempty"`
	Intent              *Intent                  `json:"intent,omitempty"`
	Flow                *ConversationFlow        `json:"conversation_flow,omitempty"`
	CarEvidence         []CarEvidence            `json:"car_embeddings_used"`
	DocumentEvidence    []DocumentEvidence       `json:"document_embeddings_used"`
	BookingResults      []map[string]interface{} `json:"booking_results,omitempty"`
	BookingDetails      *BookingDetails          `json:"booking_details,omitempty"`
	Reply               string                   `json:"llm_response,omitempty"`
	SuggestedActions    []SuggestedAction        `json:"suggested_actions"`
	Metadata            TurnMetadata             `json:"metadata"`
}

// NewTurnState creates a fresh state for a conversation's first turn.
func NewTurnState(userId uuid.UUID, sessionId, query string) *TurnState {
	s := &TurnState{
		SessionId: sessionId,
		ThreadId:  sessionId,
		User: UserContext{
			UserId:    userId,
			SessionId: sessionId,
			ThreadId:  sessionId,
		},
		CurrentQuery: query,
		Metadata:     newTurnMetadata(time.Now().UTC()),
	}
	s.AppendMessage(NewMessage("user", query))
	return s
}

func newTurnMetadata(createdAt time.Time) TurnMetadata {
	return TurnMetadata{
		CreatedAt:              createdAt,
		Version:                "1.0",
		ClarificationQuestions: []string{},
		FlowAnalysis:           map[string]interface{}{},
	}
}

// ResetForTurn prepares a persisted snapshot for a new turn: scratch fields
// are cleared, metadata is rebuilt keeping its creation time, and the new
// user message is appended. Messages, flow and summary carry forward.
func (s *TurnState) ResetForTurn(query string) {
	s.CurrentQuery = query
	s.RephrasedQuery = ""
	s.Intent = nil
	s.CarEvidence = nil
	s.DocumentEvidence = nil
	s.BookingResults = nil
	s.Reply = ""
	s.SuggestedActions = nil

	createdAt := s.Metadata.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.Metadata = newTurnMetadata(createdAt)

	s.AppendMessage(NewMessage("user", query))
}

// AppendMessage adds a message unless one with the same id is present.
func (s *TurnState) AppendMessage(msg Message) {
	for _, existing := range s.Messages {
		if existing.Id == msg.Id {
			return
		}
	}
	s.Messages = append(s.Messages, msg)
}

// EffectiveQuery prefers the rewritten query when a rephrase step produced one.
func (s *TurnState) EffectiveQuery() string {
	if s.RephrasedQuery != "" {
		return s.RephrasedQuery
	}
	return s.CurrentQuery
}

// Response is the terminal projection of a completed turn.
type Response struct {
	SessionId              string                   `json:"session_id"`
	ThreadId               string                   `json:"thread_id"`
	Query                  string                   `json:"query"`
	RephrasedQuery         string                   `json:"rephrased_query"`
	Intent                 *Intent                  `json:"intent,omitempty"`
	ConversationFlow       *ConversationFlow        `json:"conversation_flow,omitempty"`
	LlmResponse            string                   `json:"llm_response"`
	NeedsClarification     bool                     `json:"needs_clarification"`
	ClarificationQuestions []string                 `json:"clarification_questions"`
	CarEvidence            []CarEvidence            `json:"car_embeddings_used"`
	DocumentEvidence       []DocumentEvidence       `json:"document_embeddings_used"`
	BookingResults         []map[string]interface{} `json:"booking_results"`
	SuggestedActions       []SuggestedAction        `json:"suggested_actions"`
	FlowAnalysis           map[string]interface{}   `json:"flow_analysis"`
}

// BuildResponse projects the final turn state into the outward response.
func (s *TurnState) BuildResponse() *Response {
	return &Response{
		SessionId:              s.SessionId,
		ThreadId:               s.ThreadId,
		Query:                  s.CurrentQuery,
		RephrasedQuery:         s.EffectiveQuery(),
		Intent:                 s.Intent,
		ConversationFlow:       s.Flow,
		LlmResponse:            s.Reply,
		NeedsClarification:     s.Metadata.NeedsClarification,
		ClarificationQuestions: s.Metadata.ClarificationQuestions,
		CarEvidence:            s.CarEvidence,
		DocumentEvidence:       s.DocumentEvidence,
		BookingResults:         s.BookingResults,
		SuggestedActions:       s.SuggestedActions,
		FlowAnalysis:           s.Metadata.FlowAnalysis,
	}
}
