package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// matchConfidence is reported whenever retrieval found grounding material.
// Confidence is not yet derived from distances; handoff reports zero.
const matchConfidence = 0.8

// User-facing fallback copy for the no-knowledge path.
const (
	fallbackAnswer = "Entschuldigung, ich konnte in unserer Wissensdatenbank keine passende Antwort finden. " +
		"Ich verbinde Sie gerne mit einem unserer Mitarbeiter, der Ihnen weiterhelfen kann."
	streamFallbackMessage = "Entschuldigung, ich konnte in unserer Wissensdatenbank keine passende Antwort finden."
	handoffNotice         = "Keine passende Antwort gefunden. Ein Mitarbeiter wird sich bei Ihnen melden."
)

// ChatRequest is one customer turn.
type ChatRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// SourceReference points at the FAQ entry or document a piece of the
// answer was grounded on.
type SourceReference struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	ID    string `json:"id"`
}

// ChatResponse is the complete answer for the batch endpoint.
type ChatResponse struct {
	SessionID        string            `json:"sessionId"`
	Answer           string            `json:"answer"`
	ConfidenceScore  float64           `json:"confidenceScore"`
	Sources          []SourceReference `json:"sources,omitempty"`
	HandoffTriggered bool              `json:"handoffTriggered"`
	HandoffMessage   string            `json:"handoffMessage,omitempty"`
}

// Stream event types, mirrored one-to-one onto SSE event names.
const (
	EventToken     = "token"
	EventMessage   = "message"
	EventMetadata  = "metadata"
	EventMessageID = "messageId"
	EventError     = "error"
)

// StreamMetadata closes a streamed answer with the same fields the batch
// response carries.
type StreamMetadata struct {
	SessionID        string            `json:"sessionId"`
	ConfidenceScore  float64           `json:"confidenceScore"`
	Sources          []SourceReference `json:"sources,omitempty"`
	HandoffTriggered bool              `json:"handoffTriggered"`
}

// StreamEvent is one element of the chat stream. Exactly one payload
// field is meaningful per event type.
type StreamEvent struct {
	Type      string
	Text      string
	Metadata  *StreamMetadata
	MessageID string
	Err       error
}

// ChatService orchestrates a customer turn: resolve the conversation,
// persist the question, embed, retrieve, then either synthesize a
// grounded answer or fall back to human handoff.
type ChatService struct {
	db            core.DbClient
	embedder      *EmbeddingService
	retriever     *RetrievalService
	synth         *Synthesizer
	historyLimit  int
	streamTimeout time.Duration
	log           *slog.Logger
}

func NewChatService(db core.DbClient, embedder *EmbeddingService, retriever *RetrievalService, synth *Synthesizer, historyLimit int, streamTimeout time.Duration, logger *slog.Logger) *ChatService {
	return &ChatService{
		db:            db,
		embedder:      embedder,
		retriever:     retriever,
		synth:         synth,
		historyLimit:  historyLimit,
		streamTimeout: streamTimeout,
		log:           logger,
	}
}

// ProcessChat answers one turn in batch mode.
func (s *ChatService) ProcessChat(ctx context.Context, tenantID string, req ChatRequest) (*ChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", core.ErrValidation)
	}

	conv, err := s.getOrCreateConversation(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	if err := s.saveMessage(ctx, conv, models.RoleUser, question, nil, nil); err != nil {
		return nil, err
	}

	res, retrieveErr := s.retrieveForQuestion(ctx, tenantID, question)
	if retrieveErr != nil || res.Empty() {
		return s.answerWithHandoff(ctx, conv)
	}

	history, err := s.priorTurns(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	answer, err := s.synth.Synthesize(ctx, question, res, history)
	if err != nil {
		return nil, err
	}

	confidence := matchConfidence
	faqID := s.recordBestFaq(ctx, res)
	if err := s.saveMessage(ctx, conv, models.RoleAssistant, answer, &confidence, faqID); err != nil {
		return nil, err
	}
	s.touch(ctx, conv.ID)

	return &ChatResponse{
		SessionID:       conv.SessionID,
		Answer:          answer,
		ConfidenceScore: confidence,
		Sources:         buildSources(res),
	}, nil
}

// StreamChat answers one turn as an event stream. The returned channel is
// closed after the terminal event; the whole stream is bounded by the
// configured timeout. Validation errors surface before any event, as the
// error return.
func (s *ChatService) StreamChat(ctx context.Context, tenantID string, req ChatRequest) (<-chan StreamEvent, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", core.ErrValidation)
	}

	events := make(chan StreamEvent, 16)
	go func() {
		defer close(events)

		sctx, cancel := context.WithTimeout(ctx, s.streamTimeout)
		defer cancel()

		conv, err := s.getOrCreateConversation(sctx, tenantID, req)
		if err != nil {
			events <- StreamEvent{Type: EventError, Err: err}
			return
		}

		if err := s.saveMessage(sctx, conv, models.RoleUser, question, nil, nil); err != nil {
			events <- StreamEvent{Type: EventError, Err: err}
			return
		}

		res, retrieveErr := s.retrieveForQuestion(sctx, tenantID, question)
		if retrieveErr != nil || res.Empty() {
			s.streamHandoff(sctx, conv, events)
			return
		}

		history, err := s.priorTurns(sctx, conv.ID)
		if err != nil {
			events <- StreamEvent{Type: EventError, Err: err}
			return
		}

		faqID := s.recordBestFaq(sctx, res)

		deltas, err := s.synth.SynthesizeStream(sctx, question, res, history)
		if err != nil {
			events <- StreamEvent{Type: EventError, Err: err}
			return
		}

		var answer strings.Builder
		for d := range deltas {
			if d.Err != nil {
				events <- StreamEvent{Type: EventError, Err: d.Err}
				return
			}
			answer.WriteString(d.Text)
			events <- StreamEvent{Type: EventToken, Text: d.Text}
		}

		confidence := matchConfidence
		msg, err := s.persistTurn(sctx, conv, models.RoleAssistant, answer.String(), &confidence, faqID)
		if err != nil {
			events <- StreamEvent{Type: EventError, Err: err}
			return
		}
		s.touch(sctx, conv.ID)

		events <- StreamEvent{Type: EventMetadata, Metadata: &StreamMetadata{
			SessionID:       conv.SessionID,
			ConfidenceScore: confidence,
			Sources:         buildSources(res),
		}}
		events <- StreamEvent{Type: EventMessageID, MessageID: msg.ID}
	}()

	return events, nil
}

// GetConversationHistory returns every turn of a session, oldest first.
// An unknown session yields an empty list, not an error, so a fresh
// widget can poll before its first message.
func (s *ChatService) GetConversationHistory(ctx context.Context, tenantID, sessionID string) ([]models.Message, error) {
	conv, err := s.db.GetConversationBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return []models.Message{}, nil
	}
	msgs, err := s.db.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return msgs, nil
}

// MarkHandedOff flags the session's conversation for human takeover.
func (s *ChatService) MarkHandedOff(ctx context.Context, tenantID, sessionID string) (*models.Conversation, error) {
	conv, err := s.db.GetConversationBySession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, sessionID)
	}
	if err := s.db.UpdateConversationStatus(ctx, conv.ID, models.ConversationHandedOff); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}
	conv.Status = models.ConversationHandedOff
	return conv, nil
}

// retrieveForQuestion embeds the question and runs retrieval. Provider
// and store failures collapse into the handoff path but are logged at
// error level; the customer just sees the no-knowledge fallback.
func (s *ChatService) retrieveForQuestion(ctx context.Context, tenantID, question string) (models.RetrievalResult, error) {
	vec, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		s.log.Error("embedding failed, falling back to handoff", "tenant_id", tenantID, "error", err)
		return models.RetrievalResult{}, err
	}
	res, err := s.retriever.Retrieve(ctx, tenantID, vec)
	if err != nil {
		s.log.Error("retrieval failed, falling back to handoff", "tenant_id", tenantID, "error", err)
		return models.RetrievalResult{}, err
	}
	return res, nil
}

func (s *ChatService) answerWithHandoff(ctx context.Context, conv *models.Conversation) (*ChatResponse, error) {
	confidence := 0.0
	if err := s.saveMessage(ctx, conv, models.RoleAssistant, fallbackAnswer, &confidence, nil); err != nil {
		return nil, err
	}
	s.handOff(ctx, conv)

	return &ChatResponse{
		SessionID:        conv.SessionID,
		Answer:           fallbackAnswer,
		ConfidenceScore:  0,
		HandoffTriggered: true,
		HandoffMessage:   handoffNotice,
	}, nil
}

func (s *ChatService) streamHandoff(ctx context.Context, conv *models.Conversation, events chan<- StreamEvent) {
	confidence := 0.0
	if err := s.saveMessage(ctx, conv, models.RoleAssistant, streamFallbackMessage, &confidence, nil); err != nil {
		events <- StreamEvent{Type: EventError, Err: err}
		return
	}
	s.handOff(ctx, conv)

	events <- StreamEvent{Type: EventMessage, Text: streamFallbackMessage}
	events <- StreamEvent{Type: EventMetadata, Metadata: &StreamMetadata{
		SessionID:        conv.SessionID,
		ConfidenceScore:  0,
		HandoffTriggered: true,
	}}
}

func (s *ChatService) handOff(ctx context.Context, conv *models.Conversation) {
	if err := s.db.UpdateConversationStatus(ctx, conv.ID, models.ConversationHandedOff); err != nil {
		s.log.Error("could not mark conversation handed off", "conversation_id", conv.ID, "error", err)
	}
	s.touch(ctx, conv.ID)
}

func (s *ChatService) getOrCreateConversation(ctx context.Context, tenantID string, req ChatRequest) (*models.Conversation, error) {
	if req.SessionID != "" {
		conv, err := s.db.GetConversationBySession(ctx, tenantID, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		SessionID: sessionID,
		UserEmail: req.UserEmail,
		Status:    models.ConversationActive,
	}
	if err := s.db.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	s.log.Info("conversation started", "tenant_id", tenantID, "session_id", sessionID)
	return conv, nil
}

// priorTurns returns the recent history window excluding the user turn
// that was just persisted for the current question.
func (s *ChatService) priorTurns(ctx context.Context, conversationID string) ([]models.Message, error) {
	msgs, err := s.db.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(msgs) > 0 {
		msgs = msgs[:len(msgs)-1]
	}
	return msgs, nil
}

func (s *ChatService) saveMessage(ctx context.Context, conv *models.Conversation, role, content string, confidence *float64, faqID *string) error {
	_, err := s.persistTurn(ctx, conv, role, content, confidence, faqID)
	return err
}

func (s *ChatService) persistTurn(ctx context.Context, conv *models.Conversation, role, content string, confidence *float64, faqID *string) (*models.Message, error) {
	msg := &models.Message{
		ID:              uuid.NewString(),
		ConversationID:  conv.ID,
		TenantID:        conv.TenantID,
		Role:            role,
		Content:         content,
		ConfidenceScore: confidence,
		FaqEntryID:      faqID,
	}
	if err := s.db.AddMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

// recordBestFaq increments the usage counter of the closest FAQ match and
// returns its id for attribution on the assistant turn. Counter failures
// are logged, never surfaced.
func (s *ChatService) recordBestFaq(ctx context.Context, res models.RetrievalResult) *string {
	if len(res.Faqs) == 0 {
		return nil
	}
	best := res.Faqs[0].Entry.ID
	if err := s.db.IncrementFaqUsage(ctx, best); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("could not increment faq usage", "faq_id", best, "error", err)
	}
	return &best
}

func (s *ChatService) touch(ctx context.Context, conversationID string) {
	if err := s.db.TouchConversation(ctx, conversationID); err != nil {
		s.log.Error("could not touch conversation", "conversation_id", conversationID, "error", err)
	}
}

func buildSources(res models.RetrievalResult) []SourceReference {
	sources := make([]SourceReference, 0, len(res.Faqs)+len(res.Chunks))
	for _, m := range res.Faqs {
		sources = append(sources, SourceReference{
			Type:  "FAQ",
			Title: m.Entry.Question,
			ID:    m.Entry.ID,
		})
	}
	for _, m := range res.Chunks {
		sources = append(sources, SourceReference{
			Type:  "DOCUMENT",
			Title: fmt.Sprintf("%s (Abschnitt %d)", m.DocumentTitle, m.Chunk.ChunkIndex+1),
			URL:   m.DocumentURL,
			ID:    m.Chunk.DocumentID,
		})
	}
	return sources
}
