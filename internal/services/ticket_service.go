package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// HandoffRequest is the customer's explicit request for a human.
type HandoffRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email"`
	Question  string `json:"question,omitempty"`
}

// TicketService records human handoff requests as support tickets.
type TicketService struct {
	db  core.DbClient
	log *slog.Logger
}

func NewTicketService(db core.DbClient, logger *slog.Logger) *TicketService {
	return &TicketService{db: db, log: logger}
}

// CreateHandoffTicket opens a ticket and, when the session is known,
// links its conversation and marks it handed off.
func (s *TicketService) CreateHandoffTicket(ctx context.Context, tenantID string, req HandoffRequest) (*models.SupportTicket, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, fmt.Errorf("%w: email must not be empty", core.ErrValidation)
	}

	var conversationID string
	if req.SessionID != "" {
		conv, err := s.db.GetConversationBySession(ctx, tenantID, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		if conv != nil {
			conversationID = conv.ID
			if err := s.db.UpdateConversationStatus(ctx, conv.ID, models.ConversationHandedOff); err != nil {
				s.log.Error("could not mark conversation handed off", "conversation_id", conv.ID, "error", err)
			}
		}
	}

	ticket := &models.SupportTicket{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		ConversationID:   conversationID,
		CustomerName:     strings.TrimSpace(req.Name),
		CustomerEmail:    strings.TrimSpace(req.Email),
		CustomerQuestion: strings.TrimSpace(req.Question),
		Status:           models.TicketOpen,
		Priority:         models.PriorityMedium,
	}
	if err := s.db.CreateSupportTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.log.Info("handoff ticket created", "tenant_id", tenantID, "ticket_id", ticket.ID)
	return ticket, nil
}
