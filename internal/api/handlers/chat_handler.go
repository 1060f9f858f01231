package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/chatq/assist-backend/internal/api/middlewares"
	"github.com/chatq/assist-backend/internal/services"
)

// ChatHandler serves the public widget endpoints.
type ChatHandler struct {
	chat    *services.ChatService
	tickets *services.TicketService
	log     *slog.Logger
}

func NewChatHandler(chat *services.ChatService, tickets *services.TicketService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, tickets: tickets, log: logger}
}

// Chat answers one turn in batch mode.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	resp, err := h.chat.ProcessChat(r.Context(), tenantID, req)
	if err != nil {
		h.log.Error("chat failed", "tenant_id", tenantID, "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ChatStream answers one turn as server-sent events. Event names mirror
// the stream event types; every data payload is a JSON value.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	events, err := h.chat.StreamChat(r.Context(), tenantID, req)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		var payload any
		switch ev.Type {
		case services.EventToken, services.EventMessage:
			payload = ev.Text
		case services.EventMetadata:
			payload = ev.Metadata
		case services.EventMessageID:
			payload = ev.MessageID
		case services.EventError:
			h.log.Error("stream failed", "tenant_id", tenantID, "error", ev.Err)
			payload = "answer generation failed"
		}

		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
		flusher.Flush()
	}
}

// History returns every turn of a session.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.TenantFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionId")

	msgs, err := h.chat.GetConversationHistory(r.Context(), tenantID, sessionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// Handoff opens a support ticket for a human takeover.
func (h *ChatHandler) Handoff(w http.ResponseWriter, r *http.Request) {
	var req services.HandoffRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	tenantID := middleware.TenantFromContext(r.Context())
	ticket, err := h.tickets.CreateHandoffTicket(r.Context(), tenantID, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ticket)
}
