package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/service"
)

// MessageHandler handles the public feed and private messages.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send handles POST /api/messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var input service.SendMessageInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	msg, err := h.messages.Send(r.Context(), auth.UserFromContext(r.Context()), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, msg)
}

// Public handles GET /api/messages/public.
func (h *MessageHandler) Public(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.Public(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, msgs)
}

// Thread handles GET /api/messages/private/{targetId}.
func (h *MessageHandler) Thread(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.Thread(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "targetId"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, msgs)
}

// Received handles GET /api/messages/private/received.
func (h *MessageHandler) Received(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.Received(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, msgs)
}

// Count handles GET /api/messages/private/count.
func (h *MessageHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.messages.ReceivedCount(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Inbox handles GET /api/messages/inbox.
func (h *MessageHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.messages.Inbox(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, inbox)
}

// AllPrivate handles GET /api/messages/private/admin/all (game master).
func (h *MessageHandler) AllPrivate(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.AllPrivate(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, msgs)
}
