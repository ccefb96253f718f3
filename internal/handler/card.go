package handler

import (
	"net/http"

	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/service"
)

// CardHandler handles fate card draws.
type CardHandler struct {
	cards *service.CardService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards *service.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// CanDraw handles GET /api/cards/can-draw.
func (h *CardHandler) CanDraw(w http.ResponseWriter, r *http.Request) {
	e, err := h.cards.Eligibility(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, e)
}

// Draw handles POST /api/cards/draw.
func (h *CardHandler) Draw(w http.ResponseWriter, r *http.Request) {
	var input service.DrawCardInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	draw, err := h.cards.Draw(r.Context(), auth.UserFromContext(r.Context()).ID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, draw)
}
