package handler

import (
	"net/http"

	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/service"
)

// VoteHandler handles voting and the suspicion tally.
type VoteHandler struct {
	votes *service.VoteService
}

// NewVoteHandler creates a new VoteHandler.
func NewVoteHandler(votes *service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// Cast handles POST /api/votes.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	var input service.CastVoteInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	result, err := h.votes.Cast(r.Context(), auth.UserFromContext(r.Context()), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Clear handles DELETE /api/votes.
func (h *VoteHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.votes.Clear(r.Context(), auth.UserFromContext(r.Context())); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "vote cleared"})
}

// Suspicion handles GET /api/suspicion.
func (h *VoteHandler) Suspicion(w http.ResponseWriter, r *http.Request) {
	tally, err := h.votes.Tally(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, tally)
}

// Details handles GET /api/votes/details (game master).
func (h *VoteHandler) Details(w http.ResponseWriter, r *http.Request) {
	details, err := h.votes.Details(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, details)
}
