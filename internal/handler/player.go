package handler

import (
	"net/http"

	"github.com/traitors/server/internal/service"
)

// PlayerHandler lists players.
type PlayerHandler struct {
	authSvc *service.AuthService
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(authSvc *service.AuthService) *PlayerHandler {
	return &PlayerHandler{authSvc: authSvc}
}

// List handles GET /api/players.
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.authSvc.Players(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, players)
}
