package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/service"
)

// AnnouncementHandler handles game master announcements.
type AnnouncementHandler struct {
	announcements *service.AnnouncementService
}

// NewAnnouncementHandler creates a new AnnouncementHandler.
func NewAnnouncementHandler(announcements *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// List handles GET /api/announcements.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.announcements.List(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, list)
}

// Create handles POST /api/announcements.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateAnnouncementInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	a, err := h.announcements.Create(r.Context(), auth.UserFromContext(r.Context()), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, a)
}

// Delete handles DELETE /api/announcements/{id}.
func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.announcements.Delete(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
