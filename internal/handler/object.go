package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/traitors/server/internal/service"
	"github.com/traitors/server/internal/storage"
)

// ObjectHandler handles media uploads and downloads.
type ObjectHandler struct {
	media  *service.MediaService
	logger *slog.Logger
}

// NewObjectHandler creates a new ObjectHandler.
func NewObjectHandler(media *service.MediaService, logger *slog.Logger) *ObjectHandler {
	return &ObjectHandler{media: media, logger: logger}
}

// CreateUpload handles POST /api/objects/upload.
func (h *ObjectHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	target, err := h.media.CreateUpload(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, target)
}

// Attach handles PUT /api/media-attachments.
func (h *ObjectHandler) Attach(w http.ResponseWriter, r *http.Request) {
	var input service.AttachMediaInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	result, err := h.media.Attach(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

// Serve handles GET /objects/*, streaming the stored bytes.
func (h *ObjectHandler) Serve(w http.ResponseWriter, r *http.Request) {
	objectPath := storage.ObjectPathPrefix + chi.URLParam(r, "*")

	obj, err := h.media.Open(r.Context(), objectPath)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		RespondError(w, err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("stream object", "path", objectPath, "error", err)
	}
}

// Upload handles PUT /objects/* for stores that receive uploads through
// this server.
func (h *ObjectHandler) Upload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	objectPath := storage.ObjectPathPrefix + chi.URLParam(r, "*")

	err := h.media.Upload(r.Context(), objectPath, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, service.AttachMediaResult{ObjectPath: objectPath})
}
