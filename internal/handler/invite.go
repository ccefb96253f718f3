package handler

import (
	"net/http"
	"strconv"

	"github.com/skip2/go-qrcode"
	"github.com/traitors/server/internal/domain"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// InviteHandler renders a QR code pointing players at the game.
type InviteHandler struct {
	publicURL string
}

// NewInviteHandler creates a new InviteHandler. An empty publicURL makes the
// code point at the host the request came in on.
func NewInviteHandler(publicURL string) *InviteHandler {
	return &InviteHandler{publicURL: publicURL}
}

// QR handles GET /api/invite/qr, returning a PNG.
func (h *InviteHandler) QR(w http.ResponseWriter, r *http.Request) {
	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			w.Header().Set("Content-Type", "application/json")
			RespondError(w, domain.ErrValidation("size must be between 128 and 1024"))
			return
		}
		size = n
	}

	png, err := qrcode.Encode(h.inviteURL(r), qrcode.Medium, size)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		RespondError(w, domain.ErrInternal("encode qr code", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *InviteHandler) inviteURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/"
}
