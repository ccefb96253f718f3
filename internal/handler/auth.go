package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/guard"
	"github.com/traitors/server/internal/service"
)

// AuthHandler handles registration, login and session endpoints.
type AuthHandler struct {
	authSvc *service.AuthService
	tokens  *auth.SessionTokens
	authn   *auth.Authenticator
	cookie  auth.CookieConfig
	lockout *guard.LoginLockout
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, tokens *auth.SessionTokens, authn *auth.Authenticator, cookie auth.CookieConfig, lockout *guard.LoginLockout, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		tokens:  tokens,
		authn:   authn,
		cookie:  cookie,
		lockout: lockout,
		logger:  logger,
	}
}

type userResponse struct {
	User *domain.User `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input service.Credentials
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	result, err := h.authSvc.Register(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	h.startSession(w, http.StatusCreated, result)
}

// RegisterGameMaster handles POST /api/auth/gamemaster.
func (h *AuthHandler) RegisterGameMaster(w http.ResponseWriter, r *http.Request) {
	var input service.GameMasterInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	result, err := h.authSvc.RegisterGameMaster(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	h.startSession(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login. Repeated failures for the same username
// from the same client lock that pair out for a while.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	key := strings.ToLower(strings.TrimSpace(input.Username)) + "@" + ClientIP(r)
	if res := h.lockout.Check(r.Context(), key); !res.Allowed {
		tooManyRequests(w, res)
		return
	}

	result, err := h.authSvc.Login(r.Context(), input)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) && appErr.Status == http.StatusUnauthorized {
			h.lockout.RecordFailure(key)
		}
		RespondError(w, err)
		return
	}
	h.lockout.RecordSuccess(key)
	h.startSession(w, http.StatusOK, result)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, status int, result *service.AuthResult) {
	token, err := h.tokens.Issue(result.Session)
	if err != nil {
		RespondError(w, domain.ErrInternal("issue session token", err))
		return
	}
	auth.SetSessionCookie(w, h.cookie, token)
	RespondJSON(w, status, userResponse{User: result.User})
}

// Logout handles POST /api/auth/logout. It always succeeds and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	_, sess, err := h.authn.Resolve(r)
	if err == nil && sess != nil {
		if err := h.authSvc.Logout(r.Context(), sess.ID); err != nil {
			h.logger.Warn("logout: delete session", "session_id", sess.ID, "error", err)
		}
	}
	auth.ClearSessionCookie(w, h.cookie)
	RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	me, err := h.authSvc.Me(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, me)
}

// ChangeCodeword handles POST /api/auth/change-codeword.
func (h *AuthHandler) ChangeCodeword(w http.ResponseWriter, r *http.Request) {
	var input service.ChangeCodewordInput
	if err := DecodeJSON(r, &input); err != nil {
		respondBadBody(w)
		return
	}

	user := auth.UserFromContext(r.Context())
	if err := h.authSvc.ChangeCodeword(r.Context(), user.ID, input); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "codeword updated"})
}
