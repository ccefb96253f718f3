package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
)

type contextKey string

const (
	userKey    contextKey = "auth_user"
	sessionKey contextKey = "auth_session"
)

// ErrNoSession is returned by Resolve when the request carries no usable session.
var ErrNoSession = errors.New("no valid session")

// SessionFinder looks up server-side sessions.
type SessionFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserFinder looks up users by id.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserFromContext returns the authenticated user, or nil outside RequireSession.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// SessionFromContext returns the session the request authenticated with.
func SessionFromContext(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey).(*domain.Session)
	return s
}

// WithUser returns a context carrying the user and session, as RequireSession does.
func WithUser(ctx context.Context, u *domain.User, s *domain.Session) context.Context {
	ctx = context.WithValue(ctx, userKey, u)
	return context.WithValue(ctx, sessionKey, s)
}

// Authenticator resolves session cookies to users.
type Authenticator struct {
	tokens   *SessionTokens
	sessions SessionFinder
	users    UserFinder
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(tokens *SessionTokens, sessions SessionFinder, users UserFinder, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, users: users, logger: logger, now: time.Now}
}

// Resolve returns the user and session behind the request's cookie.
// Missing, forged, expired or revoked sessions all yield ErrNoSession;
// storage failures are returned as-is.
func (a *Authenticator) Resolve(r *http.Request) (*domain.User, *domain.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil, ErrNoSession
	}

	claims, err := a.tokens.Parse(cookie.Value)
	if err != nil {
		return nil, nil, ErrNoSession
	}
	sessionID, _ := claims.SessionID()
	userID, _ := claims.UserID()

	ctx := r.Context()
	sess, err := a.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	if sess == nil || sess.UserID != userID {
		return nil, nil, ErrNoSession
	}
	if sess.Expired(a.now()) {
		if err := a.sessions.Delete(ctx, sess.ID); err != nil {
			a.logger.Warn("failed to delete expired session", "session_id", sess.ID, "error", err)
		}
		return nil, nil, ErrNoSession
	}

	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrNoSession
	}
	return user, sess, nil
}

// RequireSession rejects requests without a valid session with 401 and
// stores the user in the request context otherwise.
func (a *Authenticator) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, sess, err := a.Resolve(r)
		if errors.Is(err, ErrNoSession) {
			writeError(w, domain.ErrUnauthorized("not authenticated"))
			return
		}
		if err != nil {
			a.logger.Error("session lookup failed", "error", err, "path", r.URL.Path)
			writeError(w, domain.ErrInternal("internal server error", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, sess)))
	})
}

// RequireCapability returns middleware that lets the request through only
// when the authenticated user holds c. It must run after RequireSession.
func RequireCapability(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeError(w, domain.ErrUnauthorized("not authenticated"))
				return
			}
			if !c.Allows(user) {
				writeError(w, domain.ErrForbidden(c.Name+" access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, e *domain.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    e.Code,
		"message": e.Message,
	})
}
