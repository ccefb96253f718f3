package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitors/server/internal/domain"
)

type fakeSessions struct {
	sessions map[uuid.UUID]*domain.Session
	deleted  []uuid.UUID
	err      error
}

func (f *fakeSessions) Find(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[id], nil
}

func (f *fakeSessions) Delete(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	delete(f.sessions, id)
	return nil
}

type fakeUsers map[uuid.UUID]*domain.User

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return f[id], nil
}

type authFixture struct {
	auth     *Authenticator
	tokens   *SessionTokens
	sessions *fakeSessions
	user     *domain.User
	session  *domain.Session
	now      time.Time
}

func newAuthFixture(t *testing.T, gameMaster bool) *authFixture {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	user := &domain.User{ID: uuid.New(), Username: "alice", IsGameMaster: gameMaster}
	sess := &domain.Session{ID: uuid.New(), UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour)}

	tokens := NewSessionTokens("test-secret")
	sessions := &fakeSessions{sessions: map[uuid.UUID]*domain.Session{sess.ID: sess}}
	a := NewAuthenticator(tokens, sessions, fakeUsers{user.ID: user}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return now }

	return &authFixture{auth: a, tokens: tokens, sessions: sessions, user: user, session: sess, now: now}
}

func (f *authFixture) request(t *testing.T, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return req
}

func (f *authFixture) validToken(t *testing.T) string {
	t.Helper()
	// Sign with a far-future expiry so the wall clock never invalidates the JWT;
	// session expiry is judged against the fixture clock.
	s := *f.session
	s.ExpiresAt = time.Now().Add(time.Hour)
	token, err := f.tokens.Issue(&s)
	require.NoError(t, err)
	return token
}

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["code"]
}

func TestRequireSession_PassesUserThrough(t *testing.T) {
	f := newAuthFixture(t, false)

	var seen *domain.User
	h := f.auth.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		assert.Equal(t, f.session.ID, SessionFromContext(r.Context()).ID)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, f.request(t, f.validToken(t)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, f.user.ID, seen.ID)
}

func TestRequireSession_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *authFixture) string
	}{
		{"no cookie", func(t *testing.T, f *authFixture) string { return "" }},
		{"garbage token", func(t *testing.T, f *authFixture) string { return "not-a-jwt" }},
		{"revoked session", func(t *testing.T, f *authFixture) string {
			token := f.validToken(t)
			delete(f.sessions.sessions, f.session.ID)
			return token
		}},
		{"expired session", func(t *testing.T, f *authFixture) string {
			token := f.validToken(t)
			f.auth.now = func() time.Time { return f.session.ExpiresAt }
			return token
		}},
		{"forged subject", func(t *testing.T, f *authFixture) string {
			s := *f.session
			s.UserID = uuid.New()
			s.ExpiresAt = time.Now().Add(time.Hour)
			token, err := f.tokens.Issue(&s)
			require.NoError(t, err)
			return token
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, false)
			token := tt.setup(t, f)

			called := false
			h := f.auth.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, f.request(t, token))

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHORIZED", decodeCode(t, rec))
		})
	}
}

func TestRequireSession_ExpiredSessionIsDeleted(t *testing.T) {
	f := newAuthFixture(t, false)
	token := f.validToken(t)
	f.auth.now = func() time.Time { return f.session.ExpiresAt.Add(time.Second) }

	_, _, err := f.auth.Resolve(f.request(t, token))
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, []uuid.UUID{f.session.ID}, f.sessions.deleted)
}

func TestRequireSession_StorageFailureIs500(t *testing.T) {
	f := newAuthFixture(t, false)
	token := f.validToken(t)
	f.sessions.err = errors.New("db down")

	h := f.auth.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, f.request(t, token))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeCode(t, rec))
}

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name       string
		user       *domain.User
		wantStatus int
	}{
		{"game master allowed", &domain.User{IsGameMaster: true}, http.StatusOK},
		{"player forbidden", &domain.User{IsGameMaster: false}, http.StatusForbidden},
		{"anonymous unauthorized", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireCapability(GameMaster)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/votes/details", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user, &domain.Session{}))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	cfg := CookieConfig{TTL: 7 * 24 * time.Hour, Secure: true}

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, cfg, "tok")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 604800, c.MaxAge)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, cfg)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
