package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitors/server/internal/domain"
)

func newTestSession(ttl time.Duration) *domain.Session {
	now := time.Now()
	return &domain.Session{ID: uuid.New(), UserID: uuid.New(), CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestIssueAndParse(t *testing.T) {
	tokens := NewSessionTokens("test-secret-key")
	sess := newTestSession(time.Hour)

	token, err := tokens.Issue(sess)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tokens.Parse(token)
	require.NoError(t, err)

	sid, err := claims.SessionID()
	require.NoError(t, err)
	assert.Equal(t, sess.ID, sid)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, uid)
}

func TestParse_WrongSecretRejected(t *testing.T) {
	token, err := NewSessionTokens("secret-1").Issue(newTestSession(time.Hour))
	require.NoError(t, err)

	_, err = NewSessionTokens("secret-2").Parse(token)
	assert.Error(t, err)
}

func TestParse_ExpiredRejected(t *testing.T) {
	tokens := NewSessionTokens("secret")
	sess := newTestSession(-time.Minute)

	token, err := tokens.Issue(sess)
	require.NoError(t, err)

	_, err = tokens.Parse(token)
	assert.Error(t, err)
}

func TestParse_RejectsForeignIssuerAndMissingExpiry(t *testing.T) {
	secret := []byte("secret")
	tokens := NewSessionTokens(string(secret))

	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
	}{
		{"foreign issuer", jwt.RegisteredClaims{
			Issuer: "someone-else", Subject: uuid.NewString(), ID: uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}},
		{"no expiry", jwt.RegisteredClaims{
			Issuer: tokenIssuer, Subject: uuid.NewString(), ID: uuid.NewString(),
		}},
		{"bad session id", jwt.RegisteredClaims{
			Issuer: tokenIssuer, Subject: uuid.NewString(), ID: "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tt.claims).SignedString(secret)
			require.NoError(t, err)
			_, err = tokens.Parse(token)
			assert.Error(t, err)
		})
	}
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer: tokenIssuer, Subject: uuid.NewString(), ID: uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSessionTokens("secret").Parse(token)
	assert.Error(t, err)
}
