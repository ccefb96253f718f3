package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitors/server/internal/domain"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.auth.Register(ctx, Credentials{Username: "  Alice ", Codeword: "pass1234"})
	require.NoError(t, err)

	u := res.User
	assert.Equal(t, "Alice", u.Username)
	assert.False(t, u.IsGameMaster)
	assert.Equal(t, domain.Symbols[3], u.Symbol)
	assert.Equal(t, domain.AvatarFor("alice"), u.Avatar)
	assert.NotEqual(t, "pass1234", u.CodewordHash)

	require.NotNil(t, res.Session)
	assert.Equal(t, u.ID, res.Session.UserID)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), res.Session.ExpiresAt)

	vote, err := f.store.Votes.FindByVoter(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, vote, "registration creates an empty vote row")
	assert.Nil(t, vote.TargetID)

	assert.Contains(t, f.pub.Topics(), "traitors.user.registered")
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      Credentials
		wantMsg string
	}{
		{"missing username", Credentials{Codeword: "pass1234"}, "username is required"},
		{"short username", Credentials{Username: "ab", Codeword: "pass1234"}, "username must be at least 3 characters"},
		{"long username", Credentials{Username: "abcdefghijklmnopqrs", Codeword: "pass1234"}, "username must be at most 18 characters"},
		{"short codeword", Credentials{Username: "alice", Codeword: "abc"}, "codeword must be at least 4 characters"},
		{"long codeword", Credentials{Username: "alice", Codeword: "abcdefghijklmnopqrstuvwxyz0123456"}, "codeword must be at most 32 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.auth.Register(context.Background(), tt.in)
			appErr := requireAppError(t, err, "VALIDATION_ERROR")
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.Equal(t, 400, appErr.Status)
		})
	}
}

func TestRegister_DuplicateUsernameConflicts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	for _, name := range []string{"alice", "ALICE", "Alice"} {
		_, err := f.auth.Register(context.Background(), Credentials{Username: name, Codeword: "different-codeword"})
		requireAppError(t, err, "CONFLICT")
	}
}

func TestRegisterGameMaster(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		username string
		wantCode string
	}{
		{"correct secret", "castle-key", "host", ""},
		{"wrong secret", "guess", "host", "FORBIDDEN"},
		{"missing secret", "", "host", "FORBIDDEN"},
		{"secret checked before validation", "wrong", "x", "FORBIDDEN"},
		{"valid secret then validation", "castle-key", "x", "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.auth.RegisterGameMaster(context.Background(), GameMasterInput{
				Username: tt.username, Codeword: "pass1234", Secret: tt.secret,
			})
			if tt.wantCode != "" {
				requireAppError(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.User.IsGameMaster)
		})
	}
}

func TestRegisterGameMaster_UnconfiguredSecretAlwaysForbidden(t *testing.T) {
	f := newFixture(t)
	f.auth.cfg.GameMasterSecret = ""

	_, err := f.auth.RegisterGameMaster(context.Background(), GameMasterInput{
		Username: "host", Codeword: "pass1234", Secret: "",
	})
	requireAppError(t, err, "FORBIDDEN")
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "Alice")

	res, err := f.auth.Login(ctx, LoginInput{Username: "alice", Codeword: "pass1234"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res.User.ID)
	assert.NotNil(t, res.Session)

	_, errWrong := f.auth.Login(ctx, LoginInput{Username: "alice", Codeword: "wrong-one"})
	_, errUnknown := f.auth.Login(ctx, LoginInput{Username: "mallory", Codeword: "pass1234"})

	wrong := requireAppError(t, errWrong, "UNAUTHORIZED")
	unknown := requireAppError(t, errUnknown, "UNAUTHORIZED")
	assert.Equal(t, "invalid credentials", wrong.Message)
	assert.Equal(t, wrong.Message, unknown.Message, "unknown user and wrong codeword are indistinguishable")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.auth.Register(ctx, Credentials{Username: "alice", Codeword: "pass1234"})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, res.Session.ID))
	sess, err := f.store.Sessions.Find(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, sess)

	assert.NoError(t, f.auth.Logout(ctx, uuid.New()), "logging out twice is fine")
}

func TestMe_IncludesVoteTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	me, err := f.auth.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, me.User.ID)
	assert.Nil(t, me.VoteTarget)

	_, err = f.votes.Cast(ctx, alice, CastVoteInput{TargetID: bob.ID.String()})
	require.NoError(t, err)

	me, err = f.auth.Me(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, me.VoteTarget)
	assert.Equal(t, bob.ID, me.VoteTarget.ID)
	assert.Equal(t, "bob", me.VoteTarget.Username)
}

func TestChangeCodeword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	err := f.auth.ChangeCodeword(ctx, alice.ID, ChangeCodewordInput{CurrentCodeword: "nope", NewCodeword: "newpass99"})
	requireAppError(t, err, "UNAUTHORIZED")

	err = f.auth.ChangeCodeword(ctx, alice.ID, ChangeCodewordInput{CurrentCodeword: "pass1234", NewCodeword: "abc"})
	requireAppError(t, err, "VALIDATION_ERROR")

	require.NoError(t, f.auth.ChangeCodeword(ctx, alice.ID, ChangeCodewordInput{CurrentCodeword: "pass1234", NewCodeword: "newpass99"}))

	_, err = f.auth.Login(ctx, LoginInput{Username: "alice", Codeword: "pass1234"})
	requireAppError(t, err, "UNAUTHORIZED")

	_, err = f.auth.Login(ctx, LoginInput{Username: "alice", Codeword: "newpass99"})
	assert.NoError(t, err)
}

func TestPlayers_OrderedCaseInsensitively(t *testing.T) {
	f := newFixture(t)
	f.register(t, "charlie")
	f.register(t, "Bob")
	f.registerGM(t, "alice")

	players, err := f.auth.Players(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "alice", players[0].Username)
	assert.True(t, players[0].IsGameMaster)
	assert.Equal(t, "Bob", players[1].Username)
	assert.Equal(t, "charlie", players[2].Username)
}
