package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/repository"
	"github.com/traitors/server/internal/repository/memory"
	"github.com/traitors/server/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type fixedRandom struct{ n int }

func (f fixedRandom) Intn(_ context.Context, n int) (int, error) { return f.n % n, nil }

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	values [][]byte
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.values = append(p.values, value)
	return p.err
}

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store         repository.Store
	clock         *testClock
	pub           *recordingPublisher
	auth          *AuthService
	votes         *VoteService
	messages      *MessageService
	announcements *AnnouncementService
	cards         *CardService
	media         *MediaService
	objects       *storage.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	clock := &testClock{t: time.Date(2026, 10, 31, 19, 0, 0, 0, time.UTC)}
	pub := &recordingPublisher{}
	events := NewEvents(pub, logger)
	objects := storage.NewMemoryStore("", 15*time.Minute)

	authSvc := NewAuthService(store, fixedRandom{n: 3}, events, AuthConfig{
		GameMasterSecret: "castle-key",
		SessionTTL:       7 * 24 * time.Hour,
	}, logger)
	authSvc.now = clock.Now
	authSvc.hashCost = bcrypt.MinCost

	msgSvc := NewMessageService(store, objects, events, logger)
	msgSvc.now = clock.Now

	annSvc := NewAnnouncementService(store, objects, events, logger)
	annSvc.now = clock.Now

	cardSvc := NewCardService(store, 72*time.Hour, events, logger)
	cardSvc.now = clock.Now

	return &fixture{
		store:         store,
		clock:         clock,
		pub:           pub,
		auth:          authSvc,
		votes:         NewVoteService(store, events, logger),
		messages:      msgSvc,
		announcements: annSvc,
		cards:         cardSvc,
		media:         NewMediaService(objects),
		objects:       objects,
	}
}

func (f *fixture) register(t *testing.T, username string) *domain.User {
	t.Helper()
	res, err := f.auth.Register(context.Background(), Credentials{Username: username, Codeword: "pass1234"})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return res.User
}

func (f *fixture) registerGM(t *testing.T, username string) *domain.User {
	t.Helper()
	res, err := f.auth.RegisterGameMaster(context.Background(), GameMasterInput{
		Username: username, Codeword: "pass1234", Secret: "castle-key",
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return res.User
}

// requireAppError asserts err is an *domain.AppError with the given code.
func requireAppError(t *testing.T, err error, code string) *domain.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
	return appErr
}

func strPtr(s string) *string { return &s }

func TestEvents_PublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	events := NewEvents(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))

	events.Emit(context.Background(), domain.NewVoteEvent(domain.User{}.ID, nil))
	assert.Equal(t, []string{"traitors.vote.cleared"}, pub.Topics())

	var decoded domain.GameEvent
	require.NoError(t, json.Unmarshal(pub.values[0], &decoded))
	assert.Equal(t, domain.EventVoteCleared, decoded.EventType)
}

func TestEvents_NilIsNoop(t *testing.T) {
	var events *Events
	assert.NotPanics(t, func() {
		events.Emit(context.Background(), domain.NewVoteEvent(domain.User{}.ID, nil))
	})
}
