package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds the settings AuthService needs from the environment.
type AuthConfig struct {
	GameMasterSecret string
	SessionTTL       time.Duration
}

// AuthService handles registration, login, sessions and codeword changes.
type AuthService struct {
	users    repository.UserRepository
	votes    repository.VoteRepository
	sessions repository.SessionRepository
	random   RandomSource
	events   *Events
	cfg      AuthConfig
	logger   *slog.Logger
	now      Clock
	hashCost int

	// dummyHash is compared against when the username is unknown so failed
	// logins take the same time either way.
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(store repository.Store, random RandomSource, events *Events, cfg AuthConfig, logger *slog.Logger) *AuthService {
	s := &AuthService{
		users:    store.Users,
		votes:    store.Votes,
		sessions: store.Sessions,
		random:   random,
		events:   events,
		cfg:      cfg,
		logger:   logger,
		now:      systemClock,
		hashCost: bcrypt.DefaultCost,
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("traitors-dummy-codeword"), s.hashCost)
	return s
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=18"`
	Codeword string `json:"codeword" validate:"required,min=4,max=32"`
}

// LoginInput carries login credentials. Lengths are not re-validated so
// every wrong pair fails the same way.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Codeword string `json:"codeword" validate:"required"`
}

// GameMasterInput is the body of a game master registration.
type GameMasterInput struct {
	Username string `json:"username" validate:"required,min=3,max=18"`
	Codeword string `json:"codeword" validate:"required,min=4,max=32"`
	Secret   string `json:"secret"`
}

// ChangeCodewordInput is the body of a codeword change.
type ChangeCodewordInput struct {
	CurrentCodeword string `json:"currentCodeword" validate:"required"`
	NewCodeword     string `json:"newCodeword" validate:"required,min=4,max=32"`
}

// AuthResult is returned when a session is established.
type AuthResult struct {
	User    *domain.User
	Session *domain.Session
}

// Me is the session bootstrap payload.
type Me struct {
	User       *domain.User   `json:"user"`
	VoteTarget *domain.Player `json:"voteTarget"`
}

// Register creates a player and logs them in.
func (s *AuthService) Register(ctx context.Context, in Credentials) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	return s.register(ctx, in.Username, in.Codeword, false)
}

// RegisterGameMaster creates a game master after checking the shared secret.
// The secret is checked before anything else so probing without it reveals
// nothing about usernames or validation rules.
func (s *AuthService) RegisterGameMaster(ctx context.Context, in GameMasterInput) (*AuthResult, error) {
	if !s.gameMasterSecretMatches(in.Secret) {
		return nil, domain.ErrForbidden("invalid game master secret")
	}
	in.Username = strings.TrimSpace(in.Username)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	return s.register(ctx, in.Username, in.Codeword, true)
}

func (s *AuthService) gameMasterSecretMatches(given string) bool {
	if s.cfg.GameMasterSecret == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(s.cfg.GameMasterSecret)) == 1
}

func (s *AuthService) register(ctx context.Context, username, codeword string, gameMaster bool) (*AuthResult, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(codeword), s.hashCost)
	if err != nil {
		return nil, domain.ErrInternal("hash codeword", err)
	}

	idx, err := s.random.Intn(ctx, len(domain.Symbols))
	if err != nil {
		return nil, domain.ErrInternal("pick symbol", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		CodewordHash: string(hash),
		Symbol:       domain.Symbols[idx],
		Avatar:       domain.AvatarFor(username),
		IsGameMaster: gameMaster,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, domain.ErrConflict("username already taken")
		}
		return nil, domain.ErrInternal("create user", err)
	}

	sess, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "game_master", gameMaster)
	s.events.Emit(ctx, domain.NewUserRegisteredEvent(user))
	return &AuthResult{User: user, Session: sess}, nil
}

// Login verifies credentials and starts a session. Unknown usernames and
// wrong codewords produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Codeword))
		return nil, domain.ErrInvalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.CodewordHash), []byte(in.Codeword)); err != nil {
		return nil, domain.ErrInvalidCredentials()
	}

	sess, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: sess}, nil
}

func (s *AuthService) startSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, domain.ErrInternal("create session", err)
	}
	return sess, nil
}

// Logout destroys the session. Unknown sessions are ignored.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return domain.ErrInternal("delete session", err)
	}
	return nil
}

// Me returns the caller and the player they currently suspect, if any.
func (s *AuthService) Me(ctx context.Context, user *domain.User) (*Me, error) {
	me := &Me{User: user}

	vote, err := s.votes.FindByVoter(ctx, user.ID)
	if err != nil {
		return nil, domain.ErrInternal("find vote", err)
	}
	if vote == nil || vote.TargetID == nil {
		return me, nil
	}

	target, err := s.users.FindByID(ctx, *vote.TargetID)
	if err != nil {
		return nil, domain.ErrInternal("find vote target", err)
	}
	if target != nil {
		p := target.Public()
		me.VoteTarget = &p
	}
	return me, nil
}

// ChangeCodeword replaces the caller's codeword after verifying the current one.
func (s *AuthService) ChangeCodeword(ctx context.Context, userID uuid.UUID, in ChangeCodewordInput) error {
	if err := domain.Validate(in); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.ErrInternal("find user", err)
	}
	if user == nil {
		return domain.ErrUnauthorized("not authenticated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.CodewordHash), []byte(in.CurrentCodeword)); err != nil {
		return domain.ErrUnauthorized("current codeword is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewCodeword), s.hashCost)
	if err != nil {
		return domain.ErrInternal("hash codeword", err)
	}
	if err := s.users.UpdateCodewordHash(ctx, userID, string(hash)); err != nil {
		return domain.ErrInternal("update codeword", err)
	}

	s.logger.Info("codeword changed", "user_id", userID)
	return nil
}

// Players lists every user's public fields ordered by username.
func (s *AuthService) Players(ctx context.Context) ([]domain.Player, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list users", err)
	}
	players := make([]domain.Player, 0, len(users))
	for i := range users {
		players = append(players, users[i].Public())
	}
	return players, nil
}
