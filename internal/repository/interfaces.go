package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/traitors/server/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// DB is a DBTX that can also open transactions (satisfied by *pgxpool.Pool).
type DB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository provides access to users.
type UserRepository interface {
	// Create inserts the user together with its empty vote row.
	// Returns ErrDuplicateUsername when the username is taken (ignoring case).
	Create(ctx context.Context, user *domain.User) error

	// FindByID returns a user by ID, or nil if not found.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// FindByUsername returns a user by case-insensitive username, or nil if not found.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// List returns every user ordered by username, ignoring case.
	List(ctx context.Context) ([]domain.User, error)

	// UpdateCodewordHash replaces the stored codeword hash.
	UpdateCodewordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// VoteRepository provides access to votes (one row per voter).
type VoteRepository interface {
	// Upsert sets the voter's target, replacing any previous one. A nil
	// target clears the vote.
	Upsert(ctx context.Context, voterID uuid.UUID, targetID *uuid.UUID) error

	// FindByVoter returns the voter's row, or nil if absent.
	FindByVoter(ctx context.Context, voterID uuid.UUID) (*domain.Vote, error)

	// List returns every vote row.
	List(ctx context.Context) ([]domain.Vote, error)

	// ListDetails returns every vote row joined with voter and target usernames.
	ListDetails(ctx context.Context) ([]domain.VoteDetail, error)
}

// MessageRepository provides access to messages. Messages are append-only.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error

	// FindByID returns the message or nil if it does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)

	// ListPublic returns public messages, oldest first.
	ListPublic(ctx context.Context) ([]domain.MessageView, error)

	// ListThread returns private messages exchanged between a and b in either
	// direction, oldest first.
	ListThread(ctx context.Context, a, b uuid.UUID) ([]domain.MessageView, error)

	// ListReceived returns private messages sent to receiverID, newest first.
	ListReceived(ctx context.Context, receiverID uuid.UUID) ([]domain.MessageView, error)

	// CountReceived returns how many private messages receiverID has received.
	CountReceived(ctx context.Context, receiverID uuid.UUID) (int, error)

	// ListPrivate returns every private message with both usernames, oldest first.
	ListPrivate(ctx context.Context) ([]domain.MonitoredMessage, error)
}

// AnnouncementRepository provides access to announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *domain.Announcement) error

	// List returns announcements newest first with the author's username.
	List(ctx context.Context) ([]domain.AnnouncementView, error)

	// Delete removes an announcement and reports whether it existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// CardDrawRepository provides access to the card draw log.
type CardDrawRepository interface {
	Create(ctx context.Context, draw *domain.CardDraw) error

	// Latest returns the user's most recent draw, or nil if they never drew.
	Latest(ctx context.Context, userID uuid.UUID) (*domain.CardDraw, error)
}

// SessionRepository stores login sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error

	// Find returns a session by ID, or nil if not found.
	Find(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// OutboxRepository buffers game events in Postgres until the relay hands
// them to the event stream.
type OutboxRepository interface {
	Publish(ctx context.Context, topic string, key, value []byte) error

	// FetchUnpublished returns up to limit pending events, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRecord, error)
	MarkPublished(ctx context.Context, id int64) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles the repositories the services depend on. It is built once at
// startup from the configured backend and injected everywhere.
type Store struct {
	Users         UserRepository
	Votes         VoteRepository
	Messages      MessageRepository
	Announcements AnnouncementRepository
	Cards         CardDrawRepository
	Sessions      SessionRepository
	Health        Pinger
}
