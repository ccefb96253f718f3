package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStore builds a Store whose repositories all share pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return Store{
		Users:         NewPgUserRepository(pool),
		Votes:         NewVoteRepository(pool),
		Messages:      NewMessageRepository(pool),
		Announcements: NewAnnouncementRepository(pool),
		Cards:         NewCardDrawRepository(pool),
		Sessions:      NewSessionRepository(pool),
		Health:        pool,
	}
}
