package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered player or game master.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	CodewordHash string    `json:"-"`
	Symbol       string    `json:"symbol"`
	Avatar       string    `json:"avatar"`
	IsGameMaster bool      `json:"isGameMaster"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Player is the public projection of a User shown to other players.
type Player struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Symbol       string    `json:"symbol"`
	Avatar       string    `json:"avatar"`
	IsGameMaster bool      `json:"isGameMaster"`
}

// Public returns the fields of u that every player may see.
func (u *User) Public() Player {
	return Player{
		ID:           u.ID,
		Username:     u.Username,
		Symbol:       u.Symbol,
		Avatar:       u.Avatar,
		IsGameMaster: u.IsGameMaster,
	}
}

// Session binds a browser cookie to a user until ExpiresAt.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
