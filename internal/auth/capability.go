package auth

import "github.com/traitors/server/internal/domain"

// Capability is a named predicate over the authenticated user. Routes that
// need a privilege declare it with RequireCapability instead of checking
// flags inline.
type Capability struct {
	Name   string
	Allows func(u *domain.User) bool
}

// GameMaster is held by users registered with the game master secret. It
// grants announcements and full visibility of votes and private messages.
var GameMaster = Capability{
	Name:   "game master",
	Allows: func(u *domain.User) bool { return u != nil && u.IsGameMaster },
}
