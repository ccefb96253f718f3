package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardDraw records a card a player drew. Card effects are played out by the
// players themselves; the record only gates the next draw.
type CardDraw struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	CardID     string    `json:"cardId"`
	CardTitle  string    `json:"cardTitle"`
	CardType   string    `json:"cardType"`
	CardEffect string    `json:"cardEffect"`
	DrawnAt    time.Time `json:"drawnAt"`
}

// DrawEligibility describes whether a user may draw now.
type DrawEligibility struct {
	CanDraw    bool       `json:"canDraw"`
	NextDrawAt *time.Time `json:"nextDrawAt"`
	LastDraw   *CardDraw  `json:"lastDraw"`
}

// CheckDrawEligibility applies the cooldown rule: a user may draw when they
// never drew, or when their latest draw is at least cooldown old.
func CheckDrawEligibility(last *CardDraw, cooldown time.Duration, now time.Time) DrawEligibility {
	if last == nil {
		return DrawEligibility{CanDraw: true}
	}
	next := last.DrawnAt.Add(cooldown)
	if !now.Before(next) {
		return DrawEligibility{CanDraw: true, LastDraw: last}
	}
	return DrawEligibility{CanDraw: false, NextDrawAt: &next, LastDraw: last}
}
