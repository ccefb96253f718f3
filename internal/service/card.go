package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/repository"
)

// CardService gates card draws behind a per-user cooldown. The cooldown
// configured here is authoritative; clients only display it.
type CardService struct {
	draws    repository.CardDrawRepository
	cooldown time.Duration
	events   *Events
	logger   *slog.Logger
	now      Clock

	// mu serialises the check-then-insert in Draw within this process.
	mu sync.Mutex
}

// NewCardService creates a new CardService.
func NewCardService(store repository.Store, cooldown time.Duration, events *Events, logger *slog.Logger) *CardService {
	return &CardService{
		draws:    store.Cards,
		cooldown: cooldown,
		events:   events,
		logger:   logger,
		now:      systemClock,
	}
}

// DrawCardInput describes the card the client picked.
type DrawCardInput struct {
	CardID     string `json:"cardId" validate:"required,max=64"`
	CardTitle  string `json:"cardTitle" validate:"required,max=100"`
	CardType   string `json:"cardType" validate:"required,max=32"`
	CardEffect string `json:"cardEffect" validate:"required,max=500"`
}

// Eligibility reports whether userID may draw now.
func (s *CardService) Eligibility(ctx context.Context, userID uuid.UUID) (*domain.DrawEligibility, error) {
	last, err := s.draws.Latest(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("latest card draw", err)
	}
	e := domain.CheckDrawEligibility(last, s.cooldown, s.now())
	return &e, nil
}

// Draw records a card draw if the cooldown has elapsed.
func (s *CardService) Draw(ctx context.Context, userID uuid.UUID, in DrawCardInput) (*domain.CardDraw, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.Eligibility(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !e.CanDraw {
		return nil, domain.ErrCooldown(*e.NextDrawAt)
	}

	draw := &domain.CardDraw{
		ID:         uuid.New(),
		UserID:     userID,
		CardID:     in.CardID,
		CardTitle:  in.CardTitle,
		CardType:   in.CardType,
		CardEffect: in.CardEffect,
		DrawnAt:    s.now(),
	}
	if err := s.draws.Create(ctx, draw); err != nil {
		return nil, domain.ErrInternal("record card draw", err)
	}

	s.events.Emit(ctx, domain.NewCardDrawnEvent(draw))
	return draw, nil
}
