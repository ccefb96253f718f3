package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/traitors/server/internal/domain"
)

type cardDrawRepo struct {
	db DBTX
}

// NewCardDrawRepository returns a pgx-backed CardDrawRepository.
func NewCardDrawRepository(db DBTX) CardDrawRepository {
	return &cardDrawRepo{db: db}
}

func (r *cardDrawRepo) Create(ctx context.Context, d *domain.CardDraw) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO card_draws (id, user_id, card_id, card_title, card_type, card_effect, drawn_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.UserID, d.CardID, d.CardTitle, d.CardType, d.CardEffect, d.DrawnAt)
	if err != nil {
		return fmt.Errorf("insert card draw: %w", err)
	}
	return nil
}

func (r *cardDrawRepo) Latest(ctx context.Context, userID uuid.UUID) (*domain.CardDraw, error) {
	var d domain.CardDraw
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, card_id, card_title, card_type, card_effect, drawn_at
		FROM card_draws
		WHERE user_id = $1
		ORDER BY drawn_at DESC
		LIMIT 1`, userID).
		Scan(&d.ID, &d.UserID, &d.CardID, &d.CardTitle, &d.CardType, &d.CardEffect, &d.DrawnAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest card draw: %w", err)
	}
	return &d, nil
}
