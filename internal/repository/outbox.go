package repository

import (
	"context"
	"fmt"

	"github.com/traitors/server/internal/domain"
)

type outboxRepo struct {
	db DBTX
}

// NewOutboxRepository returns a pgx-backed OutboxRepository.
func NewOutboxRepository(db DBTX) OutboxRepository {
	return &outboxRepo{db: db}
}

// Publish appends the event to event_outbox; the relay forwards it later.
func (r *outboxRepo) Publish(ctx context.Context, topic string, key, value []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO event_outbox (topic, event_key, payload) VALUES ($1, $2, $3)`,
		topic, key, value)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepo) FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, topic, event_key, payload, created_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished events: %w", err)
	}
	defer rows.Close()

	var records []domain.OutboxRecord
	for rows.Next() {
		var rec domain.OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.Topic, &rec.Key, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *outboxRepo) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE event_outbox SET published_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	return nil
}
