package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/traitors/server/internal/domain"
)

type messageRepo struct {
	db DBTX
}

// NewMessageRepository returns a pgx-backed MessageRepository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepo{db: db}
}

const messageViewSelect = `
	SELECT m.id, m.sender_id, m.receiver_id, m.content, m.is_private, m.media_url, m.created_at,
	       s.username, s.symbol, s.avatar
	FROM messages m
	JOIN users s ON s.id = m.sender_id`

func (r *messageRepo) Create(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content, is_private, media_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.IsPrivate, msg.MediaURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *messageRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var m domain.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, sender_id, receiver_id, content, is_private, media_url, created_at
		FROM messages WHERE id = $1`, id).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsPrivate, &m.MediaURL, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &m, nil
}

func (r *messageRepo) ListPublic(ctx context.Context) ([]domain.MessageView, error) {
	rows, err := r.db.Query(ctx, messageViewSelect+`
		WHERE NOT m.is_private
		ORDER BY m.created_at ASC, m.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list public messages: %w", err)
	}
	return collectMessageViews(rows)
}

func (r *messageRepo) ListThread(ctx context.Context, a, b uuid.UUID) ([]domain.MessageView, error) {
	rows, err := r.db.Query(ctx, messageViewSelect+`
		WHERE m.is_private
		  AND ((m.sender_id = $1 AND m.receiver_id = $2) OR (m.sender_id = $2 AND m.receiver_id = $1))
		ORDER BY m.created_at ASC, m.id ASC`, a, b)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return collectMessageViews(rows)
}

func (r *messageRepo) ListReceived(ctx context.Context, receiverID uuid.UUID) ([]domain.MessageView, error) {
	rows, err := r.db.Query(ctx, messageViewSelect+`
		WHERE m.is_private AND m.receiver_id = $1
		ORDER BY m.created_at DESC, m.id DESC`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("list received messages: %w", err)
	}
	return collectMessageViews(rows)
}

func (r *messageRepo) CountReceived(ctx context.Context, receiverID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE is_private AND receiver_id = $1`, receiverID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count received messages: %w", err)
	}
	return n, nil
}

func (r *messageRepo) ListPrivate(ctx context.Context) ([]domain.MonitoredMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.sender_id, m.receiver_id, m.content, m.is_private, m.media_url, m.created_at,
		       s.username, rcv.username
		FROM messages m
		JOIN users s ON s.id = m.sender_id
		JOIN users rcv ON rcv.id = m.receiver_id
		WHERE m.is_private
		ORDER BY m.created_at ASC, m.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list private messages: %w", err)
	}
	defer rows.Close()

	var out []domain.MonitoredMessage
	for rows.Next() {
		var mm domain.MonitoredMessage
		m := &mm.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsPrivate, &m.MediaURL, &m.CreatedAt,
			&mm.SenderUsername, &mm.ReceiverUsername); err != nil {
			return nil, fmt.Errorf("scan monitored message: %w", err)
		}
		out = append(out, mm)
	}
	return out, rows.Err()
}

func collectMessageViews(rows pgx.Rows) ([]domain.MessageView, error) {
	defer rows.Close()

	var out []domain.MessageView
	for rows.Next() {
		var v domain.MessageView
		m := &v.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsPrivate, &m.MediaURL, &m.CreatedAt,
			&v.SenderUsername, &v.SenderSymbol, &v.SenderAvatar); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
