package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
)

type announcementRepo struct {
	db DBTX
}

// NewAnnouncementRepository returns a pgx-backed AnnouncementRepository.
func NewAnnouncementRepository(db DBTX) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) Create(ctx context.Context, a *domain.Announcement) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO announcements (id, author_id, title, content, media_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.AuthorID, a.Title, a.Content, a.MediaURL, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert announcement: %w", err)
	}
	return nil
}

func (r *announcementRepo) List(ctx context.Context) ([]domain.AnnouncementView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.author_id, a.title, a.content, a.media_url, a.created_at, u.username
		FROM announcements a
		JOIN users u ON u.id = a.author_id
		ORDER BY a.created_at DESC, a.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	var out []domain.AnnouncementView
	for rows.Next() {
		var v domain.AnnouncementView
		a := &v.Announcement
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Content, &a.MediaURL, &a.CreatedAt, &v.AuthorUsername); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *announcementRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete announcement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
