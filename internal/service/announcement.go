package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/auth"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/repository"
)

// AnnouncementService manages game master broadcasts.
type AnnouncementService struct {
	announcements repository.AnnouncementRepository
	media         MediaNormalizer
	events        *Events
	logger        *slog.Logger
	now           Clock
}

// NewAnnouncementService creates a new AnnouncementService.
func NewAnnouncementService(store repository.Store, media MediaNormalizer, events *Events, logger *slog.Logger) *AnnouncementService {
	return &AnnouncementService{
		announcements: store.Announcements,
		media:         media,
		events:        events,
		logger:        logger,
		now:           systemClock,
	}
}

// CreateAnnouncementInput is the body of an announcement.
type CreateAnnouncementInput struct {
	Title    string  `json:"title" validate:"required,max=100"`
	Content  string  `json:"content" validate:"required,max=1000"`
	MediaURL *string `json:"mediaUrl" validate:"omitempty,max=2048"`
}

// Create publishes an announcement authored by a game master.
func (s *AnnouncementService) Create(ctx context.Context, author *domain.User, in CreateAnnouncementInput) (*domain.Announcement, error) {
	if !auth.GameMaster.Allows(author) {
		return nil, domain.ErrForbidden("game master access required")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	a := &domain.Announcement{
		ID:        uuid.New(),
		AuthorID:  author.ID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: s.now(),
	}
	mediaURL, err := mediaObjectPath(s.media, in.MediaURL)
	if err != nil {
		return nil, err
	}
	a.MediaURL = mediaURL

	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, domain.ErrInternal("create announcement", err)
	}

	s.logger.Info("announcement created", "announcement_id", a.ID, "author_id", author.ID)
	s.events.Emit(ctx, domain.NewAnnouncementEvent(a.ID, domain.EventAnnouncementCreated, a.Title))
	return a, nil
}

// List returns all announcements, newest first.
func (s *AnnouncementService) List(ctx context.Context) ([]domain.AnnouncementView, error) {
	list, err := s.announcements.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list announcements", err)
	}
	return orEmpty(list), nil
}

// Delete removes an announcement. Deleting one that no longer exists is a 404.
func (s *AnnouncementService) Delete(ctx context.Context, actor *domain.User, rawID string) error {
	if !auth.GameMaster.Allows(actor) {
		return domain.ErrForbidden("game master access required")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.ErrValidation("id must be a valid id")
	}

	deleted, err := s.announcements.Delete(ctx, id)
	if err != nil {
		return domain.ErrInternal("delete announcement", err)
	}
	if !deleted {
		return domain.ErrNotFound("announcement", id.String())
	}

	s.logger.Info("announcement deleted", "announcement_id", id, "actor_id", actor.ID)
	s.events.Emit(ctx, domain.NewAnnouncementEvent(id, domain.EventAnnouncementDeleted, ""))
	return nil
}
