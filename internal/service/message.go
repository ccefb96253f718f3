package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/guard"
	"github.com/traitors/server/internal/repository"
)

const duplicateSendWindow = 10 * time.Minute

// MessageService handles the public feed and private messages.
type MessageService struct {
	users    repository.UserRepository
	messages repository.MessageRepository
	media    MediaNormalizer
	dedupe   *guard.IdempotencyGuard
	events   *Events
	logger   *slog.Logger
	now      Clock
}

// NewMessageService creates a new MessageService.
func NewMessageService(store repository.Store, media MediaNormalizer, events *Events, logger *slog.Logger) *MessageService {
	return &MessageService{
		users:    store.Users,
		messages: store.Messages,
		media:    media,
		dedupe:   guard.NewIdempotencyGuard(duplicateSendWindow),
		events:   events,
		logger:   logger,
		now:      systemClock,
	}
}

// SendMessageInput is the body of a send request. ClientID, when set, makes
// resubmissions within a few minutes return the first stored message instead
// of posting twice.
type SendMessageInput struct {
	Content    string  `json:"content" validate:"required,max=500"`
	IsPrivate  bool    `json:"isPrivate"`
	ReceiverID *string `json:"receiverId"`
	MediaURL   *string `json:"mediaUrl" validate:"omitempty,max=2048"`
	ClientID   string  `json:"clientId" validate:"omitempty,max=64"`
}

// Send stores a public or private message from sender.
func (s *MessageService) Send(ctx context.Context, sender *domain.User, in SendMessageInput) (*domain.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		SenderID:  sender.ID,
		Content:   in.Content,
		IsPrivate: in.IsPrivate,
		CreatedAt: s.now(),
	}

	if in.IsPrivate {
		receiverID, err := s.resolveReceiver(ctx, sender, in.ReceiverID)
		if err != nil {
			return nil, err
		}
		msg.ReceiverID = &receiverID
	}

	mediaURL, err := mediaObjectPath(s.media, in.MediaURL)
	if err != nil {
		return nil, err
	}
	msg.MediaURL = mediaURL

	dedupeKey := ""
	if in.ClientID != "" {
		dedupeKey = sender.ID.String() + ":" + in.ClientID
	}
	if res := s.dedupe.Check(ctx, dedupeKey); !res.Allowed {
		return s.replay(ctx, dedupeKey)
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		s.dedupe.Remove(dedupeKey)
		return nil, domain.ErrInternal("create message", err)
	}
	s.dedupe.Complete(dedupeKey, msg.ID.String())

	s.events.Emit(ctx, domain.NewMessageSentEvent(msg))
	return msg, nil
}

// replay returns the message stored by an earlier send with the same key.
func (s *MessageService) replay(ctx context.Context, dedupeKey string) (*domain.Message, error) {
	stored, ok := s.dedupe.Result(dedupeKey)
	if !ok {
		return nil, domain.ErrConflict("message is still being sent")
	}
	id, err := uuid.Parse(stored)
	if err != nil {
		return nil, domain.ErrInternal("parse stored message id", err)
	}
	msg, err := s.messages.FindByID(ctx, id)
	if err != nil {
		return nil, domain.ErrInternal("find message", err)
	}
	if msg == nil {
		return nil, domain.ErrConflict("message already sent")
	}
	s.logger.Debug("duplicate send replayed", "message_id", msg.ID)
	return msg, nil
}

func (s *MessageService) resolveReceiver(ctx context.Context, sender *domain.User, raw *string) (uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return uuid.Nil, domain.ErrValidation("receiverId is required for private messages")
	}
	receiverID, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("receiverId must be a valid id")
	}
	if receiverID == sender.ID {
		return uuid.Nil, domain.ErrValidation("you cannot send a private message to yourself")
	}

	receiver, err := s.users.FindByID(ctx, receiverID)
	if err != nil {
		return uuid.Nil, domain.ErrInternal("find receiver", err)
	}
	if receiver == nil {
		return uuid.Nil, domain.ErrNotFound("player", receiverID.String())
	}
	return receiverID, nil
}

// Public returns the public feed, oldest first.
func (s *MessageService) Public(ctx context.Context) ([]domain.MessageView, error) {
	msgs, err := s.messages.ListPublic(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list public messages", err)
	}
	return orEmpty(msgs), nil
}

// Thread returns the private conversation between the caller and another
// player, oldest first. Only messages with the caller on one end are returned.
func (s *MessageService) Thread(ctx context.Context, caller *domain.User, rawTargetID string) ([]domain.MessageView, error) {
	targetID, err := uuid.Parse(rawTargetID)
	if err != nil {
		return nil, domain.ErrValidation("targetId must be a valid id")
	}
	msgs, err := s.messages.ListThread(ctx, caller.ID, targetID)
	if err != nil {
		return nil, domain.ErrInternal("list thread", err)
	}
	return orEmpty(msgs), nil
}

// Received returns the caller's received private messages, newest first.
func (s *MessageService) Received(ctx context.Context, caller *domain.User) ([]domain.MessageView, error) {
	msgs, err := s.messages.ListReceived(ctx, caller.ID)
	if err != nil {
		return nil, domain.ErrInternal("list received messages", err)
	}
	return orEmpty(msgs), nil
}

// ReceivedCount returns how many private messages the caller has received.
// Read state is not tracked, so this is also the "unread" badge count.
func (s *MessageService) ReceivedCount(ctx context.Context, caller *domain.User) (int, error) {
	n, err := s.messages.CountReceived(ctx, caller.ID)
	if err != nil {
		return 0, domain.ErrInternal("count received messages", err)
	}
	return n, nil
}

// Inbox groups the caller's received private messages by sender.
func (s *MessageService) Inbox(ctx context.Context, caller *domain.User) ([]domain.InboxEntry, error) {
	msgs, err := s.messages.ListReceived(ctx, caller.ID)
	if err != nil {
		return nil, domain.ErrInternal("list received messages", err)
	}
	return domain.BuildInbox(msgs), nil
}

// AllPrivate returns every private message for game master monitoring.
func (s *MessageService) AllPrivate(ctx context.Context) ([]domain.MonitoredMessage, error) {
	msgs, err := s.messages.ListPrivate(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list private messages", err)
	}
	return orEmpty(msgs), nil
}
