// Package memory provides map-backed repositories for development and tests.
// All repositories returned by NewStore share one dataset guarded by a single
// RWMutex, so joins across users, votes and messages see a consistent view.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/repository"
)

type dataset struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]domain.User
	usernames     map[string]uuid.UUID
	votes         map[uuid.UUID]domain.Vote
	messages      []domain.Message
	announcements []domain.Announcement
	draws         []domain.CardDraw
	sessions      map[uuid.UUID]domain.Session
}

// NewStore returns a repository.Store backed by process memory.
func NewStore() repository.Store {
	d := &dataset{
		users:     make(map[uuid.UUID]domain.User),
		usernames: make(map[string]uuid.UUID),
		votes:     make(map[uuid.UUID]domain.Vote),
		sessions:  make(map[uuid.UUID]domain.Session),
	}
	return repository.Store{
		Users:         &userRepo{d},
		Votes:         &voteRepo{d},
		Messages:      &messageRepo{d},
		Announcements: &announcementRepo{d},
		Cards:         &cardDrawRepo{d},
		Sessions:      &sessionRepo{d},
		Health:        pinger{},
	}
}

type pinger struct{}

func (pinger) Ping(context.Context) error { return nil }

func foldUsername(s string) string { return strings.ToLower(s) }

// --- users ---

type userRepo struct{ d *dataset }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	key := foldUsername(user.Username)
	if _, taken := r.d.usernames[key]; taken {
		return repository.ErrDuplicateUsername
	}
	r.d.users[user.ID] = *user
	r.d.usernames[key] = user.ID
	r.d.votes[user.ID] = domain.Vote{VoterID: user.ID, UpdatedAt: user.CreatedAt}
	return nil
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	u, ok := r.d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	id, ok := r.d.usernames[foldUsername(username)]
	if !ok {
		return nil, nil
	}
	u := r.d.users[id]
	return &u, nil
}

func (r *userRepo) List(_ context.Context) ([]domain.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	users := make([]domain.User, 0, len(r.d.users))
	for _, u := range r.d.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return foldUsername(users[i].Username) < foldUsername(users[j].Username)
	})
	return users, nil
}

func (r *userRepo) UpdateCodewordHash(_ context.Context, id uuid.UUID, hash string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	u, ok := r.d.users[id]
	if !ok {
		return domain.ErrNotFound("user", id.String())
	}
	u.CodewordHash = hash
	r.d.users[id] = u
	return nil
}

// --- votes ---

type voteRepo struct{ d *dataset }

func (r *voteRepo) Upsert(_ context.Context, voterID uuid.UUID, targetID *uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	v := domain.Vote{VoterID: voterID, UpdatedAt: time.Now().UTC()}
	if targetID != nil {
		t := *targetID
		v.TargetID = &t
	}
	r.d.votes[voterID] = v
	return nil
}

func (r *voteRepo) FindByVoter(_ context.Context, voterID uuid.UUID) (*domain.Vote, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	v, ok := r.d.votes[voterID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *voteRepo) List(_ context.Context) ([]domain.Vote, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	votes := make([]domain.Vote, 0, len(r.d.votes))
	for _, v := range r.d.votes {
		votes = append(votes, v)
	}
	return votes, nil
}

func (r *voteRepo) ListDetails(_ context.Context) ([]domain.VoteDetail, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	details := make([]domain.VoteDetail, 0, len(r.d.votes))
	for _, v := range r.d.votes {
		voter, ok := r.d.users[v.VoterID]
		if !ok {
			continue
		}
		d := domain.VoteDetail{VoterID: v.VoterID, VoterUsername: voter.Username}
		if v.TargetID != nil {
			if target, ok := r.d.users[*v.TargetID]; ok {
				id, name := target.ID, target.Username
				d.TargetID = &id
				d.TargetUsername = &name
			}
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool {
		return foldUsername(details[i].VoterUsername) < foldUsername(details[j].VoterUsername)
	})
	return details, nil
}

// --- messages ---

type messageRepo struct{ d *dataset }

func (r *messageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	r.d.messages = append(r.d.messages, cloneMessage(*msg))
	return nil
}

func (r *messageRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, m := range r.d.messages {
		if m.ID == id {
			c := cloneMessage(m)
			return &c, nil
		}
	}
	return nil, nil
}

// cloneMessage copies m so the stored row shares no pointers with callers.
func cloneMessage(m domain.Message) domain.Message {
	if m.ReceiverID != nil {
		id := *m.ReceiverID
		m.ReceiverID = &id
	}
	if m.MediaURL != nil {
		u := *m.MediaURL
		m.MediaURL = &u
	}
	return m
}

// view must be called with the lock held.
func (r *messageRepo) view(m domain.Message) domain.MessageView {
	s := r.d.users[m.SenderID]
	return domain.MessageView{
		Message:        cloneMessage(m),
		SenderUsername: s.Username,
		SenderSymbol:   s.Symbol,
		SenderAvatar:   s.Avatar,
	}
}

// filter returns matching messages in insertion order, which is also
// creation order.
func (r *messageRepo) filter(keep func(domain.Message) bool) []domain.MessageView {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := []domain.MessageView{}
	for _, m := range r.d.messages {
		if keep(m) {
			out = append(out, r.view(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *messageRepo) ListPublic(_ context.Context) ([]domain.MessageView, error) {
	return r.filter(func(m domain.Message) bool { return !m.IsPrivate }), nil
}

func (r *messageRepo) ListThread(_ context.Context, a, b uuid.UUID) ([]domain.MessageView, error) {
	return r.filter(func(m domain.Message) bool {
		if !m.IsPrivate || m.ReceiverID == nil {
			return false
		}
		rcv := *m.ReceiverID
		return (m.SenderID == a && rcv == b) || (m.SenderID == b && rcv == a)
	}), nil
}

func (r *messageRepo) ListReceived(_ context.Context, receiverID uuid.UUID) ([]domain.MessageView, error) {
	out := r.filter(func(m domain.Message) bool {
		return m.IsPrivate && m.ReceiverID != nil && *m.ReceiverID == receiverID
	})
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *messageRepo) CountReceived(ctx context.Context, receiverID uuid.UUID) (int, error) {
	received, err := r.ListReceived(ctx, receiverID)
	return len(received), err
}

func (r *messageRepo) ListPrivate(_ context.Context) ([]domain.MonitoredMessage, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := []domain.MonitoredMessage{}
	for _, m := range r.d.messages {
		if !m.IsPrivate || m.ReceiverID == nil {
			continue
		}
		out = append(out, domain.MonitoredMessage{
			Message:          m,
			SenderUsername:   r.d.users[m.SenderID].Username,
			ReceiverUsername: r.d.users[*m.ReceiverID].Username,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- announcements ---

type announcementRepo struct{ d *dataset }

func (r *announcementRepo) Create(_ context.Context, a *domain.Announcement) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored := *a
	if a.MediaURL != nil {
		u := *a.MediaURL
		stored.MediaURL = &u
	}
	r.d.announcements = append(r.d.announcements, stored)
	return nil
}

func (r *announcementRepo) List(_ context.Context) ([]domain.AnnouncementView, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := make([]domain.AnnouncementView, 0, len(r.d.announcements))
	for i := len(r.d.announcements) - 1; i >= 0; i-- {
		a := r.d.announcements[i]
		if a.MediaURL != nil {
			u := *a.MediaURL
			a.MediaURL = &u
		}
		out = append(out, domain.AnnouncementView{
			Announcement:   a,
			AuthorUsername: r.d.users[a.AuthorID].Username,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *announcementRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for i, a := range r.d.announcements {
		if a.ID == id {
			r.d.announcements = append(r.d.announcements[:i], r.d.announcements[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- card draws ---

type cardDrawRepo struct{ d *dataset }

func (r *cardDrawRepo) Create(_ context.Context, draw *domain.CardDraw) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	r.d.draws = append(r.d.draws, *draw)
	return nil
}

func (r *cardDrawRepo) Latest(_ context.Context, userID uuid.UUID) (*domain.CardDraw, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var latest *domain.CardDraw
	for i := range r.d.draws {
		d := r.d.draws[i]
		if d.UserID != userID {
			continue
		}
		if latest == nil || !d.DrawnAt.Before(latest.DrawnAt) {
			latest = &d
		}
	}
	return latest, nil
}

// --- sessions ---

type sessionRepo struct{ d *dataset }

func (r *sessionRepo) Create(_ context.Context, s *domain.Session) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	r.d.sessions[s.ID] = *s
	return nil
}

func (r *sessionRepo) Find(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	s, ok := r.d.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	delete(r.d.sessions, id)
	return nil
}
