package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/traitors/server/internal/domain"
	"github.com/traitors/server/internal/repository"
)

// VoteService enforces the single-active-vote rule and computes the tally.
type VoteService struct {
	users  repository.UserRepository
	votes  repository.VoteRepository
	events *Events
	logger *slog.Logger
}

// NewVoteService creates a new VoteService.
func NewVoteService(store repository.Store, events *Events, logger *slog.Logger) *VoteService {
	return &VoteService{users: store.Users, votes: store.Votes, events: events, logger: logger}
}

// CastVoteInput is the body of a vote request.
type CastVoteInput struct {
	TargetID string `json:"targetId" validate:"required"`
}

// VoteResult echoes the caller's new vote.
type VoteResult struct {
	VoterID  uuid.UUID `json:"voterId"`
	TargetID uuid.UUID `json:"targetId"`
}

// Cast points the voter's single vote at the target, replacing any previous
// target.
func (s *VoteService) Cast(ctx context.Context, voter *domain.User, in CastVoteInput) (*VoteResult, error) {
	if voter.IsGameMaster {
		return nil, domain.ErrForbidden("game masters observe and cannot vote")
	}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	targetID, err := uuid.Parse(in.TargetID)
	if err != nil {
		return nil, domain.ErrValidation("targetId must be a valid id")
	}
	if targetID == voter.ID {
		return nil, domain.ErrValidation("you cannot vote for yourself")
	}

	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, domain.ErrInternal("find target", err)
	}
	if target == nil {
		return nil, domain.ErrNotFound("player", targetID.String())
	}

	if err := s.votes.Upsert(ctx, voter.ID, &targetID); err != nil {
		return nil, domain.ErrInternal("cast vote", err)
	}

	s.events.Emit(ctx, domain.NewVoteEvent(voter.ID, &targetID))
	return &VoteResult{VoterID: voter.ID, TargetID: targetID}, nil
}

// Clear removes the voter's current vote. Clearing with no active vote is a no-op.
func (s *VoteService) Clear(ctx context.Context, voter *domain.User) error {
	if err := s.votes.Upsert(ctx, voter.ID, nil); err != nil {
		return domain.ErrInternal("clear vote", err)
	}
	s.events.Emit(ctx, domain.NewVoteEvent(voter.ID, nil))
	return nil
}

// Tally counts current votes per user, ranked by count then username.
func (s *VoteService) Tally(ctx context.Context) ([]domain.SuspicionEntry, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list users", err)
	}
	votes, err := s.votes.List(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list votes", err)
	}
	return domain.TallySuspicion(users, votes), nil
}

// Details lists who votes for whom.
func (s *VoteService) Details(ctx context.Context) ([]domain.VoteDetail, error) {
	details, err := s.votes.ListDetails(ctx)
	if err != nil {
		return nil, domain.ErrInternal("list vote details", err)
	}
	return orEmpty(details), nil
}
