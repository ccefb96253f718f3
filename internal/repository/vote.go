package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/traitors/server/internal/domain"
)

type voteRepo struct {
	db DBTX
}

// NewVoteRepository returns a pgx-backed VoteRepository.
func NewVoteRepository(db DBTX) VoteRepository {
	return &voteRepo{db: db}
}

// Upsert is a blind last-write-wins overwrite keyed by voter id.
func (r *voteRepo) Upsert(ctx context.Context, voterID uuid.UUID, targetID *uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO votes (voter_id, target_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (voter_id) DO UPDATE
		SET target_id = EXCLUDED.target_id, updated_at = EXCLUDED.updated_at`,
		voterID, targetID)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (r *voteRepo) FindByVoter(ctx context.Context, voterID uuid.UUID) (*domain.Vote, error) {
	var v domain.Vote
	err := r.db.QueryRow(ctx,
		`SELECT voter_id, target_id, updated_at FROM votes WHERE voter_id = $1`, voterID).
		Scan(&v.VoterID, &v.TargetID, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find vote: %w", err)
	}
	return &v, nil
}

func (r *voteRepo) List(ctx context.Context) ([]domain.Vote, error) {
	rows, err := r.db.Query(ctx, `SELECT voter_id, target_id, updated_at FROM votes`)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.VoterID, &v.TargetID, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *voteRepo) ListDetails(ctx context.Context) ([]domain.VoteDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.voter_id, voter.username, v.target_id, target.username
		FROM votes v
		JOIN users voter ON voter.id = v.voter_id
		LEFT JOIN users target ON target.id = v.target_id
		ORDER BY lower(voter.username::text) ASC`)
	if err != nil {
		return nil, fmt.Errorf("list vote details: %w", err)
	}
	defer rows.Close()

	var details []domain.VoteDetail
	for rows.Next() {
		var d domain.VoteDetail
		if err := rows.Scan(&d.VoterID, &d.VoterUsername, &d.TargetID, &d.TargetUsername); err != nil {
			return nil, fmt.Errorf("scan vote detail: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
