package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/traitors/server/internal/domain"
)

// PgUserRepository implements UserRepository using pgx.
type PgUserRepository struct {
	db DB
}

// NewPgUserRepository creates a new PgUserRepository.
func NewPgUserRepository(db DB) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id, username, codeword_hash, symbol, avatar, is_game_master, created_at`

// Create inserts the user and its empty vote row in one transaction.
func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.CodewordHash, user.Symbol, user.Avatar, user.IsGameMaster, user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO votes (voter_id, target_id, updated_at) VALUES ($1, NULL, $2)`,
		user.ID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert vote row: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// FindByID returns a user by ID, or nil if not found.
func (r *PgUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByUsername returns a user by username, or nil if not found. The column
// is citext so the comparison ignores case.
func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

func (r *PgUserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY lower(username::text) ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateCodewordHash updates the codeword hash for the given user.
func (r *PgUserRepository) UpdateCodewordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET codeword_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("update codeword hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("user", id.String())
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.CodewordHash, &u.Symbol, &u.Avatar, &u.IsGameMaster, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
