package postgres

import (
	"context"
	"errors"
	"fmt"

	"gift-market-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Upsert creates the user on first authentication. The id never changes;
// display name and username follow the auth provider.
func (r *UserRepo) Upsert(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (id, display_name, username, auth_method, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, username = EXCLUDED.username`

	_, err := r.pool.Exec(ctx, query, u.ID, u.DisplayName, u.Username, u.AuthMethod, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT id, display_name, username, auth_method, created_at FROM users WHERE id = $1`

	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.DisplayName, &u.Username, &u.AuthMethod, &u.CreatedAt)
	if err != nil {
		// pgx.ErrNoRows passes through untouched; callers branch on it.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}
