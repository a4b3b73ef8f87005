package postgres

import (
	"context"
	"testing"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userColumns() []string {
	return []string{"id", "display_name", "username", "auth_method", "created_at"}
}

func TestUserRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(userColumns()).
			AddRow(int64(42), "Alice", "alice", domain.AuthMethodTelegram, now))

	u, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(userColumns()))

	// An unknown id surfaces as pgx.ErrNoRows for callers to branch on.
	u, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Nil(t, u)
}
