package postgres

import (
	"context"
	"testing"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txColumns() []string {
	return []string{"id", "user_id", "kind", "amount", "status", "tx_hash", "destination_address", "created_at", "completed_at"}
}

func TestTransactionRepo_SumCompleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE user_id .+ status = 'completed'").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"deposited", "withdrawn"}).
			AddRow(decimal.NewFromInt(8), decimal.NewFromInt(4)))

	totals, err := repo.SumCompleted(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, totals.Deposited.Equal(decimal.NewFromInt(8)))
	assert.True(t, totals.Withdrawn.Equal(decimal.NewFromInt(4)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumForWithdrawal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	// One query on the caller's transaction returns every balance
	// component; the withdrawal check never mixes reads from the pool.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE user_id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"deposited", "withdrawn", "open"}).
			AddRow(decimal.NewFromInt(8), decimal.NewFromInt(3), decimal.NewFromInt(2)))
	mock.ExpectCommit()

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	totals, err := repo.SumForWithdrawal(context.Background(), tx, 42)
	require.NoError(t, err)
	assert.True(t, totals.Deposited.Equal(decimal.NewFromInt(8)))
	assert.True(t, totals.Withdrawn.Equal(decimal.NewFromInt(3)))
	assert.True(t, totals.Open.Equal(decimal.NewFromInt(2)))
	assert.True(t, totals.Available().Equal(decimal.NewFromInt(3)))

	require.NoError(t, tx.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByID_ScopedToUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	// The query must carry the user id as a filter; a foreign id yields
	// no rows even when the transaction exists, and the miss surfaces as
	// pgx.ErrNoRows for callers to branch on.
	mock.ExpectQuery("SELECT .+ FROM transactions WHERE user_id").
		WithArgs(int64(7), id).
		WillReturnRows(pgxmock.NewRows(txColumns()))

	result, err := repo.GetByID(context.Background(), 7, id)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ExistsByTxHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42), "hash123").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByTxHash(context.Background(), 42, "hash123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransactionRepo_UpdateStatus_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	id := uuid.New()

	mock.ExpectExec("UPDATE transactions SET status").
		WithArgs(domain.TransactionStatusCompleted, (*string)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.UpdateStatus(context.Background(), id, domain.TransactionStatusCompleted, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestTransactionRepo_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(txColumns()).
		AddRow(uuid.New(), int64(42), domain.TransactionKindDeposit, decimal.NewFromInt(5),
			domain.TransactionStatusCompleted, (*string)(nil), (*string)(nil), now, &now).
		AddRow(uuid.New(), int64(42), domain.TransactionKindWithdrawal, decimal.NewFromInt(4),
			domain.TransactionStatusCompleted, (*string)(nil), (*string)(nil), now, &now)

	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs(int64(42), 20, 0).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), 42, 20, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.TransactionKindDeposit, items[0].Kind)
	assert.Equal(t, domain.TransactionKindWithdrawal, items[1].Kind)
}
