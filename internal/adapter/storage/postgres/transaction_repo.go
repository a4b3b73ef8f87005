package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. Every query
// filters by user_id in SQL; per-user isolation is enforced at the storage
// layer, not in application code.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, kind, amount, status, tx_hash, destination_address, created_at, completed_at`

// Create inserts a new ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, user_id, kind, amount, status, tx_hash, destination_address, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.UserID, t.Kind, t.Amount, t.Status,
		t.TxHash, t.DestinationAddress, t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches one of the user's own transactions.
func (r *TransactionRepo) GetByID(ctx context.Context, userID int64, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND id = $2`

	return scanTransaction(r.pool.QueryRow(ctx, query, userID, id))
}

// UpdateStatus moves a transaction to a new status. Completed entries get a
// completion timestamp; the ledger treats only those as spendable.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, txHash *string) error {
	query := `UPDATE transactions SET status = $1,
		tx_hash = COALESCE($2, tx_hash),
		completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, status, txHash, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// SumCompleted aggregates completed deposits and withdrawals for one user.
func (r *TransactionRepo) SumCompleted(ctx context.Context, userID int64) (*ports.LedgerTotals, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE kind = 'deposit'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'withdrawal'), 0)
		FROM transactions WHERE user_id = $1 AND status = 'completed'`

	totals := &ports.LedgerTotals{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&totals.Deposited, &totals.Withdrawn)
	if err != nil {
		return nil, fmt.Errorf("sum completed transactions: %w", err)
	}
	return totals, nil
}

// SumForWithdrawal aggregates completed deposits, completed withdrawals and
// open (pending/processing) withdrawals in one query inside the caller's
// locked transaction, so the balance check reads a single snapshot.
func (r *TransactionRepo) SumForWithdrawal(ctx context.Context, tx pgx.Tx, userID int64) (*ports.WithdrawalTotals, error) {
	query := `SELECT
		COALESCE(SUM(amount) FILTER (WHERE kind = 'deposit' AND status = 'completed'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'withdrawal' AND status = 'completed'), 0),
		COALESCE(SUM(amount) FILTER (WHERE kind = 'withdrawal' AND status IN ('pending', 'processing')), 0)
		FROM transactions WHERE user_id = $1`

	totals := &ports.WithdrawalTotals{}
	err := tx.QueryRow(ctx, query, userID).Scan(&totals.Deposited, &totals.Withdrawn, &totals.Open)
	if err != nil {
		return nil, fmt.Errorf("sum withdrawal totals: %w", err)
	}
	return totals, nil
}

// ExistsByTxHash reports whether a deposit with this chain hash was already
// credited to the user.
func (r *TransactionRepo) ExistsByTxHash(ctx context.Context, userID int64, txHash string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE user_id = $1 AND tx_hash = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, txHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("check tx hash: %w", err)
	}
	return exists, nil
}

// List returns the user's transactions, newest first.
func (r *TransactionRepo) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var items []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Status,
			&t.TxHash, &t.DestinationAddress, &t.CreatedAt, &t.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// CountSince counts the user's transactions created after the cutoff.
func (r *TransactionRepo) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND created_at >= $2`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.Kind, &t.Amount, &t.Status,
		&t.TxHash, &t.DestinationAddress, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		// pgx.ErrNoRows passes through untouched; callers branch on it.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
