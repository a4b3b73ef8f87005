package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository. The wallets table carries a
// unique constraint on user_id, so one active wallet per user holds even
// under concurrent creation.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, address, mnemonic_enc, balance_cached, balance_updated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.UserID, w.Address, w.MnemonicEnc,
		w.BalanceCached, w.BalanceUpdatedAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches the user's wallet (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	query := `SELECT id, user_id, address, mnemonic_enc, balance_cached, balance_updated_at, created_at, updated_at
		FROM wallets WHERE user_id = $1`

	return scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByUserIDForUpdate fetches the user's wallet with pessimistic locking.
// This MUST be called within a transaction; the withdrawal pipeline relies
// on it to serialize the check-then-debit sequence per user.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error) {
	query := `SELECT id, user_id, address, mnemonic_enc, balance_cached, balance_updated_at, created_at, updated_at
		FROM wallets WHERE user_id = $1 FOR UPDATE`

	return scanWallet(tx.QueryRow(ctx, query, userID))
}

// UpdateBalanceSnapshot stores the latest on-chain balance observation.
func (r *WalletRepo) UpdateBalanceSnapshot(ctx context.Context, userID int64, balance decimal.Decimal, at time.Time) error {
	query := `UPDATE wallets SET balance_cached = $1, balance_updated_at = $2, updated_at = NOW() WHERE user_id = $3`

	tag, err := r.pool.Exec(ctx, query, balance, at, userID)
	if err != nil {
		return fmt.Errorf("update balance snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found for user %d", userID)
	}
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Address, &w.MnemonicEnc,
		&w.BalanceCached, &w.BalanceUpdatedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		// pgx.ErrNoRows passes through untouched; callers branch on it.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
