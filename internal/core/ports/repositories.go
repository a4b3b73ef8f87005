package ports

import (
	"context"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Upsert creates the user on first authentication; the id is immutable.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets. Every method
// is keyed by the owning user id so storage access is user-scoped by
// construction. Methods accepting pgx.Tx are used inside transaction blocks
// for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	// GetByUserIDForUpdate locks the user's wallet row; the withdrawal
	// pipeline uses it to serialize check-then-debit per user.
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error)
	UpdateBalanceSnapshot(ctx context.Context, userID int64, balance decimal.Decimal, at time.Time) error
}

// LedgerTotals holds the SQL-side aggregates over completed ledger entries.
type LedgerTotals struct {
	Deposited decimal.Decimal
	Withdrawn decimal.Decimal
}

// WithdrawalTotals holds the balance components the withdrawal check reads
// in one snapshot: completed deposits and withdrawals plus withdrawals still
// pending or processing.
type WithdrawalTotals struct {
	Deposited decimal.Decimal
	Withdrawn decimal.Decimal
	Open      decimal.Decimal
}

// Available is the spendable balance implied by the snapshot.
func (t *WithdrawalTotals) Available() decimal.Decimal {
	return t.Deposited.Sub(t.Withdrawn).Sub(t.Open)
}

// TransactionRepository defines persistence operations for ledger entries.
// All reads filter by user_id at the query level.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, userID int64, id uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, txHash *string) error
	// SumCompleted aggregates completed deposits and withdrawals for one user.
	SumCompleted(ctx context.Context, userID int64) (*LedgerTotals, error)
	// SumForWithdrawal aggregates all balance components in a single query
	// inside the locked withdrawal transaction. One snapshot covers both the
	// completed totals and the in-flight debits, so a status flip committed
	// by a concurrent request can never fall between two reads.
	SumForWithdrawal(ctx context.Context, tx pgx.Tx, userID int64) (*WithdrawalTotals, error)
	// ExistsByTxHash reports whether a deposit with this chain hash was
	// already credited (exactly-once crediting).
	ExistsByTxHash(ctx context.Context, userID int64, txHash string) (bool, error)
	List(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error)
	CountSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// ComplianceRepository defines persistence for KYC records.
type ComplianceRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*domain.ComplianceRecord, error)
}

// AuditRepository defines persistence for the append-only audit log.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	CreateSecurity(ctx context.Context, entry *domain.SecurityLog) error
	ListSecurity(ctx context.Context, blocked *bool, limit int) ([]domain.SecurityLog, error)
}

// JobRepository defines persistence for the durable job queue.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, userID int64, id uuid.UUID) (*domain.Job, error)
	// ClaimNext atomically claims the oldest-created, highest-priority
	// pending job of the given type whose scheduled_for has elapsed, moving
	// it to processing. Returns pgx.ErrNoRows when no job is ready.
	ClaimNext(ctx context.Context, jobType domain.JobType) (*domain.Job, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkRetrying(ctx context.Context, id uuid.UUID, attempts int, scheduledFor time.Time, lastError string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
	// CancelPending cancels the caller's own pending job. Returns false if
	// the job was not pending (run-to-completion semantics).
	CancelPending(ctx context.Context, userID int64, id uuid.UUID) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
