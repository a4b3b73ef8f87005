package ports

import (
	"context"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuthContext is the resolved identity of the current caller, supplied by
// the authentication collaborator. It is ground truth; identity is never
// re-derived from client-supplied fields.
type AuthContext struct {
	UserID    int64
	Username  string
	SessionID string
}

// TokenService issues and validates the JWT carrying the auth context.
type TokenService interface {
	Generate(user *domain.User) (string, time.Time, error)
	Validate(tokenString string) (*AuthContext, error)
}

// Guard is the single authorization choke point. Every wallet-affecting
// operation must pass through it before touching data.
type Guard interface {
	// RequireAuth returns the caller identity or ErrInvalidToken.
	RequireAuth(ctx context.Context) (*AuthContext, error)
	// AssertOwner fails with ErrUnauthorized if the caller does not own the
	// target, raising a critical cross-user security event.
	AssertOwner(ctx context.Context, caller *AuthContext, targetUserID int64, resource string) error
}

// LedgerService is the authoritative read model for spendable balance.
type LedgerService interface {
	AvailableBalance(ctx context.Context, userID int64) (*domain.BalanceSummary, error)
	History(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error)
}

// WalletService manages wallet lifecycle and queries, gated by the Guard.
type WalletService interface {
	GetWallet(ctx context.Context, caller *AuthContext, userID int64) (*domain.Wallet, error)
	// CreateWallet enqueues asynchronous wallet creation; the wallet row
	// appears once the wallet_creation job completes.
	CreateWallet(ctx context.Context, caller *AuthContext, userID int64) (uuid.UUID, error)
	GetBalance(ctx context.Context, caller *AuthContext, userID int64) (*domain.BalanceSummary, error)
	// InitiateDeposit issues an encrypted memo binding the expected transfer
	// and enqueues deposit confirmation.
	InitiateDeposit(ctx context.Context, caller *AuthContext, req DepositRequest) (*DepositIntent, error)
}

// DepositRequest holds validated input for deposit initiation.
type DepositRequest struct {
	UserID       int64
	Amount       decimal.Decimal
	PayerAddress string
}

// DepositIntent is returned to the client to attach to the on-chain transfer.
type DepositIntent struct {
	DepositAddress string
	Memo           *domain.EncryptedMemo
	TransactionID  uuid.UUID
	JobID          uuid.UUID
}

// WithdrawalService validates and executes withdrawal requests.
type WithdrawalService interface {
	ProcessWithdrawal(ctx context.Context, caller *AuthContext, req WithdrawalRequest) (*WithdrawalResult, error)
}

// WithdrawalRequest holds validated input for withdrawal processing.
type WithdrawalRequest struct {
	UserID                 int64
	Amount                 decimal.Decimal
	DestinationAddress     string
	ConnectedWalletAddress string
}

// WithdrawalResult is the outcome of a withdrawal attempt.
type WithdrawalResult struct {
	Success       bool
	TransactionID uuid.UUID
	Message       string
}

// MemoService implements the deposit memo encryption protocol.
type MemoService interface {
	EncryptMemo(amount decimal.Decimal, payerAddress string, timestamp time.Time) (*domain.EncryptedMemo, error)
	DecryptMemo(memo *domain.EncryptedMemo) (*domain.MemoPayload, error)
	// ValidateTransaction checks an observed on-chain transfer against the
	// memo. A non-empty reason explains rejection.
	ValidateTransaction(observedAmount decimal.Decimal, memo *domain.EncryptedMemo, expectedPayerAddress string) (bool, string)
}

// ComplianceService evaluates the ordered rule set before an operation.
type ComplianceService interface {
	CheckUserCompliance(ctx context.Context, userID int64, operation string, amount *decimal.Decimal) (*domain.ComplianceResult, error)
}

// AuditService is the fire-and-forget append-only audit sink. Failures to
// persist never abort the calling operation.
type AuditService interface {
	Log(ctx context.Context, userID int64, action domain.AuditAction, resourceType, resourceID string, details map[string]interface{})
	LogCrossUserAccess(ctx context.Context, attemptingUserID, targetUserID int64, resource string, blocked bool)
}

// JobQueue enqueues and cancels user-scoped background work.
type JobQueue interface {
	Enqueue(ctx context.Context, userID int64, jobType domain.JobType, payload map[string]interface{}, priority int, scheduledFor *time.Time) (uuid.UUID, error)
	Cancel(ctx context.Context, caller *AuthContext, jobID uuid.UUID) error
}

// AssistantReply is the AI query router's response.
type AssistantReply struct {
	Message    string                 `json:"message"`
	WalletInfo map[string]interface{} `json:"wallet_info,omitempty"`
	Actions    []string               `json:"actions,omitempty"`
}

// AssistantService answers wallet questions strictly scoped to the caller.
type AssistantService interface {
	ProcessQuery(ctx context.Context, caller *AuthContext, rawText string) (*AssistantReply, error)
}

// ChainTransfer is an observed inbound transfer on the chain.
type ChainTransfer struct {
	Hash        string
	FromAddress string
	ToAddress   string
	Amount      decimal.Decimal
	Memo        string
	Timestamp   time.Time
}

// TransferSubmission is an outgoing transfer request.
type TransferSubmission struct {
	FromAddress string
	ToAddress   string
	Amount      decimal.Decimal
	DedupeKey   string
}

// ChainClient is the read-mostly HTTP boundary to the chain node. It is
// treated as unreliable; callers wrap it in retry.
type ChainClient interface {
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	GetTransactions(ctx context.Context, address string, limit int) ([]ChainTransfer, error)
	SubmitTransfer(ctx context.Context, sub TransferSubmission) (string, error) // returns tx hash
}

// Notifier is the fire-and-forget user notification sink. Failures never
// roll back the underlying financial state change.
type Notifier interface {
	Notify(ctx context.Context, userID int64, event string, details map[string]interface{})
}

// BalanceCache caches on-chain balance snapshots.
type BalanceCache interface {
	Get(ctx context.Context, address string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, address string, balance decimal.Decimal, ttl time.Duration) error
}

// DedupeStore claims single-use keys (e.g. withdrawal submission dedupe).
type DedupeStore interface {
	// Claim returns true if the key was free and is now held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
