package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the direction of money movement.
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatus represents the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusConfirmed  TransactionStatus = "confirmed"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)

// Transaction is a ledger entry belonging to one user. Only completed
// entries contribute to the available balance; a failed withdrawal never
// debits the ledger.
type Transaction struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             int64             `json:"user_id"`
	Kind               TransactionKind   `json:"kind"`
	Amount             decimal.Decimal   `json:"amount"`
	Status             TransactionStatus `json:"status"`
	TxHash             *string           `json:"tx_hash,omitempty"`
	DestinationAddress *string           `json:"destination_address,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusFailed
}

// CountsTowardBalance returns true if the entry contributes to the
// ledger-derived available balance.
func (t *Transaction) CountsTowardBalance() bool {
	return t.Status == TransactionStatusCompleted
}
