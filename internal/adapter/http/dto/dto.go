package dto

import (
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"

	"github.com/google/uuid"
)

// SessionRequest authenticates a marketplace user and opens a session.
type SessionRequest struct {
	TelegramID  int64  `json:"telegram_id" binding:"required,gt=0"`
	Username    string `json:"username" binding:"omitempty,max=64,safe_id"`
	DisplayName string `json:"display_name" binding:"omitempty,max=128"`
	AuthMethod  string `json:"auth_method" binding:"omitempty,oneof=telegram ton_connect"`
}

// SessionResponse carries the issued bearer token.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WalletResponse is the public view of a wallet. Key material never leaves
// the server.
type WalletResponse struct {
	ID               uuid.UUID  `json:"id"`
	Address          string     `json:"address"`
	BalanceCached    string     `json:"balance_cached"`
	BalanceUpdatedAt *time.Time `json:"balance_updated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// WalletCreatedResponse acknowledges asynchronous wallet creation.
type WalletCreatedResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// BalanceResponse is the ledger-derived balance view.
type BalanceResponse struct {
	Deposited string `json:"deposited"`
	Withdrawn string `json:"withdrawn"`
	Available string `json:"available"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Kind               string     `json:"kind"`
	Amount             string     `json:"amount"`
	Status             string     `json:"status"`
	TxHash             *string    `json:"tx_hash,omitempty"`
	DestinationAddress *string    `json:"destination_address,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// DepositRequest initiates a deposit.
type DepositRequest struct {
	Amount       string `json:"amount" binding:"required"`
	PayerAddress string `json:"payer_address" binding:"required"`
}

// DepositResponse carries the memo the payer must attach on-chain.
type DepositResponse struct {
	DepositAddress string                `json:"deposit_address"`
	Memo           *domain.EncryptedMemo `json:"memo"`
	TransactionID  uuid.UUID             `json:"transaction_id"`
	JobID          uuid.UUID             `json:"job_id"`
}

// WithdrawalRequest submits a withdrawal.
type WithdrawalRequest struct {
	Amount                 string `json:"amount" binding:"required"`
	DestinationAddress     string `json:"destination_address" binding:"required"`
	ConnectedWalletAddress string `json:"connected_wallet_address" binding:"required"`
}

// WithdrawalResponse is the outcome of a withdrawal attempt.
type WithdrawalResponse struct {
	Success       bool      `json:"success"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Message       string    `json:"message"`
}

// AssistantRequest is a free-text wallet question.
type AssistantRequest struct {
	Query string `json:"query" binding:"required,max=1000"`
}

// ToWalletResponse converts a domain wallet to its public view.
func ToWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:               w.ID,
		Address:          w.Address,
		BalanceCached:    w.BalanceCached.String(),
		BalanceUpdatedAt: w.BalanceUpdatedAt,
		CreatedAt:        w.CreatedAt,
	}
}

// ToBalanceResponse converts a ledger summary.
func ToBalanceResponse(s *domain.BalanceSummary) BalanceResponse {
	return BalanceResponse{
		Deposited: s.Deposited.String(),
		Withdrawn: s.Withdrawn.String(),
		Available: s.Available.String(),
	}
}

// ToTransactionResponse converts a ledger entry.
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                 t.ID,
		Kind:               string(t.Kind),
		Amount:             t.Amount.String(),
		Status:             string(t.Status),
		TxHash:             t.TxHash,
		DestinationAddress: t.DestinationAddress,
		CreatedAt:          t.CreatedAt,
		CompletedAt:        t.CompletedAt,
	}
}

// ToDepositResponse converts a deposit intent.
func ToDepositResponse(i *ports.DepositIntent) DepositResponse {
	return DepositResponse{
		DepositAddress: i.DepositAddress,
		Memo:           i.Memo,
		TransactionID:  i.TransactionID,
		JobID:          i.JobID,
	}
}
