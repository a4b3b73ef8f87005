package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// tonAddressRe matches user-friendly TON addresses: a bounceable (EQ) or
// non-bounceable (UQ) tag followed by 46 base64url characters.
var tonAddressRe = regexp.MustCompile(`^(EQ|UQ)[A-Za-z0-9_-]{46}$`)

// IsValidAddress reports whether addr matches the chain's address grammar.
func IsValidAddress(addr string) bool {
	return tonAddressRe.MatchString(addr)
}

// Wallet belongs to exactly one user. The deposit/payout address is assigned
// at creation and never reassigned to another user. BalanceCached is a
// snapshot of the on-chain balance and is advisory only; the spendable
// balance is always derived from the transaction ledger.
type Wallet struct {
	ID               uuid.UUID       `json:"id"`
	UserID           int64           `json:"user_id"`
	Address          string          `json:"address"`
	MnemonicEnc      string          `json:"-"` // AES-encrypted, never exposed
	BalanceCached    decimal.Decimal `json:"balance_cached"`
	BalanceUpdatedAt *time.Time      `json:"balance_updated_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BalanceSummary is the ledger-derived view of a user's funds.
type BalanceSummary struct {
	Deposited decimal.Decimal `json:"deposited"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
	Available decimal.Decimal `json:"available"`
}
