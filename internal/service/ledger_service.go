package service

import (
	"context"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/shopspring/decimal"
)

type ledgerService struct {
	transactions ports.TransactionRepository
}

// NewLedgerService creates the authoritative balance read model. The
// spendable balance is always derived from completed ledger entries; the
// cached on-chain snapshot on the wallet row is never consulted here.
func NewLedgerService(transactions ports.TransactionRepository) ports.LedgerService {
	return &ledgerService{transactions: transactions}
}

// AvailableBalance computes available = max(0, deposited - withdrawn) over
// completed entries for one user.
func (s *ledgerService) AvailableBalance(ctx context.Context, userID int64) (*domain.BalanceSummary, error) {
	totals, err := s.transactions.SumCompleted(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}

	available := totals.Deposited.Sub(totals.Withdrawn)
	if available.IsNegative() {
		available = decimal.Zero
	}

	return &domain.BalanceSummary{
		Deposited: totals.Deposited,
		Withdrawn: totals.Withdrawn,
		Available: available,
	}, nil
}

// History returns the user's ledger entries, newest first.
func (s *ledgerService) History(ctx context.Context, userID int64, limit, offset int) ([]domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	txs, err := s.transactions.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	return txs, nil
}
