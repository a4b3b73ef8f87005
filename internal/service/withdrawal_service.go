package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gift-market-wallet/config"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"
	"gift-market-wallet/pkg/retry"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// dedupeTTL holds the submission dedupe key long enough to cover retries and
// a reconciliation pass.
const dedupeTTL = 15 * time.Minute

type withdrawalService struct {
	transactor ports.DBTransactor
	wallets    ports.WalletRepository
	txRepo     ports.TransactionRepository
	compliance ports.ComplianceService
	guard      ports.Guard
	audit      ports.AuditService
	notifier   ports.Notifier
	dedupe     ports.DedupeStore
	chain      ports.ChainClient
	log        zerolog.Logger

	minAmount     decimal.Decimal
	maxAmount     decimal.Decimal
	submitTimeout time.Duration
	retryCfg      retry.Config
}

// NewWithdrawalService creates the withdrawal pipeline. The balance check
// runs under a row lock on the user's wallet so concurrent withdrawals
// serialize; in-flight withdrawals count as debits while the lock is held.
func NewWithdrawalService(
	transactor ports.DBTransactor,
	wallets ports.WalletRepository,
	txRepo ports.TransactionRepository,
	compliance ports.ComplianceService,
	guard ports.Guard,
	audit ports.AuditService,
	notifier ports.Notifier,
	dedupe ports.DedupeStore,
	chain ports.ChainClient,
	cfg config.WithdrawalConfig,
	log zerolog.Logger,
) (ports.WithdrawalService, error) {
	minAmount, err := decimal.NewFromString(cfg.MinAmount)
	if err != nil {
		return nil, fmt.Errorf("parse withdrawal min amount: %w", err)
	}
	maxAmount, err := decimal.NewFromString(cfg.MaxAmount)
	if err != nil {
		return nil, fmt.Errorf("parse withdrawal max amount: %w", err)
	}

	return &withdrawalService{
		transactor:    transactor,
		wallets:       wallets,
		txRepo:        txRepo,
		compliance:    compliance,
		guard:         guard,
		audit:         audit,
		notifier:      notifier,
		dedupe:        dedupe,
		chain:         chain,
		log:           log,
		minAmount:     minAmount,
		maxAmount:     maxAmount,
		submitTimeout: cfg.SubmitTimeout,
		retryCfg:      retry.DefaultConfig(),
	}, nil
}

// ProcessWithdrawal validates and executes one withdrawal. Validation runs
// in a fixed order and the first violation wins; validation is never
// retried. Only the chain submission after commit is retried, and only on
// transient errors.
func (s *withdrawalService) ProcessWithdrawal(ctx context.Context, caller *ports.AuthContext, req ports.WithdrawalRequest) (*ports.WithdrawalResult, error) {
	if err := s.guard.AssertOwner(ctx, caller, req.UserID, "withdrawal"); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Amount.LessThan(s.minAmount) || req.Amount.GreaterThan(s.maxAmount) {
		return nil, apperror.ErrAmountOutOfRange(s.minAmount.String(), s.maxAmount.String())
	}

	txn, wallet, err := s.reserve(ctx, req)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, req.UserID, domain.AuditActionWithdrawalInitiated, "transaction", txn.ID.String(), map[string]interface{}{
		"amount":      req.Amount.String(),
		"destination": req.DestinationAddress,
	})

	return s.submit(ctx, wallet, txn, req)
}

// reserve performs the locked check-then-debit: it locks the wallet row,
// verifies available balance with open withdrawals counted as debits, runs
// the remaining validations, and commits the pending ledger entry. The lock
// is released on commit, at which point the pending entry is visible to
// competing requests.
func (s *withdrawalService) reserve(ctx context.Context, req ports.WithdrawalRequest) (*domain.Transaction, *domain.Wallet, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	wallet, err := s.wallets.GetByUserIDForUpdate(ctx, tx, req.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperror.ErrWalletNotFound()
		}
		return nil, nil, apperror.ErrDatabaseError(err)
	}

	// All balance components come from one query on the locked transaction.
	// Reading the completed totals outside the lock would let a concurrent
	// processing-to-completed flip slip between the reads.
	totals, err := s.txRepo.SumForWithdrawal(ctx, tx, req.UserID)
	if err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	if req.Amount.GreaterThan(totals.Available()) {
		return nil, nil, apperror.ErrInsufficientBalance()
	}

	if req.DestinationAddress != req.ConnectedWalletAddress {
		return nil, nil, apperror.ErrAddressMismatch()
	}
	if !domain.IsValidAddress(req.DestinationAddress) {
		return nil, nil, apperror.ErrInvalidAddress()
	}

	check, err := s.compliance.CheckUserCompliance(ctx, req.UserID, "withdrawal", &req.Amount)
	if err != nil {
		return nil, nil, err
	}
	if !check.Allowed {
		return nil, nil, apperror.ErrComplianceBlocked(check.Errors[0])
	}

	dest := req.DestinationAddress
	txn := &domain.Transaction{
		ID:                 uuid.New(),
		UserID:             req.UserID,
		Kind:               domain.TransactionKindWithdrawal,
		Amount:             req.Amount,
		Status:             domain.TransactionStatusPending,
		DestinationAddress: &dest,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, apperror.ErrDatabaseError(err)
	}
	return txn, wallet, nil
}

// submit pushes the committed withdrawal to the chain. The dedupe key
// guards against double submission of the same ledger entry; the chain call
// runs under a bounded timeout with retries on transient failures only. A
// failed submission marks the entry failed, which never debits the ledger.
func (s *withdrawalService) submit(ctx context.Context, wallet *domain.Wallet, txn *domain.Transaction, req ports.WithdrawalRequest) (*ports.WithdrawalResult, error) {
	dedupeKey := "wd:" + txn.ID.String()
	claimed, err := s.dedupe.Claim(ctx, dedupeKey, dedupeTTL)
	if err != nil {
		s.log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("dedupe claim failed")
		return s.fail(ctx, txn, req, "submission dedupe unavailable")
	}
	if !claimed {
		return &ports.WithdrawalResult{
			Success:       false,
			TransactionID: txn.ID,
			Message:       "Withdrawal already being submitted",
		}, nil
	}

	if err := s.txRepo.UpdateStatus(ctx, txn.ID, domain.TransactionStatusProcessing, nil); err != nil {
		s.log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("mark processing failed")
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	var txHash string
	err = retry.Do(submitCtx, s.retryCfg, func(ctx context.Context) error {
		hash, err := s.chain.SubmitTransfer(ctx, ports.TransferSubmission{
			FromAddress: wallet.Address,
			ToAddress:   req.DestinationAddress,
			Amount:      req.Amount,
			DedupeKey:   dedupeKey,
		})
		if err != nil {
			return err
		}
		txHash = hash
		return nil
	})
	if err != nil {
		if releaseErr := s.dedupe.Release(context.WithoutCancel(ctx), dedupeKey); releaseErr != nil {
			s.log.Warn().Err(releaseErr).Str("key", dedupeKey).Msg("dedupe release failed")
		}
		s.log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("chain submission failed")
		return s.fail(ctx, txn, req, "transfer submission failed")
	}

	if err := s.txRepo.UpdateStatus(ctx, txn.ID, domain.TransactionStatusCompleted, &txHash); err != nil {
		// The transfer is on-chain; reconciliation picks the entry up later.
		s.log.Error().Err(err).Str("transaction_id", txn.ID.String()).Str("tx_hash", txHash).Msg("mark completed failed")
	}

	s.audit.Log(ctx, req.UserID, domain.AuditActionWithdrawalCompleted, "transaction", txn.ID.String(), map[string]interface{}{
		"amount":  req.Amount.String(),
		"tx_hash": txHash,
	})
	s.notifier.Notify(ctx, req.UserID, "withdrawal_completed", map[string]interface{}{
		"amount":  req.Amount.String(),
		"tx_hash": txHash,
	})

	return &ports.WithdrawalResult{
		Success:       true,
		TransactionID: txn.ID,
		Message:       "Withdrawal completed",
	}, nil
}

func (s *withdrawalService) fail(ctx context.Context, txn *domain.Transaction, req ports.WithdrawalRequest, message string) (*ports.WithdrawalResult, error) {
	if err := s.txRepo.UpdateStatus(ctx, txn.ID, domain.TransactionStatusFailed, nil); err != nil {
		s.log.Error().Err(err).Str("transaction_id", txn.ID.String()).Msg("mark failed failed")
	}
	s.audit.Log(ctx, req.UserID, domain.AuditActionWithdrawalFailed, "transaction", txn.ID.String(), map[string]interface{}{
		"amount": req.Amount.String(),
		"reason": message,
	})
	s.notifier.Notify(ctx, req.UserID, "withdrawal_failed", map[string]interface{}{
		"amount": req.Amount.String(),
	})
	return &ports.WithdrawalResult{
		Success:       false,
		TransactionID: txn.ID,
		Message:       "Withdrawal failed: " + message,
	}, nil
}
