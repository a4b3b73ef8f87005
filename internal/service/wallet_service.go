package service

import (
	"context"
	"errors"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type walletService struct {
	transactor ports.DBTransactor
	wallets    ports.WalletRepository
	txRepo     ports.TransactionRepository
	ledger     ports.LedgerService
	memos      ports.MemoService
	jobs       ports.JobQueue
	guard      ports.Guard
	audit      ports.AuditService
	log        zerolog.Logger
}

// NewWalletService creates the wallet lifecycle service. All operations are
// gated by the Guard before any data access.
func NewWalletService(
	transactor ports.DBTransactor,
	wallets ports.WalletRepository,
	txRepo ports.TransactionRepository,
	ledger ports.LedgerService,
	memos ports.MemoService,
	jobs ports.JobQueue,
	guard ports.Guard,
	audit ports.AuditService,
	log zerolog.Logger,
) ports.WalletService {
	return &walletService{
		transactor: transactor,
		wallets:    wallets,
		txRepo:     txRepo,
		ledger:     ledger,
		memos:      memos,
		jobs:       jobs,
		guard:      guard,
		audit:      audit,
		log:        log,
	}
}

// GetWallet returns the caller's wallet.
func (s *walletService) GetWallet(ctx context.Context, caller *ports.AuthContext, userID int64) (*domain.Wallet, error) {
	if err := s.guard.AssertOwner(ctx, caller, userID, "wallet"); err != nil {
		return nil, err
	}

	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrWalletNotFound()
		}
		return nil, apperror.ErrDatabaseError(err)
	}

	s.audit.Log(ctx, userID, domain.AuditActionWalletAccessed, "wallet", wallet.ID.String(), nil)
	return wallet, nil
}

// CreateWallet enqueues asynchronous wallet creation and returns the job id.
// Key material generation happens in the worker, off the request path.
func (s *walletService) CreateWallet(ctx context.Context, caller *ports.AuthContext, userID int64) (uuid.UUID, error) {
	if err := s.guard.AssertOwner(ctx, caller, userID, "wallet"); err != nil {
		return uuid.Nil, err
	}

	_, err := s.wallets.GetByUserID(ctx, userID)
	if err == nil {
		return uuid.Nil, apperror.ErrWalletExists()
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, apperror.ErrDatabaseError(err)
	}

	jobID, err := s.jobs.Enqueue(ctx, userID, domain.JobTypeWalletCreation, nil, 0, nil)
	if err != nil {
		return uuid.Nil, err
	}

	s.log.Info().Int64("user_id", userID).Str("job_id", jobID.String()).Msg("wallet creation enqueued")
	return jobID, nil
}

// GetBalance returns the ledger-derived balance summary.
func (s *walletService) GetBalance(ctx context.Context, caller *ports.AuthContext, userID int64) (*domain.BalanceSummary, error) {
	if err := s.guard.AssertOwner(ctx, caller, userID, "balance"); err != nil {
		return nil, err
	}
	return s.ledger.AvailableBalance(ctx, userID)
}

// InitiateDeposit issues an encrypted memo for the expected transfer, opens
// a pending ledger entry, and enqueues on-chain confirmation.
func (s *walletService) InitiateDeposit(ctx context.Context, caller *ports.AuthContext, req ports.DepositRequest) (*ports.DepositIntent, error) {
	if err := s.guard.AssertOwner(ctx, caller, req.UserID, "deposit"); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if !domain.IsValidAddress(req.PayerAddress) {
		return nil, apperror.ErrInvalidAddress()
	}

	wallet, err := s.wallets.GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrWalletNotFound()
		}
		return nil, apperror.ErrDatabaseError(err)
	}

	now := time.Now()
	memo, err := s.memos.EncryptMemo(req.Amount, req.PayerAddress, now)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Kind:      domain.TransactionKindDeposit,
		Amount:    req.Amount,
		Status:    domain.TransactionStatusPending,
		CreatedAt: now.UTC(),
	}
	if err := s.createTransaction(ctx, txn); err != nil {
		return nil, err
	}

	jobID, err := s.jobs.Enqueue(ctx, req.UserID, domain.JobTypeDepositConfirmation, map[string]interface{}{
		"transaction_id": txn.ID.String(),
		"payer_address":  req.PayerAddress,
		"amount":         req.Amount.String(),
		"memo":           memo,
	}, 0, nil)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, req.UserID, domain.AuditActionDepositInitiated, "transaction", txn.ID.String(), map[string]interface{}{
		"amount":        req.Amount.String(),
		"payer_address": req.PayerAddress,
	})

	return &ports.DepositIntent{
		DepositAddress: wallet.Address,
		Memo:           memo,
		TransactionID:  txn.ID,
		JobID:          jobID,
	}, nil
}

func (s *walletService) createTransaction(ctx context.Context, txn *domain.Transaction) error {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	defer tx.Rollback(ctx)

	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(err)
	}
	return nil
}
