package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gift-market-wallet/internal/adapter/storage/postgres"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/internal/core/ports/mocks"
	"gift-market-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletFixture struct {
	svc        ports.WalletService
	transactor *mocks.MockDBTransactor
	tx         *mocks.MockTx
	wallets    *mocks.MockWalletRepository
	txRepo     *mocks.MockTransactionRepository
	ledger     *mocks.MockLedgerService
	memos      *mocks.MockMemoService
	jobs       *mocks.MockJobQueue
	guard      *mocks.MockGuard
}

func newWalletFixture(t *testing.T) *walletFixture {
	ctrl := gomock.NewController(t)
	f := &walletFixture{
		transactor: mocks.NewMockDBTransactor(ctrl),
		tx:         mocks.NewMockTx(ctrl),
		wallets:    mocks.NewMockWalletRepository(ctrl),
		txRepo:     mocks.NewMockTransactionRepository(ctrl),
		ledger:     mocks.NewMockLedgerService(ctrl),
		memos:      mocks.NewMockMemoService(ctrl),
		jobs:       mocks.NewMockJobQueue(ctrl),
		guard:      mocks.NewMockGuard(ctrl),
	}
	audit := mocks.NewMockAuditService(ctrl)
	audit.EXPECT().Log(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	f.svc = NewWalletService(f.transactor, f.wallets, f.txRepo, f.ledger, f.memos, f.jobs, f.guard, audit, zerolog.Nop())
	return f
}

func TestWallet_CreateEnqueuesJob(t *testing.T) {
	f := newWalletFixture(t)
	caller := &ports.AuthContext{UserID: testCaller}
	jobID := uuid.New()

	f.guard.EXPECT().AssertOwner(gomock.Any(), caller, testCaller, "wallet").Return(nil)
	f.wallets.EXPECT().GetByUserID(gomock.Any(), testCaller).Return(nil, pgx.ErrNoRows)
	f.jobs.EXPECT().Enqueue(gomock.Any(), testCaller, domain.JobTypeWalletCreation, gomock.Any(), 0, nil).
		Return(jobID, nil)

	got, err := f.svc.CreateWallet(context.Background(), caller, testCaller)
	require.NoError(t, err)
	assert.Equal(t, jobID, got)
}

// TestWallet_CreateWithPostgresRepo drives the create flow through the real
// repository over a mocked pool. A user whose wallets row does not exist
// must get a creation job, not a conflict.
func TestWallet_CreateWithPostgresRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	pool.ExpectQuery("SELECT .+ FROM wallets WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "address", "mnemonic_enc",
			"balance_cached", "balance_updated_at", "created_at", "updated_at",
		}))

	caller := &ports.AuthContext{UserID: 7}
	jobID := uuid.New()

	guard := mocks.NewMockGuard(ctrl)
	guard.EXPECT().AssertOwner(gomock.Any(), caller, int64(7), "wallet").Return(nil)
	jobs := mocks.NewMockJobQueue(ctrl)
	jobs.EXPECT().Enqueue(gomock.Any(), int64(7), domain.JobTypeWalletCreation, gomock.Any(), 0, nil).
		Return(jobID, nil)
	audit := mocks.NewMockAuditService(ctrl)
	audit.EXPECT().Log(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	svc := NewWalletService(
		mocks.NewMockDBTransactor(ctrl),
		postgres.NewWalletRepo(pool),
		mocks.NewMockTransactionRepository(ctrl),
		mocks.NewMockLedgerService(ctrl),
		mocks.NewMockMemoService(ctrl),
		jobs, guard, audit, zerolog.Nop(),
	)

	got, err := svc.CreateWallet(context.Background(), caller, 7)
	require.NoError(t, err)
	assert.Equal(t, jobID, got)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestWallet_CreateRejectsExisting(t *testing.T) {
	f := newWalletFixture(t)
	caller := &ports.AuthContext{UserID: testCaller}

	f.guard.EXPECT().AssertOwner(gomock.Any(), caller, testCaller, "wallet").Return(nil)
	f.wallets.EXPECT().GetByUserID(gomock.Any(), testCaller).
		Return(&domain.Wallet{UserID: testCaller}, nil)

	_, err := f.svc.CreateWallet(context.Background(), caller, testCaller)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_003", appErr.Code)
}

func TestWallet_GetWalletNotFound(t *testing.T) {
	f := newWalletFixture(t)
	caller := &ports.AuthContext{UserID: testCaller}

	f.guard.EXPECT().AssertOwner(gomock.Any(), caller, testCaller, "wallet").Return(nil)
	f.wallets.EXPECT().GetByUserID(gomock.Any(), testCaller).Return(nil, pgx.ErrNoRows)

	_, err := f.svc.GetWallet(context.Background(), caller, testCaller)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_002", appErr.Code)
}

func TestWallet_InitiateDeposit(t *testing.T) {
	f := newWalletFixture(t)
	caller := &ports.AuthContext{UserID: testCaller}
	jobID := uuid.New()
	memo := &domain.EncryptedMemo{EncryptedData: "aa", Salt: "bb", Timestamp: time.Now().Unix(), Hash: "cc"}

	f.guard.EXPECT().AssertOwner(gomock.Any(), caller, testCaller, "deposit").Return(nil)
	f.wallets.EXPECT().GetByUserID(gomock.Any(), testCaller).
		Return(&domain.Wallet{UserID: testCaller, Address: testHotAddr}, nil)
	f.memos.EXPECT().EncryptMemo(gomock.Any(), testAddress, gomock.Any()).Return(memo, nil)
	f.transactor.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
	f.tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
	f.txRepo.EXPECT().Create(gomock.Any(), f.tx, gomock.Any()).Return(nil)
	f.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	f.jobs.EXPECT().Enqueue(gomock.Any(), testCaller, domain.JobTypeDepositConfirmation, gomock.Any(), 0, nil).
		Return(jobID, nil)

	intent, err := f.svc.InitiateDeposit(context.Background(), caller, ports.DepositRequest{
		UserID:       testCaller,
		Amount:       decimal.NewFromInt(5),
		PayerAddress: testAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, testHotAddr, intent.DepositAddress)
	assert.Equal(t, memo, intent.Memo)
	assert.Equal(t, jobID, intent.JobID)
	assert.NotEqual(t, uuid.Nil, intent.TransactionID)
}

func TestWallet_InitiateDepositRejectsBadAmount(t *testing.T) {
	f := newWalletFixture(t)
	caller := &ports.AuthContext{UserID: testCaller}

	f.guard.EXPECT().AssertOwner(gomock.Any(), caller, testCaller, "deposit").Return(nil)

	_, err := f.svc.InitiateDeposit(context.Background(), caller, ports.DepositRequest{
		UserID:       testCaller,
		Amount:       decimal.Zero,
		PayerAddress: testAddress,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VAL_002", appErr.Code)
}
