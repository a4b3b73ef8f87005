package service

import (
	"context"
	"testing"

	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/internal/core/ports/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestLedger_AvailableBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	txRepo.EXPECT().SumCompleted(gomock.Any(), int64(42)).Return(&ports.LedgerTotals{
		Deposited: decimal.NewFromInt(8),
		Withdrawn: decimal.NewFromInt(4),
	}, nil)

	svc := NewLedgerService(txRepo)
	summary, err := svc.AvailableBalance(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, summary.Available.Equal(decimal.NewFromInt(4)))
	assert.True(t, summary.Deposited.Equal(decimal.NewFromInt(8)))
	assert.True(t, summary.Withdrawn.Equal(decimal.NewFromInt(4)))
}

func TestLedger_AvailableNeverNegative(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	txRepo.EXPECT().SumCompleted(gomock.Any(), int64(42)).Return(&ports.LedgerTotals{
		Deposited: decimal.NewFromInt(1),
		Withdrawn: decimal.NewFromInt(3),
	}, nil)

	svc := NewLedgerService(txRepo)
	summary, err := svc.AvailableBalance(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, summary.Available.IsZero())
}

func TestLedger_HistoryClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	txRepo.EXPECT().List(gomock.Any(), int64(42), 20, 0).Return(nil, nil)

	svc := NewLedgerService(txRepo)
	_, err := svc.History(context.Background(), 42, 0, -5)
	require.NoError(t, err)
}
