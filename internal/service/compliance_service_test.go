package service

import (
	"context"
	"testing"

	"gift-market-wallet/config"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports/mocks"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testComplianceConfig() config.ComplianceConfig {
	return config.ComplianceConfig{
		LimitNone:           "100",
		LimitBasic:          "1000",
		LimitEnhanced:       "10000",
		LimitFull:           "100000",
		AMLDailyTxThreshold: 20,
		AMLLargeAmount:      "5000",
	}
}

type complianceFixture struct {
	svc          *complianceService
	compliance   *mocks.MockComplianceRepository
	transactions *mocks.MockTransactionRepository
}

func newComplianceFixture(t *testing.T) *complianceFixture {
	ctrl := gomock.NewController(t)
	compliance := mocks.NewMockComplianceRepository(ctrl)
	transactions := mocks.NewMockTransactionRepository(ctrl)
	audit := mocks.NewMockAuditService(ctrl)
	audit.EXPECT().Log(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	svc, err := NewComplianceService(compliance, transactions, audit, testComplianceConfig(), zerolog.Nop())
	require.NoError(t, err)
	return &complianceFixture{
		svc:          svc.(*complianceService),
		compliance:   compliance,
		transactions: transactions,
	}
}

func record(level domain.VerificationLevel, status domain.VerificationStatus) *domain.ComplianceRecord {
	return &domain.ComplianceRecord{UserID: 42, Level: level, Status: status}
}

func TestCompliance_WithinLimitAllowed(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).
		Return(record(domain.VerificationLevelBasic, domain.VerificationStatusApproved), nil)
	f.transactions.EXPECT().CountSince(gomock.Any(), int64(42), gomock.Any()).Return(3, nil)

	amount := decimal.NewFromInt(500)
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "withdrawal", &amount)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Empty(t, result.Errors)
}

func TestCompliance_LevelCeilingBlocks(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).
		Return(record(domain.VerificationLevelNone, domain.VerificationStatusApproved), nil)

	amount := decimal.RequireFromString("100.01")
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "withdrawal", &amount)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "exceeds")
}

func TestCompliance_MissingRecordTreatedAsNone(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).Return(nil, pgx.ErrNoRows)
	f.transactions.EXPECT().CountSince(gomock.Any(), int64(42), gomock.Any()).Return(0, nil)

	amount := decimal.NewFromInt(50)
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "withdrawal", &amount)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCompliance_RejectedKYCBlocksWithdrawal(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).
		Return(record(domain.VerificationLevelFull, domain.VerificationStatusRejected), nil)

	amount := decimal.NewFromInt(10)
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "withdrawal", &amount)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestCompliance_RejectedKYCDoesNotBlockDeposit(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).
		Return(record(domain.VerificationLevelFull, domain.VerificationStatusRejected), nil)
	f.transactions.EXPECT().CountSince(gomock.Any(), int64(42), gomock.Any()).Return(0, nil)

	amount := decimal.NewFromInt(10)
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "deposit", &amount)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCompliance_FrequencyWarning(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).
		Return(record(domain.VerificationLevelEnhanced, domain.VerificationStatusApproved), nil)
	f.transactions.EXPECT().CountSince(gomock.Any(), int64(42), gomock.Any()).Return(25, nil)

	amount := decimal.NewFromInt(10)
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "withdrawal", &amount)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "frequency is a warning, not a block")
	assert.NotEmpty(t, result.Warnings)
}

func TestCompliance_LargeAmountFlagged(t *testing.T) {
	f := newComplianceFixture(t)
	f.compliance.EXPECT().GetByUserID(gomock.Any(), int64(42)).
		Return(record(domain.VerificationLevelEnhanced, domain.VerificationStatusApproved), nil)
	f.transactions.EXPECT().CountSince(gomock.Any(), int64(42), gomock.Any()).Return(0, nil)

	amount := decimal.NewFromInt(6000)
	result, err := f.svc.CheckUserCompliance(context.Background(), 42, "withdrawal", &amount)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "review")
}
