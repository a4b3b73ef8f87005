package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAudit_LogPersistsInBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)

	written := make(chan *domain.AuditLog, 1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) error {
			written <- entry
			return nil
		})

	svc := NewAuditService(repo, zerolog.Nop())
	svc.Log(context.Background(), 42, domain.AuditActionWalletCreated, "wallet", "w-1", map[string]interface{}{"address": "UQx"})

	select {
	case entry := <-written:
		assert.Equal(t, int64(42), entry.UserID)
		assert.Equal(t, domain.AuditActionWalletCreated, entry.Action)
		assert.Equal(t, domain.AuditSeverityInfo, entry.Severity)
		assert.Contains(t, entry.Details, "address")
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry never persisted")
	}
}

func TestAudit_PersistFailureDoesNotPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)

	done := make(chan struct{}, 1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ *domain.AuditLog) error {
			done <- struct{}{}
			return fmt.Errorf("database down")
		})

	svc := NewAuditService(repo, zerolog.Nop())
	// Must not panic or block the caller.
	svc.Log(context.Background(), 42, domain.AuditActionDepositInitiated, "transaction", "t-1", nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("audit write never attempted")
	}
}

func TestAudit_CrossUserAccessIsCritical(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)

	security := make(chan *domain.SecurityLog, 1)
	repo.EXPECT().CreateSecurity(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.SecurityLog) error {
			security <- entry
			return nil
		})

	mirrored := make(chan *domain.AuditLog, 1)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry *domain.AuditLog) error {
			mirrored <- entry
			return nil
		})

	svc := NewAuditService(repo, zerolog.Nop())
	svc.LogCrossUserAccess(context.Background(), 42, 99, "wallet", true)

	select {
	case entry := <-security:
		assert.Equal(t, int64(42), entry.AttemptingUserID)
		assert.Equal(t, int64(99), entry.TargetUserID)
		assert.True(t, entry.Blocked)
	case <-time.After(2 * time.Second):
		t.Fatal("security entry never persisted")
	}

	select {
	case entry := <-mirrored:
		require.Equal(t, domain.AuditActionCrossUserAttempt, entry.Action)
		assert.Equal(t, domain.AuditSeverityCritical, entry.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("audit mirror never persisted")
	}
}
