package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/internal/core/ports/mocks"
	"gift-market-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestQueue_EnqueueStampsOwnership(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	audit := mocks.NewMockAuditService(ctrl)

	var created *domain.Job
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, job *domain.Job) error {
			created = job
			return nil
		})

	queue := NewJobQueue(repo, audit, 3, zerolog.Nop())
	jobID, err := queue.Enqueue(context.Background(), 42, domain.JobTypeBalanceRefresh, map[string]interface{}{"reason": "manual"}, 1, nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, jobID)

	require.NotNil(t, created)
	assert.Equal(t, int64(42), created.UserID)
	assert.Equal(t, 3, created.MaxAttempts)
	assert.Equal(t, domain.JobStatusPending, created.Status)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(created.Payload, &payload))
	assert.Equal(t, float64(42), payload["user_id"])
	assert.Equal(t, true, payload["user_scoped"])
	assert.Equal(t, "manual", payload["reason"])

	require.NoError(t, created.ValidateOwnership())
}

func TestQueue_CancelOwnPendingJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	audit := mocks.NewMockAuditService(ctrl)
	jobID := uuid.New()

	repo.EXPECT().GetByID(gomock.Any(), int64(42), jobID).Return(&domain.Job{ID: jobID, UserID: 42}, nil)
	repo.EXPECT().CancelPending(gomock.Any(), int64(42), jobID).Return(true, nil)
	audit.EXPECT().Log(gomock.Any(), int64(42), domain.AuditActionJobCancelled, "job", jobID.String(), nil)

	queue := NewJobQueue(repo, audit, 3, zerolog.Nop())
	err := queue.Cancel(context.Background(), &ports.AuthContext{UserID: 42}, jobID)
	assert.NoError(t, err)
}

func TestQueue_CancelProcessingJobRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	jobID := uuid.New()

	repo.EXPECT().GetByID(gomock.Any(), int64(42), jobID).
		Return(&domain.Job{ID: jobID, UserID: 42, Status: domain.JobStatusProcessing}, nil)
	repo.EXPECT().CancelPending(gomock.Any(), int64(42), jobID).Return(false, nil)

	queue := NewJobQueue(repo, mocks.NewMockAuditService(ctrl), 3, zerolog.Nop())
	err := queue.Cancel(context.Background(), &ports.AuthContext{UserID: 42}, jobID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_006", appErr.Code)
}

func TestQueue_CancelOtherUsersJobLooksLikeMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	jobID := uuid.New()

	// The lookup itself is user-scoped, so a foreign job id yields no rows.
	repo.EXPECT().GetByID(gomock.Any(), int64(42), jobID).Return(nil, pgx.ErrNoRows)

	queue := NewJobQueue(repo, mocks.NewMockAuditService(ctrl), 3, zerolog.Nop())
	err := queue.Cancel(context.Background(), &ports.AuthContext{UserID: 42}, jobID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "PAY_004", appErr.Code)
}
