package worker

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

type jobQueue struct {
	jobs        ports.JobRepository
	audit       ports.AuditService
	maxAttempts int
	log         zerolog.Logger
}

// NewJobQueue creates the durable job queue front end. Every payload is
// stamped with the owning user before it is persisted; the stamp is
// re-validated by the worker that later claims the job.
func NewJobQueue(jobs ports.JobRepository, audit ports.AuditService, maxAttempts int, log zerolog.Logger) ports.JobQueue {
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultJobMaxAttempts
	}
	return &jobQueue{
		jobs:        jobs,
		audit:       audit,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Enqueue persists a new pending job and returns its id.
func (q *jobQueue) Enqueue(ctx context.Context, userID int64, jobType domain.JobType, payload map[string]interface{}, priority int, scheduledFor *time.Time) (uuid.UUID, error) {
	stamped, err := domain.StampPayload(userID, payload)
	if err != nil {
		return uuid.Nil, apperror.InternalError(err)
	}

	now := time.Now().UTC()
	runAt := now
	if scheduledFor != nil {
		runAt = scheduledFor.UTC()
	}

	job := &domain.Job{
		ID:           uuid.New(),
		UserID:       userID,
		Type:         jobType,
		Payload:      stamped,
		Priority:     priority,
		Status:       domain.JobStatusPending,
		Attempts:     0,
		MaxAttempts:  q.maxAttempts,
		ScheduledFor: runAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return uuid.Nil, apperror.ErrDatabaseError(err)
	}

	q.log.Debug().
		Str("job_id", job.ID.String()).
		Str("job_type", string(jobType)).
		Int64("user_id", userID).
		Msg("job enqueued")
	return job.ID, nil
}

// Cancel cancels the caller's own pending job. Jobs that have started
// processing run to completion and cannot be cancelled.
func (q *jobQueue) Cancel(ctx context.Context, caller *ports.AuthContext, jobID uuid.UUID) error {
	if caller == nil {
		return apperror.ErrInvalidToken()
	}

	// The lookup is scoped to the caller, so another user's job id behaves
	// exactly like a missing job.
	if _, err := q.jobs.GetByID(ctx, caller.UserID, jobID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrNotFound("Job")
		}
		return apperror.ErrDatabaseError(err)
	}

	cancelled, err := q.jobs.CancelPending(ctx, caller.UserID, jobID)
	if err != nil {
		return apperror.ErrDatabaseError(err)
	}
	if !cancelled {
		return apperror.ErrJobNotCancellable()
	}

	q.audit.Log(ctx, caller.UserID, domain.AuditActionJobCancelled, "job", jobID.String(), nil)
	return nil
}
