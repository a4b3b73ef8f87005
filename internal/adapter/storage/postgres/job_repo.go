package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobRepo implements ports.JobRepository.
type JobRepo struct {
	pool Pool
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(pool Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, user_id, job_type, payload, priority, status, attempts, max_attempts, scheduled_for, last_error, created_at, updated_at`

// Create inserts a new job.
func (r *JobRepo) Create(ctx context.Context, j *domain.Job) error {
	query := `INSERT INTO jobs (id, user_id, job_type, payload, priority, status, attempts, max_attempts, scheduled_for, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		j.ID, j.UserID, j.Type, j.Payload, j.Priority, j.Status,
		j.Attempts, j.MaxAttempts, j.ScheduledFor, j.LastError,
		j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches one of the user's own jobs.
func (r *JobRepo) GetByID(ctx context.Context, userID int64, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE user_id = $1 AND id = $2`

	return scanJob(r.pool.QueryRow(ctx, query, userID, id))
}

// ClaimNext atomically claims the next ready job of the given type. The
// conditional update plus SKIP LOCKED guarantees no two workers process the
// same job under concurrent pollers.
func (r *JobRepo) ClaimNext(ctx context.Context, jobType domain.JobType) (*domain.Job, error) {
	query := `UPDATE jobs SET status = 'processing', updated_at = NOW()
		WHERE id = (
			SELECT id FROM jobs
			WHERE job_type = $1 AND status IN ('pending', 'retrying') AND scheduled_for <= NOW()
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	return scanJob(r.pool.QueryRow(ctx, query, jobType))
}

// MarkCompleted moves a job to terminal completed.
func (r *JobRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE jobs SET status = 'completed', updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id)
}

// MarkRetrying reschedules a failed attempt.
func (r *JobRepo) MarkRetrying(ctx context.Context, id uuid.UUID, attempts int, scheduledFor time.Time, lastError string) error {
	query := `UPDATE jobs SET status = 'retrying', attempts = $1, scheduled_for = $2, last_error = $3, updated_at = NOW() WHERE id = $4`

	tag, err := r.pool.Exec(ctx, query, attempts, scheduledFor, lastError, id)
	if err != nil {
		return fmt.Errorf("mark job retrying: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// MarkFailed moves a job to terminal failed after attempts are exhausted.
func (r *JobRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	query := `UPDATE jobs SET status = 'failed', attempts = $1, last_error = $2, updated_at = NOW() WHERE id = $3`

	tag, err := r.pool.Exec(ctx, query, attempts, lastError, id)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// CancelPending cancels the caller's own pending job. Processing jobs run to
// completion; the conditional update returns no rows for them.
func (r *JobRepo) CancelPending(ctx context.Context, userID int64, id uuid.UUID) (bool, error) {
	query := `UPDATE jobs SET status = 'failed', last_error = 'cancelled by owner', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'`

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *JobRepo) exec(ctx context.Context, query string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	j := &domain.Job{}
	err := row.Scan(
		&j.ID, &j.UserID, &j.Type, &j.Payload, &j.Priority, &j.Status,
		&j.Attempts, &j.MaxAttempts, &j.ScheduledFor, &j.LastError,
		&j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		// pgx.ErrNoRows passes through untouched; callers branch on it.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return j, nil
}
