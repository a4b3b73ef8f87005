package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gift-market-wallet/config"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// HandlerFunc executes one claimed job. A nil return marks the job
// completed; an error triggers retry bookkeeping until the job's attempts
// are exhausted.
type HandlerFunc func(ctx context.Context, job *domain.Job) error

// Worker polls the durable queue and dispatches claimed jobs to their
// registered handlers. One poll loop runs per job type; a shared semaphore
// bounds total concurrent executions.
type Worker struct {
	jobs     ports.JobRepository
	audit    ports.AuditService
	handlers map[domain.JobType]HandlerFunc
	log      zerolog.Logger

	pollInterval   time.Duration
	retryBaseDelay time.Duration
	sem            chan struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a worker from the job configuration and a handler registry.
func New(jobs ports.JobRepository, audit ports.AuditService, cfg config.JobsConfig, handlers map[domain.JobType]HandlerFunc, log zerolog.Logger) *Worker {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{
		jobs:           jobs,
		audit:          audit,
		handlers:       handlers,
		log:            log,
		pollInterval:   cfg.PollInterval,
		retryBaseDelay: cfg.RetryBaseDelay,
		sem:            make(chan struct{}, maxConcurrent),
	}
}

// Start launches one poll loop per registered job type. It returns
// immediately; Stop blocks until in-flight jobs finish.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for jobType := range w.handlers {
		w.wg.Add(1)
		go w.pollLoop(ctx, jobType)
	}
	w.log.Info().Int("job_types", len(w.handlers)).Msg("worker started")
}

// Stop signals all loops to exit and waits for in-flight jobs.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info().Msg("worker stopped")
}

func (w *Worker) pollLoop(ctx context.Context, jobType domain.JobType) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Drain all ready jobs of this type before sleeping again.
		for {
			claimed, err := w.claimAndRun(ctx, jobType)
			if err != nil || !claimed {
				break
			}
		}
	}
}

// claimAndRun claims at most one job and executes it synchronously under
// the concurrency semaphore. Returns false when no job was ready.
func (w *Worker) claimAndRun(ctx context.Context, jobType domain.JobType) (bool, error) {
	select {
	case w.sem <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	defer func() { <-w.sem }()

	job, err := w.jobs.ClaimNext(ctx, jobType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		w.log.Error().Err(err).Str("job_type", string(jobType)).Msg("claim failed")
		return false, err
	}
	if job == nil {
		// A repository that signals an empty queue without pgx.ErrNoRows
		// must not crash the poll loop or spin it hot.
		return false, nil
	}

	w.run(ctx, job)
	return true, nil
}

func (w *Worker) run(ctx context.Context, job *domain.Job) {
	log := w.log.With().
		Str("job_id", job.ID.String()).
		Str("job_type", string(job.Type)).
		Int64("user_id", job.UserID).
		Logger()

	// Ownership is re-validated on every execution. A payload whose owner
	// does not match the job row is terminally failed, never retried.
	if err := job.ValidateOwnership(); err != nil {
		log.Error().Err(err).Msg("job ownership validation failed")
		w.failTerminal(ctx, job, fmt.Sprintf("ownership validation failed: %v", err))
		return
	}

	handler := w.handlers[job.Type]
	err := handler(ctx, job)
	if err == nil {
		if markErr := w.jobs.MarkCompleted(ctx, job.ID); markErr != nil {
			log.Error().Err(markErr).Msg("mark completed failed")
		}
		log.Debug().Msg("job completed")
		return
	}

	attempts := job.Attempts + 1
	if attempts < job.MaxAttempts {
		// Escalating delay: base * attempts-so-far.
		delay := w.retryBaseDelay * time.Duration(attempts)
		nextRun := time.Now().UTC().Add(delay)
		if markErr := w.jobs.MarkRetrying(ctx, job.ID, attempts, nextRun, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("mark retrying failed")
		}
		log.Warn().Err(err).Int("attempts", attempts).Dur("retry_in", delay).Msg("job failed, will retry")
		return
	}

	if markErr := w.jobs.MarkFailed(ctx, job.ID, attempts, err.Error()); markErr != nil {
		log.Error().Err(markErr).Msg("mark failed failed")
	}
	log.Error().Err(err).Int("attempts", attempts).Msg("job failed terminally")
	w.audit.Log(ctx, job.UserID, domain.AuditActionJobFailed, "job", job.ID.String(), map[string]interface{}{
		"job_type": string(job.Type),
		"attempts": attempts,
		"error":    err.Error(),
	})
}

func (w *Worker) failTerminal(ctx context.Context, job *domain.Job, reason string) {
	if err := w.jobs.MarkFailed(ctx, job.ID, job.Attempts+1, reason); err != nil {
		w.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("mark failed failed")
	}
	w.audit.Log(ctx, job.UserID, domain.AuditActionJobFailed, "job", job.ID.String(), map[string]interface{}{
		"job_type": string(job.Type),
		"reason":   reason,
	})
}
