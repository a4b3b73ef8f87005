package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the worker pool responsible for a job.
type JobType string

const (
	JobTypeWalletCreation      JobType = "wallet_creation"
	JobTypeDepositConfirmation JobType = "deposit_confirmation"
	JobTypeBalanceRefresh      JobType = "balance_refresh"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// DefaultJobMaxAttempts bounds retries before a job goes terminal failed.
const DefaultJobMaxAttempts = 3

// Job is a unit of deferred, retryable, user-scoped background work. The
// payload always carries the owning user id and an explicit scoped marker;
// workers must reject any payload whose owner differs from the job's owner.
type Job struct {
	ID           uuid.UUID       `json:"id"`
	UserID       int64           `json:"user_id"`
	Type         JobType         `json:"job_type"`
	Payload      json.RawMessage `json:"payload"`
	Priority     int             `json:"priority"`
	Status       JobStatus       `json:"status"`
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	LastError    *string         `json:"last_error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// jobEnvelope is the ownership stamp every payload carries.
type jobEnvelope struct {
	UserID     int64 `json:"user_id"`
	UserScoped bool  `json:"user_scoped"`
}

// StampPayload merges the ownership envelope into a payload map.
func StampPayload(userID int64, payload map[string]interface{}) (json.RawMessage, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["user_id"] = userID
	payload["user_scoped"] = true
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}
	return raw, nil
}

// ValidateOwnership checks the payload's ownership stamp against the job's
// owning user. It catches both storage corruption and programming errors
// that would leak one user's operation into another's context.
func (j *Job) ValidateOwnership() error {
	var env jobEnvelope
	if err := json.Unmarshal(j.Payload, &env); err != nil {
		return fmt.Errorf("unmarshal job payload: %w", err)
	}
	if !env.UserScoped {
		return fmt.Errorf("job %s payload missing user_scoped marker", j.ID)
	}
	if env.UserID != j.UserID {
		return fmt.Errorf("job %s payload owner %d does not match job owner %d", j.ID, env.UserID, j.UserID)
	}
	return nil
}
