package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionWalletCreated       AuditAction = "wallet_created"
	AuditActionWalletAccessed      AuditAction = "wallet_accessed"
	AuditActionDepositInitiated    AuditAction = "deposit_initiated"
	AuditActionDepositConfirmed    AuditAction = "deposit_confirmed"
	AuditActionWithdrawalInitiated AuditAction = "withdrawal_initiated"
	AuditActionWithdrawalCompleted AuditAction = "withdrawal_completed"
	AuditActionWithdrawalFailed    AuditAction = "withdrawal_failed"
	AuditActionComplianceCheck     AuditAction = "compliance_check"
	AuditActionCrossUserAttempt    AuditAction = "cross_user_access_attempt"
	AuditActionAssistantQuery      AuditAction = "assistant_query"
	AuditActionJobFailed           AuditAction = "job_failed"
	AuditActionJobCancelled        AuditAction = "job_cancelled"
	AuditActionSessionOpened       AuditAction = "session_opened"
)

// AuditSeverity grades audit entries for security triage.
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "info"
	AuditSeverityWarning  AuditSeverity = "warning"
	AuditSeverityCritical AuditSeverity = "critical"
)

// AuditLog is an immutable, append-only record of a wallet/compliance/auth
// action, keyed by user id.
type AuditLog struct {
	ID           uuid.UUID     `json:"id"`
	UserID       int64         `json:"user_id"`
	Action       AuditAction   `json:"action"`
	ResourceType string        `json:"resource_type"`
	ResourceID   string        `json:"resource_id,omitempty"`
	Details      string        `json:"details,omitempty"` // JSON string
	Severity     AuditSeverity `json:"severity"`
	SessionID    string        `json:"session_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// SecurityLog records a cross-user access attempt. Blocked is a structural
// column so responders can query active breaches (blocked=false) apart from
// blocked attempts without parsing detail strings.
type SecurityLog struct {
	ID               uuid.UUID `json:"id"`
	AttemptingUserID int64     `json:"attempting_user_id"`
	TargetUserID     int64     `json:"target_user_id"`
	Resource         string    `json:"resource"`
	Blocked          bool      `json:"blocked"`
	CreatedAt        time.Time `json:"created_at"`
}
