package service

import (
	"context"
	"encoding/json"
	"time"

	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// persistTimeout bounds background audit writes so they cannot pile up
// behind a stuck database.
const persistTimeout = 5 * time.Second

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates the fire-and-forget audit sink. Audit persistence
// failures are logged but never propagate to the operation being audited.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audited action in the background.
func (s *auditService) Log(ctx context.Context, userID int64, action domain.AuditAction, resourceType, resourceID string, details map[string]interface{}) {
	var detailsJSON string
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.log.Error().Err(err).Str("action", string(action)).Msg("audit details not serializable")
		} else {
			detailsJSON = string(raw)
		}
	}

	sessionID := ""
	if auth, ok := AuthFromContext(ctx); ok {
		sessionID = auth.SessionID
	}

	entry := &domain.AuditLog{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      detailsJSON,
		Severity:     severityFor(action),
		SessionID:    sessionID,
		CreatedAt:    time.Now().UTC(),
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.repo.Create(bgCtx, entry); err != nil {
			s.log.Error().Err(err).
				Int64("user_id", userID).
				Str("action", string(action)).
				Msg("audit log write failed")
		}
	}()
}

// LogCrossUserAccess records a cross-user access attempt in the security log
// and mirrors it into the audit trail at critical severity.
func (s *auditService) LogCrossUserAccess(ctx context.Context, attemptingUserID, targetUserID int64, resource string, blocked bool) {
	entry := &domain.SecurityLog{
		ID:               uuid.New(),
		AttemptingUserID: attemptingUserID,
		TargetUserID:     targetUserID,
		Resource:         resource,
		Blocked:          blocked,
		CreatedAt:        time.Now().UTC(),
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.repo.CreateSecurity(bgCtx, entry); err != nil {
			s.log.Error().Err(err).
				Int64("attempting_user_id", attemptingUserID).
				Int64("target_user_id", targetUserID).
				Msg("security log write failed")
		}
	}()

	s.Log(ctx, attemptingUserID, domain.AuditActionCrossUserAttempt, "user", "", map[string]interface{}{
		"target_user_id": targetUserID,
		"resource":       resource,
		"blocked":        blocked,
	})
}

func severityFor(action domain.AuditAction) domain.AuditSeverity {
	switch action {
	case domain.AuditActionCrossUserAttempt:
		return domain.AuditSeverityCritical
	case domain.AuditActionWithdrawalFailed, domain.AuditActionJobFailed:
		return domain.AuditSeverityWarning
	default:
		return domain.AuditSeverityInfo
	}
}
