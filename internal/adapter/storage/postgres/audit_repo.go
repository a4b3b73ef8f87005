package postgres

import (
	"context"
	"fmt"

	"gift-market-wallet/internal/core/domain"
)

// AuditRepo implements ports.AuditRepository. Both tables are append-only;
// there are no update or delete paths.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Create appends an audit entry.
func (r *AuditRepo) Create(ctx context.Context, e *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, details, severity, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID,
		e.Details, e.Severity, e.SessionID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// CreateSecurity appends a cross-user access record. The blocked column is
// structural so responders can query active breaches directly.
func (r *AuditRepo) CreateSecurity(ctx context.Context, e *domain.SecurityLog) error {
	query := `INSERT INTO security_logs (id, attempting_user_id, target_user_id, resource, blocked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.AttemptingUserID, e.TargetUserID, e.Resource, e.Blocked, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert security log: %w", err)
	}
	return nil
}

// ListSecurity returns recent cross-user access records, optionally filtered
// by blocked state.
func (r *AuditRepo) ListSecurity(ctx context.Context, blocked *bool, limit int) ([]domain.SecurityLog, error) {
	query := `SELECT id, attempting_user_id, target_user_id, resource, blocked, created_at
		FROM security_logs WHERE ($1::boolean IS NULL OR blocked = $1)
		ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, blocked, limit)
	if err != nil {
		return nil, fmt.Errorf("list security logs: %w", err)
	}
	defer rows.Close()

	var items []domain.SecurityLog
	for rows.Next() {
		e := domain.SecurityLog{}
		if err := rows.Scan(&e.ID, &e.AttemptingUserID, &e.TargetUserID, &e.Resource, &e.Blocked, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan security log: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
