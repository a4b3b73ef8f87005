package postgres

import (
	"context"
	"errors"
	"fmt"

	"gift-market-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ComplianceRepo implements ports.ComplianceRepository.
type ComplianceRepo struct {
	pool Pool
}

// NewComplianceRepo creates a new ComplianceRepo.
func NewComplianceRepo(pool Pool) *ComplianceRepo {
	return &ComplianceRepo{pool: pool}
}

// GetByUserID fetches the user's KYC record. A missing record surfaces as
// pgx.ErrNoRows; the compliance engine maps that to level none.
func (r *ComplianceRepo) GetByUserID(ctx context.Context, userID int64) (*domain.ComplianceRecord, error) {
	query := `SELECT user_id, verification_level, verification_status, updated_at
		FROM compliance_records WHERE user_id = $1`

	rec := &domain.ComplianceRecord{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(&rec.UserID, &rec.Level, &rec.Status, &rec.UpdatedAt)
	if err != nil {
		// pgx.ErrNoRows passes through untouched; callers branch on it.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get compliance record: %w", err)
	}
	return rec, nil
}
