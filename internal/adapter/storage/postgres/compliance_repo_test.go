package postgres

import (
	"context"
	"testing"
	"time"

	"gift-market-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func complianceColumns() []string {
	return []string{"user_id", "verification_level", "verification_status", "updated_at"}
}

func TestComplianceRepo_GetByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewComplianceRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM compliance_records WHERE user_id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(complianceColumns()).
			AddRow(int64(42), domain.VerificationLevelBasic, domain.VerificationStatusApproved, time.Now().UTC()))

	rec, err := repo.GetByUserID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationLevelBasic, rec.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplianceRepo_GetByUserID_NoRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewComplianceRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM compliance_records WHERE user_id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(complianceColumns()))

	// A user who never verified surfaces as pgx.ErrNoRows; the compliance
	// engine maps that to level none instead of failing the check.
	rec, err := repo.GetByUserID(context.Background(), 99)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Nil(t, rec)
}
