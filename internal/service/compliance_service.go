package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gift-market-wallet/config"
	"gift-market-wallet/internal/core/domain"
	"gift-market-wallet/internal/core/ports"
	"gift-market-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// complianceRule is one ordered check. A rule returns its triggered action
// and a human-readable reason, or RuleActionAllow when it passes.
type complianceRule struct {
	name  string
	check func(ctx context.Context, in *ruleInput) (domain.RuleAction, string, error)
}

type ruleInput struct {
	userID    int64
	operation string
	amount    *decimal.Decimal
	record    *domain.ComplianceRecord
}

type complianceService struct {
	compliance   ports.ComplianceRepository
	transactions ports.TransactionRepository
	audit        ports.AuditService
	log          zerolog.Logger

	levelLimits      map[domain.VerificationLevel]decimal.Decimal
	amlTxThreshold   int
	amlLargeAmount   decimal.Decimal
	rules            []complianceRule
}

// NewComplianceService creates the compliance engine. Rules run in a fixed
// order; the first blocking rule wins, warnings accumulate.
func NewComplianceService(
	compliance ports.ComplianceRepository,
	transactions ports.TransactionRepository,
	audit ports.AuditService,
	cfg config.ComplianceConfig,
	log zerolog.Logger,
) (ports.ComplianceService, error) {
	limits := map[domain.VerificationLevel]string{
		domain.VerificationLevelNone:     cfg.LimitNone,
		domain.VerificationLevelBasic:    cfg.LimitBasic,
		domain.VerificationLevelEnhanced: cfg.LimitEnhanced,
		domain.VerificationLevelFull:     cfg.LimitFull,
	}
	parsed := make(map[domain.VerificationLevel]decimal.Decimal, len(limits))
	for level, raw := range limits {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse compliance limit for level %s: %w", level, err)
		}
		parsed[level] = limit
	}
	largeAmount, err := decimal.NewFromString(cfg.AMLLargeAmount)
	if err != nil {
		return nil, fmt.Errorf("parse AML large amount: %w", err)
	}

	s := &complianceService{
		compliance:     compliance,
		transactions:   transactions,
		audit:          audit,
		log:            log,
		levelLimits:    parsed,
		amlTxThreshold: cfg.AMLDailyTxThreshold,
		amlLargeAmount: largeAmount,
	}
	s.rules = []complianceRule{
		{name: "kyc_status", check: s.checkKYCStatus},
		{name: "verification_limit", check: s.checkVerificationLimit},
		{name: "aml_frequency", check: s.checkFrequency},
		{name: "aml_large_amount", check: s.checkLargeAmount},
	}
	return s, nil
}

// CheckUserCompliance evaluates the ordered rule set for one operation.
// Every evaluation is audit-logged, allowed or not.
func (s *complianceService) CheckUserCompliance(ctx context.Context, userID int64, operation string, amount *decimal.Decimal) (*domain.ComplianceResult, error) {
	record, err := s.compliance.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrDatabaseError(err)
		}
		// No KYC record means level none, which still permits small amounts.
		record = &domain.ComplianceRecord{
			UserID: userID,
			Level:  domain.VerificationLevelNone,
			Status: domain.VerificationStatusApproved,
		}
	}

	in := &ruleInput{userID: userID, operation: operation, amount: amount, record: record}
	result := &domain.ComplianceResult{Allowed: true}

	for _, rule := range s.rules {
		action, reason, err := rule.check(ctx, in)
		if err != nil {
			return nil, err
		}
		switch action {
		case domain.RuleActionBlock:
			result.Allowed = false
			result.Errors = append(result.Errors, reason)
		case domain.RuleActionWarn, domain.RuleActionReview:
			result.Warnings = append(result.Warnings, reason)
		}
		if !result.Allowed {
			break
		}
	}

	details := map[string]interface{}{
		"operation": operation,
		"level":     string(record.Level),
		"allowed":   result.Allowed,
	}
	if amount != nil {
		details["amount"] = amount.String()
	}
	if len(result.Errors) > 0 {
		details["errors"] = result.Errors
	}
	if len(result.Warnings) > 0 {
		details["warnings"] = result.Warnings
	}
	s.audit.Log(ctx, userID, domain.AuditActionComplianceCheck, "compliance", "", details)

	return result, nil
}

// checkKYCStatus blocks withdrawals for expired or rejected KYC.
func (s *complianceService) checkKYCStatus(_ context.Context, in *ruleInput) (domain.RuleAction, string, error) {
	if in.operation != "withdrawal" {
		return domain.RuleActionAllow, "", nil
	}
	switch in.record.Status {
	case domain.VerificationStatusRejected:
		return domain.RuleActionBlock, "identity verification was rejected", nil
	case domain.VerificationStatusExpired:
		return domain.RuleActionBlock, "identity verification has expired", nil
	}
	return domain.RuleActionAllow, "", nil
}

// checkVerificationLimit enforces the per-transaction ceiling for the user's
// verification level.
func (s *complianceService) checkVerificationLimit(_ context.Context, in *ruleInput) (domain.RuleAction, string, error) {
	if in.amount == nil {
		return domain.RuleActionAllow, "", nil
	}
	limit, ok := s.levelLimits[in.record.Level]
	if !ok {
		limit = s.levelLimits[domain.VerificationLevelNone]
	}
	if in.amount.GreaterThan(limit) {
		return domain.RuleActionBlock,
			fmt.Sprintf("amount %s exceeds the %s limit for verification level %s", in.amount.String(), limit.String(), in.record.Level),
			nil
	}
	return domain.RuleActionAllow, "", nil
}

// checkFrequency flags unusually many transactions in the last 24 hours.
func (s *complianceService) checkFrequency(ctx context.Context, in *ruleInput) (domain.RuleAction, string, error) {
	count, err := s.transactions.CountSince(ctx, in.userID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return domain.RuleActionAllow, "", apperror.ErrDatabaseError(err)
	}
	if count >= s.amlTxThreshold {
		return domain.RuleActionWarn,
			fmt.Sprintf("unusual transaction frequency: %d transactions in 24h", count),
			nil
	}
	return domain.RuleActionAllow, "", nil
}

// checkLargeAmount flags single large transfers for review.
func (s *complianceService) checkLargeAmount(_ context.Context, in *ruleInput) (domain.RuleAction, string, error) {
	if in.amount == nil {
		return domain.RuleActionAllow, "", nil
	}
	if in.amount.GreaterThanOrEqual(s.amlLargeAmount) {
		return domain.RuleActionReview,
			fmt.Sprintf("large transaction of %s flagged for review", in.amount.String()),
			nil
	}
	return domain.RuleActionAllow, "", nil
}
