package domain

import "time"

// VerificationLevel is the tiered KYC status gating transaction ceilings.
type VerificationLevel string

const (
	VerificationLevelNone     VerificationLevel = "none"
	VerificationLevelBasic    VerificationLevel = "basic"
	VerificationLevelEnhanced VerificationLevel = "enhanced"
	VerificationLevelFull     VerificationLevel = "full"
)

// VerificationStatus is the lifecycle state of a KYC record.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusApproved VerificationStatus = "approved"
	VerificationStatusRejected VerificationStatus = "rejected"
	VerificationStatusExpired  VerificationStatus = "expired"
)

// ComplianceRecord holds a user's KYC state. A missing record is treated as
// level none.
type ComplianceRecord struct {
	UserID    int64              `json:"user_id"`
	Level     VerificationLevel  `json:"verification_level"`
	Status    VerificationStatus `json:"verification_status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// RuleAction determines how a triggered compliance rule affects the outcome.
type RuleAction string

const (
	RuleActionAllow  RuleAction = "allow"
	RuleActionWarn   RuleAction = "warn"
	RuleActionBlock  RuleAction = "block"
	RuleActionReview RuleAction = "review"
)

// ComplianceResult is the outcome of evaluating the rule set for an operation.
type ComplianceResult struct {
	Allowed  bool     `json:"allowed"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}
