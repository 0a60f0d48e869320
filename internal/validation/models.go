// Package validation is the trust gate: it independently re-verifies a
// structured intent against ground-truth order data before any mutation is
// permitted. Rules are pure functions over gathered evidence, dispatched
// from an explicit per-action table, and every run is audited.
package validation

import (
	"time"

	"ordergate/internal/intent"
	"ordergate/internal/order"
)

// RuleName identifies a validation rule in the per-action rule table.
type RuleName string

const (
	RuleOrderExists           RuleName = "orderExists"
	RuleOrderBelongsToUser    RuleName = "orderBelongsToUser"
	RuleOrderIsCancellable    RuleName = "orderIsCancellable"
	RuleNoRecentCancellations RuleName = "noRecentCancellations"
	RuleValidOrderStatus      RuleName = "validOrderStatus"
	RuleRateLimit             RuleName = "rateLimitCheck"
	RuleUnknownAction         RuleName = "unknownAction"
)

// Risk weights. Ownership mismatch carries the maximum weight: unauthorized
// cross-account access is the worst-case outcome this gate exists to prevent.
// Cancellability is a business rule, not a security issue, so it sits low.
const (
	defaultRiskWeight       = 25
	weightOrderNotFound     = 50
	weightOwnershipData     = 75
	weightOwnershipMismatch = 100
	weightNotCancellable    = 15
	weightCancellationBurst = 40
	weightTerminalStatus    = 10
	weightRateLimited       = 30
	weightRulePanic         = 50
)

// Supplemental risk adjustments. These inform the score and recommendations
// but never flip validity on their own.
const (
	riskLowConfidenceCancel = 20
	riskAutomationHeuristic = 25
	riskSuspiciousOrderID   = 15
)

// maxRiskScore caps the accumulated score.
const maxRiskScore = 100

// Check is the outcome of one rule execution. Immutable once produced.
type Check struct {
	Name       string         `json:"name"`
	Passed     bool           `json:"passed"`
	Reason     string         `json:"reason,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	RiskWeight int            `json:"risk_weight"`
}

// Result is the terminal outcome of one validation pass. IsValid is the
// conjunction of all executed checks; RiskScore additionally folds in
// supplemental adjustments and is clamped to 100.
type Result struct {
	IsValid         bool     `json:"is_valid"`
	RiskScore       int      `json:"risk_score"`
	Checks          []Check  `json:"checks"`
	Reasons         []string `json:"reasons"`
	Recommendations []string `json:"recommendations"`
}

// RequestContext identifies who is asking.
type RequestContext struct {
	UserID    string
	SessionID string
}

// Limits carries the configurable thresholds for the rate/abuse rules.
type Limits struct {
	MaxCancellationsPerDay int
	RateLimitWindow        time.Duration
	RateLimitMax           int
}

// DefaultLimits mirror the documented business rules.
func DefaultLimits() Limits {
	return Limits{
		MaxCancellationsPerDay: 5,
		RateLimitWindow:        5 * time.Minute,
		RateLimitMax:           50,
	}
}

// Evidence is everything a rule may consult, gathered once per validation
// pass so rule evaluation itself is pure and deterministic: validating the
// same (intent, order-snapshot) pair twice yields identical results.
type Evidence struct {
	Intent  *intent.StructuredIntent
	Request RequestContext

	// Order snapshot. StoreUnavailable means the lookup failed for a reason
	// other than not-found; order-dependent rules then fail closed.
	Order            *order.Order
	OrderNotFound    bool
	StoreUnavailable bool

	// CancellableSet is the action-dependent set of cancellable states.
	CancellableSet []order.Status

	// Trailing-window counts from the audit trail. The audit side is
	// fail-open, so these degrade to zero when the audit store is down.
	RecentCancellations int
	RecentEvents        int
	RecentEventsBurst   int

	Limits Limits
}
