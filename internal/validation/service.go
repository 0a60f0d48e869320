package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ordergate/internal/audit"
	"ordergate/internal/intent"
	"ordergate/internal/order"
	"ordergate/pkg/platform/sentinel"
)

const (
	// Confidence below this on a state-changing intent adds supplemental risk.
	lowConfidenceThreshold = 0.5

	// burstWindow/burstThreshold drive the automation heuristic: a human does
	// not issue more than ten chat requests in a minute.
	burstWindow    = time.Minute
	burstThreshold = 10
)

// cancellationActions is the audit filter for the 24h cancellation cap. Both
// the request and the completed cancellation count against it.
var cancellationActions = []string{
	audit.ActionCancellationRequested,
	audit.ActionOrderCancelled,
}

// Service runs the validation pass: gather evidence once, execute the
// action's rule list in full, fold in supplemental risk, and audit the run.
type Service struct {
	orders order.Store
	audits *audit.Recorder
	limits Limits
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithLimits overrides DefaultLimits.
func WithLimits(limits Limits) ServiceOption {
	return func(s *Service) { s.limits = limits }
}

// NewService constructs the validator. The audit recorder is mandatory: an
// unaudited trust gate is not a trust gate.
func NewService(orders order.Store, audits *audit.Recorder, opts ...ServiceOption) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if audits == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	s := &Service{
		orders: orders,
		audits: audits,
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Validate re-verifies the intent against ground truth. It never returns an
// error: every outcome, including internal failures, is expressed as a Result
// so the caller has exactly one decision point (Result.IsValid).
func (s *Service) Validate(ctx context.Context, si *intent.StructuredIntent, req RequestContext) *Result {
	start := time.Now()

	if si == nil {
		si = intent.FallbackIntent()
	}

	res := &Result{IsValid: true}

	names, known := ruleSets[si.Action]
	if !known {
		check := fail(RuleUnknownAction, weightOwnershipData,
			fmt.Sprintf("action %q has no validation rules and is denied", si.Action), nil)
		s.apply(res, check)
	} else {
		ev := s.gatherEvidence(ctx, si, req)
		for _, name := range names {
			s.apply(res, s.runRule(ctx, name, ev))
		}
		s.supplementalRisk(res, ev)
	}

	if res.RiskScore > maxRiskScore {
		res.RiskScore = maxRiskScore
	}

	s.recordRun(ctx, si, req, res, time.Since(start))

	if s.logger != nil {
		s.logger.InfoContext(ctx, "action validated",
			"action", string(si.Action),
			"order_id", si.OrderID,
			"user_id", req.UserID,
			"is_valid", res.IsValid,
			"risk_score", res.RiskScore,
			"checks", len(res.Checks),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	observeValidation(si.Action, res)
	return res
}

// gatherEvidence does all I/O for one pass up front. The order lookup is the
// fail-closed side: a store error is recorded as StoreUnavailable and
// order-dependent rules treat it as not-found. The audit counts are the
// fail-open side and degrade to zero inside the Recorder.
func (s *Service) gatherEvidence(ctx context.Context, si *intent.StructuredIntent, req RequestContext) *Evidence {
	ev := &Evidence{
		Intent:         si,
		Request:        req,
		CancellableSet: cancellableSetFor(si.Action),
		Limits:         s.limits,
	}

	if si.OrderID != "" && needsOrderLookup(si.Action) {
		found, err := s.orders.FindByOrderID(ctx, si.OrderID)
		switch {
		case err == nil:
			ev.Order = found
		case errors.Is(err, sentinel.ErrNotFound):
			ev.OrderNotFound = true
		default:
			ev.StoreUnavailable = true
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "order lookup failed during validation, failing closed",
					"order_id", si.OrderID,
					"error", err,
				)
			}
		}
	}

	if si.Action.StateChanging() {
		ev.RecentCancellations = s.audits.CountRecent(ctx,
			audit.Filter{UserID: req.UserID, Actions: cancellationActions},
			24*time.Hour,
		)
	}
	ev.RecentEvents = s.audits.CountRecent(ctx,
		audit.Filter{UserID: req.UserID},
		s.limits.RateLimitWindow,
	)
	ev.RecentEventsBurst = s.audits.CountRecent(ctx,
		audit.Filter{UserID: req.UserID},
		burstWindow,
	)

	return ev
}

// runRule executes one rule with panic containment. A panicking rule is a
// bug, but the gate must not take the request down with it: the rule counts
// as failed with a fixed weight and the panic is logged.
func (s *Service) runRule(ctx context.Context, name RuleName, ev *Evidence) (check Check) {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "validation rule panicked",
					"rule", string(name),
					"panic", fmt.Sprint(r),
				)
			}
			check = fail(name, weightRulePanic, fmt.Sprintf("internal rule failure: %v", r), nil)
		}
	}()

	rule, ok := ruleRegistry[name]
	if !ok {
		return fail(name, weightRulePanic, "rule not registered", nil)
	}
	return rule(ev)
}

// apply folds one check into the result. No short-circuiting: a failed check
// flips validity and adds weight, but later rules still run so the audit
// record carries the full picture.
func (s *Service) apply(res *Result, check Check) {
	res.Checks = append(res.Checks, check)
	if check.Passed {
		return
	}
	res.IsValid = false
	res.RiskScore += check.RiskWeight
	if check.Reason != "" {
		res.Reasons = append(res.Reasons, check.Reason)
	}
	if rec, ok := check.Details["recommendation"].(string); ok && rec != "" {
		res.Recommendations = append(res.Recommendations, rec)
	}
}

// supplementalRisk adjusts the score for signals that inform without
// deciding. None of these flip IsValid.
func (s *Service) supplementalRisk(res *Result, ev *Evidence) {
	if ev.Intent.Action.StateChanging() && ev.Intent.Confidence < lowConfidenceThreshold {
		res.RiskScore += riskLowConfidenceCancel
		res.Recommendations = append(res.Recommendations,
			"confidence in the interpreted request is low; confirm the exact order with the user")
	}
	if ev.RecentEventsBurst > burstThreshold {
		res.RiskScore += riskAutomationHeuristic
		res.Recommendations = append(res.Recommendations,
			"request rate resembles automated traffic")
	}
	if suspiciousOrderID(ev.Intent.OrderID) {
		res.RiskScore += riskSuspiciousOrderID
	}
}

// recordRun writes the mandatory per-run audit record. An ownership mismatch
// escalates severity: that is the cross-account probe this gate exists for.
func (s *Service) recordRun(ctx context.Context, si *intent.StructuredIntent, req RequestContext, res *Result, elapsed time.Duration) {
	result := audit.ResultSuccess
	severity := audit.SeverityInfo
	if !res.IsValid {
		result = audit.ResultBlocked
		severity = audit.SeverityWarning
	}
	for _, check := range res.Checks {
		if check.Name == string(RuleOrderBelongsToUser) && !check.Passed && check.RiskWeight == weightOwnershipMismatch {
			severity = audit.SeverityCritical
			break
		}
	}

	s.audits.Record(ctx, audit.Record{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		Action:    audit.ActionActionValidated,
		OrderID:   si.OrderID,
		Result:    result,
		Severity:  severity,
		Details: map[string]any{
			"intent_action": string(si.Action),
			"confidence":    si.Confidence,
			"is_valid":      res.IsValid,
			"risk_score":    res.RiskScore,
			"reasons":       res.Reasons,
			"duration_ms":   elapsed.Milliseconds(),
		},
	})
}
