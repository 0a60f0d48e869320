package validation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ordergate/internal/audit"
	"ordergate/internal/intent"
	"ordergate/internal/order"
)

// unavailableOrderStore simulates a database outage for the fail-closed path.
type unavailableOrderStore struct{}

func (unavailableOrderStore) FindByOrderID(context.Context, string) (*order.Order, error) {
	return nil, errors.New("connection refused")
}
func (unavailableOrderStore) FindByOwner(context.Context, string) ([]order.Order, error) {
	return nil, errors.New("connection refused")
}
func (unavailableOrderStore) UpdateStatus(context.Context, string, order.Status, string, []order.Status) (order.UpdateOutcome, error) {
	return order.UpdateOutcome{}, errors.New("connection refused")
}

type ServiceSuite struct {
	suite.Suite

	orders     *order.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.orders = order.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()

	recorder, err := audit.NewRecorder(s.auditStore)
	s.Require().NoError(err)

	s.service, err = NewService(s.orders, recorder)
	s.Require().NoError(err)

	s.orders.Put(order.Order{OrderID: "ORD-2024-001", OwnerID: "user-1001", Status: order.StatusConfirmed})
	s.orders.Put(order.Order{OrderID: "ORD-2024-002", OwnerID: "user-1001", Status: order.StatusShipped})
	s.orders.Put(order.Order{OrderID: "ORD-2024-003", OwnerID: "user-1002", Status: order.StatusPending})
}

func (s *ServiceSuite) cancellationIntent(orderID string) *intent.StructuredIntent {
	return &intent.StructuredIntent{
		Action:     intent.ActionOrderCancellation,
		OrderID:    orderID,
		Confidence: 0.95,
		Message:    "I can cancel that.",
	}
}

// =====================================================================
// Cancellation rules
// =====================================================================

func (s *ServiceSuite) TestCancellation_ValidOrder() {
	res := s.service.Validate(context.Background(), s.cancellationIntent("ORD-2024-001"),
		RequestContext{UserID: "user-1001", SessionID: "sess-1"})

	s.True(res.IsValid)
	s.Zero(res.RiskScore)
	s.Len(res.Checks, len(cancellationRules))
	for _, check := range res.Checks {
		s.True(check.Passed, check.Name)
	}
}

func (s *ServiceSuite) TestCancellation_ShippedOrder() {
	res := s.service.Validate(context.Background(), s.cancellationIntent("ORD-2024-002"),
		RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	// Cancellability (15) and terminal status (10) both fail.
	s.Equal(25, res.RiskScore)
	s.NotEmpty(res.Reasons)
	s.NotEmpty(res.Recommendations)
}

func (s *ServiceSuite) TestCancellation_OwnershipMismatch() {
	res := s.service.Validate(context.Background(), s.cancellationIntent("ORD-2024-003"),
		RequestContext{UserID: "user-1001", SessionID: "sess-1"})

	s.False(res.IsValid)
	// The mismatch alone maxes the score.
	s.Equal(100, res.RiskScore)

	// Cross-account probes escalate the audit record to critical.
	records := s.auditStore.ListAll()
	s.Require().NotEmpty(records)
	last := records[len(records)-1]
	s.Equal(audit.ActionActionValidated, last.Action)
	s.Equal(audit.ResultBlocked, last.Result)
	s.Equal(audit.SeverityCritical, last.Severity)
}

func (s *ServiceSuite) TestCancellation_OrderNotFound() {
	res := s.service.Validate(context.Background(), s.cancellationIntent("ORD-2024-999"),
		RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	// Not-found (50), no ownership evidence (75), no cancellability evidence
	// (15): clamped to 100.
	s.Equal(100, res.RiskScore)
}

func (s *ServiceSuite) TestCancellation_MissingOrderReference() {
	res := s.service.Validate(context.Background(), s.cancellationIntent(""),
		RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	failed := map[string]bool{}
	for _, check := range res.Checks {
		if !check.Passed {
			failed[check.Name] = true
		}
	}
	s.True(failed[string(RuleOrderExists)])
	s.True(failed[string(RuleOrderBelongsToUser)])
}

func (s *ServiceSuite) TestCancellation_DailyCapExceeded() {
	ctx := context.Background()
	recorder, err := audit.NewRecorder(s.auditStore)
	s.Require().NoError(err)
	for i := 0; i < 5; i++ {
		recorder.Record(ctx, audit.Record{
			UserID: "user-1001",
			Action: audit.ActionCancellationRequested,
			Result: audit.ResultSuccess,
		})
	}

	res := s.service.Validate(ctx, s.cancellationIntent("ORD-2024-001"),
		RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	var burst *Check
	for i := range res.Checks {
		if res.Checks[i].Name == string(RuleNoRecentCancellations) {
			burst = &res.Checks[i]
		}
	}
	s.Require().NotNil(burst)
	s.False(burst.Passed)
	s.Equal(weightCancellationBurst, burst.RiskWeight)
}

func (s *ServiceSuite) TestCancellation_StoreOutageFailsClosed() {
	recorder, err := audit.NewRecorder(s.auditStore)
	s.Require().NoError(err)
	svc, err := NewService(unavailableOrderStore{}, recorder)
	s.Require().NoError(err)

	res := svc.Validate(context.Background(), s.cancellationIntent("ORD-2024-001"),
		RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	s.GreaterOrEqual(res.RiskScore, weightOrderNotFound)
}

// =====================================================================
// Read actions and pass-throughs
// =====================================================================

func (s *ServiceSuite) TestStatusCheck_OwnedOrder() {
	res := s.service.Validate(context.Background(), &intent.StructuredIntent{
		Action:     intent.ActionStatusCheck,
		OrderID:    "ORD-2024-002",
		Confidence: 0.9,
		Message:    "Checking.",
	}, RequestContext{UserID: "user-1001"})

	// Shipped is fine for a read; terminal-status rules apply to mutations only.
	s.True(res.IsValid)
	s.Zero(res.RiskScore)
}

func (s *ServiceSuite) TestStatusCheck_ForeignOrderDenied() {
	res := s.service.Validate(context.Background(), &intent.StructuredIntent{
		Action:     intent.ActionStatusCheck,
		OrderID:    "ORD-2024-003",
		Confidence: 0.9,
		Message:    "Checking.",
	}, RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	s.Equal(100, res.RiskScore)
}

func (s *ServiceSuite) TestPassThroughActions() {
	for _, action := range []intent.ActionKind{
		intent.ActionTrackOrder,
		intent.ActionListOrders,
		intent.ActionCancelAbort,
		intent.ActionClarificationNeeded,
		intent.ActionError,
	} {
		res := s.service.Validate(context.Background(), &intent.StructuredIntent{
			Action:     action,
			Confidence: 0.9,
			Message:    "ok",
		}, RequestContext{UserID: "user-1001"})

		s.True(res.IsValid, string(action))
		s.Empty(res.Checks, string(action))
	}
}

func (s *ServiceSuite) TestUnknownActionDenied() {
	res := s.service.Validate(context.Background(), &intent.StructuredIntent{
		Action:     intent.ActionKind("become_admin"),
		Confidence: 0.9,
		Message:    "ok",
	}, RequestContext{UserID: "user-1001"})

	s.False(res.IsValid)
	s.Require().Len(res.Checks, 1)
	s.Equal(string(RuleUnknownAction), res.Checks[0].Name)
}

func (s *ServiceSuite) TestNilIntentUsesFallback() {
	res := s.service.Validate(context.Background(), nil, RequestContext{UserID: "user-1001"})

	// The fallback error action is a pass-through.
	s.True(res.IsValid)
}

// =====================================================================
// Determinism and supplemental risk
// =====================================================================

func (s *ServiceSuite) TestValidationIdempotent() {
	si := s.cancellationIntent("ORD-2024-002")
	req := RequestContext{UserID: "user-1001"}

	first := s.service.Validate(context.Background(), si, req)
	second := s.service.Validate(context.Background(), si, req)

	s.Equal(first.IsValid, second.IsValid)
	s.Equal(first.RiskScore, second.RiskScore)
	s.Equal(first.Reasons, second.Reasons)
}

func (s *ServiceSuite) TestLowConfidenceCancellationAddsRisk() {
	si := s.cancellationIntent("ORD-2024-001")
	si.Confidence = 0.3

	res := s.service.Validate(context.Background(), si, RequestContext{UserID: "user-1001"})

	// All rules pass, so validity holds, but the score reflects the shaky
	// interpretation.
	s.True(res.IsValid)
	s.Equal(riskLowConfidenceCancel, res.RiskScore)
	s.NotEmpty(res.Recommendations)
}

func (s *ServiceSuite) TestConfidenceBoundary() {
	// At or above 0.5 the interpretation counts as confident; no supplement.
	for _, confidence := range []float64{0.5, 0.55, 0.95} {
		si := s.cancellationIntent("ORD-2024-001")
		si.Confidence = confidence

		res := s.service.Validate(context.Background(), si, RequestContext{UserID: "user-1001"})

		s.True(res.IsValid)
		s.Zero(res.RiskScore, "confidence %v", confidence)
	}

	si := s.cancellationIntent("ORD-2024-001")
	si.Confidence = 0.49

	res := s.service.Validate(context.Background(), si, RequestContext{UserID: "user-1001"})

	s.True(res.IsValid)
	s.Equal(riskLowConfidenceCancel, res.RiskScore)
}

func (s *ServiceSuite) TestAutomationHeuristicBoundary() {
	ctx := context.Background()
	recorder, err := audit.NewRecorder(s.auditStore)
	s.Require().NoError(err)

	seedEvents := func(n int) {
		for i := 0; i < n; i++ {
			recorder.Record(ctx, audit.Record{
				UserID: "user-1001",
				Action: audit.ActionMessageProcessed,
				Result: audit.ResultSuccess,
			})
		}
	}
	statusCheck := &intent.StructuredIntent{
		Action:     intent.ActionStatusCheck,
		OrderID:    "ORD-2024-001",
		Confidence: 0.9,
		Message:    "Checking.",
	}

	// Exactly at the threshold is still human-plausible traffic.
	seedEvents(burstThreshold)
	res := s.service.Validate(ctx, statusCheck, RequestContext{UserID: "user-1001"})
	s.True(res.IsValid)
	s.Zero(res.RiskScore)

	// One past it trips the heuristic. The validation run above also left a
	// record, so a single extra event crosses the line.
	res = s.service.Validate(ctx, statusCheck, RequestContext{UserID: "user-1001"})
	s.True(res.IsValid)
	s.Equal(riskAutomationHeuristic, res.RiskScore)
	s.NotEmpty(res.Recommendations)
}

func (s *ServiceSuite) TestSuspiciousOrderIDAddsRisk() {
	s.orders.Put(order.Order{OrderID: "TEST-0001", OwnerID: "user-1001", Status: order.StatusPending})

	res := s.service.Validate(context.Background(), s.cancellationIntent("TEST-0001"),
		RequestContext{UserID: "user-1001"})

	s.True(res.IsValid)
	s.Equal(riskSuspiciousOrderID, res.RiskScore)
}

func (s *ServiceSuite) TestEveryRuleRunsDespiteEarlyFailure() {
	res := s.service.Validate(context.Background(), s.cancellationIntent("ORD-2024-999"),
		RequestContext{UserID: "user-1001"})

	// No short-circuiting: the full rule list executes even after the first
	// failure so the audit record carries the complete picture.
	s.Len(res.Checks, len(cancellationRules))
}

func (s *ServiceSuite) TestEveryRunIsAudited() {
	before := len(s.auditStore.ListAll())

	s.service.Validate(context.Background(), s.cancellationIntent("ORD-2024-001"),
		RequestContext{UserID: "user-1001"})

	records := s.auditStore.ListAll()
	s.Len(records, before+1)
	s.Equal(audit.ActionActionValidated, records[len(records)-1].Action)
}

// =====================================================================
// Rule table
// =====================================================================

func TestRuleSetsCoverEveryAction(t *testing.T) {
	for _, action := range intent.AllActionKinds {
		if _, ok := ruleSets[action]; !ok {
			t.Errorf("action %s has no rule set", action)
		}
	}
}

func TestRegisteredRulesResolvable(t *testing.T) {
	for action, names := range ruleSets {
		for _, name := range names {
			if _, ok := ruleRegistry[name]; !ok {
				t.Errorf("action %s references unregistered rule %s", action, name)
			}
		}
	}
}

func TestPanickingRuleBecomesFailingCheck(t *testing.T) {
	name := RuleName("explosive")
	ruleRegistry[name] = func(*Evidence) Check { panic("nil order snapshot") }
	defer delete(ruleRegistry, name)

	recorder, err := audit.NewRecorder(audit.NewInMemoryStore())
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewService(order.NewInMemoryStore(), recorder)
	if err != nil {
		t.Fatal(err)
	}

	check := svc.runRule(context.Background(), name, &Evidence{})
	if check.Passed {
		t.Fatal("panicking rule must produce a failing check")
	}
	if check.RiskWeight != weightRulePanic {
		t.Errorf("expected risk weight %d, got %d", weightRulePanic, check.RiskWeight)
	}
	if !strings.Contains(check.Reason, "nil order snapshot") {
		t.Errorf("reason should carry the panic message, got %q", check.Reason)
	}
}

func TestSuspiciousOrderID(t *testing.T) {
	suspicious := []string{"TEST-0001", "demo-123", "SAMPLE99", "FAKE-1", "ORD-0001", "ORD-9991", "ABCDEF"}
	for _, id := range suspicious {
		if !suspiciousOrderID(id) {
			t.Errorf("expected %s to be suspicious", id)
		}
	}
	clean := []string{"", "ORD-2024-001", "PO20240001", "98155231"}
	for _, id := range clean {
		if suspiciousOrderID(id) {
			t.Errorf("expected %s to be clean", id)
		}
	}
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	if l.MaxCancellationsPerDay != 5 || l.RateLimitMax != 50 || l.RateLimitWindow != 5*time.Minute {
		t.Errorf("unexpected defaults: %+v", l)
	}
}
