package audit

import "time"

// Result classifies the outcome captured by an audit record.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultPartial Result = "partial"
	ResultBlocked Result = "blocked"
)

// Severity is used for SIEM routing of audit records.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Well-known audit actions. The trailing-window rules filter on these, so
// changing a name is a breaking change for rate/abuse accounting.
const (
	ActionMessageProcessed      = "message_processed"
	ActionSecurityViolation     = "security_violation"
	ActionIntentSynthesized     = "intent_synthesized"
	ActionActionValidated       = "action_validated"
	ActionCancellationRequested = "cancellation_requested"
	ActionOrderCancelled        = "order_cancelled"
	ActionCancellationDenied    = "cancellation_denied"
)

// Record is one append-only audit entry: who did what, when, with what
// confidence, and why it was allowed or denied. One record per validation run
// and per mutating attempt, success or failure.
type Record struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	OrderID   string         `json:"order_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Result    Result         `json:"result"`
	Severity  Severity       `json:"severity"`
	Timestamp time.Time      `json:"timestamp"`
}

// Filter selects records for trailing-window counts. Zero-value fields match
// everything; Actions empty means any action.
type Filter struct {
	UserID    string
	SessionID string
	Actions   []string
}

// Matches reports whether the record satisfies the filter.
func (f Filter) Matches(r Record) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.SessionID != "" && r.SessionID != f.SessionID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if r.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
