// Package intent turns sanitized free text into a structured intent record
// by prompting the external model and parsing its structured output. Nothing
// here is trusted: every state-affecting intent goes through
// internal/validation before it can touch an order.
package intent

import (
	"fmt"
)

// ActionKind is the closed set of actions the synthesizer may produce. The
// parser hard-fails on anything outside this set; malformed model output can
// never smuggle in a new action.
type ActionKind string

const (
	ActionOrderCancellation   ActionKind = "order_cancellation"
	ActionStatusCheck         ActionKind = "status_check"
	ActionListOrders          ActionKind = "list_orders"
	ActionRefundStatus        ActionKind = "refund_status"
	ActionTrackOrder          ActionKind = "track_order"
	ActionTrackSpecificOrder  ActionKind = "track_specific_order"
	ActionCancelOrders        ActionKind = "cancel_orders"
	ActionConfirmCancellation ActionKind = "confirm_cancellation"
	ActionCancelAbort         ActionKind = "cancel_abort"
	ActionGeneralInquiry      ActionKind = "general_inquiry"
	ActionClarificationNeeded ActionKind = "clarification_needed"
	ActionError               ActionKind = "error"
)

// AllActionKinds lists every enum member, used by the prompt builder and the
// validator's exhaustive rule table.
var AllActionKinds = []ActionKind{
	ActionOrderCancellation,
	ActionStatusCheck,
	ActionListOrders,
	ActionRefundStatus,
	ActionTrackOrder,
	ActionTrackSpecificOrder,
	ActionCancelOrders,
	ActionConfirmCancellation,
	ActionCancelAbort,
	ActionGeneralInquiry,
	ActionClarificationNeeded,
	ActionError,
}

// ParseActionKind validates a raw action string against the closed enum.
func ParseActionKind(s string) (ActionKind, error) {
	for _, a := range AllActionKinds {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// StateChanging reports whether the action mutates order state and therefore
// must pass the trust gate before execution.
func (a ActionKind) StateChanging() bool {
	switch a {
	case ActionOrderCancellation, ActionConfirmCancellation, ActionCancelOrders:
		return true
	}
	return false
}

// StructuredIntent is the parsed, enum-checked output of one synthesizer
// call. Immutable after creation; consumed exactly once by the validator and
// response path.
type StructuredIntent struct {
	Action               ActionKind `json:"action"`
	OrderID              string     `json:"orderId,omitempty"`
	ProductName          string     `json:"productName,omitempty"`
	Confidence           float64    `json:"confidence"`
	Message              string     `json:"message"`
	RequiresConfirmation bool       `json:"requiresConfirmation"`
}

// FallbackIntent is the safe intent the pipeline substitutes when the model
// times out or produces unparseable output. The system never silently
// guesses a different action.
func FallbackIntent() *StructuredIntent {
	return &StructuredIntent{
		Action:               ActionError,
		Confidence:           0.0,
		Message:              "I'm sorry, I wasn't able to process that request. Could you rephrase it?",
		RequiresConfirmation: false,
	}
}

// ClampConfidence bounds a confidence value into [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
