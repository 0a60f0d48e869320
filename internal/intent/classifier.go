package intent

import "strings"

// Classifier is the local, rule-based pre-classifier. It only selects which
// worked examples the prompt shows the model; it never replaces the model
// call. Tiers run in a deliberate order and the first match wins:
// confirmation and denial come before cancellation keywords because "no" and
// "cancel" overlap lexically with other intents.
type Classifier struct{}

// NewClassifier constructs the pre-classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// shortStatusLen is the short-phrase heuristic: bare "status"-like input
// under this length routes to list_orders, not single-order status.
const shortStatusLen = 15

var (
	confirmPhrases = []string{"yes", "yep", "yeah", "confirm", "go ahead", "do it", "proceed", "that's right"}
	abortPhrases   = []string{"no", "nope", "don't", "do not", "stop", "never mind", "nevermind", "abort", "keep my order", "changed my mind"}
	cancelWords    = []string{"cancel", "cancellation"}
	refundWords    = []string{"refund", "money back", "reimburse"}
	trackWords     = []string{"track", "where is", "delivery", "shipping", "shipment", "arrive"}
	statusWords    = []string{"status", "my orders", "order status", "recent orders"}
)

// Classify returns the most likely action for the message, given whether an
// order-reference token was detected in it.
func (c *Classifier) Classify(text string, hasOrderRef bool) ActionKind {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" {
		return ActionClarificationNeeded
	}

	switch {
	case isShortMatch(msg, confirmPhrases):
		return ActionConfirmCancellation
	case isShortMatch(msg, abortPhrases):
		return ActionCancelAbort
	case containsAny(msg, cancelWords):
		if hasOrderRef {
			return ActionOrderCancellation
		}
		return ActionCancelOrders
	case containsAny(msg, refundWords):
		return ActionRefundStatus
	case containsAny(msg, trackWords):
		if hasOrderRef || strings.Contains(msg, "this order") || strings.Contains(msg, "that order") {
			return ActionTrackSpecificOrder
		}
		return ActionTrackOrder
	case containsAny(msg, statusWords):
		if len(msg) < shortStatusLen {
			return ActionListOrders
		}
		if hasOrderRef {
			return ActionStatusCheck
		}
		return ActionListOrders
	default:
		return ActionGeneralInquiry
	}
}

// isShortMatch requires the phrase to lead the message and the message to be
// short; "yes" buried in a long sentence is not a confirmation.
func isShortMatch(msg string, phrases []string) bool {
	if len(msg) > 30 {
		return false
	}
	for _, p := range phrases {
		if msg == p || strings.HasPrefix(msg, p+" ") || strings.HasPrefix(msg, p+",") || strings.HasPrefix(msg, p+".") {
			return true
		}
	}
	return false
}

func containsAny(msg string, words []string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}
