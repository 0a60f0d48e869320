package validation

import (
	"ordergate/internal/intent"
	"ordergate/internal/order"
)

// ruleSets maps every action to its rule list. The table is exhaustive over
// the action enum: an empty list is an explicit pass-through decision, and a
// missing entry means the action was never reviewed, which fails validation
// via the unknownAction check rather than defaulting to allow.
var ruleSets = map[intent.ActionKind][]RuleName{
	intent.ActionOrderCancellation:   cancellationRules,
	intent.ActionConfirmCancellation: cancellationRules,
	intent.ActionCancelOrders:        cancellationRules,

	intent.ActionStatusCheck:        orderReadRules,
	intent.ActionRefundStatus:       orderReadRules,
	intent.ActionTrackSpecificOrder: orderReadRules,

	intent.ActionGeneralInquiry: {RuleRateLimit},

	// Non-mutating actions that carry no order reference have nothing to
	// verify against ground truth.
	intent.ActionTrackOrder:          {},
	intent.ActionListOrders:          {},
	intent.ActionCancelAbort:         {},
	intent.ActionClarificationNeeded: {},
	intent.ActionError:               {},
}

var cancellationRules = []RuleName{
	RuleOrderExists,
	RuleOrderBelongsToUser,
	RuleOrderIsCancellable,
	RuleNoRecentCancellations,
	RuleValidOrderStatus,
}

var orderReadRules = []RuleName{
	RuleOrderExists,
	RuleOrderBelongsToUser,
}

// cancellableSetFor returns the set of statuses a given action may cancel
// from. Bulk cancellation reaches one state further into processing because
// it is a support-driven flow rather than a single self-service click.
func cancellableSetFor(action intent.ActionKind) []order.Status {
	if action == intent.ActionCancelOrders {
		return order.ExtendedCancellableStatuses
	}
	return order.CancellableStatuses
}

// needsOrderLookup reports whether any rule for the action consults the order
// snapshot, so evidence gathering can skip the store round trip otherwise.
func needsOrderLookup(action intent.ActionKind) bool {
	for _, name := range ruleSets[action] {
		switch name {
		case RuleOrderExists, RuleOrderBelongsToUser, RuleOrderIsCancellable, RuleValidOrderStatus:
			return true
		}
	}
	return false
}
