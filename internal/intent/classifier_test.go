package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Tiers(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		text        string
		hasOrderRef bool
		want        ActionKind
	}{
		// Confirmation and denial lead; "no" and "cancel" overlap other tiers.
		{"yes", false, ActionConfirmCancellation},
		{"yes, go ahead", false, ActionConfirmCancellation},
		{"no", false, ActionCancelAbort},
		{"never mind, keep it", false, ActionCancelAbort},
		{"changed my mind", false, ActionCancelAbort},

		{"cancel my order ORD-2024-001", true, ActionOrderCancellation},
		{"cancel all my orders", false, ActionCancelOrders},
		{"I want a cancellation", false, ActionCancelOrders},

		{"where is my refund", false, ActionRefundStatus},
		{"I want my money back", false, ActionRefundStatus},

		{"track ORD-2024-002", true, ActionTrackSpecificOrder},
		{"when will this order arrive", false, ActionTrackSpecificOrder},
		{"track my package", false, ActionTrackOrder},

		{"status", false, ActionListOrders},
		{"what's the status of ORD-2024-001", true, ActionStatusCheck},
		{"show me my orders please", false, ActionListOrders},

		{"what's your return policy", false, ActionGeneralInquiry},
		{"", false, ActionClarificationNeeded},
	}

	for _, tc := range cases {
		name := tc.text
		if name == "" {
			name = "<empty>"
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.text, tc.hasOrderRef))
		})
	}
}

func TestClassifier_ConfirmationMustLeadShortMessage(t *testing.T) {
	c := NewClassifier()

	// "yes" buried in a long sentence is not a confirmation.
	got := c.Classify("I said yes to the terms but my question is about delivery times", false)
	assert.NotEqual(t, ActionConfirmCancellation, got)
}
