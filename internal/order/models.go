package order

import "time"

// Status is the lifecycle state of an order. Orders are created externally by
// the order-placement system; this service only ever applies the single
// authorized transition to StatusCancelled.
type Status string

const (
	StatusPending       Status = "pending"
	StatusConfirmed     Status = "confirmed"
	StatusProcessing    Status = "processing"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
	StatusRefunded      Status = "refunded"
	StatusRefundPending Status = "refund_pending"
	StatusReturned      Status = "returned"
)

// CancellableStatuses is the default set of states from which an order may
// transition to cancelled. ExtendedCancellableStatuses additionally allows
// processing, used for bulk cancellation where the operator accepts the
// restocking cost.
var (
	CancellableStatuses         = []Status{StatusPending, StatusConfirmed}
	ExtendedCancellableStatuses = []Status{StatusPending, StatusConfirmed, StatusProcessing}

	// TerminalStatuses may not transition further except the documented
	// pending/confirmed/processing -> cancelled edges handled by UpdateStatus.
	TerminalStatuses = []Status{StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded, StatusReturned}
)

// Item is a single order line.
type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is the read model consumed by the trust gate. Mutations go through
// Store.UpdateStatus only.
type Order struct {
	OrderID     string    `json:"order_id"`
	OwnerID     string    `json:"owner_id"`
	Status      Status    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Items       []Item    `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CancellationEligible reports whether the order is still in a state the
// default cancellation flow accepts.
func (o Order) CancellationEligible() bool {
	return StatusIn(o.Status, ExtendedCancellableStatuses)
}

// IsTerminal reports whether the order has reached a terminal state.
func (o Order) IsTerminal() bool {
	return StatusIn(o.Status, TerminalStatuses)
}

// StatusIn reports whether s is a member of set.
func StatusIn(s Status, set []Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// UpdateOutcome is the result of a conditional status update. Matched reports
// whether the order exists; Modified whether the write applied. A matched but
// unmodified outcome means a concurrent writer got there first ("already
// processed"), which callers must report distinctly from not-found.
type UpdateOutcome struct {
	Matched  bool
	Modified bool
}
