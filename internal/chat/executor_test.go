package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ordergate/internal/audit"
	"ordergate/internal/conversation"
	"ordergate/internal/intent"
	"ordergate/internal/llm/mocks"
	"ordergate/internal/order"
	"ordergate/internal/validation"
)

func newExecutorFixture(t *testing.T) (*Service, *order.InMemoryStore, *audit.InMemoryStore) {
	t.Helper()

	orders := order.NewInMemoryStore()
	auditStore := audit.NewInMemoryStore()
	recorder, err := audit.NewRecorder(auditStore)
	require.NoError(t, err)

	validator, err := validation.NewService(orders, recorder)
	require.NoError(t, err)

	synth, err := intent.NewSynthesizer(mocks.NewMockClient(gomock.NewController(t)), time.Second)
	require.NoError(t, err)

	history, err := conversation.NewManager(conversation.NewInMemoryStore(), 20)
	require.NoError(t, err)

	svc, err := NewService(orders, recorder, validator, synth, history)
	require.NoError(t, err)

	return svc, orders, auditStore
}

func TestExecute_RaceLoserSeesAlreadyHandled(t *testing.T) {
	svc, orders, _ := newExecutorFixture(t)
	msg := Message{SessionID: "s", UserID: "u1"}

	// The order moved out of the cancellable set between validation and the
	// write; the conditional update matches but does not modify.
	orders.Put(order.Order{OrderID: "ORD-9", OwnerID: "u1", Status: order.StatusCancelled})

	got := svc.cancelOrder(context.Background(), "ORD-9", msg, order.CancellableStatuses)

	assert.Contains(t, got, "already cancelled")
	assert.Contains(t, got, "nothing was changed")
}

func TestExecute_CancelVanishedOrder(t *testing.T) {
	svc, _, _ := newExecutorFixture(t)
	msg := Message{SessionID: "s", UserID: "u1"}

	got := svc.cancelOrder(context.Background(), "ORD-404", msg, order.CancellableStatuses)

	assert.Contains(t, got, "couldn't find")
}

func TestExecute_BulkCancelListsBeforeConfirming(t *testing.T) {
	svc, orders, auditStore := newExecutorFixture(t)
	orders.Put(order.Order{OrderID: "ORD-1", OwnerID: "u1", Status: order.StatusPending, TotalAmount: 10})
	orders.Put(order.Order{OrderID: "ORD-2", OwnerID: "u1", Status: order.StatusProcessing, TotalAmount: 20})
	orders.Put(order.Order{OrderID: "ORD-3", OwnerID: "u1", Status: order.StatusShipped, TotalAmount: 30})

	si := &intent.StructuredIntent{Action: intent.ActionCancelOrders, RequiresConfirmation: true}
	got := svc.cancelAll(context.Background(), si, Message{SessionID: "s", UserID: "u1"})

	// Processing counts for bulk, shipped never does.
	assert.Contains(t, got, "ORD-1")
	assert.Contains(t, got, "ORD-2")
	assert.NotContains(t, got, "ORD-3")
	assert.Contains(t, got, "yes/no")

	// Listing is not cancelling.
	o, err := orders.FindByOrderID(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)

	records := auditStore.ListAll()
	require.Len(t, records, 1)
	assert.Equal(t, audit.ActionCancellationRequested, records[0].Action)
}

func TestExecute_BulkCancelConfirmed(t *testing.T) {
	svc, orders, auditStore := newExecutorFixture(t)
	orders.Put(order.Order{OrderID: "ORD-1", OwnerID: "u1", Status: order.StatusPending})
	orders.Put(order.Order{OrderID: "ORD-2", OwnerID: "u1", Status: order.StatusProcessing})
	orders.Put(order.Order{OrderID: "ORD-3", OwnerID: "u1", Status: order.StatusDelivered})

	si := &intent.StructuredIntent{Action: intent.ActionCancelOrders, RequiresConfirmation: false}
	got := svc.cancelAll(context.Background(), si, Message{SessionID: "s", UserID: "u1"})

	assert.Contains(t, got, "2 of 2")

	for _, id := range []string{"ORD-1", "ORD-2"} {
		o, err := orders.FindByOrderID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, o.Status)
	}

	cancelledRecords := 0
	for _, r := range auditStore.ListAll() {
		if r.Action == audit.ActionOrderCancelled {
			cancelledRecords++
		}
	}
	assert.Equal(t, 2, cancelledRecords)
}

func TestExecute_Describers(t *testing.T) {
	cases := []struct {
		status order.Status
		fn     func(order.Order) string
		want   string
	}{
		{order.StatusConfirmed, statusDescription, "confirmed"},
		{order.StatusShipped, trackingDescription, "on its way"},
		{order.StatusDelivered, trackingDescription, "delivered"},
		{order.StatusPending, trackingDescription, "hasn't shipped"},
		{order.StatusRefundPending, refundDescription, "in progress"},
		{order.StatusRefunded, refundDescription, "completed"},
		{order.StatusConfirmed, refundDescription, "no refund on file"},
	}
	for _, tc := range cases {
		o := order.Order{OrderID: "ORD-1", Status: tc.status}
		assert.Contains(t, tc.fn(o), tc.want)
	}
}
