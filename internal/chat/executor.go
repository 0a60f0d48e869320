package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ordergate/internal/audit"
	"ordergate/internal/intent"
	"ordergate/internal/order"
	"ordergate/pkg/platform/sentinel"
)

const cancellationReason = "customer request via chat"

// execute turns a validated intent into the user-facing response, performing
// the mutation for cancellation actions. Read actions re-read the store here
// rather than trusting anything the model said, so a cached intent can never
// surface a stale status.
func (s *Service) execute(ctx context.Context, si *intent.StructuredIntent, msg Message) string {
	switch si.Action {
	case intent.ActionStatusCheck:
		return s.describeOrder(ctx, si.OrderID, statusDescription)

	case intent.ActionTrackSpecificOrder:
		return s.describeOrder(ctx, si.OrderID, trackingDescription)

	case intent.ActionRefundStatus:
		return s.describeOrder(ctx, si.OrderID, refundDescription)

	case intent.ActionTrackOrder:
		return "I can look that up. Which order would you like to track? You can find the order number in your confirmation email."

	case intent.ActionListOrders:
		return s.listOrders(ctx, msg.UserID)

	case intent.ActionOrderCancellation:
		if si.RequiresConfirmation {
			s.audits.Record(ctx, audit.Record{
				SessionID: msg.SessionID,
				UserID:    msg.UserID,
				Action:    audit.ActionCancellationRequested,
				OrderID:   si.OrderID,
				Result:    audit.ResultSuccess,
			})
			return fmt.Sprintf("You'd like to cancel order %s. This can't be undone. Should I go ahead? (yes/no)", si.OrderID)
		}
		return s.cancelOrder(ctx, si.OrderID, msg, order.CancellableStatuses)

	case intent.ActionConfirmCancellation:
		return s.cancelOrder(ctx, si.OrderID, msg, order.CancellableStatuses)

	case intent.ActionCancelOrders:
		return s.cancelAll(ctx, si, msg)

	case intent.ActionCancelAbort:
		return "Okay, I won't cancel anything. Is there something else I can help with?"

	case intent.ActionGeneralInquiry, intent.ActionClarificationNeeded, intent.ActionError:
		return si.Message

	default:
		// The validator's exhaustive table makes this unreachable; keep a
		// safe answer anyway.
		return intent.FallbackIntent().Message
	}
}

// describeOrder re-reads the order and renders it with the given describer.
func (s *Service) describeOrder(ctx context.Context, orderID string, describe func(order.Order) string) string {
	o, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Sprintf("I couldn't find order %s. Please double-check the order number.", orderID)
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "order read failed during execution",
				"order_id", orderID, "error", err)
		}
		return "I'm having trouble reaching the order system right now. Please try again in a moment."
	}
	return describe(*o)
}

func (s *Service) listOrders(ctx context.Context, userID string) string {
	orders, err := s.orders.FindByOwner(ctx, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "order list failed during execution",
				"user_id", userID, "error", err)
		}
		return "I'm having trouble reaching the order system right now. Please try again in a moment."
	}
	if len(orders) == 0 {
		return "You don't have any orders on file."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d order(s):\n", len(orders))
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s: %s ($%.2f)\n", o.OrderID, o.Status, o.TotalAmount)
	}
	return strings.TrimRight(b.String(), "\n")
}

// cancelOrder performs the single authorized mutation. The conditional write
// makes racing confirmations safe: exactly one wins, and the loser observes
// Matched without Modified and reports the order as already handled.
func (s *Service) cancelOrder(ctx context.Context, orderID string, msg Message, allowed []order.Status) string {
	outcome, err := s.orders.UpdateStatus(ctx, orderID, order.StatusCancelled, cancellationReason, allowed)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "cancellation write failed",
				"order_id", orderID, "error", err)
		}
		return "Something went wrong while cancelling. Your order has not been changed; please try again."
	}

	switch {
	case outcome.Modified:
		s.audits.Record(ctx, audit.Record{
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
			Action:    audit.ActionOrderCancelled,
			OrderID:   orderID,
			Result:    audit.ResultSuccess,
			Details:   map[string]any{"reason": cancellationReason},
		})
		return fmt.Sprintf("Done. Order %s has been cancelled. Any charge will be refunded to your original payment method.", orderID)

	case outcome.Matched:
		// Lost the race or the state moved on between validation and write.
		return fmt.Sprintf("Order %s was already cancelled or is no longer in a cancellable state, so nothing was changed.", orderID)

	default:
		return fmt.Sprintf("I couldn't find order %s anymore. Please double-check the order number.", orderID)
	}
}

// cancelAll handles bulk cancellation. With confirmation pending it lists
// what would be cancelled; confirmed, it attempts each eligible order
// independently so one conflict doesn't abort the rest.
func (s *Service) cancelAll(ctx context.Context, si *intent.StructuredIntent, msg Message) string {
	orders, err := s.orders.FindByOwner(ctx, msg.UserID)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "order list failed during bulk cancel",
				"user_id", msg.UserID, "error", err)
		}
		return "I'm having trouble reaching the order system right now. Please try again in a moment."
	}

	var eligible []order.Order
	for _, o := range orders {
		if order.StatusIn(o.Status, order.ExtendedCancellableStatuses) {
			eligible = append(eligible, o)
		}
	}
	if len(eligible) == 0 {
		return "None of your orders are in a cancellable state."
	}

	if si.RequiresConfirmation {
		var b strings.Builder
		fmt.Fprintf(&b, "This would cancel %d order(s):\n", len(eligible))
		for _, o := range eligible {
			fmt.Fprintf(&b, "- %s (%s, $%.2f)\n", o.OrderID, o.Status, o.TotalAmount)
		}
		b.WriteString("Should I go ahead? (yes/no)")
		s.audits.Record(ctx, audit.Record{
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
			Action:    audit.ActionCancellationRequested,
			Result:    audit.ResultSuccess,
			Details:   map[string]any{"orders": len(eligible), "bulk": true},
		})
		return b.String()
	}

	cancelled := 0
	for _, o := range eligible {
		outcome, err := s.orders.UpdateStatus(ctx, o.OrderID, order.StatusCancelled, cancellationReason, order.ExtendedCancellableStatuses)
		if err != nil || !outcome.Modified {
			continue
		}
		cancelled++
		s.audits.Record(ctx, audit.Record{
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
			Action:    audit.ActionOrderCancelled,
			OrderID:   o.OrderID,
			Result:    audit.ResultSuccess,
			Details:   map[string]any{"reason": cancellationReason, "bulk": true},
		})
	}
	if cancelled == 0 {
		return "Your orders were already cancelled or no longer cancellable, so nothing was changed."
	}
	return fmt.Sprintf("Done. %d of %d order(s) cancelled. Any charges will be refunded to your original payment method.", cancelled, len(eligible))
}

func statusDescription(o order.Order) string {
	return fmt.Sprintf("Order %s is currently %s. It contains %d item(s) totalling $%.2f.",
		o.OrderID, o.Status, len(o.Items), o.TotalAmount)
}

func trackingDescription(o order.Order) string {
	switch o.Status {
	case order.StatusShipped:
		return fmt.Sprintf("Order %s has shipped and is on its way.", o.OrderID)
	case order.StatusDelivered:
		return fmt.Sprintf("Order %s was delivered.", o.OrderID)
	default:
		return fmt.Sprintf("Order %s hasn't shipped yet; its current status is %s.", o.OrderID, o.Status)
	}
}

func refundDescription(o order.Order) string {
	switch o.Status {
	case order.StatusRefunded:
		return fmt.Sprintf("The refund for order %s has been completed.", o.OrderID)
	case order.StatusRefundPending:
		return fmt.Sprintf("The refund for order %s is in progress. Refunds typically take 5-7 business days.", o.OrderID)
	case order.StatusCancelled:
		return fmt.Sprintf("Order %s was cancelled; any charge is refunded automatically within 5-7 business days.", o.OrderID)
	default:
		return fmt.Sprintf("There is no refund on file for order %s; its current status is %s.", o.OrderID, o.Status)
	}
}
