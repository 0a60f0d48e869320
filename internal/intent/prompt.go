package intent

import (
	"fmt"
	"strings"

	"ordergate/internal/conversation"
	"ordergate/internal/sanitize"
)

// historyWindow is how many trailing turns the prompt embeds. Each embedded
// turn is bounded by sanitize.PromptContextMaxLength so one oversized turn
// cannot crowd the instruction out of the context window.
const historyWindow = 5

const systemInstruction = `You are an order-support assistant for an online store.
Interpret the customer's message and respond with a single JSON object, nothing else:

{
  "action": "<one of: order_cancellation, status_check, list_orders, refund_status, track_order, track_specific_order, cancel_orders, confirm_cancellation, cancel_abort, general_inquiry, clarification_needed, error>",
  "orderId": "<order reference or null>",
  "productName": "<product name or null>",
  "confidence": <0.0 to 1.0>,
  "message": "<short, friendly reply to the customer>",
  "requiresConfirmation": <true|false>
}

Rules:
- Never invent an order id. Use only ids present in the message or conversation.
- Never ask for personal identifying information (address, payment details, government id).
- Resolve simple, common requests directly; use clarification_needed only when the request is genuinely ambiguous.
- Cancellations always need requiresConfirmation true unless the customer is already confirming one.`

// workedExamples maps each likely intent category to an example exchange the
// model can imitate. The local pre-classifier picks which one to show.
var workedExamples = map[ActionKind]string{
	ActionOrderCancellation: `Customer: "Please cancel order ORD-2024-001"
{"action":"order_cancellation","orderId":"ORD-2024-001","productName":null,"confidence":0.95,"message":"I can cancel order ORD-2024-001 for you. Shall I go ahead?","requiresConfirmation":true}`,
	ActionCancelOrders: `Customer: "I want to cancel my order"
{"action":"cancel_orders","orderId":null,"productName":null,"confidence":0.8,"message":"I can help with that. Which order would you like to cancel?","requiresConfirmation":true}`,
	ActionConfirmCancellation: `Customer: "Yes, go ahead"
{"action":"confirm_cancellation","orderId":"ORD-2024-001","productName":null,"confidence":0.9,"message":"Confirmed. I'm cancelling order ORD-2024-001 now.","requiresConfirmation":false}`,
	ActionCancelAbort: `Customer: "No, keep it"
{"action":"cancel_abort","orderId":null,"productName":null,"confidence":0.9,"message":"No problem, your order stays as it is.","requiresConfirmation":false}`,
	ActionStatusCheck: `Customer: "What's the status of order ORD-2024-002?"
{"action":"status_check","orderId":"ORD-2024-002","productName":null,"confidence":0.95,"message":"Let me check order ORD-2024-002 for you.","requiresConfirmation":false}`,
	ActionListOrders: `Customer: "status"
{"action":"list_orders","orderId":null,"productName":null,"confidence":0.85,"message":"Here's an overview of your recent orders.","requiresConfirmation":false}`,
	ActionRefundStatus: `Customer: "Where's my refund?"
{"action":"refund_status","orderId":null,"productName":null,"confidence":0.85,"message":"Let me look up the state of your refund.","requiresConfirmation":false}`,
	ActionTrackOrder: `Customer: "Where is my package?"
{"action":"track_order","orderId":null,"productName":null,"confidence":0.85,"message":"Let me find your latest shipment.","requiresConfirmation":false}`,
	ActionTrackSpecificOrder: `Customer: "Track ORD-2024-002 please"
{"action":"track_specific_order","orderId":"ORD-2024-002","productName":null,"confidence":0.95,"message":"Tracking order ORD-2024-002 for you.","requiresConfirmation":false}`,
	ActionGeneralInquiry: `Customer: "Do you ship to Canada?"
{"action":"general_inquiry","orderId":null,"productName":null,"confidence":0.8,"message":"Yes, we ship to Canada. Delivery usually takes 5-8 business days.","requiresConfirmation":false}`,
}

// BuildPrompt assembles the synthesizer prompt: system instruction, a worked
// example chosen by the pre-classified category, trailing conversation
// history, detected order references, and the customer message.
func BuildPrompt(sanitizedText string, history []conversation.Turn, orderIDs []string, category ActionKind) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	if example, ok := workedExamples[category]; ok {
		b.WriteString("Example:\n")
		b.WriteString(example)
		b.WriteString("\n\n")
	}

	if len(history) > 0 {
		start := 0
		if len(history) > historyWindow {
			start = len(history) - historyWindow
		}
		b.WriteString("Conversation so far:\n")
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, contextBounded(turn.Content))
		}
		b.WriteString("\n")
	}

	if len(orderIDs) > 0 {
		fmt.Fprintf(&b, "Order references detected in the message: %s\n\n", strings.Join(orderIDs, ", "))
	}

	fmt.Fprintf(&b, "Customer message: %s\n", sanitizedText)
	b.WriteString("JSON response:")
	return b.String()
}

func contextBounded(content string) string {
	if len(content) > sanitize.PromptContextMaxLength {
		return content[:sanitize.PromptContextMaxLength]
	}
	return content
}
