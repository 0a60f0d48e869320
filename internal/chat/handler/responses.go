package handler

import (
	"ordergate/internal/chat"
	"ordergate/internal/intent"
)

// SendMessageResponse is the reply envelope. The structured intent is exposed
// for client-side rendering (confirmation dialogs); the validation verdict is
// summarized in metadata and reasons.
type SendMessageResponse struct {
	Message           string        `json:"message"`
	Intent            *intentView   `json:"intent,omitempty"`
	ValidationReasons []string      `json:"validation_reasons,omitempty"`
	Metadata          chat.Metadata `json:"metadata"`
}

type intentView struct {
	Action               string  `json:"action"`
	OrderID              string  `json:"order_id,omitempty"`
	ProductName          string  `json:"product_name,omitempty"`
	Confidence           float64 `json:"confidence"`
	RequiresConfirmation bool    `json:"requires_confirmation"`
}

func toResponse(reply *chat.Reply) SendMessageResponse {
	resp := SendMessageResponse{
		Message:           reply.Message,
		ValidationReasons: reply.ValidationReasons,
		Metadata:          reply.Metadata,
	}
	if reply.Intent != nil {
		resp.Intent = toIntentView(reply.Intent)
	}
	return resp
}

func toIntentView(si *intent.StructuredIntent) *intentView {
	return &intentView{
		Action:               string(si.Action),
		OrderID:              si.OrderID,
		ProductName:          si.ProductName,
		Confidence:           si.Confidence,
		RequiresConfirmation: si.RequiresConfirmation,
	}
}
