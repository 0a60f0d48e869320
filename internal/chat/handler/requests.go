package handler

import (
	"strings"

	dErrors "ordergate/pkg/domain-errors"
)

// maxMessageChars bounds the transport layer; the sanitizer applies its own
// tighter policy downstream.
const maxMessageChars = 1000

// SendMessageRequest is the body of POST /api/v1/chat/messages.
type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Validate implements httputil.Validatable.
func (r *SendMessageRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "session_id is required")
	}
	if strings.TrimSpace(r.Message) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "message is required")
	}
	if len(r.Message) > maxMessageChars {
		return dErrors.New(dErrors.CodeBadRequest, "message exceeds maximum length")
	}
	return nil
}
