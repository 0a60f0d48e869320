// Package handler exposes the chat pipeline over HTTP. Authentication and
// request-scoped values are middleware concerns; this layer only decodes,
// delegates, and encodes.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ordergate/internal/chat"
	dErrors "ordergate/pkg/domain-errors"
	"ordergate/pkg/platform/httputil"
	"ordergate/pkg/requestcontext"
)

// Handler wires the chat service to chi routes.
type Handler struct {
	service *chat.Service
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// New constructs a Handler.
func New(service *chat.Service, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("chat service is required")
	}
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the chat routes. The router passed in is expected to carry
// the auth middleware already.
func (h *Handler) Register(r chi.Router) {
	r.Post("/chat/messages", h.sendMessage)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SendMessageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reply, err := h.service.Process(requestcontext.WithSessionID(ctx, req.SessionID), chat.Message{
		SessionID: req.SessionID,
		UserID:    userID,
		Text:      req.Message,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "chat pipeline failed",
				"request_id", requestID, "error", err)
		}
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "message processing failed", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(reply))
}
