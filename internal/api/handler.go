package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/stupiduntilnot/chatrelay/internal/chat"
	"github.com/stupiduntilnot/chatrelay/internal/openai"
)

// Pinger reports storage reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	chat   *chat.Service
	db     Pinger
	logger zerolog.Logger
}

// NewHandler creates a Handler. db may be nil when persistence is disabled.
func NewHandler(svc *chat.Service, db Pinger, logger zerolog.Logger) *Handler {
	return &Handler{chat: svc, db: db, logger: logger}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends {"detail": code} with the given status.
func (h *Handler) Error(w http.ResponseWriter, status int, code string) {
	h.JSON(w, status, map[string]string{"detail": code})
}

// Fail maps a service error to its response. Unclassified errors are logged
// and reported as internal_error without detail.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *chat.ValidationError
		rl   *openai.RateLimitedError
		up   *openai.UpstreamError
	)
	switch {
	case errors.As(err, &verr):
		h.Error(w, http.StatusBadRequest, verr.Code)
	case errors.Is(err, chat.ErrNotFound):
		h.Error(w, http.StatusNotFound, "not_found")
	case errors.Is(err, chat.ErrPersistenceDisabled):
		h.Error(w, http.StatusNotImplemented, "database_disabled")
	case errors.As(err, &rl):
		h.Error(w, http.StatusTooManyRequests, "rate_limited")
	case errors.As(err, &up):
		h.logger.Warn().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("upstream failure")
		h.Error(w, http.StatusBadGateway, "upstream_error")
	default:
		h.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("internal error")
		h.Error(w, http.StatusInternalServerError, "internal_error")
	}
}

// invalid rejects a request that does not match the endpoint's schema.
func (h *Handler) invalid(w http.ResponseWriter, field, reason string) {
	h.JSON(w, http.StatusUnprocessableEntity, map[string]string{
		"detail": "invalid_request",
		"field":  field,
		"reason": reason,
	})
}
