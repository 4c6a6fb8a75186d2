package api

import (
	"context"
	"net/http"
	"time"
)

// Check represents the status of one dependency.
type Check struct {
	Status  string `json:"status"` // "pass", "fail" or "skip"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK        bool             `json:"ok"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health pings storage when persistence is enabled. A failed ping answers 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	ok := true

	if h.db != nil {
		start := time.Now()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn().Err(err).Msg("database health check failed")
			checks["database"] = Check{Status: "fail", Message: "connection failed"}
			ok = false
		} else {
			checks["database"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["database"] = Check{Status: "skip", Message: "persistence disabled"}
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	h.JSON(w, status, HealthResponse{
		OK:        ok,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
