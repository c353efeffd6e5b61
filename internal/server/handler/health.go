package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Check reports whether a backing component is reachable.
type Check func(ctx context.Context) error

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	checks   map[string]Check
	features map[string]bool
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checks are run on every request;
// features are reported as configured.
func NewHealthHandler(checks map[string]Check, features map[string]bool, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, features: features, logger: logger}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Features  map[string]bool   `json:"features"`
	Timestamp string            `json:"timestamp"`
}

// HealthCheck reports "ok", or "degraded" when any check fails. Optional
// components failing do not make the endpoint fail.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Checks:    make(map[string]string, len(h.checks)),
		Features:  h.features,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "handler: health check failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, http.StatusOK, resp)
}
