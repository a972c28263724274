// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dealflow/pkg/platform/httputil"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type Handler struct {
	checks  map[string]Checker
	timeout time.Duration
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Handler {
	return &Handler{checks: make(map[string]Checker), timeout: 2 * time.Second, logger: logger}
}

// Add registers a named readiness check. Nil checks are ignored so optional
// dependencies can be passed straight through.
func (h *Handler) Add(name string, check Checker) *Handler {
	if check != nil {
		h.checks[name] = check
	}
	return h
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, readiness{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	out := readiness{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
			out.Checks[name] = "down"
			out.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		out.Checks[name] = "up"
	}
	httputil.WriteJSON(w, status, out)
}
