package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker tracks server health and readiness state.
type HealthChecker struct {
	ready     atomic.Bool
	startTime time.Time
	sc        *ServerContext
}

// NewHealthChecker creates a health checker bound to the given server context.
// The server starts in a not-ready state; call SetReady once initialization
// has completed.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		sc:        sc,
	}
}

// SetReady marks the server as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LivenessHandler responds to liveness probes. It returns 200 as long as the
// process is running and not shutting down.
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	if h.sc != nil && h.sc.IsShutdown() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler responds to readiness probes. It returns 200 only once the
// server has finished initialization and is not shutting down.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]bool{
		"initialized": h.ready.Load(),
	}
	if h.sc != nil {
		checks["not_shutting_down"] = !h.sc.IsShutdown()
	}

	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(map[string]any{
		"ready":  healthy,
		"checks": checks,
	}); err != nil {
		slog.Error("failed to encode readiness response", "error", err)
	}
}

// DetailedHealthHandler reports uptime and per-check status for debugging.
func (h *HealthChecker) DetailedHealthHandler(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"ready":          h.ready.Load(),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}
	if h.sc != nil {
		status["shutting_down"] = h.sc.IsShutdown()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}

// RegisterHealthEndpoints registers the standard health endpoints on the mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.LivenessHandler)
	mux.HandleFunc("/readyz", h.ReadinessHandler)
	mux.HandleFunc("/health", h.DetailedHealthHandler)
}
