// Package health provides health checking functionality for the receitas API.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/receitas-api/interfaces"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store      interfaces.ResultStore
	staleAfter time.Duration
	now        func() time.Time
}

// NewHealthChecker creates a health checker over store. A service that has
// not extracted anything within staleAfter reports "idle".
func NewHealthChecker(store interfaces.ResultStore, staleAfter time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		store:      store,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// HealthCheck returns the status, the fields for /health and the HTTP code.
// Idle is informational and still answers 200.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	startTime := h.store.GetServerStartTime()
	lastExtraction := h.store.GetLastExtraction()

	data = map[string]any{
		"stored_results":     h.store.Count(),
		"result_ttl_minutes": int(h.store.TTL().Minutes()),
		"last_extraction":    nil,
	}

	if startTime.IsZero() {
		data["uptime_seconds"] = 0
		return "unhealthy", data, http.StatusServiceUnavailable
	}
	data["uptime_seconds"] = math.Round(now.Sub(startTime).Seconds())

	reference := startTime
	if !lastExtraction.IsZero() {
		data["last_extraction"] = lastExtraction.Format(time.RFC3339)
		reference = lastExtraction
	}

	idle := now.Sub(reference)
	data["idle_hours"] = math.Round(idle.Hours()*10) / 10

	if h.staleAfter > 0 && idle > h.staleAfter {
		return "idle", data, http.StatusOK
	}
	return "healthy", data, http.StatusOK
}
