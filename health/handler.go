package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the aggregated system health as JSON.
// Returns 200 when the system is healthy or degraded, 503 when unhealthy.
type Handler struct {
	monitor    *Monitor
	systemName string
}

// NewHandler creates an HTTP handler backed by the given monitor
func NewHandler(monitor *Monitor, systemName string) *Handler {
	return &Handler{monitor: monitor, systemName: systemName}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.monitor.AggregateHealth(h.systemName)

	w.Header().Set("Content-Type", "application/json")
	if status.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(status)
}
