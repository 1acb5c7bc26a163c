package health

import (
	"log/slog"
	"sync"
	"time"
)

// Monitor tracks the health of hub components. Status transitions are
// logged so a pipeline degrading shows up in the logs before the
// aggregate endpoint flips.
type Monitor struct {
	mu      sync.RWMutex
	entries map[string]componentEntry
	logger  *slog.Logger
}

// componentEntry pairs the latest status with when the component was
// first reported, which feeds the uptime metric in aggregates.
type componentEntry struct {
	status    Status
	firstSeen time.Time
}

// NewMonitor creates a health monitor. logger may be nil.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		entries: make(map[string]componentEntry),
		logger:  logger,
	}
}

// Update records the status for a named component and logs the
// transition when the health state changed.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	prev, seen := m.entries[name]
	e := componentEntry{status: status, firstSeen: time.Now()}
	if seen {
		e.firstSeen = prev.firstSeen
	}
	m.entries[name] = e
	m.mu.Unlock()

	if seen && prev.status.Status == status.Status {
		return
	}
	switch {
	case status.IsUnhealthy():
		m.logger.Warn("component unhealthy", "component", name, "message", status.Message)
	case status.IsDegraded():
		m.logger.Warn("component degraded", "component", name, "message", status.Message)
	case seen:
		m.logger.Info("component recovered", "component", name, "message", status.Message)
	default:
		m.logger.Debug("component registered healthy", "component", name)
	}
}

// UpdateHealthy marks a component healthy
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks a component unhealthy
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded marks a component degraded
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get retrieves the latest status for a named component
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entries[name]
	return e.status, exists
}

// Uptime reports how long a component has been tracked, zero if unknown
func (m *Monitor) Uptime(name string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entries[name]
	if !exists {
		return 0
	}
	return time.Since(e.firstSeen)
}

// GetAll returns a copy of all current statuses keyed by component
func (m *Monitor) GetAll() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Status, len(m.entries))
	for name, e := range m.entries {
		result[name] = e.status
	}
	return result
}

// Remove stops tracking a component
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, name)
}

// AggregateHealth rolls all component statuses into one system status.
// The aggregate carries an uptime metric from the oldest tracked
// component.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()

	subStatuses := make([]Status, 0, len(m.entries))
	var oldest time.Time
	for _, e := range m.entries {
		subStatuses = append(subStatuses, e.status)
		if oldest.IsZero() || e.firstSeen.Before(oldest) {
			oldest = e.firstSeen
		}
	}
	m.mu.RUnlock()

	agg := Aggregate(systemName, subStatuses)
	if !oldest.IsZero() {
		agg = agg.WithMetrics(&Metrics{Uptime: time.Since(oldest)})
	}
	return agg
}

// ListComponents returns the names of all tracked components
func (m *Monitor) ListComponents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	return names
}

// Count returns the number of tracked components
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Clear drops all tracked components
func (m *Monitor) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]componentEntry)
}
