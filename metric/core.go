package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics (not component-specific)
type Metrics struct {
	// ServiceStatus tracks lifecycle state per hub component
	ServiceStatus *prometheus.GaugeVec

	// Event flow metrics
	EventsReceived     *prometheus.CounterVec
	EventsProcessed    *prometheus.CounterVec
	EventsFannedOut    *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "homeguard",
				Subsystem: "service",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"component"},
		),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homeguard",
				Subsystem: "events",
				Name:      "received_total",
				Help:      "Total number of inbound events received, by event kind and sender role",
			},
			[]string{"kind", "role"},
		),

		EventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homeguard",
				Subsystem: "events",
				Name:      "processed_total",
				Help:      "Total number of events processed, by event kind and outcome",
			},
			[]string{"kind", "status"},
		),

		EventsFannedOut: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homeguard",
				Subsystem: "events",
				Name:      "fanned_out_total",
				Help:      "Total number of event deliveries to room members, by room",
			},
			[]string{"room"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "homeguard",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Event processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "operation"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "homeguard",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total errors by component and error class",
			},
			[]string{"component", "class"},
		),
	}
}

// RecordStatus updates the lifecycle gauge for a component. Status values:
// 0=stopped, 1=starting, 2=running, 3=stopping, 4=failed.
func (m *Metrics) RecordStatus(component string, status int) {
	m.ServiceStatus.WithLabelValues(component).Set(float64(status))
}
