// Package metric provides Prometheus metrics infrastructure for the
// homeguard hub.
//
// The package wraps a dedicated prometheus.Registry behind MetricsRegistry so
// components register their metrics through one place, duplicate registration
// is caught with a classified error, and tests can run with isolated
// registries instead of the process-global default.
//
// Core platform metrics (event counts, processing durations, error totals)
// live on Metrics and are shared by all hub components; domain-specific
// metrics (room sizes, detection counters) are created by their owning
// component and registered through the MetricsRegistrar interface.
//
// Server exposes the registry over HTTP at /metrics together with the
// aggregated health report of the hub.
package metric
