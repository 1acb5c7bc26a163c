package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/truongquangDat1103/robot-homeguard/metric"
)

// CounterSet is a thread-safe set of named monotonically increasing counters.
// The hub uses it for per-kind detection counters (face detections, motion
// events, generic results by kind). Counters are created on first increment.
type CounterSet struct {
	mu      sync.RWMutex
	counts  map[string]int64
	promVec *prometheus.CounterVec // optional
}

// NewCounterSet creates an empty counter set. When registry is non-nil the
// counters are mirrored into a Prometheus counter vector labeled by key.
func NewCounterSet(registry *metric.MetricsRegistry, prefix string) (*CounterSet, error) {
	cs := &CounterSet{
		counts: make(map[string]int64),
	}

	if registry != nil && prefix != "" {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "homeguard",
			Subsystem:   "counters",
			Name:        "total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Named event counters",
		}, []string{"key"})

		if err := registry.RegisterCounterVec(prefix, "counters", vec); err != nil {
			return nil, err
		}
		cs.promVec = vec
	}

	return cs, nil
}

// Increment adds one to the named counter and returns the new value.
func (cs *CounterSet) Increment(key string) int64 {
	cs.mu.Lock()
	cs.counts[key]++
	value := cs.counts[key]
	cs.mu.Unlock()

	if cs.promVec != nil {
		cs.promVec.WithLabelValues(key).Inc()
	}

	return value
}

// Value returns the current value of the named counter (0 if never incremented).
func (cs *CounterSet) Value(key string) int64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.counts[key]
}

// Snapshot returns a copy of all counters.
func (cs *CounterSet) Snapshot() map[string]int64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	out := make(map[string]int64, len(cs.counts))
	for k, v := range cs.counts {
		out[k] = v
	}
	return out
}
