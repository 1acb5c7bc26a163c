package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/truongquangDat1103/robot-homeguard/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())

	// Core metrics must already be gatherable.
	registry.Metrics.EventsReceived.WithLabelValues("sensor-data", "device").Inc()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() == "homeguard_events_received_total" {
			found = true
		}
	}
	assert.True(t, found, "core event counter should be registered")
}

func TestRegisterCounterDuplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "homeguard",
		Subsystem: "test",
		Name:      "things_total",
		Help:      "test counter",
	})

	require.NoError(t, registry.RegisterCounter("hub", "things", counter))

	err := registry.RegisterCounter("hub", "things", counter)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalid(err), "duplicate registration is an invalid error")
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "homeguard",
		Subsystem: "test",
		Name:      "level",
		Help:      "test gauge",
	})

	require.NoError(t, registry.RegisterGauge("hub", "level", gauge))
	assert.True(t, registry.Unregister("hub", "level"))
	assert.False(t, registry.Unregister("hub", "level"), "second unregister should report missing")

	// Re-registration after unregister must succeed.
	require.NoError(t, registry.RegisterGauge("hub", "level", gauge))
}

func TestRecordStatus(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.Metrics.RecordStatus("hub", 2)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "homeguard_service_status" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		assert.Equal(t, 2.0, mf.GetMetric()[0].GetGauge().GetValue())
		return
	}
	t.Fatal("homeguard_service_status not found")
}
