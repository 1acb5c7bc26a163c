package hub

import (
	"log/slog"
	"sync/atomic"

	"github.com/truongquangDat1103/robot-homeguard/pkg/cache"
	"github.com/truongquangDat1103/robot-homeguard/storage"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// sensorRange bounds plausible values for a known sensor kind
type sensorRange struct {
	min, max float64
}

// sensorRanges is the per-kind validation table. Kinds not listed here pass
// validation unchecked; the sensor kind set is open.
var sensorRanges = map[types.SensorKind]sensorRange{
	types.SensorTemperature: {-50, 100},
	types.SensorHumidity:    {0, 100},
	types.SensorLight:       {0, 1023},
	types.SensorDistance:    {0, 400},
	types.SensorGas:         {0, 1000},
	types.SensorSound:       {0, 1023},
}

// alertThreshold marks readings that warrant operator attention
type alertThreshold struct {
	above    float64
	severity types.AlertSeverity
}

// alertThresholds is the secondary threshold table applied to valid readings
var alertThresholds = map[types.SensorKind]alertThreshold{
	types.SensorTemperature: {35, types.SeverityWarning},
	types.SensorGas:         {500, types.SeverityCritical},
	types.SensorSound:       {900, types.SeverityWarning},
}

// SensorIngest validates, persists, caches, and fans out sensor readings.
// Invalid readings are dropped silently (counted, not errored); a partially
// invalid batch is not rejected.
type SensorIngest struct {
	cache   cache.Cache[types.SensorReading]
	writer  *storage.AsyncWriter
	router  *Router
	logger  *slog.Logger
	invalid atomic.Int64
}

// NewSensorIngest builds the ingest pipeline
func NewSensorIngest(latest cache.Cache[types.SensorReading], writer *storage.AsyncWriter,
	router *Router, logger *slog.Logger) *SensorIngest {
	if logger == nil {
		logger = slog.Default()
	}
	return &SensorIngest{
		cache:  latest,
		writer: writer,
		router: router,
		logger: logger.With("component", "hub.SensorIngest"),
	}
}

// validate checks a reading against the per-kind range table
func (s *SensorIngest) validate(r types.SensorReading) bool {
	bounds, known := sensorRanges[r.Kind]
	if !known {
		return true
	}
	return r.Value >= bounds.min && r.Value <= bounds.max
}

// classify applies the threshold table to a valid reading
func (s *SensorIngest) classify(r types.SensorReading) types.AlertSeverity {
	if t, ok := alertThresholds[r.Kind]; ok && r.Value > t.above {
		return t.severity
	}
	return types.SeverityNone
}

// Process handles one sensor-data batch from a device. Valid readings are
// queued for persistence, cached as the latest value per (device, kind), and
// fanned out to operator clients; threshold crossings additionally emit
// sensor-alert events. Returns the number of readings accepted.
func (s *SensorIngest) Process(sender *connection, batch SensorBatchData) int {
	deviceID := batch.DeviceID
	if deviceID == "" && sender != nil {
		deviceID = sender.identity
	}

	valid := make([]types.SensorReading, 0, len(batch.Readings))
	var alerts []SensorAlertData

	for _, reading := range batch.Readings {
		if reading.DeviceID == "" {
			reading.DeviceID = deviceID
		}
		if !s.validate(reading) {
			s.invalid.Add(1)
			s.logger.Debug("reading out of range, dropped",
				"device", reading.DeviceID, "kind", reading.Kind, "value", reading.Value)
			continue
		}

		valid = append(valid, reading)
		if _, err := s.cache.Set(reading.CacheKey(), reading); err != nil {
			s.logger.Warn("cache write failed", "key", reading.CacheKey(), "error", err)
		}

		if severity := s.classify(reading); severity != types.SeverityNone {
			alerts = append(alerts, SensorAlertData{Reading: reading, Severity: severity})
		}
	}

	if len(valid) == 0 {
		return 0
	}

	s.writer.EnqueueSensorReadings(valid)

	out := SensorBatchData{DeviceID: deviceID, Readings: valid}
	rooms := append(s.router.Rooms(EventSensorData, types.RoleDevice),
		types.RoleDevice.ScopedRoom(deviceID))
	s.router.DispatchExcept(NewEnvelope(EventSensorData, out), sender, rooms...)

	for _, alert := range alerts {
		s.router.DispatchExcept(NewEnvelope(EventSensorAlert, alert), sender, rooms...)
	}

	return len(valid)
}

// Latest returns the cached latest reading for a device and kind
func (s *SensorIngest) Latest(deviceID string, kind types.SensorKind) (types.SensorReading, bool) {
	return s.cache.Get(types.SensorReading{DeviceID: deviceID, Kind: kind}.CacheKey())
}

// InvalidCount returns the number of readings dropped by range validation
func (s *SensorIngest) InvalidCount() int64 {
	return s.invalid.Load()
}
