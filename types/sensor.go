package types

// SensorKind identifies the physical sensor that produced a reading.
// The set is open: firmware may report kinds the hub has no range table
// for, and those pass validation unchecked.
type SensorKind string

// Known sensor kinds reported by the ESP32 firmware
const (
	SensorTemperature SensorKind = "temperature"
	SensorHumidity    SensorKind = "humidity"
	SensorLight       SensorKind = "light"
	SensorDistance    SensorKind = "distance"
	SensorGas         SensorKind = "gas"
	SensorSound       SensorKind = "sound"
)

// SensorReading is a single measurement reported by a device. Readings are
// persisted append-only and cached ephemerally keyed by (device id, kind).
type SensorReading struct {
	DeviceID   string     `json:"device_id"`
	Kind       SensorKind `json:"kind"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit,omitempty"`
	CapturedAt int64      `json:"captured_at"` // Unix milliseconds
}

// CacheKey returns the expiring-cache key for the latest reading of this
// kind on this device.
func (r SensorReading) CacheKey() string {
	return r.DeviceID + "/" + string(r.Kind)
}

// AlertSeverity classifies a reading against the secondary threshold table.
type AlertSeverity string

// Alert severity levels
const (
	SeverityNone     AlertSeverity = ""
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)
