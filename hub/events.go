package hub

import (
	"encoding/json"

	"github.com/truongquangDat1103/robot-homeguard/pkg/timestamp"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// Event kinds carried in the wire envelope type field
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventError      = "error"
	EventPing       = "ping"
	EventPong       = "pong"

	EventSensorData  = "sensor-data"
	EventSensorAlert = "sensor-alert"

	EventRobotStatus   = "robot-status"
	EventRobotCommand  = "robot-command"
	EventRobotBehavior = "robot-behavior"
	EventCommandAck    = "command-ack"

	EventFaceDetected   = "face-detected"
	EventMotionDetected = "motion-detected"
	EventAIResult       = "ai-result"
	EventAIStatus       = "ai-status"

	EventAdapterConnected    = "adapter-connected"
	EventAdapterDisconnected = "adapter-disconnected"
	EventRobotConnected      = "robot-connected"
	EventRobotDisconnected   = "robot-disconnected"

	EventClientSubscribe   = "client-subscribe"
	EventClientUnsubscribe = "client-unsubscribe"
)

// Envelope is the wire format every frame uses in both directions
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Role      types.Role      `json:"role,omitempty"`
}

// NewEnvelope builds an envelope around a payload, stamping the current time.
// Marshal errors surface as a nil-data envelope of kind error; payloads are
// hub-owned structs so this does not happen in practice.
func NewEnvelope(kind string, data any) Envelope {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{Type: EventError, Timestamp: timestamp.Now()}
	}
	return Envelope{Type: kind, Data: raw, Timestamp: timestamp.Now()}
}

// ErrorData is the payload of an error envelope sent back to the offending
// connection
type ErrorData struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

// ConnectData announces a connection to operator clients
type ConnectData struct {
	ID   string     `json:"id"`
	Role types.Role `json:"role"`
}

// SensorBatchData is the payload of a sensor-data envelope: a batch of
// readings from one device
type SensorBatchData struct {
	DeviceID string                `json:"device_id"`
	Readings []types.SensorReading `json:"readings"`
}

// SensorAlertData is emitted when a reading crosses the threshold table
type SensorAlertData struct {
	Reading  types.SensorReading `json:"reading"`
	Severity types.AlertSeverity `json:"severity"`
}

// AIStatusData is a periodic engine status report from an inference adapter
type AIStatusData struct {
	EngineID       string   `json:"engine_id"`
	CPUPercent     float64  `json:"cpu_percent,omitempty"`
	MemoryPercent  float64  `json:"memory_percent,omitempty"`
	FPS            float64  `json:"fps,omitempty"`
	ActiveServices []string `json:"active_services,omitempty"`
}

// SubscribeData carries the target of a client-subscribe / client-unsubscribe
// request
type SubscribeData struct {
	DeviceID string `json:"device_id"`
}

// inboundEvent pairs a parsed envelope with the connection that sent it
type inboundEvent struct {
	conn     *connection
	envelope Envelope
}
