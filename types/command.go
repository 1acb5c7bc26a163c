package types

// Command is an operator instruction targeted at a single device. Commands
// are transient: nothing survives beyond the synchronous ack returned to the
// issuing connection.
type Command struct {
	DeviceID string         `json:"device_id"`
	Verb     string         `json:"verb"`
	Params   map[string]any `json:"params,omitempty"`
	IssuerID string         `json:"issuer_id,omitempty"`
	IssuedAt int64          `json:"issued_at"` // Unix milliseconds
}

// CommandAck is the synchronous acknowledgment echoed back to the issuer.
// It confirms the command was accepted and forwarded, not that the device
// executed it.
type CommandAck struct {
	DeviceID string `json:"device_id"`
	Verb     string `json:"verb"`
	IssuedAt int64  `json:"issued_at"`
}
