package hub

import (
	"log/slog"

	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/pkg/timestamp"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// CommandRelay forwards operator commands to their target device and echoes
// a synchronous ack to the issuer. Commands are transient: no retry, no
// persistence, no delivery guarantee beyond the send queue.
type CommandRelay struct {
	registry *Registry
	router   *Router
	logger   *slog.Logger
}

// NewCommandRelay builds the relay
func NewCommandRelay(registry *Registry, router *Router, logger *slog.Logger) *CommandRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandRelay{
		registry: registry,
		router:   router,
		logger:   logger.With("component", "hub.CommandRelay"),
	}
}

// Relay validates and forwards one command. An empty device id fails with
// MissingDeviceID; a target whose device room is empty fails with
// DeviceOffline and nothing is delivered anywhere. On success the command
// goes to the device room and a command-ack envelope goes to the issuer
// only.
func (cr *CommandRelay) Relay(issuer *connection, cmd types.Command) error {
	if cmd.DeviceID == "" {
		return errors.WrapInvalid(errors.ErrMissingDeviceID, "CommandRelay", "Relay",
			"command without target device id")
	}
	if !cr.registry.IsDeviceOnline(cmd.DeviceID) {
		return errors.WrapInvalid(errors.ErrDeviceOffline, "CommandRelay", "Relay",
			"target device "+cmd.DeviceID+" has no live connection")
	}

	if issuer != nil && cmd.IssuerID == "" {
		cmd.IssuerID = issuer.id
	}
	if cmd.IssuedAt == 0 {
		cmd.IssuedAt = timestamp.Now()
	}

	cr.router.Dispatch(NewEnvelope(EventRobotCommand, cmd),
		types.RoleDevice.ScopedRoom(cmd.DeviceID))

	if issuer != nil {
		issuer.sendEnvelope(NewEnvelope(EventCommandAck, types.CommandAck{
			DeviceID: cmd.DeviceID,
			Verb:     cmd.Verb,
			IssuedAt: cmd.IssuedAt,
		}))
	}

	cr.logger.Debug("command relayed", "device", cmd.DeviceID, "verb", cmd.Verb)
	return nil
}
