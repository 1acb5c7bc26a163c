package hub

import (
	"log/slog"

	"github.com/truongquangDat1103/robot-homeguard/pkg/cache"
	"github.com/truongquangDat1103/robot-homeguard/storage"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// StateTracker keeps the latest behavior snapshot per device and turns state
// changes into append-only behavior-log entries. The first snapshot after a
// cache miss counts as a transition from no prior state.
type StateTracker struct {
	cache  cache.Cache[types.RobotStateSnapshot]
	writer *storage.AsyncWriter
	router *Router
	logger *slog.Logger
}

// NewStateTracker builds the tracker over a short-TTL snapshot cache
func NewStateTracker(snapshots cache.Cache[types.RobotStateSnapshot],
	writer *storage.AsyncWriter, router *Router, logger *slog.Logger) *StateTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateTracker{
		cache:  snapshots,
		writer: writer,
		router: router,
		logger: logger.With("component", "hub.StateTracker"),
	}
}

// Process handles one robot-status snapshot. The snapshot always fans out to
// operator clients; a state change additionally appends a BehaviorLogEntry
// and emits a robot-behavior event. Returns the log entry when a transition
// was detected.
func (t *StateTracker) Process(sender *connection, snap types.RobotStateSnapshot) (*types.BehaviorLogEntry, error) {
	if snap.DeviceID == "" && sender != nil {
		snap.DeviceID = sender.identity
	}
	if err := snap.State.Validate(); err != nil {
		return nil, err
	}

	prev, hadPrev := t.cache.Get(snap.DeviceID)
	if _, err := t.cache.Set(snap.DeviceID, snap); err != nil {
		t.logger.Warn("snapshot cache write failed", "device", snap.DeviceID, "error", err)
	}

	rooms := append(t.router.Rooms(EventRobotStatus, types.RoleDevice),
		types.RoleDevice.ScopedRoom(snap.DeviceID))
	t.router.DispatchExcept(NewEnvelope(EventRobotStatus, snap), sender, rooms...)

	if hadPrev && prev.State == snap.State {
		return nil, nil
	}

	entry := types.BehaviorLogEntry{
		DeviceID:   snap.DeviceID,
		ToState:    snap.State,
		Emotion:    snap.Emotion,
		Battery:    snap.Battery,
		X:          snap.X,
		Y:          snap.Y,
		CapturedAt: snap.CapturedAt,
	}
	if hadPrev {
		entry.FromState = prev.State
	}

	t.writer.EnqueueBehaviorEntry(entry)
	t.router.DispatchExcept(NewEnvelope(EventRobotBehavior, entry), sender, rooms...)

	t.logger.Debug("behavior transition",
		"device", entry.DeviceID, "from", entry.FromState, "to", entry.ToState)
	return &entry, nil
}

// Snapshot returns the cached latest snapshot for a device
func (t *StateTracker) Snapshot(deviceID string) (types.RobotStateSnapshot, bool) {
	return t.cache.Get(deviceID)
}
