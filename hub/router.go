package hub

import (
	"encoding/json"
	"log/slog"

	"github.com/truongquangDat1103/robot-homeguard/metric"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// routeKey addresses the static routing table
type routeKey struct {
	kind string
	role types.Role
}

// routes is the static (event kind, sender role) -> target rooms table.
// Device-scoped rooms are appended per event by the handlers; this table
// only names population-level rooms.
var routes = map[routeKey][]string{
	{EventSensorData, types.RoleDevice}:    {"operator-clients"},
	{EventRobotStatus, types.RoleDevice}:   {"operator-clients"},
	{EventRobotBehavior, types.RoleDevice}: {"operator-clients"},

	{EventFaceDetected, types.RoleInferenceAdapter}:   {"operator-clients"},
	{EventMotionDetected, types.RoleInferenceAdapter}: {"operator-clients"},
	{EventAIResult, types.RoleInferenceAdapter}:       {"operator-clients"},
	{EventAIStatus, types.RoleInferenceAdapter}:       {"operator-clients"},
}

// Router fans envelopes out to room members through their send queues.
// Delivery is fire-and-forget: a member with a full queue loses the frame
// and the drop is counted, but dispatch never blocks.
type Router struct {
	registry *Registry
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// NewRouter creates a router over the given registry
func NewRouter(registry *Registry, metrics *metric.Metrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		metrics:  metrics,
		logger:   logger.With("component", "hub.Router"),
	}
}

// Rooms returns the static target rooms for an event kind and sender role
func (r *Router) Rooms(kind string, role types.Role) []string {
	return routes[routeKey{kind, role}]
}

// Dispatch marshals the envelope once and delivers it to the union of the
// listed rooms' members. A connection present in several target rooms (an
// operator subscribed to a device it already sees through the global room)
// receives the frame exactly once. Returns the number of connections
// notified.
func (r *Router) Dispatch(env Envelope, rooms ...string) int {
	return r.DispatchExcept(env, nil, rooms...)
}

// DispatchExcept is Dispatch with one connection excluded, so device-scoped
// fan-out never echoes a device's own telemetry back to it.
func (r *Router) DispatchExcept(env Envelope, except *connection, rooms ...string) int {
	data, err := json.Marshal(env)
	if err != nil {
		r.logger.Error("envelope marshal failed", "kind", env.Type, "error", err)
		return 0
	}

	seen := make(map[string]struct{})
	notified := 0
	for _, room := range rooms {
		delivered := 0
		for _, member := range r.registry.RoomMembers(room) {
			if except != nil && member.id == except.id {
				continue
			}
			if _, dup := seen[member.id]; dup {
				continue
			}
			seen[member.id] = struct{}{}

			if member.enqueue(data) {
				notified++
				delivered++
			} else {
				r.logger.Debug("send queue full, frame dropped",
					"room", room, "connection", member.id, "kind", env.Type)
			}
		}
		if r.metrics != nil && delivered > 0 {
			r.metrics.EventsFannedOut.WithLabelValues(room).Add(float64(delivered))
		}
	}
	return notified
}

// Route looks up the static table for the envelope and dispatches to the
// resulting rooms. Unrouted (kind, role) pairs notify nobody.
func (r *Router) Route(env Envelope, senderRole types.Role) int {
	rooms := r.Rooms(env.Type, senderRole)
	if len(rooms) == 0 {
		return 0
	}
	return r.Dispatch(env, rooms...)
}
