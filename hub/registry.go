package hub

import (
	"sync"

	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// Registry tracks live connections and their room membership. All reads take
// snapshots so fan-out never holds the lock while writing to sockets.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*connection            // connection id -> connection
	rooms   map[string]map[string]*connection // room name -> connection id -> connection
	devices map[string]*connection            // device id -> connection (at most one)
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*connection),
		rooms:   make(map[string]map[string]*connection),
		devices: make(map[string]*connection),
	}
}

// Register validates the connection's role, joins it to its role-global room
// and identifier-scoped room, and indexes devices by device id.
//
// A device must present a device id. A second device connection with the same
// id evicts the first: the old connection is closed and replaced so that a
// command targeted at the device can never be delivered twice. The evicted
// connection is returned so the caller can emit its disconnect notice.
func (r *Registry) Register(c *connection) (evicted *connection, err error) {
	if err := c.role.Validate(); err != nil {
		return nil, err
	}
	if c.role == types.RoleDevice && c.identity == "" {
		return nil, errors.WrapFatal(errors.ErrMissingDeviceID, "Registry", "Register",
			"device connection without device id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.role == types.RoleDevice {
		if old, ok := r.devices[c.identity]; ok {
			r.removeLocked(old)
			evicted = old
		}
		r.devices[c.identity] = c
	}

	r.conns[c.id] = c
	r.joinLocked(c, c.role.GlobalRoom())
	if scoped := c.role.ScopedRoom(c.identity); scoped != "" {
		r.joinLocked(c, scoped)
	}

	return evicted, nil
}

// Unregister removes the connection from all rooms and indexes. Returns true
// if the connection was still registered.
func (r *Registry) Unregister(c *connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		return false
	}
	r.removeLocked(c)
	return true
}

// removeLocked drops a connection from every index. Caller holds the lock.
func (r *Registry) removeLocked(c *connection) {
	delete(r.conns, c.id)
	for room, members := range r.rooms {
		if _, ok := members[c.id]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	if c.role == types.RoleDevice {
		// Only clear the index if this connection still owns it; an evicted
		// connection must not remove its replacement.
		if cur, ok := r.devices[c.identity]; ok && cur == c {
			delete(r.devices, c.identity)
		}
	}
}

func (r *Registry) joinLocked(c *connection, room string) {
	if room == "" {
		return
	}
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*connection)
		r.rooms[room] = members
	}
	members[c.id] = c
}

// Join adds a registered connection to an extra room (operator clients
// subscribing to a single device). Unregistered connections are ignored.
func (r *Registry) Join(c *connection, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		return
	}
	r.joinLocked(c, room)
}

// Leave removes a connection from a single room without unregistering it
func (r *Registry) Leave(c *connection, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

// RoomMembers returns a snapshot of the connections in a room
func (r *Registry) RoomMembers(room string) []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]*connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// RoomSize returns the current membership count of a room
func (r *Registry) RoomSize(room string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// IsDeviceOnline reports whether a device's scoped room has a live member
func (r *Registry) IsDeviceOnline(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[types.RoleDevice.ScopedRoom(deviceID)]) > 0
}

// Device returns the live connection for a device id, if any
func (r *Registry) Device(deviceID string) (*connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.devices[deviceID]
	return c, ok
}

// Count returns the number of registered connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Connections returns a snapshot of all registered connections (used by the
// idle sweep)
func (r *Registry) Connections() []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}
