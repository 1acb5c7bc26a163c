package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/truongquangDat1103/robot-homeguard/pkg/timestamp"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// connection is one WebSocket client tracked by the registry. The role and
// identity are fixed at handshake and never change.
type connection struct {
	id       string
	role     types.Role
	identity string // device id, adapter id, or operator user id; may be empty for non-devices

	ws   *websocket.Conn
	send chan []byte
	quit chan struct{}

	lastSeen atomic.Int64 // Unix milliseconds
	closed   atomic.Bool
	dropped  atomic.Int64 // sends discarded because the queue was full

	closeOnce sync.Once

	pingInterval time.Duration
	writeTimeout time.Duration
}

// newConnection wraps an upgraded WebSocket with a send queue
func newConnection(ws *websocket.Conn, role types.Role, identity string,
	queueSize int, pingInterval, writeTimeout time.Duration) *connection {
	c := &connection{
		id:           uuid.NewString(),
		role:         role,
		identity:     identity,
		ws:           ws,
		send:         make(chan []byte, queueSize),
		quit:         make(chan struct{}),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
	}
	c.touch()
	return c
}

// touch records inbound activity for the idle sweep
func (c *connection) touch() {
	c.lastSeen.Store(timestamp.Now())
}

// idleSince returns how long the connection has been silent
func (c *connection) idleSince(now int64) time.Duration {
	return time.Duration(now-c.lastSeen.Load()) * time.Millisecond
}

// enqueue queues raw bytes for the write pump without blocking. A full queue
// drops the frame for this connection only.
func (c *connection) enqueue(data []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// sendEnvelope marshals and queues an envelope for this connection
func (c *connection) sendEnvelope(env Envelope) bool {
	data, err := json.Marshal(env)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

// sendError queues a structured error envelope back to this connection
func (c *connection) sendError(code, message string) {
	c.sendEnvelope(NewEnvelope(EventError, ErrorData{Code: code, Message: message}))
}

// writePump drains the send queue onto the wire. gorilla/websocket permits a
// single concurrent writer, so all frames (including transport pings) leave
// through this goroutine. Exits when close() fires the quit channel.
func (c *connection) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.quit:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// close tears the connection down exactly once. Firing quit stops the write
// pump; closing the socket unblocks the read loop.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		_ = c.ws.Close()
	})
}
