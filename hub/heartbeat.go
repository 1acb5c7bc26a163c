package hub

import (
	"log/slog"
	"time"

	"github.com/truongquangDat1103/robot-homeguard/pkg/timestamp"
)

// HeartbeatMonitor force-closes connections that have been silent longer
// than the idle timeout. Application-level pings, pong frames, and any data
// frame all count as activity; transport pings sent by the write pump do
// not.
type HeartbeatMonitor struct {
	registry    *Registry
	idleTimeout time.Duration
	interval    time.Duration
	logger      *slog.Logger

	onExpire func(*connection) // teardown callback wired by the hub

	shutdown chan struct{}
	done     chan struct{}
}

// NewHeartbeatMonitor builds a monitor that sweeps at the given interval
func NewHeartbeatMonitor(registry *Registry, idleTimeout, interval time.Duration,
	onExpire func(*connection), logger *slog.Logger) *HeartbeatMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatMonitor{
		registry:    registry,
		idleTimeout: idleTimeout,
		interval:    interval,
		logger:      logger.With("component", "hub.HeartbeatMonitor"),
		onExpire:    onExpire,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the sweep goroutine
func (h *HeartbeatMonitor) Start() {
	go h.run()
}

func (h *HeartbeatMonitor) run() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Sweep()
		case <-h.shutdown:
			return
		}
	}
}

// Sweep closes every connection that exceeded the idle timeout. Returns the
// number of connections expired.
func (h *HeartbeatMonitor) Sweep() int {
	now := timestamp.Now()
	expired := 0

	for _, c := range h.registry.Connections() {
		if c.idleSince(now) <= h.idleTimeout {
			continue
		}
		h.logger.Info("idle connection expired",
			"connection", c.id, "role", c.role, "identity", c.identity,
			"idle", c.idleSince(now).Round(time.Second))
		if h.onExpire != nil {
			h.onExpire(c)
		} else {
			c.close()
		}
		expired++
	}
	return expired
}

// Stop halts the sweep goroutine
func (h *HeartbeatMonitor) Stop(timeout time.Duration) error {
	close(h.shutdown)
	select {
	case <-h.done:
		return nil
	case <-time.After(timeout):
		return errShutdownTimeout
	}
}
