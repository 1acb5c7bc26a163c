package hub

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/truongquangDat1103/robot-homeguard/config"
	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/health"
	"github.com/truongquangDat1103/robot-homeguard/metric"
	"github.com/truongquangDat1103/robot-homeguard/pkg/cache"
	"github.com/truongquangDat1103/robot-homeguard/storage"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

var errShutdownTimeout = stderrors.New("shutdown timed out")

// handlerFunc processes one inbound envelope on the run loop
type handlerFunc func(*connection, Envelope)

// handlerEntry pairs a handler with the only sender role allowed to emit the
// event kind; an empty role admits any sender
type handlerEntry struct {
	role types.Role
	fn   handlerFunc
}

// Hub wires the registry, router, and processing pipelines together behind a
// single event loop. All envelope processing happens on the run-loop
// goroutine; registration and teardown happen on server goroutines under the
// registry lock.
type Hub struct {
	cfg config.HubConfig

	registry  *Registry
	router    *Router
	sensors   *SensorIngest
	states    *StateTracker
	results   *ResultProcessor
	relay     *CommandRelay
	heartbeat *HeartbeatMonitor
	writer    *storage.AsyncWriter

	events   chan inboundEvent
	handlers map[string]handlerEntry

	metrics *metric.Metrics
	monitor *health.Monitor
	logger  *slog.Logger

	mu       sync.Mutex
	running  bool
	shutdown chan struct{}
	done     chan struct{}

	caches []interface{ Close() error }
}

// New assembles a hub and its pipelines from configuration. The store may be
// nil, in which case persistence falls back to an in-memory store.
func New(ctx context.Context, cfg config.HubConfig, store storage.Store,
	metrics *metric.Metrics, registry *metric.MetricsRegistry,
	monitor *health.Monitor, logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	reg := NewRegistry()
	router := NewRouter(reg, metrics, logger)
	writer := storage.NewAsyncWriter(store, cfg.StorageQueueSize, logger)

	sensorCache, err := cache.NewTTL[types.SensorReading](
		ctx, cfg.SensorCacheTTL, time.Minute,
		cache.WithMetrics[types.SensorReading](registry, "sensor_latest"))
	if err != nil {
		return nil, errors.Wrap(err, "Hub", "New", "create sensor cache")
	}

	stateCache, err := cache.NewTTL[types.RobotStateSnapshot](
		ctx, cfg.StateCacheTTL, time.Minute,
		cache.WithMetrics[types.RobotStateSnapshot](registry, "robot_state"))
	if err != nil {
		return nil, errors.Wrap(err, "Hub", "New", "create state cache")
	}

	faceCache, err := cache.NewTTL[types.FaceResult](ctx, cfg.ResultCacheTTL, time.Minute)
	if err != nil {
		return nil, errors.Wrap(err, "Hub", "New", "create face result cache")
	}
	motionCache, err := cache.NewTTL[types.MotionResult](ctx, cfg.MotionCacheTTL, time.Minute)
	if err != nil {
		return nil, errors.Wrap(err, "Hub", "New", "create motion result cache")
	}
	genericCache, err := cache.NewTTL[types.GenericResult](ctx, cfg.ResultCacheTTL, time.Minute)
	if err != nil {
		return nil, errors.Wrap(err, "Hub", "New", "create generic result cache")
	}

	counters, err := cache.NewCounterSet(registry, "detections")
	if err != nil {
		return nil, errors.Wrap(err, "Hub", "New", "create detection counters")
	}

	h := &Hub{
		cfg:      cfg,
		registry: reg,
		router:   router,
		sensors:  NewSensorIngest(sensorCache, writer, router, logger),
		states:   NewStateTracker(stateCache, writer, router, logger),
		results: NewResultProcessor(faceCache, motionCache, genericCache,
			counters, router, logger),
		writer:  writer,
		events:  make(chan inboundEvent, cfg.EventQueueSize),
		metrics: metrics,
		monitor: monitor,
		logger:  logger.With("component", "hub.Hub"),
		caches: []interface{ Close() error }{
			sensorCache, stateCache, faceCache, motionCache, genericCache,
		},
	}
	h.relay = NewCommandRelay(reg, router, logger)
	h.heartbeat = NewHeartbeatMonitor(reg, cfg.IdleTimeout, cfg.SweepInterval,
		h.teardown, logger)
	h.handlers = h.buildHandlerTable()

	return h, nil
}

// buildHandlerTable maps event kinds to handlers and allowed sender roles.
// Built once at construction; never mutated afterwards.
func (h *Hub) buildHandlerTable() map[string]handlerEntry {
	return map[string]handlerEntry{
		EventPing:       {"", h.handlePing},
		EventDisconnect: {"", h.handleDisconnect},

		EventSensorData:  {types.RoleDevice, h.handleSensorData},
		EventRobotStatus: {types.RoleDevice, h.handleRobotStatus},

		EventFaceDetected:   {types.RoleInferenceAdapter, h.handleFaceDetected},
		EventMotionDetected: {types.RoleInferenceAdapter, h.handleMotionDetected},
		EventAIResult:       {types.RoleInferenceAdapter, h.handleAIResult},
		EventAIStatus:       {types.RoleInferenceAdapter, h.handleAIStatus},

		EventRobotCommand:      {types.RoleOperatorClient, h.handleRobotCommand},
		EventClientSubscribe:   {types.RoleOperatorClient, h.handleSubscribe},
		EventClientUnsubscribe: {types.RoleOperatorClient, h.handleUnsubscribe},
	}
}

// Start launches the run loop, the async writer, and the heartbeat sweep
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Hub", "Start", "start hub")
	}

	h.shutdown = make(chan struct{})
	h.done = make(chan struct{})
	h.running = true

	h.writer.Start(ctx)
	h.heartbeat.Start()
	go h.run(ctx)

	if h.metrics != nil {
		h.metrics.RecordStatus("hub", 2)
	}
	if h.monitor != nil {
		h.monitor.UpdateHealthy("hub", "event loop running")
	}
	h.logger.Info("hub started",
		"idle_timeout", h.cfg.IdleTimeout, "event_queue", h.cfg.EventQueueSize)
	return nil
}

// run is the single goroutine consuming inbound events
func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case ev := <-h.events:
			h.dispatch(ev)
		case <-h.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dispatch routes one envelope through the handler table
func (h *Hub) dispatch(ev inboundEvent) {
	if h.metrics != nil {
		h.metrics.EventsReceived.WithLabelValues(ev.envelope.Type, string(ev.conn.role)).Inc()
	}

	entry, ok := h.handlers[ev.envelope.Type]
	if !ok {
		ev.conn.sendError(errors.Code(errors.ErrValidation),
			"unknown event type "+ev.envelope.Type)
		h.recordProcessed(ev.envelope.Type, "unknown")
		return
	}
	if entry.role != "" && entry.role != ev.conn.role {
		ev.conn.sendError(errors.Code(errors.ErrValidation),
			"event "+ev.envelope.Type+" not accepted from role "+string(ev.conn.role))
		h.recordProcessed(ev.envelope.Type, "rejected")
		return
	}

	start := time.Now()
	entry.fn(ev.conn, ev.envelope)
	if h.metrics != nil {
		h.metrics.ProcessingDuration.WithLabelValues("hub", ev.envelope.Type).
			Observe(time.Since(start).Seconds())
	}
	h.recordProcessed(ev.envelope.Type, "ok")
}

func (h *Hub) recordProcessed(kind, status string) {
	if h.metrics != nil {
		h.metrics.EventsProcessed.WithLabelValues(kind, status).Inc()
	}
}

// submit feeds an inbound envelope to the run loop. Blocks the calling read
// loop when the event queue is full; per-client backpressure is intentional.
func (h *Hub) submit(c *connection, env Envelope) {
	select {
	case h.events <- inboundEvent{conn: c, envelope: env}:
	case <-h.shutdown:
	}
}

// decode unmarshals an envelope payload, answering the sender with a
// structured error envelope on failure
func (h *Hub) decode(c *connection, env Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.sendError(errors.Code(errors.ErrSerialization),
			"malformed "+env.Type+" payload: "+err.Error())
		h.recordError("hub", errors.ErrSerialization)
		return false
	}
	return true
}

func (h *Hub) recordError(component string, err error) {
	if h.metrics != nil {
		h.metrics.ErrorsTotal.WithLabelValues(component, errors.Classify(err).String()).Inc()
	}
}

// handlePing answers immediately with a pong to the sender; pings are never
// routed
func (h *Hub) handlePing(c *connection, _ Envelope) {
	c.sendEnvelope(NewEnvelope(EventPong, nil))
}

// handleDisconnect honors a client's graceful-close announcement
func (h *Hub) handleDisconnect(c *connection, _ Envelope) {
	h.teardown(c)
}

func (h *Hub) handleSensorData(c *connection, env Envelope) {
	var batch SensorBatchData
	if !h.decode(c, env, &batch) {
		return
	}
	h.sensors.Process(c, batch)
}

func (h *Hub) handleRobotStatus(c *connection, env Envelope) {
	var snap types.RobotStateSnapshot
	if !h.decode(c, env, &snap) {
		return
	}
	if _, err := h.states.Process(c, snap); err != nil {
		c.sendError(errors.Code(err), err.Error())
		h.recordError("state_tracker", err)
	}
}

// FaceEventData is a face result optionally naming the device whose camera
// feed produced it; escalations are dispatched to that device's room
type FaceEventData struct {
	types.FaceResult
	DeviceID string `json:"device_id,omitempty"`
}

func (h *Hub) handleFaceDetected(c *connection, env Envelope) {
	var data FaceEventData
	if !h.decode(c, env, &data) {
		return
	}
	h.results.ProcessFace(c, data.DeviceID, data.FaceResult)
}

func (h *Hub) handleMotionDetected(c *connection, env Envelope) {
	var result types.MotionResult
	if !h.decode(c, env, &result) {
		return
	}
	h.results.ProcessMotion(c, result)
}

func (h *Hub) handleAIResult(c *connection, env Envelope) {
	var result types.GenericResult
	if !h.decode(c, env, &result) {
		return
	}
	h.results.ProcessGeneric(c, result)
}

func (h *Hub) handleAIStatus(c *connection, env Envelope) {
	var status AIStatusData
	if !h.decode(c, env, &status) {
		return
	}
	if status.EngineID == "" {
		status.EngineID = c.identity
	}
	h.router.Route(NewEnvelope(EventAIStatus, status), types.RoleInferenceAdapter)
}

func (h *Hub) handleRobotCommand(c *connection, env Envelope) {
	var cmd types.Command
	if !h.decode(c, env, &cmd) {
		return
	}
	if err := h.relay.Relay(c, cmd); err != nil {
		c.sendError(errors.Code(err), err.Error())
		h.recordError("command_relay", err)
	}
}

func (h *Hub) handleSubscribe(c *connection, env Envelope) {
	var sub SubscribeData
	if !h.decode(c, env, &sub) {
		return
	}
	if sub.DeviceID == "" {
		c.sendError(errors.Code(errors.ErrMissingDeviceID), "subscribe without device id")
		return
	}
	h.registry.Join(c, types.RoleDevice.ScopedRoom(sub.DeviceID))
}

func (h *Hub) handleUnsubscribe(c *connection, env Envelope) {
	var sub SubscribeData
	if !h.decode(c, env, &sub) {
		return
	}
	if sub.DeviceID == "" {
		return
	}
	h.registry.Leave(c, types.RoleDevice.ScopedRoom(sub.DeviceID))
}

// register indexes a new connection, starts its write pump, and announces it.
// The evicted duplicate device connection, if any, is closed here.
func (h *Hub) register(c *connection) error {
	evicted, err := h.registry.Register(c)
	if err != nil {
		return err
	}
	if evicted != nil {
		h.logger.Info("duplicate device connection evicted",
			"device", c.identity, "old_connection", evicted.id, "new_connection", c.id)
		evicted.close()
	}

	go c.writePump()

	c.sendEnvelope(NewEnvelope(EventConnect, ConnectData{ID: c.id, Role: c.role}))

	switch c.role {
	case types.RoleDevice:
		h.router.Dispatch(NewEnvelope(EventRobotConnected,
			ConnectData{ID: c.identity, Role: c.role}), types.RoleOperatorClient.GlobalRoom())
	case types.RoleInferenceAdapter:
		h.router.Dispatch(NewEnvelope(EventAdapterConnected,
			ConnectData{ID: c.identity, Role: c.role}), types.RoleOperatorClient.GlobalRoom())
	}

	h.logger.Info("connection registered",
		"connection", c.id, "role", c.role, "identity", c.identity,
		"total", h.registry.Count())
	return nil
}

// teardown unregisters and closes a connection, announcing the loss to
// operator clients the first time only
func (h *Hub) teardown(c *connection) {
	wasRegistered := h.registry.Unregister(c)
	c.close()
	if !wasRegistered {
		return
	}

	switch c.role {
	case types.RoleDevice:
		h.router.Dispatch(NewEnvelope(EventRobotDisconnected,
			ConnectData{ID: c.identity, Role: c.role}), types.RoleOperatorClient.GlobalRoom())
	case types.RoleInferenceAdapter:
		h.router.Dispatch(NewEnvelope(EventAdapterDisconnected,
			ConnectData{ID: c.identity, Role: c.role}), types.RoleOperatorClient.GlobalRoom())
	}

	h.logger.Info("connection closed",
		"connection", c.id, "role", c.role, "identity", c.identity,
		"dropped_sends", c.dropped.Load(), "total", h.registry.Count())
}

// Registry exposes the connection registry (metrics, tests)
func (h *Hub) Registry() *Registry { return h.registry }

// Stop drains the hub: heartbeat first, then all connections, then the run
// loop and the persistence queue
func (h *Hub) Stop(timeout time.Duration) error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.mu.Unlock()

	deadline := time.Now().Add(timeout)

	var firstErr error
	if err := h.heartbeat.Stop(time.Until(deadline)); err != nil && firstErr == nil {
		firstErr = err
	}

	for _, c := range h.registry.Connections() {
		h.registry.Unregister(c)
		c.close()
	}

	close(h.shutdown)
	select {
	case <-h.done:
	case <-time.After(time.Until(deadline)):
		if firstErr == nil {
			firstErr = errShutdownTimeout
		}
	}

	if err := h.writer.Stop(time.Until(deadline)); err != nil && firstErr == nil {
		firstErr = err
	}

	for _, c := range h.caches {
		_ = c.Close()
	}

	if h.metrics != nil {
		h.metrics.RecordStatus("hub", 0)
	}
	if h.monitor != nil {
		h.monitor.UpdateUnhealthy("hub", "stopped")
	}
	h.logger.Info("hub stopped")
	return firstErr
}
