package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/truongquangDat1103/robot-homeguard/config"
	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/pkg/timestamp"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// Server owns the HTTP listener and WebSocket upgrade path. Each accepted
// connection is classified from the handshake query parameters (role, id),
// registered with the hub, and served by a read loop on the request
// goroutine.
type Server struct {
	cfg      config.ServerConfig
	hubCfg   config.HubConfig
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader

	server   *http.Server
	listener net.Listener

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewServer builds the WebSocket front end for a hub
func NewServer(cfg config.ServerConfig, hubCfg config.HubConfig, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}

	s := &Server{
		cfg:    cfg,
		hubCfg: hubCfg,
		hub:    hub,
		logger: logger.With("component", "hub.Server"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin admits all origins unless an allow-list is configured
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Start binds the listener and begins serving upgrades
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start", "start server")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapTransient(err, "Server", "Start", "bind "+addr)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	s.logger.Info("websocket server listening", "addr", listener.Addr().String(), "path", s.cfg.Path)
	return nil
}

// Addr returns the bound listener address (useful when port 0 was requested)
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleWebSocket upgrades the request and serves the connection until its
// read loop exits
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	role := types.Role(r.URL.Query().Get("role"))
	identity := r.URL.Query().Get("id")

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConnection(ws, role, identity,
		s.hubCfg.SendQueueSize, s.hubCfg.PingInterval, s.hubCfg.WriteTimeout)

	if err := s.hub.register(conn); err != nil {
		// Rejected at handshake: the connection never joins a room. Write the
		// error frame directly since no write pump is running.
		s.rejectConnection(ws, err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	s.readLoop(conn)
	s.hub.teardown(conn)
}

// rejectConnection writes a structured error frame and closes the socket
func (s *Server) rejectConnection(ws *websocket.Conn, cause error) {
	env := NewEnvelope(EventError, ErrorData{
		Code:    errors.Code(cause),
		Message: cause.Error(),
	})
	if data, err := json.Marshal(env); err == nil {
		_ = ws.SetWriteDeadline(time.Now().Add(s.hubCfg.WriteTimeout))
		_ = ws.WriteMessage(websocket.TextMessage, data)
	}
	_ = ws.Close()
	s.logger.Warn("connection rejected", "error", cause)
}

// readLoop consumes frames until the peer goes away. Every inbound frame,
// including pong control frames, refreshes the liveness clock.
func (s *Server) readLoop(c *connection) {
	if s.cfg.MaxMessageBytes > 0 {
		c.ws.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	c.ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.touch()

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.sendError(errors.Code(errors.ErrSerialization), "malformed envelope")
			continue
		}
		if env.Timestamp == 0 {
			env.Timestamp = timestamp.Now()
		}

		s.hub.submit(c, env)
	}
}

// Stop shuts the listener down and waits for in-flight connections
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	server := s.server
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "shutdown http server")
	}

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-time.After(timeout):
		return errShutdownTimeout
	}
}
