package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Version string        `json:"version,omitempty"` // Semantic version of the config schema
	Server  ServerConfig  `json:"server"`
	Metrics MetricsConfig `json:"metrics"`
	NATS    NATSConfig    `json:"nats"`
	Hub     HubConfig     `json:"hub"`
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig defines the WebSocket listener settings
type ServerConfig struct {
	Host            string   `json:"host,omitempty"`
	Port            int      `json:"port"`
	Path            string   `json:"path,omitempty"`       // WebSocket endpoint path, default "/ws"
	ReadBufferSize  int      `json:"read_buffer_size,omitempty"`
	WriteBufferSize int      `json:"write_buffer_size,omitempty"`
	MaxMessageBytes int64    `json:"max_message_bytes,omitempty"`
	AllowedOrigins  []string `json:"allowed_origins,omitempty"` // empty = allow all
}

// MetricsConfig defines the Prometheus/health HTTP endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// NATSConfig defines the JetStream persistence connection settings
type NATSConfig struct {
	Enabled        bool          `json:"enabled"`
	URLs           []string      `json:"urls,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	Username       string        `json:"username,omitempty"`
	Password       string        `json:"password,omitempty"`
	Token          string        `json:"token,omitempty"`
	SubjectPrefix  string        `json:"subject_prefix,omitempty"` // default "homeguard"
	SensorStream   string        `json:"sensor_stream,omitempty"`
	BehaviorStream string        `json:"behavior_stream,omitempty"`
}

// HubConfig tunes the hub's queues, caches, and liveness behavior
type HubConfig struct {
	SendQueueSize    int           `json:"send_queue_size,omitempty"`    // per-connection outbound buffer
	EventQueueSize   int           `json:"event_queue_size,omitempty"`   // hub inbound event buffer
	StorageQueueSize int           `json:"storage_queue_size,omitempty"` // async persistence buffer
	IdleTimeout      time.Duration `json:"idle_timeout,omitempty"`
	PingInterval     time.Duration `json:"ping_interval,omitempty"`
	SweepInterval    time.Duration `json:"sweep_interval,omitempty"`
	WriteTimeout     time.Duration `json:"write_timeout,omitempty"`
	SensorCacheTTL   time.Duration `json:"sensor_cache_ttl,omitempty"`
	StateCacheTTL    time.Duration `json:"state_cache_ttl,omitempty"`
	MotionCacheTTL   time.Duration `json:"motion_cache_ttl,omitempty"`
	ResultCacheTTL   time.Duration `json:"result_cache_ttl,omitempty"`
}

// LoggingConfig defines structured logging settings
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json, text
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range (1-65535)", c.Server.Port)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port %d out of range (1-65535)", c.Metrics.Port)
		}
		if c.Metrics.Port == c.Server.Port {
			return errors.New("metrics.port must differ from server.port")
		}
	}

	if c.NATS.Enabled && len(c.NATS.URLs) == 0 {
		return errors.New("nats.urls is required when nats.enabled is true")
	}

	if c.Hub.SendQueueSize < 1 {
		return fmt.Errorf("hub.send_queue_size must be positive, got %d", c.Hub.SendQueueSize)
	}
	if c.Hub.EventQueueSize < 1 {
		return fmt.Errorf("hub.event_queue_size must be positive, got %d", c.Hub.EventQueueSize)
	}
	if c.Hub.StorageQueueSize < 1 {
		return fmt.Errorf("hub.storage_queue_size must be positive, got %d", c.Hub.StorageQueueSize)
	}
	if c.Hub.IdleTimeout <= 0 {
		return errors.New("hub.idle_timeout must be positive")
	}
	if c.Hub.PingInterval <= 0 {
		return errors.New("hub.ping_interval must be positive")
	}
	if c.Hub.PingInterval >= c.Hub.IdleTimeout {
		return fmt.Errorf("hub.ping_interval (%s) must be shorter than hub.idle_timeout (%s)",
			c.Hub.PingInterval, c.Hub.IdleTimeout)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q invalid (debug, info, warn, error)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format %q invalid (json, text)", c.Logging.Format)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
