// Package main implements the entry point for the HomeGuard hub.
// HomeGuard is a realtime WebSocket hub that relays traffic between
// firmware devices, AI inference adapters, and operator dashboards.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/truongquangDat1103/robot-homeguard/config"
	"github.com/truongquangDat1103/robot-homeguard/health"
	"github.com/truongquangDat1103/robot-homeguard/hub"
	"github.com/truongquangDat1103/robot-homeguard/metric"
	"github.com/truongquangDat1103/robot-homeguard/storage"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "homeguard"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	// Load and validate configuration
	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	// Setup persistence, metrics and health monitoring
	store, registry, monitor, err := setupInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("Store close failed", "error", cerr)
		}
	}()

	// Assemble the hub and its transport
	realtimeHub, err := hub.New(ctx, cfg.Hub, store, registry.CoreMetrics(), registry, monitor, logger)
	if err != nil {
		return fmt.Errorf("create hub: %w", err)
	}

	wsServer := hub.NewServer(cfg.Server, cfg.Hub, realtimeHub, logger)

	metricsServer := newMetricsServer(cfg, registry, monitor)

	// Run application with signal handling
	return runWithSignalHandling(ctx, cfg, realtimeHub, wsServer, metricsServer, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting HomeGuard realtime hub",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads and validates configuration
func initializeConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// CLI flags override file and environment values
	if cliCfg.MetricsPort > 0 {
		cfg.Metrics.Port = cliCfg.MetricsPort
	}
	cfg.Logging.Level = cliCfg.LogLevel
	cfg.Logging.Format = cliCfg.LogFormat

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupInfrastructure creates the store, metrics registry and health monitor
func setupInfrastructure(
	ctx context.Context,
	cfg *config.Config,
) (storage.Store, *metric.MetricsRegistry, *health.Monitor, error) {
	store, err := setupStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor(slog.Default())

	return store, registry, monitor, nil
}

// setupStore connects to JetStream when NATS is enabled, otherwise keeps
// telemetry history in memory.
func setupStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if !cfg.NATS.Enabled {
		slog.Info("NATS disabled, using in-memory telemetry store")
		return storage.NewMemoryStore(), nil
	}

	slog.Info("Connecting to NATS", "urls", cfg.NATS.URLs)

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := storage.NewNATSStore(connCtx, cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return store, nil
}

func newMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry, monitor *health.Monitor) *metric.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry, health.NewHandler(monitor, appName))
}

// runWithSignalHandling starts the hub and servers and blocks until shutdown
func runWithSignalHandling(
	ctx context.Context,
	cfg *config.Config,
	realtimeHub *hub.Hub,
	wsServer *hub.Server,
	metricsServer *metric.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := realtimeHub.Start(signalCtx); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}

	if err := wsServer.Start(signalCtx); err != nil {
		stopHub(realtimeHub, shutdownTimeout)
		return fmt.Errorf("start websocket server: %w", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Start(); err != nil {
			slog.Warn("Metrics server failed to start", "error", err, "port", cfg.Metrics.Port)
		} else {
			slog.Info("Metrics server listening", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
		}
	}

	slog.Info("HomeGuard hub started",
		"addr", wsServer.Addr(),
		"path", cfg.Server.Path,
		"nats_enabled", cfg.NATS.Enabled)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	return shutdown(realtimeHub, wsServer, metricsServer, shutdownTimeout)
}

// shutdown stops the hub before its transport so read loops see the close
// frames, then tears the HTTP servers down.
func shutdown(
	realtimeHub *hub.Hub,
	wsServer *hub.Server,
	metricsServer *metric.Server,
	timeout time.Duration,
) error {
	deadline := time.Now().Add(timeout)

	var firstErr error

	if err := realtimeHub.Stop(timeout); err != nil {
		slog.Error("Error stopping hub", "error", err)
		firstErr = err
	}

	if err := wsServer.Stop(time.Until(deadline)); err != nil {
		slog.Error("Error stopping websocket server", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(time.Until(deadline)); err != nil {
			slog.Warn("Error stopping metrics server", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", firstErr)
	}

	slog.Info("HomeGuard shutdown complete")
	return nil
}

func stopHub(realtimeHub *hub.Hub, timeout time.Duration) {
	if err := realtimeHub.Stop(timeout); err != nil {
		slog.Error("Error stopping hub", "error", err)
	}
}

// printHelp prints help information
func printHelp() {
	printDetailedHelp()
}

// loadConfig loads configuration from the specified file path. An empty
// path yields the built-in defaults plus environment overrides.
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path == "" {
		return loader.Load()
	}
	return loader.LoadFile(path)
}
