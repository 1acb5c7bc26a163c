// Package homeguard is a realtime hub for a home robot platform. It
// multiplexes a single WebSocket endpoint between three client roles:
// firmware devices pushing telemetry, AI inference adapters returning
// detection results, and operator dashboards observing and commanding.
//
// # Architecture
//
// Every connection upgrades at /ws and declares a role in the handshake
// query string. The hub serializes all inbound traffic through a single
// event loop, which keeps processing ordered without fine-grained
// locking:
//
//	┌──────────┐   ┌───────────┐   ┌─────────────┐
//	│ devices  │   │ adapters  │   │  operators  │
//	└────┬─────┘   └────┬──────┘   └──────┬──────┘
//	     │  WebSocket   │    handshake    │
//	     └──────────────┼─────────────────┘
//	                    ↓
//	       ┌────────────────────────┐
//	       │        Hub loop        │  decode, authorize by role,
//	       │   (single goroutine)   │  dispatch to pipelines
//	       └───────────┬────────────┘
//	                   ↓
//	  sensor ingest · state tracker · AI results ·
//	  command relay · heartbeat monitor
//	                   ↓
//	       ┌────────────────────────┐
//	       │     Room registry      │  fan-out with dedupe,
//	       │  (global + scoped)     │  sender excluded
//	       └────────────────────────┘
//
// Outbound delivery is per-connection: each socket has a buffered send
// queue drained by its write pump, and a slow consumer loses frames
// rather than stalling the loop.
//
// # Packages
//
//   - hub: connection registry, router, pipelines, WebSocket transport
//   - storage: JetStream-backed telemetry history with async batching
//   - config: layered JSON configuration with environment overrides
//   - health, metric: component health aggregation, Prometheus export
//   - errors: transient/invalid/fatal error classification
//   - types: wire-level domain types shared by all packages
//
// The hub itself holds no long-term state. Latest sensor values and
// robot state live in TTL caches; durable history goes through the
// storage layer to NATS JetStream when a broker is configured.
package homeguard
