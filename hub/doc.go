// Package hub implements the real-time WebSocket hub at the core of
// homeguard.
//
// Three client populations connect over a single /ws endpoint and declare
// their role at handshake: firmware devices report sensor readings and
// behavior-state snapshots, inference adapters report detection results, and
// operator clients watch everything and issue commands.
//
// Architecture:
//
//   - Registry tracks connections and room membership. Every connection
//     joins its role-global room plus an identifier-scoped room.
//   - Server upgrades HTTP requests, classifies the connection, and runs a
//     read loop that feeds inbound envelopes into the hub event channel.
//   - A single run-loop goroutine consumes the event channel and dispatches
//     each envelope through a static handler table. Handlers never block:
//     persistence goes through a bounded async queue and every outbound
//     delivery lands in a buffered per-connection send channel drained by a
//     dedicated write pump.
//   - SensorIngest, StateTracker, ResultProcessor and CommandRelay implement
//     the per-kind processing pipelines.
//   - The heartbeat sweep force-closes connections that have been silent
//     longer than the idle timeout.
package hub
