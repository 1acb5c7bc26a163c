// Package storage provides append-only persistence for sensor readings
// and behavior log entries.
//
// Two implementations are provided: a NATS JetStream store for production
// and an in-memory store for tests and broker-less deployments. Writes
// from the hub go through an AsyncWriter so that slow persistence never
// blocks the event loop; when the queue is full, entries are dropped and
// counted rather than applying backpressure to connected devices.
package storage
