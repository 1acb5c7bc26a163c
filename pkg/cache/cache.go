// Package cache provides generic, thread-safe expiring caches and counters
// for the homeguard hub.
//
// The hub keeps three ephemeral data sets in TTL caches: latest sensor
// reading per (device, kind) with a 1-hour expiry, latest robot state
// snapshot per device with a 5-minute expiry, and recent AI detection events
// with 30-60 minute expiries. All caches are thread-safe with built-in
// statistics (always enabled for observability) and optional Prometheus
// metrics integration via functional options.
package cache

import (
	"time"

	"github.com/truongquangDat1103/robot-homeguard/errors"
)

// Cache represents a generic expiring cache. The cache is parameterized by
// value type V for type safety.
type Cache[V any] interface {
	// Get retrieves a value by key. Returns the value and true if found and
	// not expired, zero value and false otherwise.
	Get(key string) (V, bool)

	// Set stores a value with the cache's default TTL. Returns true if a new
	// entry was created, false if an existing entry was overwritten.
	Set(key string, value V) (bool, error)

	// SetWithTTL stores a value with an explicit TTL, overriding the default.
	SetWithTTL(key string, value V, ttl time.Duration) (bool, error)

	// Delete removes an entry by key. Returns true if the key existed.
	Delete(key string) (bool, error)

	// Clear removes all entries from the cache.
	Clear() error

	// Size returns the current number of entries (expired but uncollected
	// entries may be counted).
	Size() int

	// Keys returns all non-expired keys currently in the cache.
	Keys() []string

	// Stats returns cache statistics. Never nil.
	Stats() *Statistics

	// Close shuts down the cache and its background cleanup goroutine.
	Close() error
}

// EvictCallback is called when an entry is evicted from the cache.
type EvictCallback[V any] func(key string, value V)

// validateKey validates a cache key for basic requirements.
// Returns a classified error if the key is invalid.
func validateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "cache", "validateKey", "key cannot be empty")
	}
	return nil
}
