package storage

import (
	"context"
	"sync"

	"github.com/truongquangDat1103/robot-homeguard/types"
)

// Retention limits for broker-less deployments. Old records are evicted
// oldest-first once a limit is reached.
const (
	memoryReadingCapacity  = 4096
	memoryBehaviorCapacity = 1024
)

// MemoryStore is a bounded in-memory Store for tests and broker-less
// deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	readings *ring[types.SensorReading]
	entries  *ring[types.BehaviorLogEntry]
	closed   bool
}

// NewMemoryStore creates an empty in-memory store with default retention
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		readings: newRing[types.SensorReading](memoryReadingCapacity),
		entries:  newRing[types.BehaviorLogEntry](memoryBehaviorCapacity),
	}
}

// AppendSensorReadings persists a batch of sensor readings
func (s *MemoryStore) AppendSensorReadings(_ context.Context, readings []types.SensorReading) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	for _, r := range readings {
		s.readings.Append(r)
	}
	return nil
}

// AppendBehaviorEntry persists a single behavior transition
func (s *MemoryStore) AppendBehaviorEntry(_ context.Context, entry types.BehaviorLogEntry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.entries.Append(entry)
	return nil
}

// SensorReadings returns the retained readings, oldest first
func (s *MemoryStore) SensorReadings() []types.SensorReading {
	return s.readings.Snapshot()
}

// BehaviorEntries returns the retained behavior entries, oldest first
func (s *MemoryStore) BehaviorEntries() []types.BehaviorLogEntry {
	return s.entries.Snapshot()
}

// EvictedReadings reports how many readings were dropped to stay within
// the retention limit.
func (s *MemoryStore) EvictedReadings() uint64 {
	return s.readings.Dropped()
}

// Close marks the store closed; subsequent appends fail
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
