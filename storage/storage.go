package storage

import (
	"context"
	"errors"

	"github.com/truongquangDat1103/robot-homeguard/types"
)

var (
	// ErrStoreClosed is returned when appending to a closed store
	ErrStoreClosed = errors.New("store closed")

	// ErrFlushTimeout is returned when Stop could not flush the queue in time
	ErrFlushTimeout = errors.New("flush timed out")
)

// Store is the append-only persistence contract used by the hub.
// Implementations must be safe for concurrent use.
type Store interface {
	// AppendSensorReadings persists a batch of validated sensor readings.
	AppendSensorReadings(ctx context.Context, readings []types.SensorReading) error

	// AppendBehaviorEntry persists a single behavior transition.
	AppendBehaviorEntry(ctx context.Context, entry types.BehaviorLogEntry) error

	// Close releases any resources held by the store.
	Close() error
}
