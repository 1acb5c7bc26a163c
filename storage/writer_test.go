package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongquangDat1103/robot-homeguard/types"
)

func TestMemoryStore_Append(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	readings := []types.SensorReading{
		{DeviceID: "robot-1", Kind: "temperature", Value: 22.5, Unit: "C", CapturedAt: 1000},
		{DeviceID: "robot-1", Kind: "humidity", Value: 40, Unit: "%", CapturedAt: 1000},
	}
	require.NoError(t, store.AppendSensorReadings(ctx, readings))

	entry := types.BehaviorLogEntry{DeviceID: "robot-1", ToState: "idle", CapturedAt: 1000}
	require.NoError(t, store.AppendBehaviorEntry(ctx, entry))

	assert.Len(t, store.SensorReadings(), 2)
	assert.Len(t, store.BehaviorEntries(), 1)
}

func TestMemoryStore_ClosedRejectsWrites(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	err := store.AppendSensorReadings(context.Background(), []types.SensorReading{{DeviceID: "r"}})
	assert.ErrorIs(t, err, ErrStoreClosed)

	err = store.AppendBehaviorEntry(context.Background(), types.BehaviorLogEntry{DeviceID: "r"})
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestAsyncWriter_FlushesToStore(t *testing.T) {
	store := NewMemoryStore()
	writer := NewAsyncWriter(store, 16, nil)
	writer.Start(context.Background())

	ok := writer.EnqueueSensorReadings([]types.SensorReading{
		{DeviceID: "robot-1", Kind: "temperature", Value: 21, CapturedAt: 1000},
	})
	assert.True(t, ok)

	ok = writer.EnqueueBehaviorEntry(types.BehaviorLogEntry{
		DeviceID: "robot-1", FromState: "idle", ToState: "moving", CapturedAt: 2000,
	})
	assert.True(t, ok)

	require.NoError(t, writer.Stop(time.Second))

	assert.Len(t, store.SensorReadings(), 1)
	require.Len(t, store.BehaviorEntries(), 1)
	assert.Equal(t, "moving", string(store.BehaviorEntries()[0].ToState))

	stats := writer.Stats()
	assert.Equal(t, int64(2), stats.Enqueued)
	assert.Equal(t, int64(2), stats.Written)
	assert.Equal(t, int64(0), stats.Dropped)
}

func TestAsyncWriter_DropsWhenQueueFull(t *testing.T) {
	// Writer is never started, so the queue only drains by capacity
	store := NewMemoryStore()
	writer := NewAsyncWriter(store, 2, nil)

	assert.True(t, writer.EnqueueBehaviorEntry(types.BehaviorLogEntry{DeviceID: "a"}))
	assert.True(t, writer.EnqueueBehaviorEntry(types.BehaviorLogEntry{DeviceID: "b"}))
	assert.False(t, writer.EnqueueBehaviorEntry(types.BehaviorLogEntry{DeviceID: "c"}))

	stats := writer.Stats()
	assert.Equal(t, int64(2), stats.Enqueued)
	assert.Equal(t, int64(1), stats.Dropped)
}

func TestAsyncWriter_EmptyBatchIsNoop(t *testing.T) {
	writer := NewAsyncWriter(NewMemoryStore(), 1, nil)

	assert.True(t, writer.EnqueueSensorReadings(nil))
	assert.Equal(t, int64(0), writer.Stats().Enqueued)
}

func TestAsyncWriter_StopFlushesBacklog(t *testing.T) {
	store := NewMemoryStore()
	writer := NewAsyncWriter(store, 64, nil)

	for i := 0; i < 10; i++ {
		require.True(t, writer.EnqueueBehaviorEntry(types.BehaviorLogEntry{DeviceID: "robot-1"}))
	}

	// Start after enqueueing so the backlog exists at shutdown
	writer.Start(context.Background())
	require.NoError(t, writer.Stop(time.Second))

	assert.Len(t, store.BehaviorEntries(), 10)
}

func TestAsyncWriter_ConcurrentEnqueue(t *testing.T) {
	store := NewMemoryStore()
	writer := NewAsyncWriter(store, 256, nil)
	writer.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				writer.EnqueueSensorReadings([]types.SensorReading{
					{DeviceID: "robot-1", Kind: "gas", Value: 1},
				})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, writer.Stop(time.Second))
	assert.Len(t, store.SensorReadings(), 80)
}
