package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongquangDat1103/robot-homeguard/errors"
	"github.com/truongquangDat1103/robot-homeguard/storage"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

func newTestTracker(t *testing.T) (*StateTracker, *storage.MemoryStore, *Registry) {
	t.Helper()
	reg, router := newTestRouter()
	store, writer := newTestWriter(t)
	snapshots := newTestCache[types.RobotStateSnapshot](t, 5*time.Minute)
	return NewStateTracker(snapshots, writer, router, nil), store, reg
}

func TestStateTracker_FirstUpdateIsATransition(t *testing.T) {
	tracker, store, _ := newTestTracker(t)

	entry, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, Emotion: types.EmotionNeutral,
		Battery: 80, CapturedAt: 1000,
	})
	require.NoError(t, err)
	require.NotNil(t, entry, "first snapshot counts as a transition from no prior state")
	assert.Empty(t, string(entry.FromState))
	assert.Equal(t, types.StateIdle, entry.ToState)

	flushWriter(t, store, 1, func(s *storage.MemoryStore) int {
		return len(s.BehaviorEntries())
	})
}

func TestStateTracker_NoEntryWithoutStateChange(t *testing.T) {
	tracker, store, _ := newTestTracker(t)

	_, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, Battery: 80, CapturedAt: 1000,
	})
	require.NoError(t, err)

	// Same state, different battery and position: snapshot updates, no entry
	entry, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, Battery: 75, X: 3, CapturedAt: 2000,
	})
	require.NoError(t, err)
	assert.Nil(t, entry)

	flushWriter(t, store, 1, func(s *storage.MemoryStore) int {
		return len(s.BehaviorEntries())
	})
	assert.Len(t, store.BehaviorEntries(), 1, "exactly one entry for one transition")

	snap, ok := tracker.Snapshot("robot-1")
	require.True(t, ok)
	assert.Equal(t, 75.0, snap.Battery)
}

func TestStateTracker_TransitionDiff(t *testing.T) {
	tracker, store, _ := newTestTracker(t)

	_, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, CapturedAt: 1000,
	})
	require.NoError(t, err)

	entry, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateMoving, Emotion: types.EmotionCurious,
		Battery: 70, X: 1, Y: 2, CapturedAt: 2000,
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, types.StateIdle, entry.FromState)
	assert.Equal(t, types.StateMoving, entry.ToState)
	assert.Equal(t, types.EmotionCurious, entry.Emotion)
	assert.Equal(t, 70.0, entry.Battery)

	flushWriter(t, store, 2, func(s *storage.MemoryStore) int {
		return len(s.BehaviorEntries())
	})
}

func TestStateTracker_InvalidStateRejected(t *testing.T) {
	tracker, store, _ := newTestTracker(t)

	_, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.BehaviorState("sleepwalking"), CapturedAt: 1000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Empty(t, store.BehaviorEntries())

	_, ok := tracker.Snapshot("robot-1")
	assert.False(t, ok, "invalid snapshot is not cached")
}

func TestStateTracker_SnapshotAlwaysFansOut(t *testing.T) {
	tracker, _, reg := newTestTracker(t)

	op := newTestConn(t, types.RoleOperatorClient, "a")
	_, err := reg.Register(op.connection)
	require.NoError(t, err)

	_, err = tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, CapturedAt: 1000,
	})
	require.NoError(t, err)

	// First update: robot-status plus robot-behavior
	assert.Equal(t, EventRobotStatus, recvEnvelope(t, op.connection).Type)
	env := recvEnvelope(t, op.connection)
	assert.Equal(t, EventRobotBehavior, env.Type)

	var entry types.BehaviorLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, types.StateIdle, entry.ToState)

	// Unchanged state: robot-status only
	_, err = tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, CapturedAt: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, EventRobotStatus, recvEnvelope(t, op.connection).Type)
	assertNoEnvelope(t, op.connection)
}

func TestStateTracker_ExpiredSnapshotRestartsHistory(t *testing.T) {
	reg, router := newTestRouter()
	_ = reg
	store, writer := newTestWriter(t)
	// Tiny TTL so the previous snapshot is gone by the second update
	snapshots := newTestCache[types.RobotStateSnapshot](t, 10*time.Millisecond)
	tracker := NewStateTracker(snapshots, writer, router, nil)

	_, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, CapturedAt: 1000,
	})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	entry, err := tracker.Process(nil, types.RobotStateSnapshot{
		DeviceID: "robot-1", State: types.StateIdle, CapturedAt: 2000,
	})
	require.NoError(t, err)
	require.NotNil(t, entry, "a lapsed cache entry makes the next update a fresh transition")
	assert.Empty(t, string(entry.FromState))

	flushWriter(t, store, 2, func(s *storage.MemoryStore) int {
		return len(s.BehaviorEntries())
	})
}
