package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truongquangDat1103/robot-homeguard/pkg/cache"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

func newTestProcessor(t *testing.T) (*ResultProcessor, *Registry) {
	t.Helper()
	reg, router := newTestRouter()

	faces := newTestCache[types.FaceResult](t, time.Hour)
	motions := newTestCache[types.MotionResult](t, time.Hour)
	generics := newTestCache[types.GenericResult](t, time.Hour)
	counters, err := cache.NewCounterSet(nil, "")
	require.NoError(t, err)

	return NewResultProcessor(faces, motions, generics, counters, router, nil), reg
}

func TestResultProcessor_FacePartition(t *testing.T) {
	proc, _ := newTestProcessor(t)

	result := proc.ProcessFace(nil, "", types.FaceResult{
		EngineID: "face-engine",
		Detections: []types.FaceDetection{
			{Name: "alice", Confidence: 0.95},
			{Name: "unknown", Confidence: 0.5},
			{Name: "", Confidence: 0.4},
			{Name: "bob", Confidence: 0.9},
		},
		CapturedAt: 1000,
	})

	assert.Equal(t, 2, result.KnownCount)
	assert.Equal(t, 2, result.UnknownCount)
	assert.False(t, result.ActionRequired, "low-confidence unknowns do not escalate")
	assert.Equal(t, int64(1), proc.Counters().Value("face_detections"))
}

func TestResultProcessor_UnknownFaceEscalates(t *testing.T) {
	proc, reg := newTestProcessor(t)

	dev := newTestConn(t, types.RoleDevice, "robot-1")
	op := newTestConn(t, types.RoleOperatorClient, "a")
	_, err := reg.Register(dev.connection)
	require.NoError(t, err)
	_, err = reg.Register(op.connection)
	require.NoError(t, err)

	result := proc.ProcessFace(nil, "robot-1", types.FaceResult{
		EngineID: "face-engine",
		Detections: []types.FaceDetection{
			{Name: "unknown", Confidence: 0.92, BBox: []float64{10, 20, 30, 40}},
		},
		CapturedAt: 1000,
	})

	require.True(t, result.ActionRequired)
	assert.Equal(t, "alert", result.Action)
	assert.Equal(t, "unknown_face", result.ActionParams["type"])
	assert.Equal(t, 0.92, result.ActionParams["confidence"])

	// Device receives a command-shaped message
	env := recvEnvelope(t, dev.connection)
	assert.Equal(t, EventRobotCommand, env.Type)
	var cmd types.Command
	require.NoError(t, json.Unmarshal(env.Data, &cmd))
	assert.Equal(t, "robot-1", cmd.DeviceID)
	assert.Equal(t, "alert", cmd.Verb)
	assert.Equal(t, "face-engine", cmd.IssuerID)

	// Operators receive the processed result
	env = recvEnvelope(t, op.connection)
	assert.Equal(t, EventFaceDetected, env.Type)
	var fr types.FaceResult
	require.NoError(t, json.Unmarshal(env.Data, &fr))
	assert.Equal(t, "face-engine", fr.EngineID)
	assert.True(t, fr.ActionRequired)
}

func TestResultProcessor_EscalationKeysOffFirstUnknown(t *testing.T) {
	tests := []struct {
		name       string
		detections []types.FaceDetection
		escalates  bool
		confidence float64
	}{
		{
			name: "confident first unknown escalates",
			detections: []types.FaceDetection{
				{Name: "unknown", Confidence: 0.85, BBox: []float64{1, 2, 3, 4}},
				{Name: "unknown", Confidence: 0.99, BBox: []float64{5, 6, 7, 8}},
			},
			escalates:  true,
			confidence: 0.85,
		},
		{
			name: "hesitant first unknown suppresses later confident one",
			detections: []types.FaceDetection{
				{Name: "unknown", Confidence: 0.5},
				{Name: "unknown", Confidence: 0.9},
			},
			escalates: false,
		},
		{
			name: "known faces do not shadow the first unknown",
			detections: []types.FaceDetection{
				{Name: "alice", Confidence: 0.97},
				{Name: "unknown", Confidence: 0.95, BBox: []float64{2, 4, 6, 8}},
			},
			escalates:  true,
			confidence: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, _ := newTestProcessor(t)

			result := proc.ProcessFace(nil, "", types.FaceResult{
				EngineID:   "face-engine",
				Detections: tt.detections,
				CapturedAt: 1000,
			})

			if !tt.escalates {
				assert.False(t, result.ActionRequired)
				assert.Empty(t, result.Action)
				return
			}
			require.True(t, result.ActionRequired)
			assert.Equal(t, "alert", result.Action)
			assert.Equal(t, tt.confidence, result.ActionParams["confidence"],
				"action params come from the first unknown detection")
		})
	}
}

func TestResultProcessor_NoCommandWithoutDevice(t *testing.T) {
	proc, reg := newTestProcessor(t)

	dev := newTestConn(t, types.RoleDevice, "robot-1")
	_, err := reg.Register(dev.connection)
	require.NoError(t, err)

	result := proc.ProcessFace(nil, "", types.FaceResult{
		EngineID:   "face-engine",
		Detections: []types.FaceDetection{{Name: "", Confidence: 0.95}},
		CapturedAt: 1000,
	})

	assert.True(t, result.ActionRequired)
	assertNoEnvelope(t, dev.connection)
}

func TestResultProcessor_MotionCachingThreshold(t *testing.T) {
	tests := []struct {
		name     string
		detected bool
		conf     float64
		counted  bool
	}{
		{"confident detection counts", true, 0.8, true},
		{"at threshold does not count", true, 0.7, false},
		{"low confidence ignored", true, 0.3, false},
		{"no motion ignored", false, 0.99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc, reg := newTestProcessor(t)
			op := newTestConn(t, types.RoleOperatorClient, "a")
			_, err := reg.Register(op.connection)
			require.NoError(t, err)

			proc.ProcessMotion(nil, types.MotionResult{
				EngineID: "motion-engine", Detected: tt.detected,
				Confidence: tt.conf, CapturedAt: 1000,
			})

			want := int64(0)
			if tt.counted {
				want = 1
			}
			assert.Equal(t, want, proc.Counters().Value("motion_events"))

			// Always forwarded regardless of the caching threshold
			assert.Equal(t, EventMotionDetected, recvEnvelope(t, op.connection).Type)
		})
	}
}

func TestResultProcessor_GenericPerKindCounters(t *testing.T) {
	proc, reg := newTestProcessor(t)
	op := newTestConn(t, types.RoleOperatorClient, "a")
	_, err := reg.Register(op.connection)
	require.NoError(t, err)

	proc.ProcessGeneric(nil, types.GenericResult{
		EngineID: "pose-engine", Kind: "pose", Confidence: 0.6, CapturedAt: 1000,
	})
	proc.ProcessGeneric(nil, types.GenericResult{
		EngineID: "pose-engine", Kind: "pose", Confidence: 0.7, CapturedAt: 2000,
	})
	proc.ProcessGeneric(nil, types.GenericResult{
		EngineID: "sound-engine", Kind: "sound", Confidence: 0.9, CapturedAt: 3000,
	})

	assert.Equal(t, int64(2), proc.Counters().Value("result_pose"))
	assert.Equal(t, int64(1), proc.Counters().Value("result_sound"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, EventAIResult, recvEnvelope(t, op.connection).Type)
	}
}

func TestResultProcessor_EngineIDFromSender(t *testing.T) {
	proc, reg := newTestProcessor(t)

	adapter := newTestConn(t, types.RoleInferenceAdapter, "edge-engine")
	_, err := reg.Register(adapter.connection)
	require.NoError(t, err)

	result := proc.ProcessFace(adapter.connection, "", types.FaceResult{
		Detections: []types.FaceDetection{{Name: "alice", Confidence: 0.9}},
		CapturedAt: 1000,
	})
	assert.Equal(t, "edge-engine", result.EngineID)
}
