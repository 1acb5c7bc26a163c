package hub

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/truongquangDat1103/robot-homeguard/pkg/cache"
	"github.com/truongquangDat1103/robot-homeguard/pkg/timestamp"
	"github.com/truongquangDat1103/robot-homeguard/types"
)

// Decision thresholds for inference results
const (
	unknownFaceConfidence = 0.8
	motionConfidence      = 0.7
	motionCacheTTL        = 30 * time.Minute
)

// ResultProcessor applies decision policies to inference results before
// forwarding them to operator clients. Face results can escalate into a
// command-shaped alert dispatched to the observed device's room.
type ResultProcessor struct {
	faces    cache.Cache[types.FaceResult]
	motions  cache.Cache[types.MotionResult]
	generics cache.Cache[types.GenericResult]
	counters *cache.CounterSet
	router   *Router
	logger   *slog.Logger
}

// NewResultProcessor builds the processor over its result caches
func NewResultProcessor(faces cache.Cache[types.FaceResult],
	motions cache.Cache[types.MotionResult], generics cache.Cache[types.GenericResult],
	counters *cache.CounterSet, router *Router, logger *slog.Logger) *ResultProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultProcessor{
		faces:    faces,
		motions:  motions,
		generics: generics,
		counters: counters,
		router:   router,
		logger:   logger.With("component", "hub.ResultProcessor"),
	}
}

// isUnknownFace reports whether a detection could not be identified
func isUnknownFace(d types.FaceDetection) bool {
	return d.Name == "" || d.Name == "unknown"
}

// ProcessFace partitions detections into known and unknown faces. When the
// first unknown face clears the confidence threshold the result escalates:
// it is marked action-required with an alert action, and a robot-command is
// dispatched to the device room so the robot can react on the spot. The
// result always forwards to operator clients.
func (p *ResultProcessor) ProcessFace(sender *connection, deviceID string, result types.FaceResult) types.FaceResult {
	if result.EngineID == "" && sender != nil {
		result.EngineID = sender.identity
	}
	if result.CapturedAt == 0 {
		result.CapturedAt = timestamp.Now()
	}

	result.KnownCount, result.UnknownCount = 0, 0
	firstUnknown := -1
	for i, d := range result.Detections {
		if isUnknownFace(d) {
			result.UnknownCount++
			if firstUnknown < 0 {
				firstUnknown = i
			}
		} else {
			result.KnownCount++
		}
	}

	// Escalation keys off the first unknown detection alone. A low-confidence
	// first unknown suppresses the alert even when a later unknown in the
	// same frame is confident.
	if firstUnknown >= 0 {
		if d := result.Detections[firstUnknown]; d.Confidence > unknownFaceConfidence {
			result.ActionRequired = true
			result.Action = "alert"
			result.ActionParams = map[string]any{
				"type":       "unknown_face",
				"confidence": d.Confidence,
				"bbox":       d.BBox,
			}
		}
	}

	key := fmt.Sprintf("%s/%d", result.EngineID, result.CapturedAt)
	if _, err := p.faces.Set(key, result); err != nil {
		p.logger.Warn("face result cache write failed", "key", key, "error", err)
	}
	p.counters.Increment("face_detections")

	if result.ActionRequired && deviceID != "" {
		cmd := types.Command{
			DeviceID: deviceID,
			Verb:     result.Action,
			Params:   result.ActionParams,
			IssuerID: result.EngineID,
			IssuedAt: timestamp.Now(),
		}
		p.router.Dispatch(NewEnvelope(EventRobotCommand, cmd),
			types.RoleDevice.ScopedRoom(deviceID))
	}

	p.forward(sender, EventFaceDetected, result)
	return result
}

// ProcessMotion caches confident positive detections and always forwards
func (p *ResultProcessor) ProcessMotion(sender *connection, result types.MotionResult) {
	if result.EngineID == "" && sender != nil {
		result.EngineID = sender.identity
	}
	if result.CapturedAt == 0 {
		result.CapturedAt = timestamp.Now()
	}

	if result.Detected && result.Confidence > motionConfidence {
		key := fmt.Sprintf("%s/%d", result.EngineID, result.CapturedAt)
		if _, err := p.motions.SetWithTTL(key, result, motionCacheTTL); err != nil {
			p.logger.Warn("motion result cache write failed", "key", key, "error", err)
		}
		p.counters.Increment("motion_events")
	}

	p.forward(sender, EventMotionDetected, result)
}

// ProcessGeneric caches the result under (kind, timestamp), bumps the
// per-kind counter, and forwards
func (p *ResultProcessor) ProcessGeneric(sender *connection, result types.GenericResult) {
	if result.EngineID == "" && sender != nil {
		result.EngineID = sender.identity
	}
	if result.CapturedAt == 0 {
		result.CapturedAt = timestamp.Now()
	}

	key := fmt.Sprintf("%s/%d", result.Kind, result.CapturedAt)
	if _, err := p.generics.Set(key, result); err != nil {
		p.logger.Warn("generic result cache write failed", "key", key, "error", err)
	}
	p.counters.Increment("result_" + result.Kind)

	p.forward(sender, EventAIResult, result)
}

// forward fans a result to operator clients, tagged with the engine id via
// the payload itself
func (p *ResultProcessor) forward(sender *connection, kind string, payload any) {
	rooms := p.router.Rooms(kind, types.RoleInferenceAdapter)
	p.router.DispatchExcept(NewEnvelope(kind, payload), sender, rooms...)
}

// Counters exposes the detection counter set (face_detections, motion_events,
// result_<kind>)
func (p *ResultProcessor) Counters() *cache.CounterSet {
	return p.counters
}
