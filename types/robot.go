package types

import (
	"fmt"

	"github.com/truongquangDat1103/robot-homeguard/errors"
)

// BehaviorState represents the discrete behavior state of a robot.
type BehaviorState string

// Robot behavior states
const (
	StateIdle        BehaviorState = "idle"
	StateListening   BehaviorState = "listening"
	StateProcessing  BehaviorState = "processing"
	StateSpeaking    BehaviorState = "speaking"
	StateThinking    BehaviorState = "thinking"
	StateMoving      BehaviorState = "moving"
	StateInteracting BehaviorState = "interacting"
	StateAlert       BehaviorState = "alert"
	StateError       BehaviorState = "error"
)

// Validate ensures the behavior state is one of the enumerated states
func (s BehaviorState) Validate() error {
	switch s {
	case StateIdle, StateListening, StateProcessing, StateSpeaking, StateThinking,
		StateMoving, StateInteracting, StateAlert, StateError:
		return nil
	default:
		return errors.WrapInvalid(errors.ErrValidation, "BehaviorState", "Validate",
			fmt.Sprintf("unknown behavior state %q", string(s)))
	}
}

// Emotion represents the emotional state a robot reports with its snapshot.
type Emotion string

// Robot emotions
const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionExcited   Emotion = "excited"
	EmotionCurious   Emotion = "curious"
	EmotionConfused  Emotion = "confused"
	EmotionSurprised Emotion = "surprised"
	EmotionAngry     Emotion = "angry"
	EmotionAfraid    Emotion = "afraid"
)

// RobotStateSnapshot is a full point-in-time state report from a device.
// The latest snapshot per device is cached with a short TTL; the previous
// value is read once per update to compute a transition diff.
type RobotStateSnapshot struct {
	DeviceID   string        `json:"device_id"`
	State      BehaviorState `json:"state"`
	Emotion    Emotion       `json:"emotion,omitempty"`
	Battery    float64       `json:"battery"` // percent 0-100
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Heading    float64       `json:"heading"`     // degrees
	CapturedAt int64         `json:"captured_at"` // Unix milliseconds
}

// BehaviorLogEntry is the durable, append-only record of a single state
// transition. Exactly one entry exists per detected transition; updates that
// do not change the state never produce an entry.
type BehaviorLogEntry struct {
	DeviceID   string        `json:"device_id"`
	FromState  BehaviorState `json:"from_state,omitempty"` // empty when no prior state existed
	ToState    BehaviorState `json:"to_state"`
	Emotion    Emotion       `json:"emotion,omitempty"`
	Battery    float64       `json:"battery"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	CapturedAt int64         `json:"captured_at"`
}
