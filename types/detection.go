package types

// DetectionKind identifies the inference pipeline that produced a result.
type DetectionKind string

// Detection kinds reported by inference adapters
const (
	DetectionFace    DetectionKind = "face"
	DetectionMotion  DetectionKind = "motion"
	DetectionGeneric DetectionKind = "generic"
)

// FaceDetection is one face found in a frame by an inference adapter.
// Name is empty or "unknown" for faces the recognizer could not identify.
type FaceDetection struct {
	FaceID     string    `json:"face_id,omitempty"`
	Name       string    `json:"name,omitempty"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"` // [x, y, w, h]
}

// FaceResult is the processed outcome of a batch of face detections.
type FaceResult struct {
	EngineID       string          `json:"engine_id"`
	KnownCount     int             `json:"known_count"`
	UnknownCount   int             `json:"unknown_count"`
	Detections     []FaceDetection `json:"detections,omitempty"`
	ActionRequired bool            `json:"action_required"`
	Action         string          `json:"action,omitempty"`
	ActionParams   map[string]any  `json:"action_params,omitempty"`
	CapturedAt     int64           `json:"captured_at"`
}

// MotionResult is a motion detection report, passed through to operator
// clients regardless of the caching threshold.
type MotionResult struct {
	EngineID   string   `json:"engine_id"`
	Detected   bool     `json:"detected"`
	Confidence float64  `json:"confidence"`
	Regions    []Region `json:"regions,omitempty"`
	CapturedAt int64    `json:"captured_at"`
}

// Region is a rectangular image region flagged by a detector.
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// GenericResult is a detection result from any other inference pipeline
// (object detection, pose estimation, sound classification, ...).
type GenericResult struct {
	EngineID   string         `json:"engine_id"`
	Kind       string         `json:"kind"`
	Result     map[string]any `json:"result,omitempty"`
	Confidence float64        `json:"confidence"`
	CapturedAt int64          `json:"captured_at"`
}
