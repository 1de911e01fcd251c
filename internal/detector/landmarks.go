// Package detector provides the signal source interfaces and per-frame
// landmark types consumed by the classifiers.
package detector

import (
	"math"
	"time"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Pose landmark indices used by the body classifier (MediaPipe Pose numbering).
const (
	PoseNose          = 0
	PoseLeftShoulder  = 11
	PoseRightShoulder = 12
	PoseLeftElbow     = 13
	PoseRightElbow    = 14
	PoseLeftWrist     = 15
	PoseRightWrist    = 16
	NumPoseLandmarks  = 33
)

// Point3D represents a 3D point in space with x, y, z coordinates.
// Image coordinates are normalized to [0,1] with Y growing downwards.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point3D) Distance(q Point3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Normalize normalizes the hand landmarks relative to wrist position and hand size.
// The normalized landmarks have the wrist at origin (0,0,0) and are scaled
// so that the distance from wrist to middle finger MCP is 1.0.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := normalized.Points[MiddleMCP].Distance(Point3D{})
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}
	return normalized
}

// PosePoint is a pose landmark with the detector's visibility estimate.
type PosePoint struct {
	Point3D
	Visibility float64 `json:"visibility"`
}

// PoseLandmarks is the upper-body pose for one person.
type PoseLandmarks struct {
	Points [NumPoseLandmarks]PosePoint `json:"points"`
	Score  float64                     `json:"score"`
}

// FaceBox is the detected face region in normalized image coordinates.
type FaceBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Score  float64 `json:"score"`
}

// Valid reports whether the box has a positive area.
func (b *FaceBox) Valid() bool {
	return b != nil && b.Width > 0 && b.Height > 0
}

// ExpressionFeatures are facial measurements normalized by face height.
type ExpressionFeatures struct {
	// EyebrowHeight is the brow-to-eye vertical gap.
	EyebrowHeight float64 `json:"eyebrow_height"`
	// MouthRatio is mouth width divided by mouth height.
	MouthRatio float64 `json:"mouth_ratio"`
	// EyeOpening is the mean eye-opening area.
	EyeOpening float64 `json:"eye_opening"`
}

// FrameSignal is one processed frame's bundle of optional sub-signals.
// A nil pointer or empty slice means the sub-signal is absent for the frame.
type FrameSignal struct {
	Index      int64               `json:"index"`
	Hands      []HandLandmarks     `json:"hands,omitempty"`
	Pose       *PoseLandmarks      `json:"pose,omitempty"`
	Face       *FaceBox            `json:"face,omitempty"`
	EyeOpen    *bool               `json:"eye_open,omitempty"`
	Expression *ExpressionFeatures `json:"expression,omitempty"`

	// Timestamp is set by the frame driver, not the detector.
	Timestamp time.Time `json:"-"`
}
