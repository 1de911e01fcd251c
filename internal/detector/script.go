package detector

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// handPresets names the fixture hands a script may refer to.
var handPresets = map[string]func() HandLandmarks{
	"thumbs_up":  ThumbsUpLandmarks,
	"open_palm":  OpenPalmLandmarks,
	"peace_sign": PeaceSignLandmarks,
	"pointing":   PointingLandmarks,
	"fist":       FistLandmarks,
}

// ScriptStep holds one signal for Frames consecutive frames.
type ScriptStep struct {
	Frames int `json:"frames"`

	// Hand is a preset name such as "open_palm".
	Hand string `json:"hand,omitempty"`

	// Pose is "resting" or "raised"; PoseDX shifts a raised wrist sideways.
	Pose   string  `json:"pose,omitempty"`
	PoseDX float64 `json:"pose_dx,omitempty"`

	Face       *FaceBox            `json:"face,omitempty"`
	EyeOpen    *bool               `json:"eye_open,omitempty"`
	Expression *ExpressionFeatures `json:"expression,omitempty"`
}

func (s ScriptStep) signal() (FrameSignal, error) {
	var sig FrameSignal
	if s.Hand != "" {
		preset, ok := handPresets[s.Hand]
		if !ok {
			return sig, fmt.Errorf("unknown hand preset %q", s.Hand)
		}
		sig.Hands = []HandLandmarks{preset()}
	}
	switch s.Pose {
	case "":
	case "resting":
		pose := RestingPose()
		sig.Pose = &pose
	case "raised":
		pose := RaisedHandPose(s.PoseDX)
		sig.Pose = &pose
	default:
		return sig, fmt.Errorf("unknown pose %q", s.Pose)
	}
	sig.Face = s.Face
	sig.EyeOpen = s.EyeOpen
	sig.Expression = s.Expression
	return sig, nil
}

// LoadScript decodes a JSON array of ScriptSteps and expands it into one
// signal per frame.
func LoadScript(r io.Reader) ([]FrameSignal, error) {
	var steps []ScriptStep
	if err := json.NewDecoder(r).Decode(&steps); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	var signals []FrameSignal
	for i, step := range steps {
		if step.Frames <= 0 {
			return nil, fmt.Errorf("step %d: frames must be positive", i)
		}
		sig, err := step.signal()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		for range step.Frames {
			signals = append(signals, sig)
		}
	}
	return signals, nil
}

// ScriptedDetector replays a fixed sequence of signals, one per Detect call.
// Once the script is exhausted it reports nothing detected.
type ScriptedDetector struct {
	mu      sync.Mutex
	signals []FrameSignal
	pos     int
}

// NewScriptedDetector creates a detector that replays signals in order.
func NewScriptedDetector(signals []FrameSignal) *ScriptedDetector {
	return &ScriptedDetector{signals: signals}
}

// Detect returns the next scripted signal.
func (d *ScriptedDetector) Detect(frame *gocv.Mat) (FrameSignal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pos >= len(d.signals) {
		return FrameSignal{}, nil
	}
	sig := d.signals[d.pos]
	d.pos++
	return sig, nil
}

// Remaining returns how many scripted signals are left.
func (d *ScriptedDetector) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.signals) - d.pos
}

// Close is a no-op.
func (d *ScriptedDetector) Close() error {
	return nil
}
