package gesture

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/event"
)

// Finger indexes into an extension vector.
const (
	Thumb = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

// Config holds the thresholds used by the Classifier.
type Config struct {
	// LandmarkFloor drops hands whose detector score is below it.
	LandmarkFloor float64

	// FingerThresholds is the extension ratio at which each finger counts as
	// half extended. Thumb is measured against the pinky knuckle, the rest
	// against the wrist.
	FingerThresholds [NumFingers]float64

	// Softness is the width of the ramp around each finger threshold.
	Softness float64

	// MatchThreshold is the minimum pattern score a hand must reach.
	MatchThreshold float64

	// MarginSaturation is the best-vs-runner-up margin that yields full confidence.
	MarginSaturation float64

	// LabelFloors is the minimum confidence per label; candidates below are dropped.
	LabelFloors map[string]float64

	// PoseVisibilityFloor drops pose points the detector could not see.
	PoseVisibilityFloor float64

	// RaiseThreshold is how far, in shoulder widths, a wrist must be above
	// its shoulder to count as raised.
	RaiseThreshold float64

	// WaveWindow is the number of raised-wrist positions kept per arm.
	WaveWindow int

	// WaveMinSamples is the number of positions needed before a wave can be reported.
	WaveMinSamples int

	// WaveMinReversals is the number of horizontal direction changes a wave needs.
	WaveMinReversals int

	// WaveMinStdDev is the minimum spread of wrist x, in shoulder widths.
	WaveMinStdDev float64

	// WaveJitter ignores horizontal moves smaller than this when counting reversals.
	WaveJitter float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		LandmarkFloor:    0.5,
		FingerThresholds: [NumFingers]float64{1.2, 1.35, 1.35, 1.35, 1.35},
		Softness:         0.4,
		MatchThreshold:   0.75,
		MarginSaturation: 0.2,
		LabelFloors: map[string]float64{
			event.ThumbsUp:  0.75,
			event.PeaceSign: 0.80,
			event.OpenPalm:  0.70,
			event.Pointing:  0.65,
			event.Fist:      0.70,
			event.RaiseHand: 0.65,
			event.Wave:      0.70,
		},
		PoseVisibilityFloor: 0.5,
		RaiseThreshold:      0.2,
		WaveWindow:          10,
		WaveMinSamples:      4,
		WaveMinReversals:    2,
		WaveMinStdDev:       0.1,
		WaveJitter:          0.02,
	}
}

// Validate reports thresholds that would make classification meaningless.
func (c Config) Validate() error {
	var errs []error
	if c.LandmarkFloor < 0 || c.LandmarkFloor > 1 {
		errs = append(errs, errors.New("gesture: landmark_floor must be in [0,1]"))
	}
	for i, th := range c.FingerThresholds {
		if th <= 0 {
			errs = append(errs, fmt.Errorf("gesture: finger threshold %d must be positive", i))
		}
	}
	if c.Softness <= 0 {
		errs = append(errs, errors.New("gesture: softness must be positive"))
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		errs = append(errs, errors.New("gesture: match_threshold must be in (0,1]"))
	}
	if c.MarginSaturation <= 0 {
		errs = append(errs, errors.New("gesture: margin_saturation must be positive"))
	}
	for label, floor := range c.LabelFloors {
		if floor < 0 || floor > 1 {
			errs = append(errs, fmt.Errorf("gesture: floor for %s must be in [0,1]", label))
		}
	}
	if c.RaiseThreshold <= 0 {
		errs = append(errs, errors.New("gesture: raise_threshold must be positive"))
	}
	if c.WaveWindow < 2 || c.WaveMinSamples < 2 || c.WaveMinSamples > c.WaveWindow {
		errs = append(errs, errors.New("gesture: wave window must hold at least wave_min_samples >= 2 positions"))
	}
	if c.WaveMinReversals < 1 {
		errs = append(errs, errors.New("gesture: wave_min_reversals must be at least 1"))
	}
	if c.WaveMinStdDev <= 0 {
		errs = append(errs, errors.New("gesture: wave_min_stddev must be positive"))
	}
	return errors.Join(errs...)
}
