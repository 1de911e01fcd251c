package detector

import (
	"errors"
	"time"

	"gocv.io/x/gocv"
)

// Detector is the signal source: it turns one video frame into the optional
// hand, pose, face, eye and expression sub-signals for that frame.
type Detector interface {
	// Detect analyzes a video frame. Sub-signals that were not found are left
	// empty; that is not an error.
	Detect(frame *gocv.Mat) (FrameSignal, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the detector service.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter; empty means a venv python or python3 on PATH.
	Python string

	// Script is the path of the MediaPipe service; empty means search the usual places.
	Script string

	// IdleTimeout stops the service after this long without frames.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}

// Validate reports configuration values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxHands <= 0 {
		errs = append(errs, errors.New("detector: max_hands must be positive"))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, errors.New("detector: min_confidence must be in [0,1]"))
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		errs = append(errs, errors.New("detector: min_tracking_confidence must be in [0,1]"))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, errors.New("detector: idle_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Bool returns a pointer to b, for filling FrameSignal.EyeOpen.
func Bool(b bool) *bool {
	return &b
}
