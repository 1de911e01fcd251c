// Package gesture classifies hand and body pose landmarks into gesture candidates.
package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/event"
)

// Classifier maps one frame's hand and pose landmarks to a gesture candidate.
// It keeps a short wrist history per arm for wave detection and must only
// be used from the frame loop.
type Classifier struct {
	cfg  Config
	pose *poseTracker
}

// NewClassifier creates a Classifier after validating cfg.
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg, pose: newPoseTracker(cfg)}, nil
}

// Classify returns the frame's gesture candidate, if any. Hand patterns take
// priority over pose gestures when both are present.
func (c *Classifier) Classify(sig detector.FrameSignal) (event.Candidate, bool) {
	// The pose history must advance every frame, even when a hand wins.
	pm, poseOK := c.pose.observe(sig.Pose)
	if poseOK && pm.Confidence < c.floor(pm.Label) {
		poseOK = false
	}

	if cand, ok := c.classifyHands(sig); ok {
		return cand, true
	}
	if !poseOK {
		return event.Candidate{}, false
	}

	return event.Candidate{
		Channel:       event.Gesture,
		Label:         pm.Label,
		RawConfidence: pm.Confidence,
		FrameIndex:    sig.Index,
		Detail: map[string]any{
			"source": "pose",
			"side":   pm.Side,
			"height": pm.Height,
		},
	}, true
}

// Reset clears the wave history.
func (c *Classifier) Reset() {
	c.pose.reset()
}

func (c *Classifier) classifyHands(sig detector.FrameSignal) (event.Candidate, bool) {
	var best handMatch
	var bestHand *detector.HandLandmarks
	for i := range sig.Hands {
		hand := &sig.Hands[i]
		if hand.Score < c.cfg.LandmarkFloor {
			continue
		}
		m, ok := c.cfg.matchHand(hand)
		if !ok || m.Confidence < c.floor(m.Label) {
			continue
		}
		if bestHand == nil || m.Confidence > best.Confidence {
			best, bestHand = m, hand
		}
	}
	if bestHand == nil {
		return event.Candidate{}, false
	}

	return event.Candidate{
		Channel:       event.Gesture,
		Label:         best.Label,
		RawConfidence: best.Confidence,
		FrameIndex:    sig.Index,
		Detail: map[string]any{
			"source":      "hand",
			"handedness":  bestHand.Handedness,
			"match_score": best.Score,
			"runner_up":   best.RunnerUp,
		},
	}, true
}

func (c *Classifier) floor(label string) float64 {
	return c.cfg.LabelFloors[label]
}
