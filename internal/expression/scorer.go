// Package expression scores facial feature measurements into an expression candidate.
package expression

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/event"
)

// Ramp maps a measurement linearly onto [0,1] between Low and High.
type Ramp struct {
	Low  float64
	High float64
}

// Up is 0 at or below Low and 1 at or above High.
func (r Ramp) Up(x float64) float64 {
	return event.Clamp01((x - r.Low) / (r.High - r.Low))
}

// Down is 1 at or below Low and 0 at or above High.
func (r Ramp) Down(x float64) float64 {
	return event.Clamp01((r.High - x) / (r.High - r.Low))
}

func (r Ramp) validate(name string) error {
	if r.High <= r.Low {
		return fmt.Errorf("expression: %s ramp high must exceed low", name)
	}
	return nil
}

// Config holds the per-label scoring thresholds.
type Config struct {
	HappyMouth     Ramp // mouth width/height; wide and flat reads as a smile
	SadMouth       Ramp // narrow closed mouth
	SadEyes        Ramp // drooping eyes
	AngryBrow      Ramp // brows pulled down toward the eyes
	SurprisedEyes  Ramp // wide open eyes
	SurprisedBrow  Ramp // raised brows
	SurprisedEyeWt float64

	// Floor is the score the best non-neutral label must reach; below it the
	// face reads as neutral with NeutralBaseline confidence.
	Floor           float64
	NeutralBaseline float64
	NeutralWeight   float64

	// FacePresence is the minimum confidence reported whenever a face is visible.
	FacePresence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		HappyMouth:      Ramp{Low: 2.0, High: 4.0},
		SadMouth:        Ramp{Low: 1.2, High: 2.0},
		SadEyes:         Ramp{Low: 0.03, High: 0.06},
		AngryBrow:       Ramp{Low: 0.06, High: 0.10},
		SurprisedEyes:   Ramp{Low: 0.08, High: 0.14},
		SurprisedBrow:   Ramp{Low: 0.12, High: 0.18},
		SurprisedEyeWt:  0.7,
		Floor:           0.5,
		NeutralBaseline: 0.6,
		NeutralWeight:   0.6,
		FacePresence:    0.4,
	}
}

// Validate checks ramp ordering and that weights are probabilities.
func (c Config) Validate() error {
	errs := []error{
		c.HappyMouth.validate("happy_mouth"),
		c.SadMouth.validate("sad_mouth"),
		c.SadEyes.validate("sad_eyes"),
		c.AngryBrow.validate("angry_brow"),
		c.SurprisedEyes.validate("surprised_eyes"),
		c.SurprisedBrow.validate("surprised_brow"),
	}
	for name, v := range map[string]float64{
		"surprised_eye_weight": c.SurprisedEyeWt,
		"floor":                c.Floor,
		"neutral_baseline":     c.NeutralBaseline,
		"neutral_weight":       c.NeutralWeight,
		"face_presence":        c.FacePresence,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("expression: %s must be in [0,1]", name))
		}
	}
	return errors.Join(errs...)
}

// Scores holds one independent score per expression label.
type Scores map[string]float64

// Scorer turns facial features into an expression candidate. It is stateless.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer after validating cfg.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score evaluates every label's rule against f.
func (s *Scorer) Score(f detector.ExpressionFeatures) Scores {
	c := s.cfg
	scores := Scores{
		event.Happy: c.HappyMouth.Up(f.MouthRatio),
		event.Sad:   c.SadMouth.Down(f.MouthRatio) * c.SadEyes.Down(f.EyeOpening),
		event.Angry: c.AngryBrow.Down(f.EyebrowHeight),
		event.Surprised: c.SurprisedEyeWt*c.SurprisedEyes.Up(f.EyeOpening) +
			(1-c.SurprisedEyeWt)*c.SurprisedBrow.Up(f.EyebrowHeight),
	}
	scores[event.Neutral] = c.NeutralWeight * (1 - maxScore(scores))
	return scores
}

// order fixes tie-breaking between equal scores.
var order = []string{event.Happy, event.Surprised, event.Angry, event.Sad, event.Neutral}

// Classify returns the frame's expression candidate. A missing or zero-area
// face box yields no candidate; a face without features reads as neutral at
// the face presence confidence.
func (s *Scorer) Classify(sig detector.FrameSignal) (event.Candidate, bool) {
	if !sig.Face.Valid() {
		return event.Candidate{}, false
	}
	if sig.Expression == nil {
		return event.Candidate{
			Channel:       event.Expression,
			Label:         event.Neutral,
			RawConfidence: s.cfg.FacePresence,
			FrameIndex:    sig.Index,
			Detail:        map[string]any{"face_score": sig.Face.Score},
		}, true
	}

	scores := s.Score(*sig.Expression)

	label, conf := "", -1.0
	for _, l := range order {
		if scores[l] > conf {
			label, conf = l, scores[l]
		}
	}
	if conf < s.cfg.Floor {
		label, conf = event.Neutral, s.cfg.NeutralBaseline
	}

	if conf < s.cfg.FacePresence {
		conf = s.cfg.FacePresence
	}

	return event.Candidate{
		Channel:       event.Expression,
		Label:         label,
		RawConfidence: event.Clamp01(conf),
		FrameIndex:    sig.Index,
		Detail: map[string]any{
			"scores":     map[string]float64(scores),
			"face_score": sig.Face.Score,
		},
	}, true
}

func maxScore(s Scores) float64 {
	var m float64
	for _, v := range s {
		if v > m {
			m = v
		}
	}
	return m
}
