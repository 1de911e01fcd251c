package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/event"
)

// dontCare marks a finger a pattern does not constrain.
const dontCare = -1

// Pattern is a fixed finger-extension vector mapped to a label.
type Pattern struct {
	Label   string
	Fingers [NumFingers]int // 1 extended, 0 curled, dontCare
}

// Patterns is the ordered pattern table; earlier entries win exact ties.
var Patterns = []Pattern{
	{Label: event.OpenPalm, Fingers: [NumFingers]int{1, 1, 1, 1, 1}},
	{Label: event.ThumbsUp, Fingers: [NumFingers]int{1, 0, 0, 0, 0}},
	{Label: event.PeaceSign, Fingers: [NumFingers]int{dontCare, 1, 1, 0, 0}},
	{Label: event.Pointing, Fingers: [NumFingers]int{dontCare, 1, 0, 0, 0}},
	{Label: event.Fist, Fingers: [NumFingers]int{0, 0, 0, 0, 0}},
}

// fingerJoints lists tip and PIP for the four fingers measured against the wrist.
var fingerJoints = [NumFingers][2]int{
	{detector.ThumbTip, detector.ThumbMCP},
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// ExtensionRatios measures how far each fingertip reaches relative to its
// own joint. Curled fingers stay near or below 1.
func ExtensionRatios(hand *detector.HandLandmarks) [NumFingers]float64 {
	var ratios [NumFingers]float64
	n := hand.Normalize()
	if n == nil {
		return ratios
	}

	// Thumb extension is lateral, so measure it from the pinky knuckle.
	anchor := n.Points[detector.PinkyMCP]
	ratios[Thumb] = ratio(n.Points[detector.ThumbTip].Distance(anchor), n.Points[detector.ThumbMCP].Distance(anchor))

	wrist := n.Points[detector.Wrist]
	for f := Index; f < NumFingers; f++ {
		tip, pip := fingerJoints[f][0], fingerJoints[f][1]
		ratios[f] = ratio(n.Points[tip].Distance(wrist), n.Points[pip].Distance(wrist))
	}
	return ratios
}

func ratio(num, den float64) float64 {
	if den < 1e-9 {
		return 0
	}
	return num / den
}

// ExtensionVector turns ratios into soft extension degrees in [0,1].
func (c Config) ExtensionVector(ratios [NumFingers]float64) [NumFingers]float64 {
	var v [NumFingers]float64
	for f := range ratios {
		v[f] = event.Clamp01(0.5 + (ratios[f]-c.FingerThresholds[f])/c.Softness)
	}
	return v
}

// patternScore is 1 minus the mean absolute difference over constrained fingers.
func patternScore(p Pattern, v [NumFingers]float64) float64 {
	var diff float64
	var n int
	for f, want := range p.Fingers {
		if want == dontCare {
			continue
		}
		d := v[f] - float64(want)
		if d < 0 {
			d = -d
		}
		diff += d
		n++
	}
	if n == 0 {
		return 0
	}
	return 1 - diff/float64(n)
}

// handMatch is the outcome of matching one hand against the pattern table.
type handMatch struct {
	Label      string
	Score      float64
	RunnerUp   float64
	Confidence float64
}

// matchHand scores every pattern and derives confidence from the winner's
// score and its margin over the runner-up.
func (c Config) matchHand(hand *detector.HandLandmarks) (handMatch, bool) {
	return c.matchVector(c.ExtensionVector(ExtensionRatios(hand)))
}

func (c Config) matchVector(v [NumFingers]float64) (handMatch, bool) {
	best, second := -1.0, -1.0
	var label string
	for _, p := range Patterns {
		s := patternScore(p, v)
		switch {
		case s > best:
			second = best
			best, label = s, p.Label
		case s > second:
			second = s
		}
	}
	if label == "" || best < c.MatchThreshold {
		return handMatch{}, false
	}

	margin := best - second
	conf := best * event.Clamp01(margin/c.MarginSaturation)
	return handMatch{Label: label, Score: best, RunnerUp: second, Confidence: conf}, true
}
