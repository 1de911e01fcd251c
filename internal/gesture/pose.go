package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/event"
)

// arm identifies one side of the body for the wave history.
type arm struct {
	name     string
	shoulder int
	elbow    int
	wrist    int
}

var arms = [2]arm{
	{name: "left", shoulder: detector.PoseLeftShoulder, elbow: detector.PoseLeftElbow, wrist: detector.PoseLeftWrist},
	{name: "right", shoulder: detector.PoseRightShoulder, elbow: detector.PoseRightElbow, wrist: detector.PoseRightWrist},
}

// positionRing is a fixed-capacity ring of horizontal wrist positions.
type positionRing struct {
	buf   []float64
	start int
	n     int
}

func newPositionRing(capacity int) *positionRing {
	return &positionRing{buf: make([]float64, capacity)}
}

func (r *positionRing) push(x float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = x
		r.n++
		return
	}
	r.buf[r.start] = x
	r.start = (r.start + 1) % len(r.buf)
}

func (r *positionRing) reset() {
	r.start, r.n = 0, 0
}

// values returns the positions oldest first.
func (r *positionRing) values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// poseMatch is a pose-derived candidate before label floors are applied.
type poseMatch struct {
	Label      string
	Side       string
	Confidence float64
	Height     float64
	Spread     float64
}

// poseTracker detects raise_hand and wave, keeping a short position history per arm.
type poseTracker struct {
	cfg     Config
	history map[string]*positionRing
}

func newPoseTracker(cfg Config) *poseTracker {
	t := &poseTracker{cfg: cfg, history: make(map[string]*positionRing, len(arms))}
	for _, a := range arms {
		t.history[a.name] = newPositionRing(cfg.WaveWindow)
	}
	return t
}

func (t *poseTracker) reset() {
	for _, r := range t.history {
		r.reset()
	}
}

// observe updates both arms and returns the strongest pose candidate.
// A missing pose clears the history so a stale wave cannot complete later.
func (t *poseTracker) observe(pose *detector.PoseLandmarks) (poseMatch, bool) {
	if pose == nil {
		t.reset()
		return poseMatch{}, false
	}

	width := math.Abs(pose.Points[detector.PoseLeftShoulder].X - pose.Points[detector.PoseRightShoulder].X)
	if width < 1e-6 {
		t.reset()
		return poseMatch{}, false
	}

	var best poseMatch
	var found bool
	for _, a := range arms {
		m, ok := t.observeArm(pose, a, width)
		if ok && (!found || m.Confidence > best.Confidence) {
			best, found = m, true
		}
	}
	return best, found
}

func (t *poseTracker) observeArm(pose *detector.PoseLandmarks, a arm, width float64) (poseMatch, bool) {
	ring := t.history[a.name]
	shoulder := pose.Points[a.shoulder]
	wrist := pose.Points[a.wrist]

	if shoulder.Visibility < t.cfg.PoseVisibilityFloor || wrist.Visibility < t.cfg.PoseVisibilityFloor {
		ring.reset()
		return poseMatch{}, false
	}

	// Image Y grows downwards, so a raised wrist has the smaller Y.
	height := (shoulder.Y - wrist.Y) / width
	if height < t.cfg.RaiseThreshold {
		ring.reset()
		return poseMatch{}, false
	}

	ring.push((wrist.X - shoulder.X) / width)

	if spread, ok := t.waving(ring.values()); ok {
		conf := 0.6 + 0.4*math.Min(1, (spread-t.cfg.WaveMinStdDev)/t.cfg.WaveMinStdDev)
		return poseMatch{Label: event.Wave, Side: a.name, Confidence: event.Clamp01(conf), Height: height, Spread: spread}, true
	}

	conf := 0.6 + 0.4*math.Min(1, (height-t.cfg.RaiseThreshold)/t.cfg.RaiseThreshold)
	return poseMatch{Label: event.RaiseHand, Side: a.name, Confidence: event.Clamp01(conf), Height: height}, true
}

// waving reports whether xs oscillates enough to be a wave, with the spread.
func (t *poseTracker) waving(xs []float64) (float64, bool) {
	if len(xs) < t.cfg.WaveMinSamples {
		return 0, false
	}

	reversals := 0
	dir := 0
	for i := 1; i < len(xs); i++ {
		d := xs[i] - xs[i-1]
		if math.Abs(d) < t.cfg.WaveJitter {
			continue
		}
		next := 1
		if d < 0 {
			next = -1
		}
		if dir != 0 && next != dir {
			reversals++
		}
		dir = next
	}
	if reversals < t.cfg.WaveMinReversals {
		return 0, false
	}

	spread := stddev(xs)
	return spread, spread >= t.cfg.WaveMinStdDev
}

func stddev(xs []float64) float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var v float64
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return math.Sqrt(v / float64(len(xs)))
}
