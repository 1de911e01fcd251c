// Package pipeline runs one frame through the classifiers, the smoother, the
// blink machine and the dispatcher, and publishes a read-only snapshot.
package pipeline

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/blink"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/expression"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/smoothing"
)

// ErrUnknownChannel is returned by RequestReset for an invalid channel.
var ErrUnknownChannel = errors.New("unknown channel")

// Config holds the settings of every stage.
type Config struct {
	Gesture    gesture.Config
	Expression expression.Config
	Blink      blink.Config
	Smoothing  smoothing.Config
	Logger     *zap.Logger
}

// DefaultConfig returns default settings for every stage.
func DefaultConfig() Config {
	return Config{
		Gesture:    gesture.DefaultConfig(),
		Expression: expression.DefaultConfig(),
		Blink:      blink.DefaultConfig(),
		Smoothing:  smoothing.DefaultConfig(),
	}
}

// LastAction is the most recent dispatched event.
type LastAction struct {
	Channel   event.Channel `json:"channel"`
	Label     string        `json:"label"`
	Timestamp time.Time     `json:"timestamp"`
}

// Snapshot is the UI view of the pipeline after a frame.
type Snapshot struct {
	CurrentGesture    string       `json:"current_gesture"`
	GestureConfidence float64      `json:"gesture_confidence"`
	CurrentEmotion    string       `json:"current_emotion"`
	EmotionConfidence float64      `json:"emotion_confidence"`
	FaceDetected      bool         `json:"face_detected"`
	Blink             blink.Status `json:"blink"`
	LastAction        *LastAction  `json:"last_action,omitempty"`
	FrameIndex        int64        `json:"frame_index"`
	Timestamp         time.Time    `json:"timestamp"`
}

// Result describes what one frame produced.
type Result struct {
	Candidates []event.Candidate
	Confirmed  []event.Confirmed
	Outcomes   []dispatch.Outcome
	// Dropped is set when the frame index did not increase.
	Dropped bool
}

// Pipeline owns all per-frame state. Process must be called from a single
// goroutine; Snapshot and RequestReset may be called from any goroutine.
type Pipeline struct {
	gestures   *gesture.Classifier
	faces      *expression.Scorer
	blinks     *blink.Machine
	smoother   *smoothing.Smoother
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger

	lastIndex  int64
	started    bool
	lastAction *LastAction

	resets atomic.Uint32
	snap   atomic.Pointer[Snapshot]
}

// New builds a Pipeline. Any invalid stage configuration is returned as an
// error and should stop startup.
func New(cfg Config, d *dispatch.Dispatcher) (*Pipeline, error) {
	if d == nil {
		return nil, errors.New("pipeline: dispatcher is required")
	}

	gc, err := gesture.NewClassifier(cfg.Gesture)
	if err != nil {
		return nil, err
	}
	ec, err := expression.NewScorer(cfg.Expression)
	if err != nil {
		return nil, err
	}
	bm, err := blink.New(cfg.Blink)
	if err != nil {
		return nil, err
	}
	for _, ch := range []event.Channel{event.Gesture, event.Expression} {
		if _, ok := cfg.Smoothing[ch]; !ok {
			return nil, fmt.Errorf("pipeline: no smoothing settings for %s", ch)
		}
	}
	sm, err := smoothing.New(cfg.Smoothing)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		gestures:   gc,
		faces:      ec,
		blinks:     bm,
		smoother:   sm,
		dispatcher: d,
		logger:     logger,
	}
	p.snap.Store(&Snapshot{})
	return p, nil
}

// Process runs one frame. Frame indexes must strictly increase; a stale
// frame is dropped without touching any state.
func (p *Pipeline) Process(sig detector.FrameSignal) Result {
	p.applyResets()

	if p.started && sig.Index <= p.lastIndex {
		p.logger.Warn("dropping out-of-order frame",
			zap.Int64("index", sig.Index),
			zap.Int64("last_index", p.lastIndex),
		)
		return Result{Dropped: true}
	}
	p.started = true
	p.lastIndex = sig.Index

	var res Result

	gc, gok := p.gestures.Classify(sig)
	if gok {
		res.Candidates = append(res.Candidates, gc)
	}
	if c, ok := p.smoother.Update(event.Gesture, candidatePtr(gc, gok), sig.Timestamp); ok {
		res.Confirmed = append(res.Confirmed, c)
	}

	ec, eok := p.faces.Classify(sig)
	if eok {
		res.Candidates = append(res.Candidates, ec)
	}
	if c, ok := p.smoother.Update(event.Expression, candidatePtr(ec, eok), sig.Timestamp); ok {
		res.Confirmed = append(res.Confirmed, c)
	}

	if c, ok := p.blinks.Update(sig); ok {
		res.Confirmed = append(res.Confirmed, c)
	}

	res.Outcomes = p.dispatcher.Dispatch(res.Confirmed)
	// Outcomes run in priority order, so the last dispatched one went out last.
	for i := len(res.Outcomes) - 1; i >= 0; i-- {
		if o := res.Outcomes[i]; o.Dispatched {
			p.lastAction = &LastAction{Channel: o.Event.Channel, Label: o.Event.Label, Timestamp: o.Event.Timestamp}
			break
		}
	}

	p.publish(sig)
	return res
}

func candidatePtr(c event.Candidate, ok bool) *event.Candidate {
	if !ok {
		return nil
	}
	return &c
}

func (p *Pipeline) publish(sig detector.FrameSignal) {
	g := p.smoother.State(event.Gesture)
	e := p.smoother.State(event.Expression)

	snap := &Snapshot{
		CurrentGesture:    g.Label,
		GestureConfidence: g.Confidence,
		CurrentEmotion:    e.Label,
		EmotionConfidence: e.Confidence,
		FaceDetected:      sig.Face.Valid(),
		Blink:             p.blinks.Status(),
		FrameIndex:        sig.Index,
		Timestamp:         sig.Timestamp,
	}
	if p.lastAction != nil {
		la := *p.lastAction
		snap.LastAction = &la
	}
	p.snap.Store(snap)
}

// Snapshot returns a copy of the state published after the last frame.
func (p *Pipeline) Snapshot() Snapshot {
	s := *p.snap.Load()
	if s.LastAction != nil {
		la := *s.LastAction
		s.LastAction = &la
	}
	return s
}

// RequestReset asks the frame loop to clear ch before the next frame. For
// the blink channel this also zeroes the blink counter.
func (p *Pipeline) RequestReset(ch event.Channel) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, int(ch))
	}
	p.resets.Or(1 << uint(ch))
	return nil
}

func (p *Pipeline) applyResets() {
	mask := p.resets.Swap(0)
	if mask == 0 {
		return
	}
	for ch := event.Channel(0); ch < event.NumChannels; ch++ {
		if mask&(1<<uint(ch)) == 0 {
			continue
		}
		switch ch {
		case event.Blink:
			p.blinks.Reset()
		case event.Gesture:
			p.smoother.Reset(ch)
			p.gestures.Reset()
		default:
			p.smoother.Reset(ch)
		}
		p.logger.Info("channel reset", zap.Stringer("channel", ch))
	}
}
