// Package smoothing turns noisy per-frame candidates into edge-triggered
// confirmations with decaying confidence.
package smoothing

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/event"
)

// ChannelConfig tunes smoothing for one channel.
type ChannelConfig struct {
	// MinHoldFrames is the run length at which a label is confirmed.
	MinHoldFrames int
	// Ceiling caps the smoothed confidence.
	Ceiling float64
	// Floor ignores candidates whose raw confidence is below it.
	Floor float64
	// Decay is subtracted from the confidence on each frame without a candidate.
	Decay float64
	// HistorySize is how many recent candidate labels are retained.
	HistorySize int
}

// Validate rejects settings that would break confirmation or decay.
func (c ChannelConfig) Validate() error {
	var errs []error
	if c.MinHoldFrames <= 0 {
		errs = append(errs, errors.New("min_hold_frames must be positive"))
	}
	if c.Ceiling <= 0 || c.Ceiling > 1 {
		errs = append(errs, errors.New("ceiling must be in (0,1]"))
	}
	if c.Floor < 0 || c.Floor >= c.Ceiling {
		errs = append(errs, errors.New("floor must be in [0,ceiling)"))
	}
	if c.Decay <= 0 || c.Decay > 1 {
		errs = append(errs, errors.New("decay must be in (0,1]"))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, errors.New("history_size must be positive"))
	}
	return errors.Join(errs...)
}

// Config maps each smoothed channel to its settings.
type Config map[event.Channel]ChannelConfig

// DefaultConfig returns settings for the gesture and expression channels.
func DefaultConfig() Config {
	return Config{
		event.Gesture: {
			MinHoldFrames: 3,
			Ceiling:       0.95,
			Floor:         0.3,
			Decay:         0.1,
			HistorySize:   5,
		},
		event.Expression: {
			MinHoldFrames: 3,
			Ceiling:       0.95,
			Floor:         0.3,
			Decay:         0.05,
			HistorySize:   5,
		},
	}
}

// Validate checks every channel's settings.
func (c Config) Validate() error {
	if len(c) == 0 {
		return errors.New("smoothing: no channels configured")
	}
	var errs []error
	for ch, cc := range c {
		if !ch.Valid() {
			errs = append(errs, fmt.Errorf("smoothing: unknown channel %d", int(ch)))
			continue
		}
		if err := cc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("smoothing %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

// State is a copy of one channel's smoothing state.
type State struct {
	Label      string
	RunLength  int
	Confidence float64
	History    []string
}

// Idle reports whether the channel currently holds no label.
func (s State) Idle() bool {
	return s.Label == ""
}

type channelState struct {
	cfg        ChannelConfig
	label      string
	runLength  int
	confidence float64
	history    []string
}

func (s *channelState) remember(label string) {
	if len(s.history) == s.cfg.HistorySize {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, label)
}

func (s *channelState) reset() {
	s.label = ""
	s.runLength = 0
	s.confidence = 0
	s.history = s.history[:0]
}

// Smoother holds per-channel state. It is owned by the frame loop and is
// not safe for concurrent use.
type Smoother struct {
	channels map[event.Channel]*channelState
}

// New creates a Smoother after validating cfg.
func New(cfg Config) (*Smoother, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Smoother{channels: make(map[event.Channel]*channelState, len(cfg))}
	for ch, cc := range cfg {
		s.channels[ch] = &channelState{cfg: cc, history: make([]string, 0, cc.HistorySize)}
	}
	return s, nil
}

// Update advances ch by one frame. cand is nil when the channel produced no
// candidate this frame. A Confirmed event is returned only on the frame the
// run length first reaches MinHoldFrames.
func (s *Smoother) Update(ch event.Channel, cand *event.Candidate, ts time.Time) (event.Confirmed, bool) {
	st, ok := s.channels[ch]
	if !ok {
		return event.Confirmed{}, false
	}

	if cand == nil || cand.RawConfidence < st.cfg.Floor {
		st.decay()
		return event.Confirmed{}, false
	}

	raw := event.Clamp01(cand.RawConfidence)
	st.remember(cand.Label)

	if st.label != "" && cand.Label == st.label {
		st.runLength++
		if raw > st.confidence {
			st.confidence = raw
		}
	} else {
		st.label = cand.Label
		st.runLength = 1
		st.confidence = raw
	}
	if st.confidence > st.cfg.Ceiling {
		st.confidence = st.cfg.Ceiling
	}

	if st.runLength != st.cfg.MinHoldFrames {
		return event.Confirmed{}, false
	}
	return event.Confirmed{
		Channel:    ch,
		Label:      st.label,
		Confidence: st.confidence,
		Timestamp:  ts,
		FrameIndex: cand.FrameIndex,
		Detail:     cand.Detail,
	}, true
}

// decay lowers confidence by one step. The label clears at zero but the run
// length is left for the next candidate to restart.
func (s *channelState) decay() {
	s.confidence -= s.cfg.Decay
	if s.confidence <= 0 {
		s.confidence = 0
		s.label = ""
	}
}

// State returns a copy of ch's state.
func (s *Smoother) State(ch event.Channel) State {
	st, ok := s.channels[ch]
	if !ok {
		return State{}
	}
	return State{
		Label:      st.label,
		RunLength:  st.runLength,
		Confidence: st.confidence,
		History:    append([]string(nil), st.history...),
	}
}

// Reset clears label, run length, confidence and history for ch only.
func (s *Smoother) Reset(ch event.Channel) {
	if st, ok := s.channels[ch]; ok {
		st.reset()
	}
}
