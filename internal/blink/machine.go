// Package blink counts deliberate eye closures into single, double and
// triple blink events.
package blink

import (
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/event"
)

// State is the machine's position between bursts.
type State int

const (
	Idle State = iota
	Counting
)

func (s State) String() string {
	if s == Counting {
		return "counting"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the blink timing parameters.
type Config struct {
	// MinClosedFrames is the shortest closure counted as a blink.
	MinClosedFrames int
	// MaxClosure is the longest closure counted as a blink; the eye must
	// reopen within it.
	MaxClosure time.Duration
	// BurstWindow is measured from the first blink of a burst.
	BurstWindow time.Duration
	// MaxBlinks caps one burst; the next closure starts a new burst.
	MaxBlinks int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinClosedFrames: 2,
		MaxClosure:      600 * time.Millisecond,
		BurstWindow:     1500 * time.Millisecond,
		MaxBlinks:       3,
	}
}

// Validate rejects timings that cannot produce a blink.
func (c Config) Validate() error {
	var errs []error
	if c.MinClosedFrames <= 0 {
		errs = append(errs, errors.New("blink: min_closed_frames must be positive"))
	}
	if c.MaxClosure <= 0 {
		errs = append(errs, errors.New("blink: max_closure must be positive"))
	}
	if c.BurstWindow <= 0 {
		errs = append(errs, errors.New("blink: burst_window must be positive"))
	}
	if c.MaxBlinks < 1 || c.MaxBlinks > len(labels) {
		errs = append(errs, errors.New("blink: max_blinks must be between 1 and 3"))
	}
	return errors.Join(errs...)
}

var labels = []string{event.SingleBlink, event.DoubleBlink, event.TripleBlink}

// Status is a copy of the machine's observable state.
type Status struct {
	State     State `json:"state"`
	Count     int   `json:"count"`
	Total     int   `json:"total"`
	EyeClosed bool  `json:"eye_closed"`
}

// Machine is the blink finite-state machine. The burst timeout is resolved
// against frame timestamps, so a stalled driver resolves it on the next
// frame. It must only be used from the frame loop.
type Machine struct {
	cfg Config

	closed       bool
	closedFrames int
	closeStart   time.Time

	count      int
	burstStart time.Time
	total      int
}

// New creates a Machine after validating cfg.
func New(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Machine{cfg: cfg}, nil
}

// Update feeds one frame. A frame without eye state only advances the clock;
// an unfinished closure is dropped since the face was lost.
func (m *Machine) Update(sig detector.FrameSignal) (event.Confirmed, bool) {
	ts := sig.Timestamp

	var out event.Confirmed
	var emitted bool

	switch {
	case sig.EyeOpen == nil:
		m.closed = false
		m.closedFrames = 0
	case !*sig.EyeOpen:
		if !m.closed {
			m.closed = true
			m.closeStart = ts
			m.closedFrames = 0
		}
		m.closedFrames++
	case m.closed:
		m.closed = false
		if m.closedFrames >= m.cfg.MinClosedFrames && ts.Sub(m.closeStart) <= m.cfg.MaxClosure {
			out, emitted = m.count1(m.closeStart, ts, sig.Index)
		}
		m.closedFrames = 0
	}

	if !emitted {
		out, emitted = m.expire(ts, sig.Index)
	}
	return out, emitted
}

// count1 registers one blink that started at at and was seen to end at ts.
func (m *Machine) count1(at, ts time.Time, idx int64) (event.Confirmed, bool) {
	m.total++

	switch {
	case m.count == 0:
		m.count, m.burstStart = 1, at
		return event.Confirmed{}, false
	case at.Sub(m.burstStart) >= m.cfg.BurstWindow, m.count >= m.cfg.MaxBlinks:
		// Close the previous burst; this blink opens the next one.
		out := m.confirm(ts, idx)
		m.count, m.burstStart = 1, at
		return out, true
	default:
		m.count++
		return event.Confirmed{}, false
	}
}

// expire emits the pending burst once its window has passed, unless a
// closure that began inside the window can still end as a blink.
func (m *Machine) expire(ts time.Time, idx int64) (event.Confirmed, bool) {
	if m.count == 0 {
		return event.Confirmed{}, false
	}
	deadline := m.burstStart.Add(m.cfg.BurstWindow)
	if ts.Before(deadline) {
		return event.Confirmed{}, false
	}
	if m.closed && m.closeStart.Before(deadline) && ts.Sub(m.closeStart) <= m.cfg.MaxClosure {
		return event.Confirmed{}, false
	}
	out := m.confirm(ts, idx)
	m.count = 0
	return out, true
}

func (m *Machine) confirm(ts time.Time, idx int64) event.Confirmed {
	return event.Confirmed{
		Channel:    event.Blink,
		Label:      labels[m.count-1],
		Confidence: 1.0,
		Timestamp:  ts,
		FrameIndex: idx,
		Detail: map[string]any{
			"count":       m.count,
			"burst_start": m.burstStart,
		},
	}
}

// Status returns a copy of the current state.
func (m *Machine) Status() Status {
	st := Idle
	if m.count > 0 {
		st = Counting
	}
	return Status{State: st, Count: m.count, Total: m.total, EyeClosed: m.closed}
}

// Reset returns to Idle and clears the total blink counter.
func (m *Machine) Reset() {
	*m = Machine{cfg: m.cfg}
}
