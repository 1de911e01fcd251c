// Package event defines the channel, candidate and confirmation types that
// flow between the classifiers, the smoother and the dispatcher.
package event

import (
	"fmt"
	"time"
)

// Channel is an independent classification stream with its own state.
type Channel int

const (
	Gesture Channel = iota
	Expression
	Blink
	NumChannels
)

var channelNames = [NumChannels]string{"gesture", "expression", "blink"}

func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	return c >= 0 && c < NumChannels
}

// Priority orders channels for dispatch within one frame. Higher goes first.
func (c Channel) Priority() int {
	switch c {
	case Blink:
		return 3
	case Gesture:
		return 2
	case Expression:
		return 1
	}
	return 0
}

// ParseChannel converts a channel name back to a Channel.
func ParseChannel(s string) (Channel, error) {
	for i, name := range channelNames {
		if name == s {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", s)
}

// MarshalText implements encoding.TextMarshaler so channels serialize by name.
func (c Channel) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown channel %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Channel) UnmarshalText(b []byte) error {
	parsed, err := ParseChannel(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Gesture labels.
const (
	ThumbsUp  = "thumbs_up"
	PeaceSign = "peace_sign"
	OpenPalm  = "open_palm"
	Pointing  = "pointing"
	Fist      = "fist"
	RaiseHand = "raise_hand"
	Wave      = "wave"
)

// Expression labels.
const (
	Happy     = "happy"
	Sad       = "sad"
	Angry     = "angry"
	Surprised = "surprised"
	Neutral   = "neutral"
)

// Blink labels.
const (
	SingleBlink = "single_blink"
	DoubleBlink = "double_blink"
	TripleBlink = "triple_blink"
)

// Candidate is a single frame's raw, unsmoothed classification guess.
type Candidate struct {
	Channel       Channel
	Label         string
	RawConfidence float64
	FrameIndex    int64

	// Detail carries channel-specific context forwarded to callbacks.
	Detail map[string]any
}

// Confirmed is a candidate that survived smoothing and may be dispatched.
type Confirmed struct {
	Channel    Channel        `json:"channel"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	FrameIndex int64          `json:"frame_index"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
