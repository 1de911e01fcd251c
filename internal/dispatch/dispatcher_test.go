package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ayusman/mudra/internal/event"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDispatcher(t *testing.T, rec Recorder) (*Dispatcher, *fakeClock, *observer.ObservedLogs) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	core, logs := observer.New(zap.InfoLevel)
	d, err := New(Config{
		Channels: DefaultChannels(),
		Recorder: rec,
		Logger:   zap.New(core),
		Now:      clock.Now,
	})
	require.NoError(t, err)
	return d, clock, logs
}

func confirmed(ch event.Channel, label string) event.Confirmed {
	return event.Confirmed{Channel: ch, Label: label, Confidence: 0.9}
}

func TestDispatcher_CooldownPerKey(t *testing.T) {
	hist := NewMemoryHistory(10)
	d, clock, logs := newTestDispatcher(t, hist)

	var calls []string
	d.Register(event.Gesture, func(label string, p Payload) error {
		calls = append(calls, label)
		return nil
	})

	out := d.Dispatch([]event.Confirmed{confirmed(event.Gesture, event.ThumbsUp)})
	require.Len(t, out, 1)
	assert.True(t, out[0].Dispatched)

	clock.Advance(time.Second)
	out = d.Dispatch([]event.Confirmed{confirmed(event.Gesture, event.ThumbsUp)})
	assert.False(t, out[0].Dispatched)
	assert.Equal(t, 2*time.Second, out[0].Remaining)
	assert.Equal(t, 1, logs.FilterMessage("detected but suppressed").Len())

	// A different label has its own key.
	out = d.Dispatch([]event.Confirmed{confirmed(event.Gesture, event.Fist)})
	assert.True(t, out[0].Dispatched)

	clock.Advance(2 * time.Second)
	out = d.Dispatch([]event.Confirmed{confirmed(event.Gesture, event.ThumbsUp)})
	assert.True(t, out[0].Dispatched, "cooldown elapsed")

	assert.Equal(t, []string{event.ThumbsUp, event.Fist, event.ThumbsUp}, calls)

	entries := hist.Entries()
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
	}
	assert.Equal(t, event.ThumbsUp, entries[2].Label)
}

func TestDispatcher_ChannelScope(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	channels := DefaultChannels()
	channels[event.Expression] = ChannelConfig{Cooldown: 5 * time.Second, Scope: ScopeChannel}
	d, err := New(Config{Channels: channels, Now: clock.Now})
	require.NoError(t, err)

	first := d.Dispatch([]event.Confirmed{confirmed(event.Expression, event.Happy)})
	clock.Advance(time.Second)
	second := d.Dispatch([]event.Confirmed{confirmed(event.Expression, event.Sad)})

	assert.True(t, first[0].Dispatched)
	assert.False(t, second[0].Dispatched, "channel scope shares one cooldown")
	assert.Equal(t, 4*time.Second, second[0].Remaining)
}

func TestDispatcher_PriorityOrder(t *testing.T) {
	d, _, _ := newTestDispatcher(t, nil)

	var order []event.Channel
	for ch := event.Channel(0); ch < event.NumChannels; ch++ {
		ch := ch
		d.Register(ch, func(string, Payload) error {
			order = append(order, ch)
			return nil
		})
	}

	out := d.Dispatch([]event.Confirmed{
		confirmed(event.Expression, event.Happy),
		confirmed(event.Gesture, event.Wave),
		confirmed(event.Blink, event.DoubleBlink),
	})

	assert.Equal(t, []event.Channel{event.Blink, event.Gesture, event.Expression}, order)
	require.Len(t, out, 3)
	assert.Equal(t, event.Blink, out[0].Event.Channel)
}

func TestDispatcher_CallbackIsolation(t *testing.T) {
	d, clock, logs := newTestDispatcher(t, nil)

	var reached []int
	d.Register(event.Blink, func(string, Payload) error {
		reached = append(reached, 1)
		panic("boom")
	})
	d.Register(event.Blink, func(string, Payload) error {
		reached = append(reached, 2)
		return errors.New("action unavailable")
	})
	d.Register(event.Blink, func(label string, p Payload) error {
		reached = append(reached, 3)
		assert.Equal(t, event.SingleBlink, label)
		assert.Equal(t, 1.0, p.Confidence)
		return nil
	})

	ev := event.Confirmed{Channel: event.Blink, Label: event.SingleBlink, Confidence: 1.0}
	out := d.Dispatch([]event.Confirmed{ev})

	assert.Equal(t, []int{1, 2, 3}, reached)
	assert.True(t, out[0].Dispatched)
	assert.Equal(t, 2, out[0].Failed)
	assert.Equal(t, 2, logs.FilterMessage("callback failed").Len())

	clock.Advance(time.Minute)
	out = d.Dispatch([]event.Confirmed{ev})
	assert.True(t, out[0].Dispatched, "failures do not block future events")
}

func TestDispatcher_RecorderErrorDoesNotBlock(t *testing.T) {
	d, _, logs := newTestDispatcher(t, failingRecorder{})
	called := false
	d.Register(event.Gesture, func(string, Payload) error {
		called = true
		return nil
	})

	out := d.Dispatch([]event.Confirmed{confirmed(event.Gesture, event.Fist)})

	assert.True(t, out[0].Dispatched)
	assert.True(t, called)
	assert.Equal(t, 1, logs.FilterMessage("record history").Len())
}

func TestDispatcher_Empty(t *testing.T) {
	d, _, _ := newTestDispatcher(t, nil)
	assert.Nil(t, d.Dispatch(nil))
}

func TestConfig_Validate(t *testing.T) {
	_, err := New(Config{Channels: map[event.Channel]ChannelConfig{
		event.Gesture: {Cooldown: -time.Second},
	}})
	assert.Error(t, err)
}

func TestMemoryHistory_Ring(t *testing.T) {
	h := NewMemoryHistory(2)
	for _, l := range []string{"a", "b", "c"} {
		require.NoError(t, h.Record(Entry{Label: l}))
	}

	entries := h.Entries()

	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Label)
	assert.Equal(t, "c", entries[1].Label)
}

func TestTee(t *testing.T) {
	a, b := NewMemoryHistory(4), NewMemoryHistory(4)
	rec := Tee(a, nil, failingRecorder{}, b)

	err := rec.Record(Entry{Label: "x"})

	assert.Error(t, err)
	assert.Len(t, a.Entries(), 1)
	assert.Len(t, b.Entries(), 1)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("channel")
	require.NoError(t, err)
	assert.Equal(t, ScopeChannel, s)

	s, err = ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeLabel, s)

	_, err = ParseScope("global")
	assert.Error(t, err)
}

type failingRecorder struct{}

func (failingRecorder) Record(Entry) error { return errors.New("disk full") }
