// Package dispatch fuses the confirmed events of one frame, gates them by
// cooldown and invokes the registered callbacks.
package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/event"
)

// Payload is passed to callbacks alongside the label.
type Payload struct {
	Channel    event.Channel
	Confidence float64
	Timestamp  time.Time
	FrameIndex int64
	Detail     map[string]any
}

// Callback handles one dispatched event. A returned error or a panic is
// logged and does not affect other callbacks.
type Callback func(label string, p Payload) error

// ChannelConfig is the cooldown policy of one channel.
type ChannelConfig struct {
	Cooldown time.Duration
	Scope    Scope
}

// Config configures a Dispatcher.
type Config struct {
	Channels map[event.Channel]ChannelConfig

	// Recorder receives one entry per dispatched event. Optional.
	Recorder Recorder

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Now defaults to time.Now, which carries a monotonic reading.
	Now func() time.Time
}

// DefaultChannels returns the default cooldowns: blink shortest, expression longest.
func DefaultChannels() map[event.Channel]ChannelConfig {
	return map[event.Channel]ChannelConfig{
		event.Blink:      {Cooldown: 2 * time.Second, Scope: ScopeLabel},
		event.Gesture:    {Cooldown: 3 * time.Second, Scope: ScopeLabel},
		event.Expression: {Cooldown: 5 * time.Second, Scope: ScopeLabel},
	}
}

// Validate checks that every channel has a non-negative cooldown.
func (c Config) Validate() error {
	var errs []error
	for ch := event.Channel(0); ch < event.NumChannels; ch++ {
		cc, ok := c.Channels[ch]
		if !ok {
			errs = append(errs, fmt.Errorf("dispatch: no cooldown for %s", ch))
			continue
		}
		if cc.Cooldown < 0 {
			errs = append(errs, fmt.Errorf("dispatch: %s cooldown must not be negative", ch))
		}
	}
	return errors.Join(errs...)
}

// Outcome reports what happened to one confirmed event.
type Outcome struct {
	Event      event.Confirmed
	Dispatched bool
	// Remaining is the cooldown left when the event was suppressed.
	Remaining time.Duration
	// Failed counts callbacks that returned an error or panicked.
	Failed int
}

// Dispatcher is owned by the frame loop. Callbacks must be registered
// before the loop starts.
type Dispatcher struct {
	channels  map[event.Channel]ChannelConfig
	ledger    *Ledger
	callbacks map[event.Channel][]Callback
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Dispatcher after validating cfg.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dispatcher{
		channels:  cfg.Channels,
		ledger:    NewLedger(),
		callbacks: make(map[event.Channel][]Callback),
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Register appends cb to ch's callbacks. Callbacks run in registration order.
func (d *Dispatcher) Register(ch event.Channel, cb Callback) {
	d.callbacks[ch] = append(d.callbacks[ch], cb)
}

// Dispatch handles the events confirmed in one frame, in priority order
// blink, gesture, expression. Each event whose key is outside its cooldown
// is recorded and passed to the channel's callbacks; the rest are logged as
// suppressed.
func (d *Dispatcher) Dispatch(events []event.Confirmed) []Outcome {
	if len(events) == 0 {
		return nil
	}

	ordered := append([]event.Confirmed(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Channel.Priority() > ordered[j].Channel.Priority()
	})

	outcomes := make([]Outcome, 0, len(ordered))
	for _, ev := range ordered {
		outcomes = append(outcomes, d.dispatchOne(ev))
	}
	return outcomes
}

func (d *Dispatcher) dispatchOne(ev event.Confirmed) Outcome {
	cc := d.channels[ev.Channel]
	key := Key{Channel: ev.Channel, Label: ev.Label}
	if cc.Scope == ScopeChannel {
		key.Label = ""
	}

	now := d.now()
	if rem := d.ledger.Remaining(key, now, cc.Cooldown); rem > 0 {
		d.logger.Info("detected but suppressed",
			zap.Stringer("channel", ev.Channel),
			zap.String("label", ev.Label),
			zap.Float64("confidence", ev.Confidence),
			zap.Duration("cooldown_remaining", rem),
		)
		return Outcome{Event: ev, Remaining: rem}
	}
	d.ledger.Record(key, now)

	if d.recorder != nil {
		entry := Entry{
			Timestamp:  now,
			Channel:    ev.Channel,
			Label:      ev.Label,
			Confidence: ev.Confidence,
			FrameIndex: ev.FrameIndex,
		}
		if err := d.recorder.Record(entry); err != nil {
			d.logger.Error("record history", zap.Error(err), zap.String("label", ev.Label))
		}
	}

	d.logger.Info("dispatch",
		zap.Stringer("channel", ev.Channel),
		zap.String("label", ev.Label),
		zap.Float64("confidence", ev.Confidence),
	)

	payload := Payload{
		Channel:    ev.Channel,
		Confidence: ev.Confidence,
		Timestamp:  ev.Timestamp,
		FrameIndex: ev.FrameIndex,
		Detail:     ev.Detail,
	}
	out := Outcome{Event: ev, Dispatched: true}
	for i, cb := range d.callbacks[ev.Channel] {
		if err := d.invoke(cb, ev.Label, payload); err != nil {
			out.Failed++
			d.logger.Error("callback failed",
				zap.Stringer("channel", ev.Channel),
				zap.String("label", ev.Label),
				zap.Int("callback", i),
				zap.Error(err),
			)
		}
	}
	return out
}

// invoke runs one callback, converting a panic into an error.
func (d *Dispatcher) invoke(cb Callback, label string, p Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return cb(label, p)
}
