package dispatch

import (
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/event"
)

// Scope selects what a cooldown is keyed on.
type Scope int

const (
	// ScopeLabel keys cooldowns on (channel, label).
	ScopeLabel Scope = iota
	// ScopeChannel shares one cooldown across every label of a channel.
	ScopeChannel
)

// ParseScope converts "label" or "channel" to a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "label":
		return ScopeLabel, nil
	case "channel":
		return ScopeChannel, nil
	}
	return 0, fmt.Errorf("unknown cooldown scope %q", s)
}

func (s Scope) String() string {
	if s == ScopeChannel {
		return "channel"
	}
	return "label"
}

// Key identifies a cooldown ledger entry. Label is empty for channel scope.
type Key struct {
	Channel event.Channel
	Label   string
}

func (k Key) String() string {
	if k.Label == "" {
		return k.Channel.String()
	}
	return k.Channel.String() + "/" + k.Label
}

// Ledger records the time of the last dispatch per key. Entries are never
// removed; their count is bounded by the number of distinct keys.
type Ledger struct {
	last map[Key]time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{last: make(map[Key]time.Time)}
}

// Remaining returns how much of the cooldown is left for k at now; zero
// means a dispatch is allowed.
func (l *Ledger) Remaining(k Key, now time.Time, cooldown time.Duration) time.Duration {
	last, ok := l.last[k]
	if !ok {
		return 0
	}
	if elapsed := now.Sub(last); elapsed < cooldown {
		return cooldown - elapsed
	}
	return 0
}

// Record marks k as dispatched at now.
func (l *Ledger) Record(k Key, now time.Time) {
	l.last[k] = now
}
