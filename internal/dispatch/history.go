package dispatch

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/event"
)

// Entry is one dispatched event in the history log.
type Entry struct {
	Timestamp  time.Time     `json:"timestamp"`
	Channel    event.Channel `json:"channel"`
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	FrameIndex int64         `json:"frame_index"`
}

// Recorder appends history entries. The store's history table implements it
// through an adapter; MemoryHistory is the in-process version.
type Recorder interface {
	Record(e Entry) error
}

// MemoryHistory keeps the most recent entries in a bounded ring. It is safe
// for concurrent readers while the frame loop records.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewMemoryHistory creates a ring holding up to size entries.
func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = 1
	}
	return &MemoryHistory{entries: make([]Entry, size)}
}

// Record implements Recorder.
func (h *MemoryHistory) Record(e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

// Entries returns the retained entries oldest first.
func (h *MemoryHistory) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.full {
		return append([]Entry(nil), h.entries[:h.next]...)
	}
	out := make([]Entry, 0, len(h.entries))
	out = append(out, h.entries[h.next:]...)
	return append(out, h.entries[:h.next]...)
}

// multiRecorder fans one entry out to several recorders.
type multiRecorder []Recorder

func (m multiRecorder) Record(e Entry) error {
	var first error
	for _, r := range m {
		if err := r.Record(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Tee returns a Recorder writing to each non-nil recorder in order.
func Tee(recorders ...Recorder) Recorder {
	var m multiRecorder
	for _, r := range recorders {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}
