package action

import (
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/store"
)

// HistoryAppender is the store's history repository.
type HistoryAppender interface {
	Append(e *store.HistoryEntry) error
}

// HistoryRecorder adapts the store's history log to dispatch.Recorder.
type HistoryRecorder struct {
	History HistoryAppender
}

// Record implements dispatch.Recorder.
func (r HistoryRecorder) Record(e dispatch.Entry) error {
	return r.History.Append(&store.HistoryEntry{
		Timestamp:  e.Timestamp,
		Channel:    e.Channel,
		Label:      e.Label,
		Confidence: e.Confidence,
		FrameIndex: e.FrameIndex,
	})
}
