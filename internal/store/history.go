package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/event"
)

// HistoryEntry is one dispatched event.
type HistoryEntry struct {
	ID         int64         `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Channel    event.Channel `json:"channel"`
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	FrameIndex int64         `json:"frame_index"`
}

// LabelStats aggregates the history of one (channel, label).
type LabelStats struct {
	Channel       event.Channel `json:"channel"`
	Label         string        `json:"label"`
	Count         int           `json:"count"`
	AvgConfidence float64       `json:"avg_confidence"`
}

// HistoryStats summarizes the whole history log.
type HistoryStats struct {
	Total      int                   `json:"total"`
	ByChannel  map[event.Channel]int `json:"by_channel"`
	Labels     []LabelStats          `json:"labels"`
	MostCommon string                `json:"most_common,omitempty"`
}

// HistoryRepository is the append-only dispatch history log.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Append writes e and sets its ID.
func (r *HistoryRepository) Append(e *HistoryEntry) error {
	result, err := r.db.Exec(
		`INSERT INTO history (timestamp, channel, label, confidence, frame_index) VALUES (?, ?, ?, ?, ?)`,
		e.Timestamp, e.Channel.String(), e.Label, e.Confidence, e.FrameIndex,
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (r *HistoryRepository) Recent(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, timestamp, channel, label, confidence, frame_index
		 FROM history ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		var channel string
		if err := rows.Scan(&e.ID, &e.Timestamp, &channel, &e.Label, &e.Confidence, &e.FrameIndex); err != nil {
			return nil, err
		}
		if e.Channel, err = event.ParseChannel(channel); err != nil {
			return nil, fmt.Errorf("history %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats aggregates counts and average confidence per label.
func (r *HistoryRepository) Stats() (*HistoryStats, error) {
	rows, err := r.db.Query(
		`SELECT channel, label, COUNT(*), AVG(confidence)
		 FROM history GROUP BY channel, label ORDER BY COUNT(*) DESC, channel, label`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &HistoryStats{ByChannel: make(map[event.Channel]int)}
	for rows.Next() {
		var ls LabelStats
		var channel string
		if err := rows.Scan(&channel, &ls.Label, &ls.Count, &ls.AvgConfidence); err != nil {
			return nil, err
		}
		if ls.Channel, err = event.ParseChannel(channel); err != nil {
			return nil, err
		}
		if stats.MostCommon == "" {
			stats.MostCommon = ls.Label
		}
		stats.Total += ls.Count
		stats.ByChannel[ls.Channel] += ls.Count
		stats.Labels = append(stats.Labels, ls)
	}
	return stats, rows.Err()
}
