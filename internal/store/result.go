package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/event"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ActionResult is what the executor reported for one action.
type ActionResult struct {
	ID         int64         `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Channel    event.Channel `json:"channel"`
	Label      string        `json:"label"`
	PluginName string        `json:"plugin_name"`
	ActionName string        `json:"action_name"`
	Status     string        `json:"status"`
	Detail     string        `json:"detail,omitempty"`
}

// ResultRepository stores action results.
type ResultRepository struct {
	db *sql.DB
}

// Results returns the result repository for this store.
func (s *Store) Results() *ResultRepository {
	return &ResultRepository{db: s.db}
}

// Append writes res and sets its ID.
func (r *ResultRepository) Append(res *ActionResult) error {
	result, err := r.db.Exec(
		`INSERT INTO action_results (timestamp, channel, label, plugin_name, action_name, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.Timestamp, res.Channel.String(), res.Label, res.PluginName, res.ActionName, res.Status, res.Detail,
	)
	if err != nil {
		return err
	}
	res.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit results, newest first.
func (r *ResultRepository) Recent(limit int) ([]*ActionResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, timestamp, channel, label, plugin_name, action_name, status, detail
		 FROM action_results ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*ActionResult
	for rows.Next() {
		res := &ActionResult{}
		var channel string
		if err := rows.Scan(&res.ID, &res.Timestamp, &channel, &res.Label, &res.PluginName, &res.ActionName, &res.Status, &res.Detail); err != nil {
			return nil, err
		}
		if res.Channel, err = event.ParseChannel(channel); err != nil {
			return nil, fmt.Errorf("result %d: %w", res.ID, err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
