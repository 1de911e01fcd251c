package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/store"
)

func TestAPI_BindingWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := New(Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a binding
	createBody := `{"channel": "gesture", "label": "fist", "plugin_name": "desktop", "action_name": "screenshot", "config": {"dir": "/tmp"}}`
	resp, err := client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/bindings error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID      string `json:"id"`
		Channel string `json:"channel"`
		Label   string `json:"label"`
		Enabled bool   `json:"enabled"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Channel != "gesture" || created.Label != "fist" || !created.Enabled {
		t.Errorf("unexpected created binding %+v", created)
	}

	// 2. Duplicate key is a conflict
	resp, _ = client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(createBody))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	// 3. List bindings
	resp, _ = client.Get(ts.URL + "/api/bindings")
	var listed struct {
		Bindings []struct {
			ID string `json:"id"`
		} `json:"bindings"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Bindings) != 1 || listed.Bindings[0].ID != created.ID {
		t.Errorf("listed = %+v, want the created binding", listed.Bindings)
	}

	// 4. Disable it
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/bindings/"+created.ID, strings.NewReader(`{"enabled": false}`))
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("PUT error = %v", err)
	}
	var updated struct {
		Enabled bool `json:"enabled"`
	}
	json.NewDecoder(resp.Body).Decode(&updated)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || updated.Enabled {
		t.Errorf("PUT status = %d, enabled = %v", resp.StatusCode, updated.Enabled)
	}

	b, err := s.Bindings().GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if b.Enabled {
		t.Error("binding still enabled in the store")
	}

	// 5. Delete it
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/bindings/"+created.ID, nil)
	resp, _ = client.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp, _ = client.Get(ts.URL + "/api/bindings/" + created.ID)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestAPI_History(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, label := range []string{event.ThumbsUp, event.Happy, event.ThumbsUp} {
		ch := event.Gesture
		if label == event.Happy {
			ch = event.Expression
		}
		err := s.History().Append(&store.HistoryEntry{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Channel:    ch,
			Label:      label,
			Confidence: 0.9,
			FrameIndex: int64(i + 1),
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/history?limit=2")
	if err != nil {
		t.Fatalf("GET /api/history error = %v", err)
	}
	var history struct {
		Entries []struct {
			Label      string `json:"label"`
			FrameIndex int64  `json:"frame_index"`
		} `json:"entries"`
	}
	json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()

	if len(history.Entries) != 2 || history.Entries[0].FrameIndex != 3 {
		t.Errorf("entries = %+v, want the newest two", history.Entries)
	}

	resp, _ = http.Get(ts.URL + "/api/history?limit=abc")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, _ = http.Get(ts.URL + "/api/history/stats")
	var stats struct {
		Total      int    `json:"total"`
		MostCommon string `json:"most_common"`
	}
	json.NewDecoder(resp.Body).Decode(&stats)
	resp.Body.Close()
	if stats.Total != 3 || stats.MostCommon != event.ThumbsUp {
		t.Errorf("stats = %+v", stats)
	}

	resp, _ = http.Get(ts.URL + "/api/results")
	var results struct {
		Results []json.RawMessage `json:"results"`
	}
	json.NewDecoder(resp.Body).Decode(&results)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || results.Results == nil || len(results.Results) != 0 {
		t.Errorf("results status = %d, body = %+v", resp.StatusCode, results)
	}
}

func TestAPI_WebSocketStatus(t *testing.T) {
	ctl := &fakeController{enabled: true, frame: 7}
	srv := New(Config{Controller: ctl, BroadcastInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/status"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Initial status plus at least one broadcast.
	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var status struct {
			Enabled  bool `json:"enabled"`
			Snapshot struct {
				FrameIndex int64 `json:"frame_index"`
			} `json:"snapshot"`
		}
		if err := conn.ReadJSON(&status); err != nil {
			t.Fatalf("ReadJSON() %d error = %v", i, err)
		}
		if !status.Enabled || status.Snapshot.FrameIndex != 7 {
			t.Errorf("message %d = %+v", i, status)
		}
	}

	if n := srv.hub.Clients(); n != 1 {
		t.Errorf("Clients() = %d, want 1", n)
	}
}
