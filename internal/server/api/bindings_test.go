package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// withURLParams attaches chi URL parameters to r.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type desktopOnly struct{}

func (desktopOnly) Resolve(name, action string) (*plugin.Plugin, error) {
	if name != "desktop" {
		return nil, plugin.ErrPluginNotFound
	}
	if action != "notify" {
		return nil, plugin.ErrActionUnsupported
	}
	return &plugin.Plugin{Manifest: plugin.Manifest{Name: name}}, nil
}

func createBinding(t *testing.T, h *BindingHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bindings", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

func TestBindingHandler_Create(t *testing.T) {
	s := newTestStore(t)
	h := NewBindingHandler(s.Bindings(), desktopOnly{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"channel":"blink","label":"double_blink","plugin_name":"desktop","action_name":"notify"}`, http.StatusCreated},
		{"duplicate", `{"channel":"blink","label":"double_blink","plugin_name":"desktop","action_name":"notify"}`, http.StatusConflict},
		{"same label other channel", `{"channel":"gesture","label":"double_blink","plugin_name":"desktop","action_name":"notify"}`, http.StatusCreated},
		{"invalid json", `{`, http.StatusBadRequest},
		{"unknown channel", `{"channel":"voice","label":"x","plugin_name":"desktop","action_name":"notify"}`, http.StatusBadRequest},
		{"missing label", `{"channel":"blink","plugin_name":"desktop","action_name":"notify"}`, http.StatusBadRequest},
		{"missing plugin", `{"channel":"blink","label":"single_blink","action_name":"notify"}`, http.StatusBadRequest},
		{"missing action", `{"channel":"blink","label":"single_blink","plugin_name":"desktop"}`, http.StatusBadRequest},
		{"unknown plugin", `{"channel":"blink","label":"single_blink","plugin_name":"keyboard","action_name":"notify"}`, http.StatusBadRequest},
		{"unsupported action", `{"channel":"blink","label":"single_blink","plugin_name":"desktop","action_name":"media"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := createBinding(t, h, tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}

	n, err := s.Bindings().Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestBindingHandler_CreateDisabled(t *testing.T) {
	s := newTestStore(t)
	h := NewBindingHandler(s.Bindings(), nil)

	rec := createBinding(t, h, `{"channel":"expression","label":"sad","plugin_name":"any","action_name":"thing","enabled":false}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rec.Code)
	}

	b, err := s.Bindings().GetByKey(event.Expression, event.Sad)
	if err != nil || b == nil {
		t.Fatalf("GetByKey() = %v, %v", b, err)
	}
	if b.Enabled {
		t.Error("expected binding to be disabled")
	}
}

func TestBindingHandler_GetUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	h := NewBindingHandler(s.Bindings(), desktopOnly{})

	rec := createBinding(t, h, `{"channel":"gesture","label":"fist","plugin_name":"desktop","action_name":"notify"}`)
	var created bindingResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(created.Config) != "{}" {
		t.Errorf("Config = %s, want {}", created.Config)
	}

	t.Run("get", func(t *testing.T) {
		req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": created.ID})
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "nope"})
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("update config", func(t *testing.T) {
		body := `{"config":{"message":"hello"}}`
		req := withURLParams(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(body)), map[string]string{"id": created.ID})
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		b, err := s.Bindings().GetByID(created.ID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		var cfg map[string]string
		json.Unmarshal(b.Config, &cfg)
		if cfg["message"] != "hello" {
			t.Errorf("config = %s", b.Config)
		}
	})

	t.Run("update to unsupported action", func(t *testing.T) {
		body := `{"action_name":"screenshot"}`
		req := withURLParams(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(body)), map[string]string{"id": created.ID})
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req := withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": created.ID})
		rec := httptest.NewRecorder()
		h.Delete(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}

		rec = httptest.NewRecorder()
		h.Delete(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete: expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestBindingHandler_ListEmpty(t *testing.T) {
	h := NewBindingHandler(newTestStore(t).Bindings(), nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/bindings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Body.String(); got != "{\"bindings\":[]}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
		ok    bool
	}{
		{"", 50, true},
		{"?limit=10", 10, true},
		{"?limit=0", 0, true},
		{"?limit=5000", 1000, true},
		{"?limit=-1", 0, false},
		{"?limit=x", 0, false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		got, ok := queryLimit(r, 50, 1000)
		if got != tt.want || ok != tt.ok {
			t.Errorf("queryLimit(%q) = %d, %v; want %d, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}
}
