package api

import (
	"net/http"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/store"
)

// HistoryRepository reads the dispatch log.
type HistoryRepository interface {
	Recent(limit int) ([]*store.HistoryEntry, error)
	Stats() (*store.HistoryStats, error)
}

// ResultRepository reads action outcomes.
type ResultRepository interface {
	Recent(limit int) ([]*store.ActionResult, error)
}

// HistoryHandler serves the dispatch history and action results.
type HistoryHandler struct {
	history HistoryRepository
	results ResultRepository
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(history HistoryRepository, results ResultRepository) *HistoryHandler {
	return &HistoryHandler{history: history, results: results}
}

// Recent handles GET /api/history?limit=N, newest first.
func (h *HistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, 50, 1000)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	entries, err := h.history.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	if entries == nil {
		entries = []*store.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Stats handles GET /api/history/stats.
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Results handles GET /api/results?limit=N.
func (h *HistoryHandler) Results(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, 100, 1000)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	results, err := h.results.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read results")
		return
	}
	if results == nil {
		results = []*store.ActionResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// DispatchLog is the in-memory ring of recent dispatches.
type DispatchLog interface {
	Entries() []dispatch.Entry
}

// Dispatches serves GET /api/dispatches from the in-memory ring, oldest first.
func Dispatches(log DispatchLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := log.Entries()
		if entries == nil {
			entries = []dispatch.Entry{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	}
}
