package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/plugin"
)

// Controller is the slice of the app the control endpoints drive.
type Controller interface {
	Status() app.Status
	SetEnabled(enabled bool) error
	ResetChannel(ch event.Channel) error
}

// PluginLister lists discovered plugins.
type PluginLister interface {
	List() []*plugin.Plugin
}

// ControlHandler serves status, the detection toggle and channel resets.
type ControlHandler struct {
	ctl     Controller
	plugins PluginLister
}

// NewControlHandler creates a ControlHandler. plugins may be nil.
func NewControlHandler(ctl Controller, plugins PluginLister) *ControlHandler {
	return &ControlHandler{ctl: ctl, plugins: plugins}
}

// Status handles GET /api/status.
func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctl.Status())
}

// Enable handles POST /api/enable.
func (h *ControlHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, true)
}

// Disable handles POST /api/disable.
func (h *ControlHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, false)
}

func (h *ControlHandler) toggle(w http.ResponseWriter, enabled bool) {
	if err := h.ctl.SetEnabled(enabled); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save setting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// ResetChannel handles POST /api/channels/{channel}/reset.
func (h *ControlHandler) ResetChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := event.ParseChannel(chi.URLParam(r, "channel"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := h.ctl.ResetChannel(ch); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset channel")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reset": ch.String()})
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
}

// Plugins handles GET /api/plugins.
func (h *ControlHandler) Plugins(w http.ResponseWriter, r *http.Request) {
	if h.plugins == nil {
		writeError(w, http.StatusServiceUnavailable, "Plugins not loaded")
		return
	}
	list := h.plugins.List()
	out := make([]pluginResponse, 0, len(list))
	for _, p := range list {
		out = append(out, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     p.Manifest.Actions,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": out})
}
