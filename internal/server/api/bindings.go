package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// BindingRepository is the persistence the binding handler needs.
type BindingRepository interface {
	List() ([]*store.Binding, error)
	GetByID(id string) (*store.Binding, error)
	GetByKey(ch event.Channel, label string) (*store.Binding, error)
	Create(b *store.Binding) error
	Update(b *store.Binding) error
	Delete(id string) error
}

// PluginResolver checks that a plugin offers an action.
type PluginResolver interface {
	Resolve(name, action string) (*plugin.Plugin, error)
}

// BindingHandler handles HTTP requests for binding resources.
type BindingHandler struct {
	repo    BindingRepository
	plugins PluginResolver
}

// NewBindingHandler creates a BindingHandler. plugins may be nil, in which
// case plugin and action names are not checked.
func NewBindingHandler(repo BindingRepository, plugins PluginResolver) *BindingHandler {
	return &BindingHandler{repo: repo, plugins: plugins}
}

type createBindingRequest struct {
	Channel    string          `json:"channel"`
	Label      string          `json:"label"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type updateBindingRequest struct {
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type bindingResponse struct {
	ID         string          `json:"id"`
	Channel    event.Channel   `json:"channel"`
	Label      string          `json:"label"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listBindingsResponse struct {
	Bindings []bindingResponse `json:"bindings"`
}

func toBindingResponse(b *store.Binding) bindingResponse {
	config := b.Config
	if config == nil {
		config = json.RawMessage("{}")
	}
	return bindingResponse{
		ID:         b.ID,
		Channel:    b.Channel,
		Label:      b.Label,
		PluginName: b.PluginName,
		ActionName: b.ActionName,
		Config:     config,
		Enabled:    b.Enabled,
		CreatedAt:  b.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/bindings.
func (h *BindingHandler) List(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bindings")
		return
	}

	response := listBindingsResponse{Bindings: make([]bindingResponse, 0, len(bindings))}
	for _, b := range bindings {
		response.Bindings = append(response.Bindings, toBindingResponse(b))
	}
	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/bindings/{id}.
func (h *BindingHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// Create handles POST /api/bindings.
func (h *BindingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	ch, err := event.ParseChannel(req.Channel)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if req.ActionName == "" {
		writeError(w, http.StatusBadRequest, "action_name is required")
		return
	}
	if !h.checkPlugin(w, req.PluginName, req.ActionName) {
		return
	}

	existing, err := h.repo.GetByKey(ch, req.Label)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check existing binding")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "Label already bound")
		return
	}

	b := &store.Binding{
		ID:         uuid.New().String(),
		Channel:    ch,
		Label:      req.Label,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    true,
	}
	if req.Enabled != nil {
		b.Enabled = *req.Enabled
	}
	if err := h.repo.Create(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create binding")
		return
	}
	writeJSON(w, http.StatusCreated, toBindingResponse(b))
}

// Update handles PUT /api/bindings/{id}. Channel and label are immutable.
func (h *BindingHandler) Update(w http.ResponseWriter, r *http.Request) {
	b, ok := h.load(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req updateBindingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.PluginName != "" {
		b.PluginName = req.PluginName
	}
	if req.ActionName != "" {
		b.ActionName = req.ActionName
	}
	if req.Config != nil {
		b.Config = req.Config
	}
	if req.Enabled != nil {
		b.Enabled = *req.Enabled
	}
	if !h.checkPlugin(w, b.PluginName, b.ActionName) {
		return
	}

	if err := h.repo.Update(b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update binding")
		return
	}
	writeJSON(w, http.StatusOK, toBindingResponse(b))
}

// Delete handles DELETE /api/bindings/{id}.
func (h *BindingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete binding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BindingHandler) load(w http.ResponseWriter, id string) (*store.Binding, bool) {
	b, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Binding not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get binding")
		return nil, false
	}
	return b, true
}

func (h *BindingHandler) checkPlugin(w http.ResponseWriter, name, action string) bool {
	if h.plugins == nil {
		return true
	}
	if _, err := h.plugins.Resolve(name, action); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
