// Package plugin discovers and runs the out-of-process action plugins that
// confirmed gestures, expressions and blinks are bound to.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
	// Platforms lists the GOOS values the plugin runs on. Empty means all.
	Platforms    []string        `json:"platforms,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to the plugin's stdin as a single JSON document.
type Request struct {
	Action     string          `json:"action"`
	Channel    string          `json:"channel"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Config     json.RawMessage `json:"config,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the plugin declares action.
func (p *Plugin) Supports(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}

// RunsOn reports whether the plugin declares support for goos.
func (p *Plugin) RunsOn(goos string) bool {
	return len(p.Manifest.Platforms) == 0 || slices.Contains(p.Manifest.Platforms, goos)
}
