package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlugin_Desktop_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("desktop")
	if pluginDir == "" {
		t.Skip("desktop plugin not built")
	}
	if _, err := os.Stat(filepath.Join(pluginDir, "desktop")); err != nil {
		t.Skip("desktop plugin binary not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir), nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Resolve("desktop", "log-mood")
	if err != nil {
		t.Skipf("desktop plugin unavailable on this platform: %v", err)
	}

	// log-mood only appends to a file under the configured directory.
	req := &Request{
		Action:     "log-mood",
		Channel:    "expression",
		Label:      "sad",
		Confidence: 0.8,
		Config:     []byte(`{"dir":"` + t.TempDir() + `"}`),
	}

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success, got error %q", resp.Error)
	}

	req.Action = "invalid-action"
	resp, err = NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for invalid action")
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, "plugin.json")); err == nil {
			return dir
		}
	}
	return ""
}
