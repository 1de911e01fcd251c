// Package app runs the capture loop: it reads camera frames, asks the
// detector for landmarks and feeds the detection pipeline.
package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// SettingEnabled persists the detection toggle across restarts.
const SettingEnabled = "detection_enabled"

// Settings stores key-value settings.
type Settings interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Config holds the collaborators of an App.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Pipeline *pipeline.Pipeline

	// Executor, Settings, History and Plugins are optional.
	Executor *action.Executor
	Settings Settings
	History  *dispatch.MemoryHistory
	Plugins  *plugin.Manager

	// ProcessEveryN runs detection on every Nth captured frame.
	ProcessEveryN int

	Logger *zap.Logger
	Now    func() time.Time
}

// Status is the app-level view served to the dashboard and the tray.
type Status struct {
	Enabled    bool                `json:"enabled"`
	Running    bool                `json:"running"`
	Snapshot   pipeline.Snapshot   `json:"snapshot"`
	LastResult *store.ActionResult `json:"last_result,omitempty"`
}

// App orchestrates capture, detection and action execution.
type App struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	enabled    atomic.Bool
	latestJPEG atomic.Pointer[[]byte]
	lastResult atomic.Pointer[store.ActionResult]

	// Owned by the loop goroutine.
	captured   int64
	frameIndex int64

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// New creates an App. Detection starts enabled unless a stored setting says
// otherwise.
func New(cfg Config) (*App, error) {
	if cfg.Camera == nil || cfg.Detector == nil || cfg.Pipeline == nil {
		return nil, errors.New("app: camera, detector and pipeline are required")
	}
	if cfg.ProcessEveryN <= 0 {
		cfg.ProcessEveryN = 1
	}

	a := &App{cfg: cfg, logger: cfg.Logger, now: cfg.Now}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}

	a.enabled.Store(true)
	if cfg.Settings != nil {
		v, ok, err := cfg.Settings.Get(SettingEnabled)
		if err != nil {
			return nil, err
		}
		if ok {
			enabled, err := strconv.ParseBool(v)
			if err != nil {
				a.logger.Warn("ignoring malformed setting", zap.String("key", SettingEnabled), zap.String("value", v))
			} else {
				a.enabled.Store(enabled)
			}
		}
	}
	return a, nil
}

// SetEnabled pauses or resumes detection without closing the camera.
func (a *App) SetEnabled(enabled bool) error {
	a.enabled.Store(enabled)
	a.logger.Info("detection toggled", zap.Bool("enabled", enabled))
	if a.cfg.Settings != nil {
		return a.cfg.Settings.Set(SettingEnabled, strconv.FormatBool(enabled))
	}
	return nil
}

// IsEnabled reports whether detection is enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// IsRunning reports whether the capture loop is running.
func (a *App) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// Start opens the camera, starts the action worker and launches the capture
// loop. It is a no-op when already running.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.cfg.Camera.Open(); err != nil {
		return err
	}
	if a.cfg.Executor != nil {
		a.cfg.Executor.Start(ctx)
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.run(a.stopCh, a.done)

	a.logger.Info("capture loop started",
		zap.Int("fps", a.cfg.Camera.FPS()),
		zap.Int("process_every_n", a.cfg.ProcessEveryN),
	)
	return nil
}

// Stop halts the loop, waits for it and closes the camera. The action worker
// is stopped too.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	if err := a.cfg.Camera.Close(); err != nil {
		a.logger.Warn("close camera", zap.Error(err))
	}
	if a.cfg.Executor != nil {
		a.cfg.Executor.Stop()
	}
	a.logger.Info("capture loop stopped")
}

// Close stops the loop and releases the detector.
func (a *App) Close() error {
	a.Stop()
	return a.cfg.Detector.Close()
}

// Snapshot returns the pipeline's latest UI snapshot.
func (a *App) Snapshot() pipeline.Snapshot {
	return a.cfg.Pipeline.Snapshot()
}

// Status combines the toggle, loop state, snapshot and last action result.
func (a *App) Status() Status {
	return Status{
		Enabled:    a.IsEnabled(),
		Running:    a.IsRunning(),
		Snapshot:   a.Snapshot(),
		LastResult: a.LastResult(),
	}
}

// ResetChannel clears a channel's smoothing state before the next frame.
func (a *App) ResetChannel(ch event.Channel) error {
	return a.cfg.Pipeline.RequestReset(ch)
}

// LatestJPEG returns the most recently captured frame as JPEG.
func (a *App) LatestJPEG() ([]byte, bool) {
	p := a.latestJPEG.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// RecordResult is the executor's result hook.
func (a *App) RecordResult(res store.ActionResult) {
	a.lastResult.Store(&res)
}

// LastResult returns the most recent action result, if any.
func (a *App) LastResult() *store.ActionResult {
	p := a.lastResult.Load()
	if p == nil {
		return nil
	}
	res := *p
	return &res
}

// History returns the in-memory ring of recent dispatches, which may be nil.
func (a *App) History() *dispatch.MemoryHistory {
	return a.cfg.History
}

// Plugins returns the plugin manager, which may be nil.
func (a *App) Plugins() *plugin.Manager {
	return a.cfg.Plugins
}
