package app

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// Assemble builds a ready-to-start App from configuration and an open store.
// When the MediaPipe service cannot be found a mock detector that never sees
// anything is used, so the dashboard still runs.
func Assemble(cfg *config.Config, st *store.Store, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if _, err := action.SeedDefaults(st.Bindings(), logger); err != nil {
		return nil, err
	}

	plugins := plugin.NewManager(cfg.Actions.PluginDir, logger.Named("plugin"))
	if err := plugins.Discover(); err != nil {
		logger.Warn("plugin discovery failed", zap.Error(err))
	}

	history := dispatch.NewMemoryHistory(cfg.Dispatch.HistorySize)
	d, err := dispatch.New(dispatch.Config{
		Channels: cfg.Dispatch.Channels,
		Recorder: dispatch.Tee(history, action.HistoryRecorder{History: st.History()}),
		Logger:   logger.Named("dispatch"),
	})
	if err != nil {
		return nil, err
	}

	pcfg := cfg.Pipeline()
	pcfg.Logger = logger.Named("pipeline")
	p, err := pipeline.New(pcfg, d)
	if err != nil {
		return nil, err
	}

	det, err := newDetector(cfg.Detector, logger)
	if err != nil {
		return nil, err
	}

	cam := capture.NewCamera(capture.Config{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	})

	a, err := New(Config{
		Camera:        cam,
		Detector:      det,
		Pipeline:      p,
		Settings:      st.Settings(),
		History:       history,
		Plugins:       plugins,
		ProcessEveryN: cfg.Camera.ProcessEveryN,
		Logger:        logger.Named("app"),
	})
	if err != nil {
		det.Close()
		return nil, err
	}

	ex, err := action.New(action.Config{
		Bindings:                st.Bindings(),
		Plugins:                 plugins,
		Runner:                  plugin.NewExecutor(cfg.Actions.Timeout),
		Results:                 st.Results(),
		QueueSize:               cfg.Actions.QueueSize,
		MinExpressionConfidence: cfg.Actions.MinExpressionConfidence,
		OnResult:                a.RecordResult,
		Logger:                  logger.Named("action"),
	})
	if err != nil {
		det.Close()
		return nil, err
	}
	ex.Register(d)
	a.cfg.Executor = ex

	return a, nil
}

func newDetector(cfg detector.Config, logger *zap.Logger) (detector.Detector, error) {
	det, err := detector.NewMediaPipeDetector(cfg)
	if err == nil {
		return det, nil
	}
	if errors.Is(err, detector.ErrServiceNotFound) {
		logger.Warn("mediapipe service not found, detection disabled")
		return detector.NewMockDetector(), nil
	}
	return nil, err
}
