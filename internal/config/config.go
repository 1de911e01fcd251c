// Package config loads mudra's settings from defaults, a dotenv file, a TOML
// file and MUDRA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/blink"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/expression"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/smoothing"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DirName is the per-user data directory under the home directory.
const DirName = ".mudra"

// CameraConfig selects and paces the capture device.
type CameraConfig struct {
	Device int
	Width  int
	Height int
	FPS    int
	// ProcessEveryN runs detection on every Nth captured frame.
	ProcessEveryN int
}

// DispatchConfig holds per-channel cooldowns and the in-memory history size.
type DispatchConfig struct {
	Channels    map[event.Channel]dispatch.ChannelConfig
	HistorySize int
}

// ActionsConfig configures plugin discovery and the action queue.
type ActionsConfig struct {
	PluginDir               string
	Timeout                 time.Duration
	QueueSize               int
	MinExpressionConfidence float64
}

// ServerConfig configures the HTTP dashboard.
type ServerConfig struct {
	Addr              string
	StaticDir         string
	BroadcastInterval time.Duration
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string
	File  string
}

// Config holds every recognized option.
type Config struct {
	Camera     CameraConfig
	Detector   detector.Config
	Gesture    gesture.Config
	Expression expression.Config
	Blink      blink.Config
	Smoothing  smoothing.Config
	Dispatch   DispatchConfig
	Actions    ActionsConfig
	Server     ServerConfig
	Store      StoreConfig
	Logging    LoggingConfig

	// Source is the TOML file that was read, empty if none.
	Source string
}

// HomeDir returns ~/.mudra, or .mudra when the home directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// Default returns the built-in settings.
func Default() *Config {
	dir := HomeDir()
	return &Config{
		Camera: CameraConfig{
			Width:         640,
			Height:        480,
			FPS:           30,
			ProcessEveryN: 2,
		},
		Detector:   detector.DefaultConfig(),
		Gesture:    gesture.DefaultConfig(),
		Expression: expression.DefaultConfig(),
		Blink:      blink.DefaultConfig(),
		Smoothing:  smoothing.DefaultConfig(),
		Dispatch: DispatchConfig{
			Channels:    dispatch.DefaultChannels(),
			HistorySize: 100,
		},
		Actions: ActionsConfig{
			PluginDir:               filepath.Join(dir, "plugins"),
			Timeout:                 5 * time.Second,
			QueueSize:               16,
			MinExpressionConfidence: 0.6,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			BroadcastInterval: 200 * time.Millisecond,
		},
		Store:   StoreConfig{Path: filepath.Join(dir, "mudra.db")},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Pipeline returns the detection pipeline settings.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Gesture:    c.Gesture,
		Expression: c.Expression,
		Blink:      c.Blink,
		Smoothing:  c.Smoothing,
	}
}

// Validate runs every component's validation and wraps the failures in
// ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, errors.New("camera: width and height must be positive"))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, errors.New("camera: fps must be positive"))
	}
	if c.Camera.ProcessEveryN <= 0 {
		errs = append(errs, errors.New("camera: process_every_n must be positive"))
	}
	add("detector", c.Detector.Validate())
	add("gesture", c.Gesture.Validate())
	add("expression", c.Expression.Validate())
	add("blink", c.Blink.Validate())
	add("smoothing", c.Smoothing.Validate())
	add("dispatch", dispatch.Config{Channels: c.Dispatch.Channels}.Validate())
	if c.Dispatch.HistorySize <= 0 {
		errs = append(errs, errors.New("dispatch: history_size must be positive"))
	}
	if c.Actions.Timeout <= 0 {
		errs = append(errs, errors.New("actions: timeout must be positive"))
	}
	if c.Actions.QueueSize <= 0 {
		errs = append(errs, errors.New("actions: queue_size must be positive"))
	}
	if v := c.Actions.MinExpressionConfidence; v < 0 || v > 1 {
		errs = append(errs, errors.New("actions: min_expression_confidence must be in [0, 1]"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server: addr is required"))
	}
	if c.Server.BroadcastInterval <= 0 {
		errs = append(errs, errors.New("server: broadcast_interval must be positive"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store: path is required"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
