package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/mudra/internal/event"
)

// Options controls where Load looks.
type Options struct {
	// Path is the TOML file. Empty means ~/.mudra/config.toml. A missing
	// default file is not an error; a missing explicit file is.
	Path string

	// EnvFile is a dotenv file consulted after the process environment.
	// Empty means ".env". A missing file is ignored.
	EnvFile string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load builds the configuration: defaults, then the TOML file, then MUDRA_*
// variables from the environment or the dotenv file, then Validate.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	getenv := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	path := opts.Path
	explicit := path != ""
	if v, ok := getenv("MUDRA_CONFIG"); ok && !explicit {
		path, explicit = v, true
	}
	if !explicit {
		path = filepath.Join(HomeDir(), "config.toml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f fileConfig
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := f.apply(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", path, ErrInvalid, err)
		}
		cfg.Source = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type envVar struct {
	key   string
	apply func(c *Config, v string) error
}

func envString(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func envInt(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func envFloat(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func envDuration(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

func envCooldown(ch event.Channel) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		cc := c.Dispatch.Channels[ch]
		cc.Cooldown = d
		c.Dispatch.Channels[ch] = cc
		return nil
	}
}

var envVars = []envVar{
	{"MUDRA_CAMERA_DEVICE", envInt(func(c *Config) *int { return &c.Camera.Device })},
	{"MUDRA_CAMERA_FPS", envInt(func(c *Config) *int { return &c.Camera.FPS })},
	{"MUDRA_PROCESS_EVERY_N", envInt(func(c *Config) *int { return &c.Camera.ProcessEveryN })},
	{"MUDRA_DETECTOR_PYTHON", envString(func(c *Config) *string { return &c.Detector.Python })},
	{"MUDRA_DETECTOR_SCRIPT", envString(func(c *Config) *string { return &c.Detector.Script })},
	{"MUDRA_BLINK_COOLDOWN", envCooldown(event.Blink)},
	{"MUDRA_GESTURE_COOLDOWN", envCooldown(event.Gesture)},
	{"MUDRA_EXPRESSION_COOLDOWN", envCooldown(event.Expression)},
	{"MUDRA_PLUGIN_DIR", envString(func(c *Config) *string { return &c.Actions.PluginDir })},
	{"MUDRA_ACTION_TIMEOUT", envDuration(func(c *Config) *time.Duration { return &c.Actions.Timeout })},
	{"MUDRA_MIN_EXPRESSION_CONFIDENCE", envFloat(func(c *Config) *float64 { return &c.Actions.MinExpressionConfidence })},
	{"MUDRA_SERVER_ADDR", envString(func(c *Config) *string { return &c.Server.Addr })},
	{"MUDRA_STATIC_DIR", envString(func(c *Config) *string { return &c.Server.StaticDir })},
	{"MUDRA_DB_PATH", envString(func(c *Config) *string { return &c.Store.Path })},
	{"MUDRA_LOG_LEVEL", envString(func(c *Config) *string { return &c.Logging.Level })},
	{"MUDRA_LOG_FILE", envString(func(c *Config) *string { return &c.Logging.File })},
}

// applyEnv overrides c with every MUDRA_* variable that is set.
func applyEnv(c *Config, getenv func(string) (string, bool)) error {
	var errs []error
	for _, ev := range envVars {
		v, ok := getenv(ev.key)
		if !ok || v == "" {
			continue
		}
		if err := ev.apply(c, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev.key, err))
		}
	}
	return errors.Join(errs...)
}
