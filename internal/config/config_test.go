package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/expression"
)

func noEnv(string) (string, bool) { return "", false }

func mapEnv(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

// isolate points HOME at a temp dir and returns an options skeleton that
// ignores the real environment and .env file.
func isolate(t *testing.T) Options {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return Options{
		EnvFile:   filepath.Join(home, "missing.env"),
		LookupEnv: noEnv,
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Camera.ProcessEveryN)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.Channels[event.Blink].Cooldown)
	assert.Equal(t, 3*time.Second, cfg.Dispatch.Channels[event.Gesture].Cooldown)
	assert.Equal(t, 5*time.Second, cfg.Dispatch.Channels[event.Expression].Cooldown)
	assert.InDelta(t, 0.6, cfg.Actions.MinExpressionConfidence, 1e-9)
}

func TestLoad_NoFile(t *testing.T) {
	opts := isolate(t)

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Empty(t, cfg.Source)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), DirName, "mudra.db"), cfg.Store.Path)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	opts := isolate(t)
	opts.Path = filepath.Join(t.TempDir(), "nope.toml")

	_, err := Load(opts)
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	opts := isolate(t)
	opts.Path = writeFile(t, "config.toml", `
[camera]
process_every_n = 3

[gesture]
label_floors = { wave = 0.8 }

[expression]
happy_mouth = { low = 1.5, high = 3.5 }

[blink]
burst_window = "2s"

[smoothing.gesture]
decay = 0.2

[dispatch]
gesture_cooldown = "4s"
expression_scope = "channel"

[logging]
level = "debug"
`)

	cfg, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, opts.Path, cfg.Source)
	assert.Equal(t, 3, cfg.Camera.ProcessEveryN)
	assert.InDelta(t, 0.8, cfg.Gesture.LabelFloors[event.Wave], 1e-9)
	assert.InDelta(t, 0.75, cfg.Gesture.LabelFloors[event.ThumbsUp], 1e-9, "other floors keep defaults")
	assert.Equal(t, expression.Ramp{Low: 1.5, High: 3.5}, cfg.Expression.HappyMouth)
	assert.Equal(t, 2*time.Second, cfg.Blink.BurstWindow)
	assert.InDelta(t, 0.2, cfg.Smoothing[event.Gesture].Decay, 1e-9)
	assert.Equal(t, 3, cfg.Smoothing[event.Gesture].MinHoldFrames, "unset smoothing keys keep defaults")
	assert.Equal(t, 4*time.Second, cfg.Dispatch.Channels[event.Gesture].Cooldown)
	assert.Equal(t, 2*time.Second, cfg.Dispatch.Channels[event.Blink].Cooldown)
	assert.Equal(t, dispatch.ScopeChannel, cfg.Dispatch.Channels[event.Expression].Scope)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	opts := isolate(t)
	opts.Path = writeFile(t, "config.toml", "[server]\naddr = \":9000\"\n")
	opts.LookupEnv = mapEnv(map[string]string{
		"MUDRA_SERVER_ADDR":     ":9100",
		"MUDRA_BLINK_COOLDOWN":  "1s",
		"MUDRA_PROCESS_EVERY_N": "1",
	})

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Dispatch.Channels[event.Blink].Cooldown)
	assert.Equal(t, 1, cfg.Camera.ProcessEveryN)
}

func TestLoad_DotEnv(t *testing.T) {
	opts := isolate(t)
	opts.EnvFile = writeFile(t, ".env", "MUDRA_LOG_LEVEL=warn\nMUDRA_DB_PATH=/tmp/from-dotenv.db\n")
	opts.LookupEnv = mapEnv(map[string]string{"MUDRA_DB_PATH": "/tmp/from-env.db"})

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/from-env.db", cfg.Store.Path, "the process environment wins over .env")
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	opts := isolate(t)
	path := writeFile(t, "alt.toml", "[camera]\nfps = 15\n")
	opts.LookupEnv = mapEnv(map[string]string{"MUDRA_CONFIG": path})

	cfg, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Camera.FPS)
	assert.Equal(t, path, cfg.Source)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "zero stride", toml: "[camera]\nprocess_every_n = 0\n"},
		{name: "finger count", toml: "[gesture]\nfinger_thresholds = [1.0, 1.2, 1.3]\n"},
		{name: "scope", toml: "[dispatch]\nblink_scope = \"frame\"\n"},
		{name: "smoothing channel", toml: "[smoothing.blink]\ndecay = 0.5\n"},
		{name: "unknown smoothing channel", toml: "[smoothing.voice]\ndecay = 0.5\n"},
		{name: "negative cooldown", toml: "[dispatch]\ngesture_cooldown = \"-1s\"\n"},
		{name: "log level", toml: "[logging]\nlevel = \"chatty\"\n"},
		{name: "env duration", env: map[string]string{"MUDRA_ACTION_TIMEOUT": "soon"}},
		{name: "env int", env: map[string]string{"MUDRA_CAMERA_DEVICE": "front"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := isolate(t)
			if tt.toml != "" {
				opts.Path = writeFile(t, "config.toml", tt.toml)
			}
			if tt.env != nil {
				opts.LookupEnv = mapEnv(tt.env)
			}

			_, err := Load(opts)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	opts := isolate(t)
	opts.Path = writeFile(t, "config.toml", "[camera\n")

	_, err := Load(opts)
	assert.Error(t, err)
}

func TestTOML_RoundTrip(t *testing.T) {
	opts := isolate(t)

	want := Default()
	want.Camera.Device = 1
	want.Blink.MaxBlinks = 4
	want.Logging.File = "/var/log/mudra.log"
	cc := want.Dispatch.Channels[event.Gesture]
	cc.Scope = dispatch.ScopeChannel
	want.Dispatch.Channels[event.Gesture] = cc

	data, err := want.TOML()
	require.NoError(t, err)

	opts.Path = writeFile(t, "config.toml", string(data))
	got, err := Load(opts)
	require.NoError(t, err)

	want.Source = opts.Path
	assert.Equal(t, want, got)
}
