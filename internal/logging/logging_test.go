package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mudra.log")

	logger, closeFn, err := New("info", path)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("dispatch", zap.String("label", "wave"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"dispatch"`)
	assert.Contains(t, out, `"label":"wave"`)
	assert.False(t, strings.Contains(out, "hidden"), "debug line should be filtered at info level")
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	fallback := zap.NewNop()
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))

	logger := zap.NewNop().Named("job")
	ctx := WithContext(context.Background(), logger)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, logger, got)
	assert.Same(t, logger, FromContextOr(ctx, fallback))
}
