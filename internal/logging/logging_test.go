package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "devpilot.log")

	logger, err := Setup(logFile, "debug", true)
	require.NoError(t, err)

	logger.Info("daemon started", "projects", 2)
	logger.Debug("debug detail")
	require.NoError(t, Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "daemon started")
	assert.Contains(t, string(data), "projects=2")
	assert.Contains(t, string(data), "debug detail")
}

func TestSetupRespectsLevel(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "devpilot.log")

	logger, err := Setup(logFile, "warn", true)
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	require.NoError(t, Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestTeeHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	tee := &teeHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	ctx := context.Background()
	assert.True(t, tee.Enabled(ctx, slog.LevelInfo), "enabled if any handler accepts")

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "fan out", 0)
	require.NoError(t, tee.Handle(ctx, rec))

	assert.Contains(t, a.String(), "fan out")
	assert.NotContains(t, b.String(), "fan out", "second handler filters by its own level")
}
