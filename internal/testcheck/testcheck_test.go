package testcheck

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixed(command string) CommandFor {
	return func(string) string { return command }
}

func TestRunPassing(t *testing.T) {
	c := New(fixed("exit 0"), discard())

	pass, err := c.Run(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.True(t, pass)
}

func TestRunFailing(t *testing.T) {
	c := New(fixed("echo compiling; exit 3"), discard())

	pass, err := c.Run(context.Background(), t.TempDir())

	require.NoError(t, err)
	assert.False(t, pass)
}

func TestRunNoCommand(t *testing.T) {
	c := New(fixed(""), discard())

	_, err := c.Run(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no test command configured")
}

func TestRunTimeout(t *testing.T) {
	c := New(fixed("sleep 5"), discard())
	c.timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := c.Run(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunMissingDir(t *testing.T) {
	c := New(fixed("exit 0"), discard())

	_, err := c.Run(context.Background(), "/nonexistent/project/path")

	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefghij", 5))
}
