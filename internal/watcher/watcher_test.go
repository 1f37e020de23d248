package watcher

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIgnored(t *testing.T) {
	assert.True(t, ignored("/p/.git/index.lock"))
	assert.True(t, ignored("/p/node_modules/lib/x.js"))
	assert.True(t, ignored("/p/vendor"))
	assert.True(t, ignored("/p/web/dist/app.js"))
	assert.False(t, ignored("/p/internal/git/git.go"))
	assert.False(t, ignored("/p/distribution/notes.md"))
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "create", opString(fsnotify.Create))
	assert.Equal(t, "write", opString(fsnotify.Write))
	assert.Equal(t, "remove", opString(fsnotify.Remove))
	assert.Equal(t, "rename", opString(fsnotify.Rename))
	assert.Equal(t, "create", opString(fsnotify.Create|fsnotify.Write))
}

func TestProjectFor(t *testing.T) {
	w := &Watcher{projects: []string{"/home/dev/app/sub", "/home/dev/app"}}
	assert.Equal(t, "/home/dev/app/sub", w.projectFor("/home/dev/app/sub/main.go"))
	assert.Equal(t, "/home/dev/app", w.projectFor("/home/dev/app/other.go"))
	assert.Equal(t, "/home/dev/app", w.projectFor("/home/dev/app"))
	assert.Equal(t, "", w.projectFor("/elsewhere/x.go"))
}

func TestDebounceCoalescing(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, 150*time.Millisecond, discard())
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(dir, "main.go")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("package main // %d\n", i)), 0o644))
	}

	var got []FileEvent
	select {
	case ev := <-w.Events():
		got = append(got, ev)
	case <-time.After(3 * time.Second):
		t.Fatal("no event within deadline")
	}
	// No straggler: the burst must collapse into a single event.
	select {
	case ev := <-w.Events():
		got = append(got, ev)
	case <-time.After(400 * time.Millisecond):
	}

	require.Len(t, got, 1)
	assert.Equal(t, dir, got[0].ProjectPath)
	assert.Equal(t, path, got[0].FilePath)
	assert.Equal(t, "write", got[0].Op)
}

func TestIgnoredDirsSilent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))

	w, err := New([]string{dir}, 50*time.Millisecond, discard())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for ignored path: %+v", ev)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestNewDirectoriesWatched(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, 50*time.Millisecond, discard())
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(200 * time.Millisecond) // let the new watch register
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.go"), []byte("package pkg\n"), 0o644))

	select {
	case ev := <-w.Events():
		assert.Equal(t, filepath.Join(sub, "x.go"), ev.FilePath)
		assert.Equal(t, dir, ev.ProjectPath)
	case <-time.After(3 * time.Second):
		t.Fatal("no event for file in new directory")
	}
}

func TestCloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir}, 50*time.Millisecond, discard())
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after Close")
	}
}
