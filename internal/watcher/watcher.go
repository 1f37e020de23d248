// Package watcher watches monitored project trees for file changes and
// emits debounced, project-attributed events.
package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Directories never watched or reported.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// FileEvent is one debounced file-change notification.
type FileEvent struct {
	ProjectPath string
	FilePath    string
	Op          string // create|write|remove|rename
	Timestamp   time.Time
}

// Watcher wraps fsnotify with recursive directory registration and per-path
// debouncing. Rapid successive changes to one file collapse into a single
// event carrying the last observed operation.
type Watcher struct {
	fsw      *fsnotify.Watcher
	projects []string // longest path first
	debounce time.Duration
	logger   *slog.Logger

	events    chan FileEvent
	fired     chan string
	done      chan struct{}
	closeOnce sync.Once

	// pending is touched only by the run loop.
	pending map[string]*pendingChange
}

type pendingChange struct {
	timer *time.Timer
	op    string
}

// New starts watching every directory under the given project roots.
func New(projects []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	sorted := make([]string, len(projects))
	copy(sorted, projects)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	w := &Watcher{
		fsw:      fsw,
		projects: sorted,
		debounce: debounce,
		logger:   logger,
		events:   make(chan FileEvent, 64),
		fired:    make(chan string),
		done:     make(chan struct{}),
		pending:  map[string]*pendingChange{},
	}

	for _, p := range projects {
		if err := w.addTree(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	go w.run()
	return w, nil
}

// Events returns the outbound channel. Closed after Close.
func (w *Watcher) Events() <-chan FileEvent { return w.events }

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch failed", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case path := <-w.fired:
			pc, ok := w.pending[path]
			if !ok {
				continue
			}
			delete(w.pending, path)
			ev := FileEvent{
				ProjectPath: w.projectFor(path),
				FilePath:    path,
				Op:          pc.op,
				Timestamp:   time.Now(),
			}
			select {
			case w.events <- ev:
			case <-w.done:
				return
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Chmod) && ev.Op&^fsnotify.Chmod == 0 {
		return
	}
	if ignored(ev.Name) {
		return
	}

	// New directories need watches of their own.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watch new dir failed", "path", ev.Name, "error", err)
			}
			return
		}
	}

	op := opString(ev.Op)
	if pc, ok := w.pending[ev.Name]; ok {
		pc.op = op
		pc.timer.Reset(w.debounce)
		return
	}
	path := ev.Name
	w.pending[path] = &pendingChange{
		op: op,
		timer: time.AfterFunc(w.debounce, func() {
			select {
			case w.fired <- path:
			case <-w.done:
			}
		}),
	}
}

func (w *Watcher) projectFor(path string) string {
	for _, p := range w.projects {
		if path == p || strings.HasPrefix(path, p+string(filepath.Separator)) {
			return p
		}
	}
	return ""
}

func ignored(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if ignoredDirs[part] {
			return true
		}
	}
	return false
}

func opString(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return "write"
	}
}
