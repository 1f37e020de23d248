// Package monitor fans file, git and conversation activity into a single
// event stream and republishes what the aggregator derives from it.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/devpilot-io/devpilot/internal/aggregate"
	"github.com/devpilot-io/devpilot/internal/conversation"
	"github.com/devpilot-io/devpilot/internal/event"
	"github.com/devpilot-io/devpilot/internal/git"
	"github.com/devpilot-io/devpilot/internal/watcher"
)

const (
	eventBuffer    = 64
	derivedBuffer  = 16
	gitReadTimeout = 10 * time.Second
)

// GitStatus is the slice of the git client the manager reads.
type GitStatus interface {
	CurrentBranch(ctx context.Context, path string) (string, error)
	UncommittedChanges(ctx context.Context, path string) (*git.Changes, error)
}

// FileEvents is the watcher surface the manager consumes.
type FileEvents interface {
	Events() <-chan watcher.FileEvent
	Close() error
}

// projectEntry holds the last observed git state for one project, for change
// detection on file activity.
type projectEntry struct {
	lastBranch    string
	lastFileCount int
}

// ActiveMonitors reports which inputs the manager is currently wired to.
type ActiveMonitors struct {
	FileWatcher         bool
	GitMonitor          bool
	ConversationMonitor bool
}

// State is a point-in-time view of what the manager watches.
type State struct {
	Projects       []string
	ActiveMonitors ActiveMonitors
}

// Manager owns per-project observation state and the outbound channels.
type Manager struct {
	git    GitStatus
	files  FileEvents
	conv   *conversation.Monitor
	agg    *aggregate.Aggregator
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	projects map[string]*projectEntry
	active   string
	stopped  bool

	events      chan event.Event
	milestones  chan event.Milestone
	suggestions chan event.Suggestion

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager wires the inputs together. projects lists the configured
// project paths; the first one starts as the active conversation target.
func NewManager(projects []string, gitc GitStatus, files FileEvents, conv *conversation.Monitor, agg *aggregate.Aggregator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		git:         gitc,
		files:       files,
		conv:        conv,
		agg:         agg,
		logger:      logger,
		now:         time.Now,
		projects:    make(map[string]*projectEntry, len(projects)),
		events:      make(chan event.Event, eventBuffer),
		milestones:  make(chan event.Milestone, derivedBuffer),
		suggestions: make(chan event.Suggestion, derivedBuffer),
		done:        make(chan struct{}),
	}
	for _, p := range projects {
		m.projects[p] = &projectEntry{}
	}
	if len(projects) > 0 {
		m.active = projects[0]
	}
	return m
}

// Events is the merged stream of everything the manager observed.
func (m *Manager) Events() <-chan event.Event { return m.events }

// Milestones carries milestones the aggregator detected.
func (m *Manager) Milestones() <-chan event.Milestone { return m.milestones }

// Suggestions carries suggestions the aggregator derived directly.
func (m *Manager) Suggestions() <-chan event.Suggestion { return m.suggestions }

// SetActiveProject selects the project conversation events are attributed to.
func (m *Manager) SetActiveProject(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = path
	if _, ok := m.projects[path]; !ok {
		m.projects[path] = &projectEntry{}
	}
}

// Start consumes the file watcher until the context ends or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	if m.files == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				return
			case fe, ok := <-m.files.Events():
				if !ok {
					return
				}
				m.HandleFileEvent(ctx, fe)
			}
		}
	}()
}

// HandleFileEvent publishes a file_change for the watcher event, then
// re-reads the project's git state and publishes a git_state_change only
// when branch or uncommitted count moved since the last observation.
func (m *Manager) HandleFileEvent(ctx context.Context, fe watcher.FileEvent) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	entry, ok := m.projects[fe.ProjectPath]
	if !ok {
		entry = &projectEntry{}
		m.projects[fe.ProjectPath] = entry
	}
	m.mu.Unlock()

	m.publish(event.Event{
		Type:        event.TypeFileChange,
		Timestamp:   fe.Timestamp,
		ProjectPath: fe.ProjectPath,
		Description: fmt.Sprintf("%s %s", fe.Op, fe.FilePath),
		Files:       []string{fe.FilePath},
		FileChange:  &event.FileChangePayload{Path: fe.FilePath, Op: fe.Op},
	})

	if m.git == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, gitReadTimeout)
	defer cancel()

	branch, err := m.git.CurrentBranch(rctx, fe.ProjectPath)
	if err != nil {
		m.logger.Debug("branch read failed", "project", fe.ProjectPath, "error", err)
		return
	}
	changes, err := m.git.UncommittedChanges(rctx, fe.ProjectPath)
	if err != nil {
		m.logger.Debug("status read failed", "project", fe.ProjectPath, "error", err)
		return
	}
	count := 0
	var files []string
	diff := ""
	if changes != nil {
		count = changes.FileCount
		files = changes.Paths()
		diff = changes.DiffSummary
	}

	m.mu.Lock()
	changed := entry.lastBranch != branch || entry.lastFileCount != count
	entry.lastBranch = branch
	entry.lastFileCount = count
	m.mu.Unlock()
	if !changed {
		return
	}

	m.publish(event.Event{
		Type:        event.TypeGitStateChange,
		Timestamp:   m.now(),
		ProjectPath: fe.ProjectPath,
		Description: fmt.Sprintf("branch %s, %d uncommitted files", branch, count),
		Files:       files,
		GitState: &event.GitStatePayload{
			Branch:       branch,
			FileCount:    count,
			FilesChanged: files,
			DiffSummary:  diff,
		},
	})
}

// ProcessConversationMessage forwards a message to the conversation monitor
// and republishes the detected events stamped with the active project.
func (m *Manager) ProcessConversationMessage(content, role string) []event.Event {
	if m.conv == nil {
		return nil
	}
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	project := m.active
	m.mu.Unlock()

	evs := m.conv.ProcessMessage(content, role)
	for i := range evs {
		evs[i].ProjectPath = project
		m.publish(evs[i])
	}
	return evs
}

// State reports the watched projects and which monitors are live.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.projects))
	for p := range m.projects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	running := !m.stopped
	return State{
		Projects: paths,
		ActiveMonitors: ActiveMonitors{
			FileWatcher:         running && m.files != nil,
			GitMonitor:          running && m.git != nil,
			ConversationMonitor: running && m.conv != nil,
		},
	}
}

// Stop shuts the inputs and closes the outbound channels. Idempotent, and
// safe to call even if Start never ran.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		if m.files != nil {
			if err := m.files.Close(); err != nil {
				m.logger.Debug("watcher close", "error", err)
			}
		}
		if m.conv != nil {
			m.conv.Stop()
		}
		close(m.done)
		m.wg.Wait()

		m.mu.Lock()
		m.stopped = true
		close(m.events)
		close(m.milestones)
		close(m.suggestions)
		m.mu.Unlock()
	})
}

// publish pushes one event through the aggregator and onto the outbound
// channels. Sends never block: with no consumer keeping up, excess is
// dropped rather than stalling observation.
func (m *Manager) publish(ev event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	res := m.agg.AddEvent(ev)

	select {
	case m.events <- ev:
	default:
		m.logger.Debug("event channel full, dropping", "type", ev.Type)
	}
	for _, ms := range res.Milestones {
		select {
		case m.milestones <- ms:
		default:
			m.logger.Debug("milestone channel full, dropping", "type", ms.Type)
		}
	}
	for _, s := range res.Suggestions {
		select {
		case m.suggestions <- s:
		default:
			m.logger.Debug("suggestion channel full, dropping", "type", s.Type)
		}
	}
}
