// Package daemon ties monitoring, analysis and presentation together: it
// pumps the monitor manager, runs periodic suggestion passes per project and
// keeps a bounded view of recent results for the TUI.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devpilot-io/devpilot/internal/aggregate"
	"github.com/devpilot-io/devpilot/internal/config"
	"github.com/devpilot-io/devpilot/internal/decision"
	"github.com/devpilot-io/devpilot/internal/event"
	"github.com/devpilot-io/devpilot/internal/git"
	"github.com/devpilot-io/devpilot/internal/monitor"
	"github.com/devpilot-io/devpilot/internal/suggest"
	"github.com/devpilot-io/devpilot/internal/tui"
)

const ringCap = 50

// GitReader is the git surface the daemon polls before each analysis.
type GitReader interface {
	CurrentBranch(ctx context.Context, path string) (string, error)
	UncommittedChanges(ctx context.Context, path string) (*git.Changes, error)
	RecentCommits(ctx context.Context, path string, n int) ([]git.Commit, error)
}

// projectView is the last analysis result for one project.
type projectView struct {
	branch      string
	uncommitted int
	testStatus  decision.TestStatus
	suggestions []event.Suggestion
	hints       []string
	analyzedAt  time.Time
}

type Daemon struct {
	cfg     *config.Config
	manager *monitor.Manager
	engine  *suggest.Engine
	git     GitReader
	agg     *aggregate.Aggregator
	logger  *slog.Logger

	mu      sync.Mutex
	workers map[string]context.CancelFunc
	wg      sync.WaitGroup

	stateMu     sync.Mutex
	projects    map[string]*projectView
	suggestions []event.Suggestion
	milestones  []event.Milestone
}

func New(cfg *config.Config, manager *monitor.Manager, engine *suggest.Engine, gitc GitReader, agg *aggregate.Aggregator, logger *slog.Logger) *Daemon {
	d := &Daemon{
		cfg:      cfg,
		manager:  manager,
		engine:   engine,
		git:      gitc,
		agg:      agg,
		logger:   logger,
		workers:  make(map[string]context.CancelFunc),
		projects: make(map[string]*projectView, len(cfg.Projects)),
	}
	for _, p := range cfg.Projects {
		d.projects[p.Path] = &projectView{testStatus: decision.TestsUnknown}
	}
	return d
}

// Run blocks until ctx is cancelled, then shuts down in order: cancel
// analyses, stop the manager, wait for workers.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("daemon started",
		"analysis_interval", d.cfg.AnalysisInterval,
		"projects", len(d.cfg.Projects),
		"automation", d.cfg.Automation.Enabled)

	d.manager.Start(ctx)
	events := d.manager.Events()
	milestones := d.manager.Milestones()
	suggestions := d.manager.Suggestions()

	// Initial pass so the TUI has data before the first tick.
	d.analyzeAll(ctx)

	ticker := time.NewTicker(d.cfg.AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down, waiting for analyses")
			d.cancelAll()
			d.manager.Stop()
			d.wg.Wait()
			d.logger.Info("daemon stopped")
			return nil
		case <-ticker.C:
			d.analyzeAll(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			d.handleEvent(ev)
		case ms, ok := <-milestones:
			if !ok {
				milestones = nil
				continue
			}
			d.recordMilestone(ms)
		case s, ok := <-suggestions:
			if !ok {
				suggestions = nil
				continue
			}
			d.recordSuggestion(s)
		}
	}
}

func (d *Daemon) analyzeAll(ctx context.Context) {
	for _, p := range d.cfg.Projects {
		d.startAnalysis(ctx, p.Path)
	}
}

// startAnalysis spawns one analysis worker per project; a project whose
// previous pass is still running is skipped until the next tick.
func (d *Daemon) startAnalysis(ctx context.Context, path string) {
	d.mu.Lock()
	if _, running := d.workers[path]; running {
		d.mu.Unlock()
		d.logger.Debug("analysis still running", "project", path)
		return
	}
	actx, cancel := context.WithCancel(ctx)
	d.workers[path] = cancel
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.workers, path)
			d.mu.Unlock()
			cancel()
		}()
		d.analyze(actx, path)
	}()
}

func (d *Daemon) analyze(ctx context.Context, path string) {
	st, err := d.readStatus(ctx, path)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("status read failed", "project", path, "error", err)
		}
		return
	}

	suggs := d.engine.Analyze(ctx, path, st)
	hints := d.engine.ContextualHints(path)

	uncommitted := 0
	if st.Uncommitted != nil {
		uncommitted = st.Uncommitted.FileCount
	}

	d.stateMu.Lock()
	view, ok := d.projects[path]
	if !ok {
		view = &projectView{}
		d.projects[path] = view
	}
	view.branch = st.Branch
	view.uncommitted = uncommitted
	view.suggestions = suggs
	view.hints = hints
	view.analyzedAt = time.Now()
	d.stateMu.Unlock()

	for _, s := range suggs {
		d.logger.Info("suggestion",
			"project", path,
			"type", s.Type,
			"priority", s.Priority.String(),
			"action", s.Action,
			"from_llm", s.FromLLM,
			"message", s.Message)
		d.recordSuggestion(s)
	}
}

func (d *Daemon) readStatus(ctx context.Context, path string) (*suggest.Status, error) {
	branch, err := d.git.CurrentBranch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("current branch: %w", err)
	}
	changes, err := d.git.UncommittedChanges(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("uncommitted changes: %w", err)
	}
	commits, err := d.git.RecentCommits(ctx, path, 5)
	if err != nil {
		d.logger.Debug("recent commits unavailable", "project", path, "error", err)
	}

	d.stateMu.Lock()
	status := decision.TestsUnknown
	if view, ok := d.projects[path]; ok && view.testStatus != "" {
		status = view.testStatus
	}
	d.stateMu.Unlock()

	return &suggest.Status{
		Branch:        branch,
		Uncommitted:   changes,
		RecentCommits: commits,
		TestStatus:    status,
	}, nil
}

// handleEvent tracks test outcomes reported through the event stream; the
// next analysis pass hands them to the decision agent.
func (d *Daemon) handleEvent(ev event.Event) {
	switch ev.Type {
	case event.TypeTestsPassing:
		d.setTestStatus(ev.ProjectPath, decision.TestsPassing)
	case event.TypeTestsFailing:
		d.setTestStatus(ev.ProjectPath, decision.TestsFailing)
	}
	d.logger.Debug("event observed", "type", ev.Type, "project", ev.ProjectPath)
}

func (d *Daemon) setTestStatus(path string, status decision.TestStatus) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	view, ok := d.projects[path]
	if !ok {
		view = &projectView{}
		d.projects[path] = view
	}
	view.testStatus = status
}

func (d *Daemon) recordSuggestion(s event.Suggestion) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.suggestions = append(d.suggestions, s)
	if len(d.suggestions) > ringCap {
		copy(d.suggestions, d.suggestions[len(d.suggestions)-ringCap:])
		d.suggestions = d.suggestions[:ringCap]
	}
}

func (d *Daemon) recordMilestone(ms event.Milestone) {
	d.logger.Info("milestone reached", "type", ms.Type, "events", len(ms.Events))
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	d.milestones = append(d.milestones, ms)
	if len(d.milestones) > ringCap {
		copy(d.milestones, d.milestones[len(d.milestones)-ringCap:])
		d.milestones = d.milestones[:ringCap]
	}
}

func (d *Daemon) cancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, cancel := range d.workers {
		d.logger.Debug("cancelling analysis", "project", path)
		cancel()
	}
}

// Snapshot returns a deep-copied view of the daemon state for rendering.
func (d *Daemon) Snapshot() tui.Snapshot {
	d.stateMu.Lock()
	projects := make([]tui.ProjectState, 0, len(d.cfg.Projects))
	for _, p := range d.cfg.Projects {
		view, ok := d.projects[p.Path]
		if !ok {
			view = &projectView{testStatus: decision.TestsUnknown}
		}
		projects = append(projects, tui.ProjectState{
			Path:        p.Path,
			Branch:      view.branch,
			Uncommitted: view.uncommitted,
			TestStatus:  string(statusOrUnknown(view.testStatus)),
			Suggestions: append([]event.Suggestion(nil), view.suggestions...),
			Hints:       append([]string(nil), view.hints...),
			AnalyzedAt:  view.analyzedAt,
		})
	}
	recent := append([]event.Suggestion(nil), d.suggestions...)
	milestones := make([]event.Milestone, len(d.milestones))
	for i, ms := range d.milestones {
		ms.Events = append([]event.Event(nil), ms.Events...)
		milestones[i] = ms
	}
	d.stateMu.Unlock()

	st := d.manager.State()
	stats := d.agg.Stats()

	return tui.Snapshot{
		Timestamp:   time.Now(),
		Projects:    projects,
		Suggestions: recent,
		Milestones:  milestones,
		Monitors: tui.MonitorState{
			FileWatcher:         st.ActiveMonitors.FileWatcher,
			GitMonitor:          st.ActiveMonitors.GitMonitor,
			ConversationMonitor: st.ActiveMonitors.ConversationMonitor,
		},
		TotalEvents: stats.TotalEvents,
	}
}

func statusOrUnknown(s decision.TestStatus) decision.TestStatus {
	if s == "" {
		return decision.TestsUnknown
	}
	return s
}
