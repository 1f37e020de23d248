// Package suggest turns observed git state into prioritized suggestions,
// blending rule checks with optional LLM decisions.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devpilot-io/devpilot/internal/config"
	"github.com/devpilot-io/devpilot/internal/decision"
	"github.com/devpilot-io/devpilot/internal/event"
	"github.com/devpilot-io/devpilot/internal/git"
)

const (
	historyDepth = 10
	hintWindow   = 5 * time.Minute
)

// featureDirs mark paths whose new files suggest feature work best done off
// the main branch.
var featureDirs = []string{"components/", "features/", "pages/", "views/", "screens/"}

// Status is the observed git state one analysis pass runs against.
type Status struct {
	Branch        string
	Uncommitted   *git.Changes // nil means a clean tree
	RecentCommits []git.Commit // newest first
	TestStatus    decision.TestStatus
}

// Decider is the slice of the decision agent the engine consumes.
type Decider interface {
	MakeDecision(ctx context.Context, dctx decision.DecisionContext) decision.Decision
}

// History supplies recent aggregated events for decision context.
type History interface {
	Recent(n int) []event.Event
}

// workContext tracks per-project session state across analysis passes.
// UncommittedStart is armed when the tree first goes dirty and cleared the
// moment it is clean again.
type workContext struct {
	SessionStart     time.Time
	LastCommit       time.Time
	UncommittedStart time.Time
}

// Engine produces suggestions for a project from its current git status.
// Safe for concurrent per-project calls.
type Engine struct {
	cfg     *config.Config
	agent   Decider // nil runs rule checks only
	history History
	logger  *slog.Logger

	mu       sync.Mutex
	contexts map[string]*workContext
	now      func() time.Time
}

func NewEngine(cfg *config.Config, agent Decider, history History, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		agent:    agent,
		history:  history,
		logger:   logger,
		contexts: make(map[string]*workContext),
		now:      time.Now,
	}
}

// Analyze runs one suggestion pass for a project. The work context is
// updated even when suggestions are disabled for the project.
func (e *Engine) Analyze(ctx context.Context, projectPath string, st *Status) []event.Suggestion {
	if st == nil {
		return nil
	}
	count := 0
	if st.Uncommitted != nil {
		count = st.Uncommitted.FileCount
	}
	wc := e.updateContext(projectPath, st, count)

	resolved := e.cfg.ResolveSuggestions(projectPath)
	if !resolved.Enabled {
		return nil
	}

	var out []event.Suggestion
	if s := e.llmSuggestion(ctx, projectPath, st); s != nil {
		out = append(out, *s)
	}
	out = append(out, e.ruleSuggestions(projectPath, st, wc, resolved, count)...)

	out = dedup(out)
	sortSuggestions(out)
	return out
}

// ContextualHints returns short advisory lines about the project's session,
// separate from actionable suggestions.
func (e *Engine) ContextualHints(projectPath string) []string {
	e.mu.Lock()
	wc, ok := e.contexts[projectPath]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	snapshot := *wc
	e.mu.Unlock()

	now := e.now()
	var hints []string
	if now.Sub(snapshot.SessionStart) < hintWindow {
		hints = append(hints, "New session started")
	}
	if !snapshot.LastCommit.IsZero() && now.Sub(snapshot.LastCommit) < hintWindow {
		hints = append(hints, "Nice commit! Keep the momentum going")
	}
	return hints
}

func (e *Engine) updateContext(projectPath string, st *Status, uncommitted int) workContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	wc, ok := e.contexts[projectPath]
	if !ok {
		wc = &workContext{SessionStart: e.now()}
		e.contexts[projectPath] = wc
	}
	if len(st.RecentCommits) > 0 {
		wc.LastCommit = st.RecentCommits[0].Time
	}
	switch {
	case uncommitted == 0:
		wc.UncommittedStart = time.Time{}
	case wc.UncommittedStart.IsZero():
		wc.UncommittedStart = e.now()
	}
	return *wc
}

func (e *Engine) llmSuggestion(ctx context.Context, projectPath string, st *Status) *event.Suggestion {
	auto := e.cfg.Automation
	if !auto.Enabled || auto.Mode == config.ModeOff || e.agent == nil {
		return nil
	}

	d := e.agent.MakeDecision(ctx, e.buildDecisionContext(projectPath, st))
	if d.Action == "" || d.Action == event.ActionWait {
		return nil
	}
	typ, ok := suggestionType(d.Action)
	if !ok {
		e.logger.Warn("ignoring unknown llm action", "action", d.Action, "project", projectPath)
		return nil
	}
	return &event.Suggestion{
		Type:       typ,
		Priority:   e.llmPriority(d.Confidence),
		Message:    d.Reasoning,
		Action:     d.Action,
		Reason:     fmt.Sprintf("llm decision (confidence %.2f)", d.Confidence),
		FromLLM:    true,
		Confidence: d.Confidence,
	}
}

func (e *Engine) buildDecisionContext(projectPath string, st *Status) decision.DecisionContext {
	count := 0
	var files []string
	var diff string
	if st.Uncommitted != nil {
		count = st.Uncommitted.FileCount
		files = st.Uncommitted.Paths()
		diff = st.Uncommitted.DiffSummary
	}
	var lastCommit time.Time
	if len(st.RecentCommits) > 0 {
		lastCommit = st.RecentCommits[0].Time
	}
	var history []event.Event
	if e.history != nil {
		history = e.history.Recent(historyDepth)
	}

	now := e.now()
	return decision.DecisionContext{
		CurrentEvent: event.Event{
			Type:        event.TypeGitStateChange,
			Timestamp:   now,
			ProjectPath: projectPath,
			Description: fmt.Sprintf("%d uncommitted files on %s", count, st.Branch),
			GitState: &event.GitStatePayload{
				Branch:       st.Branch,
				FileCount:    count,
				FilesChanged: files,
				DiffSummary:  diff,
			},
		},
		ProjectState: decision.ProjectState{
			Branch:             st.Branch,
			IsProtected:        e.cfg.IsProtectedBranch(projectPath, st.Branch),
			UncommittedChanges: count,
			LastCommitTime:     lastCommit,
			TestStatus:         st.TestStatus,
		},
		RecentHistory:   history,
		Preferences:     e.cfg.Automation.Preferences,
		PossibleActions: decision.PossibleActions(),
		Time:            decision.TimeContext{Now: now},
	}
}

func (e *Engine) llmPriority(confidence float64) event.Priority {
	t := e.cfg.Automation.Thresholds
	switch {
	case confidence >= t.AutoExecute:
		return event.PriorityHigh
	case confidence >= t.Confidence:
		return event.PriorityMedium
	default:
		return event.PriorityLow
	}
}

func (e *Engine) ruleSuggestions(projectPath string, st *Status, wc workContext, rs config.ResolvedSuggestions, count int) []event.Suggestion {
	var out []event.Suggestion
	protected := e.cfg.IsProtectedBranch(projectPath, st.Branch)

	if rs.ProtectedBranchWarnings && count > 0 && protected {
		out = append(out, event.Suggestion{
			Type:     event.SuggestWarning,
			Priority: event.PriorityHigh,
			Message:  fmt.Sprintf("%d uncommitted files on protected branch '%s' - move them to a feature branch", count, st.Branch),
			Action:   event.ActionCreateBranch,
			Reason:   "uncommitted changes on a protected branch",
		})
	}

	if rs.TimeReminders && !wc.UncommittedStart.IsZero() {
		mins := int(e.now().Sub(wc.UncommittedStart).Minutes())
		switch {
		case mins >= rs.WarningThresholdMinutes:
			out = append(out, event.Suggestion{
				Type:     event.SuggestCheckpoint,
				Priority: event.PriorityHigh,
				Message:  fmt.Sprintf("Uncommitted changes for %d minutes - checkpoint your work now", mins),
				Action:   event.ActionCheckpoint,
				Reason:   fmt.Sprintf("dirty tree past the %d minute warning threshold", rs.WarningThresholdMinutes),
			})
		case mins >= rs.ReminderThresholdMinutes:
			out = append(out, event.Suggestion{
				Type:     event.SuggestCheckpoint,
				Priority: event.PriorityMedium,
				Message:  fmt.Sprintf("Uncommitted changes for %d minutes - consider a checkpoint", mins),
				Action:   event.ActionCheckpoint,
				Reason:   fmt.Sprintf("dirty tree past the %d minute reminder threshold", rs.ReminderThresholdMinutes),
			})
		}
	}

	if st.Uncommitted != nil {
		adds := st.Uncommitted.CountKind(git.KindAdded) + st.Uncommitted.CountKind(git.KindUntracked)
		mods := st.Uncommitted.CountKind(git.KindModified)
		dels := st.Uncommitted.CountKind(git.KindDeleted)
		if adds > 0 && mods > 0 && dels > 0 {
			out = append(out, event.Suggestion{
				Type:     event.SuggestCommit,
				Priority: event.PriorityLow,
				Message:  "Changeset mixes additions, modifications and deletions - consider committing in logical units",
				Action:   event.ActionCommit,
				Reason:   "mixed change kinds in one working tree",
			})
		}
	}

	if st.Branch == "main" && st.Uncommitted != nil {
		if path, ok := newFeatureFile(st.Uncommitted.Files); ok {
			out = append(out, event.Suggestion{
				Type:     event.SuggestBranch,
				Priority: event.PriorityHigh,
				Message:  fmt.Sprintf("New feature files (%s) on main - start a feature branch", path),
				Action:   event.ActionCreateBranch,
				Reason:   "feature work landing directly on main",
			})
		}
	}

	if count == 0 && st.Branch != "" && st.Branch != "main" && !protected {
		out = append(out, event.Suggestion{
			Type:     event.SuggestPR,
			Priority: event.PriorityMedium,
			Message:  fmt.Sprintf("Branch '%s' is clean - consider opening a pull request", st.Branch),
			Action:   event.ActionCreatePR,
			Reason:   "feature branch with no uncommitted changes",
		})
	}

	return out
}

func newFeatureFile(files []git.FileChange) (string, bool) {
	for _, fc := range files {
		if fc.Kind != git.KindAdded && fc.Kind != git.KindUntracked {
			continue
		}
		for _, dir := range featureDirs {
			if strings.Contains(fc.Path, dir) {
				return fc.Path, true
			}
		}
	}
	return "", false
}

func suggestionType(action string) (event.SuggestionType, bool) {
	switch action {
	case event.ActionCommit:
		return event.SuggestCommit, true
	case event.ActionCreateBranch:
		return event.SuggestBranch, true
	case event.ActionCheckpoint:
		return event.SuggestCheckpoint, true
	case event.ActionCreatePR:
		return event.SuggestPR, true
	}
	return "", false
}

// dedup keeps one suggestion per (Type, Action) pair, preferring the
// LLM-backed entry when both sources produced one.
func dedup(in []event.Suggestion) []event.Suggestion {
	type key struct {
		t event.SuggestionType
		a string
	}
	idx := make(map[key]int, len(in))
	out := make([]event.Suggestion, 0, len(in))
	for _, s := range in {
		k := key{s.Type, s.Action}
		if i, ok := idx[k]; ok {
			if s.FromLLM && !out[i].FromLLM {
				out[i] = s
			}
			continue
		}
		idx[k] = len(out)
		out = append(out, s)
	}
	return out
}

// sortSuggestions orders by priority, then confidence descending. The sort
// is stable so equal entries keep their source order.
func sortSuggestions(s []event.Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Priority != s[j].Priority {
			return s[i].Priority < s[j].Priority
		}
		return s[i].Confidence > s[j].Confidence
	})
}
