package suggest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpilot-io/devpilot/internal/config"
	"github.com/devpilot-io/devpilot/internal/decision"
	"github.com/devpilot-io/devpilot/internal/event"
	"github.com/devpilot-io/devpilot/internal/git"
	"github.com/devpilot-io/devpilot/internal/llm"
)

const project = "/home/dev/app"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Projects: []config.ProjectConfig{{Path: project}},
		Suggestions: config.SuggestionConfig{
			LargeChangesetThreshold:  10,
			ReminderThresholdMinutes: 60,
			WarningThresholdMinutes:  180,
		},
		Automation: config.AutomationConfig{
			Enabled: true,
			Mode:    config.ModeAssisted,
			Thresholds: config.Thresholds{
				Confidence:      0.7,
				AutoExecute:     0.85,
				RequireApproval: 0.5,
			},
		},
	}
}

type stubDecider struct {
	d     decision.Decision
	last  decision.DecisionContext
	calls int
}

func (s *stubDecider) MakeDecision(_ context.Context, dctx decision.DecisionContext) decision.Decision {
	s.calls++
	s.last = dctx
	return s.d
}

type stubHistory struct{ events []event.Event }

func (s stubHistory) Recent(int) []event.Event { return s.events }

func dirty(branch string, files ...git.FileChange) *Status {
	return &Status{
		Branch:      branch,
		Uncommitted: &git.Changes{FileCount: len(files), Files: files},
	}
}

func clean(branch string) *Status {
	return &Status{Branch: branch}
}

func mod(path string) git.FileChange {
	return git.FileChange{Path: path, Kind: git.KindModified}
}

func atTime(e *Engine, t time.Time) {
	e.now = func() time.Time { return t }
}

func TestProtectedBranchWarning(t *testing.T) {
	e := NewEngine(testConfig(), nil, nil, discard())

	got := e.Analyze(context.Background(), project,
		dirty("main", mod("auth/login.go"), mod("auth/session.go"), mod("README.md")))

	require.Len(t, got, 1)
	s := got[0]
	assert.Equal(t, event.SuggestWarning, s.Type)
	assert.Equal(t, event.PriorityHigh, s.Priority)
	assert.Equal(t, event.ActionCreateBranch, s.Action)
	assert.Contains(t, s.Message, "protected branch 'main'")
	assert.Contains(t, s.Message, "3 uncommitted files")
	assert.False(t, s.FromLLM)
}

func TestProtectedBranchWarningDisabled(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Suggestions.ProtectedBranchWarnings = &off
	e := NewEngine(cfg, nil, nil, discard())

	got := e.Analyze(context.Background(), project, dirty("main", mod("a.go")))

	assert.Empty(t, got)
}

func TestUncommittedTimerTiers(t *testing.T) {
	e := NewEngine(testConfig(), nil, nil, discard())
	t0 := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	st := dirty("feature/x", mod("a.go"), mod("b.go"))

	atTime(e, t0)
	assert.Empty(t, e.Analyze(context.Background(), project, st), "freshly dirty tree should not remind")

	atTime(e, t0.Add(61*time.Minute))
	got := e.Analyze(context.Background(), project, st)
	require.Len(t, got, 1)
	assert.Equal(t, event.SuggestCheckpoint, got[0].Type)
	assert.Equal(t, event.PriorityMedium, got[0].Priority)
	assert.Equal(t, event.ActionCheckpoint, got[0].Action)

	atTime(e, t0.Add(181*time.Minute))
	got = e.Analyze(context.Background(), project, st)
	require.Len(t, got, 1)
	assert.Equal(t, event.SuggestCheckpoint, got[0].Type)
	assert.Equal(t, event.PriorityHigh, got[0].Priority, "warning tier replaces the reminder")
}

func TestTimeRemindersDisabled(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Suggestions.TimeReminders = &off
	e := NewEngine(cfg, nil, nil, discard())
	t0 := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	st := dirty("feature/x", mod("a.go"))

	atTime(e, t0)
	e.Analyze(context.Background(), project, st)
	atTime(e, t0.Add(200*time.Minute))

	assert.Empty(t, e.Analyze(context.Background(), project, st))
}

// A commit resets the uncommitted timer: the start time clears the moment
// the tree is clean and re-arms only when it goes dirty again.
func TestUncommittedStartLifecycle(t *testing.T) {
	e := NewEngine(testConfig(), nil, nil, discard())
	t0 := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	st := dirty("feature/x", mod("a.go"))

	atTime(e, t0)
	e.Analyze(context.Background(), project, st)
	assert.Equal(t, t0, e.contexts[project].UncommittedStart)

	// Tree goes clean: timer cleared immediately.
	atTime(e, t0.Add(90*time.Minute))
	got := e.Analyze(context.Background(), project, clean("feature/x"))
	assert.True(t, e.contexts[project].UncommittedStart.IsZero())
	for _, s := range got {
		assert.NotEqual(t, event.SuggestCheckpoint, s.Type)
	}

	// Dirty again: armed from now, not from the first pass.
	rearm := t0.Add(100 * time.Minute)
	atTime(e, rearm)
	e.Analyze(context.Background(), project, st)
	assert.Equal(t, rearm, e.contexts[project].UncommittedStart)

	atTime(e, rearm.Add(30*time.Minute))
	assert.Empty(t, e.Analyze(context.Background(), project, st))

	atTime(e, rearm.Add(61*time.Minute))
	got = e.Analyze(context.Background(), project, st)
	require.Len(t, got, 1)
	assert.Equal(t, event.PriorityMedium, got[0].Priority)
}

func TestMixedChangeKinds(t *testing.T) {
	st := dirty("feature/x",
		git.FileChange{Path: "new.go", Kind: git.KindAdded},
		git.FileChange{Path: "old.go", Kind: git.KindDeleted},
		mod("core.go"))
	e := NewEngine(testConfig(), nil, nil, discard())

	got := e.Analyze(context.Background(), project, st)

	require.Len(t, got, 1)
	assert.Equal(t, event.SuggestCommit, got[0].Type)
	assert.Equal(t, event.PriorityLow, got[0].Priority)
	assert.Contains(t, got[0].Message, "logical units")
}

func TestNewFeatureFilesOnMain(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Suggestions.ProtectedBranchWarnings = &off
	e := NewEngine(cfg, nil, nil, discard())

	st := dirty("main", git.FileChange{Path: "src/components/Button.tsx", Kind: git.KindUntracked})
	got := e.Analyze(context.Background(), project, st)

	require.Len(t, got, 1)
	assert.Equal(t, event.SuggestBranch, got[0].Type)
	assert.Equal(t, event.PriorityHigh, got[0].Priority)
	assert.Equal(t, event.ActionCreateBranch, got[0].Action)
	assert.Contains(t, got[0].Message, "src/components/Button.tsx")
}

func TestFeatureFilesOffMainIgnored(t *testing.T) {
	e := NewEngine(testConfig(), nil, nil, discard())

	st := dirty("feature/x", git.FileChange{Path: "src/components/Button.tsx", Kind: git.KindUntracked})
	got := e.Analyze(context.Background(), project, st)

	for _, s := range got {
		assert.NotEqual(t, event.SuggestBranch, s.Type)
	}
}

func TestPRReadiness(t *testing.T) {
	e := NewEngine(testConfig(), nil, nil, discard())

	got := e.Analyze(context.Background(), project, clean("feature/login"))

	require.Len(t, got, 1)
	assert.Equal(t, event.SuggestPR, got[0].Type)
	assert.Equal(t, event.PriorityMedium, got[0].Priority)
	assert.Equal(t, event.ActionCreatePR, got[0].Action)
}

func TestNoPROnProtectedBranch(t *testing.T) {
	cfg := testConfig()
	cfg.Projects[0].ProtectedBranches = []string{"main", "master", "release"}
	e := NewEngine(cfg, nil, nil, discard())

	assert.Empty(t, e.Analyze(context.Background(), project, clean("release")))
	assert.Empty(t, e.Analyze(context.Background(), project, clean("main")))
}

func TestDisabledShortCircuit(t *testing.T) {
	cfg := testConfig()
	off := false
	cfg.Suggestions.Enabled = &off
	agent := &stubDecider{d: decision.Decision{Action: event.ActionCommit, Confidence: 0.9}}
	e := NewEngine(cfg, agent, nil, discard())
	t0 := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	atTime(e, t0)

	got := e.Analyze(context.Background(), project, dirty("main", mod("a.go")))

	assert.Nil(t, got)
	assert.Zero(t, agent.calls, "disabled projects must not reach the llm")
	require.Contains(t, e.contexts, project, "work context still tracked while disabled")
	assert.Equal(t, t0, e.contexts[project].SessionStart)
}

func TestAgentSkippedWhenAutomationOff(t *testing.T) {
	agent := &stubDecider{d: decision.Decision{Action: event.ActionCommit, Confidence: 0.9}}

	cfg := testConfig()
	cfg.Automation.Enabled = false
	e := NewEngine(cfg, agent, nil, discard())
	e.Analyze(context.Background(), project, dirty("feature/x", mod("a.go")))
	assert.Zero(t, agent.calls)

	cfg = testConfig()
	cfg.Automation.Mode = config.ModeOff
	e = NewEngine(cfg, agent, nil, discard())
	e.Analyze(context.Background(), project, dirty("feature/x", mod("a.go")))
	assert.Zero(t, agent.calls)
}

// A provider outage degrades the pass to rule-only output instead of
// aborting it: the real agent folds the failure into a wait decision and
// the rule checks still run.
func TestRuleSuggestionsSurviveProviderFailure(t *testing.T) {
	cfg := testConfig()
	client := llm.NewFake().EnqueueError(errors.New("provider unreachable"))
	agent := decision.New(client, cfg.Automation, nil, nil, discard())
	require.NoError(t, agent.Initialize(context.Background()))
	e := NewEngine(cfg, agent, nil, discard())

	got := e.Analyze(context.Background(), project, dirty("main", mod("a.go"), mod("b.go"), mod("c.go")))

	require.Len(t, got, 1)
	assert.Equal(t, event.SuggestWarning, got[0].Type)
	assert.Equal(t, event.PriorityHigh, got[0].Priority)
	assert.False(t, got[0].FromLLM)
	assert.Len(t, client.Calls(), 1, "the provider was consulted and failed")
}

func TestLLMSuggestionMapping(t *testing.T) {
	tests := []struct {
		action       string
		confidence   float64
		wantType     event.SuggestionType
		wantPriority event.Priority
	}{
		{event.ActionCommit, 0.9, event.SuggestCommit, event.PriorityHigh},
		{event.ActionCreateBranch, 0.75, event.SuggestBranch, event.PriorityMedium},
		{event.ActionCheckpoint, 0.5, event.SuggestCheckpoint, event.PriorityLow},
		{event.ActionCreatePR, 0.85, event.SuggestPR, event.PriorityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			agent := &stubDecider{d: decision.Decision{
				Action:     tt.action,
				Confidence: tt.confidence,
				Reasoning:  "Work looks complete",
			}}
			e := NewEngine(testConfig(), agent, nil, discard())

			got := e.Analyze(context.Background(), project, dirty("feature/x", mod("a.go")))

			require.NotEmpty(t, got)
			s := got[0]
			assert.Equal(t, tt.wantType, s.Type)
			assert.Equal(t, tt.wantPriority, s.Priority)
			assert.Equal(t, tt.action, s.Action)
			assert.Equal(t, "Work looks complete", s.Message)
			assert.True(t, s.FromLLM)
			assert.Equal(t, tt.confidence, s.Confidence)
		})
	}
}

func TestLLMWaitProducesNothing(t *testing.T) {
	agent := &stubDecider{d: decision.Decision{Action: event.ActionWait, Confidence: 0.9}}
	e := NewEngine(testConfig(), agent, nil, discard())

	got := e.Analyze(context.Background(), project, dirty("feature/x", mod("a.go")))

	assert.Equal(t, 1, agent.calls)
	assert.Empty(t, got)
}

func TestLLMUnknownActionIgnored(t *testing.T) {
	agent := &stubDecider{d: decision.Decision{Action: "force_push", Confidence: 0.9}}
	e := NewEngine(testConfig(), agent, nil, discard())

	got := e.Analyze(context.Background(), project, dirty("feature/x", mod("a.go")))

	assert.Empty(t, got)
}

// When the llm and a rule propose the same (type, action), the llm entry
// wins and the duplicate is dropped.
func TestDedupPrefersLLM(t *testing.T) {
	agent := &stubDecider{d: decision.Decision{
		Action:     event.ActionCommit,
		Confidence: 0.9,
		Reasoning:  "Cohesive changeset, commit it",
	}}
	e := NewEngine(testConfig(), agent, nil, discard())

	// Mixed kinds trigger the rule-based commit note alongside the llm one.
	st := dirty("feature/x",
		git.FileChange{Path: "new.go", Kind: git.KindAdded},
		git.FileChange{Path: "old.go", Kind: git.KindDeleted},
		mod("core.go"))
	got := e.Analyze(context.Background(), project, st)

	commits := 0
	for _, s := range got {
		if s.Type == event.SuggestCommit {
			commits++
			assert.True(t, s.FromLLM)
			assert.Equal(t, "Cohesive changeset, commit it", s.Message)
		}
	}
	assert.Equal(t, 1, commits)
}

func TestDecisionContextAssembly(t *testing.T) {
	history := stubHistory{events: []event.Event{
		{Type: event.TypeTestsPassing, Description: "Tests passing reported"},
		{Type: event.TypeFeatureComplete, Description: "Feature implementation reported"},
	}}
	agent := &stubDecider{d: decision.Decision{Action: event.ActionWait}}
	e := NewEngine(testConfig(), agent, history, discard())
	now := time.Date(2025, 4, 2, 9, 5, 0, 0, time.UTC)
	atTime(e, now)

	st := &Status{
		Branch:      "feature/x",
		Uncommitted: &git.Changes{FileCount: 2, Files: []git.FileChange{mod("a.go"), mod("b.go")}, DiffSummary: "2 files changed"},
		RecentCommits: []git.Commit{
			{Hash: "abc1234", Time: now.Add(-30 * time.Minute), Subject: "feat: start"},
		},
		TestStatus: decision.TestsPassing,
	}
	e.Analyze(context.Background(), project, st)

	require.Equal(t, 1, agent.calls)
	dctx := agent.last
	assert.Equal(t, event.TypeGitStateChange, dctx.CurrentEvent.Type)
	assert.Equal(t, project, dctx.CurrentEvent.ProjectPath)
	require.NotNil(t, dctx.CurrentEvent.GitState)
	assert.Equal(t, 2, dctx.CurrentEvent.GitState.FileCount)
	assert.Equal(t, []string{"a.go", "b.go"}, dctx.CurrentEvent.GitState.FilesChanged)
	assert.Equal(t, "feature/x", dctx.ProjectState.Branch)
	assert.False(t, dctx.ProjectState.IsProtected)
	assert.Equal(t, 2, dctx.ProjectState.UncommittedChanges)
	assert.Equal(t, now.Add(-30*time.Minute), dctx.ProjectState.LastCommitTime)
	assert.Equal(t, decision.TestsPassing, dctx.ProjectState.TestStatus)
	assert.Len(t, dctx.RecentHistory, 2)
	assert.Equal(t, decision.PossibleActions(), dctx.PossibleActions)
	assert.Equal(t, now, dctx.Time.Now)
}

func TestContextualHints(t *testing.T) {
	e := NewEngine(testConfig(), nil, nil, discard())
	t0 := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)

	assert.Nil(t, e.ContextualHints(project), "unknown project has no hints")

	atTime(e, t0)
	st := clean("feature/x")
	st.RecentCommits = []git.Commit{{Hash: "abc", Time: t0.Add(-2 * time.Minute), Subject: "feat: done"}}
	e.Analyze(context.Background(), project, st)

	atTime(e, t0.Add(2*time.Minute))
	hints := e.ContextualHints(project)
	require.Len(t, hints, 2)
	assert.Contains(t, hints[0], "session")
	assert.Contains(t, hints[1], "commit")

	atTime(e, t0.Add(20*time.Minute))
	assert.Empty(t, e.ContextualHints(project))
}

func TestSortOrder(t *testing.T) {
	s := []event.Suggestion{
		{Type: event.SuggestCommit, Priority: event.PriorityLow},
		{Type: event.SuggestPR, Priority: event.PriorityHigh, Confidence: 0.5},
		{Type: event.SuggestCheckpoint, Priority: event.PriorityMedium, Confidence: 0.9},
		{Type: event.SuggestBranch, Priority: event.PriorityHigh, Confidence: 0.9},
	}
	sortSuggestions(s)

	assert.Equal(t, event.SuggestBranch, s[0].Type)
	assert.Equal(t, event.SuggestPR, s[1].Type)
	assert.Equal(t, event.SuggestCheckpoint, s[2].Type)
	assert.Equal(t, event.SuggestCommit, s[3].Type)
}
