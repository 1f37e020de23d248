package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/devpilot-io/devpilot/internal/config"
	"github.com/devpilot-io/devpilot/internal/event"
	"github.com/devpilot-io/devpilot/internal/llm"
)

// Learner reviews a proposed decision against accumulated history. It runs
// before the confidence threshold check, so a raised or vetoed decision is
// what the safety gate sees.
type Learner interface {
	ReviewDecision(ctx context.Context, d *Decision, dctx DecisionContext) (*Decision, error)
}

// TestChecker runs the project's test suite on demand. The agent consults it
// when require_tests_pass is set and the test status is unknown.
type TestChecker interface {
	Run(ctx context.Context, projectPath string) (bool, error)
}

// Agent turns decision contexts into reviewed, safety-gated decisions.
type Agent struct {
	client  llm.Client
	cfg     config.AutomationConfig
	learner Learner
	tests   TestChecker
	logger  *slog.Logger
	globs   []*regexp.Regexp

	ready atomic.Bool
	now   func() time.Time
}

// New builds an agent from a provider client and resolved automation config.
// learner and tests may be nil.
func New(client llm.Client, cfg config.AutomationConfig, learner Learner, tests TestChecker, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		client:  client,
		cfg:     cfg,
		learner: learner,
		tests:   tests,
		logger:  logger,
		globs:   compileGlobs(cfg.Safety.ProtectedFiles, logger),
		now:     time.Now,
	}
}

// Initialize verifies the provider wiring and marks the agent ready. Until
// then MakeDecision returns the safe default.
func (a *Agent) Initialize(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("initialize decision agent: no llm client")
	}
	a.ready.Store(true)
	a.logger.Info("decision agent ready",
		"provider", a.client.Name(),
		"mode", a.cfg.Mode,
		"protected_globs", len(a.globs))
	return nil
}

// MakeDecision produces the next-action decision for a context. It never
// returns an error: any failure degrades to the safe default (wait, zero
// confidence, approval required).
func (a *Agent) MakeDecision(ctx context.Context, dctx DecisionContext) Decision {
	if !a.ready.Load() {
		return safeDefault("decision agent not initialized")
	}
	d, err := a.decide(ctx, dctx)
	if err == nil {
		d, err = a.applySafety(ctx, d, dctx)
	}
	if err != nil {
		a.logger.Warn("decision failed, using safe default", "error", err)
		return safeDefault(err.Error())
	}
	a.logger.Debug("decision made",
		"action", d.Action,
		"confidence", d.Confidence,
		"requires_approval", d.RequiresApproval)
	return d
}

func (a *Agent) decide(ctx context.Context, dctx DecisionContext) (Decision, error) {
	resp, err := a.client.Complete(ctx, BuildDecisionPrompt(dctx))
	if err != nil {
		return Decision{}, fmt.Errorf("complete decision: %w", err)
	}
	d, err := parseDecision(resp.Content)
	if err != nil {
		return Decision{}, err
	}
	if a.learner != nil {
		reviewed, err := a.learner.ReviewDecision(ctx, d, dctx)
		if err != nil {
			return Decision{}, fmt.Errorf("review decision: %w", err)
		}
		if reviewed != nil {
			d = reviewed
		}
	}
	return *d, nil
}

// applySafety is an ordered fold over the safety checks. A check may force
// RequiresApproval, never clear it. Emergency stop is checked last and
// replaces the decision wholesale.
func (a *Agent) applySafety(ctx context.Context, d Decision, dctx DecisionContext) (Decision, error) {
	if !a.cfg.Enabled || a.cfg.Mode == config.ModeOff {
		d.RequiresApproval = true
	}
	if d.Confidence < a.cfg.Thresholds.Confidence {
		d.RequiresApproval = true
	}

	now := dctx.Time.Now
	if now.IsZero() {
		now = a.now()
	}
	if !a.withinWorkingHours(now) {
		d.RequiresApproval = true
		d.Reasoning += " (Outside working hours)"
	}

	if matchesAny(a.globs, changedFiles(dctx)) {
		d.RequiresApproval = true
		d.Reasoning += " (Touches protected files)"
	}

	if a.cfg.Safety.RequireTestsPass {
		pass, err := a.testsPass(ctx, dctx)
		if err != nil {
			return Decision{}, err
		}
		if !pass {
			d.RequiresApproval = true
			d.Reasoning += " (Tests not passing)"
		}
	}

	if a.cfg.Safety.EmergencyStop {
		return Decision{
			Action:           event.ActionWait,
			Confidence:       0,
			Reasoning:        "Emergency stop is active",
			RequiresApproval: true,
		}, nil
	}
	return d, nil
}

func (a *Agent) testsPass(ctx context.Context, dctx DecisionContext) (bool, error) {
	switch dctx.ProjectState.TestStatus {
	case TestsPassing:
		return true, nil
	case TestsFailing:
		return false, nil
	}
	if a.tests == nil {
		return false, nil
	}
	pass, err := a.tests.Run(ctx, dctx.CurrentEvent.ProjectPath)
	if err != nil {
		return false, fmt.Errorf("check tests: %w", err)
	}
	return pass, nil
}

func (a *Agent) withinWorkingHours(t time.Time) bool {
	wh := a.cfg.Preferences.WorkingHours
	if wh == nil {
		return true
	}
	loc := time.UTC
	if wh.Timezone != "" {
		l, err := time.LoadLocation(wh.Timezone)
		if err != nil {
			a.logger.Warn("unknown timezone, using local time", "timezone", wh.Timezone)
			l = time.Local
		}
		loc = l
	}
	hm := t.In(loc).Format("15:04")
	return wh.Start <= hm && hm <= wh.End
}

func safeDefault(msg string) Decision {
	return Decision{
		Action:           event.ActionWait,
		Confidence:       0,
		Reasoning:        "Error occurred: " + msg,
		RequiresApproval: true,
	}
}

// GenerateCommitMessage asks the provider for a commit message in the
// configured style and returns the trimmed text.
func (a *Agent) GenerateCommitMessage(ctx context.Context, dctx DecisionContext) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("generate commit message: no llm client")
	}
	resp, err := a.client.Complete(ctx, BuildCommitPrompt(dctx))
	if err != nil {
		return "", fmt.Errorf("generate commit message: %w", err)
	}
	msg := strings.TrimSpace(resp.Content)
	if msg == "" {
		return "", fmt.Errorf("generate commit message: empty response")
	}
	return msg, nil
}

// GeneratePRDescription asks the provider for a pull-request title and body.
func (a *Agent) GeneratePRDescription(ctx context.Context, dctx DecisionContext) (*PRDescription, error) {
	if a.client == nil {
		return nil, fmt.Errorf("generate pr description: no llm client")
	}
	resp, err := a.client.Complete(ctx, BuildPRPrompt(dctx))
	if err != nil {
		return nil, fmt.Errorf("generate pr description: %w", err)
	}
	var pr PRDescription
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &pr); err != nil {
		return nil, fmt.Errorf("pr description not valid JSON: %w", err)
	}
	if pr.Title == "" {
		return nil, fmt.Errorf("pr description missing title")
	}
	return &pr, nil
}

// AssessRisk scores a proposed action. It never fails: when the provider is
// unreachable or returns garbage the action is treated as critical.
func (a *Agent) AssessRisk(ctx context.Context, action string, dctx DecisionContext) Risk {
	r, err := a.assessRisk(ctx, action, dctx)
	if err != nil {
		a.logger.Warn("risk assessment failed", "action", action, "error", err)
		return Risk{
			Score:            1.0,
			Level:            "critical",
			RequiresApproval: true,
			Factors:          []string{"Failed to assess risk"},
		}
	}
	return r
}

func (a *Agent) assessRisk(ctx context.Context, action string, dctx DecisionContext) (Risk, error) {
	if a.client == nil {
		return Risk{}, fmt.Errorf("no llm client")
	}
	resp, err := a.client.Complete(ctx, BuildRiskPrompt(action, dctx))
	if err != nil {
		return Risk{}, err
	}
	var r Risk
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &r); err != nil {
		return Risk{}, fmt.Errorf("risk assessment not valid JSON: %w", err)
	}
	if r.Level == "" {
		return Risk{}, fmt.Errorf("risk assessment missing level")
	}
	r.Score = clamp01(r.Score)
	return r, nil
}
