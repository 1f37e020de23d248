package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AnalysisInterval time.Duration `yaml:"-"`
	RawAnalysis      string        `yaml:"analysis_interval"`
	Debounce         time.Duration `yaml:"-"`
	RawDebounce      string        `yaml:"debounce"`
	LogFile          string        `yaml:"log_file"`
	Log              LogConfig     `yaml:"log"`
	TUI              TUIConfig     `yaml:"tui"`

	Projects    []ProjectConfig  `yaml:"projects"`
	Automation  AutomationConfig `yaml:"automation"`
	Suggestions SuggestionConfig `yaml:"suggestions"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TUIConfig struct {
	RefreshInterval time.Duration `yaml:"-"`
	RawInterval     string        `yaml:"refresh_interval"`
}

type ProjectConfig struct {
	Path              string   `yaml:"path"`
	ProtectedBranches []string `yaml:"protected_branches"`
	TestCommand       string   `yaml:"test_command"`

	// Suggestions overrides the global suggestion settings for this project.
	// Nil leaves inherit the global value (field-level resolution).
	Suggestions *SuggestionOverrides `yaml:"suggestions,omitempty"`
}

// SuggestionConfig holds the global suggestion defaults. Booleans are
// pointers so an omitted key defaults to enabled rather than false.
type SuggestionConfig struct {
	Enabled                  *bool `yaml:"enabled,omitempty"`
	ProtectedBranchWarnings  *bool `yaml:"protected_branch_warnings,omitempty"`
	TimeReminders            *bool `yaml:"time_reminders,omitempty"`
	LargeChangesetThreshold  int   `yaml:"large_changeset_threshold"`
	ReminderThresholdMinutes int   `yaml:"reminder_threshold_minutes"`
	WarningThresholdMinutes  int   `yaml:"warning_threshold_minutes"`
}

// SuggestionOverrides mirrors SuggestionConfig with pointer fields so a
// project can override individual leaves while inheriting the rest.
type SuggestionOverrides struct {
	Enabled                  *bool `yaml:"enabled,omitempty"`
	ProtectedBranchWarnings  *bool `yaml:"protected_branch_warnings,omitempty"`
	TimeReminders            *bool `yaml:"time_reminders,omitempty"`
	LargeChangesetThreshold  *int  `yaml:"large_changeset_threshold,omitempty"`
	ReminderThresholdMinutes *int  `yaml:"reminder_threshold_minutes,omitempty"`
	WarningThresholdMinutes  *int  `yaml:"warning_threshold_minutes,omitempty"`
}

type Mode string

const (
	ModeOff        Mode = "off"
	ModeLearning   Mode = "learning"
	ModeAssisted   Mode = "assisted"
	ModeAutonomous Mode = "autonomous"
)

type AutomationConfig struct {
	Enabled     bool        `yaml:"enabled"`
	Mode        Mode        `yaml:"mode"`
	LLM         LLMConfig   `yaml:"llm"`
	Thresholds  Thresholds  `yaml:"thresholds"`
	Preferences Preferences `yaml:"preferences"`
	Safety      Safety      `yaml:"safety"`
	Learning    Learning    `yaml:"learning"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"-"`
	RawTimeout  string        `yaml:"timeout"`
}

type Thresholds struct {
	Confidence      float64 `yaml:"confidence"`
	AutoExecute     float64 `yaml:"auto_execute"`
	RequireApproval float64 `yaml:"require_approval"`
}

type Preferences struct {
	CommitStyle     string        `yaml:"commit_style"`
	CommitFrequency string        `yaml:"commit_frequency"`
	WorkingHours    *WorkingHours `yaml:"working_hours,omitempty"`
	RiskTolerance   string        `yaml:"risk_tolerance"`
}

// WorkingHours bounds automated actions to a daily window. Start and End are
// zero-padded "HH:MM" strings compared lexicographically against wall time in
// Timezone.
type WorkingHours struct {
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Timezone string `yaml:"timezone"`
}

type Safety struct {
	MaxActionsPerHour int      `yaml:"max_actions_per_hour"`
	ProtectedFiles    []string `yaml:"protected_files"`
	RequireTestsPass  bool     `yaml:"require_tests_pass"`
	EmergencyStop     bool     `yaml:"emergency_stop"`
}

type Learning struct {
	Enabled    bool `yaml:"enabled"`
	MinSamples int  `yaml:"min_samples"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() error {
	if c.RawAnalysis == "" {
		c.RawAnalysis = "30s"
	}
	d, err := time.ParseDuration(c.RawAnalysis)
	if err != nil {
		return fmt.Errorf("parse analysis_interval %q: %w", c.RawAnalysis, err)
	}
	c.AnalysisInterval = d

	if c.RawDebounce == "" {
		c.RawDebounce = "500ms"
	}
	db, err := time.ParseDuration(c.RawDebounce)
	if err != nil {
		return fmt.Errorf("parse debounce %q: %w", c.RawDebounce, err)
	}
	c.Debounce = db

	if c.LogFile == "" {
		c.LogFile = "/tmp/devpilot/logs/devpilot.log"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.TUI.RawInterval == "" {
		c.TUI.RawInterval = "3s"
	}
	tuiInterval, err := time.ParseDuration(c.TUI.RawInterval)
	if err != nil {
		return fmt.Errorf("parse tui.refresh_interval %q: %w", c.TUI.RawInterval, err)
	}
	if tuiInterval <= 0 {
		return fmt.Errorf("tui.refresh_interval must be positive, got %s", c.TUI.RawInterval)
	}
	c.TUI.RefreshInterval = tuiInterval

	if c.Automation.Mode == "" {
		c.Automation.Mode = ModeOff
	}
	if c.Automation.LLM.Provider == "" {
		c.Automation.LLM.Provider = "claude-cli"
	}
	if c.Automation.LLM.Model == "" {
		c.Automation.LLM.Model = "sonnet"
	}
	if c.Automation.LLM.RawTimeout == "" {
		c.Automation.LLM.RawTimeout = "60s"
	}
	llmTimeout, err := time.ParseDuration(c.Automation.LLM.RawTimeout)
	if err != nil {
		return fmt.Errorf("parse automation.llm.timeout %q: %w", c.Automation.LLM.RawTimeout, err)
	}
	c.Automation.LLM.Timeout = llmTimeout
	if c.Automation.Thresholds.Confidence == 0 {
		c.Automation.Thresholds.Confidence = 0.7
	}
	if c.Automation.Thresholds.AutoExecute == 0 {
		c.Automation.Thresholds.AutoExecute = 0.85
	}
	if c.Automation.Thresholds.RequireApproval == 0 {
		c.Automation.Thresholds.RequireApproval = 0.5
	}
	if c.Automation.Preferences.CommitStyle == "" {
		c.Automation.Preferences.CommitStyle = "conventional"
	}
	if c.Automation.Preferences.CommitFrequency == "" {
		c.Automation.Preferences.CommitFrequency = "moderate"
	}
	if c.Automation.Preferences.RiskTolerance == "" {
		c.Automation.Preferences.RiskTolerance = "low"
	}
	if c.Automation.Safety.MaxActionsPerHour == 0 {
		c.Automation.Safety.MaxActionsPerHour = 10
	}
	if c.Automation.Learning.MinSamples == 0 {
		c.Automation.Learning.MinSamples = 5
	}

	if c.Suggestions.Enabled == nil {
		c.Suggestions.Enabled = boolPtr(true)
	}
	if c.Suggestions.ProtectedBranchWarnings == nil {
		c.Suggestions.ProtectedBranchWarnings = boolPtr(true)
	}
	if c.Suggestions.TimeReminders == nil {
		c.Suggestions.TimeReminders = boolPtr(true)
	}
	if c.Suggestions.LargeChangesetThreshold == 0 {
		c.Suggestions.LargeChangesetThreshold = 10
	}
	if c.Suggestions.ReminderThresholdMinutes == 0 {
		c.Suggestions.ReminderThresholdMinutes = 60
	}
	if c.Suggestions.WarningThresholdMinutes == 0 {
		c.Suggestions.WarningThresholdMinutes = 180
	}

	for i := range c.Projects {
		if len(c.Projects[i].ProtectedBranches) == 0 {
			c.Projects[i].ProtectedBranches = []string{"main", "master"}
		}
	}

	return nil
}

func (c *Config) validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("no projects configured")
	}
	for i, p := range c.Projects {
		if p.Path == "" {
			return fmt.Errorf("projects[%d]: path required", i)
		}
	}

	switch c.Automation.Mode {
	case ModeOff, ModeLearning, ModeAssisted, ModeAutonomous:
	default:
		return fmt.Errorf("invalid automation.mode %q (off|learning|assisted|autonomous)", c.Automation.Mode)
	}

	for name, v := range map[string]float64{
		"thresholds.confidence":       c.Automation.Thresholds.Confidence,
		"thresholds.auto_execute":     c.Automation.Thresholds.AutoExecute,
		"thresholds.require_approval": c.Automation.Thresholds.RequireApproval,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("automation.%s must be in [0,1], got %v", name, v)
		}
	}

	if wh := c.Automation.Preferences.WorkingHours; wh != nil {
		if !validClock(wh.Start) || !validClock(wh.End) {
			return fmt.Errorf("working_hours must be zero-padded HH:MM, got start=%q end=%q", wh.Start, wh.End)
		}
	}

	return nil
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

func boolPtr(v bool) *bool { return &v }

func orTrue(p *bool) bool { return p == nil || *p }

// Project returns the configured entry for path, or nil.
func (c *Config) Project(path string) *ProjectConfig {
	for i := range c.Projects {
		if c.Projects[i].Path == path {
			return &c.Projects[i]
		}
	}
	return nil
}

// ResolvedSuggestions is the effective suggestion settings for one project
// after applying its field-level overrides to the global defaults.
type ResolvedSuggestions struct {
	Enabled                  bool
	ProtectedBranchWarnings  bool
	TimeReminders            bool
	LargeChangesetThreshold  int
	ReminderThresholdMinutes int
	WarningThresholdMinutes  int
	ProtectedBranches        []string
	TestCommand              string
}

// ResolveSuggestions flattens the global defaults with the per-project
// overrides for path. Each leaf falls back independently: a project that only
// sets large_changeset_threshold still inherits every other global value.
func (c *Config) ResolveSuggestions(path string) ResolvedSuggestions {
	r := ResolvedSuggestions{
		Enabled:                  orTrue(c.Suggestions.Enabled),
		ProtectedBranchWarnings:  orTrue(c.Suggestions.ProtectedBranchWarnings),
		TimeReminders:            orTrue(c.Suggestions.TimeReminders),
		LargeChangesetThreshold:  c.Suggestions.LargeChangesetThreshold,
		ReminderThresholdMinutes: c.Suggestions.ReminderThresholdMinutes,
		WarningThresholdMinutes:  c.Suggestions.WarningThresholdMinutes,
		ProtectedBranches:        []string{"main", "master"},
	}

	p := c.Project(path)
	if p == nil {
		return r
	}
	if len(p.ProtectedBranches) > 0 {
		r.ProtectedBranches = p.ProtectedBranches
	}
	r.TestCommand = p.TestCommand

	o := p.Suggestions
	if o == nil {
		return r
	}
	if o.Enabled != nil {
		r.Enabled = *o.Enabled
	}
	if o.ProtectedBranchWarnings != nil {
		r.ProtectedBranchWarnings = *o.ProtectedBranchWarnings
	}
	if o.TimeReminders != nil {
		r.TimeReminders = *o.TimeReminders
	}
	if o.LargeChangesetThreshold != nil {
		r.LargeChangesetThreshold = *o.LargeChangesetThreshold
	}
	if o.ReminderThresholdMinutes != nil {
		r.ReminderThresholdMinutes = *o.ReminderThresholdMinutes
	}
	if o.WarningThresholdMinutes != nil {
		r.WarningThresholdMinutes = *o.WarningThresholdMinutes
	}
	return r
}

// IsProtectedBranch reports whether branch is protected for the project at
// path.
func (c *Config) IsProtectedBranch(path, branch string) bool {
	r := c.ResolveSuggestions(path)
	for _, b := range r.ProtectedBranches {
		if b == branch {
			return true
		}
	}
	return false
}
