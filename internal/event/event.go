// Package event defines the observation and recommendation types exchanged
// between the monitoring pipeline, the aggregator and the suggestion engine.
// It is a leaf package: everything else imports it, it imports nothing.
package event

import "time"

// Type identifies the kind of a monitoring event. The set is closed: monitors
// only ever emit these values, and consumers may switch exhaustively.
type Type string

const (
	TypeFileChange       Type = "file_change"
	TypeGitStateChange   Type = "git_state_change"
	TypeFeatureComplete  Type = "feature_complete"
	TypeBugFixed         Type = "bug_fixed"
	TypeTestsPassing     Type = "tests_passing"
	TypeTestsFailing     Type = "tests_failing"
	TypeRefactorComplete Type = "refactor_complete"
	TypeDocsUpdated      Type = "docs_updated"
	TypeFilesMentioned   Type = "files_mentioned"
)

// Event is a single observation about project activity. Exactly the payload
// matching Type is non-nil; all other payload pointers stay nil.
type Event struct {
	Type        Type
	Timestamp   time.Time
	ProjectPath string
	Description string

	// Files lists paths related to the event (mentioned files, changed files).
	Files []string

	FileChange   *FileChangePayload
	GitState     *GitStatePayload
	Conversation *ConversationPayload
}

// FileChangePayload carries the payload of a file_change event.
type FileChangePayload struct {
	Path string
	Op   string // create|write|remove|rename|chmod
}

// GitStatePayload carries the payload of a git_state_change event. It is a
// flat copy of the git status reading so that this package stays a leaf.
type GitStatePayload struct {
	Branch       string
	FileCount    int
	FilesChanged []string
	DiffSummary  string
}

// ConversationPayload carries the payload of conversation-derived events
// (feature_complete, bug_fixed, tests_passing, ...).
type ConversationPayload struct {
	Role    string
	Excerpt string
}

// SuggestionType classifies what a suggestion proposes.
type SuggestionType string

const (
	SuggestCommit     SuggestionType = "commit"
	SuggestBranch     SuggestionType = "branch"
	SuggestCheckpoint SuggestionType = "checkpoint"
	SuggestPR         SuggestionType = "pr"
	SuggestWarning    SuggestionType = "warning"
)

// Priority orders suggestions. Lower value sorts first.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Suggestion is an actionable recommendation surfaced to the user or to the
// automation layer. Confidence is only meaningful for LLM-origin suggestions;
// zero means "not scored".
type Suggestion struct {
	Type       SuggestionType
	Priority   Priority
	Message    string
	Action     string
	Reason     string
	FromLLM    bool
	Confidence float64
}

// Actions a suggestion or decision may propose. dev_* names match the tool
// surface the automation layer exposes.
const (
	ActionWait         = "wait"
	ActionCommit       = "commit"
	ActionCreateBranch = "dev_create_branch"
	ActionCheckpoint   = "dev_checkpoint"
	ActionCreatePR     = "dev_create_pr"
)

// MilestoneType names a correlated accomplishment.
type MilestoneType string

const (
	MilestoneFeatureShipped MilestoneType = "feature_shipped"
	MilestoneReleaseReady   MilestoneType = "release_ready"
)

// Milestone is a higher-level accomplishment inferred from a set of buffered
// events. Events holds the exact members that qualified the milestone.
type Milestone struct {
	Type      MilestoneType
	Events    []Event
	Timestamp time.Time
}
