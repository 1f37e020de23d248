// Package decision houses the LLM-backed decision agent: prompt building,
// strict decision parsing, and the ordered escalate-only safety gate that
// constrains automated Git actions.
package decision

import (
	"time"

	"github.com/devpilot-io/devpilot/internal/config"
	"github.com/devpilot-io/devpilot/internal/event"
)

// TestStatus is the last known test outcome for a project.
type TestStatus string

const (
	TestsPassing TestStatus = "passing"
	TestsFailing TestStatus = "failing"
	TestsUnknown TestStatus = "unknown"
)

// ProjectState is the git-derived snapshot a decision is made against.
type ProjectState struct {
	Branch             string
	IsProtected        bool
	UncommittedChanges int
	LastCommitTime     time.Time
	TestStatus         TestStatus
	BuildStatus        string
}

// TimeContext carries the decision wall time. A zero Now means "use the
// agent's clock".
type TimeContext struct {
	Now time.Time
}

// DecisionContext bundles everything the agent considers for one decision.
type DecisionContext struct {
	CurrentEvent    event.Event
	ProjectState    ProjectState
	RecentHistory   []event.Event
	Preferences     config.Preferences
	PossibleActions []string
	Time            TimeContext
}

// Decision is the gated outcome of a decision pass.
type Decision struct {
	Action             string
	Confidence         float64
	Reasoning          string
	RequiresApproval   bool
	AlternativeActions []string
	RiskAssessment     string
}

// PRDescription is the strict shape of a generated pull-request description.
type PRDescription struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Risk is the outcome of a risk assessment.
type Risk struct {
	Score            float64  `json:"score"`
	Level            string   `json:"level"`
	RequiresApproval bool     `json:"requires_approval"`
	Factors          []string `json:"factors"`
}

// PossibleActions returns the action set offered to the model.
func PossibleActions() []string {
	return []string{
		event.ActionWait,
		event.ActionCommit,
		event.ActionCreateBranch,
		event.ActionCheckpoint,
		event.ActionCreatePR,
	}
}

// changedFiles lists the file paths a decision would touch, from the
// triggering event.
func changedFiles(dctx DecisionContext) []string {
	if gs := dctx.CurrentEvent.GitState; gs != nil && len(gs.FilesChanged) > 0 {
		return gs.FilesChanged
	}
	return dctx.CurrentEvent.Files
}
