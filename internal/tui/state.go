package tui

import (
	"time"

	"github.com/devpilot-io/devpilot/internal/event"
)

// Snapshot is the point-in-time daemon state the TUI renders. All slices are
// copies owned by the snapshot.
type Snapshot struct {
	Timestamp   time.Time
	Projects    []ProjectState
	Suggestions []event.Suggestion // recent across projects, newest last
	Milestones  []event.Milestone  // recent, newest last
	Monitors    MonitorState
	TotalEvents int
}

type ProjectState struct {
	Path        string
	Branch      string
	Uncommitted int
	TestStatus  string // passing|failing|unknown
	Suggestions []event.Suggestion
	Hints       []string
	AnalyzedAt  time.Time
}

type MonitorState struct {
	FileWatcher         bool
	GitMonitor          bool
	ConversationMonitor bool
}
