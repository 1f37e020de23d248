package decision

import (
	"fmt"
	"strings"

	"github.com/devpilot-io/devpilot/internal/llm"
)

const historyLimit = 10

const decisionSystem = `You are the automation layer of a developer-workflow assistant. ` +
	`Given the current project situation, decide the single next Git action. ` +
	`Respond with ONLY a JSON object, no prose, no markdown fence: ` +
	`{"action": string, "confidence": number between 0 and 1, "reasoning": string, ` +
	`"requires_approval": boolean, "alternative_actions": [string], "risk_assessment": string}. ` +
	`Prefer "wait" unless the situation clearly calls for an action.`

// BuildDecisionPrompt is a pure transformation from a decision context to
// provider messages. Identical contexts produce identical prompts.
func BuildDecisionPrompt(dctx DecisionContext) []llm.Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Event: %s (%s)\n", dctx.CurrentEvent.Description, dctx.CurrentEvent.Type)
	if dctx.CurrentEvent.ProjectPath != "" {
		fmt.Fprintf(&b, "Project: %s\n", dctx.CurrentEvent.ProjectPath)
	}

	st := dctx.ProjectState
	branch := st.Branch
	if st.IsProtected {
		branch += " (protected)"
	}
	fmt.Fprintf(&b, "Branch: %s\n", branch)
	fmt.Fprintf(&b, "Uncommitted files: %d\n", st.UncommittedChanges)
	if files := changedFiles(dctx); len(files) > 0 {
		fmt.Fprintf(&b, "Changed files: %s\n", strings.Join(files, ", "))
	}
	if st.LastCommitTime.IsZero() {
		b.WriteString("Last commit: none\n")
	} else {
		fmt.Fprintf(&b, "Last commit: %s\n", st.LastCommitTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Tests: %s\n", st.TestStatus)
	if st.BuildStatus != "" {
		fmt.Fprintf(&b, "Build: %s\n", st.BuildStatus)
	}

	if len(dctx.RecentHistory) > 0 {
		b.WriteString("Recent activity:\n")
		hist := dctx.RecentHistory
		if len(hist) > historyLimit {
			hist = hist[len(hist)-historyLimit:]
		}
		for _, ev := range hist {
			fmt.Fprintf(&b, "- %s %s %s\n", ev.Timestamp.Format("15:04"), ev.Type, ev.Description)
		}
	}

	p := dctx.Preferences
	fmt.Fprintf(&b, "Preferences: commit style %s, commit frequency %s, risk tolerance %s\n",
		p.CommitStyle, p.CommitFrequency, p.RiskTolerance)
	if !dctx.Time.Now.IsZero() {
		fmt.Fprintf(&b, "Time: %s\n", dctx.Time.Now.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "Allowed actions: %s", strings.Join(dctx.PossibleActions, ", "))

	return []llm.Message{
		{Role: "system", Content: decisionSystem},
		{Role: "user", Content: b.String()},
	}
}

// BuildCommitPrompt asks for a commit message in the configured style. The
// reply is used verbatim after trimming.
func BuildCommitPrompt(dctx DecisionContext) []llm.Message {
	files := changedFiles(dctx)
	return []llm.Message{
		{Role: "system", Content: fmt.Sprintf(
			"Write a %s commit message for the changes described. Respond with the message only, no quotes, no explanation.",
			orDefault(dctx.Preferences.CommitStyle, "conventional"))},
		{Role: "user", Content: fmt.Sprintf(
			"Branch %s, %d uncommitted files: %s",
			dctx.ProjectState.Branch, dctx.ProjectState.UncommittedChanges, strings.Join(files, ", "))},
	}
}

// BuildPRPrompt asks for a pull-request title and body as strict JSON.
func BuildPRPrompt(dctx DecisionContext) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Branch %s is ready for a pull request.\n", dctx.ProjectState.Branch)
	if len(dctx.RecentHistory) > 0 {
		b.WriteString("Recent work:\n")
		for _, ev := range dctx.RecentHistory {
			fmt.Fprintf(&b, "- %s %s\n", ev.Type, ev.Description)
		}
	}
	return []llm.Message{
		{Role: "system", Content: `Write a pull request description. Respond with ONLY a JSON object {"title": string, "body": string}.`},
		{Role: "user", Content: b.String()},
	}
}

// BuildRiskPrompt asks for a risk assessment of the proposed action as
// strict JSON.
func BuildRiskPrompt(action string, dctx DecisionContext) []llm.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Proposed action: %s\n", action)
	fmt.Fprintf(&b, "Branch: %s (protected: %v)\n", dctx.ProjectState.Branch, dctx.ProjectState.IsProtected)
	fmt.Fprintf(&b, "Uncommitted files: %d\n", dctx.ProjectState.UncommittedChanges)
	fmt.Fprintf(&b, "Tests: %s", dctx.ProjectState.TestStatus)
	return []llm.Message{
		{Role: "system", Content: `Assess the risk of the proposed action. Respond with ONLY a JSON object {"score": number between 0 and 1, "level": "low"|"medium"|"high"|"critical", "requires_approval": boolean, "factors": [string]}.`},
		{Role: "user", Content: b.String()},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
