package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/devpilot-io/devpilot/internal/event"
)

const messageWidth = 72

func renderView(snap Snapshot, selected int) string {
	var b strings.Builder

	suggestionCount := 0
	for _, p := range snap.Projects {
		suggestionCount += len(p.Suggestions)
	}
	header := fmt.Sprintf("devpilot │ %d projects │ %d suggestions │ %d milestones │ %d events",
		len(snap.Projects), suggestionCount, len(snap.Milestones), snap.TotalEvents)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("📁 Projects"))
	b.WriteString("\n")
	b.WriteString(renderProjects(snap.Projects, selected))

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(fmt.Sprintf("🏁 Milestones (%d)", len(snap.Milestones))))
	b.WriteString("\n")
	b.WriteString(renderMilestones(snap.Milestones))

	b.WriteString("\n")
	footer := fmt.Sprintf("Last updated: %s │ %s │ q:quit r:refresh j/k:select",
		snap.Timestamp.Format("15:04:05"), renderMonitors(snap.Monitors))
	b.WriteString(footerStyle.Render(footer))

	return b.String()
}

func renderProjects(projects []ProjectState, selected int) string {
	if len(projects) == 0 {
		return emptyStyle.Render("  (no projects configured)")
	}

	var b strings.Builder
	for i, p := range projects {
		isLast := i == len(projects)-1
		prefix := "├─"
		if isLast {
			prefix = "└─"
		}

		status := fmt.Sprintf("%s [%s │ %d uncommitted │ tests %s]",
			p.Path, orDash(p.Branch), p.Uncommitted, p.TestStatus)
		line := fmt.Sprintf("%s %s", prefix, status)
		style := treeProjectStyle
		if i == selected {
			style = selectedProjectStyle
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")

		if i != selected {
			continue
		}

		childPrefix := "│  "
		if isLast {
			childPrefix = "   "
		}
		if len(p.Suggestions) == 0 && len(p.Hints) == 0 {
			b.WriteString(emptyStyle.Render(childPrefix + "  (nothing to suggest)"))
			b.WriteString("\n")
			continue
		}
		for j, s := range p.Suggestions {
			subPrefix := "├─"
			if j == len(p.Suggestions)-1 && len(p.Hints) == 0 {
				subPrefix = "└─"
			}
			msg := s.Message
			if runewidth.StringWidth(msg) > messageWidth {
				msg = runewidth.Truncate(msg, messageWidth-3, "...")
			}
			origin := ""
			if s.FromLLM {
				origin = " (llm)"
			}
			line := fmt.Sprintf("%s%s %s %s%s", childPrefix, subPrefix, priorityIcon(s.Priority), msg, origin)
			b.WriteString(lipgloss.NewStyle().Foreground(priorityColor(s.Priority)).Render(line))
			b.WriteString("\n")
		}
		for j, h := range p.Hints {
			subPrefix := "├─"
			if j == len(p.Hints)-1 {
				subPrefix = "└─"
			}
			b.WriteString(hintStyle.Render(fmt.Sprintf("%s%s 💡 %s", childPrefix, subPrefix, h)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderMilestones(milestones []event.Milestone) string {
	if len(milestones) == 0 {
		return emptyStyle.Render("  (none yet)")
	}

	var b strings.Builder
	for _, m := range milestones {
		line := fmt.Sprintf("• %s at %s (%d events)",
			m.Type, m.Timestamp.Format("15:04"), len(m.Events))
		b.WriteString(milestoneStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func renderMonitors(m MonitorState) string {
	mark := func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	}
	return fmt.Sprintf("watch:%s git:%s conv:%s",
		mark(m.FileWatcher), mark(m.GitMonitor), mark(m.ConversationMonitor))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
