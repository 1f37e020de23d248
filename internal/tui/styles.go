package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/devpilot-io/devpilot/internal/event"
)

var (
	// Priority colors
	colorHigh   = lipgloss.Color("196") // red
	colorMedium = lipgloss.Color("214") // orange
	colorLow    = lipgloss.Color("33")  // blue

	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			PaddingLeft(1).
			PaddingRight(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginTop(1).
			MarginBottom(0)

	treeProjectStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("cyan"))

	selectedProjectStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Background(lipgloss.Color("237"))

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	milestoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func priorityIcon(p event.Priority) string {
	switch p {
	case event.PriorityHigh:
		return "🔴"
	case event.PriorityMedium:
		return "🟠"
	default:
		return "🔵"
	}
}

func priorityColor(p event.Priority) lipgloss.Color {
	switch p {
	case event.PriorityHigh:
		return colorHigh
	case event.PriorityMedium:
		return colorMedium
	default:
		return colorLow
	}
}
