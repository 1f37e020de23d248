package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SnapshotProvider hands the TUI a fresh daemon snapshot on demand.
type SnapshotProvider interface {
	Snapshot() Snapshot
}

type Model struct {
	provider        SnapshotProvider
	snapshot        Snapshot
	refreshInterval time.Duration
	selected        int
}

type tickMsg time.Time

func NewModel(provider SnapshotProvider, refreshInterval time.Duration) Model {
	return Model{
		provider:        provider,
		snapshot:        provider.Snapshot(),
		refreshInterval: refreshInterval,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.refreshInterval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.snapshot = m.provider.Snapshot()
			m.clampSelection()
			return m, nil
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.snapshot.Projects)-1 {
				m.selected++
			}
		}

	case tickMsg:
		m.snapshot = m.provider.Snapshot()
		m.clampSelection()
		return m, tickCmd(m.refreshInterval)
	}

	return m, nil
}

func (m Model) View() string {
	return renderView(m.snapshot, m.selected)
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.snapshot.Projects) {
		m.selected = len(m.snapshot.Projects) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
