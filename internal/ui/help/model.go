// Package help renders the full-screen keyboard shortcut overlay.
package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasksync/internal/keys"
	"github.com/nhle/tasksync/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a help overlay for keys.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(theme.ColorAccent)
	h.Styles.FullDesc = theme.HelpStyle

	m := Model{keys: keys, help: h}
	m.SetSize(width, height)
	return m
}

// View renders every binding grouped by category.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorText).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	hint := theme.HelpStyle.MarginTop(1).Render("press any key to close")
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.help.View(m.keys), hint)

	return theme.PromptStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = max(width, 8)
	m.height = max(height, 8)
	m.help.Width = m.width - 6
}
