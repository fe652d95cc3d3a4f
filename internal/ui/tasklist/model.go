package tasklist

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasksync/internal/model"
	"github.com/nhle/tasksync/internal/theme"
)

// Model is the task list view component. Navigation is driven by the
// parent through CursorUp and CursorDown.
type Model struct {
	list   list.Model
	width  int
	height int
}

// New creates a new, empty task list.
func New(width, height int) Model {
	l := list.New([]list.Item{}, RowDelegate{}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:   l,
		width:  width,
		height: height,
	}
}

// SetTasks replaces the rows with a new snapshot, keeping the cursor on
// the same task or subtask when it still exists.
func (m *Model) SetTasks(tasks []model.Task) tea.Cmd {
	prev, hadPrev := m.Selected()

	cmd := m.list.SetItems(rowsFor(tasks))
	if !hadPrev {
		return cmd
	}

	items := m.list.Items()
	for i, item := range items {
		if item.(Row).key() == prev.key() {
			m.list.Select(i)
			return cmd
		}
	}
	// The row is gone; stay near where it was.
	if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	return cmd
}

// Selected returns the row under the cursor.
func (m Model) Selected() (Row, bool) {
	row, ok := m.list.SelectedItem().(Row)
	return row, ok
}

// Len returns the number of rows.
func (m Model) Len() int {
	return len(m.list.Items())
}

// CursorUp moves the selection one row up.
func (m *Model) CursorUp() {
	m.list.CursorUp()
}

// CursorDown moves the selection one row down.
func (m *Model) CursorDown() {
	m.list.CursorDown()
}

// View renders the task list view.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}
	return m.list.View()
}

// renderEmptyState shows guidance text when the user has no tasks.
func (m Model) renderEmptyState() string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorPlaceholder).
		Render("No tasks yet.\n\nPress a to add one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
