package tasklist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasksync/internal/model"
	"github.com/nhle/tasksync/internal/theme"
)

// Row is one line of the list: a task, or one of its subtasks.
type Row struct {
	Task model.Task

	// Subtask is nil on the task's own row.
	Subtask *model.Subtask
}

// IsSubtask reports whether the row shows a subtask.
func (r Row) IsSubtask() bool {
	return r.Subtask != nil
}

// key identifies a row across snapshots.
func (r Row) key() string {
	if r.Subtask != nil {
		return r.Task.ID + "/" + r.Subtask.ID
	}
	return r.Task.ID
}

// FilterValue returns the string used for filtering.
func (r Row) FilterValue() string {
	if r.Subtask != nil {
		return r.Subtask.Text
	}
	return r.Task.Text
}

// rowsFor flattens tasks into list rows, each task followed by its subtasks.
func rowsFor(tasks []model.Task) []list.Item {
	items := make([]list.Item, 0, len(tasks))
	for _, task := range tasks {
		items = append(items, Row{Task: task})
		for i := range task.Subtasks {
			items = append(items, Row{Task: task, Subtask: &task.Subtasks[i]})
		}
	}
	return items
}

// RowDelegate implements list.ItemDelegate for task and subtask rows.
type RowDelegate struct{}

// Height returns the number of lines each item takes.
func (d RowDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d RowDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d RowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single row.
func (d RowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	row, ok := item.(Row)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(row, index == m.Index()))
}

func renderRow(row Row, selected bool) string {
	text, done := row.Task.Text, row.Task.Completed
	if row.Subtask != nil {
		text, done = row.Subtask.Text, row.Subtask.Completed
	}

	if done {
		text = theme.CompletedStyle.Render(text)
	}
	line := theme.CheckMark(done) + " " + text

	if row.Subtask == nil && len(row.Task.Subtasks) > 0 {
		finished, total := row.Task.SubtaskProgress()
		line += " " + theme.ProgressStyle.Render(fmt.Sprintf("(%d/%d)", finished, total))
	}

	if row.Subtask != nil {
		line = theme.SubtaskIndent.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}
