package tasklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasksync/internal/model"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: "t1", Text: "Pack", Subtasks: []model.Subtask{
			{ID: "1", Text: "Socks", Completed: true},
			{ID: "2", Text: "Shirts"},
		}},
		{ID: "t2", Text: "Buy milk"},
	}
}

func TestRowsForFlattensSubtasks(t *testing.T) {
	items := rowsFor(sampleTasks())
	require.Len(t, items, 4)

	var keys []string
	for _, it := range items {
		keys = append(keys, it.(Row).key())
	}
	assert.Equal(t, []string{"t1", "t1/1", "t1/2", "t2"}, keys)
	assert.Equal(t, "Socks", items[1].FilterValue())
}

func TestSetTasksKeepsSelection(t *testing.T) {
	m := New(80, 20)
	m.SetTasks(sampleTasks())
	m.CursorDown()
	m.CursorDown()

	row, ok := m.Selected()
	require.True(t, ok)
	require.Equal(t, "t1/2", row.key())

	// A task is inserted ahead of the selection.
	tasks := append([]model.Task{{ID: "t0", Text: "Call mom"}}, sampleTasks()...)
	m.SetTasks(tasks)

	row, ok = m.Selected()
	require.True(t, ok)
	assert.Equal(t, "t1/2", row.key())
	assert.Equal(t, 5, m.Len())
}

func TestSetTasksSelectionRemoved(t *testing.T) {
	m := New(80, 20)
	m.SetTasks(sampleTasks())
	for range 3 {
		m.CursorDown()
	}

	m.SetTasks(sampleTasks()[:1])

	row, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "t1/2", row.key())
}

func TestRenderRow(t *testing.T) {
	tasks := sampleTasks()

	parent := renderRow(Row{Task: tasks[0]}, false)
	assert.Contains(t, parent, "[ ]")
	assert.Contains(t, parent, "Pack")
	assert.Contains(t, parent, "(1/2)")

	sub := renderRow(Row{Task: tasks[0], Subtask: &tasks[0].Subtasks[0]}, true)
	assert.Contains(t, sub, "[x]")
	assert.Contains(t, sub, "Socks")
	assert.NotContains(t, sub, "(1/2)")

	plain := renderRow(Row{Task: tasks[1]}, false)
	assert.NotContains(t, plain, "(")
}

func TestEmptyState(t *testing.T) {
	m := New(40, 10)
	m.SetTasks(nil)

	_, ok := m.Selected()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "No tasks yet.")
}
