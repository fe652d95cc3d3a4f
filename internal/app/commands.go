package app

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	appsync "github.com/nhle/tasksync/internal/sync"
)

// syncStartedMsg is sent once StartSync has returned.
type syncStartedMsg struct{ err error }

// commandResultMsg is sent after a mutation has been acknowledged or has
// failed. The snapshot itself arrives separately as a SnapshotMsg.
type commandResultMsg struct {
	op  string
	err error
}

// loggedOutMsg is sent after the session was ended.
type loggedOutMsg struct{ err error }

// run executes fn on a command goroutine with the configured timeout.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	timeout := m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return commandResultMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) startSync() tea.Cmd {
	e, s, timeout := m.engine, m.session, m.timeout
	return func() tea.Msg {
		userID, ok := s.CurrentUser()
		if !ok {
			return syncStartedMsg{err: errors.New("not signed in: run tasksync login")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return syncStartedMsg{err: e.StartSync(ctx, userID)}
	}
}

func (m Model) addTask(text string) tea.Cmd {
	e := m.engine
	return m.run("add task", func(ctx context.Context) error {
		_, err := e.AddTask(ctx, text)
		return err
	})
}

func (m Model) editTask(id, text string) tea.Cmd {
	e := m.engine
	return m.run("edit task", func(ctx context.Context) error {
		return e.EditTask(ctx, id, text)
	})
}

func (m Model) deleteTask(id string) tea.Cmd {
	e := m.engine
	return m.run("delete task", func(ctx context.Context) error {
		return e.DeleteTask(ctx, id)
	})
}

func (m Model) toggleTask(id string, completed bool) tea.Cmd {
	e := m.engine
	return m.run("toggle task", func(ctx context.Context) error {
		return e.ToggleTaskCompletion(ctx, id, completed)
	})
}

func (m Model) addSubtask(taskID, text string) tea.Cmd {
	e := m.engine
	return m.run("add subtask", func(ctx context.Context) error {
		return e.AddSubtask(ctx, taskID, text)
	})
}

func (m Model) toggleSubtask(taskID, subtaskID string) tea.Cmd {
	e := m.engine
	return m.run("toggle subtask", func(ctx context.Context) error {
		return e.ToggleSubtask(ctx, taskID, subtaskID)
	})
}

// logout detaches the engine before forgetting the user.
func (m Model) logout() tea.Cmd {
	e, s := m.engine, m.session
	return func() tea.Msg {
		e.StopSync()
		return loggedOutMsg{err: s.SignOut()}
	}
}

var _ Engine = (*appsync.Engine)(nil)
