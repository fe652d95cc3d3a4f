package sync

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tasksync/internal/model"
)

// SnapshotMsg is a tea.Msg carrying the task list after a remote change
// was applied.
type SnapshotMsg struct {
	UserID string
	Tasks  []model.Task
}

// WaitForSnapshot returns a tea.Cmd that blocks until the next snapshot is
// published. Snapshots published while nobody is waiting are coalesced, so
// the command always yields the newest one. Call it again after handling a
// SnapshotMsg to keep listening.
func (e *Engine) WaitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-e.updates
		if !ok {
			return nil
		}
		return msg
	}
}

// publish replaces any unread snapshot with msg. Callers hold e.mu.
func (e *Engine) publish(msg SnapshotMsg) {
	for {
		select {
		case e.updates <- msg:
			return
		default:
		}
		select {
		case <-e.updates:
		default:
		}
	}
}
