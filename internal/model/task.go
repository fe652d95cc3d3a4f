package model

import "time"

// Task is a personal to-do item owned by a single user.
type Task struct {
	// ID is the key assigned by the remote store when the task was appended.
	ID string `json:"id"`

	// Text is the display string. Never empty for a decoded task.
	Text string `json:"text"`

	Completed bool `json:"completed"`

	// CreatedAt is set once at creation and never rewritten.
	CreatedAt time.Time `json:"createdAt"`

	// CompletedAt is set when the task becomes complete and cleared
	// when it is reopened.
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Subtasks keeps insertion order. Decoding always yields a non-nil slice.
	Subtasks []Subtask `json:"subtasks"`
}

// Subtask is a checklist entry nested one level under a Task.
// Its lifecycle is bound to the parent task.
type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// AllSubtasksCompleted reports whether every subtask is complete.
// It is true for an empty slice.
func AllSubtasksCompleted(subtasks []Subtask) bool {
	for _, st := range subtasks {
		if !st.Completed {
			return false
		}
	}
	return true
}

// SubtaskProgress returns the number of completed subtasks and the total.
func (t Task) SubtaskProgress() (done, total int) {
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}
