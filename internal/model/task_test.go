package model

import "testing"

func TestAllSubtasksCompleted(t *testing.T) {
	tests := []struct {
		name     string
		subtasks []Subtask
		want     bool
	}{
		{"none", nil, true},
		{"all done", []Subtask{{Completed: true}, {Completed: true}}, true},
		{"one open", []Subtask{{Completed: true}, {Completed: false}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllSubtasksCompleted(tt.subtasks); got != tt.want {
				t.Errorf("AllSubtasksCompleted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubtaskProgress(t *testing.T) {
	task := Task{Subtasks: []Subtask{{Completed: true}, {}, {Completed: true}}}
	done, total := task.SubtaskProgress()
	if done != 2 || total != 3 {
		t.Errorf("SubtaskProgress() = %d/%d, want 2/3", done, total)
	}
}
