package sync

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/tasksync/internal/model"
)

// Field names of a task document.
const (
	fieldText        = "text"
	fieldCompleted   = "completed"
	fieldCreatedAt   = "createdAt"
	fieldCompletedAt = "completedAt"
	fieldSubtasks    = "subtasks"
	fieldID          = "id"
)

// timeLayout writes UTC timestamps with millisecond precision and a "Z"
// suffix.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Decode converts the payload of a user's task collection into tasks
// ordered by key, which is creation order for store-generated keys.
//
// Defaults: an absent payload is an empty collection, absent subtasks are
// an empty slice, absent completed is false. A task without a non-empty
// text, or a subtask without an id or text, is dropped and reported. A
// payload that is not an object decodes to an empty collection.
func Decode(payload any) ([]model.Task, []error) {
	tasks := []model.Task{}
	if payload == nil {
		return tasks, nil
	}

	entries, ok := asObject(payload)
	if !ok {
		return tasks, []error{&DecodeError{
			Reason: fmt.Sprintf("collection is %T, want object", payload),
		}}
	}

	var problems []error
	for _, key := range sortedKeys(entries) {
		task, errs := decodeTask(key, entries[key])
		problems = append(problems, errs...)
		if task != nil {
			tasks = append(tasks, *task)
		}
	}
	return tasks, problems
}

func decodeTask(id string, raw any) (*model.Task, []error) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, []error{&DecodeError{Key: id, Reason: fmt.Sprintf("document is %T, want object", raw)}}
	}

	text, _ := doc[fieldText].(string)
	if strings.TrimSpace(text) == "" {
		return nil, []error{&DecodeError{Key: id, Reason: "missing text"}}
	}

	var problems []error
	task := &model.Task{ID: id, Text: text, Subtasks: []model.Subtask{}}

	switch v := doc[fieldCompleted].(type) {
	case nil:
	case bool:
		task.Completed = v
	default:
		problems = append(problems, &DecodeError{Key: id, Reason: fmt.Sprintf("completed is %T, want bool", v)})
	}

	if s, ok := doc[fieldCreatedAt].(string); ok {
		t, err := parseTime(s)
		if err != nil {
			problems = append(problems, &DecodeError{Key: id, Reason: fmt.Sprintf("createdAt: %v", err)})
		}
		task.CreatedAt = t
	} else {
		problems = append(problems, &DecodeError{Key: id, Reason: "missing createdAt"})
	}

	switch v := doc[fieldCompletedAt].(type) {
	case nil:
	case string:
		t, err := parseTime(v)
		if err != nil {
			problems = append(problems, &DecodeError{Key: id, Reason: fmt.Sprintf("completedAt: %v", err)})
			break
		}
		task.CompletedAt = &t
	default:
		problems = append(problems, &DecodeError{Key: id, Reason: fmt.Sprintf("completedAt is %T, want string", v)})
	}

	subtasks, errs := decodeSubtasks(id, doc[fieldSubtasks])
	task.Subtasks = subtasks
	problems = append(problems, errs...)

	return task, problems
}

func decodeSubtasks(taskID string, raw any) ([]model.Subtask, []error) {
	subtasks := []model.Subtask{}

	var items []any
	switch v := raw.(type) {
	case nil:
		return subtasks, nil
	case []any:
		items = v
	case map[string]any:
		// Sparse sequences come back as objects keyed by index.
		for _, k := range sortedKeys(v) {
			items = append(items, v[k])
		}
	default:
		return subtasks, []error{&DecodeError{
			Key:    taskID,
			Reason: fmt.Sprintf("subtasks is %T, want list", v),
		}}
	}

	var problems []error
	for i, item := range items {
		key := taskID + "/subtasks/" + strconv.Itoa(i)
		doc, ok := item.(map[string]any)
		if !ok {
			if item != nil {
				problems = append(problems, &DecodeError{Key: key, Reason: fmt.Sprintf("subtask is %T, want object", item)})
			}
			continue
		}

		st := model.Subtask{}
		switch id := doc[fieldID].(type) {
		case string:
			st.ID = id
		case float64:
			st.ID = strconv.FormatFloat(id, 'f', -1, 64)
		}
		if st.ID == "" {
			problems = append(problems, &DecodeError{Key: key, Reason: "missing id"})
			continue
		}

		st.Text, _ = doc[fieldText].(string)
		if strings.TrimSpace(st.Text) == "" {
			problems = append(problems, &DecodeError{Key: key, Reason: "missing text"})
			continue
		}

		st.Completed, _ = doc[fieldCompleted].(bool)
		subtasks = append(subtasks, st)
	}
	return subtasks, problems
}

// asObject accepts an object, or a list whose indices stand in for keys.
func asObject(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case []any:
		m := make(map[string]any, len(x))
		for i, item := range x {
			if item != nil {
				m[strconv.Itoa(i)] = item
			}
		}
		return m, true
	default:
		return nil, false
	}
}

// sortedKeys puts all-numeric keys first, in numeric order, followed by
// the remaining keys in lexical order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// encodeTask is the document appended for a new task.
func encodeTask(text string, createdAt time.Time) map[string]any {
	return map[string]any{
		fieldText:      text,
		fieldCompleted: false,
		fieldCreatedAt: formatTime(createdAt),
		fieldSubtasks:  []any{},
	}
}

// encodeSubtasks renders the full subtask sequence for a replace update.
func encodeSubtasks(subtasks []model.Subtask) []any {
	out := make([]any, len(subtasks))
	for i, st := range subtasks {
		out[i] = map[string]any{
			fieldID:        st.ID,
			fieldText:      st.Text,
			fieldCompleted: st.Completed,
		}
	}
	return out
}
