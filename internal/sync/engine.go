// Package sync keeps a user's task list in step with the remote store.
//
// An Engine subscribes to the user's task collection and replaces its
// snapshot wholesale with every notification. Mutations are sent to the
// store and are not applied locally: the snapshot changes only when the
// store echoes the new state back.
package sync

import (
	"context"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/nhle/tasksync/internal/model"
	"github.com/nhle/tasksync/internal/remote"
)

// DefaultRoot is the collection that holds every user's tasks.
const DefaultRoot = "tasks"

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for createdAt and completedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRoot sets the collection path under which user documents live.
func WithRoot(root string) Option {
	return func(e *Engine) { e.root = root }
}

// WithSubtaskIDs sets the subtask id generator.
func WithSubtaskIDs(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithOnChange registers fn to be called with every new snapshot.
// fn runs on the store's delivery goroutine and must not block for long.
func WithOnChange(fn func([]model.Task)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// Engine owns the task snapshot of the active user.
type Engine struct {
	store    remote.Store
	root     string
	now      func() time.Time
	ids      IDGenerator
	logger   *slog.Logger
	onChange func([]model.Task)

	mu       gosync.Mutex
	userID   string
	snapshot []model.Task
	gen      uint64
	unsub    remote.Unsubscribe

	updates chan SnapshotMsg
}

// New creates an Engine backed by store. The engine is inert until
// StartSync is called.
func New(store remote.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		root:     DefaultRoot,
		now:      time.Now,
		snapshot: []model.Task{},
		updates:  make(chan SnapshotMsg, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.ids == nil {
		e.ids = NewSubtaskIDs(e.now)
	}
	return e
}

// StartSync attaches the engine to userID's task collection. Any previous
// subscription is detached and its snapshot discarded first. The first
// snapshot arrives asynchronously once the store delivers it.
func (e *Engine) StartSync(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrAuthRequired
	}
	if err := remote.ValidateKey(userID); err != nil {
		return err
	}
	path := remote.Join(e.root, userID)

	e.mu.Lock()
	prev := e.unsub
	e.gen++
	gen := e.gen
	e.userID = userID
	e.snapshot = []model.Task{}
	e.unsub = nil
	e.mu.Unlock()

	if prev != nil {
		prev()
	}

	unsub, err := e.store.Subscribe(ctx, path, func(v any) {
		e.apply(gen, path, v)
	})
	if err != nil {
		e.mu.Lock()
		if e.gen == gen {
			e.userID = ""
		}
		e.mu.Unlock()
		return e.failed("subscribe", path, err)
	}

	e.mu.Lock()
	if e.gen != gen {
		// Another StartSync or StopSync ran while subscribing.
		e.mu.Unlock()
		unsub()
		return nil
	}
	e.unsub = unsub
	e.mu.Unlock()

	e.logger.Info("sync started", "user", userID, "path", path)
	return nil
}

// StopSync detaches the listener, clears the active user and discards the
// snapshot. It is safe to call when no sync is running.
func (e *Engine) StopSync() {
	e.mu.Lock()
	unsub := e.unsub
	userID := e.userID
	e.gen++
	e.unsub = nil
	e.userID = ""
	e.snapshot = []model.Task{}
	e.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if userID != "" {
		e.logger.Info("sync stopped", "user", userID)
	}
}

// Snapshot returns the current task list. The returned slice is never
// modified by the engine.
func (e *Engine) Snapshot() []model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// UserID returns the active user, or "" when the engine is inert.
func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// Task looks up a task in the current snapshot.
func (e *Engine) Task(id string) (model.Task, bool) {
	_, tasks := e.session()
	return findTask(tasks, id)
}

// apply replaces the snapshot with a decoded notification unless the
// session that subscribed has since ended.
func (e *Engine) apply(gen uint64, path string, v any) {
	tasks, problems := Decode(v)
	for _, p := range problems {
		e.logger.Warn("skipping malformed remote data", "path", path, "error", p)
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.snapshot = tasks
	userID := e.userID
	onChange := e.onChange
	e.publish(SnapshotMsg{UserID: userID, Tasks: tasks})
	e.mu.Unlock()

	e.logger.Debug("snapshot replaced", "user", userID, "tasks", len(tasks))
	if onChange != nil {
		onChange(tasks)
	}
}

// AddTask creates a task with the trimmed text and returns its key. It
// does nothing when the text is blank or no user is active.
func (e *Engine) AddTask(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	userID, _ := e.session()
	if userID == "" {
		e.skipped("add task", ErrAuthRequired)
		return "", nil
	}
	if text == "" {
		e.skipped("add task", ErrValidation)
		return "", nil
	}

	path := e.userPath(userID)
	id, err := e.store.Append(ctx, path, encodeTask(text, e.now()))
	if err != nil {
		return "", e.failed("append", path, err)
	}
	e.logger.Debug("task added", "id", id)
	return id, nil
}

// DeleteTask removes the task and its subtasks. Deleting a task that does
// not exist is not an error.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	path, ok := e.taskPath("delete task", id)
	if !ok {
		return nil
	}
	if err := e.store.Remove(ctx, path); err != nil {
		return e.failed("remove", path, err)
	}
	return nil
}

// ToggleTaskCompletion sets completed to !currentStatus and stamps or
// clears completedAt. currentStatus is trusted as given.
func (e *Engine) ToggleTaskCompletion(ctx context.Context, id string, currentStatus bool) error {
	path, ok := e.taskPath("toggle task", id)
	if !ok {
		return nil
	}

	fields := map[string]any{
		fieldCompleted:   !currentStatus,
		fieldCompletedAt: nil,
	}
	if !currentStatus {
		fields[fieldCompletedAt] = formatTime(e.now())
	}
	return e.update(ctx, path, fields)
}

// EditTask replaces the task's text with the trimmed newText. It does
// nothing when newText is blank.
func (e *Engine) EditTask(ctx context.Context, id, newText string) error {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		e.skipped("edit task", ErrValidation)
		return nil
	}
	path, ok := e.taskPath("edit task", id)
	if !ok {
		return nil
	}
	return e.update(ctx, path, map[string]any{fieldText: newText})
}

// AddSubtask appends a subtask to the task as last seen in the snapshot
// and writes back the whole subtask list. Two clients adding concurrently
// may overwrite each other; the last write wins.
func (e *Engine) AddSubtask(ctx context.Context, taskID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		e.skipped("add subtask", ErrValidation)
		return nil
	}
	path, ok := e.taskPath("add subtask", taskID)
	if !ok {
		return nil
	}
	_, tasks := e.session()
	task, found := findTask(tasks, taskID)
	if !found {
		e.skipped("add subtask", ErrNotFound)
		return nil
	}

	subtasks := make([]model.Subtask, 0, len(task.Subtasks)+1)
	subtasks = append(subtasks, task.Subtasks...)
	subtasks = append(subtasks, model.Subtask{
		ID:   e.ids.Next(task.Subtasks),
		Text: text,
	})

	return e.update(ctx, path, map[string]any{
		fieldSubtasks: encodeSubtasks(subtasks),
	})
}

// ToggleSubtask flips one subtask and, in the same write, sets the task's
// completed flag to whether every subtask is now complete.
func (e *Engine) ToggleSubtask(ctx context.Context, taskID, subtaskID string) error {
	path, ok := e.taskPath("toggle subtask", taskID)
	if !ok {
		return nil
	}
	_, tasks := e.session()
	task, found := findTask(tasks, taskID)
	if !found {
		e.skipped("toggle subtask", ErrNotFound)
		return nil
	}

	subtasks := make([]model.Subtask, len(task.Subtasks))
	copy(subtasks, task.Subtasks)
	found = false
	for i := range subtasks {
		if subtasks[i].ID == subtaskID {
			subtasks[i].Completed = !subtasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		e.skipped("toggle subtask", ErrNotFound)
		return nil
	}

	return e.update(ctx, path, map[string]any{
		fieldSubtasks:  encodeSubtasks(subtasks),
		fieldCompleted: model.AllSubtasksCompleted(subtasks),
	})
}

func (e *Engine) update(ctx context.Context, path string, fields map[string]any) error {
	if err := e.store.Update(ctx, path, fields); err != nil {
		return e.failed("update", path, err)
	}
	return nil
}

// session returns the active user and the snapshot as one consistent pair.
func (e *Engine) session() (string, []model.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID, e.snapshot
}

func (e *Engine) userPath(userID string) string {
	return remote.Join(e.root, userID)
}

// taskPath resolves the document path of task id for the active user.
// It reports false, after logging why, when the mutation must be skipped.
func (e *Engine) taskPath(op, id string) (string, bool) {
	userID, _ := e.session()
	if userID == "" {
		e.skipped(op, ErrAuthRequired)
		return "", false
	}
	if err := remote.ValidateKey(id); err != nil {
		e.skipped(op, ErrValidation)
		return "", false
	}
	return remote.Join(e.userPath(userID), id), true
}

func (e *Engine) skipped(op string, reason error) {
	e.logger.Debug("mutation skipped", "op", op, "reason", reason)
}

func (e *Engine) failed(op, path string, err error) error {
	e.logger.Warn("remote command failed", "op", op, "path", path, "error", err)
	return &CommandError{Op: op, Path: path, Err: err}
}

func findTask(tasks []model.Task, id string) (model.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}
