package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasksync/internal/auth"
	"github.com/nhle/tasksync/internal/keys"
	"github.com/nhle/tasksync/internal/model"
	appsync "github.com/nhle/tasksync/internal/sync"
	"github.com/nhle/tasksync/internal/theme"
	"github.com/nhle/tasksync/internal/ui"
	helpview "github.com/nhle/tasksync/internal/ui/help"
	"github.com/nhle/tasksync/internal/ui/tasklist"
)

// Engine is the part of the synchronization engine the UI drives.
type Engine interface {
	StartSync(ctx context.Context, userID string) error
	StopSync()
	UserID() string
	WaitForSnapshot() tea.Cmd

	AddTask(ctx context.Context, text string) (string, error)
	DeleteTask(ctx context.Context, id string) error
	ToggleTaskCompletion(ctx context.Context, id string, currentStatus bool) error
	EditTask(ctx context.Context, id, newText string) error
	AddSubtask(ctx context.Context, taskID, text string) error
	ToggleSubtask(ctx context.Context, taskID, subtaskID string) error
}

// Session is the signed-in identity, which the UI can also end.
type Session interface {
	auth.Identity
	SignOut() error
}

// mode is what the keyboard currently drives.
type mode int

const (
	modeList mode = iota
	modeAddTask
	modeEditTask
	modeAddSubtask
	modeConfirmDelete
)

// Model is the root Bubble Tea model: the task list plus the prompts for
// adding, editing and deleting.
type Model struct {
	engine  Engine
	session Session
	timeout time.Duration

	keys   *keys.KeyMap
	help   help.Model
	layout ui.Layout
	list   tasklist.Model
	input  textinput.Model

	mode mode
	// target is the task the open prompt acts on.
	target model.Task

	// showHelp replaces the screen with the shortcut overlay.
	showHelp bool

	err       error
	ready     bool
	LoggedOut bool
}

// New creates the root model. timeout bounds each remote command.
func New(engine Engine, session Session, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(theme.ColorPlaceholder)

	h := help.New()
	h.Styles.ShortKey = theme.HelpStyle
	h.Styles.ShortDesc = theme.HelpStyle

	return Model{
		engine:  engine,
		session: session,
		timeout: timeout,
		keys:    keys.DefaultKeyMap(),
		help:    h,
		layout:  ui.NewLayout(80, 24),
		list:    tasklist.New(80, 20),
		input:   ti,
	}
}

// Init starts syncing the signed-in user and listens for snapshots.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.startSync(),
		m.engine.WaitForSnapshot(),
	)
}

// Update handles messages and routes keys by mode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.input.Width = msg.Width - 6
		m.ready = true
		m.resizeList()
		return m, nil

	case appsync.SnapshotMsg:
		var cmd tea.Cmd
		if msg.UserID == m.engine.UserID() {
			cmd = m.list.SetTasks(msg.Tasks)
		}
		return m, tea.Batch(cmd, m.engine.WaitForSnapshot())

	case syncStartedMsg:
		m.err = msg.err
		return m, nil

	case commandResultMsg:
		m.err = msg.err
		return m, nil

	case loggedOutMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.LoggedOut = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.engine.StopSync()
			return m, tea.Quit
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}

		switch m.mode {
		case modeAddTask, modeEditTask, modeAddSubtask:
			return m.updatePrompt(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}

	if m.mode != modeList {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	row, hasRow := m.list.Selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.StopSync()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.list.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.list.CursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Add):
		return m.openPrompt(modeAddTask, model.Task{}, "Add a new task...", "")

	case key.Matches(msg, m.keys.AddSubtask):
		if hasRow {
			return m.openPrompt(modeAddSubtask, row.Task, "Add subtask...", "")
		}

	case key.Matches(msg, m.keys.Edit):
		if hasRow && !row.IsSubtask() {
			return m.openPrompt(modeEditTask, row.Task, "Edit task...", row.Task.Text)
		}

	case key.Matches(msg, m.keys.Toggle):
		if !hasRow {
			return m, nil
		}
		if row.IsSubtask() {
			return m, m.toggleSubtask(row.Task.ID, row.Subtask.ID)
		}
		return m, m.toggleTask(row.Task.ID, row.Task.Completed)

	case key.Matches(msg, m.keys.Delete):
		if hasRow && !row.IsSubtask() {
			m.mode = modeConfirmDelete
			m.target = row.Task
			m.resizeList()
		}
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		return m, m.logout()
	}

	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.closePrompt(), nil

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		target := m.target
		var cmd tea.Cmd
		switch m.mode {
		case modeAddTask:
			cmd = m.addTask(text)
		case modeEditTask:
			cmd = m.editTask(target.ID, text)
		case modeAddSubtask:
			cmd = m.addSubtask(target.ID, text)
		}
		return m.closePrompt(), cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Confirm) {
		id := m.target.ID
		return m.closePrompt(), m.deleteTask(id)
	}
	return m.closePrompt(), nil
}

func (m Model) openPrompt(md mode, target model.Task, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.target = target
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.resizeList()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) closePrompt() Model {
	m.mode = modeList
	m.target = model.Task{}
	m.input.Blur()
	m.input.Reset()
	m.resizeList()
	return m
}

func (m *Model) resizeList() {
	m.list.SetSize(m.layout.Width, m.layout.ContentHeight(lipgloss.Height(m.footer())))
}

// View renders the header, list and footer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return helpview.New(m.keys, m.layout.Width, m.layout.Height).View()
	}

	user, _ := m.session.CurrentUser()
	header := m.layout.RenderHeader("My Tasks", user)
	return m.layout.RenderWithFrame(header, m.list.View(), m.footer())
}

// footer renders whatever sits below the list: an open prompt, the last
// error, and the key help.
func (m Model) footer() string {
	var parts []string

	switch m.mode {
	case modeAddTask, modeEditTask, modeAddSubtask:
		title := map[mode]string{
			modeAddTask:    "New task",
			modeEditTask:   "Edit task",
			modeAddSubtask: "New subtask for " + m.target.Text,
		}[m.mode]
		parts = append(parts, theme.PromptStyle.Render(title+"\n"+m.input.View()))
	case modeConfirmDelete:
		parts = append(parts, theme.PromptStyle.Render(
			"Delete task \""+m.target.Text+"\"?\n"+
				lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("y delete")+
				"  any other key cancels",
		))
	}

	if m.err != nil {
		parts = append(parts, theme.ErrorStyle.Render(m.err.Error()))
	}
	parts = append(parts, theme.StatusBarStyle.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
