package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/teamhub/internal/keys"
	"github.com/nhle/teamhub/internal/model"
	"github.com/nhle/teamhub/internal/theme"
)

// TasksLoadedMsg delivers a fresh task snapshot for the board's project.
type TasksLoadedMsg struct {
	ProjectID string
	Tasks     []model.Task
}

// MoveTaskMsg asks the app to change a task's status. Any source column
// may move to any destination column; the server has the final word.
type MoveTaskMsg struct {
	ProjectID string
	TaskID    string
	Status    model.TaskStatus
}

// CreateTaskMsg asks the app to create a task in the board's project.
type CreateTaskMsg struct {
	ProjectID string
	Request   model.TaskRequest
}

// RefreshMsg asks the app to refetch the board's tasks.
type RefreshMsg struct {
	ProjectID string
}

// AttachFileMsg asks the app to upload a local file and link it to a
// task.
type AttachFileMsg struct {
	ProjectID string
	TaskID    string
	Path      string
}

// taskFormBindings keeps huh field values stable across model copies.
type taskFormBindings struct {
	title    string
	priority int
	assignee string
	path     string
}

// Model is the kanban board view: one column per task status.
type Model struct {
	keys      *keys.KeyMap
	projectID string
	members   []model.User
	columns   map[model.TaskStatus][]model.Task
	column    int // index into model.TaskStatuses
	cursor    map[model.TaskStatus]int

	creating  bool
	attaching string // id of the task an attach form targets
	form      *huh.Form
	fb        *taskFormBindings

	width  int
	height int
}

// New creates an empty board for the given project. members backs the
// assignee picker in the new-task form.
func New(k *keys.KeyMap, projectID string, members []model.User, width, height int) Model {
	return Model{
		keys:      k,
		projectID: projectID,
		members:   members,
		columns:   make(map[model.TaskStatus][]model.Task),
		cursor:    make(map[model.TaskStatus]int),
		fb:        &taskFormBindings{priority: model.PriorityMedium},
		width:     width,
		height:    height,
	}
}

// ProjectID returns the project this board renders.
func (m Model) ProjectID() string {
	return m.projectID
}

// Init asks for the initial task load.
func (m Model) Init() tea.Cmd {
	projectID := m.projectID
	return func() tea.Msg {
		return RefreshMsg{ProjectID: projectID}
	}
}

// SetTasks replaces the board's contents with a fresh snapshot.
func (m *Model) SetTasks(tasks []model.Task) {
	m.columns = make(map[model.TaskStatus][]model.Task)
	for _, t := range tasks {
		m.columns[t.Status] = append(m.columns[t.Status], t)
	}
	for _, st := range model.TaskStatuses {
		if m.cursor[st] >= len(m.columns[st]) {
			m.cursor[st] = max(0, len(m.columns[st])-1)
		}
	}
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.creating || m.attaching != "" {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case TasksLoadedMsg:
		if msg.ProjectID == m.projectID {
			m.SetTasks(msg.Tasks)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.column > 0 {
			m.column--
		}
	case key.Matches(msg, m.keys.Right):
		if m.column < len(model.TaskStatuses)-1 {
			m.column++
		}
	case key.Matches(msg, m.keys.Down):
		st := m.currentStatus()
		if m.cursor[st] < len(m.columns[st])-1 {
			m.cursor[st]++
		}
	case key.Matches(msg, m.keys.Up):
		st := m.currentStatus()
		if m.cursor[st] > 0 {
			m.cursor[st]--
		}
	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.moveSelected(-1)
	case key.Matches(msg, m.keys.MoveRight):
		return m, m.moveSelected(+1)
	case key.Matches(msg, m.keys.NewTask):
		m.creating = true
		m.fb.title = ""
		m.fb.priority = model.PriorityMedium
		m.fb.assignee = ""
		m.form = m.buildTaskForm()
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Attach):
		st := m.currentStatus()
		if len(m.columns[st]) == 0 {
			return m, nil
		}
		m.attaching = m.columns[st][m.cursor[st]].ID
		m.fb.path = ""
		m.form = m.buildAttachForm()
		return m, m.form.Init()
	case key.Matches(msg, m.keys.Refresh):
		projectID := m.projectID
		return m, func() tea.Msg {
			return RefreshMsg{ProjectID: projectID}
		}
	}
	return m, nil
}

// moveSelected emits a MoveTaskMsg shifting the selected task one column
// over. The board does not mutate its own snapshot; the confirmed record
// comes back via TasksLoadedMsg after the store applies the update.
func (m Model) moveSelected(direction int) tea.Cmd {
	st := m.currentStatus()
	tasks := m.columns[st]
	if len(tasks) == 0 {
		return nil
	}

	target := m.column + direction
	if target < 0 || target >= len(model.TaskStatuses) {
		return nil
	}

	task := tasks[m.cursor[st]]
	dest := model.TaskStatuses[target]
	projectID := m.projectID
	return func() tea.Msg {
		return MoveTaskMsg{ProjectID: projectID, TaskID: task.ID, Status: dest}
	}
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.creating = false
		m.attaching = ""
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	if taskID := m.attaching; taskID != "" {
		m.attaching = ""
		path := strings.TrimSpace(m.fb.path)
		projectID := m.projectID
		return m, func() tea.Msg {
			return AttachFileMsg{ProjectID: projectID, TaskID: taskID, Path: path}
		}
	}

	m.creating = false
	req := model.TaskRequest{
		Title:      strings.TrimSpace(m.fb.title),
		Status:     m.currentStatus(),
		Priority:   m.fb.priority,
		AssigneeID: m.fb.assignee,
	}
	projectID := m.projectID
	return m, func() tea.Msg {
		return CreateTaskMsg{ProjectID: projectID, Request: req}
	}
}

// buildTaskForm constructs the new-task form. The title must be
// non-empty before any network call is made.
func (m *Model) buildTaskForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task title").
				Value(&m.fb.title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewSelect[int]().
				Title("Priority").
				Options(
					huh.NewOption("Critical", model.PriorityCritical),
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Medium", model.PriorityMedium),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewSelect[string]().
				Title("Assignee").
				Options(m.assigneeOptions()...).
				Value(&m.fb.assignee),
		),
	).WithShowHelp(false)
}

// assigneeOptions lists the project members plus an unassigned choice.
func (m *Model) assigneeOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(m.members)+1)
	opts = append(opts, huh.NewOption("Unassigned", ""))
	for _, u := range m.members {
		opts = append(opts, huh.NewOption(u.DisplayName(), u.ID))
	}
	return opts
}

// buildAttachForm asks for a local file path to upload to the selected
// task.
func (m *Model) buildAttachForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("File path").
				Value(&m.fb.path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)
}

// View renders the three board columns side by side.
func (m Model) View() string {
	if m.creating || m.attaching != "" {
		panel := theme.PanelStyle.Width(48).Render(m.form.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
	}

	colWidth := m.width/len(model.TaskStatuses) - 2
	if colWidth < 16 {
		colWidth = 16
	}

	rendered := make([]string, 0, len(model.TaskStatuses))
	for i, st := range model.TaskStatuses {
		rendered = append(rendered, m.renderColumn(st, i == m.column, colWidth))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(st model.TaskStatus, focused bool, width int) string {
	header := theme.StatusStyle(st).Render(
		fmt.Sprintf("%s (%d)", columnTitle(st), len(m.columns[st])),
	)

	lines := []string{header}
	for i, t := range m.columns[st] {
		label := t.Title
		if t.Priority == model.PriorityCritical || t.Priority == model.PriorityHigh {
			label = theme.PriorityStyle(t.Priority).Render("! ") + label
		}
		if n := len(t.Attachments); n > 0 {
			label += theme.HelpStyle.Render(fmt.Sprintf(" [%d]", n))
		}
		if focused && i == m.cursor[st] {
			lines = append(lines, theme.SelectedItemStyle.Render(label))
		} else {
			lines = append(lines, lipgloss.NewStyle().PaddingLeft(2).Render(label))
		}
	}

	style := theme.PanelStyle
	if focused {
		style = theme.FocusedPanelStyle
	}
	return style.
		Width(width).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) currentStatus() model.TaskStatus {
	return model.TaskStatuses[m.column]
}

func columnTitle(st model.TaskStatus) string {
	switch st {
	case model.StatusToDo:
		return "To Do"
	case model.StatusInProgress:
		return "In Progress"
	case model.StatusDone:
		return "Done"
	default:
		return string(st)
	}
}

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
