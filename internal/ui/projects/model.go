package projects

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

// LoadedMsg delivers the project list plus the org's teams for the
// read-only directory section.
type LoadedMsg struct {
	Projects []model.Project
	Teams    []model.Team
}

// SelectedMsg announces the project the user picked.
type SelectedMsg struct {
	Project model.Project
}

// RefreshMsg asks the app to refetch the project list.
type RefreshMsg struct{}

// CreateMsg asks the app to create a project. Only emitted when the
// picker was built with management rights.
type CreateMsg struct {
	Request model.ProjectRequest
}

// projectFormBindings keeps huh field values stable across model copies.
type projectFormBindings struct {
	name        string
	description string
}

// Model is the project picker shown after sign-in. canManage reflects
// the session's role set; without it the create form simply does not
// exist and the picker stays a read-only list.
type Model struct {
	keys      *keys.KeyMap
	projects  []model.Project
	teams     []model.Team
	cursor    int
	canManage bool

	creating bool
	form     *huh.Form
	fb       *projectFormBindings

	width  int
	height int
}

// New creates an empty project picker.
func New(k *keys.KeyMap, canManage bool, width, height int) Model {
	return Model{
		keys:      k,
		canManage: canManage,
		fb:        &projectFormBindings{},
		width:     width,
		height:    height,
	}
}

// Init asks for the initial project load.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{}
	}
}

// SetProjects replaces the listed projects.
func (m *Model) SetProjects(projects []model.Project) {
	m.projects = projects
	if m.cursor >= len(projects) {
		m.cursor = max(0, len(projects)-1)
	}
}

// SetTeams replaces the listed teams.
func (m *Model) SetTeams(teams []model.Team) {
	m.teams = teams
}

// Update handles messages for the project picker.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.creating {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case LoadedMsg:
		m.SetProjects(msg.Projects)
		m.SetTeams(msg.Teams)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.projects)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Select):
			if m.cursor < len(m.projects) {
				p := m.projects[m.cursor]
				return m, func() tea.Msg {
					return SelectedMsg{Project: p}
				}
			}
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg {
				return RefreshMsg{}
			}
		case key.Matches(msg, m.keys.NewTask):
			if !m.canManage {
				return m, nil
			}
			m.creating = true
			m.fb.name = ""
			m.fb.description = ""
			m.form = m.buildProjectForm()
			return m, m.form.Init()
		}
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.creating = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.creating = false
		req := model.ProjectRequest{
			Name:        strings.TrimSpace(m.fb.name),
			Description: strings.TrimSpace(m.fb.description),
		}
		return m, func() tea.Msg {
			return CreateMsg{Request: req}
		}
	}

	return m, cmd
}

// buildProjectForm constructs the new-project form. The name must be
// non-empty before any network call is made.
func (m *Model) buildProjectForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Value(&m.fb.description),
		),
	).WithShowHelp(false)
}

// View renders the project list, or the create form while it is open.
func (m Model) View() string {
	if m.creating {
		panel := theme.PanelStyle.Width(48).Render(m.form.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
	}

	header := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("Projects (%d)", len(m.projects)),
	)

	lines := []string{header, ""}
	if len(m.projects) == 0 {
		lines = append(lines, theme.HelpStyle.Render("no projects yet"))
	}
	for i, p := range m.projects {
		label := p.Name
		if p.Description != "" {
			label += "  " + theme.HelpStyle.Render(p.Description)
		}
		if i == m.cursor {
			lines = append(lines, theme.SelectedItemStyle.Render(p.Name))
		} else {
			lines = append(lines, lipgloss.NewStyle().PaddingLeft(2).Render(label))
		}
	}

	if len(m.teams) > 0 {
		lines = append(lines, "", lipgloss.NewStyle().Bold(true).Render("Teams"))
		for _, team := range m.teams {
			label := fmt.Sprintf("%s  %s", team.Name,
				theme.HelpStyle.Render(fmt.Sprintf("%d members", len(team.Members))))
			lines = append(lines, lipgloss.NewStyle().PaddingLeft(2).Render(label))
		}
	}

	return theme.PanelStyle.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
