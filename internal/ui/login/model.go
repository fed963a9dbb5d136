package login

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/teamhub/internal/theme"
)

// SubmitMsg is dispatched when the user completes the login form with
// valid input.
type SubmitMsg struct {
	Username string
	Password string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	username string
	password string
}

// Model is the login form view.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	errText string
	busy    bool
	width   int
	height  int
}

// New creates a login form model.
func New(width, height int) Model {
	m := Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

// buildForm constructs the credential form. Emptiness is validated here,
// before any network call is attempted.
func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("username is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),
		),
	).WithShowHelp(false)
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// SetError displays a failed-login message and re-arms the form so the
// user can retry the same submission.
func (m *Model) SetError(text string) {
	m.errText = text
	m.busy = false
	m.form = m.buildForm()
}

// Update handles messages for the login form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.busy = true
		return m, func() tea.Msg {
			return SubmitMsg{
				Username: strings.TrimSpace(m.fb.username),
				Password: m.fb.password,
			}
		}
	}

	return m, cmd
}

// View renders the login form centered in the available area.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBlue).
		MarginBottom(1).
		Render("TeamHub")

	parts := []string{title, m.form.View()}
	if m.busy {
		parts = append(parts, theme.HelpStyle.Render("signing in..."))
	}
	if m.errText != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errText))
	}

	panel := theme.PanelStyle.Width(44).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
