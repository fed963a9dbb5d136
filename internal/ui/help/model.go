package help

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/teamhub/internal/keys"
	"github.com/nhle/teamhub/internal/theme"
)

// Model is the help overlay: every keybinding, grouped under titled
// sections, rendered side by side.
type Model struct {
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   keys,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	sectionTitle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBlue)

	columns := make([]string, 0, 8)
	for _, sec := range m.keys.Sections() {
		columns = append(columns, m.renderSection(sec, sectionTitle))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	content := lipgloss.JoinVertical(lipgloss.Left, title, body)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// renderSection lays out one titled column: the key column is padded to
// the section's widest key so descriptions line up.
func (m Model) renderSection(sec keys.Section, titleStyle lipgloss.Style) string {
	keyWidth := 0
	for _, b := range sec.Bindings {
		if w := lipgloss.Width(b.Help().Key); w > keyWidth {
			keyWidth = w
		}
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(sec.Title))
	sb.WriteString("\n")
	for _, b := range sec.Bindings {
		h := b.Help()
		sb.WriteString(theme.HelpKeyStyle.Width(keyWidth + 2).Render(h.Key))
		sb.WriteString(theme.HelpStyle.Render(h.Desc))
		sb.WriteString("\n")
	}

	return lipgloss.NewStyle().MarginRight(4).Render(sb.String())
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
