package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/teamhub/internal/keys"
	"github.com/nhle/teamhub/internal/model"
	"github.com/nhle/teamhub/internal/theme"
)

// MessagesUpdatedMsg delivers the current message snapshot for a project,
// after a fetch, a local send, or a push merge.
type MessagesUpdatedMsg struct {
	ProjectID string
	Messages  []model.ChatMessage
}

// SendIntentMsg asks the app to send a message in the view's project.
type SendIntentMsg struct {
	ProjectID string
	Content   string
}

// Model is the project chat view: a scrollback viewport over the store
// snapshot plus a compose line. Optimistic records render immediately in
// a pending style until the server copy replaces them.
type Model struct {
	keys          *keys.KeyMap
	projectID     string
	currentUserID string
	messages      []model.ChatMessage
	viewport      viewport.Model
	input         textinput.Model
	width         int
	height        int
}

// New creates a chat view for the given project.
func New(k *keys.KeyMap, projectID, currentUserID string, width, height int) Model {
	vp := viewport.New(width-2, height-5)

	ti := textinput.New()
	ti.Placeholder = "message..."
	ti.Prompt = "> "
	ti.Width = width - 6
	ti.Focus()

	return Model{
		keys:          k,
		projectID:     projectID,
		currentUserID: currentUserID,
		viewport:      vp,
		input:         ti,
		width:         width,
		height:        height,
	}
}

// ProjectID returns the project scope this view renders.
func (m Model) ProjectID() string {
	return m.projectID
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetMessages replaces the rendered snapshot and scrolls to the bottom.
func (m *Model) SetMessages(messages []model.ChatMessage) {
	m.messages = messages
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

// Update handles messages for the chat view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MessagesUpdatedMsg:
		if msg.ProjectID == m.projectID {
			m.SetMessages(msg.Messages)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			content := strings.TrimSpace(m.input.Value())
			if content == "" {
				// Nothing to send; the network layer never sees empty
				// payloads.
				return m, nil
			}
			m.input.Reset()
			projectID := m.projectID
			return m, func() tea.Msg {
				return SendIntentMsg{ProjectID: projectID, Content: content}
			}
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// renderMessages formats the scrollback in insertion order.
func (m Model) renderMessages() string {
	var b strings.Builder
	for _, msg := range m.messages {
		sender := msg.Sender.DisplayName()
		ts := msg.Timestamp.Format("15:04")

		line := fmt.Sprintf("%s %s  %s", theme.HelpStyle.Render(ts),
			lipgloss.NewStyle().Bold(true).Render(sender), msg.Content)

		switch {
		case msg.IsPending():
			b.WriteString(theme.PendingStyle.Render(line + " (sending)"))
		case msg.Sender.ID == m.currentUserID:
			b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorBlue).Render(line))
		default:
			b.WriteString(line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the scrollback and the compose line.
func (m Model) View() string {
	scrollback := theme.PanelStyle.
		Width(m.width - 2).
		Height(m.height - 4).
		Render(m.viewport.View())

	compose := theme.PanelStyle.
		Width(m.width - 2).
		Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, scrollback, compose)
}

// SetSize updates the chat view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 4
	m.viewport.Height = height - 5
	m.input.Width = width - 6
}
