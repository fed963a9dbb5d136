package notifications

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/teamhub/internal/keys"
	"github.com/nhle/teamhub/internal/model"
	"github.com/nhle/teamhub/internal/theme"
)

// ListUpdatedMsg delivers the current notification snapshot, newest first.
type ListUpdatedMsg struct {
	Notifications []model.Notification
	UnreadCount   int
}

// MarkReadMsg asks the app to mark a notification as read.
type MarkReadMsg struct {
	NotificationID string
}

// RefreshMsg asks the app to refetch notifications.
type RefreshMsg struct{}

// Model is the notification list view.
type Model struct {
	keys          *keys.KeyMap
	notifications []model.Notification
	unread        int
	cursor        int
	width         int
	height        int
}

// New creates an empty notification list view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init asks for the initial notification load.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{}
	}
}

// SetNotifications replaces the rendered snapshot.
func (m *Model) SetNotifications(list []model.Notification, unread int) {
	m.notifications = list
	m.unread = unread
	if m.cursor >= len(list) {
		m.cursor = max(0, len(list)-1)
	}
}

// Update handles messages for the notification view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ListUpdatedMsg:
		m.SetNotifications(msg.Notifications, msg.UnreadCount)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.notifications)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.MarkRead):
			if m.cursor < len(m.notifications) {
				n := m.notifications[m.cursor]
				if !n.IsRead {
					id := n.ID
					return m, func() tea.Msg {
						return MarkReadMsg{NotificationID: id}
					}
				}
			}
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg {
				return RefreshMsg{}
			}
		}
	}

	return m, nil
}

// View renders the notification list, newest first.
func (m Model) View() string {
	header := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("Notifications (%d unread)", m.unread),
	)

	lines := []string{header, ""}
	if len(m.notifications) == 0 {
		lines = append(lines, theme.HelpStyle.Render("no notifications"))
	}
	for i, n := range m.notifications {
		ts := n.CreatedAt.Format("Jan 2 15:04")
		text := fmt.Sprintf("%s  %s", ts, n.Message)

		var line string
		switch {
		case i == m.cursor:
			line = theme.SelectedItemStyle.Render(text)
		case !n.IsRead:
			line = theme.UnreadStyle.Render("● " + text)
		default:
			line = "  " + theme.HelpStyle.Render(text)
		}
		lines = append(lines, line)
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
