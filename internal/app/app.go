// Package app wires the stores, the realtime channel, and the views into
// a single Bubble Tea program. All store calls run inside tea.Cmd
// closures; push-delivered events and channel state transitions are
// bridged onto the update loop through dedicated wait commands.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/teamhub/internal/api"
	"github.com/nhle/teamhub/internal/keys"
	"github.com/nhle/teamhub/internal/model"
	"github.com/nhle/teamhub/internal/realtime"
	"github.com/nhle/teamhub/internal/session"
	"github.com/nhle/teamhub/internal/store"
	"github.com/nhle/teamhub/internal/theme"
	"github.com/nhle/teamhub/internal/ui"
	"github.com/nhle/teamhub/internal/ui/board"
	"github.com/nhle/teamhub/internal/ui/chat"
	"github.com/nhle/teamhub/internal/ui/help"
	"github.com/nhle/teamhub/internal/ui/login"
	"github.com/nhle/teamhub/internal/ui/notifications"
	"github.com/nhle/teamhub/internal/ui/projects"
)

type view int

const (
	viewLogin view = iota
	viewProjects
	viewBoard
	viewChat
	viewNotifications
	viewHelp
)

// Stores bundles the domain stores the app operates on.
type Stores struct {
	Session       *session.Store
	Chat          *store.ChatStore
	Tasks         *store.TaskStore
	Notifications *store.NotificationStore
	Directory     *store.DirectoryStore
}

type sessionRestoredMsg struct {
	status session.Status
}

type userLoadedMsg struct {
	user *model.User
	err  error
}

type loginResultMsg struct {
	err error
}

type connStateMsg struct {
	state realtime.State
}

type chatPushMsg struct {
	projectID string
	message   model.ChatMessage
}

type notificationPushMsg struct {
	notification model.Notification
}

type errMsg struct {
	err error
}

// App is the root Bubble Tea model.
type App struct {
	keys    *keys.KeyMap
	log     *slog.Logger
	stores  Stores
	channel *realtime.Channel

	layout ui.Layout
	active view
	prev   view

	login         login.Model
	projectPicker projects.Model
	board         board.Model
	chatView      chat.Model
	notifView     notifications.Model
	helpView      help.Model

	project    model.Project
	hasProject bool

	chatSub  *realtime.Subscription
	notifSub *realtime.Subscription

	themeMode string
	saveTheme func(mode string) error

	connState realtime.State
	errText   string

	// pushCh carries events from the channel's read goroutine onto the
	// update loop. Handlers send without blocking; a full buffer drops.
	pushCh chan tea.Msg
}

// New creates the root model. The realtime channel must already be
// started; the app only subscribes and watches its transitions.
// saveTheme persists the cycled theme preference and may be nil.
func New(
	k *keys.KeyMap,
	stores Stores,
	channel *realtime.Channel,
	themeMode string,
	saveTheme func(mode string) error,
	log *slog.Logger,
) App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	layout := ui.NewLayout(80, 24)
	return App{
		keys:          k,
		log:           log,
		stores:        stores,
		channel:       channel,
		themeMode:     themeMode,
		saveTheme:     saveTheme,
		layout:        layout,
		active:        viewLogin,
		login:         login.New(layout.ContentWidth(), layout.ContentHeight()),
		projectPicker: projects.New(k, false, layout.ContentWidth(), layout.ContentHeight()),
		notifView:     notifications.New(k, layout.ContentWidth(), layout.ContentHeight()),
		helpView:      help.New(k, layout.ContentWidth(), layout.ContentHeight()),
		pushCh:        make(chan tea.Msg, 64),
	}
}

// Init restores the persisted session and starts the bridge commands.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.restoreSession(),
		a.waitForTransition(),
		a.waitForPush(),
		a.login.Init(),
	)
}

func (a App) restoreSession() tea.Cmd {
	return func() tea.Msg {
		return sessionRestoredMsg{status: a.stores.Session.Restore()}
	}
}

// waitForTransition blocks on the channel's state announcements and
// re-arms itself after each one.
func (a App) waitForTransition() tea.Cmd {
	return func() tea.Msg {
		state, ok := <-a.channel.Transitions()
		if !ok {
			return nil
		}
		return connStateMsg{state: state}
	}
}

// waitForPush blocks on the push bridge and re-arms itself.
func (a App) waitForPush() tea.Cmd {
	return func() tea.Msg {
		return <-a.pushCh
	}
}

// push forwards an event from a realtime handler to the update loop
// without blocking the channel's read goroutine.
func (a App) push(msg tea.Msg) {
	select {
	case a.pushCh <- msg:
	default:
		a.log.Warn("push buffer full, dropping event")
	}
}

// Update handles all messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		a.errText = ""
		if cmd, handled := a.handleGlobalKeys(msg); handled {
			return a, cmd
		}

	case sessionRestoredMsg:
		if msg.status == session.StatusAuthenticating {
			return a, a.loadCurrentUser()
		}
		a.active = viewLogin
		return a, nil

	case userLoadedMsg:
		return a.handleUserLoaded(msg)

	case loginResultMsg:
		if msg.err != nil {
			a.login.SetError(loginErrorText(msg.err))
			return a, nil
		}
		return a, a.loadCurrentUser()

	case connStateMsg:
		a.connState = msg.state
		cmds := []tea.Cmd{a.waitForTransition()}
		if msg.state == realtime.StateConnected {
			// Subscriptions do not survive a reconnect; re-issue them.
			a.subscribeAll()
		}
		return a, tea.Batch(cmds...)

	case chatPushMsg:
		a.stores.Chat.AddMessage(msg.projectID, msg.message)
		cmds := []tea.Cmd{a.waitForPush()}
		if a.hasProject && msg.projectID == a.project.ID {
			cmds = append(cmds, a.chatSnapshot(msg.projectID))
		}
		return a, tea.Batch(cmds...)

	case notificationPushMsg:
		a.stores.Notifications.AddNotification(msg.notification)
		return a, tea.Batch(a.waitForPush(), a.notificationSnapshot())

	case errMsg:
		if msg.err != nil {
			a.errText = msg.err.Error()
			if errors.Is(msg.err, api.ErrSessionExpired) {
				a.active = viewLogin
				a.login = login.New(a.layout.ContentWidth(), a.layout.ContentHeight())
				return a, a.login.Init()
			}
		}
		return a, nil

	case login.SubmitMsg:
		return a, a.doLogin(msg.Username, msg.Password)

	case projects.RefreshMsg:
		return a, a.fetchProjects()

	case projects.CreateMsg:
		return a, a.createProject(msg.Request)

	case projects.SelectedMsg:
		return a.selectProject(msg.Project)

	case board.RefreshMsg:
		return a, a.fetchTasks(msg.ProjectID)

	case board.MoveTaskMsg:
		return a, a.moveTask(msg)

	case board.CreateTaskMsg:
		return a, a.createTask(msg)

	case board.AttachFileMsg:
		return a, a.attachFile(msg)

	case chat.SendIntentMsg:
		return a, a.sendMessage(msg)

	case notifications.RefreshMsg:
		return a, a.fetchNotifications()

	case notifications.MarkReadMsg:
		return a, a.markNotificationRead(msg.NotificationID)
	}

	return a.updateActiveView(msg)
}

// handleGlobalKeys routes view-switch keys. Text-entry views (login,
// chat) keep all printable keys for themselves.
func (a *App) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	if a.active == viewLogin {
		return nil, false
	}

	if key.Matches(msg, a.keys.Back) {
		switch a.active {
		case viewHelp:
			a.active = a.prev
		case viewChat:
			a.leaveChat()
			a.active = viewProjects
		case viewBoard, viewNotifications:
			a.active = viewProjects
		}
		return nil, true
	}

	if a.active == viewChat {
		// The compose input owns printable keys.
		return nil, false
	}

	switch {
	case key.Matches(msg, a.keys.Theme):
		a.cycleTheme()
		return nil, true
	case key.Matches(msg, a.keys.Help):
		if a.active != viewHelp {
			a.prev = a.active
			a.active = viewHelp
		} else {
			a.active = a.prev
		}
		return nil, true
	case key.Matches(msg, a.keys.Board):
		if a.hasProject {
			a.active = viewBoard
			return a.fetchTasks(a.project.ID), true
		}
		return nil, true
	case key.Matches(msg, a.keys.Chat):
		if a.hasProject {
			return a.enterChat(), true
		}
		return nil, true
	case key.Matches(msg, a.keys.Notifications):
		a.active = viewNotifications
		return a.fetchNotifications(), true
	}

	return nil, false
}

func (a App) handleUserLoaded(msg userLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.log.Warn("resolving current user", "err", msg.err)
		a.active = viewLogin
		a.login = login.New(a.layout.ContentWidth(), a.layout.ContentHeight())
		return a, a.login.Init()
	}

	// Project management is gated on role; everyone else gets the same
	// picker without the create form.
	canManage := a.stores.Session.HasRole(model.RoleAdmin) ||
		a.stores.Session.HasRole(model.RoleManager)
	a.projectPicker = projects.New(a.keys, canManage,
		a.layout.ContentWidth(), a.layout.ContentHeight())

	a.active = viewProjects
	a.subscribeAll()
	return a, a.fetchProjects()
}

func (a App) selectProject(p model.Project) (tea.Model, tea.Cmd) {
	a.project = p
	a.hasProject = true
	a.board = board.New(a.keys, p.ID, p.Members, a.layout.ContentWidth(), a.layout.ContentHeight())
	a.active = viewBoard
	a.subscribeAll()
	return a, a.fetchTasks(p.ID)
}

// enterChat switches to the chat view, fetching history on first entry,
// subscribing to the room's topic, and announcing presence on the join
// topic. A channel that is not ready surfaces in the status bar; chat
// still works read-only from cache.
func (a *App) enterChat() tea.Cmd {
	user := a.stores.Session.User()
	userID := ""
	if user != nil {
		userID = user.ID
	}

	a.chatView = chat.New(a.keys, a.project.ID, userID,
		a.layout.ContentWidth(), a.layout.ContentHeight())
	a.active = viewChat
	a.subscribeAll()

	projectID := a.project.ID
	joinCmd := func() tea.Msg {
		payload := struct {
			UserID string `json:"userId"`
		}{UserID: userID}
		if err := a.channel.Publish(realtime.ProjectChatJoinTopic(projectID), payload); err != nil {
			return errMsg{err: err}
		}
		return nil
	}

	return tea.Batch(a.chatView.Init(), a.fetchChat(projectID), joinCmd)
}

// leaveChat drops the room subscription when the user navigates away;
// the notification subscription stays for the whole session.
func (a *App) leaveChat() {
	if a.chatSub != nil {
		a.chatSub.Unsubscribe()
		a.chatSub = nil
	}
}

// subscribeAll (re-)issues the subscriptions the current state needs.
// Safe to call when the channel is down; Subscribe reports nil and the
// next StateConnected transition retries.
func (a *App) subscribeAll() {
	if a.notifSub != nil {
		a.notifSub.Unsubscribe()
		a.notifSub = nil
	}
	a.leaveChat()

	if user := a.stores.Session.User(); user != nil {
		a.notifSub = a.channel.Subscribe(
			realtime.UserNotificationTopic(user.ID), a.handleNotificationPush)
	}
	if a.hasProject && a.active == viewChat {
		a.chatSub = a.channel.Subscribe(
			realtime.ProjectChatTopic(a.project.ID), a.handleChatPush(a.project.ID))
	}
}

// cycleTheme advances the persisted theme preference and reapplies the
// palette immediately.
func (a *App) cycleTheme() {
	a.themeMode = theme.NextMode(a.themeMode)
	theme.Apply(a.themeMode)
	if a.saveTheme != nil {
		if err := a.saveTheme(a.themeMode); err != nil {
			a.log.Warn("persisting theme preference", "err", err)
		}
	}
}

// handleChatPush parses a pushed chat message. Echoes of the current
// user's own sends are suppressed here; the optimistic record and its
// reconciliation already represent them.
func (a App) handleChatPush(projectID string) realtime.Handler {
	return func(topic string, body json.RawMessage) {
		var msg model.ChatMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			a.log.Warn("discarding malformed chat push", "topic", topic, "err", err)
			return
		}
		if user := a.stores.Session.User(); user != nil && msg.Sender.ID == user.ID {
			return
		}
		a.push(chatPushMsg{projectID: projectID, message: msg})
	}
}

func (a App) handleNotificationPush(topic string, body json.RawMessage) {
	var n model.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		a.log.Warn("discarding malformed notification push", "topic", topic, "err", err)
		return
	}
	a.push(notificationPushMsg{notification: n})
}

func (a App) loadCurrentUser() tea.Cmd {
	return func() tea.Msg {
		user, err := a.stores.Session.LoadCurrentUser(context.Background())
		return userLoadedMsg{user: user, err: err}
	}
}

func (a App) doLogin(username, password string) tea.Cmd {
	return func() tea.Msg {
		err := a.stores.Session.Login(context.Background(), username, password)
		return loginResultMsg{err: err}
	}
}

func (a App) fetchProjects() tea.Cmd {
	return func() tea.Msg {
		list, err := a.stores.Directory.FetchProjects(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		// The teams section is decorative; a failure there must not take
		// the picker down with it.
		teams, err := a.stores.Directory.FetchTeams(context.Background())
		if err != nil {
			a.log.Warn("fetching teams", "err", err)
		}
		return projects.LoadedMsg{Projects: list, Teams: teams}
	}
}

func (a App) createProject(req model.ProjectRequest) tea.Cmd {
	return func() tea.Msg {
		if _, err := a.stores.Directory.CreateProject(context.Background(), req); err != nil {
			return errMsg{err: err}
		}
		return projects.LoadedMsg{
			Projects: a.stores.Directory.Projects(),
			Teams:    a.stores.Directory.Teams(),
		}
	}
}

func (a App) fetchTasks(projectID string) tea.Cmd {
	return func() tea.Msg {
		tasks, err := a.stores.Tasks.FetchTasks(context.Background(), projectID)
		if err != nil {
			return errMsg{err: err}
		}
		return board.TasksLoadedMsg{ProjectID: projectID, Tasks: tasks}
	}
}

func (a App) moveTask(msg board.MoveTaskMsg) tea.Cmd {
	return func() tea.Msg {
		_, err := a.stores.Tasks.MoveTask(context.Background(), msg.ProjectID, msg.TaskID, msg.Status)
		if err != nil {
			return errMsg{err: err}
		}
		return board.TasksLoadedMsg{
			ProjectID: msg.ProjectID,
			Tasks:     a.stores.Tasks.Tasks(msg.ProjectID),
		}
	}
}

func (a App) createTask(msg board.CreateTaskMsg) tea.Cmd {
	return func() tea.Msg {
		_, err := a.stores.Tasks.CreateTask(context.Background(), msg.ProjectID, msg.Request)
		if err != nil {
			return errMsg{err: err}
		}
		return board.TasksLoadedMsg{
			ProjectID: msg.ProjectID,
			Tasks:     a.stores.Tasks.Tasks(msg.ProjectID),
		}
	}
}

// attachFile uploads a local file and links it to a task, then shows the
// refreshed board snapshot carrying the new attachment count.
func (a App) attachFile(msg board.AttachFileMsg) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(msg.Path)
		if err != nil {
			return errMsg{err: fmt.Errorf("attachment not uploaded: %w", err)}
		}
		defer f.Close()

		_, err = a.stores.Tasks.AttachFile(
			context.Background(), msg.ProjectID, msg.TaskID,
			filepath.Base(msg.Path), f, nil)
		if err != nil {
			return errMsg{err: fmt.Errorf("attachment not uploaded: %w", err)}
		}
		return board.TasksLoadedMsg{
			ProjectID: msg.ProjectID,
			Tasks:     a.stores.Tasks.Tasks(msg.ProjectID),
		}
	}
}

func (a App) fetchChat(projectID string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := a.stores.Chat.FetchMessages(context.Background(), projectID)
		if err != nil {
			return errMsg{err: err}
		}
		return chat.MessagesUpdatedMsg{ProjectID: projectID, Messages: msgs}
	}
}

// chatSnapshot re-renders the chat view from the store's current cache.
func (a App) chatSnapshot(projectID string) tea.Cmd {
	return func() tea.Msg {
		return chat.MessagesUpdatedMsg{
			ProjectID: projectID,
			Messages:  a.stores.Chat.Messages(projectID),
		}
	}
}

// sendMessage performs the optimistic send. The temporary record is
// visible immediately via the first snapshot; the second snapshot after
// the store call shows either the confirmed copy or the rollback.
func (a App) sendMessage(msg chat.SendIntentMsg) tea.Cmd {
	user := a.stores.Session.User()
	if user == nil {
		return func() tea.Msg {
			return errMsg{err: api.ErrSessionExpired}
		}
	}
	sender := *user

	send := func() tea.Msg {
		_, err := a.stores.Chat.SendMessage(context.Background(), msg.ProjectID, msg.Content, sender)
		if err != nil {
			return errMsg{err: fmt.Errorf("message not sent: %w", err)}
		}
		return chat.MessagesUpdatedMsg{
			ProjectID: msg.ProjectID,
			Messages:  a.stores.Chat.Messages(msg.ProjectID),
		}
	}

	// The store inserts the temp record synchronously inside SendMessage,
	// so the snapshot that follows the send command always includes it.
	return tea.Sequence(send, a.chatSnapshot(msg.ProjectID))
}

func (a App) fetchNotifications() tea.Cmd {
	return func() tea.Msg {
		list, err := a.stores.Notifications.FetchAll(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		return notifications.ListUpdatedMsg{
			Notifications: list,
			UnreadCount:   a.stores.Notifications.Unread(),
		}
	}
}

func (a App) markNotificationRead(id string) tea.Cmd {
	return func() tea.Msg {
		if err := a.stores.Notifications.MarkAsRead(context.Background(), id); err != nil {
			return errMsg{err: err}
		}
		return notifications.ListUpdatedMsg{
			Notifications: a.stores.Notifications.Notifications(),
			UnreadCount:   a.stores.Notifications.Unread(),
		}
	}
}

func (a App) notificationSnapshot() tea.Cmd {
	return func() tea.Msg {
		return notifications.ListUpdatedMsg{
			Notifications: a.stores.Notifications.Notifications(),
			UnreadCount:   a.stores.Notifications.Unread(),
		}
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.active {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewProjects:
		a.projectPicker, cmd = a.projectPicker.Update(msg)
	case viewBoard:
		a.board, cmd = a.board.Update(msg)
	case viewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case viewNotifications:
		a.notifView, cmd = a.notifView.Update(msg)
	case viewHelp:
		a.helpView, cmd = a.helpView.Update(msg)
	}
	return a, cmd
}

func (a *App) resize(width, height int) {
	a.layout = ui.NewLayout(width, height)
	w, h := a.layout.ContentWidth(), a.layout.ContentHeight()
	a.login.SetSize(w, h)
	a.projectPicker.SetSize(w, h)
	a.board.SetSize(w, h)
	a.chatView.SetSize(w, h)
	a.notifView.SetSize(w, h)
	a.helpView.SetSize(w, h)
}

// View renders the active view inside the shared frame.
func (a App) View() string {
	if a.active == viewLogin {
		return a.login.View()
	}

	title := "TeamHub"
	if a.hasProject {
		title += " · " + a.project.Name
	}

	indicator := a.connState.String()
	if unread := a.stores.Notifications.Unread(); unread > 0 {
		indicator = fmt.Sprintf("%d unread · %s", unread, indicator)
	}

	var content string
	switch a.active {
	case viewProjects:
		content = a.projectPicker.View()
	case viewBoard:
		content = a.board.View()
	case viewChat:
		content = a.chatView.View()
	case viewNotifications:
		content = a.notifView.View()
	case viewHelp:
		content = a.helpView.View()
	}

	statusBar := a.layout.RenderStatusBar(a.hintLine())
	if a.errText != "" {
		statusBar = a.layout.RenderErrorBar(a.errText)
	}

	return a.layout.RenderWithFrame(
		a.layout.RenderHeader(title, indicator),
		content,
		statusBar,
	)
}

// hintLine assembles the status-bar hints from the short-help bindings
// plus the view-switch keys.
func (a App) hintLine() string {
	bindings := append(a.keys.ShortHelp(),
		a.keys.Board, a.keys.Chat, a.keys.Notifications)

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}

func loginErrorText(err error) string {
	switch {
	case errors.Is(err, api.ErrNetwork):
		return "cannot reach the server, check your connection"
	case errors.Is(err, api.ErrSessionExpired):
		return "invalid username or password"
	default:
		return err.Error()
	}
}
