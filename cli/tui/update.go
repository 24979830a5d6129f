package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"

	"github.com/malonaz/talkzen/chat"
)

type KeyMapSession struct {
	CycleFocus    key.Binding
	NewChat       key.Binding
	ToggleTheme   key.Binding
	CycleModel    key.Binding
	CopyReply     key.Binding
	CopyCode      key.Binding
	EditLast      key.Binding
	Regenerate    key.Binding
	Like          key.Binding
	Dislike       key.Binding
	UseSuggestion key.Binding
}

type KeyMapSidebar struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Delete key.Binding
	Yes    key.Binding
	No     key.Binding
}

type InputKeyMap struct {
	Send                 key.Binding
	CancelEdit           key.Binding
	PreviousHistoryEntry key.Binding
	NextHistoryEntry     key.Binding
}

var keyMapSession = KeyMapSession{
	CycleFocus: key.NewBinding(
		key.WithKeys("tab"),
	),
	NewChat: key.NewBinding(
		key.WithKeys("ctrl+n"),
	),
	ToggleTheme: key.NewBinding(
		key.WithKeys("alt+t"),
	),
	CycleModel: key.NewBinding(
		key.WithKeys("alt+m"),
	),

	// Copy.
	CopyReply: key.NewBinding(
		key.WithKeys("alt+w"),
	),
	CopyCode: key.NewBinding(
		key.WithKeys("alt+c"),
	),

	// Message actions.
	EditLast: key.NewBinding(
		key.WithKeys("alt+e"),
	),
	Regenerate: key.NewBinding(
		key.WithKeys("alt+r"),
	),
	Like: key.NewBinding(
		key.WithKeys("alt+l"),
	),
	Dislike: key.NewBinding(
		key.WithKeys("alt+d"),
	),

	UseSuggestion: key.NewBinding(
		key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4"),
	),
}

var keyMapSidebar = KeyMapSidebar{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
	),
}

var inputKeyMap = InputKeyMap{
	Send: key.NewBinding(
		key.WithKeys("ctrl+j"),
	),
	CancelEdit: key.NewBinding(
		key.WithKeys("esc"),
	),
	PreviousHistoryEntry: key.NewBinding(
		key.WithKeys("alt+p"),
	),
	NextHistoryEntry: key.NewBinding(
		key.WithKeys("alt+n"),
	),
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Always update the alert model with every message
	outAlert, alertCmd := m.alert.Update(msg)
	m.alert = outAlert.(bubbleup.AlertModel)
	if alertCmd != nil {
		cmds = append(cmds, alertCmd)
	}

	switch msg := msg.(type) {
	case tea.FocusMsg:
		m.windowFocused = true
		if m.focusedComponent == FocusComposer {
			m.textarea.Focus()
		}
		cmds = append(cmds, textarea.Blink)
		return m, tea.Batch(cmds...)

	case tea.BlurMsg:
		m.windowFocused = false
		m.textarea.Blur()
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Batch(append(cmds, m.interrupt())...)
		}
		if cmd, handled := m.handleSessionKey(msg); handled {
			return m, tea.Batch(append(cmds, cmd)...)
		}
		switch m.focusedComponent {
		case FocusSidebar:
			return m, tea.Batch(append(cmds, m.handleSidebarKey(msg))...)
		case FocusComposer:
			if cmd, handled := m.handleComposerKey(msg); handled {
				return m, tea.Batch(append(cmds, cmd)...)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()

	case sendDoneMsg:
		cmds = append(cmds, m.finishExchange(msg))
		return m, tea.Batch(cmds...)

	case revealTickMsg:
		cmds = append(cmds, m.stepReveal(msg))
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.pending == nil {
			// Let the tick chain end while idle.
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedComponent == FocusComposer {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
		m.adjustTextareaHeight()
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup", "pgdown", "ctrl+up", "ctrl+down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// interrupt stops whatever is running, quitting when nothing is.
func (m *Model) interrupt() tea.Cmd {
	if m.pending != nil {
		// The exchange may not have reached the app yet.
		m.pending.cancel()
		m.app.Stop()
		return nil // Wait for sendDoneMsg
	}
	if m.app.Stop() {
		return nil
	}
	if m.revealing() {
		m.player.Stop()
		m.refresh(false)
		return nil
	}
	m.quitting = true
	return tea.Quit
}

func (m *Model) handleSessionKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	km := keyMapSession
	switch {
	case key.Matches(msg, km.CycleFocus):
		switch m.focusedComponent {
		case FocusComposer:
			if !m.sidebarVisible() {
				return nil, true
			}
			m.focusedComponent = FocusSidebar
			m.textarea.Blur()
			if session := m.session(); session != nil {
				m.sidebar.moveTo(m.app.Chats.ListSessions(), session.ID)
			}
			return nil, true
		case FocusSidebar:
			m.focusedComponent = FocusComposer
			m.sidebar.confirming = ""
			m.textarea.Focus()
			return textarea.Blink, true
		}
	case key.Matches(msg, km.NewChat):
		return m.newChat(), true
	case key.Matches(msg, km.ToggleTheme):
		return m.toggleTheme(), true
	case key.Matches(msg, km.CycleModel):
		return m.cycleModel(), true
	case key.Matches(msg, km.CopyReply):
		return m.copyLastReply(false), true
	case key.Matches(msg, km.CopyCode):
		return m.copyLastReply(true), true
	case key.Matches(msg, km.EditLast):
		if m.busy() {
			return nil, true
		}
		m.focusedComponent = FocusComposer
		m.textarea.Focus()
		return m.editLast(), true
	case key.Matches(msg, km.Regenerate):
		return m.regenerate(), true
	case key.Matches(msg, km.Like):
		return m.rateLast(chat.RatingLike), true
	case key.Matches(msg, km.Dislike):
		return m.rateLast(chat.RatingDislike), true
	case key.Matches(msg, km.UseSuggestion):
		if m.session() != nil || m.pending != nil {
			return nil, false
		}
		i := int(msg.Runes[len(msg.Runes)-1] - '1')
		if i < 0 || i >= len(suggestions) {
			return nil, true
		}
		m.focusedComponent = FocusComposer
		m.textarea.Focus()
		m.textarea.SetValue(suggestions[i])
		m.adjustTextareaHeight()
		return nil, true
	}
	return nil, false
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	km := keyMapSidebar
	sessions := m.app.Chats.ListSessions()

	if m.sidebar.confirming != "" {
		id := m.sidebar.confirming
		switch {
		case key.Matches(msg, km.Yes):
			m.sidebar.confirming = ""
			return m.deleteSession(id)
		case key.Matches(msg, km.No):
			m.sidebar.confirming = ""
		}
		return nil
	}

	switch {
	case key.Matches(msg, km.Up):
		m.sidebar.up(len(sessions))
	case key.Matches(msg, km.Down):
		m.sidebar.down(len(sessions))
	case key.Matches(msg, km.Open):
		if session := m.sidebar.selected(sessions); session != nil {
			m.focusedComponent = FocusComposer
			m.textarea.Focus()
			return tea.Batch(m.openSession(session.ID), textarea.Blink)
		}
	case key.Matches(msg, km.Delete):
		if session := m.sidebar.selected(sessions); session != nil {
			m.sidebar.confirming = session.ID
		}
	}
	return nil
}

func (m *Model) handleComposerKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	km := inputKeyMap
	switch {
	case key.Matches(msg, km.Send):
		return m.submit(), true

	case key.Matches(msg, km.CancelEdit):
		if m.editing >= 0 {
			m.cancelEdit()
			m.adjustTextareaHeight()
			return m.toastInfo("Edit canceled"), true
		}
		return nil, true

	case key.Matches(msg, km.PreviousHistoryEntry):
		if entry, ok := m.app.History.Previous(m.textarea.Value()); ok {
			m.textarea.SetValue(entry)
			m.historyNavigating = true
			m.adjustTextareaHeight()
		}
		return nil, true

	case key.Matches(msg, km.NextHistoryEntry):
		if entry, ok := m.app.History.Next(); ok {
			m.textarea.SetValue(entry)
			m.historyNavigating = true
			m.adjustTextareaHeight()
		}
		return nil, true
	}

	// Typing ends history navigation.
	if m.historyNavigating {
		switch msg.Type {
		case tea.KeyRunes, tea.KeyBackspace, tea.KeyDelete, tea.KeyEnter:
			m.app.History.Reset()
			m.historyNavigating = false
		}
	}
	return nil, false
}
