package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.dalton.dog/bubbleup"

	"github.com/malonaz/talkzen/app"
	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/cli/tui/styles"
	"github.com/malonaz/talkzen/internal/debug"
	"github.com/malonaz/talkzen/internal/file"
	"github.com/malonaz/talkzen/internal/markdown"
	"github.com/malonaz/talkzen/internal/reveal"
)

const (
	FocusComposer FocusedComponent = iota
	FocusSidebar
)

var log *slog.Logger

type FocusedComponent int

// suggestions are offered on the welcome screen.
var suggestions = []string{
	"Explain quantum computing in simple terms",
	"Write a Go function that reverses a linked list",
	"Translate 'Good morning, how are you?' into French and Japanese",
	"Give me a 3-day itinerary for Kyoto",
}

// pendingExchange is a prompt shown while its reply is being generated.
type pendingExchange struct {
	text string
	// Index of the first message the exchange replaces, -1 when appending.
	replaceFrom int
	attachments []*file.Attachment
	cancel      context.CancelFunc
}

// notice is an assistant-role message that is displayed but never persisted.
type notice struct {
	content string
	isError bool
}

// Message types for Bubble Tea.
type (
	sendDoneMsg struct {
		result *app.Result
		err    error
	}
	revealTickMsg struct{ id int }
)

// Model represents the Bubble Tea model for the chat client.
type Model struct {
	ctx context.Context
	app *app.App

	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *markdown.Renderer
	styles   *styles.Styles
	alert    bubbleup.AlertModel

	// UI state
	width            int
	height           int
	ready            bool
	quitting         bool
	loggedOut        bool
	windowFocused    bool
	focusedComponent FocusedComponent
	sidebar          sidebar
	err              error
	clipboardErr     error

	// Composer state
	attachments       []*file.Attachment
	editing           int
	historyNavigating bool

	// Exchange state
	pending  *pendingExchange
	notices  []notice
	player   *reveal.Player
	revealAt int
	revealID int

	// Guest quota shown in the title, read after each exchange.
	guestUsed        int
	guestLimit       int
	guestUsageLoaded bool
}

// New creates a new chat client model. clipboardErr is the result of initializing the clipboard.
func New(ctx context.Context, a *app.App, clipboardErr error) (*Model, error) {
	log = debug.GetLogger()

	ta := textarea.New()
	ta.Placeholder = "Message TalkZen-AI... (Ctrl+J to send, /help for commands, Ctrl+C to quit)"
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(styles.DefaultTextareaWidth)
	ta.SetHeight(styles.MinTextareaHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(true)
	ta.Prompt = ""

	dark := a.Theme() == app.ThemeDark
	s := styles.New(dark)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner

	renderer, err := markdown.NewRenderer(styles.DefaultTextareaWidth, dark)
	if err != nil {
		return nil, err
	}

	m := &Model{
		ctx:              ctx,
		app:              a,
		textarea:         ta,
		spinner:          sp,
		renderer:         renderer,
		styles:           s,
		alert:            *bubbleup.NewAlertModel(40, true, 2),
		windowFocused:    true,
		focusedComponent: FocusComposer,
		clipboardErr:     clipboardErr,
		editing:          -1,
		revealAt:         -1,
	}
	m.refreshGuestUsage()
	return m, nil
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.alert.Init(),
	)
}

// LoggedOut returns true if the user logged out from the client.
func (m *Model) LoggedOut() bool {
	return m.loggedOut
}

// session returns the active session, nil on the welcome screen.
func (m *Model) session() *chat.Session {
	return m.app.Chats.Active()
}

// busy returns true from the moment a prompt is submitted until its outcome is handled.
func (m *Model) busy() bool {
	return m.pending != nil || m.app.Generating()
}

func (m *Model) refreshGuestUsage() {
	used, limit, err := m.app.Gate.GuestUsage(m.ctx)
	if err != nil {
		log.Warn("reading guest usage", "error", err)
		m.guestUsageLoaded = false
		return
	}
	m.guestUsed, m.guestLimit, m.guestUsageLoaded = used, limit, true
}

// revealing returns true while a reply is being revealed.
func (m *Model) revealing() bool {
	return m.player != nil && !m.player.Done()
}

// resetExchange forgets everything tied to the displayed conversation.
func (m *Model) resetExchange() {
	m.notices = nil
	m.stopReveal()
	m.player = nil
	m.revealAt = -1
	m.cancelEdit()
}

func (m *Model) stopReveal() {
	if m.player != nil {
		m.player.Stop()
	}
}

func (m *Model) cancelEdit() {
	if m.editing < 0 {
		return
	}
	m.editing = -1
	m.textarea.Reset()
}
