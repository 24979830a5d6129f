package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"go.dalton.dog/bubbleup"
	"golang.design/x/clipboard"

	"github.com/malonaz/talkzen/app"
	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/cli/tui/styles"
	"github.com/malonaz/talkzen/internal/file"
	"github.com/malonaz/talkzen/internal/llm"
	"github.com/malonaz/talkzen/internal/markdown"
	"github.com/malonaz/talkzen/internal/reveal"
)

// command is a slash command typed in the composer.
type command struct {
	name string
	arg  string
}

var commandHelp = []string{
	"`/edit [n]` edit prompt #n, or the last one",
	"`/regen [n]` regenerate reply #n, or the last one",
	"`/rate [n] like|dislike` rate reply #n, or the last one",
	"`/copy [n] [code]` copy reply #n, or only its last code block",
	"`/attach <path>` attach a file to the next message",
	"`/detach [n]` remove attachment n, or all of them",
	"`/model [name]` switch model, or list the available ones",
	"`/key <key>` save the API key",
	"`/new` start a new chat",
	"`/clear` delete every chat",
	"`/theme` toggle dark and light",
	"`/logout` log out and quit",
}

// parseCommand parses input as a slash command.
func parseCommand(input string) (command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") || len(input) == 1 {
		return command{}, false
	}
	name, arg, _ := strings.Cut(input[1:], " ")
	if strings.Contains(name, "/") {
		// An absolute path, not a command.
		return command{}, false
	}
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

// runCommand executes a slash command.
func (m *Model) runCommand(cmd command) tea.Cmd {
	switch cmd.name {
	case "help":
		m.addNotice("**Commands**\n\n- "+strings.Join(commandHelp, "\n- "), false)
		return nil

	case "attach":
		if cmd.arg == "" {
			return m.toastError("Usage: /attach <path>")
		}
		path, err := file.ExpandPath(strings.Trim(cmd.arg, `'"`))
		if err != nil {
			return m.toastError(err.Error())
		}
		return m.attach(path)

	case "detach":
		if len(m.attachments) == 0 {
			return m.toastWarn("No attachments")
		}
		if cmd.arg == "" {
			m.attachments = nil
			m.refresh(false)
			return m.toastInfo("Attachments removed")
		}
		n, err := strconv.Atoi(cmd.arg)
		if err != nil || n < 1 || n > len(m.attachments) {
			return m.toastError(fmt.Sprintf("No attachment #%s", cmd.arg))
		}
		name := m.attachments[n-1].Name
		m.attachments = append(m.attachments[:n-1], m.attachments[n:]...)
		m.refresh(false)
		return m.toastInfo(fmt.Sprintf("Removed %s", name))

	case "model":
		if cmd.arg == "" {
			var lines []string
			for _, model := range m.app.Config().Models {
				marker := " "
				if model.Name == m.app.Model() {
					marker = "●"
				}
				lines = append(lines, fmt.Sprintf("%s `%s` (%s) via %s", marker, model.Name, model.Alias, model.Provider))
			}
			m.addNotice("**Models**\n\n"+strings.Join(lines, "\n\n"), false)
			return nil
		}
		if err := m.app.SwitchModel(m.ctx, cmd.arg); err != nil {
			return m.toastError(err.Error())
		}
		return m.toastInfo("Model: " + m.app.Model())

	case "key":
		if cmd.arg == "" {
			return m.toastError("Usage: /key <key>")
		}
		if err := m.app.SaveAPIKey(m.ctx, cmd.arg); err != nil {
			return m.toastError(err.Error())
		}
		return m.toastInfo("API key saved")

	case "edit", "regen", "regenerate", "rate", "copy":
		return m.runMessageCommand(cmd)

	case "new":
		return m.newChat()

	case "clear":
		if m.busy() {
			return m.toastWarn("Wait for the response to finish")
		}
		if err := m.app.Chats.ClearAll(m.ctx); err != nil {
			return m.toastError(err.Error())
		}
		m.resetExchange()
		m.sidebar = sidebar{}
		return m.toastInfo("History cleared")

	case "theme":
		return m.toggleTheme()

	case "logout":
		if err := m.app.Logout(m.ctx); err != nil {
			return m.toastError(err.Error())
		}
		m.refreshGuestUsage()
		m.loggedOut = true
		m.quitting = true
		return tea.Quit
	}
	return m.toastError(fmt.Sprintf("Unknown command /%s, try /help", cmd.name))
}

// runMessageCommand runs a command acting on one message of the active session.
// Without a message number it acts on the last message of the right role.
func (m *Model) runMessageCommand(cmd command) tea.Cmd {
	session := m.session()
	if session == nil {
		return m.toastWarn("No messages yet")
	}
	index, rest, err := splitMessageArg(cmd.arg)
	if err != nil {
		return m.toastError(err.Error())
	}

	switch cmd.name {
	case "edit":
		if index < 0 {
			index = session.LastUserIndex()
		}
		return m.editMessage(index)

	case "regen", "regenerate":
		if index < 0 {
			index = session.LastAssistantIndex()
		}
		return m.regenerateAt(index)

	case "rate":
		if len(rest) != 1 {
			return m.toastError("Usage: /rate [n] like|dislike")
		}
		var rating chat.Rating
		switch strings.ToLower(rest[0]) {
		case "like":
			rating = chat.RatingLike
		case "dislike":
			rating = chat.RatingDislike
		default:
			return m.toastError("Usage: /rate [n] like|dislike")
		}
		if index < 0 {
			index = session.LastAssistantIndex()
		}
		return m.rate(index, rating)

	default:
		codeOnly := len(rest) == 1 && strings.EqualFold(rest[0], "code")
		if len(rest) > 0 && !codeOnly {
			return m.toastError("Usage: /copy [n] [code]")
		}
		if index < 0 {
			index = session.LastAssistantIndex()
		}
		return m.copyReply(index, codeOnly)
	}
}

// splitMessageArg splits "n rest..." into the index of message #n and the rest.
// The index is -1 when arg does not start with a number.
func splitMessageArg(arg string) (int, []string, error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return -1, nil, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(fields[0], "#"))
	if err != nil {
		return -1, fields, nil
	}
	if n < 1 {
		return -1, nil, fmt.Errorf("No message #%d", n)
	}
	return n - 1, fields[1:], nil
}

// submit sends the composer content, or resends an edited prompt.
func (m *Model) submit() tea.Cmd {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m.toastWarn("Type a message first")
	}
	if cmd, ok := parseCommand(input); ok && m.editing < 0 {
		m.textarea.Reset()
		m.adjustTextareaHeight()
		return m.runCommand(cmd)
	}
	if path, ok := file.LooksLikePath(input); ok && m.editing < 0 {
		m.textarea.Reset()
		m.adjustTextareaHeight()
		return m.attach(path)
	}
	if m.busy() {
		return m.toastWarn("A response is already being generated")
	}

	// Keys pasted in the composer stay out of the input history.
	if m.app.HasAPIKey() || !llm.LooksLikeAPIKey(m.app.Provider(), input) {
		m.app.History.Add(m.ctx, input)
	}
	m.historyNavigating = false
	m.stopReveal()
	m.notices = nil
	m.err = nil

	pending := &pendingExchange{text: input, replaceFrom: -1, attachments: m.attachments}
	editing := m.editing
	m.attachments = nil
	m.editing = -1
	m.textarea.Reset()
	m.adjustTextareaHeight()

	if editing >= 0 {
		pending.replaceFrom = editing
		return m.startExchange(pending, func(ctx context.Context) (*app.Result, error) {
			return m.app.Edit(ctx, editing, input)
		})
	}
	return m.startExchange(pending, func(ctx context.Context) (*app.Result, error) {
		return m.app.Send(ctx, input, pending.attachments)
	})
}

// regenerate replaces the last reply of the active session.
func (m *Model) regenerate() tea.Cmd {
	session := m.session()
	if session == nil {
		return m.toastWarn("Nothing to regenerate")
	}
	return m.regenerateAt(session.LastAssistantIndex())
}

// regenerateAt replaces the reply at index, dropping every message after it.
func (m *Model) regenerateAt(index int) tea.Cmd {
	session := m.session()
	if session == nil || index < 1 || index >= len(session.Messages) {
		return m.toastWarn("Nothing to regenerate")
	}
	if session.Messages[index].Role != chat.RoleAssistant {
		return m.toastError(fmt.Sprintf("Message #%d is not a reply", index+1))
	}
	if m.busy() {
		return m.toastWarn("A response is already being generated")
	}
	m.stopReveal()
	m.notices = nil
	m.cancelEdit()
	pending := &pendingExchange{text: session.Messages[index-1].Content, replaceFrom: index - 1}
	return m.startExchange(pending, func(ctx context.Context) (*app.Result, error) {
		return m.app.Regenerate(ctx, index)
	})
}

// startExchange shows the pending prompt and runs fn off the event loop.
// Ctrl+C cancels the context given to fn, even before fn started.
func (m *Model) startExchange(pending *pendingExchange, fn func(ctx context.Context) (*app.Result, error)) tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	pending.cancel = cancel
	m.pending = pending
	m.refresh(true)
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			defer cancel()
			if ctx.Err() != nil {
				return sendDoneMsg{result: &app.Result{Outcome: app.OutcomeCanceled}}
			}
			result, err := fn(ctx)
			return sendDoneMsg{result: result, err: err}
		},
	)
}

// finishExchange handles the outcome of an exchange.
func (m *Model) finishExchange(msg sendDoneMsg) tea.Cmd {
	pending := m.pending
	m.pending = nil
	m.refreshGuestUsage()
	if msg.err != nil {
		log.Warn("send failed", "error", msg.err)
		m.err = msg.err
		if pending != nil && pending.replaceFrom < 0 {
			// Give the prompt back.
			m.textarea.SetValue(pending.text)
			m.attachments = pending.attachments
			m.adjustTextareaHeight()
		}
		m.refresh(true)
		return m.toastError(msg.err.Error())
	}

	result := msg.result
	if result.Session != nil {
		m.sidebar.moveTo(m.app.Chats.ListSessions(), result.Session.ID)
	}
	switch result.Outcome {
	case app.OutcomeReplied:
		return m.startReveal(len(result.Session.Messages) - 1)
	case app.OutcomeCanceled:
		if pending != nil && pending.replaceFrom < 0 && m.textarea.Value() == "" {
			// Nothing was saved, give the prompt back.
			m.textarea.SetValue(pending.text)
			m.attachments = pending.attachments
			m.adjustTextareaHeight()
		}
		m.refresh(true)
		return m.toastWarn("Generation stopped")
	case app.OutcomeFailed:
		m.addNotice(result.Reply, true)
	default:
		if result.Outcome != app.OutcomeKeySaved && pending != nil && pending.replaceFrom < 0 {
			m.textarea.SetValue(pending.text)
			m.attachments = pending.attachments
			m.adjustTextareaHeight()
		}
		m.addNotice(result.Reply, false)
	}
	return nil
}

// startReveal reveals the message at index of the active session.
func (m *Model) startReveal(index int) tea.Cmd {
	session := m.session()
	if session == nil || index < 0 || index >= len(session.Messages) {
		return nil
	}
	m.stopReveal()
	m.renderer.ResetPartial()
	m.player = reveal.NewPlayer(session.Messages[index].Content)
	m.revealAt = index
	m.revealID++
	m.player.Step()
	m.refresh(true)
	return m.revealTick()
}

func (m *Model) revealTick() tea.Cmd {
	id := m.revealID
	return tea.Tick(m.app.Config().RevealInterval(), func(time.Time) tea.Msg {
		return revealTickMsg{id: id}
	})
}

// stepReveal shows one more word. It returns the next tick, nil once done.
func (m *Model) stepReveal(msg revealTickMsg) tea.Cmd {
	if m.player == nil || msg.id != m.revealID {
		return nil
	}
	if _, ok := m.player.Step(); !ok {
		m.refresh(m.viewport.AtBottom())
		return nil
	}
	m.refresh(m.viewport.AtBottom())
	return m.revealTick()
}

// attach loads a file into the pending attachments.
func (m *Model) attach(path string) tea.Cmd {
	attachment, err := file.LoadAttachment(path, m.app.Config().Chat.MaxAttachmentBytes)
	if errors.Is(err, file.ErrAttachmentTooLarge) {
		return m.toastError(fmt.Sprintf("File too large (max %s)", humanize.IBytes(uint64(m.app.Config().Chat.MaxAttachmentBytes))))
	}
	if err != nil {
		return m.toastError(err.Error())
	}
	m.attachments = append(m.attachments, attachment)
	m.refresh(false)
	return m.toastInfo(fmt.Sprintf("Attached %s (%s)", attachment.Name, attachment.SizeLabel))
}

func (m *Model) newChat() tea.Cmd {
	if m.busy() {
		return m.toastWarn("Wait for the response to finish")
	}
	m.app.Chats.NewChat()
	m.resetExchange()
	m.refresh(true)
	return nil
}

func (m *Model) openSession(id string) tea.Cmd {
	if m.busy() {
		return m.toastWarn("Wait for the response to finish")
	}
	if err := m.app.Chats.Select(id); err != nil {
		return m.toastError(err.Error())
	}
	m.resetExchange()
	m.refresh(true)
	return nil
}

func (m *Model) deleteSession(id string) tea.Cmd {
	if m.busy() {
		return m.toastWarn("Wait for the response to finish")
	}
	wasActive := false
	if active := m.session(); active != nil && active.ID == id {
		wasActive = true
	}
	if _, err := m.app.Chats.DeleteSession(m.ctx, id); err != nil {
		return m.toastError(err.Error())
	}
	if wasActive {
		m.resetExchange()
	}
	m.sidebar.clamp(len(m.app.Chats.ListSessions()))
	m.refresh(true)
	return m.toastInfo("Chat deleted")
}

func (m *Model) toggleTheme() tea.Cmd {
	theme, err := m.app.ToggleTheme(m.ctx)
	if err != nil {
		return m.toastError(err.Error())
	}
	dark := theme == app.ThemeDark
	if err := m.renderer.SetDark(dark); err != nil {
		return m.toastError(err.Error())
	}
	m.styles = styles.New(dark)
	m.spinner.Style = m.styles.Spinner
	m.refresh(false)
	return m.toastInfo(fmt.Sprintf("Theme: %s", theme))
}

func (m *Model) cycleModel() tea.Cmd {
	name, err := m.app.NextModel(m.ctx)
	if err != nil {
		return m.toastError(err.Error())
	}
	return m.toastInfo("Model: " + name)
}

// editLast loads the last prompt of the active session into the composer.
func (m *Model) editLast() tea.Cmd {
	session := m.session()
	if session == nil {
		return m.toastWarn("Nothing to edit")
	}
	return m.editMessage(session.LastUserIndex())
}

// editMessage loads the prompt at index into the composer. Resending it replaces
// that prompt and everything after it.
func (m *Model) editMessage(index int) tea.Cmd {
	session := m.session()
	if session == nil || index < 0 || index >= len(session.Messages) {
		return m.toastWarn("Nothing to edit")
	}
	if session.Messages[index].Role != chat.RoleUser {
		return m.toastError(fmt.Sprintf("Message #%d is not a prompt", index+1))
	}
	if m.busy() {
		return m.toastWarn("Wait for the response to finish")
	}
	m.editing = index
	m.textarea.SetValue(session.Messages[index].Content)
	m.adjustTextareaHeight()
	return m.toastInfo(fmt.Sprintf("Editing message #%d, Ctrl+J to resend, Esc to cancel", index+1))
}

func (m *Model) rateLast(rating chat.Rating) tea.Cmd {
	session := m.session()
	if session == nil {
		return m.toastWarn("Nothing to rate")
	}
	return m.rate(session.LastAssistantIndex(), rating)
}

// rate toggles the rating of the reply at index.
func (m *Model) rate(index int, rating chat.Rating) tea.Cmd {
	if index < 0 {
		return m.toastWarn("Nothing to rate")
	}
	updated, err := m.app.Rate(m.ctx, index, rating)
	if errors.Is(err, chat.ErrNotAssistantMessage) {
		return m.toastError(fmt.Sprintf("Message #%d is not a reply", index+1))
	}
	if errors.Is(err, chat.ErrMessageNotFound) {
		return m.toastError(fmt.Sprintf("No message #%d", index+1))
	}
	if err != nil {
		return m.toastError(err.Error())
	}
	m.refresh(false)
	if updated == chat.RatingNone {
		return m.toastInfo("Rating removed")
	}
	return m.toastInfo(fmt.Sprintf("Rated #%d: %s", index+1, updated))
}

// copyLastReply copies the last reply, or its last code block.
func (m *Model) copyLastReply(codeOnly bool) tea.Cmd {
	session := m.session()
	if session == nil {
		return m.toastWarn("Nothing to copy")
	}
	return m.copyReply(session.LastAssistantIndex(), codeOnly)
}

// copyReply copies the reply at index, or its last code block.
func (m *Model) copyReply(index int, codeOnly bool) tea.Cmd {
	session := m.session()
	if session == nil || index < 0 {
		return m.toastWarn("Nothing to copy")
	}
	if index >= len(session.Messages) {
		return m.toastError(fmt.Sprintf("No message #%d", index+1))
	}
	if session.Messages[index].Role != chat.RoleAssistant {
		return m.toastError(fmt.Sprintf("Message #%d is not a reply", index+1))
	}
	content := session.Messages[index].Content
	what := "Reply"
	if codeOnly {
		blocks := markdown.CodeBlocks(content)
		if len(blocks) == 0 {
			return m.toastWarn(fmt.Sprintf("No code block in message #%d", index+1))
		}
		content = blocks[len(blocks)-1].Code
		what = "Code"
	}
	if m.clipboardErr != nil {
		return m.toastError("Clipboard unavailable")
	}
	clipboard.Write(clipboard.FmtText, []byte(content))
	return m.toastInfo(what + " copied to clipboard!")
}

func (m *Model) addNotice(content string, isError bool) {
	m.notices = append(m.notices, notice{content: content, isError: isError})
	m.refresh(true)
}

func (m *Model) toastInfo(text string) tea.Cmd {
	return m.alert.NewAlertCmd(bubbleup.InfoKey, text)
}

func (m *Model) toastWarn(text string) tea.Cmd {
	return m.alert.NewAlertCmd(bubbleup.WarnKey, text)
}

func (m *Model) toastError(text string) tea.Cmd {
	return m.alert.NewAlertCmd(bubbleup.ErrorKey, text)
}
