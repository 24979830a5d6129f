package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/cli/tui/styles"
)

// View renders the model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	var main strings.Builder
	main.WriteString(m.viewport.View())
	main.WriteString("\n")
	if len(m.attachments) > 0 {
		main.WriteString(m.renderAttachments())
		main.WriteString("\n")
	}
	if m.pending != nil {
		box := m.styles.TextArea.Width(m.textarea.Width() + m.styles.TextArea.GetHorizontalPadding())
		body := fmt.Sprintf("%s Thinking... (Ctrl+C to stop)%s", m.spinner.View(), strings.Repeat("\n", m.textarea.Height()-1))
		main.WriteString(box.Render(body))
	} else {
		main.WriteString(m.styles.TextArea.Render(m.textarea.View()))
	}
	main.WriteString("\n")
	main.WriteString(m.renderStatus())

	body := main.String()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}
	return m.alert.Render(m.renderTitle() + "\n" + body)
}

func (m *Model) renderTitle() string {
	name := "anonymous"
	if user := m.app.Gate.Current(); user != nil {
		name = user.DisplayName
		if user.IsGuest() && m.guestUsageLoaded {
			name = fmt.Sprintf("%s (%d/%d)", name, m.guestUsed, m.guestLimit)
		}
	}
	title := fmt.Sprintf(" 🧘 TalkZen-AI │ 🤖 %s │ 👤 %s │ 🎨 %s ", m.app.Model(), name, m.app.Theme())
	return m.styles.Title.Width(m.width).Render(title)
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	var help string
	switch {
	case m.focusedComponent == FocusSidebar && m.sidebar.confirming != "":
		help = "y confirm · n cancel"
	case m.focusedComponent == FocusSidebar:
		help = "↑/↓ move · Enter open · d delete · Tab back"
	case m.editing >= 0:
		help = fmt.Sprintf("Editing message #%d · Ctrl+J resend · Esc cancel", m.editing+1)
	case m.revealing():
		help = "Ctrl+C skip"
	default:
		help = "Ctrl+J send · Tab history · Ctrl+N new · Alt+E edit · Alt+R regenerate · Alt+W copy · /rate n like · /help"
	}
	return m.styles.Help.Render(styles.Truncate(help, m.mainWidth()))
}

func (m *Model) renderAttachments() string {
	names := make([]string, 0, len(m.attachments))
	for i, attachment := range m.attachments {
		names = append(names, fmt.Sprintf("#%d %s (%s)", i+1, attachment.Name, attachment.SizeLabel))
	}
	return m.styles.Attachment.Render(styles.Truncate("📎 "+strings.Join(names, "  "), m.mainWidth()))
}

func (m *Model) renderSidebar() string {
	sessions := m.app.Chats.ListSessions()
	active := m.session()
	height := m.height - 1 - m.styles.Sidebar.GetVerticalFrameSize()
	// Header and its margin.
	rows := height - 2

	var b strings.Builder
	b.WriteString(m.styles.SidebarHeader.Render("💬 History"))
	b.WriteString("\n")
	if len(sessions) == 0 {
		b.WriteString(m.styles.SidebarItem.Render("No chats yet"))
	}
	start, end := m.sidebar.window(len(sessions), rows)
	for i := start; i < end; i++ {
		session := sessions[i]
		marker := "  "
		style := m.styles.SidebarItem
		if active != nil && session.ID == active.ID {
			marker = "● "
			style = m.styles.SidebarActive
		}
		line := marker + styles.Truncate(session.Title, styles.SidebarTitleMaxWidth)
		if m.focusedComponent == FocusSidebar && i == m.sidebar.cursor {
			if m.sidebar.confirming == session.ID {
				line = m.styles.SidebarConfirm.Render("Delete? (y/n)")
			} else {
				line = m.styles.SidebarSelected.Width(styles.SidebarWidth - 2).Render(line)
			}
		} else {
			line = style.Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	style := m.styles.Sidebar
	if m.focusedComponent == FocusSidebar {
		style = m.styles.SidebarFocused
	}
	return style.Height(height).Render(b.String())
}

func (m *Model) renderMessages() string {
	session := m.session()
	var b strings.Builder
	if session == nil && m.pending == nil {
		b.WriteString(m.renderWelcome())
	}

	var messages []*chat.Message
	if session != nil {
		messages = session.Messages
	}
	if m.pending != nil && m.pending.replaceFrom >= 0 && m.pending.replaceFrom <= len(messages) {
		messages = messages[:m.pending.replaceFrom]
	}
	for i, message := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(i, message))
	}

	if m.pending != nil {
		if len(messages) > 0 {
			b.WriteString("\n\n")
		}
		content := m.renderer.Render(m.pending.text)
		for _, attachment := range m.pending.attachments {
			content += "\n" + m.styles.Attachment.Render(fmt.Sprintf("📎 %s (%s)", attachment.Name, attachment.SizeLabel))
		}
		b.WriteString(m.styles.UserMessage.Render(content))
	}

	for _, n := range m.notices {
		b.WriteString("\n\n")
		style := m.styles.NoticeMessage
		if n.isError {
			style = m.styles.ErrorMessage
		}
		b.WriteString(style.Render(m.renderer.Render(n.content)))
	}
	return b.String()
}

func (m *Model) renderMessage(index int, message *chat.Message) string {
	// Numbers are what /edit, /regen, /rate and /copy take.
	number := m.styles.MessageFooter.Render(fmt.Sprintf("#%d", index+1))
	if message.Role == chat.RoleUser {
		return m.styles.UserMessage.Render(m.renderer.Render(message.Content)) + "\n" + number
	}

	var b strings.Builder
	if index == m.revealAt && m.player != nil && m.player.Current() != m.player.Text() && (m.revealing() || m.player.Stopped()) {
		// The stored message holds the full text regardless.
		rendered := m.renderer.RenderPartial(m.player.Current())
		if m.revealing() {
			rendered += m.styles.Spinner.Render("▋")
		}
		b.WriteString(m.styles.AIMessage.Render(rendered))
		if m.player.Stopped() {
			b.WriteString("\n")
			b.WriteString(m.styles.MessageInterrupt.Render("⚡ Stopped (full reply saved)"))
		}
		return b.String()
	}

	b.WriteString(m.styles.AIMessage.Render(m.renderer.Render(message.Content)))
	b.WriteString("\n")
	b.WriteString(number)
	switch message.Rating {
	case chat.RatingLike:
		b.WriteString(m.styles.MessageFooter.Render(" · 👍 liked"))
	case chat.RatingDislike:
		b.WriteString(m.styles.MessageFooter.Render(" · 👎 disliked"))
	}
	return b.String()
}

func (m *Model) renderWelcome() string {
	name := "there"
	if user := m.app.Gate.Current(); user != nil {
		name = user.DisplayName
	}
	var b strings.Builder
	b.WriteString(m.styles.WelcomeTitle.Render(fmt.Sprintf("🧘 Hello, %s. How can I help you today?", name)))
	b.WriteString("\n")
	for i, suggestion := range suggestions {
		b.WriteString(m.styles.Suggestion.Render(fmt.Sprintf("Alt+%d  %s", i+1, suggestion)))
		b.WriteString("\n")
	}
	return b.String()
}
