package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"

	"github.com/malonaz/talkzen/cli/tui/styles"
)

// sidebarVisible returns true if the terminal is wide enough for the history sidebar.
func (m *Model) sidebarVisible() bool {
	return m.width >= styles.MinWidthWithSidebar
}

// mainWidth returns the width of the conversation column.
func (m *Model) mainWidth() int {
	if !m.sidebarVisible() {
		return m.width
	}
	return m.width - m.styles.Sidebar.GetWidth() - m.styles.Sidebar.GetHorizontalBorderSize()
}

// adjustTextareaHeight resizes the textarea based on content line count.
func (m *Model) adjustTextareaHeight() {
	content := m.textarea.Value()
	lineCount := strings.Count(content, "\n") + 1

	newHeight := lineCount
	if newHeight < styles.MinTextareaHeight {
		newHeight = styles.MinTextareaHeight
	}
	if newHeight > styles.MaxTextareaHeight {
		newHeight = styles.MaxTextareaHeight
	}

	oldHeight := m.textarea.Height()
	if oldHeight != newHeight {
		m.textarea.SetHeight(newHeight)

		heightDiff := newHeight - oldHeight

		m.recalculateLayout()

		if heightDiff != 0 && m.ready {
			m.viewport.LineDown(heightDiff)
		}
	}
}

// recalculateLayout adjusts viewport and textarea dimensions based on current state.
func (m *Model) recalculateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	width := m.mainWidth()
	viewportHeight := m.height - styles.HeaderHeight - styles.StatusHeight
	viewportHeight -= m.textarea.Height() + styles.InputBorderHeight
	if len(m.attachments) > 0 {
		viewportHeight--
	}
	if viewportHeight < styles.MinViewportHeight {
		viewportHeight = styles.MinViewportHeight
	}

	if err := m.renderer.SetWidth(width - m.styles.AIMessage.GetHorizontalFrameSize()); err != nil {
		log.Warn("resizing markdown renderer", "error", err)
	}

	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
		m.viewport.SetContent(m.renderMessages())
	}

	m.textarea.SetWidth(width - m.styles.TextArea.GetHorizontalPadding() - m.styles.TextArea.GetHorizontalBorderSize())
}

// refresh re-renders the conversation, optionally scrolling to the bottom.
func (m *Model) refresh(toBottom bool) {
	if !m.ready {
		return
	}
	m.recalculateLayout()
	if toBottom {
		m.viewport.GotoBottom()
	}
}
