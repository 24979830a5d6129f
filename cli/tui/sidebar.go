package tui

import (
	"github.com/malonaz/talkzen/chat"
)

// sidebar is the cursor state of the history list. The list itself is always
// derived from the chat store.
type sidebar struct {
	cursor int
	// Id of the session awaiting delete confirmation.
	confirming string
}

// clamp keeps the cursor within a list of n sessions.
func (s *sidebar) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func (s *sidebar) up(n int) {
	s.confirming = ""
	s.cursor--
	s.clamp(n)
}

func (s *sidebar) down(n int) {
	s.confirming = ""
	s.cursor++
	s.clamp(n)
}

// selected returns the session under the cursor.
func (s *sidebar) selected(sessions []*chat.Session) *chat.Session {
	if len(sessions) == 0 {
		return nil
	}
	s.clamp(len(sessions))
	return sessions[s.cursor]
}

// moveTo puts the cursor on the session with the given id, if listed.
func (s *sidebar) moveTo(sessions []*chat.Session, id string) {
	for i, session := range sessions {
		if session.ID == id {
			s.cursor = i
			return
		}
	}
}

// window returns the range of sessions to display in height rows so that the cursor stays visible.
func (s *sidebar) window(n, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start := s.cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}
