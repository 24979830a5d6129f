package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/malonaz/talkzen/chat"
)

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	if err := s.sessions.Reload(r.Context()); err != nil {
		http.Error(w, "Failed to list chats", http.StatusInternalServerError)
		return
	}
	sessions := s.sessions.ListSessions()
	if query != "" {
		sessions = search(sessions, query)
	}

	totalPages := (len(sessions) + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * s.pageSize
	end := min(start+s.pageSize, len(sessions))

	chatViews := make([]ChatViewModel, 0, end-start)
	for _, session := range sessions[start:end] {
		chatViews = append(chatViews, newChatViewModel(session))
	}

	s.render(w, &PageData{
		Title:       "History",
		Query:       query,
		Chats:       chatViews,
		CurrentPage: page,
		TotalPages:  totalPages,
	})
}

// search keeps the sessions whose title or messages contain query, ignoring case.
func search(sessions []*chat.Session, query string) []*chat.Session {
	query = strings.ToLower(query)
	var matches []*chat.Session
	for _, session := range sessions {
		if strings.Contains(strings.ToLower(session.Title), query) {
			matches = append(matches, session)
			continue
		}
		for _, message := range session.Messages {
			if strings.Contains(strings.ToLower(message.Content), query) {
				matches = append(matches, session)
				break
			}
		}
	}
	return matches
}

func newChatViewModel(session *chat.Session) ChatViewModel {
	viewModel := ChatViewModel{Session: session}
	if ms, err := strconv.ParseInt(session.ID, 10, 64); err == nil {
		viewModel.FormattedTime = time.UnixMilli(ms).Format("Jan 2, 2006 3:04 PM")
	}
	return viewModel
}
