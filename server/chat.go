package server

import (
	"errors"
	"net/http"

	"github.com/malonaz/talkzen/chat"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Reload(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	session, err := s.sessions.Get(r.PathValue("id"))
	if errors.Is(err, chat.ErrSessionNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	viewModel := newChatViewModel(session)
	chatTitle := "Unnamed chat"
	if session.Title != "" {
		chatTitle = session.Title
	}

	s.render(w, &PageData{
		Title: chatTitle,
		Chat:  &viewModel,
	})
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	_, err := s.sessions.DeleteSession(r.Context(), r.PathValue("id"))
	if errors.Is(err, chat.ErrSessionNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodDelete || r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
