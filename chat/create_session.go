package chat

import (
	"context"
)

// CreateSession prepends a new empty session titled after seedTitle and makes it active.
func (s *Store) CreateSession(ctx context.Context, seedTitle string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(ctx); err != nil {
		return nil, err
	}

	session := &Session{
		ID:       s.nextID(),
		Title:    Title(seedTitle, s.opts.TitleLength),
		Messages: []*Message{},
	}
	sessions := make([]*Session, 0, len(s.sessions)+1)
	sessions = append(sessions, session)
	sessions = append(sessions, s.sessions...)
	if err := s.commit(ctx, sessions); err != nil {
		return nil, err
	}
	s.activeID = session.ID
	return session.Clone(), nil
}

// SetTitle retitles a session from a prompt.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, func(session *Session) error {
		session.Title = Title(title, s.opts.TitleLength)
		return nil
	})
}
