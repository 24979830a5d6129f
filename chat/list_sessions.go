package chat

// ListSessions returns copies of all sessions, newest first.
func (s *Store) ListSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions
}

// Get a copy of a session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, ErrSessionNotFound
	}
	return s.sessions[i].Clone(), nil
}

// Active returns a copy of the active session, or nil when none is selected.
func (s *Store) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Store) activeLocked() *Session {
	if i := s.indexOf(s.activeID); i >= 0 {
		return s.sessions[i].Clone()
	}
	return nil
}

// Select makes a session active.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return ErrSessionNotFound
	}
	s.activeID = id
	return nil
}

// NewChat deselects the active session. The next send creates a new one.
func (s *Store) NewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}
