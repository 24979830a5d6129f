package chat

import (
	"context"
	"fmt"
)

// DeleteSession removes a session. If it was active, the first remaining session
// becomes active. Returns the active session afterwards, nil if there is none.
func (s *Store) DeleteSession(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(ctx); err != nil {
		return nil, err
	}

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sessions := make([]*Session, 0, len(s.sessions)-1)
	sessions = append(sessions, s.sessions[:i]...)
	sessions = append(sessions, s.sessions[i+1:]...)
	if err := s.commit(ctx, sessions); err != nil {
		return nil, err
	}
	if s.activeID == id {
		s.activeID = ""
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
		}
	}
	return s.activeLocked(), nil
}

// ClearAll removes every session.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undecodable = nil
	if err := s.commit(ctx, []*Session{}); err != nil {
		return err
	}
	s.activeID = ""
	return nil
}
