package chat

import (
	"context"
	"fmt"
)

// AppendMessage appends messages, in order, to a session.
func (s *Store) AppendMessage(ctx context.Context, id string, messages ...*Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, func(session *Session) error {
		for _, message := range messages {
			m := *message
			session.Messages = append(session.Messages, &m)
		}
		return nil
	})
}

// TruncateAfter removes every message at or after index.
func (s *Store) TruncateAfter(ctx context.Context, id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, func(session *Session) error {
		if index < 0 || index > len(session.Messages) {
			return fmt.Errorf("%w: index %d", ErrMessageNotFound, index)
		}
		session.Messages = session.Messages[:index]
		return nil
	})
}

// EditMessage overwrites a user message and drops every later message.
func (s *Store) EditMessage(ctx context.Context, id string, index int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, id, func(session *Session) error {
		if index < 0 || index >= len(session.Messages) {
			return fmt.Errorf("%w: index %d", ErrMessageNotFound, index)
		}
		if session.Messages[index].Role != RoleUser {
			return ErrNotUserMessage
		}
		session.Messages[index].Content = content
		session.Messages = session.Messages[:index+1]
		return nil
	})
}

// Rate sets the rating of an assistant message. Rating it again with the same value clears it.
// Returns the resulting rating.
func (s *Store) Rate(ctx context.Context, id string, index int, rating Rating) (Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result Rating
	err := s.update(ctx, id, func(session *Session) error {
		if index < 0 || index >= len(session.Messages) {
			return fmt.Errorf("%w: index %d", ErrMessageNotFound, index)
		}
		message := session.Messages[index]
		if message.Role != RoleAssistant {
			return ErrNotAssistantMessage
		}
		if message.Rating == rating {
			message.Rating = RatingNone
		} else {
			message.Rating = rating
		}
		result = message.Rating
		return nil
	})
	return result, err
}
