// Package chat holds the chat sessions aggregate. The whole aggregate is
// persisted as one JSON snapshot under a single key.
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMessageNotFound is returned when a message index is out of range.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotUserMessage is returned when editing a message the user did not write.
	ErrNotUserMessage = errors.New("not a user message")
	// ErrNotAssistantMessage is returned when rating a message the assistant did not write.
	ErrNotAssistantMessage = errors.New("not an assistant message")
)

// Role of a message author.
type Role string

const (
	RoleUser Role = "user"
	// RoleAssistant is persisted as "ai".
	RoleAssistant Role = "ai"
)

// UnmarshalJSON accepts the provider spellings of the assistant role as well.
func (r *Role) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch value {
	case "user":
		*r = RoleUser
	case "ai", "assistant", "model":
		*r = RoleAssistant
	default:
		return fmt.Errorf("unknown role %q", value)
	}
	return nil
}

// Rating of an assistant message.
type Rating string

const (
	RatingNone    Rating = ""
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
)

// Message is a single entry of a session.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Rating  Rating `json:"rating,omitempty"`
}

// Session is one conversation thread.
type Session struct {
	// Derived from the creation time in milliseconds.
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Messages []*Message `json:"messages"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	clone := &Session{ID: s.ID, Title: s.Title, Messages: make([]*Message, 0, len(s.Messages))}
	for _, message := range s.Messages {
		m := *message
		clone.Messages = append(clone.Messages, &m)
	}
	return clone
}

// LastUserIndex returns the index of the last user message, or -1.
func (s *Session) LastUserIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// LastAssistantIndex returns the index of the last assistant message, or -1.
func (s *Session) LastAssistantIndex() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return i
		}
	}
	return -1
}

// Title derives a session title from a prompt: its first maxLength characters.
func Title(prompt string, maxLength int) string {
	prompt = strings.TrimSpace(prompt)
	if maxLength <= 0 || utf8.RuneCountInString(prompt) <= maxLength {
		return prompt
	}
	return string([]rune(prompt)[:maxLength])
}
