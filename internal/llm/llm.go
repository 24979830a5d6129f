// Package llm issues completion requests to hosted language models.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/internal/file"
)

var (
	// ErrCanceled is returned when the caller aborted the request.
	ErrCanceled = errors.New("request canceled")
	// ErrNoCandidate is returned when the provider answered without any text.
	ErrNoCandidate = errors.New("response contained no candidate")
	// ErrMissingAPIKey is returned before any network call when no key is configured.
	ErrMissingAPIKey = errors.New("api key is missing")
)

// ProviderError is a non-success answer from a provider.
type ProviderError struct {
	// HTTP status code, 0 if unknown.
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return "API Error"
	}
	return e.Message
}

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message sent to a provider.
type Message struct {
	Role        Role
	Content     string
	Attachments []*file.Attachment
}

// GenerateRequest is a single, non streaming, completion request.
type GenerateRequest struct {
	Model    string
	Messages []*Message
}

// Provider generates text.
type Provider interface {
	GenerateContent(context.Context, *GenerateRequest) (string, error)
}

// NewProvider instantiates the provider for the given configuration.
func NewProvider(ctx context.Context, provider *configuration.Provider, apiKey string) (Provider, error) {
	switch provider.Name {
	case configuration.ProviderGemini:
		return NewGeminiProvider(ctx, provider.APIHost, apiKey)
	case configuration.ProviderOpenAI:
		return NewOpenAIProvider(provider.APIHost, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider (%s)", provider.Name)
	}
}

// LooksLikeAPIKey returns true if text has the shape of a key for the given provider.
func LooksLikeAPIKey(provider, text string) bool {
	text = strings.TrimSpace(text)
	if strings.ContainsAny(text, " \n\t") || len(text) < 20 {
		return false
	}
	switch provider {
	case configuration.ProviderGemini:
		return strings.HasPrefix(text, "AIza")
	case configuration.ProviderOpenAI:
		return strings.HasPrefix(text, "sk-")
	}
	return false
}
