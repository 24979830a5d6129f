package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/internal/debug"
	"github.com/malonaz/talkzen/internal/file"
	"github.com/malonaz/talkzen/internal/role"
)

// ProviderFactory instantiates providers. Tests swap it for fakes.
type ProviderFactory func(ctx context.Context, provider *configuration.Provider, apiKey string) (Provider, error)

// Client completes prompts within a conversation.
type Client struct {
	config      *configuration.Config
	newProvider ProviderFactory

	mu        sync.Mutex
	providers map[string]Provider
}

// NewClient returns a client. A nil factory uses NewProvider.
func NewClient(config *configuration.Config, newProvider ProviderFactory) *Client {
	if newProvider == nil {
		newProvider = NewProvider
	}
	return &Client{
		config:      config,
		newProvider: newProvider,
		providers:   map[string]Provider{},
	}
}

// CompleteRequest holds everything needed for one completion.
type CompleteRequest struct {
	// Model name or alias.
	Model       string
	APIKey      string
	Prompt      string
	History     []*Message
	Attachments []*file.Attachment
	// Display name available to the system prompt template.
	Username string
}

// BuildMessages returns the messages sent for a request: the preamble, its acknowledgment,
// the history in order and finally the prompt itself.
func (c *Client) BuildMessages(request *CompleteRequest) ([]*Message, error) {
	preamble, err := role.Render(c.config.Chat.SystemPrompt, role.NewTemplateData(request.Username, time.Now()))
	if err != nil {
		return nil, err
	}
	messages := make([]*Message, 0, len(request.History)+3)
	messages = append(messages,
		&Message{Role: RoleUser, Content: preamble},
		&Message{Role: RoleAssistant, Content: c.config.Chat.Acknowledgment},
	)
	messages = append(messages, request.History...)
	messages = append(messages, &Message{Role: RoleUser, Content: request.Prompt, Attachments: request.Attachments})
	return messages, nil
}

// Complete sends the prompt and returns the text of the first candidate.
// A canceled ctx yields ErrCanceled, a provider failure yields a *ProviderError.
func (c *Client) Complete(ctx context.Context, request *CompleteRequest) (string, error) {
	if request.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	model, providerConfig, ok := c.config.LookupModel(request.Model)
	if !ok {
		return "", fmt.Errorf("unknown model (%s)", request.Model)
	}
	provider, err := c.provider(ctx, providerConfig, request.APIKey)
	if err != nil {
		return "", err
	}

	requestCtx := ctx
	if timeout := c.config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	messages, err := c.BuildMessages(request)
	if err != nil {
		return "", err
	}
	log := debug.GetLogger().With("request_id", uuid.NewString(), "model", model.Name, "provider", providerConfig.Name)
	log.Info("sending completion request", "messages", len(messages), "attachments", len(request.Attachments))
	start := time.Now()
	text, err := provider.GenerateContent(requestCtx, &GenerateRequest{Model: model.Name, Messages: messages})
	latency := time.Since(start)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Info("completion request canceled", "latency", latency)
			return "", ErrCanceled
		}
		if errors.Is(requestCtx.Err(), context.DeadlineExceeded) {
			log.Error("completion request timed out", "latency", latency)
			return "", &ProviderError{Message: fmt.Sprintf("request timed out after %s", c.config.Timeout())}
		}
		log.Error("completion request failed", "latency", latency, "error", err)
		return "", err
	}
	log.Info("completion request succeeded", "latency", latency, "length", len(text))
	return text, nil
}

func (c *Client) provider(ctx context.Context, config *configuration.Provider, apiKey string) (Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := config.Name + "/" + apiKey
	if provider, ok := c.providers[key]; ok {
		return provider, nil
	}
	provider, err := c.newProvider(ctx, config, apiKey)
	if err != nil {
		return nil, fmt.Errorf("instantiating provider %s: %w", config.Name, err)
	}
	c.providers[key] = provider
	return provider, nil
}
