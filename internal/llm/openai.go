package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI compatible chat completion endpoint.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiHost, apiKey string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if apiHost != "" {
		config.BaseURL = apiHost
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(config)}
}

// GenerateContent implements Provider.
func (p *OpenAIProvider) GenerateContent(ctx context.Context, request *GenerateRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.Messages))
	for _, message := range request.Messages {
		messages = append(messages, toOpenAIMessage(message))
	}
	response, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    request.Model,
		Messages: messages,
	})
	if err != nil {
		return "", openAIError(err)
	}
	if len(response.Choices) == 0 {
		return "", ErrNoCandidate
	}
	return response.Choices[0].Message.Content, nil
}

func toOpenAIMessage(message *Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	if message.Role == RoleAssistant {
		role = openai.ChatMessageRoleAssistant
	}

	// Text files are inlined, images are sent as data urls, anything else is only named.
	var builder strings.Builder
	builder.WriteString(message.Content)
	var images []openai.ChatMessagePart
	for _, attachment := range message.Attachments {
		switch {
		case attachment.IsText():
			fmt.Fprintf(&builder, "\n\nfile %s:\n```\n%s\n```", attachment.Name, attachment.Data)
		case strings.HasPrefix(attachment.MimeType, "image/"):
			images = append(images, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: attachment.DataURL()},
			})
		default:
			fmt.Fprintf(&builder, "\n\n[attached %s (%s), not readable by this model]", attachment.Name, attachment.MimeType)
		}
	}
	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: builder.String()}
	}
	parts := append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: builder.String()}}, images...)
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		return &ProviderError{Status: requestErr.HTTPStatusCode, Message: requestErr.Error()}
	}
	return fmt.Errorf("creating chat completion: %w", err)
}
