package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider returns a provider. apiHost may be empty to use the default endpoint.
func NewGeminiProvider(ctx context.Context, apiHost, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: apiHost,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// GenerateContent implements Provider.
func (p *GeminiProvider) GenerateContent(ctx context.Context, request *GenerateRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(request.Messages))
	for _, message := range request.Messages {
		var role genai.Role = genai.RoleUser
		if message.Role == RoleAssistant {
			role = genai.RoleModel
		}
		parts := []*genai.Part{genai.NewPartFromText(message.Content)}
		for _, attachment := range message.Attachments {
			parts = append(parts, genai.NewPartFromBytes(attachment.Data, attachment.MimeType))
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	res, err := p.client.Models.GenerateContent(ctx, request.Model, contents, nil)
	if err != nil {
		return "", geminiError(err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidate
	}
	return res.Candidates[0].Content.Parts[0].Text, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Status: apiErr.Code, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &ProviderError{Status: apiErrPtr.Code, Message: apiErrPtr.Message}
	}
	return fmt.Errorf("generating content: %w", err)
}
