package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/internal/file"
)

// fakeProvider records requests and answers with a fixed text or error.
type fakeProvider struct {
	requests []*GenerateRequest
	text     string
	err      error
	// When set, blocks until ctx is done.
	block bool
}

func (p *fakeProvider) GenerateContent(ctx context.Context, request *GenerateRequest) (string, error) {
	p.requests = append(p.requests, request)
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.text, p.err
}

func newFakeClient(t *testing.T, provider *fakeProvider) (*Client, *int) {
	t.Helper()
	created := 0
	factory := func(ctx context.Context, config *configuration.Provider, apiKey string) (Provider, error) {
		created++
		return provider, nil
	}
	return NewClient(configuration.Default(), factory), &created
}

func TestComplete_MessageOrder(t *testing.T) {
	provider := &fakeProvider{text: "Paris"}
	client, _ := newFakeClient(t, provider)
	config := configuration.Default()

	history := []*Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}
	text, err := client.Complete(context.Background(), &CompleteRequest{
		Model:   "flash",
		APIKey:  "key",
		Prompt:  "capital of france?",
		History: history,
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris", text)

	require.Len(t, provider.requests, 1)
	request := provider.requests[0]
	assert.Equal(t, "gemini-2.5-flash-latest", request.Model)
	require.Len(t, request.Messages, 5)
	assert.Equal(t, &Message{Role: RoleUser, Content: config.Chat.SystemPrompt}, request.Messages[0])
	assert.Equal(t, &Message{Role: RoleAssistant, Content: config.Chat.Acknowledgment}, request.Messages[1])
	assert.Equal(t, "hi", request.Messages[2].Content)
	assert.Equal(t, "hello", request.Messages[3].Content)
	assert.Equal(t, RoleUser, request.Messages[4].Role)
	assert.Equal(t, "capital of france?", request.Messages[4].Content)
}

func TestBuildMessages_RendersPreamble(t *testing.T) {
	config := configuration.Default()
	config.Chat.SystemPrompt = "You are assisting {{ .Username }}."
	client := NewClient(config, nil)

	messages, err := client.BuildMessages(&CompleteRequest{Prompt: "hi", Username: "Ada"})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "You are assisting Ada.", messages[0].Content)

	config.Chat.SystemPrompt = "{{ .Username"
	_, err = client.BuildMessages(&CompleteRequest{Prompt: "hi"})
	assert.Error(t, err)
}

func TestComplete_MissingKey(t *testing.T) {
	provider := &fakeProvider{text: "unused"}
	client, created := newFakeClient(t, provider)
	_, err := client.Complete(context.Background(), &CompleteRequest{Model: "flash", Prompt: "Hello"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, *created)
	assert.Empty(t, provider.requests)
}

func TestComplete_UnknownModel(t *testing.T) {
	client, _ := newFakeClient(t, &fakeProvider{})
	_, err := client.Complete(context.Background(), &CompleteRequest{Model: "gpt-9", APIKey: "key", Prompt: "x"})
	require.Error(t, err)
}

func TestComplete_Canceled(t *testing.T) {
	provider := &fakeProvider{block: true}
	client, _ := newFakeClient(t, provider)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Complete(ctx, &CompleteRequest{Model: "flash", APIKey: "key", Prompt: "x"})
	require.ErrorIs(t, err, ErrCanceled)
}

func TestComplete_ProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: &ProviderError{Status: 429, Message: "Resource has been exhausted"}}
	client, _ := newFakeClient(t, provider)
	_, err := client.Complete(context.Background(), &CompleteRequest{Model: "flash", APIKey: "key", Prompt: "x"})
	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "Resource has been exhausted", providerErr.Error())
	assert.False(t, errors.Is(err, ErrCanceled))
}

func TestComplete_ReusesProvider(t *testing.T) {
	client, created := newFakeClient(t, &fakeProvider{text: "ok"})
	for range 3 {
		_, err := client.Complete(context.Background(), &CompleteRequest{Model: "flash", APIKey: "key", Prompt: "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, *created)
}

func TestProviderError_DefaultMessage(t *testing.T) {
	assert.Equal(t, "API Error", (&ProviderError{Status: 500}).Error())
}

func TestLooksLikeAPIKey(t *testing.T) {
	assert.True(t, LooksLikeAPIKey(configuration.ProviderGemini, "AIzaSyD-0123456789abcdefghijklmnop"))
	assert.False(t, LooksLikeAPIKey(configuration.ProviderGemini, "AIza is how keys start"))
	assert.False(t, LooksLikeAPIKey(configuration.ProviderGemini, "Hello"))
	assert.True(t, LooksLikeAPIKey(configuration.ProviderOpenAI, "sk-proj-0123456789abcdefghijkl"))
	assert.False(t, LooksLikeAPIKey(configuration.ProviderOpenAI, "AIzaSyD-0123456789abcdefghijklmnop"))
}

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
}

func TestGeminiProvider(t *testing.T) {
	var received geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "gemini-2.5-flash-latest:generateContent"), r.URL.Path)
		assert.Equal(t, "AIzaTestKey", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"alpha beta gamma"}]}}]}`))
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(context.Background(), server.URL, "AIzaTestKey")
	require.NoError(t, err)
	text, err := provider.GenerateContent(context.Background(), &GenerateRequest{
		Model: "gemini-2.5-flash-latest",
		Messages: []*Message{
			{Role: RoleUser, Content: "preamble"},
			{Role: RoleAssistant, Content: "ack"},
			{Role: RoleUser, Content: "prompt", Attachments: []*file.Attachment{{Name: "a.png", MimeType: "image/png", Data: []byte{0x89, 0x50}}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "alpha beta gamma", text)

	require.Len(t, received.Contents, 3)
	assert.Equal(t, "user", received.Contents[0].Role)
	assert.Equal(t, "model", received.Contents[1].Role)
	assert.Equal(t, "user", received.Contents[2].Role)
	require.Len(t, received.Contents[2].Parts, 2)
	assert.Equal(t, "prompt", received.Contents[2].Parts[0].Text)
	require.NotNil(t, received.Contents[2].Parts[1].InlineData)
	assert.Equal(t, "image/png", received.Contents[2].Parts[1].InlineData.MimeType)
}

func TestGeminiProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "provider message",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantErr: func(t *testing.T, err error) {
				var providerErr *ProviderError
				require.True(t, errors.As(err, &providerErr), err)
				assert.Equal(t, http.StatusBadRequest, providerErr.Status)
				assert.Equal(t, "API key not valid. Please pass a valid API key.", providerErr.Message)
			},
		},
		{
			name:   "no candidate",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			wantErr: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrNoCandidate)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()
			provider, err := NewGeminiProvider(context.Background(), server.URL, "AIzaTestKey")
			require.NoError(t, err)
			_, err = provider.GenerateContent(context.Background(), &GenerateRequest{
				Model:    "gemini-2.5-flash-latest",
				Messages: []*Message{{Role: RoleUser, Content: "x"}},
			})
			tc.wantErr(t, err)
		})
	}
}

func TestOpenAIProvider(t *testing.T) {
	var received struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(server.URL+"/v1", "sk-test")
	text, err := provider.GenerateContent(context.Background(), &GenerateRequest{
		Model: "gpt-4o-mini",
		Messages: []*Message{
			{Role: RoleUser, Content: "preamble"},
			{Role: RoleAssistant, Content: "ack"},
			{Role: RoleUser, Content: "summarize", Attachments: []*file.Attachment{{Name: "notes.txt", MimeType: "text/plain", Data: []byte("buy milk")}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)
	assert.Equal(t, "gpt-4o-mini", received.Model)
	require.Len(t, received.Messages, 3)
	assert.Equal(t, "assistant", received.Messages[1].Role)
	assert.Contains(t, received.Messages[2].Content, "file notes.txt:")
	assert.Contains(t, received.Messages[2].Content, "buy milk")
}

func TestOpenAIProvider_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(server.URL+"/v1", "sk-test")
	_, err := provider.GenerateContent(context.Background(), &GenerateRequest{
		Model:    "gpt-4o-mini",
		Messages: []*Message{{Role: RoleUser, Content: "x"}},
	})
	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr), err)
	assert.Equal(t, http.StatusUnauthorized, providerErr.Status)
	assert.Equal(t, "Incorrect API key provided", providerErr.Message)
}
