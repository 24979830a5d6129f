package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/internal/auth"
	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/internal/file"
	"github.com/malonaz/talkzen/internal/llm"
)

// Outcome of a send.
type Outcome int

const (
	// OutcomeReplied means the exchange was persisted.
	OutcomeReplied Outcome = iota
	// OutcomeKeySaved means the prompt was an api key and got saved instead of sent.
	OutcomeKeySaved
	// OutcomeMissingKey means no key is available. Nothing was sent.
	OutcomeMissingKey
	// OutcomeGuestLimit means the guest quota is used up. Nothing was sent.
	OutcomeGuestLimit
	// OutcomeFailed means the provider failed. Nothing was persisted.
	OutcomeFailed
	// OutcomeCanceled means the user stopped the request. Nothing was persisted.
	OutcomeCanceled
)

const (
	keySavedReply   = "🔑 **API Key Detected!**\n\nYour key has been saved. Send your message again to start chatting."
	guestLimitReply = "🔒 **Guest Limit Reached**\n\nPlease login to continue chatting."
	missingKeyReply = "⚠️ **System Error:** API Key is missing.\n\n**To fix this immediately:**\n" +
		"1. Copy your %s API Key.\n2. **PASTE IT HERE** in this chat.\n\nI will automatically save it for you."
)

// Result of a send.
type Result struct {
	Outcome Outcome
	// Assistant-role text to display. Only persisted for OutcomeReplied.
	Reply string
	// The session the exchange belongs to, nil if no session was touched.
	Session *chat.Session
	// Set for OutcomeFailed.
	Err error
}

// Send submits a prompt in the active session, creating one if needed.
func (a *App) Send(ctx context.Context, text string, attachments []*file.Attachment) (*Result, error) {
	return a.send(ctx, text, attachments, -1)
}

// Edit replaces the user message at index with text, drops everything after it
// and generates a fresh reply. The session is only modified if the reply succeeds.
func (a *App) Edit(ctx context.Context, index int, text string) (*Result, error) {
	session := a.Chats.Active()
	if session == nil {
		return nil, chat.ErrSessionNotFound
	}
	if index < 0 || index >= len(session.Messages) {
		return nil, chat.ErrMessageNotFound
	}
	if session.Messages[index].Role != chat.RoleUser {
		return nil, chat.ErrNotUserMessage
	}
	return a.send(ctx, text, nil, index)
}

// Regenerate drops the assistant message at index and everything after it, then
// resends the user message that prompted it.
func (a *App) Regenerate(ctx context.Context, index int) (*Result, error) {
	session := a.Chats.Active()
	if session == nil {
		return nil, chat.ErrSessionNotFound
	}
	if index < 1 || index >= len(session.Messages) {
		return nil, chat.ErrMessageNotFound
	}
	if session.Messages[index].Role != chat.RoleAssistant {
		return nil, chat.ErrNotAssistantMessage
	}
	prompt := session.Messages[index-1]
	if prompt.Role != chat.RoleUser {
		return nil, chat.ErrNotUserMessage
	}
	return a.send(ctx, prompt.Content, nil, index-1)
}

// Rate toggles the rating of an assistant message of the active session.
func (a *App) Rate(ctx context.Context, index int, rating chat.Rating) (chat.Rating, error) {
	session := a.Chats.Active()
	if session == nil {
		return chat.RatingNone, chat.ErrSessionNotFound
	}
	return a.Chats.Rate(ctx, session.ID, index, rating)
}

// send runs the send pipeline. A non-negative replaceFrom replaces the messages
// of the active session from that index onwards with the new exchange.
func (a *App) send(ctx context.Context, text string, attachments []*file.Attachment, replaceFrom int) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyPrompt
	}
	if a.Gate.Current() == nil {
		return nil, auth.ErrNotLoggedIn
	}
	ctx, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer a.end()

	// Without a key nothing goes over the network.
	if !a.HasAPIKey() {
		provider := a.Provider()
		if llm.LooksLikeAPIKey(provider, text) {
			if err := a.SaveAPIKey(ctx, text); err != nil {
				return nil, err
			}
			return &Result{Outcome: OutcomeKeySaved, Reply: keySavedReply}, nil
		}
		return &Result{Outcome: OutcomeMissingKey, Reply: fmt.Sprintf(missingKeyReply, providerLabel(provider))}, nil
	}

	if err := a.Gate.ConsumeGuestMessage(ctx); err != nil {
		if errors.Is(err, auth.ErrGuestLimit) {
			return &Result{Outcome: OutcomeGuestLimit, Reply: guestLimitReply}, nil
		}
		return nil, err
	}

	session, err := a.targetSession(ctx, text, replaceFrom)
	if err != nil {
		return nil, err
	}
	previous := session.Messages
	if replaceFrom >= 0 {
		previous = previous[:replaceFrom]
	}
	history := make([]*llm.Message, 0, len(previous))
	for _, message := range previous {
		role := llm.RoleUser
		if message.Role == chat.RoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, &llm.Message{Role: role, Content: message.Content})
	}

	reply, err := a.client.Complete(ctx, &llm.CompleteRequest{
		Model:       a.Model(),
		APIKey:      a.apiKeyValue(),
		Prompt:      text,
		History:     history,
		Attachments: attachments,
		Username:    a.username(),
	})
	if errors.Is(err, llm.ErrCanceled) {
		return &Result{Outcome: OutcomeCanceled, Session: session}, nil
	}
	if err != nil {
		return &Result{Outcome: OutcomeFailed, Reply: "Error: " + err.Error(), Session: session, Err: err}, nil
	}

	// Persist with a fresh context: the exchange completed, stopping now must not lose it.
	persistCtx := context.WithoutCancel(ctx)
	if replaceFrom >= 0 {
		if err := a.Chats.TruncateAfter(persistCtx, session.ID, replaceFrom); err != nil {
			return nil, err
		}
	}
	err = a.Chats.AppendMessage(persistCtx, session.ID,
		&chat.Message{Role: chat.RoleUser, Content: text},
		&chat.Message{Role: chat.RoleAssistant, Content: reply},
	)
	if err != nil {
		return nil, err
	}
	session, err = a.Chats.Get(session.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: OutcomeReplied, Reply: reply, Session: session}, nil
}

// targetSession returns the session a prompt goes to, creating or titling it as needed.
func (a *App) targetSession(ctx context.Context, text string, replaceFrom int) (*chat.Session, error) {
	session := a.Chats.Active()
	if replaceFrom >= 0 {
		if session == nil || replaceFrom > len(session.Messages) {
			return nil, chat.ErrSessionNotFound
		}
		return session, nil
	}
	if session == nil {
		return a.Chats.CreateSession(ctx, text)
	}
	if len(session.Messages) == 0 {
		if err := a.Chats.SetTitle(ctx, session.ID, text); err != nil {
			return nil, err
		}
		return a.Chats.Get(session.ID)
	}
	return session, nil
}

func (a *App) apiKeyValue() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apiKey
}

func (a *App) username() string {
	if user := a.Gate.Current(); user != nil {
		return user.DisplayName
	}
	return ""
}

func providerLabel(provider string) string {
	switch provider {
	case configuration.ProviderOpenAI:
		return "OpenAI"
	default:
		return "Google Gemini"
	}
}
