// Package app owns the client state: the chat store, the identity gate, the
// completion client, the selected model and theme, and the generating flag.
// Every user action goes through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/malonaz/talkzen/chat"
	"github.com/malonaz/talkzen/internal/auth"
	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/internal/debug"
	"github.com/malonaz/talkzen/internal/history"
	"github.com/malonaz/talkzen/internal/llm"
	"github.com/malonaz/talkzen/store"
)

var (
	// ErrBusy is returned when a send is attempted while another one is in flight.
	ErrBusy = errors.New("a response is already being generated")
	// ErrEmptyPrompt is returned for blank prompts.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Theme of the interface.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Opts for the app.
type Opts struct {
	// Overrides how providers are instantiated. Nil uses the real ones.
	ProviderFactory llm.ProviderFactory
	// Clock for session ids. Nil uses time.Now.
	Now func() time.Time
	// Overrides the persisted model for this run.
	Model string
}

// App is the application state object.
type App struct {
	config *configuration.Config
	kv     store.Store
	client *llm.Client

	Chats   *chat.Store
	Gate    *auth.Gate
	History *history.History

	mu         sync.Mutex
	generating bool
	cancel     context.CancelFunc
	model      string
	theme      Theme
	apiKey     string
}

// New loads the persisted state from kv.
func New(ctx context.Context, config *configuration.Config, kv store.Store, opts Opts) (*App, error) {
	chats, err := chat.Load(ctx, kv, chat.Opts{TitleLength: config.Chat.TitleLength, Now: opts.Now})
	if err != nil {
		return nil, fmt.Errorf("loading chats: %w", err)
	}
	gate, err := auth.NewGate(kv, config.Auth, config.Chat.GuestMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("creating identity gate: %w", err)
	}
	if _, err := gate.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restoring identity: %w", err)
	}

	a := &App{
		config:  config,
		kv:      kv,
		client:  llm.NewClient(config, opts.ProviderFactory),
		Chats:   chats,
		Gate:    gate,
		History: history.New(ctx, kv),
	}

	model, err := store.GetOrDefault(ctx, kv, store.KeyModel, config.DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	if opts.Model != "" {
		model = opts.Model
	}
	if _, _, ok := config.LookupModel(model); !ok {
		debug.GetLogger().Warn("unknown model, using default", "model", model, "default", config.DefaultModel)
		model = config.DefaultModel
	}
	a.model = model

	theme, err := store.GetOrDefault(ctx, kv, store.KeyTheme, string(ThemeDark))
	if err != nil {
		return nil, fmt.Errorf("reading theme: %w", err)
	}
	a.theme = ThemeDark
	if Theme(theme) == ThemeLight {
		a.theme = ThemeLight
	}

	apiKey, err := store.GetOrDefault(ctx, kv, store.KeyAPIKey, config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("reading api key: %w", err)
	}
	a.apiKey = strings.TrimSpace(apiKey)
	return a, nil
}

// Config returns the configuration.
func (a *App) Config() *configuration.Config { return a.config }

// Model returns the selected model name or alias.
func (a *App) Model() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// Provider returns the provider name of the selected model.
func (a *App) Provider() string {
	_, provider, ok := a.config.LookupModel(a.Model())
	if !ok {
		return ""
	}
	return provider.Name
}

// SwitchModel selects and persists a model.
func (a *App) SwitchModel(ctx context.Context, name string) error {
	model, _, ok := a.config.LookupModel(name)
	if !ok {
		return fmt.Errorf("unknown model (%s)", name)
	}
	if err := a.kv.Set(ctx, store.KeyModel, model.Name); err != nil {
		return fmt.Errorf("persisting model: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = model.Name
	return nil
}

// NextModel cycles through the configured models.
func (a *App) NextModel(ctx context.Context) (string, error) {
	models := a.config.Models
	if len(models) == 0 {
		return "", errors.New("no models configured")
	}
	current, _, _ := a.config.LookupModel(a.Model())
	next := models[0]
	for i, model := range models {
		if model == current {
			next = models[(i+1)%len(models)]
			break
		}
	}
	return next.Name, a.SwitchModel(ctx, next.Name)
}

// Theme returns the selected theme.
func (a *App) Theme() Theme {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

// ToggleTheme switches between dark and light and persists the choice.
func (a *App) ToggleTheme(ctx context.Context) (Theme, error) {
	theme := ThemeLight
	if a.Theme() == ThemeLight {
		theme = ThemeDark
	}
	if err := a.kv.Set(ctx, store.KeyTheme, string(theme)); err != nil {
		return "", fmt.Errorf("persisting theme: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.theme = theme
	return theme, nil
}

// HasAPIKey returns true if a key is available.
func (a *App) HasAPIKey() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apiKey != ""
}

// SaveAPIKey persists a key.
func (a *App) SaveAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	if err := a.kv.Set(ctx, store.KeyAPIKey, key); err != nil {
		return fmt.Errorf("persisting api key: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKey = key
	return nil
}

// ClearAPIKey forgets the saved key. A key from the configuration file still applies.
func (a *App) ClearAPIKey(ctx context.Context) error {
	if err := a.kv.Delete(ctx, store.KeyAPIKey); err != nil {
		return fmt.Errorf("removing api key: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.apiKey = strings.TrimSpace(a.config.APIKey)
	return nil
}

// Logout stops any generation, forgets the identity and returns to the welcome state.
func (a *App) Logout(ctx context.Context) error {
	a.Stop()
	if err := a.Gate.Logout(ctx); err != nil {
		return err
	}
	a.Chats.NewChat()
	return nil
}

// Generating returns true while a completion is in flight.
func (a *App) Generating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generating
}

// Stop aborts the in-flight completion. Returns false if there was none.
func (a *App) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel == nil {
		return false
	}
	a.cancel()
	return true
}

// begin marks a completion in flight and returns its cancelable context.
func (a *App) begin(ctx context.Context) (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generating {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	a.generating = true
	a.cancel = cancel
	return ctx, nil
}

func (a *App) end() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = nil
	a.generating = false
}
