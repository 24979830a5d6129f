package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/malonaz/talkzen/internal/file"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DefaultPath is where the configuration lives unless overridden.
const DefaultPath = "~/.config/talkzen/config.json"

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DefaultModel:   "gemini-2.5-flash-latest",
		RequestTimeout: 60,

		Providers: []*Provider{
			{Name: ProviderGemini, APIHost: "https://generativelanguage.googleapis.com"},
			{Name: ProviderOpenAI, APIHost: "https://api.openai.com/v1"},
		},
		Models: []*Model{
			{Name: "gemini-2.5-flash-latest", Alias: "flash", Provider: ProviderGemini},
			{Name: "gemini-2.5-pro", Alias: "pro", Provider: ProviderGemini},
			{Name: "gpt-4o-mini", Alias: "4o-mini", Provider: ProviderOpenAI},
		},

		Database: &DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "~/.config/talkzen/talkzen.db",
		},

		Chat: &ChatConfig{
			SystemPrompt: "You are TalkZen-AI, a serene, professional, and highly capable AI Assistant. " +
				"You are currently assisting your 'Admin' (the user). You can perform multiple tasks including coding, " +
				"writing, reasoning, and multi-language translation. Your tone is helpful and efficient.",
			Acknowledgment:     "Understood. I am TalkZen-AI, ready to assist.",
			RevealIntervalMS:   30,
			TitleLength:        30,
			MaxAttachmentBytes: 10 * 1024 * 1024,
			GuestMessageLimit:  5,
		},

		Auth: &AuthConfig{
			AdminEmail:    "admin@talkzen.com",
			AdminName:     "Admin User",
			AdminPassword: "admin",
		},

		Server: &ServerConfig{
			Port: 3030,
		},
	}
}

// Config holds configuration for the talkzen tool.
type Config struct {
	// Optional key configured up front. A key saved from the client takes precedence.
	APIKey         string `json:"api_key"`
	DefaultModel   string `json:"default_model"`
	RequestTimeout int    `json:"request_timeout"`

	Providers []*Provider `json:"providers"`
	Models    []*Model    `json:"models"`

	Database *DatabaseConfig `json:"database"`
	Chat     *ChatConfig     `json:"chat"`
	Auth     *AuthConfig     `json:"auth"`
	Server   *ServerConfig   `json:"server"`
}

// Provider is a completion backend.
type Provider struct {
	Name    string `json:"name"`
	APIHost string `json:"api_host"`
}

// Model is a model served by a provider.
type Model struct {
	Name     string `json:"name"`
	Alias    string `json:"alias"`
	Provider string `json:"provider"`
}

// DatabaseConfig selects where persisted entries live.
type DatabaseConfig struct {
	// One of sqlite, postgres or memory.
	Driver string `json:"driver"`
	// Path for sqlite, connection string for postgres.
	DSN string `json:"dsn"`
}

// ChatConfig holds configuration for conversations.
type ChatConfig struct {
	SystemPrompt       string `json:"system_prompt"`
	Acknowledgment     string `json:"acknowledgment"`
	RevealIntervalMS   int    `json:"reveal_interval_ms"`
	TitleLength        int    `json:"title_length"`
	MaxAttachmentBytes int64  `json:"max_attachment_bytes"`
	GuestMessageLimit  int    `json:"guest_message_limit"`
}

// AuthConfig holds the local admin credentials.
type AuthConfig struct {
	AdminEmail string `json:"admin_email"`
	AdminName  string `json:"admin_name"`
	// bcrypt hash of the admin password. Takes precedence over AdminPassword.
	AdminPasswordHash string `json:"admin_password_hash,omitempty"`
	// Plain password, hashed in memory at startup when no hash is configured.
	AdminPassword string `json:"admin_password,omitempty"`
}

// ServerConfig holds configuration for the web history view.
type ServerConfig struct {
	Port int `json:"port"`
}

// RevealInterval returns the pause between two reveal frames.
func (c *Config) RevealInterval() time.Duration {
	return time.Duration(c.Chat.RevealIntervalMS) * time.Millisecond
}

// Timeout returns the completion request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// LookupModel resolves a model by name or alias.
func (c *Config) LookupModel(name string) (*Model, *Provider, bool) {
	for _, model := range c.Models {
		if model.Name != name && model.Alias != name {
			continue
		}
		for _, provider := range c.Providers {
			if provider.Name == model.Provider {
				return model, provider, true
			}
		}
	}
	return nil, nil, false
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}
	// Fields added after the file was written fall back to their defaults.
	if err := mergo.Merge(config, Default()); err != nil {
		return nil, errors.Wrap(err, "merging defaults")
	}

	if config.Database.Driver == DriverSQLite {
		expandedDSN, err := file.ExpandPath(config.Database.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "expanding database path")
		}
		config.Database.DSN = expandedDSN
	}
	return config, nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	err = os.WriteFile(path, bytes, 0644)
	if err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := Default().save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
