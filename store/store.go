// Package store persists named string entries. It plays the role browser
// local storage plays for a web client: every piece of durable state is one
// key holding one serialized value.
package store

import (
	"context"
	"fmt"

	"github.com/malonaz/talkzen/internal/configuration"
)

// Keys of the persisted entries.
const (
	KeyChats        = "talkzen_chats"
	KeyModel        = "talkzen_model"
	KeyUser         = "talkzen_user"
	KeyGuestCount   = "talkzen_guest_count"
	KeyTheme        = "talkzen_theme"
	KeyAPIKey       = "talkzen_api_key"
	KeyInputHistory = "talkzen_input_history"
)

// Store is a durable key-value store.
type Store interface {
	// Get returns the value stored under key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// New store for the given configuration.
func New(ctx context.Context, config *configuration.DatabaseConfig) (Store, error) {
	switch config.Driver {
	case configuration.DriverSQLite:
		return NewSQLite(config.DSN)
	case configuration.DriverPostgres:
		return NewPostgres(ctx, config.DSN)
	case configuration.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database driver (%s)", config.Driver)
	}
}

// GetOrDefault returns the value under key, or fallback if it is absent.
func GetOrDefault(ctx context.Context, s Store, key, fallback string) (string, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}
