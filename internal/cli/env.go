package cli

import (
	"context"
	"fmt"

	"github.com/malonaz/talkzen/app"
	"github.com/malonaz/talkzen/internal/configuration"
	"github.com/malonaz/talkzen/store"
)

// EnvOpts are the global flags.
type EnvOpts struct {
	ConfigPath string
	Model      string
	// Keep everything in memory for this run.
	Ephemeral bool
}

// Env is loaded once before any command runs and shared by all of them.
type Env struct {
	Config *configuration.Config
	Store  store.Store
	App    *app.App
}

// Load parses the configuration, opens the store and loads the app state.
func (e *Env) Load(ctx context.Context, opts *EnvOpts) error {
	config, err := configuration.Parse(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("parsing configuration: %w", err)
	}
	if opts.Ephemeral {
		config.Database.Driver = configuration.DriverMemory
	}
	kv, err := store.New(ctx, config.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	a, err := app.New(ctx, config, kv, app.Opts{Model: opts.Model})
	if err != nil {
		kv.Close()
		return fmt.Errorf("loading state: %w", err)
	}
	e.Config = config
	e.Store = kv
	e.App = a
	return nil
}

// Close releases the store. It is safe to call more than once.
func (e *Env) Close() error {
	if e.Store == nil {
		return nil
	}
	kv := e.Store
	e.Store = nil
	return kv.Close()
}
