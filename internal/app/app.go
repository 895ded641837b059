// Package app ties configuration, the per-context database scope and the
// teardown and command extension points together.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/blogr/internal/auth"
	"github.com/saltyorg/blogr/internal/config"
	"github.com/saltyorg/blogr/internal/database"
)

// TeardownFunc is called when a request or command context ends.
// err is the error that ended the context, or nil.
type TeardownFunc func(ctx context.Context, err error)

// SchemaInitializer resets the database reachable from ctx.
type SchemaInitializer func(ctx context.Context) error

// Option configures an App
type Option func(*App)

// WithSchemaInitializer replaces the initializer run by the init-db command.
func WithSchemaInitializer(fn SchemaInitializer) Option {
	return func(a *App) {
		a.initSchema = fn
	}
}

// App is the application: configuration plus lifecycle hooks.
type App struct {
	cfg        *config.Config
	auth       *auth.AuthService
	teardowns  []TeardownFunc
	commands   []*cobra.Command
	initSchema SchemaInitializer
}

// New creates the application for cfg. cfg may still be filled in (e.g. by
// flag parsing) until Prepare is called.
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:        cfg,
		initSchema: database.InitSchema,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.OnTeardown(database.Teardown)
	a.AddCommand(newInitDBCommand(a))

	return a
}

// Prepare validates the configuration, creates the instance directory and
// builds the services that depend on configuration.
func (a *App) Prepare() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(a.cfg.InstanceDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create instance directory: %w", err)
	}

	a.auth = auth.NewAuthService(a.cfg.SessionDuration, a.cfg.PasswordCost)

	log.Debug().Str("database", a.cfg.Database).Msg("Application prepared")
	return nil
}

// Config returns the application configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// Auth returns the auth service. Prepare must have been called.
func (a *App) Auth() *auth.AuthService {
	return a.auth
}

// OnTeardown registers fn to run whenever a context created by Context ends.
func (a *App) OnTeardown(fn TeardownFunc) {
	a.teardowns = append(a.teardowns, fn)
}

// AddCommand registers a CLI subcommand
func (a *App) AddCommand(cmd *cobra.Command) {
	a.commands = append(a.commands, cmd)
}

// Commands returns the registered CLI subcommands
func (a *App) Commands() []*cobra.Command {
	return a.commands
}

// Context derives a new application context from parent carrying a fresh,
// unopened database scope.
func (a *App) Context(parent context.Context) (context.Context, *database.Scope) {
	if parent == nil {
		parent = context.Background()
	}
	scope := database.NewScope(a.cfg.Database)
	return database.WithScope(parent, scope), scope
}

// Teardown runs the registered teardown callbacks, last registered first.
func (a *App) Teardown(ctx context.Context, err error) {
	for i := len(a.teardowns) - 1; i >= 0; i-- {
		a.teardowns[i](ctx, err)
	}
}

// Run calls fn inside a fresh application context and tears it down afterwards.
func (a *App) Run(parent context.Context, fn func(ctx context.Context) error) error {
	ctx, _ := a.Context(parent)
	err := fn(ctx)
	a.Teardown(ctx, err)
	return err
}

// InitSchema runs the configured schema initializer against ctx
func (a *App) InitSchema(ctx context.Context) error {
	return a.initSchema(ctx)
}
