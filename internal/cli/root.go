// Package cli is the terminal front end: it drives the same conversation
// orchestrator the HTTP server uses, against the local store namespace.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/di"
	"roleplay-chat/backend/pkg/logger"
)

// Builder creates the dependency container for one command run
type Builder func(ctx context.Context, cfg *config.Config, log *logger.Logger) (*di.Container, error)

// Option customizes the root command
type Option func(*App)

// WithBuilder replaces di.New
func WithBuilder(b Builder) Option {
	return func(a *App) { a.build = b }
}

// WithConfig replaces config.Load
func WithConfig(load func() *config.Config) Option {
	return func(a *App) { a.loadConfig = load }
}

// App holds the flags shared by every subcommand
type App struct {
	build      Builder
	loadConfig func() *config.Config

	session  string
	provider string
	storage  string
	verbose  bool
}

var (
	version = "dev"
	commit  = "unknown"
)

// NewRootCommand builds the roleplay command tree
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &App{build: di.New, loadConfig: config.Load}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "roleplay",
		Short: "Chat with AI characters from the terminal",
		Long: `Chat with role-playing AI characters from the terminal.

Conversations, history and settings are shared with the server when both
point at the same storage backend.

Quick Start:
  roleplay characters                      # List characters
  roleplay chat --character sherlock       # Start chatting
  roleplay history show sherlock           # Print a saved transcript`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.session, "session", "", "Store namespace; empty shares the default local profile")
	root.PersistentFlags().StringVar(&a.provider, "provider", "", "Override the configured AI provider (gemini, openai, local)")
	root.PersistentFlags().StringVar(&a.storage, "storage", "", "Override the storage backend (memory, file, sqlite, redis, postgres)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		a.charactersCommand(),
		a.chatCommand(),
		a.historyCommand(),
		a.settingsCommand(),
		a.speakCommand(),
	)
	return root
}

// open builds a container for the current flags. Logs go to errOut so they
// never interleave with the transcript.
func (a *App) open(ctx context.Context, errOut io.Writer) (*di.Container, error) {
	cfg := a.loadConfig()
	if a.provider != "" {
		cfg.Provider.Kind = a.provider
	}
	if a.storage != "" {
		cfg.Storage.Backend = a.storage
	}
	cfg.Observability.MetricsEnabled = false
	cfg.Observability.TracingEnabled = false

	level := string(logger.LevelWarn)
	if a.verbose {
		level = string(logger.LevelDebug)
	}
	log := logger.New(logger.Config{Level: level, Output: errOut})

	c, err := a.build(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return c, nil
}

// withContainer runs fn with a container that is closed afterwards
func (a *App) withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := a.open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close(context.WithoutCancel(ctx))
	return fn(ctx, c)
}
