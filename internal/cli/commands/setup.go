package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/frame/internal/bundle"
	"github.com/leapstack-labs/frame/internal/cli/config"
	"github.com/leapstack-labs/frame/internal/cli/output"
	"github.com/leapstack-labs/frame/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext collects the config and logger the root command stored in
// the command context, and a renderer for the configured output mode.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// composeBundle checks the pages directory and composes the build configuration.
func (c *CommandContext) composeBundle() (*bundle.Config, error) {
	if err := c.Cfg.ValidateDirectories(); err != nil {
		return nil, err
	}
	bcfg, err := bundle.Compose(c.Cfg.BundleOptions(c.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to compose build configuration: %w", err)
	}
	return bcfg, nil
}

// openStateStore opens the build history database.
func (c *CommandContext) openStateStore() (*state.SQLiteStore, error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, nil
}
