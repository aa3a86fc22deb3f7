package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/frame/internal/bundle"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the development server with live reload",
		Long: `Build every page into memory and serve it over HTTP.

The pages, templates and source directories are watched; changes trigger an
incremental rebuild and, with dev_server.hot and dev_server.inline enabled,
reload connected browsers. Unknown HTML requests fall back to index.html when
dev_server.history_api_fallback is set. Metrics are exposed at /__metrics.`,
		Example: `  frame serve
  frame serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	bcfg, err := cc.composeBundle()
	if err != nil {
		return err
	}
	if !bcfg.Mode.IsDebug() {
		cc.Logger.Warn("serving a release build; scripts point at the public path",
			slog.String("environment", bcfg.Environment))
	}

	builder := bundle.NewBuilder(bcfg, cc.Logger)
	defer builder.Close()

	srv := bundle.NewServer(builder, bundle.ServerOptions{
		WatchDirs: cc.Cfg.WatchDirs(),
		Debounce:  cc.Cfg.DevServer.Debounce,
		Logger:    cc.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cc.Renderer.Success("Dev server listening on " + bcfg.DevServer.URL())
	cc.Renderer.Muted("Press Ctrl+C to stop")

	// A signal ends the run normally.
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
