package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/frame/internal/bundle"
	"github.com/leapstack-labs/frame/internal/cli/output"
	"github.com/leapstack-labs/frame/internal/state"
	"github.com/spf13/cobra"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	NoHistory bool
	Assets    bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Bundle every page and write it to the output directory",
		Long: `Bundle every *.entry.js under the pages directory and emit one HTML file
per page descriptor, then write everything to the output directory.

The environment decides the mode: "production" builds a release (clean output
directory, minified bundles, scripts under the public path); anything else
builds for debugging against the dev server URL.`,
		Example: `  # Debug build
  frame build

  # Release build
  NODE_ENV=production frame build

  # List every emitted asset
  frame build --assets`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Do not record the build in the state database")
	cmd.Flags().BoolVar(&opts.Assets, "assets", false, "List emitted assets")

	return cmd
}

// buildSummary is the JSON shape of a build result.
type buildSummary struct {
	ID       string   `json:"id,omitempty"`
	Mode     string   `json:"mode"`
	Output   string   `json:"output"`
	Pages    int      `json:"pages"`
	Assets   []string `json:"assets"`
	Bytes    int      `json:"bytes"`
	Duration string   `json:"duration"`
	Warnings []string `json:"warnings,omitempty"`
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	record := &state.Build{
		Mode:        bundle.ModeFromEnv(cc.Cfg.Environment).String(),
		Environment: cc.Cfg.Environment,
		StartedAt:   time.Now(),
	}

	bcfg, res, buildErr := executeBuild(cmd.Context(), cc)
	record.Duration = time.Since(record.StartedAt)

	if buildErr != nil {
		record.Status = state.BuildStatusFailed
		record.Error = buildErr.Error()
	} else {
		record.Status = state.BuildStatusSuccess
		record.Assets = len(res.Assets)
		record.Pages = len(res.Pages)
		record.Bytes = res.Assets.Size()
	}

	if !opts.NoHistory {
		if err := recordBuild(cmd.Context(), cc, record); err != nil {
			cc.Logger.Warn("build not recorded", slog.String("error", err.Error()))
		}
	}

	if buildErr != nil {
		return fmt.Errorf("build failed: %w", buildErr)
	}

	summary := buildSummary{
		ID:       record.ID,
		Mode:     record.Mode,
		Output:   bcfg.Output.Path,
		Pages:    record.Pages,
		Assets:   res.Assets.Names(),
		Bytes:    record.Bytes,
		Duration: record.Duration.Round(time.Millisecond).String(),
		Warnings: res.Warnings,
	}
	return renderBuild(cc.Renderer, summary, opts.Assets)
}

// executeBuild composes, builds and writes. Composition failures count as
// failed builds so they show up in the history too.
func executeBuild(ctx context.Context, cc *CommandContext) (*bundle.Config, *bundle.Result, error) {
	bcfg, err := cc.composeBundle()
	if err != nil {
		return nil, nil, err
	}

	builder := bundle.NewBuilder(bcfg, cc.Logger)
	defer builder.Close()

	res, err := builder.Build(ctx)
	if err != nil {
		return bcfg, nil, err
	}
	if err := builder.Write(res); err != nil {
		return bcfg, nil, err
	}
	return bcfg, res, nil
}

func recordBuild(ctx context.Context, cc *CommandContext, b *state.Build) error {
	store, err := cc.openStateStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.RecordBuild(ctx, b)
}

func renderBuild(r *output.Renderer, s buildSummary, listAssets bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(s)
	}

	for _, w := range s.Warnings {
		r.Warning(w)
	}
	r.Success(fmt.Sprintf("Built %d pages (%d assets, %s) in %s",
		s.Pages, len(s.Assets), formatBytes(s.Bytes), s.Duration))
	r.KeyValue("Mode", s.Mode)
	r.KeyValue("Output", s.Output)

	if listAssets {
		r.Println("")
		rows := make([][]string, len(s.Assets))
		for i, name := range s.Assets {
			rows[i] = []string{name}
		}
		r.Table([]string{"Asset"}, rows)
	}
	return nil
}

// formatBytes renders n in B, KiB or MiB.
func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
