// Package bundle composes and runs the multi-page front-end build: entry
// discovery, loader rules, the debug/release plugin sets, per-page HTML
// emission and the development server.
package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
)

// Result describes one finished build.
type Result struct {
	Assets   Assets
	Pages    []Page
	Warnings []string
	Duration time.Duration

	comp *Compilation
}

// Builder runs builds for a Config. It keeps an esbuild context alive between
// builds so rebuilds are incremental; call Close when done.
type Builder struct {
	cfg      *Config
	logger   *slog.Logger
	watching bool

	mu    sync.Mutex
	esctx api.BuildContext
}

// NewBuilder returns a Builder for cfg.
func NewBuilder(cfg *Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{cfg: cfg, logger: logger}
}

// Config returns the configuration the builder runs.
func (b *Builder) Config() *Config {
	return b.cfg
}

// SetWatching marks builds as running under the dev server.
func (b *Builder) SetWatching(watching bool) {
	b.mu.Lock()
	b.watching = watching
	b.mu.Unlock()
}

// Build bundles the entries and runs the emit hooks. Nothing is written to disk.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	if b.esctx == nil {
		esctx, cerr := api.Context(b.cfg.BuildOptions())
		if cerr != nil {
			return nil, messagesError("failed to create build context", cerr.Errors)
		}
		b.esctx = esctx
	}

	out := b.esctx.Rebuild()
	if len(out.Errors) > 0 {
		return nil, messagesError("esbuild errors", out.Errors)
	}

	assets := make(Assets, len(out.OutputFiles))
	for _, f := range out.OutputFiles {
		rel, err := filepath.Rel(b.cfg.Output.Path, f.Path)
		if err != nil || !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("output %s escapes %s", f.Path, b.cfg.Output.Path)
		}
		assets[filepath.ToSlash(rel)] = f.Contents
	}

	comp := &Compilation{
		Config:   b.cfg,
		Assets:   assets,
		Watching: b.watching,
		Logger:   b.logger,
	}
	for _, p := range b.cfg.Plugins {
		if h, ok := p.(EmitHook); ok {
			if err := h.Emit(comp); err != nil {
				return nil, fmt.Errorf("%s plugin: %w", p.Name(), err)
			}
		}
	}

	res := &Result{
		Assets:   comp.Assets,
		Pages:    comp.Pages,
		Duration: time.Since(start),
		comp:     comp,
	}
	for _, w := range out.Warnings {
		res.Warnings = append(res.Warnings, formatMessage(w))
	}

	for _, p := range b.cfg.Plugins {
		if h, ok := p.(DoneHook); ok {
			h.Done(comp)
		}
	}

	b.logger.Debug("build complete",
		slog.String("mode", b.cfg.Mode.String()),
		slog.Int("assets", len(res.Assets)),
		slog.Int("pages", len(res.Pages)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// Write runs the write hooks and writes the assets of res under the output directory.
func (b *Builder) Write(res *Result) error {
	for _, p := range b.cfg.Plugins {
		if h, ok := p.(WriteHook); ok {
			if err := h.BeforeWrite(res.comp); err != nil {
				return fmt.Errorf("%s plugin: %w", p.Name(), err)
			}
		}
	}

	for _, name := range res.Assets.Names() {
		dest := filepath.Join(b.cfg.Output.Path, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(dest, res.Assets[name], 0o644); err != nil { //nolint:gosec // G306: build output is public
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// Reset drops the esbuild context and rediscovers entries, for when entry
// files are added or removed.
func (b *Builder) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.esctx != nil {
		b.esctx.Dispose()
		b.esctx = nil
	}
	return b.cfg.RefreshEntries()
}

// Close releases the esbuild context.
func (b *Builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.esctx != nil {
		b.esctx.Dispose()
		b.esctx = nil
	}
}
