package commands

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/frame/internal/cli/config"
	clitestutil "github.com/leapstack-labs/frame/internal/cli/testutil"
	"github.com/leapstack-labs/frame/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProject is a front-end project on disk plus the config pointing at it.
type testProject struct {
	root string
	cfg  *config.Config
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	root := clitestutil.SetupTestProject(t)
	return &testProject{
		root: root,
		cfg: &config.Config{
			Environment:  "development",
			PagesDir:     filepath.Join(root, "src", "pages"),
			TemplatesDir: filepath.Join(root, "templates"),
			OutDir:       filepath.Join(root, "dist"),
			Filename:     "[name].js",
			PublicPath:   "/fe/dist",
			CommonChunk:  "common.js",
			StatePath:    filepath.Join(root, ".frame", "state.db"),
			Lang:         "en",
			OutputFormat: "markdown",
			DevServer:    config.DevServerConfig{Host: "localhost", Port: 9876},
			Clean:        config.CleanConfig{Verbose: true},
			ProjectRoot:  root,
		},
	}
}

func (p *testProject) write(t *testing.T, rel, content string) {
	t.Helper()
	clitestutil.WriteFile(t, p.root, rel, content)
}

func (p *testProject) page(t *testing.T, name string) {
	t.Helper()
	clitestutil.WritePage(t, p.root, name)
}

// execute runs cmd with the project's config and a test logger in its context.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	return executeWithLogger(t, cmd, cfg, testutil.NewTestLogger(t), args...)
}

func executeWithLogger(t *testing.T, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, args ...string) (string, error) {
	t.Helper()
	ctx := config.WithConfig(context.Background(), cfg)
	ctx = config.WithLogger(ctx, logger)

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewCountCommand(), use: "count <path>"},
		{cmd: NewBuildCommand(), use: "build", flags: []string{"no-history", "assets"}},
		{cmd: NewServeCommand(), use: "serve"},
		{cmd: NewInspectCommand(), use: "inspect"},
		{cmd: NewPagesCommand(), use: "pages"},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestNewCommandContext_RequiresConfig(t *testing.T) {
	cmd := NewInspectCommand()
	cmd.SetArgs(nil)
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration not loaded")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.5 KiB"},
		{3 << 20, "3.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.n))
	}
}
