package commands

import (
	"fmt"

	"github.com/leapstack-labs/frame/internal/bundle"
	"github.com/leapstack-labs/frame/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the composed build configuration",
		Long: `Print the build configuration frame would run with: mode, discovered
entries, output, loader rules, alias, plugins and dev server settings.

YAML is printed unless --output json is given.`,
		Example: `  frame inspect
  NODE_ENV=production frame inspect -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd)
		},
	}
}

type inspectOutput struct {
	Filename string `yaml:"filename" json:"filename"`
	Path     string `yaml:"path" json:"path"`
}

type inspectDevServer struct {
	URL                string `yaml:"url" json:"url"`
	HistoryAPIFallback bool   `yaml:"history_api_fallback" json:"history_api_fallback"`
	Hot                bool   `yaml:"hot" json:"hot"`
	Inline             bool   `yaml:"inline" json:"inline"`
	Progress           bool   `yaml:"progress" json:"progress"`
}

// inspectView is the printable form of a bundle.Config.
type inspectView struct {
	Mode        string            `yaml:"mode" json:"mode"`
	Environment string            `yaml:"environment" json:"environment"`
	Root        string            `yaml:"root" json:"root"`
	Entries     map[string]string `yaml:"entries" json:"entries"`
	Output      inspectOutput     `yaml:"output" json:"output"`
	Rules       []bundle.RuleSpec `yaml:"rules" json:"rules"`
	Alias       map[string]string `yaml:"alias" json:"alias"`
	Plugins     []string          `yaml:"plugins" json:"plugins"`
	ScriptBase  string            `yaml:"script_base" json:"script_base"`
	CommonChunk string            `yaml:"common_chunk" json:"common_chunk"`
	DevServer   inspectDevServer  `yaml:"dev_server" json:"dev_server"`
}

func newInspectView(c *bundle.Config) inspectView {
	rules := make([]bundle.RuleSpec, len(c.Rules))
	for i, r := range c.Rules {
		rules[i] = bundle.RuleSpec{Test: r.Test.String(), Loader: r.Loader}
		if r.Exclude != nil {
			rules[i].Exclude = r.Exclude.String()
		}
	}

	return inspectView{
		Mode:        c.Mode.String(),
		Environment: c.Environment,
		Root:        c.Root,
		Entries:     c.Entries,
		Output:      inspectOutput{Filename: c.Output.Filename, Path: c.Output.Path},
		Rules:       rules,
		Alias:       c.Alias,
		Plugins:     c.PluginNames(),
		ScriptBase:  c.ScriptBase(),
		CommonChunk: c.CommonChunk,
		DevServer: inspectDevServer{
			URL:                c.DevServer.URL(),
			HistoryAPIFallback: c.DevServer.HistoryAPIFallback,
			Hot:                c.DevServer.Hot,
			Inline:             c.DevServer.Inline,
			Progress:           c.DevServer.Progress,
		},
	}
}

func runInspect(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	bcfg, err := cc.composeBundle()
	if err != nil {
		return err
	}
	view := newInspectView(bcfg)

	if cc.Renderer.EffectiveMode() == output.ModeJSON {
		return cc.Renderer.JSON(view)
	}

	enc := yaml.NewEncoder(cc.Renderer.Writer())
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}
