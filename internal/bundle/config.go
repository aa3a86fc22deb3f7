package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Defaults mirrored by the CLI configuration layer.
const (
	DefaultOutputFilename = "[name].js"
	DefaultCommonChunk    = "common.js"
	DefaultPublicPath     = "/fe/dist"
	DefaultPort           = 9876
	DefaultHost           = "localhost"
)

// ErrReservedEntry is returned when an entry's bundle would collide with the
// shared chunk or the chunk directory.
var ErrReservedEntry = errors.New("entry name is reserved")

// Config is the composed build configuration handed to the Builder.
type Config struct {
	Mode         Mode
	Environment  string
	Root         string
	PagesDir     string
	TemplatesDir string
	Entries      map[string]string
	Output       Output
	Rules        []Rule
	Alias        map[string]string
	Plugins      []Plugin
	DevServer    DevServer
	PublicPath   string
	CommonChunk  string
}

// Output controls where bundles land and how they are named.
type Output struct {
	Filename string // pattern containing [name]
	Path     string // absolute output directory
}

// Rule selects a loader for modules whose path matches Test and not Exclude.
type Rule struct {
	Test    *regexp.Regexp
	Exclude *regexp.Regexp
	Loader  string
}

// RuleSpec is the uncompiled form of a Rule.
type RuleSpec struct {
	Test    string `koanf:"test" yaml:"test"`
	Exclude string `koanf:"exclude" yaml:"exclude,omitempty"`
	Loader  string `koanf:"loader" yaml:"loader"`
}

// DevServer holds options for `frame serve`.
type DevServer struct {
	HistoryAPIFallback bool
	Hot                bool
	Inline             bool
	Progress           bool
	Host               string
	Port               int
}

// URL is the address the dev server is reachable at.
func (d DevServer) URL() string {
	host := d.Host
	if host == "" {
		host = DefaultHost
	}
	return fmt.Sprintf("http://%s:%d", host, d.Port)
}

// CleanOptions configures the clean plugin.
type CleanOptions struct {
	Verbose bool
	Dry     bool
}

// Options is everything Compose needs. Paths may be relative to Root.
type Options struct {
	Root         string
	PagesDir     string
	TemplatesDir string
	OutDir       string
	Environment  string
	Filename     string
	PublicPath   string
	CommonChunk  string
	Rules        []RuleSpec
	Alias        map[string]string
	DevServer    DevServer
	Clean        CleanOptions
	OpenURL      func(url string) error
	Logger       *slog.Logger
}

// DefaultRules returns the loader rules used when none are configured.
func DefaultRules() []RuleSpec {
	return []RuleSpec{
		{Test: `\.jsx?$`, Exclude: `node_modules`, Loader: "jsx"},
		{Test: `\.vue$`, Loader: "text"},
		{Test: `\.less$`, Loader: LoaderStyle},
	}
}

// DefaultAlias returns the resolve alias used when none is configured.
// A trailing "$" restricts the alias to an exact import path.
func DefaultAlias() map[string]string {
	return map[string]string{"vue$": "vue/dist/vue.common.js"}
}

// DefaultDevServer returns the dev-server block used when none is configured.
func DefaultDevServer() DevServer {
	return DevServer{
		HistoryAPIFallback: true,
		Hot:                true,
		Inline:             true,
		Progress:           true,
		Host:               DefaultHost,
		Port:               DefaultPort,
	}
}

// Compose discovers entries and assembles the configuration for opts.
func Compose(opts Options) (*Config, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg := &Config{
		Mode:         ModeFromEnv(opts.Environment),
		Environment:  opts.Environment,
		Root:         root,
		PagesDir:     resolve(root, opts.PagesDir),
		TemplatesDir: resolve(root, opts.TemplatesDir),
		Output: Output{
			Filename: orDefault(opts.Filename, DefaultOutputFilename),
			Path:     resolve(root, opts.OutDir),
		},
		Alias:       opts.Alias,
		DevServer:   opts.DevServer,
		PublicPath:  strings.TrimSuffix(orDefault(opts.PublicPath, DefaultPublicPath), "/"),
		CommonChunk: orDefault(opts.CommonChunk, DefaultCommonChunk),
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Alias == nil {
		cfg.Alias = DefaultAlias()
	}
	if cfg.DevServer.Port == 0 {
		cfg.DevServer.Port = DefaultPort
	}
	if !strings.Contains(cfg.Output.Filename, "[name]") || !strings.HasSuffix(cfg.Output.Filename, ".js") {
		return nil, fmt.Errorf("output filename %q must contain [name] and end in .js", cfg.Output.Filename)
	}

	specs := opts.Rules
	if len(specs) == 0 {
		specs = DefaultRules()
	}
	if cfg.Rules, err = CompileRules(specs); err != nil {
		return nil, err
	}

	if err := cfg.RefreshEntries(); err != nil {
		return nil, err
	}

	cfg.Plugins = assemblePlugins(cfg, opts)
	return cfg, nil
}

// assemblePlugins picks the plugin set for the mode. Only this branch and the
// script base URL differ between debug and release.
func assemblePlugins(cfg *Config, opts Options) []Plugin {
	plugins := []Plugin{
		NewCommonsPlugin(cfg.CommonChunk),
		NewHTMLPlugin(),
	}

	if cfg.Mode == ModeRelease {
		plugins = append(plugins,
			NewCleanPlugin(opts.Clean),
			NewMinifyPlugin(),
		)
	} else {
		opener := opts.OpenURL
		if opener == nil {
			opener = OpenBrowser
		}
		plugins = append(plugins,
			NewOpenBrowserPlugin(cfg.DevServer.URL(), opener),
			NewHotReloadPlugin(),
		)
	}
	return plugins
}

// CompileRules validates loader names and compiles the patterns of specs.
func CompileRules(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		if spec.Test == "" {
			return nil, fmt.Errorf("rule %d: test pattern is required", i)
		}
		if !IsKnownLoader(spec.Loader) {
			return nil, fmt.Errorf("rule %d (%s): unknown loader %q", i, spec.Test, spec.Loader)
		}
		test, err := regexp.Compile(spec.Test)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid test pattern: %w", i, err)
		}
		rule := Rule{Test: test, Loader: spec.Loader}
		if spec.Exclude != "" {
			if rule.Exclude, err = regexp.Compile(spec.Exclude); err != nil {
				return nil, fmt.Errorf("rule %d: invalid exclude pattern: %w", i, err)
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ScriptBase is the URL prefix of the script tags written into pages.
func (c *Config) ScriptBase() string {
	if c.Mode.IsDebug() {
		return c.DevServer.URL()
	}
	return c.PublicPath
}

// PluginNames lists the assembled plugins in order.
func (c *Config) PluginNames() []string {
	names := make([]string, len(c.Plugins))
	for i, p := range c.Plugins {
		names[i] = p.Name()
	}
	return names
}

// EntryNames returns the entry names sorted.
func (c *Config) EntryNames() []string {
	names := make([]string, 0, len(c.Entries))
	for name := range c.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputName applies the output filename pattern to an entry name.
func (c *Config) OutputName(entry string) string {
	return strings.ReplaceAll(c.Output.Filename, "[name]", entry)
}

// Pages discovers the page descriptors and names each page's script after the
// output filename pattern.
func (c *Config) Pages() ([]Page, error) {
	pages, err := DiscoverPages(c.PagesDir)
	if err != nil {
		return nil, err
	}
	for i := range pages {
		pages[i].Script = c.OutputName(pages[i].Name)
	}
	return pages, nil
}

// RefreshEntries re-runs entry discovery.
func (c *Config) RefreshEntries() error {
	entries, err := DiscoverEntries(c.PagesDir)
	if err != nil {
		return err
	}
	for name := range entries {
		if err := c.checkEntryName(name); err != nil {
			return err
		}
	}
	c.Entries = entries
	return nil
}

// checkEntryName rejects entries whose bundle would be overwritten by the
// commons module or land among the shared chunks.
func (c *Config) checkEntryName(name string) error {
	out := c.OutputName(name)
	if out == c.CommonChunk {
		return fmt.Errorf("%w: %s would overwrite the shared chunk %s", ErrReservedEntry, name, c.CommonChunk)
	}
	if strings.HasPrefix(out, chunkDir) {
		return fmt.Errorf("%w: %s would be written into %s", ErrReservedEntry, name, chunkDir)
	}
	return nil
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
