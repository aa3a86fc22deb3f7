// Package config loads the frame CLI configuration.
//
// Values are layered, lowest precedence first: built-in defaults, frame.yaml,
// the project's .env file, the process environment (NODE_ENV and FRAME_*),
// and finally flags that were set explicitly on the command line.
package config

import (
	"log/slog"
	"time"

	"github.com/leapstack-labs/frame/internal/bundle"
)

// DevServerConfig holds configuration for `frame serve`.
type DevServerConfig struct {
	HistoryAPIFallback bool          `koanf:"history_api_fallback"`
	Hot                bool          `koanf:"hot"`
	Inline             bool          `koanf:"inline"`
	Progress           bool          `koanf:"progress"`
	Host               string        `koanf:"host"`
	Port               int           `koanf:"port"`
	Debounce           time.Duration `koanf:"debounce"`
}

// CleanConfig holds configuration for the release-only clean step.
type CleanConfig struct {
	Verbose bool `koanf:"verbose"`
	Dry     bool `koanf:"dry"`
}

// Config holds all CLI configuration options.
type Config struct {
	Environment  string            `koanf:"environment"`
	PagesDir     string            `koanf:"pages_dir"`
	TemplatesDir string            `koanf:"templates_dir"`
	OutDir       string            `koanf:"out_dir"`
	Filename     string            `koanf:"filename"`
	PublicPath   string            `koanf:"public_path"`
	CommonChunk  string            `koanf:"common_chunk"`
	StatePath    string            `koanf:"state_path"`
	Verbose      bool              `koanf:"verbose"`
	Lang         string            `koanf:"lang"`
	OutputFormat string            `koanf:"output"`
	Alias        map[string]string `koanf:"alias"`
	Rules        []bundle.RuleSpec `koanf:"rules"`
	Watch        []string          `koanf:"watch"`
	DevServer    DevServerConfig   `koanf:"dev_server"`
	Clean        CleanConfig       `koanf:"clean"`

	// ProjectRoot is the directory relative paths were resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultEnv          = "development"
	DefaultPagesDir     = "src/pages"
	DefaultTemplatesDir = "node_modules/usan-templates/templates"
	DefaultOutDir       = "dist"
	DefaultStateFile    = ".frame/state.db"
	DefaultLang         = "en"
	DefaultOutput       = "auto"
	DefaultSourceDir    = "src"
)

// defaults is the bottom configuration layer.
func defaults() map[string]any {
	ds := bundle.DefaultDevServer()
	return map[string]any{
		"environment":                     DefaultEnv,
		"pages_dir":                       DefaultPagesDir,
		"templates_dir":                   DefaultTemplatesDir,
		"out_dir":                         DefaultOutDir,
		"filename":                        bundle.DefaultOutputFilename,
		"public_path":                     bundle.DefaultPublicPath,
		"common_chunk":                    bundle.DefaultCommonChunk,
		"state_path":                      DefaultStateFile,
		"verbose":                         false,
		"lang":                            DefaultLang,
		"output":                          DefaultOutput,
		"watch":                           []string{DefaultSourceDir},
		"dev_server.history_api_fallback": ds.HistoryAPIFallback,
		"dev_server.hot":                  ds.Hot,
		"dev_server.inline":               ds.Inline,
		"dev_server.progress":             ds.Progress,
		"dev_server.host":                 ds.Host,
		"dev_server.port":                 ds.Port,
		"dev_server.debounce":             bundle.DefaultDebounce.String(),
		"clean.verbose":                   true,
		"clean.dry":                       false,
	}
}

// BundleOptions converts the configuration into options for bundle.Compose.
func (c *Config) BundleOptions(logger *slog.Logger) bundle.Options {
	return bundle.Options{
		Root:         c.ProjectRoot,
		PagesDir:     c.PagesDir,
		TemplatesDir: c.TemplatesDir,
		OutDir:       c.OutDir,
		Environment:  c.Environment,
		Filename:     c.Filename,
		PublicPath:   c.PublicPath,
		CommonChunk:  c.CommonChunk,
		Rules:        c.Rules,
		Alias:        c.Alias,
		DevServer: bundle.DevServer{
			HistoryAPIFallback: c.DevServer.HistoryAPIFallback,
			Hot:                c.DevServer.Hot,
			Inline:             c.DevServer.Inline,
			Progress:           c.DevServer.Progress,
			Host:               c.DevServer.Host,
			Port:               c.DevServer.Port,
		},
		Clean: bundle.CleanOptions{
			Verbose: c.Clean.Verbose,
			Dry:     c.Clean.Dry,
		},
		Logger: logger,
	}
}

// WatchDirs returns the directories `frame serve` watches: the pages and
// templates directories plus every configured source root.
func (c *Config) WatchDirs() []string {
	dirs := []string{c.PagesDir, c.TemplatesDir}
	seen := map[string]bool{c.PagesDir: true, c.TemplatesDir: true}
	for _, d := range c.Watch {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dirs = append(dirs, d)
	}
	return dirs
}
