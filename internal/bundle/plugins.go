package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
)

// Plugin names, in the order Compose assembles them.
const (
	PluginCommons     = "commons"
	PluginHTML        = "html"
	PluginClean       = "clean"
	PluginMinify      = "minify"
	PluginOpenBrowser = "open-browser"
	PluginHotReload   = "hot-reload"
)

// Plugin is a named build extension. Behaviour comes from the hook interfaces
// it implements.
type Plugin interface {
	Name() string
}

// OptionsHook adjusts the esbuild options before the build context is created.
type OptionsHook interface {
	ApplyOptions(opts *api.BuildOptions)
}

// EmitHook runs once per build after bundling, with the assets still in memory.
type EmitHook interface {
	Emit(c *Compilation) error
}

// WriteHook runs before assets are written to the output directory.
type WriteHook interface {
	BeforeWrite(c *Compilation) error
}

// DoneHook runs after a successful build.
type DoneHook interface {
	Done(c *Compilation)
}

// Compilation is the state shared with hooks during one build.
type Compilation struct {
	Config   *Config
	Assets   Assets
	Pages    []Page
	Watching bool
	Logger   *slog.Logger
}

// --- commons ---

// chunkDir is where esbuild places code shared between pages.
const chunkDir = "chunks/"

type commonsPlugin struct {
	filename string
}

// NewCommonsPlugin splits code shared between pages into chunks and emits
// filename as the module that loads all of them.
func NewCommonsPlugin(filename string) Plugin {
	return &commonsPlugin{filename: filename}
}

func (p *commonsPlugin) Name() string { return PluginCommons }

func (p *commonsPlugin) ApplyOptions(opts *api.BuildOptions) {
	opts.Splitting = true
	opts.Format = api.FormatESModule
	opts.ChunkNames = chunkDir + "[name]-[hash]"
}

func (p *commonsPlugin) Emit(c *Compilation) error {
	var b strings.Builder
	for _, name := range c.Assets.WithPrefix(chunkDir) {
		if path.Ext(name) != ".js" {
			continue
		}
		rel, err := relativeImport(path.Dir(p.filename), name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "import %q;\n", rel)
	}
	if b.Len() == 0 {
		b.WriteString("export {};\n")
	}
	c.Assets[p.filename] = []byte(b.String())
	return nil
}

// relativeImport returns an import specifier for target as seen from dir.
func relativeImport(dir, target string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", target, err)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}

// --- html ---

type htmlPlugin struct{}

// NewHTMLPlugin renders one HTML page per descriptor on every emission.
func NewHTMLPlugin() Plugin {
	return htmlPlugin{}
}

func (htmlPlugin) Name() string { return PluginHTML }

func (htmlPlugin) Emit(c *Compilation) error {
	pages, err := c.Config.Pages()
	if err != nil {
		return err
	}
	for _, page := range pages {
		html, err := RenderPage(c.Config, page)
		if err != nil {
			return fmt.Errorf("page %s: %w", page.Name, err)
		}
		c.Assets[page.HTML] = html
	}
	c.Pages = pages
	return nil
}

// --- clean ---

type cleanPlugin struct {
	opts CleanOptions
}

// NewCleanPlugin removes the output directory before assets are written.
func NewCleanPlugin(opts CleanOptions) Plugin {
	return &cleanPlugin{opts: opts}
}

func (p *cleanPlugin) Name() string { return PluginClean }

func (p *cleanPlugin) BeforeWrite(c *Compilation) error {
	out := c.Config.Output.Path
	rel, err := filepath.Rel(c.Config.Root, out)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return fmt.Errorf("refusing to clean %s: outside the project root %s", out, c.Config.Root)
	}

	if _, err := os.Stat(out); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if p.opts.Dry {
		c.Logger.Info("clean: would remove", "path", out)
		return nil
	}
	if err := os.RemoveAll(out); err != nil {
		return fmt.Errorf("failed to clean %s: %w", out, err)
	}
	if p.opts.Verbose {
		c.Logger.Info("clean: removed", "path", out)
	}
	return nil
}

// --- minify ---

type minifyPlugin struct{}

// NewMinifyPlugin enables whitespace, identifier and syntax minification and
// drops legal comments.
func NewMinifyPlugin() Plugin {
	return minifyPlugin{}
}

func (minifyPlugin) Name() string { return PluginMinify }

func (minifyPlugin) ApplyOptions(opts *api.BuildOptions) {
	opts.MinifyWhitespace = true
	opts.MinifyIdentifiers = true
	opts.MinifySyntax = true
	opts.LegalComments = api.LegalCommentsNone
}

// --- open-browser ---

type openBrowserPlugin struct {
	url  string
	open func(string) error
	once sync.Once
}

// NewOpenBrowserPlugin opens url once, after the first build that a dev server
// is watching.
func NewOpenBrowserPlugin(url string, open func(string) error) Plugin {
	return &openBrowserPlugin{url: url, open: open}
}

func (p *openBrowserPlugin) Name() string { return PluginOpenBrowser }

func (p *openBrowserPlugin) Done(c *Compilation) {
	if !c.Watching {
		return
	}
	p.once.Do(func() {
		if err := p.open(p.url); err != nil {
			c.Logger.Warn("failed to open browser", "url", p.url, "error", err)
		}
	})
}

// --- hot-reload ---

type hotReloadPlugin struct{}

// NewHotReloadPlugin injects the live-reload client into every HTML asset while
// the dev server is watching with hot and inline enabled.
func NewHotReloadPlugin() Plugin {
	return hotReloadPlugin{}
}

func (hotReloadPlugin) Name() string { return PluginHotReload }

func (hotReloadPlugin) Emit(c *Compilation) error {
	ds := c.Config.DevServer
	if !c.Watching || !ds.Hot || !ds.Inline {
		return nil
	}
	for name, data := range c.Assets {
		if path.Ext(name) == ".html" {
			c.Assets[name] = InjectReloadClient(data)
		}
	}
	return nil
}
