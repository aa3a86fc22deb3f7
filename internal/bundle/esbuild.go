package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// LoaderStyle loads a stylesheet as a module that injects it into the page,
// so pages need no separate <link> tag.
const LoaderStyle = "style"

var loaders = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"text":    api.LoaderText,
	"css":     api.LoaderCSS,
	"file":    api.LoaderFile,
	"dataurl": api.LoaderDataURL,
	"base64":  api.LoaderBase64,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
}

// IsKnownLoader reports whether name can be used in a rule.
func IsKnownLoader(name string) bool {
	if name == LoaderStyle {
		return true
	}
	_, ok := loaders[name]
	return ok
}

// BuildOptions translates the configuration into esbuild options, then lets
// every OptionsHook plugin adjust them.
func (c *Config) BuildOptions() api.BuildOptions {
	names := c.EntryNames()
	entries := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		entries = append(entries, api.EntryPoint{
			InputPath:  c.Entries[name],
			OutputPath: strings.TrimSuffix(c.OutputName(name), ".js"),
		})
	}

	opts := api.BuildOptions{
		EntryPointsAdvanced: entries,
		AbsWorkingDir:       c.Root,
		Outdir:              c.Output.Path,
		Bundle:              true,
		Write:               false, // assets stay in memory for the emit hooks
		Platform:            api.PlatformBrowser,
		Target:              api.ES2017,
		Sourcemap:           api.SourceMapNone,
		LogLevel:            api.LogLevelSilent,
		Define: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(c.Environment),
		},
		Plugins: []api.Plugin{
			aliasPlugin(c.Alias),
			rulesPlugin(c.Rules),
		},
	}

	for _, p := range c.Plugins {
		if h, ok := p.(OptionsHook); ok {
			h.ApplyOptions(&opts)
		}
	}
	return opts
}

// aliasResolve tags resolutions started by the alias plugin so they are not
// aliased a second time.
type aliasResolve struct{}

// aliasPlugin rewrites import paths. "name$" matches only "name"; "name" also
// matches "name/sub/path".
func aliasPlugin(alias map[string]string) api.Plugin {
	keys := make([]string, 0, len(alias))
	for k := range alias {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return api.Plugin{
		Name: "frame-alias",
		Setup: func(build api.PluginBuild) {
			for _, key := range keys {
				target := alias[key]
				name, exact := strings.CutSuffix(key, "$")
				filter := "^" + regexp.QuoteMeta(name) + "(/.*)?$"
				if exact {
					filter = "^" + regexp.QuoteMeta(name) + "$"
				}

				build.OnResolve(api.OnResolveOptions{Filter: filter}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if _, ok := args.PluginData.(aliasResolve); ok {
						return api.OnResolveResult{}, nil
					}
					rewritten := target + strings.TrimPrefix(args.Path, name)
					res := build.Resolve(rewritten, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						PluginData: aliasResolve{},
					})
					if len(res.Errors) > 0 {
						return api.OnResolveResult{Errors: res.Errors}, nil
					}
					return api.OnResolveResult{
						Path:      res.Path,
						External:  res.External,
						Namespace: res.Namespace,
						Suffix:    res.Suffix,
					}, nil
				})
			}
		},
	}
}

// rulesPlugin applies the loader rules to files on disk. Excluded paths fall
// through to esbuild's extension-based default.
func rulesPlugin(rules []Rule) api.Plugin {
	return api.Plugin{
		Name: "frame-rules",
		Setup: func(build api.PluginBuild) {
			for _, rule := range rules {
				build.OnLoad(api.OnLoadOptions{Filter: rule.Test.String(), Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if rule.Exclude != nil && rule.Exclude.MatchString(filepath.ToSlash(args.Path)) {
						return api.OnLoadResult{}, nil
					}

					data, err := os.ReadFile(args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					contents := string(data)
					loader := loaders[rule.Loader]
					if rule.Loader == LoaderStyle {
						contents, loader = StyleModule(contents), api.LoaderJS
					}
					dir := filepath.Dir(args.Path)
					return api.OnLoadResult{Contents: &contents, Loader: loader, ResolveDir: dir}, nil
				})
			}
		},
	}
}

// StyleModule wraps a stylesheet in a module that appends it to <head>.
func StyleModule(css string) string {
	quoted, _ := json.Marshal(css)
	return `(function() {
  var style = document.createElement("style");
  style.textContent = ` + string(quoted) + `;
  document.head.appendChild(style);
})();
`
}

// messagesError joins esbuild diagnostics into one error, one per line.
func messagesError(prefix string, msgs []api.Message) error {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, formatMessage(m))
	}
	return fmt.Errorf("%s:\n%w", prefix, errors.New(strings.Join(lines, "\n")))
}

func formatMessage(m api.Message) string {
	text := m.Text
	if m.PluginName != "" {
		text = "[" + m.PluginName + "] " + text
	}
	if m.Location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, text)
}
