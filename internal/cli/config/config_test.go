package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/frame/internal/bundle"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFlags mirrors the persistent flags of the root command.
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("frame", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("project-dir", "", "")
	fs.String("env", "", "")
	fs.String("pages-dir", "", "")
	fs.String("templates-dir", "", "")
	fs.String("out-dir", "", "")
	fs.String("state", "", "")
	fs.Int("port", 0, "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("lang", "", "")
	fs.StringP("output", "o", "", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolateEnv keeps the caller's NODE_ENV out of the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(NodeEnv, "")
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()

	l := NewLoader()
	cfg, err := l.Load("", newFlags(t, "--project-dir", root))
	require.NoError(t, err)

	assert.Empty(t, l.ConfigFileUsed())
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, DefaultEnv, cfg.Environment)
	assert.Equal(t, filepath.Join(root, "src", "pages"), cfg.PagesDir)
	assert.Equal(t, filepath.Join(root, "node_modules", "usan-templates", "templates"), cfg.TemplatesDir)
	assert.Equal(t, filepath.Join(root, "dist"), cfg.OutDir)
	assert.Equal(t, filepath.Join(root, ".frame", "state.db"), cfg.StatePath)
	assert.Equal(t, []string{filepath.Join(root, "src")}, cfg.Watch)
	assert.Equal(t, bundle.DefaultOutputFilename, cfg.Filename)
	assert.Equal(t, bundle.DefaultPublicPath, cfg.PublicPath)
	assert.Equal(t, bundle.DefaultCommonChunk, cfg.CommonChunk)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, "auto", cfg.OutputFormat)
	assert.False(t, cfg.Verbose)

	assert.Equal(t, DevServerConfig{
		HistoryAPIFallback: true,
		Hot:                true,
		Inline:             true,
		Progress:           true,
		Host:               "localhost",
		Port:               9876,
		Debounce:           100 * time.Millisecond,
	}, cfg.DevServer)
	assert.Equal(t, CleanConfig{Verbose: true}, cfg.Clean)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "frame.yaml"), `
environment: production
pages_dir: web/pages
public_path: /static/
watch: [web, lib]
alias:
  react$: preact/compat
rules:
  - test: \.tsx?$
    exclude: node_modules
    loader: tsx
  - test: \.less$
    loader: style
dev_server:
  port: 8080
  hot: false
  debounce: 250ms
clean:
  dry: true
`)

	l := NewLoader()
	cfg, err := l.Load("", newFlags(t, "--project-dir", root))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "frame.yaml"), l.ConfigFileUsed())
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, filepath.Join(root, "web", "pages"), cfg.PagesDir)
	assert.Equal(t, "/static/", cfg.PublicPath)
	assert.Equal(t, []string{filepath.Join(root, "web"), filepath.Join(root, "lib")}, cfg.Watch)
	assert.Equal(t, map[string]string{"react$": "preact/compat"}, cfg.Alias)
	assert.Equal(t, []bundle.RuleSpec{
		{Test: `\.tsx?$`, Exclude: "node_modules", Loader: "tsx"},
		{Test: `\.less$`, Loader: "style"},
	}, cfg.Rules)
	assert.Equal(t, 8080, cfg.DevServer.Port)
	assert.False(t, cfg.DevServer.Hot)
	assert.True(t, cfg.DevServer.Inline, "unset keys keep their defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.DevServer.Debounce)
	assert.True(t, cfg.Clean.Dry)
	assert.True(t, cfg.Clean.Verbose)
}

func TestLoad_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		dotenv   string
		env      map[string]string
		args     []string
		wantEnv  string
		wantPort int
	}{
		{
			name:     "config file",
			yaml:     "environment: staging\ndev_server:\n  port: 7000\n",
			wantEnv:  "staging",
			wantPort: 7000,
		},
		{
			name:     "dotenv over config file",
			yaml:     "environment: staging\ndev_server:\n  port: 7000\n",
			dotenv:   "NODE_ENV=production\nFRAME_DEV_SERVER__PORT=7001\n",
			wantEnv:  "production",
			wantPort: 7001,
		},
		{
			name:     "process env over dotenv",
			dotenv:   "NODE_ENV=production\nFRAME_DEV_SERVER__PORT=7001\n",
			env:      map[string]string{NodeEnv: "test", "FRAME_DEV_SERVER__PORT": "7002"},
			wantEnv:  "test",
			wantPort: 7002,
		},
		{
			name:     "FRAME_ENVIRONMENT over NODE_ENV",
			env:      map[string]string{NodeEnv: "test", "FRAME_ENVIRONMENT": "qa"},
			wantEnv:  "qa",
			wantPort: 9876,
		},
		{
			name:     "flags over everything",
			yaml:     "environment: staging\n",
			env:      map[string]string{NodeEnv: "test", "FRAME_DEV_SERVER__PORT": "7002"},
			args:     []string{"--env", "production", "--port", "7003"},
			wantEnv:  "production",
			wantPort: 7003,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			root := t.TempDir()
			if tt.yaml != "" {
				writeFile(t, filepath.Join(root, "frame.yaml"), tt.yaml)
			}
			if tt.dotenv != "" {
				writeFile(t, filepath.Join(root, ".env"), tt.dotenv)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			args := append([]string{"--project-dir", root}, tt.args...)
			cfg, err := LoadConfig("", newFlags(t, args...))
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnv, cfg.Environment)
			assert.Equal(t, tt.wantPort, cfg.DevServer.Port)
		})
	}
}

func TestLoad_FlagPaths(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()

	cfg, err := LoadConfig("", newFlags(t,
		"--project-dir", root,
		"--pages-dir", "app/pages",
		"--state", "/tmp/frame-state.db",
		"--lang", "zh",
		"-v",
	))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "app", "pages"), cfg.PagesDir)
	assert.Equal(t, "/tmp/frame-state.db", cfg.StatePath)
	assert.Equal(t, "zh", cfg.Lang)
	assert.True(t, cfg.Verbose)
}

func TestLoad_UpwardSearch(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "frame.yml"), "environment: production\n")
	nested := filepath.Join(root, "src", "pages", "home")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	l := NewLoader()
	cfg, err := l.Load("", nil)
	require.NoError(t, err)

	// TempDir may sit behind a symlink (macOS), so compare resolved paths.
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	cfgFile := filepath.Join(root, "conf", "custom.yaml")
	writeFile(t, cfgFile, "out_dir: build\n")

	l := NewLoader()
	cfg, err := l.Load(cfgFile, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgFile, l.ConfigFileUsed())
	assert.Equal(t, filepath.Join(root, "conf"), cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "conf", "build"), cfg.OutDir)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		errSubstr string
	}{
		{name: "malformed yaml", yaml: "dev_server: [", errSubstr: "error reading config file"},
		{name: "bad port", yaml: "dev_server:\n  port: 70000\n", errSubstr: "dev_server.port"},
		{name: "unknown loader", yaml: "rules:\n  - test: x\n    loader: sass\n", errSubstr: `unknown loader "sass"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "frame.yaml"), tt.yaml)

			_, err := LoadConfig("", newFlags(t, "--project-dir", root))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoad_GeneralScopeIgnoresBuildKeys(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "frame.yaml"),
		"lang: zh\ndev_server:\n  port: 99999\nrules:\n  - test: x\n    loader: sass\n")

	loader := NewLoader()
	loader.SetScope(ScopeGeneral)
	cfg, err := loader.Load("", newFlags(t, "--project-dir", root))
	require.NoError(t, err)
	assert.Equal(t, "zh", cfg.Lang)

	_, err = NewLoader().Load("", newFlags(t, "--project-dir", root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev_server.port")
}

func TestLoad_GeneralScopeStillChecksLang(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "frame.yaml"), "lang: fr\n")

	loader := NewLoader()
	loader.SetScope(ScopeGeneral)
	_, err := loader.Load("", newFlags(t, "--project-dir", root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported lang "fr"`)
}

func validConfig() Config {
	return Config{
		Environment:  "development",
		PagesDir:     "/p/src/pages",
		OutDir:       "/p/dist",
		Lang:         "en",
		OutputFormat: "auto",
		DevServer:    DevServerConfig{Port: 9876},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty environment", mutate: func(c *Config) { c.Environment = "" }, errSubstr: "environment is required"},
		{name: "empty pages dir", mutate: func(c *Config) { c.PagesDir = "" }, errSubstr: "pages_dir is required"},
		{name: "zero port", mutate: func(c *Config) { c.DevServer.Port = 0 }, errSubstr: "dev_server.port"},
		{name: "negative debounce", mutate: func(c *Config) { c.DevServer.Debounce = -time.Second }, errSubstr: "debounce"},
		{name: "unknown lang", mutate: func(c *Config) { c.Lang = "fr" }, errSubstr: `unsupported lang "fr"`},
		{name: "unknown output", mutate: func(c *Config) { c.OutputFormat = "xml" }, errSubstr: `unsupported output "xml"`},
		{
			name:      "rule without test",
			mutate:    func(c *Config) { c.Rules = []bundle.RuleSpec{{Loader: "js"}} },
			errSubstr: "rules[0]: test is required",
		},
		{
			name:   "style loader is known",
			mutate: func(c *Config) { c.Rules = []bundle.RuleSpec{{Test: `\.css$`, Loader: "style"}} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateGeneral(t *testing.T) {
	cfg := validConfig()
	cfg.PagesDir = ""
	cfg.DevServer.Port = 0
	cfg.Rules = []bundle.RuleSpec{{Loader: "sass"}}
	assert.NoError(t, cfg.ValidateGeneral())
	assert.Error(t, cfg.Validate())

	cfg.OutputFormat = "xml"
	err := cfg.ValidateGeneral()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported output "xml"`)
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := validConfig()
	cfg.PagesDir = filepath.Join(t.TempDir(), "missing")
	assert.ErrorIs(t, cfg.ValidateDirectories(), bundle.ErrPagesDirMissing)

	cfg.PagesDir = t.TempDir()
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"FRAME_ENVIRONMENT", "environment"},
		{"FRAME_PAGES_DIR", "pages_dir"},
		{"FRAME_DEV_SERVER__PORT", "dev_server.port"},
		{"FRAME_CLEAN__DRY", "clean.dry"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}

func TestDotenvLayer(t *testing.T) {
	got := dotenvLayer(map[string]string{
		"NODE_ENV":               "production",
		"FRAME_DEV_SERVER__HOST": "0.0.0.0",
		"UNRELATED":              "ignored",
	})
	assert.Equal(t, map[string]any{
		"environment":     "production",
		"dev_server.host": "0.0.0.0",
	}, got)
}

func TestConfig_BundleOptions(t *testing.T) {
	cfg := validConfig()
	cfg.ProjectRoot = "/p"
	cfg.TemplatesDir = "/p/templates"
	cfg.Alias = map[string]string{"vue$": "vue/dist/vue.esm.js"}
	cfg.DevServer = DevServerConfig{Hot: true, Inline: true, Host: "0.0.0.0", Port: 3000}
	cfg.Clean = CleanConfig{Verbose: true, Dry: true}

	opts := cfg.BundleOptions(nil)
	assert.Equal(t, "/p", opts.Root)
	assert.Equal(t, "/p/src/pages", opts.PagesDir)
	assert.Equal(t, "/p/templates", opts.TemplatesDir)
	assert.Equal(t, "/p/dist", opts.OutDir)
	assert.Equal(t, "development", opts.Environment)
	assert.Equal(t, cfg.Alias, opts.Alias)
	assert.Equal(t, bundle.DevServer{Hot: true, Inline: true, Host: "0.0.0.0", Port: 3000}, opts.DevServer)
	assert.Equal(t, bundle.CleanOptions{Verbose: true, Dry: true}, opts.Clean)
}

func TestConfig_WatchDirs(t *testing.T) {
	cfg := Config{
		PagesDir:     "/p/src/pages",
		TemplatesDir: "/p/templates",
		Watch:        []string{"/p/src", "/p/templates", "", "/p/src"},
	}
	assert.Equal(t, []string{"/p/src/pages", "/p/templates", "/p/src"}, cfg.WatchDirs())
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := GetLogger(WithLogger(context.Background(), nil))
	assert.NotNil(t, logger, "typed nil falls back to a discard logger")
}
