package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a context.
type loggerKey struct{}

// EnvPrefix prefixes environment variables read into the configuration.
// A double underscore separates nested keys: FRAME_DEV_SERVER__PORT.
const EnvPrefix = "FRAME_"

// NodeEnv is read into the environment key, as bundler tooling expects.
const NodeEnv = "NODE_ENV"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configFileNames = []string{"frame.yaml", "frame.yml"}

// flagKeys maps flag names whose config key is not the snake_case flag name.
var flagKeys = map[string]string{
	"env":   "environment",
	"state": "state_path",
	"port":  "dev_server.port",
	"host":  "dev_server.host",
}

// Scope selects which keys Load validates.
type Scope int

const (
	// ScopeBuild validates every key. Build commands need it.
	ScopeBuild Scope = iota
	// ScopeGeneral validates only lang and output, for commands that never
	// read the build configuration.
	ScopeGeneral
)

// Loader reads configuration layers into a Config.
type Loader struct {
	k              *koanf.Koanf
	configFileUsed string
	scope          Scope
}

// NewLoader creates an empty loader validating with ScopeBuild.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// SetScope changes which keys the next Load validates.
func (l *Loader) SetScope(s Scope) {
	l.scope = s
}

// ConfigFileUsed returns the config file the last Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.configFileUsed
}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRootUpward searches upward from startDir for a frame config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for frame.yaml
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) (string, error) {
	if flags != nil && flags.Lookup("project-dir") != nil && flags.Changed("project-dir") {
		dir, _ := flags.GetString("project-dir")
		return filepath.Abs(dir)
	}
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return "", err
		}
		return filepath.Dir(abs), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if root := findProjectRootUpward(cwd); root != "" {
		return root, nil
	}
	return cwd, nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// envKey maps FRAME_DEV_SERVER__PORT to dev_server.port.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// dotenvLayer translates the variables of a .env file into config keys.
func dotenvLayer(vars map[string]string) map[string]any {
	out := make(map[string]any, len(vars))
	for name, value := range vars {
		switch {
		case name == NodeEnv:
			out["environment"] = value
		case strings.HasPrefix(name, EnvPrefix):
			out[envKey(name)] = value
		}
	}
	return out
}

// readDotenv reads <root>/.env. A missing file yields no variables.
func readDotenv(root string) (map[string]string, error) {
	vars, err := godotenv.Read(filepath.Join(root, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return vars, nil
}

// Load loads configuration from defaults, file, .env, environment and flags.
// Precedence (highest to lowest): flags > env vars > .env > config file > defaults
func (l *Loader) Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	l.k = koanf.New(".")
	l.configFileUsed = ""

	projectRoot, err := inferProjectRoot(cfgFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to determine project root: %w", err)
	}

	// 1. Defaults
	if err := l.k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = configExistsIn(projectRoot)
	}
	if cfgFile != "" {
		if err := l.k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		l.configFileUsed = cfgFile
	}

	// 3. .env in the project root
	vars, err := readDotenv(projectRoot)
	if err != nil {
		return nil, err
	}
	if len(vars) > 0 {
		if err := l.k.Load(confmap.Provider(dotenvLayer(vars), "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// 4. Environment: NODE_ENV, then FRAME_*
	if err := l.k.Load(env.ProviderWithValue(NodeEnv, ".", func(key, value string) (string, any) {
		if key != NodeEnv || value == "" {
			return "", nil
		}
		return "environment", value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", NodeEnv, err)
	}
	if err := l.k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags that were explicitly set
	if flags != nil {
		if err := l.k.Load(posflag.ProviderWithFlag(flags, ".", l.k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			switch f.Name {
			case "config", "project-dir":
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Decode
	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 7. Resolve paths against the project root
	cfg.ProjectRoot = projectRoot
	cfg.PagesDir = resolvePathRelativeTo(cfg.PagesDir, projectRoot)
	cfg.TemplatesDir = resolvePathRelativeTo(cfg.TemplatesDir, projectRoot)
	cfg.OutDir = resolvePathRelativeTo(cfg.OutDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	for i, dir := range cfg.Watch {
		cfg.Watch[i] = resolvePathRelativeTo(dir, projectRoot)
	}

	validate := cfg.Validate
	if l.scope == ScopeGeneral {
		validate = cfg.ValidateGeneral
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads configuration with a fresh Loader.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return NewLoader().Load(cfgFile, flags)
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.New(slog.DiscardHandler)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// configKey is used to store the loaded Config in a context.
type configKey struct{}

// WithConfig returns a copy of ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the Config stored in ctx, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(configKey{}).(*Config)
	return cfg
}
