package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/frame/internal/bundle"
)

// Supported values for enumerated options.
var (
	supportedLangs   = []string{"en", "zh"}
	supportedOutputs = []string{"auto", "text", "markdown", "json"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid. It does not touch the filesystem.
func (c *Config) Validate() error {
	return joinProblems(append(c.generalProblems(), c.buildProblems()...))
}

// ValidateGeneral checks only the keys every command reads: lang and output.
func (c *Config) ValidateGeneral() error {
	return joinProblems(c.generalProblems())
}

func (c *Config) generalProblems() []error {
	var errs []error
	if !oneOf(c.Lang, supportedLangs) {
		errs = append(errs, fmt.Errorf("unsupported lang %q (want one of %v)", c.Lang, supportedLangs))
	}
	if !oneOf(c.OutputFormat, supportedOutputs) {
		errs = append(errs, fmt.Errorf("unsupported output %q (want one of %v)", c.OutputFormat, supportedOutputs))
	}
	return errs
}

func (c *Config) buildProblems() []error {
	var errs []error
	if c.Environment == "" {
		errs = append(errs, fmt.Errorf("environment is required"))
	}
	if c.PagesDir == "" {
		errs = append(errs, fmt.Errorf("pages_dir is required"))
	}
	if c.OutDir == "" {
		errs = append(errs, fmt.Errorf("out_dir is required"))
	}
	if c.DevServer.Port < 1 || c.DevServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("dev_server.port must be between 1 and 65535, got %d", c.DevServer.Port))
	}
	if c.DevServer.Debounce < 0 {
		errs = append(errs, fmt.Errorf("dev_server.debounce must not be negative"))
	}
	for i, r := range c.Rules {
		if r.Test == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: test is required", i))
		}
		if !bundle.IsKnownLoader(r.Loader) {
			errs = append(errs, fmt.Errorf("rules[%d]: unknown loader %q", i, r.Loader))
		}
	}
	return errs
}

func joinProblems(errs []error) error {
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateDirectories checks that the pages directory exists.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.PagesDir); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s\nHint: create the directory or use --pages-dir to specify a different path",
			bundle.ErrPagesDirMissing, c.PagesDir)
	}
	return nil
}
