// Package config loads the CLI configuration.
//
// Values are layered, highest priority first: command line flags,
// BUGZILLA_* environment variables, the yaml config file and built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/reoring/gobugzilla/link"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BUGZILLA_"

// FileName is the config file looked up when no path is given.
const FileName = "bugzilla.yaml"

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

var outputs = []string{OutputTable, OutputJSON, OutputYAML}

// Config holds every CLI setting.
type Config struct {
	Instance      string        `koanf:"instance"`
	APIKey        string        `koanf:"api_key"`
	Login         string        `koanf:"login"`
	Password      string        `koanf:"password"`
	RestrictLogin bool          `koanf:"restrict_login"`
	Timeout       time.Duration `koanf:"timeout"`
	LogLevel      string        `koanf:"log_level"`
	Output        string        `koanf:"output"`
	MetricsFile   string        `koanf:"metrics_file"`
	Lang          string        `koanf:"lang"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// Defaults returns the built-in values.
func Defaults() map[string]any {
	return map[string]any{
		"timeout":   "30s",
		"log_level": "warn",
		"output":    OutputTable,
		"lang":      "en",
	}
}

// Load reads the configuration. path names the config file; when empty,
// FileName in the working directory and then in the user config directory
// is used if present. Only flags that were set on the command line override
// other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used := findFile(path)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	// BUGZILLA_API_KEY -> api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used
	return &cfg, nil
}

func findFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "bugzilla", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Validate checks the settings needed to talk to a server.
func (c *Config) Validate() error {
	var errs []error
	if c.Instance == "" {
		errs = append(errs, errors.New("instance is required (--instance or BUGZILLA_INSTANCE)"))
	}
	if !slices.Contains(outputs, c.Output) {
		errs = append(errs, fmt.Errorf("unknown output format %q (want one of %s)", c.Output, strings.Join(outputs, ", ")))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.APIKey != "" && c.Login != "" {
		errs = append(errs, errors.New("api_key and login are mutually exclusive"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, defaulting to warn.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return lvl
}

// NeedsPassword reports whether a login was configured without a password.
func (c *Config) NeedsPassword() bool { return c.Login != "" && c.Password == "" }

// Auth returns the authentication strategy the settings select: an API key,
// then login and password, then anonymous access.
func (c *Config) Auth() link.Auth {
	switch {
	case c.APIKey != "":
		return link.APIKey(c.APIKey)
	case c.Login != "":
		return link.Password(c.Login, c.Password, c.RestrictLogin)
	default:
		return link.Anonymous()
	}
}
