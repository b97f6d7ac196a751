// Package config loads relalg settings from layered sources.
//
// Precedence, lowest to highest:
//
//  1. built-in defaults
//  2. the YAML config file (relalg.yaml or relalg.yml in the working
//     directory, or an explicit --config path)
//  3. RELALG_ environment variables (RELALG_RENDER_MODE -> render_mode)
//  4. command-line flags that were explicitly set
//
// Flag names are kebab-case and map to snake_case keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/relalg/internal/pattern"
	"github.com/roach88/relalg/internal/render"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "RELALG_"

// Defaults.
const (
	DefaultFormat         = "text"
	DefaultRenderMode     = "unicode"
	DefaultDatabase       = "relalg.db"
	DefaultRegexCacheSize = pattern.DefaultCacheSize
)

// ConfigFileNames are searched, in order, when no explicit file is given.
var ConfigFileNames = []string{"relalg.yaml", "relalg.yml"}

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json", "table"}

// Config holds the resolved settings.
type Config struct {
	// Format selects CLI output: text, json or table.
	Format string `koanf:"format"`

	// RenderMode is the notation used to print expressions.
	RenderMode string `koanf:"render_mode"`

	// Database is the SQLite store path. ":memory:" is allowed.
	Database string `koanf:"database"`

	// Schema is an optional CUE file declaring relations and facts.
	Schema string `koanf:"schema"`

	// DataDir is where import resolves relative data files.
	DataDir string `koanf:"data_dir"`

	// RegexCacheSize bounds the evaluator's compiled pattern cache.
	// Zero disables caching.
	RegexCacheSize int `koanf:"regex_cache_size"`

	Verbose bool `koanf:"verbose"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// Mode returns the parsed render mode.
func (c *Config) Mode() render.Mode {
	m, err := render.ParseMode(c.RenderMode)
	if err != nil {
		return render.UnicodeText
	}
	return m
}

// Validate checks field values.
func (c *Config) Validate() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if _, err := render.ParseMode(c.RenderMode); err != nil {
		return fmt.Errorf("invalid render_mode: %w", err)
	}
	if c.RegexCacheSize < 0 {
		return fmt.Errorf("regex_cache_size must be non-negative, got %d", c.RegexCacheSize)
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	return nil
}

// findConfigFile returns the config file to read.
// Priority: explicit path > relalg.yaml > relalg.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// resolvePathRelativeTo resolves path against baseDir unless it is empty,
// absolute or the in-memory database name.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load resolves the configuration. cfgFile may be empty; flags may be nil.
//
// Relative paths found in a config file are resolved against the file's
// directory. Paths from flags, the environment or defaults stay relative
// to the working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"format":           DefaultFormat,
		"render_mode":      DefaultRenderMode,
		"database":         DefaultDatabase,
		"schema":           "",
		"data_dir":         "",
		"regex_cache_size": DefaultRegexCacheSize,
		"verbose":          false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		fileLayer := koanf.New(".")
		if err := fileLayer.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
		base := filepath.Dir(used)
		for _, key := range []string{"database", "schema", "data_dir"} {
			if fileLayer.Exists(key) {
				if err := fileLayer.Set(key, resolvePathRelativeTo(fileLayer.String(key), base)); err != nil {
					return nil, fmt.Errorf("error reading config file %s: %w", used, err)
				}
			}
		}
		if err := k.Merge(fileLayer); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", used, err)
		}
	}

	// 3. Environment: RELALG_RENDER_MODE -> render_mode
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
