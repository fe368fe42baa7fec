// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultCacheCapacity matches the archive package default.
const DefaultCacheCapacity = 100

// Log formats.
const (
	// FormatAuto selects text on a terminal and JSON otherwise.
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the complete cyoa configuration.
type Config struct {
	// Archive selects the archive to read and how to read it.
	Archive ArchiveConfig `yaml:"archive"`

	// Guards configures guard evaluation.
	Guards GuardsConfig `yaml:"guards"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`

	// Saves configures where the player stores save files.
	Saves SavesConfig `yaml:"saves"`

	// Display holds reading preferences for the interactive player.
	Display DisplayConfig `yaml:"display"`
}

// ArchiveConfig locates an archive.
type ArchiveConfig struct {
	// Base is where archives are served from: an http(s):// URL, or a
	// file:// or mem:// bucket URL.
	Base string `yaml:"base" env:"CYOA_ARCHIVE_BASE"`

	// Path is the archive path under Base, for example "/story.cyoa".
	Path string `yaml:"path" env:"CYOA_ARCHIVE_PATH"`

	// CacheCapacity is the maximum number of decompressed chunks held
	// in memory.
	// Default: 100
	CacheCapacity int `yaml:"cache_capacity" env:"CYOA_CACHE_CAPACITY"`

	// CoalesceGap merges chunk fetches whose ranges are at most this
	// many bytes apart into one request. Negative disables merging.
	// Default: -1
	CoalesceGap int64 `yaml:"coalesce_gap" env:"CYOA_COALESCE_GAP"`
}

// GuardsConfig configures guard evaluation.
type GuardsConfig struct {
	// File is a JSONC guard table. Empty hides all guarded content.
	File string `yaml:"file" env:"CYOA_GUARDS_FILE"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: warn
	Level string `yaml:"level" env:"CYOA_LOG_LEVEL"`

	// Format is one of auto, text, json.
	// Default: auto
	Format string `yaml:"format" env:"CYOA_LOG_FORMAT"`
}

// SavesConfig configures save files.
type SavesConfig struct {
	// Directory holds save files written by the player.
	// Default: ${HOME}/.local/share/cyoa/saves
	Directory string `yaml:"directory" env:"CYOA_SAVES_DIRECTORY"`
}

// DisplayConfig holds reading preferences.
type DisplayConfig struct {
	// Width caps the text column: full, medium (80 columns), or low
	// (60 columns).
	// Default: full
	Width string `yaml:"width" env:"CYOA_DISPLAY_WIDTH"`

	// Theme is one of neutral, cool, warm.
	// Default: neutral
	Theme string `yaml:"theme" env:"CYOA_DISPLAY_THEME"`
}

// Default returns the configuration used before any file or
// environment variable is applied.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Archive: ArchiveConfig{
			CacheCapacity: DefaultCacheCapacity,
			CoalesceGap:   -1,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: FormatAuto,
		},
		Saves: SavesConfig{
			Directory: filepath.Join(homeDir, ".local", "share", "cyoa", "saves"),
		},
		Display: DisplayConfig{
			Width: "full",
			Theme: "neutral",
		},
	}
}

// Load loads configuration from the file named by CYOA_CONFIG. It
// fails when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("CYOA_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CYOA_CONFIG environment variable not set; " +
			"set it to the path of your cyoa.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, expands variables, and
// applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnvironment returns [Default] with environment overrides
// applied, for runs without a config file.
func FromEnvironment() (*Config, error) {
	cfg := Default()
	cfg.expandVariables()
	if err := cfg.applyEnvironment(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironment overrides fields from CYOA_* variables. Unset
// variables leave the loaded values alone.
func (c *Config) applyEnvironment() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// path-valued fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":      os.Getenv("HOME"),
		"CYOA_ROOT": os.Getenv("CYOA_ROOT"),
	}
	c.Archive.Base = expandVars(c.Archive.Base, vars)
	c.Archive.Path = expandVars(c.Archive.Path, vars)
	c.Guards.File = expandVars(c.Guards.File, vars)
	c.Saves.Directory = expandVars(c.Saves.Directory, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var (
	logLevels   = []string{"debug", "info", "warn", "error"}
	logFormats  = []string{FormatAuto, FormatText, FormatJSON}
	baseSchemes = []string{"http", "https", "file", "mem"}
	textWidths  = []string{"full", "medium", "low"}
	themes      = []string{"neutral", "cool", "warm"}
)

// Validate checks the configuration for errors. An empty archive base
// is allowed; commands that need one report it themselves.
func (c *Config) Validate() error {
	var errs []error

	if c.Archive.CacheCapacity <= 0 {
		errs = append(errs, fmt.Errorf("archive.cache_capacity must be positive, got %d", c.Archive.CacheCapacity))
	}
	if c.Archive.Base != "" {
		parsed, err := url.Parse(c.Archive.Base)
		if err != nil {
			errs = append(errs, fmt.Errorf("archive.base: %w", err))
		} else if !slices.Contains(baseSchemes, parsed.Scheme) {
			errs = append(errs, fmt.Errorf("archive.base scheme must be one of: %v", baseSchemes))
		}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}
	if !slices.Contains(textWidths, c.Display.Width) {
		errs = append(errs, fmt.Errorf("display.width must be one of: %v", textWidths))
	}
	if !slices.Contains(themes, c.Display.Theme) {
		errs = append(errs, fmt.Errorf("display.theme must be one of: %v", themes))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SlogLevel returns the configured log level. Unknown levels map to
// warn; Validate reports them.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// EnsureSaves creates the save directory if it does not exist.
func (c *Config) EnsureSaves() error {
	if c.Saves.Directory == "" {
		return fmt.Errorf("saves.directory is not set")
	}
	if err := os.MkdirAll(c.Saves.Directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Saves.Directory, err)
	}
	return nil
}
