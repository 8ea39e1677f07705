// Package config loads refstorm settings from TOML or YAML files with
// environment variable overrides.
//
// Precedence, lowest to highest: built-in defaults, config file, REFSTORM_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Common errors returned by config loading.
var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "REFSTORM_"

// WorkspaceConfig selects which files participate in indexing.
type WorkspaceConfig struct {
	// Root is the workspace root directory.
	Root string `toml:"root" yaml:"root"`

	// ConfigGlobs match section definition files.
	ConfigGlobs []string `toml:"config_globs" yaml:"config_globs"`

	// ScriptGlobs match quote-delimited script files.
	ScriptGlobs []string `toml:"script_globs" yaml:"script_globs"`

	// TypedScriptGlobs match script files that also allow backticks.
	TypedScriptGlobs []string `toml:"typed_script_globs" yaml:"typed_script_globs"`

	// TextGlobs match plain text files.
	TextGlobs []string `toml:"text_globs" yaml:"text_globs"`

	// ExcludePatterns remove paths from all kinds.
	ExcludePatterns []string `toml:"exclude" yaml:"exclude"`
}

// WatcherConfig tunes file system event handling.
type WatcherConfig struct {
	// DebounceMS is the per-path coalescing window in milliseconds.
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`

	// BufferSize is the event channel capacity.
	BufferSize int `toml:"buffer_size" yaml:"buffer_size"`
}

// DecorationConfig tunes the viewport decoration cache.
type DecorationConfig struct {
	// SmallFileLines is the inclusive upper bound for the small tier.
	SmallFileLines int `toml:"small_file_lines" yaml:"small_file_lines"`

	// VeryLargeFileLines is the line count at which chunking kicks in.
	VeryLargeFileLines int `toml:"very_large_file_lines" yaml:"very_large_file_lines"`

	// ChunkSize is the number of lines per chunk.
	ChunkSize int `toml:"chunk_size" yaml:"chunk_size"`

	// MaxChunks is the maximum number of cached chunks per file.
	MaxChunks int `toml:"max_chunks" yaml:"max_chunks"`

	// PreloadMargin is the number of lines preloaded around the viewport.
	PreloadMargin int `toml:"preload_margin" yaml:"preload_margin"`

	// DebounceMS is the recompute delay for small and large files.
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`

	// VeryLargeDebounceMS is the recompute delay for very large files.
	VeryLargeDebounceMS int `toml:"very_large_debounce_ms" yaml:"very_large_debounce_ms"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
}

// Config is the root configuration.
type Config struct {
	Workspace  WorkspaceConfig  `toml:"workspace" yaml:"workspace"`
	Watcher    WatcherConfig    `toml:"watcher" yaml:"watcher"`
	Decoration DecorationConfig `toml:"decoration" yaml:"decoration"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
}

// Default returns the built-in defaults rooted at the given directory.
func Default(root string) Config {
	return Config{
		Workspace: WorkspaceConfig{
			Root:             root,
			ConfigGlobs:      []string{"**/*.ini", "**/*.cfg"},
			ScriptGlobs:      []string{"**/*.lua", "**/*.js"},
			TypedScriptGlobs: []string{"**/*.ts", "**/*.tsx"},
			TextGlobs:        []string{"**/*.txt", "**/*.md"},
			ExcludePatterns:  []string{"**/.git/**", "**/node_modules/**", "**/build/**"},
		},
		Watcher: WatcherConfig{
			DebounceMS: 100,
			BufferSize: 100,
		},
		Decoration: DecorationConfig{
			SmallFileLines:      1000,
			VeryLargeFileLines:  10000,
			ChunkSize:           200,
			MaxChunks:           8,
			PreloadMargin:       100,
			DebounceMS:          250,
			VeryLargeDebounceMS: 80,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a config file over the defaults for root and applies
// environment overrides. A missing file is not an error; an empty path
// skips file loading entirely.
func Load(root, path string) (Config, error) {
	cfg := Default(root)

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes one config file into cfg, dispatching on extension.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

// applyEnv applies REFSTORM_* overrides for the common knobs.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvPrefix + "ROOT"); ok {
		cfg.Workspace.Root = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := envInt(EnvPrefix + "WATCHER_DEBOUNCE_MS"); ok {
		cfg.Watcher.DebounceMS = v
	}
	if v, ok := envInt(EnvPrefix + "DECORATION_MAX_CHUNKS"); ok {
		cfg.Decoration.MaxChunks = v
	}
	if v, ok := envInt(EnvPrefix + "DECORATION_CHUNK_SIZE"); ok {
		cfg.Decoration.ChunkSize = v
	}
}

// envInt reads an integer environment variable, ignoring malformed values.
func envInt(name string) (int, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks invariants the rest of the system depends on.
func (c Config) Validate() error {
	if c.Workspace.Root == "" {
		return fmt.Errorf("%w: workspace root is required", ErrInvalidConfig)
	}
	if c.Decoration.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Decoration.MaxChunks <= 0 {
		return fmt.Errorf("%w: max_chunks must be positive", ErrInvalidConfig)
	}
	if c.Decoration.SmallFileLines >= c.Decoration.VeryLargeFileLines {
		return fmt.Errorf("%w: small_file_lines must be below very_large_file_lines", ErrInvalidConfig)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}
