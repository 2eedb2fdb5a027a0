// Package config loads the arbor configuration from
// ~/.config/arbor/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Hook is a user-declared shell command run after an operation.
type Hook struct {
	Command     string   `toml:"command"`
	Description string   `toml:"description"`
	On          []string `toml:"on"` // operations this hook runs after: new, archive, clean
}

// Duration wraps time.Duration for TOML decoding from strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config holds the arbor configuration.
type Config struct {
	// ParentDir overrides where sibling worktrees are created.
	// Empty means the parent directory of the main worktree.
	ParentDir string `toml:"parent_dir"`

	// WorktreeFormat names new worktree directories. Supports the
	// {project} and {branch} placeholders.
	WorktreeFormat string `toml:"worktree_format"`

	// DirtyPolicy is the default archive policy for dirty worktrees:
	// skip, stash, force or prompt.
	DirtyPolicy string `toml:"dirty_policy"`

	// FetchTimeout bounds the remote refresh performed by clean.
	FetchTimeout Duration `toml:"fetch_timeout"`

	// CacheFile is the include-pattern file read from the main
	// worktree root when propagating build caches.
	CacheFile string `toml:"cache_file"`

	Hooks map[string]Hook `toml:"hooks"`
}

// DefaultWorktreeFormat is the default template for worktree directory names.
const DefaultWorktreeFormat = "{project}-{branch}"

// DefaultCacheFile is the default include-pattern file name.
const DefaultCacheFile = ".arbor-cache"

// DefaultFetchTimeout bounds the clean sweep's remote refresh.
const DefaultFetchTimeout = 30 * time.Second

// Default returns the default configuration.
func Default() Config {
	return Config{
		WorktreeFormat: DefaultWorktreeFormat,
		DirtyPolicy:    "prompt",
		FetchTimeout:   Duration{DefaultFetchTimeout},
		CacheFile:      DefaultCacheFile,
	}
}

// Path returns the config file location.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "arbor", "config.toml"), nil
}

// Load reads the config file, applying defaults for unset fields.
// A missing file is not an error and yields the defaults.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.WorktreeFormat == "" {
		cfg.WorktreeFormat = DefaultWorktreeFormat
	}
	if cfg.CacheFile == "" {
		cfg.CacheFile = DefaultCacheFile
	}
	if cfg.FetchTimeout.Duration <= 0 {
		cfg.FetchTimeout = Duration{DefaultFetchTimeout}
	}
	if cfg.DirtyPolicy == "" {
		cfg.DirtyPolicy = "prompt"
	}

	if err := cfg.validate(); err != nil {
		return Default(), err
	}

	if cfg.ParentDir != "" {
		expanded, err := ExpandPath(cfg.ParentDir)
		if err != nil {
			return Default(), err
		}
		cfg.ParentDir = expanded
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DirtyPolicy {
	case "skip", "stash", "force", "prompt":
	default:
		return fmt.Errorf("invalid dirty_policy %q (want skip, stash, force or prompt)", c.DirtyPolicy)
	}
	if c.ParentDir != "" && c.ParentDir[0] != '~' && !filepath.IsAbs(c.ParentDir) {
		return fmt.Errorf("parent_dir must be absolute or start with ~, got %q", c.ParentDir)
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" {
		return os.UserHomeDir()
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
