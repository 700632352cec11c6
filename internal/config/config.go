// Package config loads the optional clawlog configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"clawlog/internal/tail"
)

// DefaultBackfill is how many messages --no-follow prints when -n is absent.
const DefaultBackfill = 20

// Config holds the resolved settings. Every field has a usable default, so
// a missing config file is not an error.
type Config struct {
	AgentsDir    string        // empty means the built-in agents root
	PollInterval time.Duration
	ScanInterval time.Duration
	Backfill     int
	CacheEnabled bool
	CachePath    string // empty means the default cache location
}

type rawConfig struct {
	AgentsDir string `toml:"agents_dir"`
	Tail      struct {
		PollInterval string `toml:"poll_interval"`
		ScanInterval string `toml:"scan_interval"`
		Backfill     *int   `toml:"backfill"`
	} `toml:"tail"`
	Cache struct {
		Enabled *bool  `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"cache"`
}

// DefaultPath returns the standard config location under the user config
// directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, "clawlog", "config.toml"), nil
}

// Load reads the config at path, or the default location when path is
// empty. A missing file yields the defaults. Unlike session log lines the
// config is user-authored, so malformed values are errors.
func Load(path string) (Config, error) {
	cfg := Config{
		PollInterval: tail.DefaultPollInterval,
		ScanInterval: tail.DefaultScanInterval,
		Backfill:     DefaultBackfill,
		CacheEnabled: true,
	}

	if strings.TrimSpace(path) == "" {
		resolved, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = resolved
	} else {
		expanded, err := expandPath(path)
		if err != nil {
			return Config{}, err
		}
		path = expanded
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if dir := strings.TrimSpace(raw.AgentsDir); dir != "" {
		expanded, err := expandPath(dir)
		if err != nil {
			return Config{}, fmt.Errorf("agents_dir: %w", err)
		}
		cfg.AgentsDir = expanded
	}

	if cfg.PollInterval, err = parseInterval("tail.poll_interval", raw.Tail.PollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.ScanInterval, err = parseInterval("tail.scan_interval", raw.Tail.ScanInterval, cfg.ScanInterval); err != nil {
		return Config{}, err
	}
	if raw.Tail.Backfill != nil {
		if *raw.Tail.Backfill < 0 {
			return Config{}, fmt.Errorf("tail.backfill must not be negative: %d", *raw.Tail.Backfill)
		}
		cfg.Backfill = *raw.Tail.Backfill
	}

	if raw.Cache.Enabled != nil {
		cfg.CacheEnabled = *raw.Cache.Enabled
	}
	if p := strings.TrimSpace(raw.Cache.Path); p != "" {
		expanded, err := expandPath(p)
		if err != nil {
			return Config{}, fmt.Errorf("cache.path: %w", err)
		}
		cfg.CachePath = expanded
	}

	return cfg, nil
}

func parseInterval(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive: %s", key, trimmed)
	}
	return d, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
