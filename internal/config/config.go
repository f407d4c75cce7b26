package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all breeze configuration.
type Config struct {
	Cache    CacheConfig    `toml:"cache"`
	Undo     UndoConfig     `toml:"undo"`
	UI       UIConfig       `toml:"ui"`
	Accounts AccountsConfig `toml:"accounts"`
	Gmail    GmailConfig    `toml:"gmail"`
}

// GmailConfig holds Gmail OAuth credentials.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// CacheConfig controls folder cache freshness and paging.
type CacheConfig struct {
	// FreshWindow is how long a fetched folder counts as fresh. A
	// stale folder is still shown instantly but triggers a background
	// refetch when selected.
	FreshWindow string `toml:"fresh_window"`
	// RefreshInterval is the background refresh period for the
	// currently visible folder.
	RefreshInterval string `toml:"refresh_interval"`
	// PageSize is the number of threads fetched per page.
	PageSize int `toml:"page_size"`
}

// UndoConfig controls the post-archive undo window.
type UndoConfig struct {
	Window string `toml:"window"`
}

// UIConfig holds TUI display settings.
type UIConfig struct {
	Theme string `toml:"theme"`
}

// AccountsConfig holds account selection settings.
type AccountsConfig struct {
	Default string `toml:"default"`
}

func defaults() Config {
	return Config{
		Cache: CacheConfig{
			FreshWindow:     "10m",
			RefreshInterval: "3m",
			PageSize:        25,
		},
		Undo: UndoConfig{
			Window: "5s",
		},
		UI: UIConfig{
			Theme: "default",
		},
	}
}

// Load reads config from path. If path is empty, returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// FreshWindow returns the parsed fresh window, falling back to the
// default when the configured value is missing or malformed.
func (c *Config) FreshWindow() time.Duration {
	return parseDuration(c.Cache.FreshWindow, 10*time.Minute)
}

// RefreshInterval returns the parsed background refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return parseDuration(c.Cache.RefreshInterval, 3*time.Minute)
}

// UndoWindow returns the parsed undo window.
func (c *Config) UndoWindow() time.Duration {
	return parseDuration(c.Undo.Window, 5*time.Second)
}

// PageSize returns the configured page size, or the default for
// non-positive values.
func (c *Config) PageSize() int {
	if c.Cache.PageSize <= 0 {
		return 25
	}
	return c.Cache.PageSize
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ConfigDir returns the breeze config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "breeze")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "breeze")
}

// DataDir returns the breeze data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "breeze")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "breeze")
}
