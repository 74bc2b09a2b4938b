// CLAUDE:SUMMARY Configuration structs (storage, manager listener and auth, highlighting, watch, fetch) and YAML loader.
package research

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all skylight configuration.
type Config struct {
	DBPath    string          `yaml:"db_path"`
	Listen    string          `yaml:"listen"`
	Auth      AuthConfig      `yaml:"auth"`
	Highlight HighlightConfig `yaml:"highlight"`
	Watch     WatchConfig     `yaml:"watch"`
	Fetch     FetchConfig     `yaml:"fetch"`
}

// AuthConfig protects the manager API with HTTP basic auth. An empty
// PasswordHash disables authentication.
type AuthConfig struct {
	User         string `yaml:"user"`
	PasswordHash string `yaml:"password_hash"`
}

// HighlightConfig controls new highlights and surgical splits.
type HighlightConfig struct {
	DefaultColor     string `yaml:"default_color"`
	DefaultProject   string `yaml:"default_project"`
	MinFragmentRunes int    `yaml:"min_fragment_runes"`
	IDFormat         string `yaml:"id_format"` // uuid or epoch
}

// WatchConfig controls the rescan debouncer.
type WatchConfig struct {
	Settle    time.Duration `yaml:"settle"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// FetchConfig controls page acquisition.
type FetchConfig struct {
	Render    string        `yaml:"render"` // auto, never, always
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "skylight.db"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8087"
	}
	if c.Auth.User == "" {
		c.Auth.User = "skylight"
	}
	if c.Highlight.DefaultColor == "" {
		c.Highlight.DefaultColor = "yellow"
	}
	if c.Highlight.DefaultProject == "" {
		c.Highlight.DefaultProject = "General"
	}
	if c.Highlight.MinFragmentRunes <= 0 {
		c.Highlight.MinFragmentRunes = 1
	}
	if c.Highlight.IDFormat == "" {
		c.Highlight.IDFormat = "uuid"
	}
	if c.Watch.Settle <= 0 {
		c.Watch.Settle = 2 * time.Second
	}
	if c.Watch.MaxBuffer <= 0 {
		c.Watch.MaxBuffer = 1000
	}
	if c.Fetch.Render == "" {
		c.Fetch.Render = "auto"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "skylight/1.0"
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("research: parse %s: %w", path, err)
	}
	switch cfg.Fetch.Render {
	case "", "auto", "never", "always":
	default:
		return nil, fmt.Errorf("research: fetch.render %q: want auto, never or always", cfg.Fetch.Render)
	}
	switch cfg.Highlight.IDFormat {
	case "", "uuid", "epoch":
	default:
		return nil, fmt.Errorf("research: highlight.id_format %q: want uuid or epoch", cfg.Highlight.IDFormat)
	}
	cfg.defaults()
	return cfg, nil
}
