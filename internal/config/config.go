// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists vikichat configuration.
//
// Configuration lives at ~/.vikichat/config.toml. Precedence, lowest to
// highest: built-in defaults, the TOML file, then VIKICHAT_* environment
// variables. A missing file is not an error; defaults apply.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/util"
)

const configFileName = "config.toml"

// Config is the full application configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	UI      UIConfig      `toml:"ui"`
	Logging LoggingConfig `toml:"logging"`
	Serve   ServeConfig   `toml:"serve"`
	Wiki    WikiConfig    `toml:"wiki"`
}

// BackendConfig points the client at the chatbot backend.
type BackendConfig struct {
	// URL is the backend root address.
	URL string `toml:"url"`

	// TimeoutSeconds bounds non-streaming requests.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	// Markdown enables glamour rendering of bot replies.
	Markdown bool `toml:"markdown"`

	// Theme selects the glamour style: auto, dark, light, or notty.
	Theme string `toml:"theme"`
}

// LoggingConfig controls the rolling log file.
type LoggingConfig struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// ServeConfig configures the built-in demo backend (the serve command).
type ServeConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// MaxChats caps concurrently tracked chat contexts; the oldest is
	// evicted past the cap.
	MaxChats int `toml:"max_chats"`

	// RateLimitPerSecond throttles requests per client IP. Zero disables.
	RateLimitPerSecond float64 `toml:"rate_limit_per_second"`
}

// WikiConfig configures the Wikipedia summary service.
type WikiConfig struct {
	// Language is the Wikipedia language edition, e.g. "tr" or "en".
	Language string `toml:"language"`

	// UserAgent identifies this client to the MediaWiki API.
	UserAgent string `toml:"user_agent"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URL:            "http://127.0.0.1:5000",
			TimeoutSeconds: 30,
		},
		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Serve: ServeConfig{
			Host:               "127.0.0.1",
			Port:               5000,
			MaxChats:           100,
			RateLimitPerSecond: 10,
		},
		Wiki: WikiConfig{
			Language:  "tr",
			UserAgent: "vikichat/1.0 (local chatbot client)",
		},
	}
}

// Timeout returns the backend timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Addr returns the listen address for the demo backend.
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// =============================================================================
// LOADING
// =============================================================================

// Path returns the config file path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, configFileName)
}

// Load reads the configuration from dir, layering file values over defaults
// and environment variables over both. A missing file yields defaults.
func Load(dir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(dir))
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays VIKICHAT_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("VIKICHAT_SERVER_URL"); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv("VIKICHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VIKICHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("VIKICHAT_WIKI_LANG"); v != "" {
		c.Wiki.Language = v
	}
	if v := os.Getenv("VIKICHAT_SERVE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Serve.Port = port
		}
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url %q is not a valid URL", c.Backend.URL)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return errors.New("backend.timeout_seconds must not be negative")
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port %d out of range", c.Serve.Port)
	}
	if c.Serve.MaxChats < 1 {
		return errors.New("serve.max_chats must be at least 1")
	}
	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light", "notty":
	default:
		return fmt.Errorf("ui.theme %q is not one of auto, dark, light, notty", c.UI.Theme)
	}
	if c.Wiki.Language == "" {
		return errors.New("wiki.language must not be empty")
	}
	return nil
}

// Save writes the configuration to dir atomically.
func (c Config) Save(dir string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := util.AtomicWriteFile(Path(dir), []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
