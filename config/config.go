// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
)

const (
	appName        = "labvoz"
	configFileName = "config.json"
)

// Defaults.
const (
	DefaultBaseURL       = "http://localhost:8000"
	DefaultAuthPath      = "/api/auth"
	DefaultCommandPath   = "/api/voz/comando"
	DefaultLocale        = "es-ES"
	DefaultRecorder      = "arecord"
	DefaultSTTModel      = "whisper-1"
	DefaultHotkey        = "ctrl+shift+v"
	DefaultNavigateDelay = 1000
	DefaultHTTPTimeout   = 30000
)

// Config represents the application configuration. Every field can be
// overridden from the environment.
type Config struct {
	BaseURL     string `json:"base_url" env:"LABVOZ_BASE_URL"`
	AuthPath    string `json:"auth_path" env:"LABVOZ_AUTH_PATH"`
	CommandPath string `json:"command_path" env:"LABVOZ_COMMAND_PATH"`
	Locale      string `json:"locale" env:"LABVOZ_LOCALE"`
	SessionDir  string `json:"session_dir,omitempty" env:"LABVOZ_SESSION_DIR"`

	// Speech capture
	Recorder      string `json:"recorder" env:"LABVOZ_RECORDER"`
	STTModel      string `json:"stt_model" env:"LABVOZ_STT_MODEL"`
	OpenAIAPIKey  string `json:"openai_api_key,omitempty" env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty" env:"OPENAI_BASE_URL"`

	NavigateDelayMS int    `json:"navigate_delay_ms" env:"LABVOZ_NAVIGATE_DELAY_MS"`
	HTTPTimeoutMS   int    `json:"http_timeout_ms" env:"LABVOZ_HTTP_TIMEOUT_MS"`
	Hotkey          string `json:"hotkey" env:"LABVOZ_HOTKEY"`

	path string
}

// Load loads configuration from the config file in the user config dir.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path, then applies environment
// overrides and validates the result.
func LoadFrom(path string) (*Config, error) {
	cfg := defaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base url %q", c.BaseURL)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	if c.NavigateDelayMS < 0 {
		return fmt.Errorf("navigate delay must not be negative")
	}
	if c.HTTPTimeoutMS <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	return nil
}

// Tag returns the canonical locale tag.
func (c *Config) Tag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Make(DefaultLocale)
	}
	return tag
}

// AuthURL returns the credential exchange endpoint.
func (c *Config) AuthURL() string { return c.endpoint(c.AuthPath) }

// CommandURL returns the command interpretation endpoint.
func (c *Config) CommandURL() string { return c.endpoint(c.CommandPath) }

// PageURL resolves an application path for navigation.
func (c *Config) PageURL(path string) string { return c.endpoint(path) }

func (c *Config) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// NavigateDelay returns the pause before following a navigate action.
func (c *Config) NavigateDelay() time.Duration {
	return time.Duration(c.NavigateDelayMS) * time.Millisecond
}

// HTTPTimeout returns the per-request timeout for backend calls.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// SessionPath returns the directory of the session database.
func (c *Config) SessionPath() (string, error) {
	if c.SessionDir != "" {
		return c.SessionDir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, "session"), nil
}

func (c *Config) applyDefaults() {
	d := defaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.AuthPath == "" {
		c.AuthPath = d.AuthPath
	}
	if c.CommandPath == "" {
		c.CommandPath = d.CommandPath
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.Recorder == "" {
		c.Recorder = d.Recorder
	}
	if c.STTModel == "" {
		c.STTModel = d.STTModel
	}
	if c.HTTPTimeoutMS == 0 {
		c.HTTPTimeoutMS = d.HTTPTimeoutMS
	}
	if c.Hotkey == "" {
		c.Hotkey = d.Hotkey
	}
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		AuthPath:        DefaultAuthPath,
		CommandPath:     DefaultCommandPath,
		Locale:          DefaultLocale,
		Recorder:        DefaultRecorder,
		STTModel:        DefaultSTTModel,
		NavigateDelayMS: DefaultNavigateDelay,
		HTTPTimeoutMS:   DefaultHTTPTimeout,
		Hotkey:          DefaultHotkey,
	}
}
