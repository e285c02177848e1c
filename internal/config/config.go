// ABOUTME: Configuration loading and parsing for coven-chat
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable overriding the config path.
const EnvConfigPath = "COVEN_CHAT_CONFIG"

// DefaultBaseURL is the backend address used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api"

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config represents the complete coven-chat configuration
type Config struct {
	Backend       BackendConfig       `yaml:"backend" toml:"backend"`
	Journal       JournalConfig       `yaml:"journal" toml:"journal"`
	Notifications NotificationsConfig `yaml:"notifications" toml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging" toml:"logging"`
}

// BackendConfig holds the remote backend connection settings
type BackendConfig struct {
	BaseURL         string        `yaml:"base_url" toml:"base_url"`
	ResponseField   string        `yaml:"response_field" toml:"response_field"`
	LoadContextMode string        `yaml:"load_context_mode" toml:"load_context_mode"`
	Token           string        `yaml:"token" toml:"token"`
	Timeout         time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// JournalConfig holds the local transcript journal settings
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// NotificationsConfig holds toast settings
type NotificationsConfig struct {
	DedupeWindow time.Duration `yaml:"-" toml:"-"`

	DedupeWindowRaw string `yaml:"dedupe_window" toml:"dedupe_window"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"` // empty logs to stderr
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:         DefaultBaseURL,
			ResponseField:   "response",
			LoadContextMode: "body",
			TimeoutRaw:      "60s",
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    defaultJournalPath(),
		},
		Notifications: NotificationsConfig{
			DedupeWindowRaw: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Discover resolves the config path and loads it. A missing file at a
// default location yields Default(); a missing explicit file is an error.
// It returns the path that was used, or "" when defaults were used.
func Discover(flagPath string) (*Config, string, error) {
	path, explicit := resolvePath(flagPath)

	cfg, err := Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		if err := cfg.finish(); err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	return nil, "", err
}

// resolvePath returns the config path and whether the user named it.
func resolvePath(flagPath string) (string, bool) {
	if flagPath != "" {
		return expandHome(flagPath), true
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return expandHome(p), true
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "chat.yaml", false
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "coven", "chat.yaml"), false
}

func (c *Config) finish() error {
	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	c.Backend.BaseURL = strings.TrimSpace(c.Backend.BaseURL)
	c.Journal.Path = expandHome(c.Journal.Path)
	c.Logging.File = expandHome(c.Logging.File)

	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("backend.base_url must include a host")
	}

	switch c.Backend.LoadContextMode {
	case "body", "query":
	default:
		return fmt.Errorf("backend.load_context_mode must be body or query, got %q", c.Backend.LoadContextMode)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Notifications.DedupeWindow < 0 {
		return fmt.Errorf("notifications.dedupe_window must not be negative")
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Backend.TimeoutRaw != "" {
		cfg.Backend.Timeout, err = time.ParseDuration(cfg.Backend.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Backend.TimeoutRaw, err)
		}
	}

	if cfg.Notifications.DedupeWindowRaw != "" {
		cfg.Notifications.DedupeWindow, err = time.ParseDuration(cfg.Notifications.DedupeWindowRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_window %q: %w", cfg.Notifications.DedupeWindowRaw, err)
		}
	}

	return nil
}

func defaultJournalPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "coven", "chat.db")
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
