// Package config loads and validates the service configuration from
// YAML, with defaults for every setting and a handful of environment
// overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full PhishWatch configuration.
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server"`

	// URL model bundle settings
	Model ModelConfig `yaml:"model"`

	// Reference list settings
	Lists ListsConfig `yaml:"lists"`

	// Text classifier settings
	TextModel TextModelConfig `yaml:"text_model"`

	// Milter server settings
	Milter MilterConfig `yaml:"milter"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Request handling limits
	BodyLimitKB  int `yaml:"body_limit_kb"`
	ReadTimeout  int `yaml:"read_timeout_seconds"`
	WriteTimeout int `yaml:"write_timeout_seconds"`
}

// ModelConfig locates the URL model bundle and controls polarity.
type ModelConfig struct {
	// Local bundle file, tried first
	Path string `yaml:"path"`

	// Registry URL used when no local bundle exists
	URL string `yaml:"url"`

	// Directory for downloaded bundles
	CacheDir string `yaml:"cache_dir"`

	// Download timeout
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// Optional explicit polarity: "PHISH", "LEGIT" or empty for
	// auto-calibration
	Polarity string `yaml:"polarity"`
}

// Timeout returns the download timeout as a duration.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// ListsConfig locates the reference CSVs and the optional Redis
// cache.
type ListsConfig struct {
	// CSV of known phishing URLs
	URLFile string `yaml:"url_file"`

	// CSV of known legitimate URLs
	LegitURLFile string `yaml:"legit_url_file"`

	// Column name holding the URL when the CSVs have a header
	URLColumn string `yaml:"url_column"`

	// CSV of host,label rows
	HostFile string `yaml:"host_file"`

	// Redis cache, shared across instances when enabled
	Redis RedisListConfig `yaml:"redis"`
}

// RedisListConfig mirrors the list cache settings.
type RedisListConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RedisURL    string `yaml:"redis_url"`
	KeyPrefix   string `yaml:"key_prefix"`
	DatabaseNum int    `yaml:"database_num"`
	EntryTTLHrs int    `yaml:"entry_ttl_hours"`
}

// TextModelConfig selects the text classifier backend.
type TextModelConfig struct {
	// Remote inference service URL; empty selects the rule-based
	// fallback
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// MilterConfig contains the mail filter integration settings.
type MilterConfig struct {
	Enabled bool `yaml:"enabled"`

	// Network and address for the milter socket
	Network string `yaml:"network"` // "tcp" or "unix"
	Address string `yaml:"address"`

	// Confidence at or above which phishing mail is rejected instead
	// of tagged
	RejectThreshold float64 `yaml:"reject_threshold"`

	// Add X-PhishWatch headers to scanned mail
	AddHeaders bool `yaml:"add_headers"`

	// Connection settings
	ReadTimeoutSecs  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSecs int `yaml:"write_timeout_seconds"`

	// Maximum message size to scan (larger messages pass through)
	MaxMessageSizeMB int `yaml:"max_message_size_mb"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // log file path, empty = stderr
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			BodyLimitKB:  512,
			ReadTimeout:  15,
			WriteTimeout: 30,
		},
		Model: ModelConfig{
			Path:           "models/bundle.json",
			CacheDir:       ".cache/phishwatch",
			TimeoutSeconds: 30,
		},
		Lists: ListsConfig{
			URLFile:      "data/phishing_urls.csv",
			LegitURLFile: "data/legit_urls.csv",
			URLColumn:    "url",
			HostFile:     "data/hosts.csv",
			Redis: RedisListConfig{
				Enabled:     false,
				RedisURL:    "redis://localhost:6379",
				KeyPrefix:   "pw:lists",
				EntryTTLHrs: 24,
			},
		},
		TextModel: TextModelConfig{
			Timeout: "15s",
		},
		Milter: MilterConfig{
			Enabled:          false,
			Network:          "tcp",
			Address:          "127.0.0.1:7357",
			RejectThreshold:  0.80,
			AddHeaders:       true,
			ReadTimeoutSecs:  10,
			WriteTimeoutSecs: 10,
			MaxMessageSizeMB: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig reads the YAML file at configPath on top of defaults,
// applies environment overrides and validates the result. An empty
// path yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	// Pick up a local .env if present; real environment wins.
	_ = godotenv.Load()

	config := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}

		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}
	return config, nil
}

// applyEnv overlays the deployment-sensitive settings.
func (c *Config) applyEnv() {
	if v := os.Getenv("PHISHWATCH_MODEL_URL"); v != "" {
		c.Model.URL = v
	}
	if v := os.Getenv("PHISHWATCH_MODEL_PATH"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("PHISHWATCH_POLARITY"); v != "" {
		c.Model.Polarity = v
	}
	if v := os.Getenv("PHISHWATCH_TEXT_MODEL_URL"); v != "" {
		c.TextModel.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Lists.Redis.RedisURL = v
	}
}

// SaveConfig writes the configuration as YAML.
func (c *Config) SaveConfig(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}
	return nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}

	if c.Model.Path == "" && c.Model.URL == "" {
		return fmt.Errorf("model requires a path or a registry URL")
	}

	switch c.Model.Polarity {
	case "", "PHISH", "LEGIT", "phish", "legit":
	default:
		return fmt.Errorf("model polarity must be PHISH, LEGIT or empty, got %q", c.Model.Polarity)
	}

	if c.Milter.Enabled {
		if c.Milter.Network != "tcp" && c.Milter.Network != "unix" {
			return fmt.Errorf("milter network must be tcp or unix, got %q", c.Milter.Network)
		}
		if c.Milter.Address == "" {
			return fmt.Errorf("milter address is required when milter is enabled")
		}
		if c.Milter.RejectThreshold < 0.5 || c.Milter.RejectThreshold > 1.0 {
			return fmt.Errorf("milter reject threshold must be in [0.5, 1.0], got %f", c.Milter.RejectThreshold)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
