// Package config loads the command line client configuration.
// It supports an optional YAML config file and a .env file, with environment
// variable overrides. The identifying user agent is mandatory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "EDGAR"

// Limiter strategies.
const (
	LimiterWindow = "window"
	LimiterToken  = "token"
)

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Config represents the complete client configuration.
type Config struct {
	UserAgent         string        `mapstructure:"user_agent"          yaml:"user_agent"`
	BaseURL           string        `mapstructure:"base_url"            yaml:"base_url"`
	RequestsPerSecond int           `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BufferMS          int           `mapstructure:"buffer_ms"           yaml:"buffer_ms"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	Limiter           string        `mapstructure:"limiter"             yaml:"limiter"` // "window" or "token"
	TickersFile       string        `mapstructure:"tickers_file"        yaml:"tickers_file"`
	Logging           LoggingConfig `mapstructure:"logging"             yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Buffer returns the limiter safety buffer as a duration.
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}

// Load reads the configuration from a .env file, a config file and environment variables.
// Config file search order:
//  1. ./edgar.yaml
//  2. ~/.edgar/edgar.yaml
//
// Environment variables override config file values.
// Format: EDGAR_<KEY>, e.g., EDGAR_USER_AGENT
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("edgar")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(homeDir(), ".edgar"))

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UserAgent) == "" {
		return &ConfigError{Key: "user_agent", Reason: "must be set (EDGAR_USER_AGENT), e.g. \"Company Name admin@example.com\""}
	}
	if c.RequestsPerSecond <= 0 {
		return &ConfigError{Key: "requests_per_second", Reason: "must be positive"}
	}
	if c.BufferMS < 0 {
		return &ConfigError{Key: "buffer_ms", Reason: "must not be negative"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Key: "timeout", Reason: "must be positive"}
	}
	if c.Limiter != LimiterWindow && c.Limiter != LimiterToken {
		return &ConfigError{Key: "limiter", Reason: fmt.Sprintf("unknown strategy %q", c.Limiter)}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about
	_ = v.BindEnv("user_agent")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets the defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://data.sec.gov")
	v.SetDefault("requests_per_second", 10)
	v.SetDefault("buffer_ms", 100)
	v.SetDefault("timeout", 5*time.Second)
	v.SetDefault("limiter", LimiterWindow)
	v.SetDefault("tickers_file", filepath.Join("mappings", "ticker_to_cik.json"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// loadDotEnv loads variables from path without overriding the real environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
