// Package config provides Viper-based configuration management for bloggera
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete bloggera configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Session SessionConfig `mapstructure:"session"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Compose ComposeConfig `mapstructure:"compose"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Serve   ServeConfig   `mapstructure:"serve"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// APIConfig contains settings for the Bloggera REST backend
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst     int           `mapstructure:"burst"`
}

// BreakerConfig contains circuit breaker thresholds for the API client
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// SessionConfig contains durable session storage settings
type SessionConfig struct {
	Path string `mapstructure:"path"`
}

// FeedConfig contains feed pagination settings
type FeedConfig struct {
	Sample      int `mapstructure:"sample"`
	MaxExcluded int `mapstructure:"max_excluded"` // 0 sends the full exclusion set
}

// ComposeConfig contains post composition limits
type ComposeConfig struct {
	MaxImageBytes int64 `mapstructure:"max_image_bytes"`
}

// CacheConfig contains reference-data cache settings
type CacheConfig struct {
	CategoriesTTL time.Duration `mapstructure:"categories_ttl"`
	Size          int           `mapstructure:"size"`
}

// ServeConfig contains settings for the local web companion
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool   `mapstructure:"colors"`
	Format string `mapstructure:"format"`
}

// TracingConfig contains OpenTelemetry export settings
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// envKeyReplacer maps api.base_url to BLOGGERA_API_BASE_URL
var envKeyReplacer = strings.NewReplacer(".", "_")

// Load reads configuration from .env, the config file and environment variables
func Load(cfgFile string) (*Config, error) {
	// A missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".bloggera")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/bloggera")
	}

	v.SetEnvPrefix("BLOGGERA")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Session.Path == "" {
		cfg.Session.Path = DefaultSessionPath()
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.Session.Path = DefaultSessionPath()
	return &cfg
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst", 5)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.open_timeout", 30*time.Second)

	v.SetDefault("session.path", "")

	v.SetDefault("feed.sample", 30)
	v.SetDefault("feed.max_excluded", 0)

	v.SetDefault("compose.max_image_bytes", int64(5*1024*1024))

	v.SetDefault("cache.categories_ttl", 10*time.Minute)
	v.SetDefault("cache.size", 128)

	v.SetDefault("serve.addr", "127.0.0.1:5173")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)
	v.SetDefault("output.format", "table")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// DefaultSessionPath returns $HOME/.config/bloggera/session.json, or a relative fallback
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".bloggera", "session.json")
	}
	return filepath.Join(dir, "bloggera", "session.json")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", cfg.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api.base_url scheme: %s (must be http or https)", u.Scheme)
	}

	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}

	if cfg.Feed.Sample <= 0 {
		return fmt.Errorf("feed.sample must be positive")
	}
	if cfg.Feed.MaxExcluded < 0 {
		return fmt.Errorf("feed.max_excluded must not be negative")
	}

	if cfg.Compose.MaxImageBytes <= 0 {
		return fmt.Errorf("compose.max_image_bytes must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	validOutputs := map[string]bool{"table": true, "json": true, "yaml": true}
	if !validOutputs[cfg.Output.Format] {
		return fmt.Errorf("invalid output format: %s (must be table, json, or yaml)", cfg.Output.Format)
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be between 0 and 1")
	}

	return nil
}
