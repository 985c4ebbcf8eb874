package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// for example QBITSYNC_QBITTORRENT_URL.
const EnvPrefix = "QBITSYNC_"

// ErrInvalidConfig is returned when the merged configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load builds the configuration from, in increasing priority: defaults, the
// config file, QBITSYNC_* environment variables and overrides. Zero values in
// a higher layer never replace a lower layer's value.
//
// With an empty configPath the standard locations are searched and a missing
// file is not an error.
func Load(configPath string, overrides ...*Config) (*Config, error) {
	b := newConfigBuilder().withFile(configPath).withEnv()
	for _, o := range overrides {
		b.withOverride(o)
	}
	return b.build()
}

func readFile(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "qbitsync"))
		}
		v.AddConfigPath("/etc/qbitsync/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// qBittorrent defaults
	v.SetDefault("qbittorrent.url", "http://localhost:8080")
	v.SetDefault("qbittorrent.timeout", "30s")
	v.SetDefault("qbittorrent.user_agent", "qbitsync")
	v.SetDefault("qbittorrent.detect_api_version", true)

	// Sync defaults
	v.SetDefault("sync.interval", "2s")
	v.SetDefault("sync.observer_concurrency", 4)
	v.SetDefault("sync.resync_on_error", true)

	// Filter defaults
	v.SetDefault("filter.cache_size", 100)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Qbittorrent.URL == "" {
		return fmt.Errorf("%w: qbittorrent.url is required", ErrInvalidConfig)
	}

	u, err := url.Parse(cfg.Qbittorrent.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: qbittorrent.url must be an http(s) URL: %s", ErrInvalidConfig, cfg.Qbittorrent.URL)
	}

	if cfg.Qbittorrent.Timeout < 0 {
		return fmt.Errorf("%w: qbittorrent.timeout must not be negative", ErrInvalidConfig)
	}

	if cfg.Sync.Interval <= 0 {
		return fmt.Errorf("%w: sync.interval must be positive", ErrInvalidConfig)
	}

	if cfg.Sync.ObserverConcurrency < 0 {
		return fmt.Errorf("%w: sync.observer_concurrency must not be negative", ErrInvalidConfig)
	}

	if cfg.Filter.CacheSize < 0 || cfg.Filter.Workers < 0 {
		return fmt.Errorf("%w: filter.cache_size and filter.workers must not be negative", ErrInvalidConfig)
	}

	for name, expression := range cfg.Filter.Expressions {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("%w: filter %q has an empty expression", ErrInvalidConfig, name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("%w: invalid logging level: %s", ErrInvalidConfig, cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("%w: invalid logging format: %s", ErrInvalidConfig, cfg.Logging.Format)
	}

	return nil
}
