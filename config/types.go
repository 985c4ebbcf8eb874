package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Qbittorrent QbittorrentConfig `mapstructure:"qbittorrent" envPrefix:"QBITTORRENT_"`
	Sync        SyncConfig        `mapstructure:"sync" envPrefix:"SYNC_"`
	Filter      FilterConfig      `mapstructure:"filter" envPrefix:"FILTER_"`
	Logging     LoggingConfig     `mapstructure:"logging" envPrefix:"LOGGING_"`
}

// QbittorrentConfig holds qBittorrent Web API connection details
type QbittorrentConfig struct {
	URL                string        `mapstructure:"url" env:"URL"`
	Username           string        `mapstructure:"username" env:"USERNAME"`
	Password           string        `mapstructure:"password" env:"PASSWORD"`
	Timeout            time.Duration `mapstructure:"timeout" env:"TIMEOUT"`
	UserAgent          string        `mapstructure:"user_agent" env:"USER_AGENT"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" env:"INSECURE_SKIP_VERIFY"`
	// DetectAPIVersion queries the Web API version at startup to learn which
	// categories encoding the server should send.
	DetectAPIVersion bool `mapstructure:"detect_api_version" env:"DETECT_API_VERSION"`
}

// SyncConfig controls the maindata polling loop
type SyncConfig struct {
	Interval            time.Duration `mapstructure:"interval" env:"INTERVAL"`
	ObserverConcurrency int           `mapstructure:"observer_concurrency" env:"OBSERVER_CONCURRENCY"`
	ResyncOnError       bool          `mapstructure:"resync_on_error" env:"RESYNC_ON_ERROR"`
	StrictFullUpdate    bool          `mapstructure:"strict_full_update" env:"STRICT_FULL_UPDATE"`
}

// FilterConfig contains named filter expressions and evaluation settings.
// Filter names are case-insensitive; they are stored lowercased.
type FilterConfig struct {
	Expressions map[string]string `mapstructure:"expressions"`
	CacheSize   int               `mapstructure:"cache_size" env:"CACHE_SIZE"`
	Workers     int               `mapstructure:"workers" env:"WORKERS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL"`
	Format string `mapstructure:"format" env:"FORMAT"`
	Color  bool   `mapstructure:"color" env:"COLOR"`
}
