package domain

import "time"

// Config represents the full application configuration. Guideline and
// likelihood tables are part of configuration by design: guideline updates
// must never require a code change.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Tracking   TrackingConfig    `mapstructure:"tracking"`
	Guideline  GuidelineTable    `mapstructure:"guideline"`
	Likelihood LikelihoodTable   `mapstructure:"likelihood"`
	Priors     []HypothesisPrior `mapstructure:"priors"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the optional persistence backend.
// Driver is one of "memory", "sqlite", "postgres".
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// TrackingConfig carries the numeric thresholds of the tracking core. The
// stability threshold is relative: 0.02 means size changes under 2% of the
// reference are reported as stable.
type TrackingConfig struct {
	StabilityThreshold float64 `mapstructure:"stability_threshold"`
	ReportCacheSize    int     `mapstructure:"report_cache_size"`
}
