package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lesion-track-server/internal/domain"
)

// Manager loads and validates application configuration using Viper.
// Sources, in precedence order: environment variables (LESION_TRACK_ prefix),
// an optional yaml config file, built-in defaults. The guideline table,
// hypothesis priors and likelihood factors are configuration data; the
// bundled defaults in tables.go apply only when the file supplies none.
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	m.v.SetConfigName("config")
	m.v.SetConfigType("yaml")
	m.v.AddConfigPath(".")
	m.v.AddConfigPath("./configs")
	m.v.AddConfigPath("/etc/lesion-track-server/")

	m.v.SetEnvPrefix("LESION_TRACK")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars carry a full setup.
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(config.Guideline.Rules) == 0 {
		config.Guideline = DefaultGuidelineTable()
	}
	if len(config.Likelihood.Factors) == 0 {
		config.Likelihood = DefaultLikelihoodTable()
	}
	if len(config.Priors) == 0 {
		config.Priors = DefaultPriors()
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	m.v.SetDefault("server.host", "0.0.0.0")
	m.v.SetDefault("server.port", 8080)
	m.v.SetDefault("server.read_timeout", "30s")
	m.v.SetDefault("server.write_timeout", "30s")
	m.v.SetDefault("server.idle_timeout", "120s")
	m.v.SetDefault("server.rate_limit_rps", 50)
	m.v.SetDefault("server.rate_limit_burst", 100)

	m.v.SetDefault("logging.level", "info")
	m.v.SetDefault("logging.format", "json")

	m.v.SetDefault("storage.driver", "memory")
	m.v.SetDefault("storage.sqlite_path", "./data/lesion-track.db")
	m.v.SetDefault("storage.postgres_dsn", "")

	m.v.SetDefault("tracking.stability_threshold", 0.02)
	m.v.SetDefault("tracking.report_cache_size", 256)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetTrackingConfig returns tracking threshold configuration
func (m *Manager) GetTrackingConfig() *domain.TrackingConfig {
	return &m.config.Tracking
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	switch config.Storage.Driver {
	case "memory":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite storage requires storage.sqlite_path")
		}
	case "postgres":
		if config.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires storage.postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", config.Storage.Driver)
	}

	if config.Tracking.StabilityThreshold <= 0 || config.Tracking.StabilityThreshold >= 0.5 {
		return fmt.Errorf("tracking.stability_threshold must be in (0, 0.5), got %g", config.Tracking.StabilityThreshold)
	}

	if err := validateGuideline(config.Guideline); err != nil {
		return err
	}
	if err := validatePriors(config.Priors); err != nil {
		return err
	}
	if err := validateLikelihood(config.Likelihood, config.Priors); err != nil {
		return err
	}

	return nil
}

func validateGuideline(table domain.GuidelineTable) error {
	if len(table.Rules) == 0 {
		return fmt.Errorf("guideline table %q has no rules", table.Name)
	}
	for i, rule := range table.Rules {
		if rule.Name == "" {
			return fmt.Errorf("guideline rule %d has no name", i)
		}
		if rule.Category == "" || rule.RecommendedAction == "" {
			return fmt.Errorf("guideline rule %q needs both category and recommended_action", rule.Name)
		}
		switch rule.RiskLevel {
		case domain.LOW_RISK, domain.INTERMEDIATE_RISK, domain.HIGH_RISK, domain.VERY_HIGH_RISK:
		default:
			return fmt.Errorf("guideline rule %q has unknown risk level %q", rule.Name, rule.RiskLevel)
		}
		if rule.MinSizeMM != nil && rule.MaxSizeMM != nil && *rule.MinSizeMM >= *rule.MaxSizeMM {
			return fmt.Errorf("guideline rule %q has an empty size band", rule.Name)
		}
	}
	return nil
}

func validatePriors(priors []domain.HypothesisPrior) error {
	if len(priors) == 0 {
		return fmt.Errorf("hypothesis priors must not be empty")
	}
	seen := make(map[string]bool, len(priors))
	for _, p := range priors {
		if p.Label == "" {
			return fmt.Errorf("hypothesis prior with empty label")
		}
		if seen[p.Label] {
			return fmt.Errorf("duplicate hypothesis label %q", p.Label)
		}
		seen[p.Label] = true
		if p.Weight <= 0 {
			return fmt.Errorf("hypothesis %q prior weight must be positive, got %g", p.Label, p.Weight)
		}
	}
	return nil
}

func validateLikelihood(table domain.LikelihoodTable, priors []domain.HypothesisPrior) error {
	known := make(map[string]bool, len(priors))
	for _, p := range priors {
		known[p.Label] = true
	}
	for trend, byLabel := range table.Factors {
		for label, factor := range byLabel {
			if !known[label] {
				return fmt.Errorf("likelihood factor for unknown hypothesis %q under trend %s", label, trend)
			}
			if factor <= 0 {
				return fmt.Errorf("likelihood factor for %q under trend %s must be positive, got %g", label, trend, factor)
			}
		}
	}
	for density, byLabel := range table.DensityFactors {
		for label, factor := range byLabel {
			if !known[label] {
				return fmt.Errorf("density factor for unknown hypothesis %q under density %s", label, density)
			}
			if factor <= 0 {
				return fmt.Errorf("density factor for %q under density %s must be positive, got %g", label, density, factor)
			}
		}
	}
	return nil
}
