// Package config loads engine configuration from YAML with sensible
// defaults and supports live reload on file change.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultWorkerWidth     = 6
	DefaultRetryAttempts   = 0
	DefaultTrendDays       = 7
	DefaultTopPerformers   = 5
)

// Config is the top-level engine configuration. Fields map 1:1 to the
// YAML file.
type Config struct {
	// Delivery holds outbound call and retry settings.
	Delivery DeliveryConfig `yaml:"delivery"`

	// Monitoring holds aggregator refresh and summary settings.
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// Storage selects and configures the persistence backend.
	Storage StorageConfig `yaml:"storage"`
}

// DeliveryConfig holds outbound call settings.
type DeliveryConfig struct {
	// RequestTimeout is the hard deadline for one delivery attempt.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RetryAttempts is how many retries follow a retryable failure.
	RetryAttempts int `yaml:"retry_attempts"`

	// FollowRedirects controls whether delivery calls follow 3xx.
	FollowRedirects bool `yaml:"follow_redirects"`

	// WorkerWidth bounds the parallelism of batch operations.
	WorkerWidth int `yaml:"worker_width"`
}

// MonitoringConfig holds aggregator settings.
type MonitoringConfig struct {
	// RefreshInterval is the cadence of the periodic metrics refresh.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// TrendDays is the summary trend lookback in day buckets.
	TrendDays int `yaml:"trend_days"`

	// TopPerformers caps the summary's top-performer list.
	TopPerformers int `yaml:"top_performers"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Backend is one of: memory | redis | postgres | sqlite | mongo.
	Backend string `yaml:"backend"`

	// DSN is the backend connection string. Prefer DSNEnv for anything
	// carrying credentials.
	DSN string `yaml:"dsn"`

	// DSNEnv names an environment variable holding the DSN.
	DSNEnv string `yaml:"dsn_env"`
}

// ResolveDSN returns the connection string, preferring the environment
// variable when set.
func (s StorageConfig) ResolveDSN() string {
	if s.DSNEnv != "" {
		if v := os.Getenv(s.DSNEnv); v != "" {
			return v
		}
	}
	return s.DSN
}

// Load reads and parses the YAML config file at path. Missing optional
// fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Delivery: DeliveryConfig{
			RequestTimeout:  DefaultRequestTimeout,
			RetryAttempts:   DefaultRetryAttempts,
			FollowRedirects: true,
			WorkerWidth:     DefaultWorkerWidth,
		},
		Monitoring: MonitoringConfig{
			RefreshInterval: DefaultRefreshInterval,
			TrendDays:       DefaultTrendDays,
			TopPerformers:   DefaultTopPerformers,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Delivery.RequestTimeout <= 0 {
		return fmt.Errorf("delivery.request_timeout must be positive")
	}
	if cfg.Delivery.RetryAttempts < 0 {
		return fmt.Errorf("delivery.retry_attempts must not be negative")
	}
	if cfg.Delivery.WorkerWidth <= 0 {
		return fmt.Errorf("delivery.worker_width must be positive")
	}
	if cfg.Monitoring.RefreshInterval <= 0 {
		return fmt.Errorf("monitoring.refresh_interval must be positive")
	}
	if cfg.Monitoring.TrendDays <= 0 {
		return fmt.Errorf("monitoring.trend_days must be positive")
	}
	if cfg.Monitoring.TopPerformers <= 0 {
		return fmt.Errorf("monitoring.top_performers must be positive")
	}
	switch cfg.Storage.Backend {
	case "memory", "redis", "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", cfg.Storage.Backend)
	}
	return nil
}
