package hooks

import (
	"time"

	"github.com/VersatilVC/organize-prime-sub010/batch"
	"github.com/VersatilVC/organize-prime-sub010/config"
	"github.com/VersatilVC/organize-prime-sub010/monitoring"
	"github.com/VersatilVC/organize-prime-sub010/stats"
)

// Config holds the configuration for a Monitor instance.
type Config struct {
	// RequestTimeout is the hard deadline per delivery attempt.
	RequestTimeout time.Duration

	// RetryAttempts is how many retries follow a retryable failure.
	// Completed non-2xx responses are never retried.
	RetryAttempts int

	// FollowRedirects controls whether delivery calls follow 3xx.
	FollowRedirects bool

	// WorkerWidth bounds the parallelism of batch operations and the
	// monitoring refresh.
	WorkerWidth int

	// RefreshInterval is the monitoring aggregator's polling cadence.
	RefreshInterval time.Duration

	// TrendDays is the summary trend lookback in day buckets.
	TrendDays int

	// TopPerformers caps the summary's top-performer list.
	TopPerformers int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:  30 * time.Second,
		RetryAttempts:   0,
		FollowRedirects: true,
		WorkerWidth:     batch.DefaultWidth,
		RefreshInterval: monitoring.DefaultRefreshInterval,
		TrendDays:       stats.DefaultTrendDays,
		TopPerformers:   monitoring.DefaultTopPerformers,
	}
}

// fromFileConfig flattens a loaded YAML config into a Config.
func fromFileConfig(fc *config.Config) Config {
	return Config{
		RequestTimeout:  fc.Delivery.RequestTimeout,
		RetryAttempts:   fc.Delivery.RetryAttempts,
		FollowRedirects: fc.Delivery.FollowRedirects,
		WorkerWidth:     fc.Delivery.WorkerWidth,
		RefreshInterval: fc.Monitoring.RefreshInterval,
		TrendDays:       fc.Monitoring.TrendDays,
		TopPerformers:   fc.Monitoring.TopPerformers,
	}
}
