package hooks

import (
	"log/slog"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/config"
	"github.com/VersatilVC/organize-prime-sub010/observability"
	"github.com/VersatilVC/organize-prime-sub010/store"
)

// Option configures a Monitor instance.
type Option func(*Monitor) error

// WithStore sets the persistence backend for the Monitor instance.
func WithStore(s store.Store) Option {
	return func(m *Monitor) error {
		m.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Monitor instance.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) error {
		m.logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration at once.
func WithConfig(cfg Config) Option {
	return func(m *Monitor) error {
		m.config = cfg
		return nil
	}
}

// WithConfigFile loads the configuration from a YAML file.
func WithConfigFile(path string) Option {
	return func(m *Monitor) error {
		fc, err := config.Load(path)
		if err != nil {
			return err
		}
		m.config = fromFileConfig(fc)
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(m *Monitor) error {
		m.config.RequestTimeout = d
		return nil
	}
}

// WithRetryAttempts sets how many retries follow a retryable failure.
func WithRetryAttempts(n int) Option {
	return func(m *Monitor) error {
		m.config.RetryAttempts = n
		return nil
	}
}

// WithFollowRedirects controls whether delivery calls follow 3xx.
func WithFollowRedirects(follow bool) Option {
	return func(m *Monitor) error {
		m.config.FollowRedirects = follow
		return nil
	}
}

// WithWorkerWidth bounds the parallelism of batch tests and the
// monitoring refresh.
func WithWorkerWidth(n int) Option {
	return func(m *Monitor) error {
		m.config.WorkerWidth = n
		return nil
	}
}

// WithRefreshInterval sets the monitoring aggregator's polling cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Monitor) error {
		m.config.RefreshInterval = d
		return nil
	}
}

// WithTrendDays sets the summary trend lookback in day buckets.
func WithTrendDays(days int) Option {
	return func(m *Monitor) error {
		m.config.TrendDays = days
		return nil
	}
}

// WithTopPerformers caps the summary's top-performer list.
func WithTopPerformers(n int) Option {
	return func(m *Monitor) error {
		m.config.TopPerformers = n
		return nil
	}
}

// WithMetrics attaches Prometheus metrics to deliveries and refreshes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Monitor) error {
		m.metrics = metrics
		return nil
	}
}

// WithTracer attaches OpenTelemetry spans to deliveries and refreshes.
func WithTracer(tracer *observability.Tracer) Option {
	return func(m *Monitor) error {
		m.tracer = tracer
		return nil
	}
}
