// Package monitoring fans in per-endpoint health across the whole fleet:
// a periodically refreshed metrics map, dashboard-level summaries, and an
// in-process pub/sub hub for change notifications.
//
// The metrics map is mutated only inside the aggregator's own refresh
// routine. External readers always receive copies, so a snapshot can
// never tear against a concurrent refresh.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/batch"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/health"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/stats"
)

const (
	// DefaultRefreshInterval is the polling cadence between refreshes.
	DefaultRefreshInterval = 30 * time.Second

	// DefaultTopPerformers caps the summary's top-performer list.
	DefaultTopPerformers = 5
)

// Performer is one entry of the summary's top-performer ranking.
type Performer struct {
	WebhookID   id.ID         `json:"webhook_id"`
	Name        string        `json:"name"`
	HealthScore int           `json:"health_score"`
	Status      health.Status `json:"status"`
}

// Summary is the dashboard-level rollup across all tracked endpoints.
type Summary struct {
	// TotalEndpoints counts all tracked endpoints.
	TotalEndpoints int `json:"total_endpoints"`

	// ActiveEndpoints counts tracked endpoints that are enabled.
	ActiveEndpoints int `json:"active_endpoints"`

	// SuccessRate24h is the union success rate over every endpoint's
	// trailing-24h deliveries, 0–100.
	SuccessRate24h int `json:"success_rate_24h"`

	// AvgResponseTimeMs is the mean of per-endpoint 24h averages over
	// active endpoints that had successful deliveries.
	AvgResponseTimeMs int `json:"avg_response_time_ms"`

	// ActiveAlerts sums the firing alerts across all endpoints.
	ActiveAlerts int `json:"active_alerts"`

	// TopPerformers ranks endpoints by health score descending.
	TopPerformers []Performer `json:"top_performers"`

	// Trend is the fleet-wide day-bucketed series, oldest first.
	Trend []stats.TrendPoint `json:"trend"`

	// RefreshedAt is when this summary was computed.
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Aggregator maintains the latest health metrics per endpoint and the
// fleet summary, refreshing them on a fixed cadence.
type Aggregator struct {
	endpoints endpoint.Store
	health    *health.Service
	stats     *stats.Aggregator
	hub       *Hub
	logger    *slog.Logger

	interval  time.Duration
	topN      int
	trendDays int
	width     int
	now       func() time.Time

	// refreshing coalesces overlapping refreshes: a tick that fires
	// while a refresh is still running is skipped, never queued.
	refreshing atomic.Bool

	mu      sync.RWMutex
	metrics map[string]*health.Metrics
	summary Summary

	stop chan struct{}
	done chan struct{}
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithRefreshInterval overrides the polling cadence.
func WithRefreshInterval(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithTopPerformers overrides the top-performer cap.
func WithTopPerformers(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.topN = n
		}
	}
}

// WithTrendDays overrides the summary trend lookback.
func WithTrendDays(days int) AggregatorOption {
	return func(a *Aggregator) {
		if days > 0 {
			a.trendDays = days
		}
	}
}

// WithWorkerWidth bounds the refresh's per-endpoint parallelism.
func WithWorkerWidth(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.width = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the clock. Used by tests.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an Aggregator over the given stores and hub.
func NewAggregator(eps endpoint.Store, hs *health.Service, sa *stats.Aggregator, hub *Hub, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		endpoints: eps,
		health:    hs,
		stats:     sa,
		hub:       hub,
		logger:    slog.Default(),
		interval:  DefaultRefreshInterval,
		topN:      DefaultTopPerformers,
		trendDays: stats.DefaultTrendDays,
		width:     batch.DefaultWidth,
		now:       time.Now,
		metrics:   make(map[string]*health.Metrics),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start begins the periodic refresh loop after one initial refresh.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.stop != nil {
		return nil
	}
	if err := a.Refresh(ctx); err != nil {
		return err
	}

	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.loop()
	return nil
}

// Stop halts the refresh loop and waits for it to exit.
func (a *Aggregator) Stop() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	<-a.done
	a.stop = nil
}

func (a *Aggregator) loop() {
	defer close(a.done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), a.interval)
			if err := a.Refresh(ctx); err != nil {
				a.logger.Error("monitoring refresh failed", "error", err)
			}
			cancel()
		}
	}
}

// Refresh recomputes all per-endpoint metrics and the summary. A refresh
// arriving while another is in flight is skipped, so refreshes cannot
// pile up. On per-endpoint failure the endpoint's previous metrics are
// kept rather than replaced with zeros.
func (a *Aggregator) Refresh(ctx context.Context) error {
	if !a.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	defer a.refreshing.Store(false)

	eps, err := a.endpoints.ListEndpoints(ctx, endpoint.ListOpts{})
	if err != nil {
		return fmt.Errorf("monitoring: list endpoints: %w", err)
	}

	type result struct {
		ep      *endpoint.Endpoint
		metrics *health.Metrics
		day     stats.WindowStats
	}
	outcomes := batch.Run(ctx, eps, a.width, func(ctx context.Context, ep *endpoint.Endpoint) (result, error) {
		m, err := a.health.Metrics(ctx, ep)
		if err != nil {
			return result{}, err
		}
		day, err := a.stats.Compute(ctx, ep.ID, stats.Window24h)
		if err != nil {
			return result{}, err
		}
		return result{ep: ep, metrics: m, day: day}, nil
	})

	next := make(map[string]*health.Metrics, len(eps))
	var alertChanged []*health.Metrics
	var daySum stats.WindowStats
	var latencySum, latencyN int
	activeAlerts := 0

	a.mu.RLock()
	prev := a.metrics
	a.mu.RUnlock()

	for _, out := range outcomes {
		key := out.Item.ID.String()
		if out.Err != nil {
			a.logger.Warn("endpoint metrics refresh failed, keeping previous",
				"webhook_id", key, "error", out.Err)
			if old, ok := prev[key]; ok {
				next[key] = old
				activeAlerts += len(old.Alerts)
			}
			continue
		}

		m := out.Result.metrics
		next[key] = m
		activeAlerts += len(m.Alerts)

		if old, ok := prev[key]; len(m.Alerts) > 0 && (!ok || alertsKey(m.Alerts) != alertsKey(old.Alerts)) {
			alertChanged = append(alertChanged, m)
		}

		day := out.Result.day
		daySum.Total += day.Total
		daySum.Successful += day.Successful
		if out.Item.IsActive && day.Successful > 0 {
			latencySum += day.AvgResponseTimeMs
			latencyN++
		}
	}

	trend, err := a.stats.Trend(ctx, id.Nil, a.trendDays)
	if err != nil {
		return fmt.Errorf("monitoring: compute trend: %w", err)
	}

	summary := Summary{
		TotalEndpoints: len(eps),
		ActiveAlerts:   activeAlerts,
		Trend:          trend,
		RefreshedAt:    a.now().UTC(),
	}
	for _, ep := range eps {
		if ep.IsActive {
			summary.ActiveEndpoints++
		}
	}
	if daySum.Total > 0 {
		summary.SuccessRate24h = int(math.Round(float64(daySum.Successful) / float64(daySum.Total) * 100))
	}
	if latencyN > 0 {
		summary.AvgResponseTimeMs = int(math.Round(float64(latencySum) / float64(latencyN)))
	}
	summary.TopPerformers = topPerformers(eps, next, a.topN)

	a.mu.Lock()
	a.metrics = next
	a.summary = summary
	a.mu.Unlock()

	if a.hub != nil {
		a.hub.Publish(TopicMetricsUpdated, summary)
		for _, m := range alertChanged {
			a.hub.Publish(TopicAlertTriggered, copyMetrics(m))
		}
	}
	return nil
}

// Metrics returns a copy of the latest health metrics for one endpoint.
func (a *Aggregator) Metrics(webhookID id.ID) (*health.Metrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.metrics[webhookID.String()]
	if !ok {
		return nil, false
	}
	return copyMetrics(m), true
}

// AllMetrics returns copies of the latest metrics for every tracked
// endpoint, keyed by webhook ID string.
func (a *Aggregator) AllMetrics() map[string]*health.Metrics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]*health.Metrics, len(a.metrics))
	for key, m := range a.metrics {
		out[key] = copyMetrics(m)
	}
	return out
}

// Snapshot returns a copy of the latest summary, never a live reference.
func (a *Aggregator) Snapshot() Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := a.summary
	s.TopPerformers = append([]Performer(nil), s.TopPerformers...)
	s.Trend = append([]stats.TrendPoint(nil), s.Trend...)
	return s
}

// topPerformers ranks endpoints by health score descending, ties broken
// by ID ascending, capped at n.
func topPerformers(eps []*endpoint.Endpoint, metrics map[string]*health.Metrics, n int) []Performer {
	performers := make([]Performer, 0, len(eps))
	for _, ep := range eps {
		m, ok := metrics[ep.ID.String()]
		if !ok {
			continue
		}
		performers = append(performers, Performer{
			WebhookID:   ep.ID,
			Name:        ep.Name,
			HealthScore: m.HealthScore,
			Status:      m.Status,
		})
	}

	sort.Slice(performers, func(i, j int) bool {
		if performers[i].HealthScore != performers[j].HealthScore {
			return performers[i].HealthScore > performers[j].HealthScore
		}
		return performers[i].WebhookID.String() < performers[j].WebhookID.String()
	})

	if n > 0 && n < len(performers) {
		performers = performers[:n]
	}
	return performers
}

// alertsKey canonicalizes an alert set for change detection.
func alertsKey(alerts []health.Alert) string {
	keys := make([]string, len(alerts))
	for i, a := range alerts {
		keys[i] = string(a.Type) + "/" + string(a.Severity)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// copyMetrics deep-copies a metrics record for handoff outside the lock.
func copyMetrics(m *health.Metrics) *health.Metrics {
	cp := *m
	cp.Alerts = append([]health.Alert(nil), m.Alerts...)
	if m.LastSuccess != nil {
		at := *m.LastSuccess
		cp.LastSuccess = &at
	}
	if m.LastFailure != nil {
		at := *m.LastFailure
		cp.LastFailure = &at
	}
	return &cp
}
