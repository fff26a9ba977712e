package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/VersatilVC/organize-prime-sub010/batch"
	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/health"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/monitoring"
	"github.com/VersatilVC/organize-prime-sub010/observability"
	"github.com/VersatilVC/organize-prime-sub010/ratelimit"
	"github.com/VersatilVC/organize-prime-sub010/stats"
	"github.com/VersatilVC/organize-prime-sub010/store"
)

// Monitor is the root webhook reliability engine: it issues signed test
// deliveries, records every attempt in the delivery log, and keeps fleet
// health metrics refreshed.
type Monitor struct {
	config  Config
	store   store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	endpointSvc *endpoint.Service
	caller      *delivery.Caller
	statsAgg    *stats.Aggregator
	healthSvc   *health.Service
	hub         *monitoring.Hub
	aggregator  *monitoring.Aggregator
	limiter     *ratelimit.Limiter
}

// New creates a new Monitor with the given options.
func New(opts ...Option) (*Monitor, error) {
	m := &Monitor{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	if m.store == nil {
		return nil, ErrNoStore
	}
	m.wireServices()
	return m, nil
}

// wireServices initializes the internal services after options have been applied.
func (m *Monitor) wireServices() {
	m.caller = delivery.NewCaller()
	m.limiter = ratelimit.New()
	m.endpointSvc = endpoint.NewService(m.store, m.logger)
	m.statsAgg = stats.NewAggregator(m.store)
	m.healthSvc = health.NewService(m.store, m.statsAgg)
	m.hub = monitoring.NewHub()

	m.aggregator = monitoring.NewAggregator(m.store, m.healthSvc, m.statsAgg, m.hub,
		monitoring.WithRefreshInterval(m.config.RefreshInterval),
		monitoring.WithTopPerformers(m.config.TopPerformers),
		monitoring.WithTrendDays(m.config.TrendDays),
		monitoring.WithWorkerWidth(m.config.WorkerWidth),
		monitoring.WithLogger(m.logger),
	)

	// Gauges track the latest refresh, whether it came from the periodic
	// loop or a manual call.
	if m.metrics != nil {
		m.hub.On(monitoring.TopicMetricsUpdated, func(payload any) {
			if s, ok := payload.(monitoring.Summary); ok {
				m.metrics.RecordRefresh(s.TotalEndpoints, s.ActiveAlerts)
			}
		})
	}
}

// Start runs one synchronous refresh, then begins the periodic
// monitoring loop.
func (m *Monitor) Start(ctx context.Context) error {
	return m.aggregator.Start(ctx)
}

// Stop halts the monitoring loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.aggregator.Stop()
}

// Test issues one interactive test delivery to the endpoint.
//
// The critical path:
//  1. Look up the endpoint (reject unknown IDs).
//  2. Reject deactivated endpoints.
//  3. Apply the endpoint's test-call rate limit.
//  4. Deliver, retrying retryable failures per the configured policy.
//  5. Append the classified outcome to the delivery log.
func (m *Monitor) Test(ctx context.Context, webhookID id.ID, p delivery.Payload) (*delivery.TestResult, error) {
	ep, err := m.store.GetEndpoint(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if !ep.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrEndpointInactive, ep.ID)
	}
	if !m.limiter.Allow(ep.ID, ep.TestRateLimit) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, ep.ID)
	}
	return m.deliver(ctx, ep, p, true, 0)
}

// TestBatch tests several endpoints concurrently with the same payload,
// bounded by the configured worker width. Each outcome carries its own
// result or error; one endpoint failing never aborts the rest.
func (m *Monitor) TestBatch(ctx context.Context, webhookIDs []id.ID, p delivery.Payload) []batch.Outcome[id.ID, *delivery.TestResult] {
	return batch.Run(ctx, webhookIDs, m.config.WorkerWidth, func(ctx context.Context, whID id.ID) (*delivery.TestResult, error) {
		return m.Test(ctx, whID, p)
	})
}

// RetryFailed re-delivers every failed or timed-out event recorded for
// the endpoint since the given time. Each re-delivery is logged as a new
// event whose retry count continues from the original's.
func (m *Monitor) RetryFailed(ctx context.Context, webhookID id.ID, since time.Time) ([]batch.Outcome[*delivery.Event, *delivery.TestResult], error) {
	ep, err := m.store.GetEndpoint(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	if !ep.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrEndpointInactive, ep.ID)
	}

	failed, err := m.store.QueryEvents(ctx, delivery.Filter{
		WebhookID: webhookID,
		Statuses:  []delivery.Status{delivery.StatusFailed, delivery.StatusTimeout},
		From:      &since,
	})
	if err != nil {
		return nil, fmt.Errorf("hooks: query failed deliveries: %w", err)
	}

	// The log keeps outcomes, not payload bodies, so a re-delivery carries
	// the original event type and a reference to the event being retried.
	outcomes := batch.Run(ctx, failed, m.config.WorkerWidth, func(ctx context.Context, evt *delivery.Event) (*delivery.TestResult, error) {
		p := delivery.Payload{
			EventType: evt.EventType,
			Data:      map[string]any{"retried_event_id": evt.ID.String()},
		}
		return m.deliver(ctx, ep, p, false, evt.RetryCount+1)
	})
	return outcomes, nil
}

// deliver runs the retrying delivery call, records the outcome in the
// delivery log, and publishes the completion. Only interactive test
// calls are marked with the X-Test header; operator re-deliveries must
// arrive as real deliveries or schedule-aware receivers will skip them.
// baseRetry offsets the recorded retry count when re-delivering an
// already-retried event.
func (m *Monitor) deliver(ctx context.Context, ep *endpoint.Endpoint, p delivery.Payload, test bool, baseRetry int) (*delivery.TestResult, error) {
	opts := &delivery.CallOptions{
		Timeout:         m.config.RequestTimeout,
		FollowRedirects: m.config.FollowRedirects,
		Test:            test,
	}

	var span trace.Span
	if m.tracer != nil {
		ctx, span = m.tracer.StartDeliverySpan(ctx, ep.ID.String(), p.EventType)
	}

	res, err := delivery.Do(ctx, func(ctx context.Context) (*delivery.TestResult, error) {
		return m.caller.Call(ctx, ep, p, opts)
	}, m.config.RetryAttempts, nil)
	if err != nil {
		if span != nil {
			span.End()
		}
		return nil, err
	}
	res.RetryCount += baseRetry

	if span != nil {
		m.tracer.EndDeliverySpan(span, string(res.Status), res.StatusCode, res.ResponseTimeMs, res.ErrorMessage)
	}
	if m.metrics != nil {
		m.metrics.RecordDelivery(string(res.Status), float64(res.ResponseTimeMs)/1000)
	}

	evt := &delivery.Event{
		WebhookID:      ep.ID,
		EventType:      p.EventType,
		Status:         res.Status,
		ResponseTimeMs: res.ResponseTimeMs,
		TriggeredAt:    time.Now().UTC(),
		ErrorMessage:   res.ErrorMessage,
		RetryCount:     res.RetryCount,
		PayloadSize:    res.PayloadSize,
	}
	evtID, err := m.store.AppendEvent(ctx, evt)
	if err != nil {
		return res, fmt.Errorf("hooks: record delivery: %w", err)
	}
	evt.ID = evtID

	m.hub.Publish(monitoring.TopicExecutionCompleted, evt)

	m.logger.DebugContext(ctx, "delivery completed",
		"webhook_id", ep.ID,
		"event_type", p.EventType,
		"status", res.Status,
		"status_code", res.StatusCode,
		"response_time_ms", res.ResponseTimeMs,
		"retry_count", res.RetryCount,
	)
	return res, nil
}

// Event returns one logged delivery event by ID.
func (m *Monitor) Event(ctx context.Context, eventID id.ID) (*delivery.Event, error) {
	return m.store.GetEvent(ctx, eventID)
}

// Health computes the current health record for one endpoint straight
// from the delivery log, bypassing the refresh cache.
func (m *Monitor) Health(ctx context.Context, webhookID id.ID) (*health.Metrics, error) {
	ep, err := m.store.GetEndpoint(ctx, webhookID)
	if err != nil {
		return nil, err
	}
	return m.healthSvc.Metrics(ctx, ep)
}

// Metrics returns the cached health record from the latest monitoring
// refresh, or false if the endpoint has not been refreshed yet.
func (m *Monitor) Metrics(webhookID id.ID) (*health.Metrics, bool) {
	return m.aggregator.Metrics(webhookID)
}

// Stats returns delivery statistics for one endpoint over a trailing
// window.
func (m *Monitor) Stats(ctx context.Context, webhookID id.ID, w stats.Window) (stats.WindowStats, error) {
	if !w.Valid() {
		return stats.WindowStats{}, fmt.Errorf("hooks: unsupported stats window %q", w)
	}
	if _, err := m.store.GetEndpoint(ctx, webhookID); err != nil {
		return stats.WindowStats{}, err
	}
	return m.statsAgg.Compute(ctx, webhookID, w)
}

// Trend returns the day-bucketed delivery series for one endpoint,
// oldest bucket first. The nil ID covers the whole fleet.
func (m *Monitor) Trend(ctx context.Context, webhookID id.ID, days int) ([]stats.TrendPoint, error) {
	if !webhookID.IsNil() {
		if _, err := m.store.GetEndpoint(ctx, webhookID); err != nil {
			return nil, err
		}
	}
	return m.statsAgg.Trend(ctx, webhookID, days)
}

// TopTriggers ranks all endpoints by trailing-24h delivery volume,
// busiest first, returning at most limit entries. A non-positive limit
// returns all.
func (m *Monitor) TopTriggers(ctx context.Context, limit int) ([]stats.Ranked, error) {
	eps, err := m.store.ListEndpoints(ctx, endpoint.ListOpts{})
	if err != nil {
		return nil, fmt.Errorf("hooks: list endpoints: %w", err)
	}
	ids := make([]id.ID, len(eps))
	for i, ep := range eps {
		ids[i] = ep.ID
	}
	return m.statsAgg.Rank(ctx, ids, limit)
}

// Summary returns the latest fleet-wide monitoring summary.
func (m *Monitor) Summary() monitoring.Summary {
	return m.aggregator.Snapshot()
}

// Refresh forces an immediate monitoring refresh. A refresh already in
// flight makes this a no-op.
func (m *Monitor) Refresh(ctx context.Context) error {
	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.StartRefreshSpan(ctx)
		defer span.End()
	}
	return m.aggregator.Refresh(ctx)
}

// On subscribes a handler to a monitoring topic and returns the token
// for Off. Handlers run synchronously on the publisher's goroutine.
func (m *Monitor) On(topic monitoring.Topic, h monitoring.Handler) monitoring.Subscription {
	return m.hub.On(topic, h)
}

// Off removes a subscription.
func (m *Monitor) Off(topic monitoring.Topic, sub monitoring.Subscription) {
	m.hub.Off(topic, sub)
}

// Endpoints returns the endpoint management service.
func (m *Monitor) Endpoints() *endpoint.Service {
	return m.endpointSvc
}

// Store returns the underlying store.
func (m *Monitor) Store() store.Store {
	return m.store
}
