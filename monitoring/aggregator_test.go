package monitoring_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/health"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/internal/entity"
	"github.com/VersatilVC/organize-prime-sub010/monitoring"
	"github.com/VersatilVC/organize-prime-sub010/stats"
	"github.com/VersatilVC/organize-prime-sub010/store/memory"
)

var fixedNow = time.Date(2026, 8, 20, 15, 30, 0, 0, time.UTC)

type fixture struct {
	store *memory.Store
	hub   *monitoring.Hub
	agg   *monitoring.Aggregator
}

func newFixture(t *testing.T, wrap func(delivery.Store) delivery.Store, opts ...monitoring.AggregatorOption) *fixture {
	t.Helper()

	store := memory.New()
	var log delivery.Store = store
	if wrap != nil {
		log = wrap(store)
	}
	sa := stats.NewAggregator(log, stats.WithNow(func() time.Time { return fixedNow }))
	hub := monitoring.NewHub()
	opts = append(opts, monitoring.WithClock(func() time.Time { return fixedNow }))
	agg := monitoring.NewAggregator(store, health.NewService(log, sa), sa, hub, opts...)
	return &fixture{store: store, hub: hub, agg: agg}
}

func (f *fixture) addEndpoint(t *testing.T, name string, active bool) *endpoint.Endpoint {
	t.Helper()
	ep := &endpoint.Endpoint{
		Entity:   entity.New(),
		ID:       id.NewWebhookID(),
		Name:     name,
		URL:      "https://example.com/" + name,
		IsActive: active,
	}
	if err := f.store.CreateEndpoint(context.Background(), ep); err != nil {
		t.Fatal(err)
	}
	return ep
}

func (f *fixture) addEvent(t *testing.T, wh id.ID, st delivery.Status, latencyMs int) {
	t.Helper()
	if _, err := f.store.AppendEvent(context.Background(), &delivery.Event{
		WebhookID:      wh,
		Status:         st,
		ResponseTimeMs: latencyMs,
		TriggeredAt:    fixedNow.Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRefreshBuildsSummary(t *testing.T) {
	f := newFixture(t, nil)

	good := f.addEndpoint(t, "good", true)
	slow := f.addEndpoint(t, "slow", true)
	f.addEndpoint(t, "disabled", false)

	// good: 100% success at 100ms.
	f.addEvent(t, good.ID, delivery.StatusSuccess, 100)
	f.addEvent(t, good.ID, delivery.StatusSuccess, 100)
	// slow: 50% success at 300ms.
	f.addEvent(t, slow.ID, delivery.StatusSuccess, 300)
	f.addEvent(t, slow.ID, delivery.StatusFailed, 0)

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	s := f.agg.Snapshot()

	if s.TotalEndpoints != 3 || s.ActiveEndpoints != 2 {
		t.Fatalf("counts = %d/%d, want 3/2", s.TotalEndpoints, s.ActiveEndpoints)
	}
	// Union: 3 of 4 deliveries succeeded.
	if s.SuccessRate24h != 75 {
		t.Fatalf("union success rate = %d, want 75", s.SuccessRate24h)
	}
	// Mean of per-endpoint averages: (100 + 300) / 2.
	if s.AvgResponseTimeMs != 200 {
		t.Fatalf("avg = %d, want 200", s.AvgResponseTimeMs)
	}
	if !s.RefreshedAt.Equal(fixedNow) {
		t.Fatalf("refreshed at %v", s.RefreshedAt)
	}
	if len(s.Trend) != stats.DefaultTrendDays {
		t.Fatalf("trend length = %d", len(s.Trend))
	}
	if len(s.TopPerformers) != 3 {
		t.Fatalf("top performers = %d, want 3", len(s.TopPerformers))
	}
	if s.TopPerformers[0].WebhookID != good.ID {
		t.Fatalf("expected %q first, got %q", good.Name, s.TopPerformers[0].Name)
	}
	// slow's 50% error rate fires an alert; disabled scores lowest.
	if s.TopPerformers[2].Status != health.StatusInactive {
		t.Fatalf("expected disabled endpoint last, got %+v", s.TopPerformers[2])
	}
	if s.ActiveAlerts == 0 {
		t.Fatal("expected at least one active alert")
	}
}

func TestTopPerformersCapped(t *testing.T) {
	f := newFixture(t, nil, monitoring.WithTopPerformers(2))
	for _, name := range []string{"a", "b", "c", "d"} {
		ep := f.addEndpoint(t, name, true)
		f.addEvent(t, ep.ID, delivery.StatusSuccess, 100)
	}

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(f.agg.Snapshot().TopPerformers); got != 2 {
		t.Fatalf("expected cap of 2, got %d", got)
	}
}

func TestMetricsReturnsCopies(t *testing.T) {
	f := newFixture(t, nil)
	ep := f.addEndpoint(t, "a", true)
	f.addEvent(t, ep.ID, delivery.StatusFailed, 0)

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	m, ok := f.agg.Metrics(ep.ID)
	if !ok {
		t.Fatal("expected metrics for tracked endpoint")
	}
	m.HealthScore = -1
	if len(m.Alerts) > 0 {
		m.Alerts[0].Severity = "tampered"
	}

	again, _ := f.agg.Metrics(ep.ID)
	if again.HealthScore == -1 {
		t.Fatal("mutating a returned record leaked into the aggregator")
	}
	for _, a := range again.Alerts {
		if a.Severity == "tampered" {
			t.Fatal("mutating a returned alert leaked into the aggregator")
		}
	}

	if _, ok := f.agg.Metrics(id.NewWebhookID()); ok {
		t.Fatal("expected no metrics for unknown endpoint")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	f := newFixture(t, nil)
	ep := f.addEndpoint(t, "a", true)
	f.addEvent(t, ep.ID, delivery.StatusSuccess, 100)

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	s := f.agg.Snapshot()
	s.TopPerformers[0].HealthScore = -1

	if f.agg.Snapshot().TopPerformers[0].HealthScore == -1 {
		t.Fatal("snapshot shares state with the aggregator")
	}
}

func TestRefreshPublishesMetricsUpdated(t *testing.T) {
	f := newFixture(t, nil)
	f.addEndpoint(t, "a", true)

	var published []monitoring.Summary
	f.hub.On(monitoring.TopicMetricsUpdated, func(payload any) {
		published = append(published, payload.(monitoring.Summary))
	})

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(published) != 1 || published[0].TotalEndpoints != 1 {
		t.Fatalf("expected one metrics_updated with the summary, got %v", published)
	}
}

func TestAlertTriggeredOnChangeOnly(t *testing.T) {
	f := newFixture(t, nil)
	ep := f.addEndpoint(t, "a", true)
	f.addEvent(t, ep.ID, delivery.StatusFailed, 0)

	fired := 0
	f.hub.On(monitoring.TopicAlertTriggered, func(payload any) {
		fired++
		m := payload.(*health.Metrics)
		if m.WebhookID != ep.ID {
			t.Errorf("alert for wrong endpoint: %v", m.WebhookID)
		}
	})

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("expected alert_triggered on first refresh, got %d", fired)
	}

	// Same alert set again: no re-publication.
	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("unchanged alerts must not re-fire, got %d", fired)
	}
}

// gatedStore blocks QueryEvents until released, to hold a refresh open.
type gatedStore struct {
	delivery.Store
	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (g *gatedStore) QueryEvents(ctx context.Context, f delivery.Filter) ([]*delivery.Event, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	return g.Store.QueryEvents(ctx, f)
}

func TestRefreshCoalesces(t *testing.T) {
	gated := &gatedStore{
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	f := newFixture(t, func(s delivery.Store) delivery.Store {
		gated.Store = s
		return gated
	})
	f.addEndpoint(t, "a", true)

	refreshes := 0
	f.hub.On(monitoring.TopicMetricsUpdated, func(any) { refreshes++ })

	done := make(chan error, 1)
	go func() { done <- f.agg.Refresh(context.Background()) }()

	// Wait until the first refresh is inside the store, then overlap it.
	<-gated.entered
	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	close(gated.gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if refreshes != 1 {
		t.Fatalf("overlapping refresh must be skipped, got %d completions", refreshes)
	}
}

// flakyStore fails queries for one webhook ID.
type flakyStore struct {
	delivery.Store
	failFor id.ID
	broken  bool
}

func (f *flakyStore) QueryEvents(ctx context.Context, flt delivery.Filter) ([]*delivery.Event, error) {
	if f.broken && flt.WebhookID == f.failFor {
		return nil, errors.New("backend unavailable")
	}
	return f.Store.QueryEvents(ctx, flt)
}

func TestRefreshKeepsPreviousMetricsOnEndpointError(t *testing.T) {
	flaky := &flakyStore{}
	f := newFixture(t, func(s delivery.Store) delivery.Store {
		flaky.Store = s
		return flaky
	})
	ep := f.addEndpoint(t, "a", true)
	f.addEvent(t, ep.ID, delivery.StatusSuccess, 100)

	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, ok := f.agg.Metrics(ep.ID)
	if !ok {
		t.Fatal("expected metrics after first refresh")
	}

	flaky.failFor = ep.ID
	flaky.broken = true
	if err := f.agg.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	after, ok := f.agg.Metrics(ep.ID)
	if !ok {
		t.Fatal("metrics dropped after a transient store error")
	}
	if after.HealthScore != before.HealthScore || after.TotalTriggers != before.TotalTriggers {
		t.Fatalf("expected previous metrics kept, got %+v", after)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t, nil, monitoring.WithRefreshInterval(10*time.Millisecond))
	ep := f.addEndpoint(t, "a", true)
	f.addEvent(t, ep.ID, delivery.StatusSuccess, 100)

	if err := f.agg.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Start performs an initial refresh synchronously.
	if _, ok := f.agg.Metrics(ep.ID); !ok {
		t.Fatal("expected metrics after Start")
	}
	f.agg.Stop()
	f.agg.Stop() // idempotent
}
