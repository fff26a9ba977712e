package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/stats"
	"github.com/VersatilVC/organize-prime-sub010/store/memory"
)

var fixedNow = time.Date(2026, 8, 20, 15, 30, 0, 0, time.UTC)

func ctx() context.Context { return context.Background() }

func newAggregator(s *memory.Store) *stats.Aggregator {
	return stats.NewAggregator(s, stats.WithNow(func() time.Time { return fixedNow }))
}

func appendEvent(t *testing.T, s *memory.Store, wh id.ID, st delivery.Status, latencyMs int, at time.Time) {
	t.Helper()
	if _, err := s.AppendEvent(ctx(), &delivery.Event{
		WebhookID:      wh,
		EventType:      "feedback.created",
		Status:         st,
		ResponseTimeMs: latencyMs,
		TriggeredAt:    at,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestComputeEmptyWindow(t *testing.T) {
	s := memory.New()
	agg := newAggregator(s)

	got, err := agg.Compute(ctx(), id.NewWebhookID(), stats.Window24h)
	if err != nil {
		t.Fatal(err)
	}

	if got.Total != 0 {
		t.Fatalf("expected total 0, got %d", got.Total)
	}
	if got.SuccessRate != 0 {
		t.Fatalf("zero triggers must yield success rate 0, got %d", got.SuccessRate)
	}
	if got.AvgResponseTimeMs != 0 {
		t.Fatalf("zero triggers must yield avg 0, got %d", got.AvgResponseTimeMs)
	}
}

func TestComputeCountsAndRates(t *testing.T) {
	s := memory.New()
	wh := id.NewWebhookID()
	in := fixedNow.Add(-time.Hour)

	// 95 successful at 300ms, 5 failed → Scenario A.
	for i := 0; i < 95; i++ {
		appendEvent(t, s, wh, delivery.StatusSuccess, 300, in)
	}
	for i := 0; i < 5; i++ {
		appendEvent(t, s, wh, delivery.StatusFailed, 0, in)
	}

	got, err := newAggregator(s).Compute(ctx(), wh, stats.Window24h)
	if err != nil {
		t.Fatal(err)
	}

	if got.Total != 100 || got.Successful != 95 || got.Failed != 5 || got.Timeouts != 0 {
		t.Fatalf("unexpected counts: %+v", got)
	}
	if got.SuccessRate != 95 {
		t.Fatalf("success rate = %d, want 95", got.SuccessRate)
	}
	if got.AvgResponseTimeMs != 300 {
		t.Fatalf("avg = %d, want 300", got.AvgResponseTimeMs)
	}
	if got.ErrorRate() != 5.0 {
		t.Fatalf("error rate = %v, want 5.0", got.ErrorRate())
	}
}

func TestComputeAvgOverSuccessfulOnly(t *testing.T) {
	s := memory.New()
	wh := id.NewWebhookID()
	in := fixedNow.Add(-time.Minute)

	appendEvent(t, s, wh, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, wh, delivery.StatusSuccess, 200, in)
	// A slow failure must not drag the average.
	appendEvent(t, s, wh, delivery.StatusFailed, 9000, in)

	got, err := newAggregator(s).Compute(ctx(), wh, stats.Window1h)
	if err != nil {
		t.Fatal(err)
	}
	if got.AvgResponseTimeMs != 150 {
		t.Fatalf("avg = %d, want 150 (successful events only)", got.AvgResponseTimeMs)
	}
}

func TestComputeWindowBoundary(t *testing.T) {
	s := memory.New()
	wh := id.NewWebhookID()

	appendEvent(t, s, wh, delivery.StatusSuccess, 100, fixedNow.Add(-30*time.Minute)) // inside 1h
	appendEvent(t, s, wh, delivery.StatusSuccess, 100, fixedNow.Add(-2*time.Hour))    // outside 1h, inside 6h

	agg := newAggregator(s)

	oneHour, err := agg.Compute(ctx(), wh, stats.Window1h)
	if err != nil {
		t.Fatal(err)
	}
	if oneHour.Total != 1 {
		t.Fatalf("1h total = %d, want 1", oneHour.Total)
	}

	sixHours, err := agg.Compute(ctx(), wh, stats.Window6h)
	if err != nil {
		t.Fatal(err)
	}
	if sixHours.Total != 2 {
		t.Fatalf("6h total = %d, want 2", sixHours.Total)
	}
}

func TestComputeIsolatesWebhooks(t *testing.T) {
	s := memory.New()
	mine := id.NewWebhookID()
	other := id.NewWebhookID()
	in := fixedNow.Add(-time.Minute)

	appendEvent(t, s, mine, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, other, delivery.StatusFailed, 0, in)

	got, err := newAggregator(s).Compute(ctx(), mine, stats.Window24h)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != 1 || got.Failed != 0 {
		t.Fatalf("events leaked across webhooks: %+v", got)
	}
}

func TestTrendDayBuckets(t *testing.T) {
	s := memory.New()
	wh := id.NewWebhookID()

	today := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	appendEvent(t, s, wh, delivery.StatusSuccess, 100, today.Add(10*time.Hour))
	appendEvent(t, s, wh, delivery.StatusFailed, 0, yesterday.Add(23*time.Hour))
	// Midnight belongs to today's bucket: intervals are half-open.
	appendEvent(t, s, wh, delivery.StatusSuccess, 50, today)

	points, err := newAggregator(s).Trend(ctx(), wh, 7)
	if err != nil {
		t.Fatal(err)
	}

	if len(points) != 7 {
		t.Fatalf("expected 7 buckets, got %d", len(points))
	}
	if !points[0].Day.Equal(today.AddDate(0, 0, -6)) {
		t.Fatalf("oldest bucket = %v", points[0].Day)
	}
	last := points[6]
	if !last.Day.Equal(today) {
		t.Fatalf("newest bucket = %v, want today", last.Day)
	}
	if last.Stats.Total != 2 || last.Stats.Successful != 2 {
		t.Fatalf("today's bucket = %+v, want both successes", last.Stats)
	}
	if points[5].Stats.Total != 1 || points[5].Stats.Failed != 1 {
		t.Fatalf("yesterday's bucket = %+v", points[5].Stats)
	}
}

func TestTrendDefaultLookback(t *testing.T) {
	points, err := newAggregator(memory.New()).Trend(ctx(), id.Nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != stats.DefaultTrendDays {
		t.Fatalf("expected %d buckets, got %d", stats.DefaultTrendDays, len(points))
	}
}

func TestRankDeterministicOrder(t *testing.T) {
	s := memory.New()
	in := fixedNow.Add(-time.Hour)

	busy := id.NewWebhookID()
	reliable := id.NewWebhookID()
	flaky := id.NewWebhookID()

	// busy: 3 triggers, 67% success.
	appendEvent(t, s, busy, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, busy, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, busy, delivery.StatusFailed, 0, in)
	// reliable: 2 triggers, 100% success.
	appendEvent(t, s, reliable, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, reliable, delivery.StatusSuccess, 100, in)
	// flaky: 2 triggers, 50% success.
	appendEvent(t, s, flaky, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, flaky, delivery.StatusFailed, 0, in)

	got, err := newAggregator(s).Rank(ctx(), []id.ID{flaky, busy, reliable}, 0)
	if err != nil {
		t.Fatal(err)
	}

	if got[0].WebhookID != busy {
		t.Fatalf("expected highest trigger count first, got %v", got[0])
	}
	// Tie on trigger count broken by success rate.
	if got[1].WebhookID != reliable || got[2].WebhookID != flaky {
		t.Fatalf("tie not broken by success rate: %v, %v", got[1], got[2])
	}
}

func TestRankTieBrokenByID(t *testing.T) {
	s := memory.New()
	in := fixedNow.Add(-time.Hour)

	a := id.NewWebhookID()
	b := id.NewWebhookID()
	appendEvent(t, s, a, delivery.StatusSuccess, 100, in)
	appendEvent(t, s, b, delivery.StatusSuccess, 100, in)

	first, err := newAggregator(s).Rank(ctx(), []id.ID{a, b}, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newAggregator(s).Rank(ctx(), []id.ID{b, a}, 0)
	if err != nil {
		t.Fatal(err)
	}

	if first[0].WebhookID != second[0].WebhookID {
		t.Fatal("ranking depends on input order; expected ID tiebreak")
	}
	if first[0].WebhookID.String() > first[1].WebhookID.String() {
		t.Fatal("expected ascending ID tiebreak")
	}
}

func TestRankLimit(t *testing.T) {
	s := memory.New()
	in := fixedNow.Add(-time.Hour)
	ids := []id.ID{id.NewWebhookID(), id.NewWebhookID(), id.NewWebhookID()}
	for _, whID := range ids {
		appendEvent(t, s, whID, delivery.StatusSuccess, 100, in)
	}

	got, err := newAggregator(s).Rank(ctx(), ids, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}
