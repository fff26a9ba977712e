package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/id"
)

// DefaultTrendDays is the trend-series lookback when none is given.
const DefaultTrendDays = 7

// Aggregator derives WindowStats, trends, and rankings from a delivery
// log store.
type Aggregator struct {
	store delivery.Store
	now   func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithNow overrides the clock. Used by tests to pin window boundaries.
func WithNow(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an Aggregator over the given log store.
func NewAggregator(store delivery.Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute returns the stats for one endpoint over the trailing window.
func (a *Aggregator) Compute(ctx context.Context, webhookID id.ID, w Window) (WindowStats, error) {
	from := a.now().Add(-w.Duration())
	return a.computeRange(ctx, webhookID, w, &from, nil)
}

// computeRange aggregates events for [from, to) into WindowStats.
func (a *Aggregator) computeRange(ctx context.Context, webhookID id.ID, w Window, from, to *time.Time) (WindowStats, error) {
	events, err := a.store.QueryEvents(ctx, delivery.Filter{
		WebhookID: webhookID,
		From:      from,
		To:        to,
	})
	if err != nil {
		return WindowStats{}, fmt.Errorf("stats: query events: %w", err)
	}
	return Aggregate(w, events), nil
}

// Aggregate folds a slice of delivery events into WindowStats. Pure.
func Aggregate(w Window, events []*delivery.Event) WindowStats {
	s := WindowStats{Window: w, Total: int64(len(events))}

	var latencySum int64
	for _, evt := range events {
		switch evt.Status {
		case delivery.StatusSuccess:
			s.Successful++
			latencySum += int64(evt.ResponseTimeMs)
		case delivery.StatusTimeout:
			s.Timeouts++
		default:
			s.Failed++
		}
	}

	s.SuccessRate = roundRate(s.Successful, s.Total)
	if s.Successful > 0 {
		s.AvgResponseTimeMs = int(math.Round(float64(latencySum) / float64(s.Successful)))
	}
	return s
}

// TrendPoint is one day bucket of a trend series.
type TrendPoint struct {
	// Day is the bucket's start of day, UTC.
	Day time.Time `json:"day"`

	// Stats covers the half-open interval [Day, Day+24h).
	Stats WindowStats `json:"stats"`
}

// Trend returns a day-bucketed series over the trailing lookback,
// oldest bucket first. Buckets are fixed half-open day intervals
// [start_of_day, end_of_day). A non-positive days uses DefaultTrendDays.
// Passing the nil ID covers all endpoints.
func (a *Aggregator) Trend(ctx context.Context, webhookID id.ID, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}

	today := startOfDay(a.now().UTC())
	points := make([]TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		dayStart := today.AddDate(0, 0, -i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		s, err := a.computeRange(ctx, webhookID, Window24h, &dayStart, &dayEnd)
		if err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{Day: dayStart, Stats: s})
	}
	return points, nil
}

// Ranked is one entry of a top-N ranking.
type Ranked struct {
	// WebhookID identifies the ranked endpoint.
	WebhookID id.ID `json:"webhook_id"`

	// TriggerCount is the endpoint's delivery attempts over trailing 24h.
	TriggerCount int64 `json:"trigger_count"`

	// SuccessRate is the endpoint's 24h success rate.
	SuccessRate int `json:"success_rate"`
}

// Rank orders endpoints by trailing-24h trigger count descending, ties
// broken by success rate descending, then by ID ascending so identical
// inputs always rank identically. At most limit entries are returned;
// a non-positive limit returns all.
func (a *Aggregator) Rank(ctx context.Context, webhookIDs []id.ID, limit int) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(webhookIDs))
	for _, whID := range webhookIDs {
		s, err := a.Compute(ctx, whID, Window24h)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{
			WebhookID:    whID,
			TriggerCount: s.Total,
			SuccessRate:  s.SuccessRate,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TriggerCount != ranked[j].TriggerCount {
			return ranked[i].TriggerCount > ranked[j].TriggerCount
		}
		if ranked[i].SuccessRate != ranked[j].SuccessRate {
			return ranked[i].SuccessRate > ranked[j].SuccessRate
		}
		return ranked[i].WebhookID.String() < ranked[j].WebhookID.String()
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// startOfDay truncates t to midnight in its location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
