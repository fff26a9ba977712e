package health

import (
	"context"
	"fmt"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/stats"
)

// Metrics is the assembled health record for one endpoint. It is derived
// on demand and never persisted.
type Metrics struct {
	// WebhookID identifies the endpoint these metrics describe.
	WebhookID id.ID `json:"webhook_id"`

	// UptimePercentage is the trailing-7d success rate, 0–100.
	UptimePercentage int `json:"uptime_percentage"`

	// AvgResponseTimeMs is the trailing-7d mean latency over successes.
	AvgResponseTimeMs int `json:"avg_response_time_ms"`

	// ErrorRate is the trailing-7d (failed+timeouts)/total percentage.
	ErrorRate float64 `json:"error_rate"`

	// LastSuccess is when the most recent successful delivery happened.
	LastSuccess *time.Time `json:"last_success,omitempty"`

	// LastFailure is when the most recent failed or timed-out delivery
	// happened.
	LastFailure *time.Time `json:"last_failure,omitempty"`

	// TotalTriggers counts delivery attempts over the trailing 7 days.
	TotalTriggers int64 `json:"total_triggers"`

	// HealthScore is the 0–100 composite score.
	HealthScore int `json:"health_score"`

	// Status classifies the endpoint from activity and score.
	Status Status `json:"status"`

	// Alerts lists the currently firing alert conditions.
	Alerts []Alert `json:"alerts"`
}

// Service assembles Metrics for endpoints from the delivery log.
type Service struct {
	log delivery.Store
	agg *stats.Aggregator
}

// NewService creates a health Service over the given log store and
// stats aggregator.
func NewService(log delivery.Store, agg *stats.Aggregator) *Service {
	return &Service{log: log, agg: agg}
}

// Metrics computes the full health record for one endpoint. A log-store
// failure propagates; the record is never silently zeroed, since empty
// stats would misreport the endpoint as inactive-but-clean.
func (s *Service) Metrics(ctx context.Context, ep *endpoint.Endpoint) (*Metrics, error) {
	week, err := s.agg.Compute(ctx, ep.ID, stats.Window7d)
	if err != nil {
		return nil, fmt.Errorf("health: compute stats for %s: %w", ep.ID, err)
	}

	lastSuccess, err := s.lastEvent(ctx, ep.ID, delivery.StatusSuccess)
	if err != nil {
		return nil, err
	}
	lastFailure, err := s.lastEvent(ctx, ep.ID, delivery.StatusFailed, delivery.StatusTimeout)
	if err != nil {
		return nil, err
	}

	score := Score(ep.IsActive, week)

	return &Metrics{
		WebhookID:         ep.ID,
		UptimePercentage:  week.SuccessRate,
		AvgResponseTimeMs: week.AvgResponseTimeMs,
		ErrorRate:         week.ErrorRate(),
		LastSuccess:       lastSuccess,
		LastFailure:       lastFailure,
		TotalTriggers:     week.Total,
		HealthScore:       score,
		Status:            StatusFor(ep.IsActive, score),
		Alerts:            Evaluate(ep.IsActive, week),
	}, nil
}

// lastEvent returns the TriggeredAt of the most recent event with one of
// the given statuses, or nil if none exists.
func (s *Service) lastEvent(ctx context.Context, webhookID id.ID, statuses ...delivery.Status) (*time.Time, error) {
	events, err := s.log.QueryEvents(ctx, delivery.Filter{
		WebhookID: webhookID,
		Statuses:  statuses,
		Limit:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("health: query last event for %s: %w", webhookID, err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	at := events[0].TriggeredAt
	return &at, nil
}
