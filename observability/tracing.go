package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/VersatilVC/organize-prime-sub010"

// Tracer provides OpenTelemetry spans for delivery calls and monitoring
// refreshes.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer backed by the global otel provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName)}
}

// StartDeliverySpan starts a span covering one delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, webhookID, eventType string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hooks.delivery",
		trace.WithAttributes(
			attribute.String("hooks.webhook_id", webhookID),
			attribute.String("hooks.event_type", eventType),
		),
	)
}

// EndDeliverySpan ends a delivery span with the classified result.
func (t *Tracer) EndDeliverySpan(span trace.Span, status string, statusCode, latencyMs int, errMsg string) {
	span.SetAttributes(
		attribute.String("hooks.status", status),
		attribute.Int("http.status_code", statusCode),
		attribute.Int("hooks.latency_ms", latencyMs),
	)
	if errMsg != "" {
		span.SetAttributes(attribute.String("hooks.error", errMsg))
	}
	span.End()
}

// StartRefreshSpan starts a span covering one monitoring refresh cycle.
func (t *Tracer) StartRefreshSpan(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hooks.monitoring.refresh")
}
