// Package hooks provides a webhook reliability and health-scoring engine.
//
// Hooks is a library, not a service. Import it into your application to
// turn an append-only delivery log into per-endpoint health metrics and
// typed alerts, and to run signed, timeout-bounded test calls against
// third-party webhook endpoints with bounded retries.
//
// Key features:
//   - HMAC-SHA256 payload signing ("sha256=<hex>", signature version v1)
//   - Single-attempt caller with hard deadlines and active cancellation
//   - Bounded retry combinator; retries network/timeout failures only
//   - Time-windowed stats (1h/6h/24h/7d/30d), day-bucketed trends, top-N ranking
//   - Deterministic 0–100 health score and threshold-derived alerts
//   - Monitoring aggregator with coalesced refresh, immutable snapshots,
//     and publish/subscribe change notifications
//   - Composable store pattern with multiple backends (Bun, Mongo, Redis, Memory)
//
// Quick start:
//
//	m, err := hooks.New(
//	    hooks.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m.Start(ctx)
//	defer m.Stop()
//
//	res, err := m.Test(ctx, epID, delivery.Payload{
//	    EventType: "feedback.created",
//	    Data:      map[string]any{"id": "fb_123"},
//	})
package hooks
