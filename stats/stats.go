// Package stats computes time-windowed delivery statistics from the
// append-only delivery log: per-window totals and rates, day-bucketed
// trend series, and deterministic top-N endpoint rankings.
//
// All computations are idempotent: the same log contents yield the same
// output on every recomputation. Log-store failures always propagate;
// zeroed stats are never substituted for an error, since that would
// misreport an endpoint as falsely healthy.
package stats

import (
	"math"
	"time"
)

// Window is a trailing time range bounding a stats query.
type Window string

// The supported trailing windows.
const (
	Window1h  Window = "1h"
	Window6h  Window = "6h"
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
)

// Windows lists the supported windows in ascending order.
var Windows = []Window{Window1h, Window6h, Window24h, Window7d, Window30d}

// Duration returns the length of the trailing window.
func (w Window) Duration() time.Duration {
	switch w {
	case Window1h:
		return time.Hour
	case Window6h:
		return 6 * time.Hour
	case Window24h:
		return 24 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	case Window30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Valid reports whether w is one of the supported windows.
func (w Window) Valid() bool {
	switch w {
	case Window1h, Window6h, Window24h, Window7d, Window30d:
		return true
	}
	return false
}

// WindowStats holds derived per-window delivery statistics. It is never
// persisted; it is recomputed from the log on demand.
type WindowStats struct {
	// Window labels the trailing range these stats cover.
	Window Window `json:"window"`

	// Total is the number of delivery attempts in the window.
	Total int64 `json:"total"`

	// Successful counts attempts with status success.
	Successful int64 `json:"successful"`

	// Failed counts attempts with status failed.
	Failed int64 `json:"failed"`

	// Timeouts counts attempts with status timeout.
	Timeouts int64 `json:"timeouts"`

	// SuccessRate is round(successful/total*100), 0 when total is 0.
	SuccessRate int `json:"success_rate"`

	// AvgResponseTimeMs is the rounded mean latency over successful
	// attempts only, 0 when there were none.
	AvgResponseTimeMs int `json:"avg_response_time_ms"`
}

// ErrorRate returns (failed+timeouts)/total*100, 0 when total is 0.
// Unrounded so that threshold comparisons stay boundary-exact.
func (s WindowStats) ErrorRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failed+s.Timeouts) / float64(s.Total) * 100
}

// TimeoutRate returns timeouts/total*100, 0 when total is 0.
func (s WindowStats) TimeoutRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Timeouts) / float64(s.Total) * 100
}

// roundRate converts a numerator/denominator pair into a rounded 0–100
// percentage, defaulting to 0 when the denominator is 0; a webhook with
// no traffic has a 0% success rate, never 100%.
func roundRate(num, den int64) int {
	if den == 0 {
		return 0
	}
	rate := math.Round(float64(num) / float64(den) * 100)
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return int(rate)
}
