// Package health derives endpoint health from delivery statistics: a
// deterministic 0–100 score, a status classification, threshold alerts,
// and the assembled per-endpoint metrics record.
//
// Scoring and alerting are pure functions of their inputs. Identical
// stats always yield identical scores, statuses, and alerts; nothing in
// this package persists state between evaluations.
package health

import "github.com/VersatilVC/organize-prime-sub010/stats"

// Status classifies an endpoint's overall health.
type Status string

const (
	// StatusHealthy means the endpoint is active with a score of 90+.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the endpoint is active with a score of 70–89.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means the endpoint is active with a score below 70.
	StatusUnhealthy Status = "unhealthy"

	// StatusInactive means the endpoint is disabled, regardless of score.
	StatusInactive Status = "inactive"
)

// Score computes the 0–100 health score from activity and trailing-7d
// stats. Deductions apply at most once per category, taking the highest
// threshold exceeded rather than stacking within a category:
//
//	inactive                  −50
//	error rate  >20 / >10 / >5   −30 / −15 / −5
//	avg latency >5s / >2s / >1s  −20 / −10 / −5
//	zero triggers             −20
//
// The result is clamped to [0,100].
func Score(active bool, s stats.WindowStats) int {
	score := 100

	if !active {
		score -= 50
	}

	switch errRate := s.ErrorRate(); {
	case errRate > 20:
		score -= 30
	case errRate > 10:
		score -= 15
	case errRate > 5:
		score -= 5
	}

	switch avg := s.AvgResponseTimeMs; {
	case avg > 5000:
		score -= 20
	case avg > 2000:
		score -= 10
	case avg > 1000:
		score -= 5
	}

	if s.Total == 0 {
		score -= 20
	}

	return clamp(score)
}

// StatusFor classifies an endpoint from its activity flag and score.
// Inactivity wins over any score.
func StatusFor(active bool, score int) Status {
	switch {
	case !active:
		return StatusInactive
	case score >= 90:
		return StatusHealthy
	case score >= 70:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
