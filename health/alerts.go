package health

import (
	"fmt"

	"github.com/VersatilVC/organize-prime-sub010/stats"
)

// AlertType names the condition an alert reports.
type AlertType string

const (
	// AlertHighErrorRate fires when the error rate exceeds 10%.
	AlertHighErrorRate AlertType = "high_error_rate"

	// AlertSlowResponse fires when average latency exceeds 2s.
	AlertSlowResponse AlertType = "slow_response"

	// AlertFrequentTimeouts fires when the timeout rate exceeds 10%.
	AlertFrequentTimeouts AlertType = "frequent_timeouts"

	// AlertNoActivity fires when an active endpoint recorded no triggers.
	AlertNoActivity AlertType = "no_activity"
)

// Severity ranks how urgent an alert is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is one derived alert condition. Alerts carry no identity or
// acknowledgement state; they are recomputed fresh on every evaluation.
type Alert struct {
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Evaluate derives the active alerts for an endpoint from its activity
// flag and trailing-window stats. Thresholds are strict: a rate sitting
// exactly on a boundary does not fire. Multiple alerts may coexist.
func Evaluate(active bool, s stats.WindowStats) []Alert {
	var alerts []Alert

	switch errRate := s.ErrorRate(); {
	case errRate > 20:
		alerts = append(alerts, Alert{
			Type:     AlertHighErrorRate,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("error rate at %.1f%%, above 20%%", errRate),
		})
	case errRate > 10:
		alerts = append(alerts, Alert{
			Type:     AlertHighErrorRate,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("error rate at %.1f%%, above 10%%", errRate),
		})
	}

	switch avg := s.AvgResponseTimeMs; {
	case avg > 5000:
		alerts = append(alerts, Alert{
			Type:     AlertSlowResponse,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("average response time at %dms, above 5000ms", avg),
		})
	case avg > 2000:
		alerts = append(alerts, Alert{
			Type:     AlertSlowResponse,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("average response time at %dms, above 2000ms", avg),
		})
	}

	if rate := s.TimeoutRate(); rate > 10 {
		alerts = append(alerts, Alert{
			Type:     AlertFrequentTimeouts,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("timeout rate at %.1f%%, above 10%%", rate),
		})
	}

	if s.Total == 0 && active {
		alerts = append(alerts, Alert{
			Type:     AlertNoActivity,
			Severity: SeverityLow,
			Message:  "no deliveries recorded in the window",
		})
	}

	return alerts
}
