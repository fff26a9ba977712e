package health_test

import (
	"testing"

	"github.com/VersatilVC/organize-prime-sub010/health"
	"github.com/VersatilVC/organize-prime-sub010/stats"
)

// cleanStats returns stats with enough volume that no deduction applies.
func cleanStats() stats.WindowStats {
	return stats.WindowStats{
		Window:            stats.Window7d,
		Total:             100,
		Successful:        100,
		SuccessRate:       100,
		AvgResponseTimeMs: 300,
	}
}

func TestScoreTable(t *testing.T) {
	tests := []struct {
		name   string
		active bool
		mutate func(*stats.WindowStats)
		want   int
	}{
		{"clean active", true, nil, 100},
		{"inactive deducts 50", false, nil, 50},
		{"error rate 5 exact no deduction", true, func(s *stats.WindowStats) {
			s.Successful, s.Failed = 95, 5
		}, 100},
		{"error rate over 5 deducts 5", true, func(s *stats.WindowStats) {
			s.Successful, s.Failed = 94, 6
		}, 95},
		{"error rate over 10 deducts 15", true, func(s *stats.WindowStats) {
			s.Successful, s.Failed = 89, 11
		}, 85},
		{"error rate over 20 deducts 30 not cumulative", true, func(s *stats.WindowStats) {
			s.Successful, s.Failed = 75, 25
		}, 70},
		{"timeouts count toward error rate", true, func(s *stats.WindowStats) {
			s.Successful, s.Timeouts = 75, 25
		}, 70},
		{"latency over 1000 deducts 5", true, func(s *stats.WindowStats) {
			s.AvgResponseTimeMs = 1001
		}, 95},
		{"latency over 2000 deducts 10", true, func(s *stats.WindowStats) {
			s.AvgResponseTimeMs = 2500
		}, 90},
		{"latency over 5000 deducts 20", true, func(s *stats.WindowStats) {
			s.AvgResponseTimeMs = 6000
		}, 80},
		{"zero triggers deducts 20", true, func(s *stats.WindowStats) {
			*s = stats.WindowStats{Window: stats.Window7d}
		}, 80},
		{"inactive with zero triggers stacks categories", false, func(s *stats.WindowStats) {
			*s = stats.WindowStats{Window: stats.Window7d}
		}, 30},
		{"all categories clamp at zero", false, func(s *stats.WindowStats) {
			s.Successful, s.Failed = 50, 50
			s.AvgResponseTimeMs = 9000
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cleanStats()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			if got := health.Score(tt.active, s); got != tt.want {
				t.Fatalf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreScenarioA(t *testing.T) {
	// 95/100 successful at 300ms: error rate sits exactly on the 5%
	// boundary, so nothing deducts.
	s := stats.WindowStats{
		Window:            stats.Window7d,
		Total:             100,
		Successful:        95,
		Failed:            5,
		SuccessRate:       95,
		AvgResponseTimeMs: 300,
	}
	if got := health.Score(true, s); got != 100 {
		t.Fatalf("Score() = %d, want 100", got)
	}
	if got := health.StatusFor(true, health.Score(true, s)); got != health.StatusHealthy {
		t.Fatalf("StatusFor() = %q, want healthy", got)
	}
}

func TestScoreScenarioB(t *testing.T) {
	// Inactive always takes the −50 regardless of how clean the stats are.
	s := cleanStats()
	if got := health.Score(false, s); got != 50 {
		t.Fatalf("Score() = %d, want 50", got)
	}
	if got := health.StatusFor(false, 95); got != health.StatusInactive {
		t.Fatalf("StatusFor() = %q, inactivity must win over score", got)
	}
}

func TestScoreMonotonicInErrorRate(t *testing.T) {
	prev := 101
	for failed := int64(0); failed <= 100; failed++ {
		s := stats.WindowStats{
			Window:            stats.Window7d,
			Total:             100,
			Successful:        100 - failed,
			Failed:            failed,
			AvgResponseTimeMs: 300,
		}
		got := health.Score(true, s)
		if got > prev {
			t.Fatalf("score increased from %d to %d at failed=%d", prev, got, failed)
		}
		if got < 0 || got > 100 {
			t.Fatalf("score %d out of range at failed=%d", got, failed)
		}
		prev = got
	}
}

func TestScoreMonotonicInLatency(t *testing.T) {
	prev := 101
	for _, avg := range []int{0, 500, 1000, 1001, 2000, 2001, 5000, 5001, 60000} {
		s := cleanStats()
		s.AvgResponseTimeMs = avg
		got := health.Score(true, s)
		if got > prev {
			t.Fatalf("score increased from %d to %d at avg=%d", prev, got, avg)
		}
		prev = got
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := cleanStats()
	s.Successful, s.Failed = 80, 20
	first := health.Score(true, s)
	for i := 0; i < 10; i++ {
		if got := health.Score(true, s); got != first {
			t.Fatalf("identical inputs produced %d then %d", first, got)
		}
	}
}

func TestStatusForThresholds(t *testing.T) {
	tests := []struct {
		active bool
		score  int
		want   health.Status
	}{
		{true, 100, health.StatusHealthy},
		{true, 90, health.StatusHealthy},
		{true, 89, health.StatusDegraded},
		{true, 70, health.StatusDegraded},
		{true, 69, health.StatusUnhealthy},
		{true, 0, health.StatusUnhealthy},
		{false, 100, health.StatusInactive},
		{false, 0, health.StatusInactive},
	}
	for _, tt := range tests {
		if got := health.StatusFor(tt.active, tt.score); got != tt.want {
			t.Errorf("StatusFor(%v, %d) = %q, want %q", tt.active, tt.score, got, tt.want)
		}
	}
}
