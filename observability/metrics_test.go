package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.DeliveriesTotal == nil {
		t.Fatal("DeliveriesTotal should not be nil")
	}
	if m.DeliveryLatency == nil {
		t.Fatal("DeliveryLatency should not be nil")
	}
	if m.RefreshesTotal == nil {
		t.Fatal("RefreshesTotal should not be nil")
	}
	if m.ActiveAlerts == nil {
		t.Fatal("ActiveAlerts should not be nil")
	}
	if m.TrackedEndpoints == nil {
		t.Fatal("TrackedEndpoints should not be nil")
	}
}

func TestRecordDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordDelivery("success", 0.5)
	m.RecordDelivery("success", 1.2)
	m.RecordDelivery("timeout", 30.0)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "hooks_deliveries_total" {
			found = true
			metrics := f.GetMetric()
			if len(metrics) != 2 { // success + timeout
				t.Fatalf("expected 2 label combinations, got %d", len(metrics))
			}
		}
	}
	if !found {
		t.Fatal("hooks_deliveries_total metric not found")
	}
}

func TestRecordRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRefresh(12, 3)
	m.RecordRefresh(12, 4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	expected := map[string]float64{
		"hooks_monitoring_refreshes_total": 2,
		"hooks_tracked_endpoints":          12,
		"hooks_active_alerts":              4,
	}

	for _, f := range families {
		want, ok := expected[f.GetName()]
		if !ok {
			continue
		}
		metric := f.GetMetric()[0]
		var got float64
		if c := metric.GetCounter(); c != nil {
			got = c.GetValue()
		} else {
			got = metric.GetGauge().GetValue()
		}
		if got != want {
			t.Fatalf("%s: expected %f, got %f", f.GetName(), want, got)
		}
		delete(expected, f.GetName())
	}

	if len(expected) > 0 {
		t.Fatalf("metrics not found: %v", expected)
	}
}
