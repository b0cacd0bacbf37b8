package telemetry

import "testing"

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test", "go1.23")
	if m == nil || m.Registry == nil {
		t.Fatal("NewMetrics returned a nil instance or registry")
	}
}

func TestMetricsIsolation(t *testing.T) {
	m1 := NewMetrics("0.1.0", "go1.23")
	m2 := NewMetrics("0.2.0", "go1.23")

	m1.PacketsDroppedTotal.WithLabelValues(ReasonTTL).Inc()

	families, err := m2.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "meshcore_packets_dropped_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() != 0 {
					t.Error("m2 registry observed m1's counter value; registries are not isolated")
				}
			}
		}
	}
}

func TestMetricsRecordUsage(t *testing.T) {
	m := NewMetrics("test", "go1.23")
	m.PacketsDroppedTotal.WithLabelValues(ReasonNoRoute).Inc()
	m.PacketsForwardedTotal.Inc()
	m.PacketsDeliveredLocal.Inc()
	m.RebroadcastsTotal.Inc()
	m.RebroadcastsSuppressed.Inc()
	m.PingRTTSeconds.Observe(0.02)
	m.NeighborCount.Set(3)
	m.RoleTransitionsTotal.WithLabelValues("STORAGE_NODE", TransitionAdd).Inc()
	m.ActiveRoles.WithLabelValues("STORAGE_NODE").Set(1)
	m.MeshActiveGateways.Set(2)
	m.MeshActiveStorage.Set(1)
	m.MeshActiveCompute.Set(0)
	m.MeshTotalNodes.Set(10)

	if _, err := m.Registry.Gather(); err != nil {
		t.Fatalf("Gather after recording usage: %v", err)
	}
}
