package intelligence

import (
	"testing"
	"time"

	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

func TestObserveNodeAnnouncementCountsRoles(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := New(3*time.Second, 7, func() time.Time { return now })

	a.ObserveNodeAnnouncement(&mmcp.NodeAnnouncementMessage{NodeID: "n1", SentTime: 1, Roles: []mmcp.Role{mmcp.RoleStorageNode}})
	a.ObserveNodeAnnouncement(&mmcp.NodeAnnouncementMessage{NodeID: "n2", SentTime: 1, Roles: []mmcp.Role{mmcp.RoleClearnetGateway}})

	mi := a.Snapshot()
	if mi.TotalNodes != 2 {
		t.Errorf("TotalNodes = %d, want 2", mi.TotalNodes)
	}
	if mi.ActiveStorageNodes != 1 {
		t.Errorf("ActiveStorageNodes = %d, want 1", mi.ActiveStorageNodes)
	}
	if mi.ActiveGateways != 1 {
		t.Errorf("ActiveGateways = %d, want 1", mi.ActiveGateways)
	}
}

func TestObserveNodeAnnouncementDedupesBySentTime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := New(3*time.Second, 7, func() time.Time { return now })

	a.ObserveNodeAnnouncement(&mmcp.NodeAnnouncementMessage{NodeID: "n1", SentTime: 1, Roles: []mmcp.Role{mmcp.RoleStorageNode}})
	a.ObserveNodeAnnouncement(&mmcp.NodeAnnouncementMessage{NodeID: "n1", SentTime: 1, Roles: []mmcp.Role{mmcp.RoleStorageNode, mmcp.RoleComputeNode}})

	mi := a.Snapshot()
	if mi.TotalNodes != 1 || mi.ActiveComputeNodes != 0 {
		t.Errorf("duplicate (nodeId,sentTime) should have been ignored: %+v", mi)
	}
}

func TestSweepRemovesStaleEntries(t *testing.T) {
	cur := time.Unix(1_700_000_000, 0)
	a := New(3*time.Second, 7, func() time.Time { return cur })

	a.ObserveNodeAnnouncement(&mmcp.NodeAnnouncementMessage{NodeID: "n1", SentTime: 1})
	if mi := a.Snapshot(); mi.TotalNodes != 1 {
		t.Fatalf("TotalNodes = %d, want 1 before decay", mi.TotalNodes)
	}

	cur = cur.Add(43 * time.Second) // > 2*3s*7 = 42s
	a.Sweep()

	if mi := a.Snapshot(); mi.TotalNodes != 0 {
		t.Errorf("TotalNodes = %d, want 0 after decay window elapsed", mi.TotalNodes)
	}
}

func TestNeedsMoreThresholds(t *testing.T) {
	mi := MeshIntelligence{TotalNodes: 10, ActiveGateways: 1, ActiveStorageNodes: 1, ActiveComputeNodes: 1}
	if !mi.NeedsMoreGateways() {
		t.Error("1/10 gateways should need more (threshold 0.2)")
	}
	if !mi.NeedsMoreStorage() {
		t.Error("1/10 storage should need more (threshold 0.3)")
	}
	if !mi.NeedsMoreCompute() {
		t.Error("1/10 compute should need more (threshold 0.25)")
	}

	saturated := MeshIntelligence{TotalNodes: 10, ActiveGateways: 5, ActiveStorageNodes: 5, ActiveComputeNodes: 5}
	if saturated.NeedsMoreGateways() || saturated.NeedsMoreStorage() || saturated.NeedsMoreCompute() {
		t.Error("saturated mesh should not need more of any role")
	}

	overloaded := MeshIntelligence{TotalNodes: 10, ActiveGateways: 5, NetworkLoad: 0.9}
	if !overloaded.NeedsMoreGateways() {
		t.Error("high network load should force needsMoreGateways regardless of count")
	}
}

func TestObserveNetworkMetricsFeedsLoadAverage(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := New(3*time.Second, 7, func() time.Time { return now })

	a.ObserveNetworkMetrics(&mmcp.NetworkMetricsMessage{NodeID: "n1", NetworkLoad: 0.4})
	a.ObserveNetworkMetrics(&mmcp.NetworkMetricsMessage{NodeID: "n2", NetworkLoad: 0.8})

	mi := a.Snapshot()
	if mi.NetworkLoad < 0.59 || mi.NetworkLoad > 0.61 {
		t.Errorf("NetworkLoad = %v, want ~0.6", mi.NetworkLoad)
	}
}
