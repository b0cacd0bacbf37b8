package role

import (
	"testing"
	"time"

	"github.com/dreadstar/meshrabiya-core/pkg/intelligence"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
	"github.com/dreadstar/meshrabiya-core/pkg/ports"
	"github.com/dreadstar/meshrabiya-core/pkg/telemetry"
)

// gatherValue returns metricName's sample value for the given label
// values (matched positionally against each metric's label pairs, which
// the registry returns sorted by label name), or 0 if no matching series
// has been recorded.
func gatherValue(t *testing.T, metrics *telemetry.Metrics, metricName string, labelValues ...string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != metricName {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := metric.GetLabel()
			if len(labels) != len(labelValues) {
				continue
			}
			match := true
			for i, lv := range labelValues {
				if labels[i].GetValue() != lv {
					match = false
					break
				}
			}
			if !match {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	return 0
}

type fakeAnnouncer struct {
	calls []struct {
		gatewayType mmcp.GatewayType
		isActive    bool
	}
}

func (f *fakeAnnouncer) AnnounceGateway(gatewayType mmcp.GatewayType, isActive bool) {
	f.calls = append(f.calls, struct {
		gatewayType mmcp.GatewayType
		isActive    bool
	}{gatewayType, isActive})
}

type fakeGatewayPort struct {
	enabled  []ports.GatewayMode
	disabled int
}

func (f *fakeGatewayPort) EnableGatewayRouting(mode ports.GatewayMode) error {
	f.enabled = append(f.enabled, mode)
	return nil
}

func (f *fakeGatewayPort) DisableGatewayRouting() error {
	f.disabled++
	return nil
}

func TestMachineAnnouncedPromotesToActiveAfterWindow(t *testing.T) {
	m := NewMachine(ports.NopLogger{}, nil, nil, nil)
	now := time.Unix(1_700_000_000, 0)

	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleStorageNode}, Deadline: now.Add(30 * time.Second)}, now)
	if got := m.StateOf(mmcp.RoleStorageNode); got != StateAnnounced {
		t.Fatalf("state = %v, want Announced", got)
	}

	m.Tick(now.Add(29*time.Second), intelligence.MeshIntelligence{})
	if got := m.StateOf(mmcp.RoleStorageNode); got != StateAnnounced {
		t.Errorf("state = %v, want still Announced before the window elapses", got)
	}

	m.Tick(now.Add(31*time.Second), intelligence.MeshIntelligence{})
	if got := m.StateOf(mmcp.RoleStorageNode); got != StateActive {
		t.Errorf("state = %v, want Active after the announce window elapses", got)
	}
}

func TestMachineHeartbeatPromotesImmediately(t *testing.T) {
	m := NewMachine(ports.NopLogger{}, nil, nil, nil)
	now := time.Unix(1_700_000_000, 0)
	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleComputeNode}}, now)

	m.ObserveHeartbeat(mmcp.RoleComputeNode)
	if got := m.StateOf(mmcp.RoleComputeNode); got != StateActive {
		t.Errorf("state = %v, want Active immediately after heartbeat ack", got)
	}
}

func TestMachineDeactivatesAfterDeadline(t *testing.T) {
	m := NewMachine(ports.NopLogger{}, nil, nil, nil)
	now := time.Unix(1_700_000_000, 0)
	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleComputeNode}}, now)
	m.ObserveHeartbeat(mmcp.RoleComputeNode)

	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleComputeNode}, Deadline: now.Add(2 * time.Minute)}, now)
	if got := m.StateOf(mmcp.RoleComputeNode); got != StateDeactivating {
		t.Fatalf("state = %v, want Deactivating", got)
	}

	m.Tick(now.Add(1*time.Minute), intelligence.MeshIntelligence{})
	if got := m.StateOf(mmcp.RoleComputeNode); got != StateDeactivating {
		t.Errorf("state = %v, want still Deactivating before the deadline", got)
	}

	m.Tick(now.Add(3*time.Minute), intelligence.MeshIntelligence{})
	if got := m.StateOf(mmcp.RoleComputeNode); got != StateAbsent {
		t.Errorf("state = %v, want Absent after the deadline passes", got)
	}
}

func TestMachineGatewayDeactivationSlipsWithoutReplacement(t *testing.T) {
	m := NewMachine(ports.NopLogger{}, nil, nil, nil)
	now := time.Unix(1_700_000_000, 0)
	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleClearnetGateway}}, now)
	m.ObserveHeartbeat(mmcp.RoleClearnetGateway)

	deadline := now.Add(5 * time.Minute)
	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleClearnetGateway}, Deadline: deadline}, now)

	// No other active gateway confirmed: deadline should slip, not fire.
	m.Tick(deadline.Add(time.Second), intelligence.MeshIntelligence{ActiveGateways: 1})
	if got := m.StateOf(mmcp.RoleClearnetGateway); got != StateDeactivating {
		t.Errorf("state = %v, want still Deactivating when no replacement gateway exists", got)
	}

	// Once another gateway is confirmed, the next tick past the slipped
	// deadline completes the deactivation.
	m.Tick(deadline.Add(time.Minute), intelligence.MeshIntelligence{ActiveGateways: 2})
	if got := m.StateOf(mmcp.RoleClearnetGateway); got != StateAbsent {
		t.Errorf("state = %v, want Absent once a replacement gateway is confirmed", got)
	}
}

func TestMachineReclaimsRoleBeforeDeactivationCompletes(t *testing.T) {
	m := NewMachine(ports.NopLogger{}, nil, nil, nil)
	now := time.Unix(1_700_000_000, 0)
	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleMeshRouter}}, now)
	m.ObserveHeartbeat(mmcp.RoleMeshRouter)

	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleMeshRouter}, Deadline: now.Add(2 * time.Minute)}, now)
	if got := m.StateOf(mmcp.RoleMeshRouter); got != StateDeactivating {
		t.Fatalf("state = %v, want Deactivating", got)
	}

	// Plan flips back: the role is wanted again before the deadline.
	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleMeshRouter}}, now.Add(time.Minute))
	if got := m.StateOf(mmcp.RoleMeshRouter); got != StateActive {
		t.Errorf("state = %v, want reclaimed to Active", got)
	}
}

func TestMachineCurrentRolesExcludesDeactivating(t *testing.T) {
	m := NewMachine(ports.NopLogger{}, nil, nil, nil)
	now := time.Unix(1_700_000_000, 0)
	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleMeshRouter, mmcp.RoleStorageNode}}, now)
	m.ObserveHeartbeat(mmcp.RoleMeshRouter)
	m.ObserveHeartbeat(mmcp.RoleStorageNode)
	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleStorageNode}, Deadline: now.Add(time.Minute)}, now)

	cur := m.CurrentRoles()
	if !cur[mmcp.RoleMeshRouter] {
		t.Error("expected active MESH_ROUTER in CurrentRoles")
	}
	if cur[mmcp.RoleStorageNode] {
		t.Error("did not expect deactivating STORAGE_NODE in CurrentRoles")
	}
}

func TestMachineAnnouncesGatewayOnAddAndRemove(t *testing.T) {
	announcer := &fakeAnnouncer{}
	gw := &fakeGatewayPort{}
	m := NewMachine(ports.NopLogger{}, announcer, gw, nil)
	now := time.Unix(1_700_000_000, 0)

	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleClearnetGateway}}, now)
	if len(announcer.calls) != 1 || announcer.calls[0].gatewayType != mmcp.GatewayClearnet || !announcer.calls[0].isActive {
		t.Fatalf("expected one active CLEARNET_GATEWAY announcement, got %+v", announcer.calls)
	}
	if len(gw.enabled) != 1 || gw.enabled[0] != ports.GatewayModeClearnet {
		t.Errorf("expected EnableGatewayRouting(clearnet), got %+v", gw.enabled)
	}

	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleClearnetGateway}, Deadline: now.Add(time.Minute)}, now)
	if len(announcer.calls) != 2 || announcer.calls[1].gatewayType != mmcp.GatewayClearnet || announcer.calls[1].isActive {
		t.Fatalf("expected a second, inactive CLEARNET_GATEWAY announcement, got %+v", announcer.calls)
	}
	if gw.disabled != 1 {
		t.Errorf("expected one DisableGatewayRouting call, got %d", gw.disabled)
	}
}

func TestMachineDoesNotAnnounceNonGatewayRoles(t *testing.T) {
	announcer := &fakeAnnouncer{}
	m := NewMachine(ports.NopLogger{}, announcer, nil, nil)
	now := time.Unix(1_700_000_000, 0)

	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleStorageNode}}, now)
	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleStorageNode}, Deadline: now.Add(time.Minute)}, now)
	if len(announcer.calls) != 0 {
		t.Errorf("expected no gateway announcements for STORAGE_NODE, got %+v", announcer.calls)
	}
}

func TestMachineWiresRoleMetrics(t *testing.T) {
	metrics := telemetry.NewMetrics("test", "go1.x")
	m := NewMachine(ports.NopLogger{}, nil, nil, metrics)
	now := time.Unix(1_700_000_000, 0)

	role := mmcp.RoleStorageNode.String()

	m.Apply(Plan{AddRoles: []mmcp.Role{mmcp.RoleStorageNode}}, now)
	if got := gatherValue(t, metrics, "meshcore_role_transitions_total", role, telemetry.TransitionAdd); got != 1 {
		t.Errorf("RoleTransitionsTotal add = %v, want 1", got)
	}

	m.ObserveHeartbeat(mmcp.RoleStorageNode)
	if got := gatherValue(t, metrics, "meshcore_active_roles", role); got != 1 {
		t.Errorf("ActiveRoles after heartbeat = %v, want 1", got)
	}

	m.Apply(Plan{RemoveRoles: []mmcp.Role{mmcp.RoleStorageNode}, Deadline: now}, now)
	if got := gatherValue(t, metrics, "meshcore_role_transitions_total", role, telemetry.TransitionRemove); got != 1 {
		t.Errorf("RoleTransitionsTotal remove = %v, want 1", got)
	}

	m.Tick(now.Add(time.Second), intelligence.MeshIntelligence{})
	if got := gatherValue(t, metrics, "meshcore_active_roles", role); got != 0 {
		t.Errorf("ActiveRoles after deactivation = %v, want 0", got)
	}
}
