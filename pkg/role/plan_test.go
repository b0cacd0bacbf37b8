package role

import (
	"testing"
	"time"

	"github.com/dreadstar/meshrabiya-core/pkg/intelligence"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

func TestPlanTransitionAddsAndRemoves(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	current := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true, mmcp.RoleComputeNode: true}
	target := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true, mmcp.RoleStorageNode: true}

	plan := PlanTransition(current, target, intelligence.MeshIntelligence{}, now)

	if len(plan.AddRoles) != 1 || plan.AddRoles[0] != mmcp.RoleStorageNode {
		t.Errorf("AddRoles = %v, want [STORAGE_NODE]", plan.AddRoles)
	}
	if len(plan.RemoveRoles) != 1 || plan.RemoveRoles[0] != mmcp.RoleComputeNode {
		t.Errorf("RemoveRoles = %v, want [COMPUTE_NODE]", plan.RemoveRoles)
	}
	if !plan.Deadline.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("Deadline = %v, want now+2m for a non-gateway removal", plan.Deadline)
	}
}

func TestPlanTransitionNoChangesGetsShortDeadline(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	roles := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true}
	plan := PlanTransition(roles, roles, intelligence.MeshIntelligence{}, now)

	if len(plan.AddRoles) != 0 || len(plan.RemoveRoles) != 0 {
		t.Fatalf("expected no-op plan, got %+v", plan)
	}
	if !plan.Deadline.Equal(now.Add(30 * time.Second)) {
		t.Errorf("Deadline = %v, want now+30s", plan.Deadline)
	}
}

func TestPlanTransitionNeverDropsSoleGateway(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	current := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true, mmcp.RoleClearnetGateway: true}
	target := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true}
	mi := intelligence.MeshIntelligence{ActiveGateways: 1}

	plan := PlanTransition(current, target, mi, now)

	if len(plan.RemoveRoles) != 0 {
		t.Errorf("expected the sole active gateway to be kept, RemoveRoles = %v", plan.RemoveRoles)
	}
}

func TestPlanTransitionDropsGatewayWhenAnotherExists(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	current := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true, mmcp.RoleClearnetGateway: true}
	target := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true}
	mi := intelligence.MeshIntelligence{ActiveGateways: 2}

	plan := PlanTransition(current, target, mi, now)

	if len(plan.RemoveRoles) != 1 || plan.RemoveRoles[0] != mmcp.RoleClearnetGateway {
		t.Errorf("RemoveRoles = %v, want [CLEARNET_GATEWAY]", plan.RemoveRoles)
	}
	if !plan.Deadline.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("Deadline = %v, want now+5m for a gateway removal", plan.Deadline)
	}
}
