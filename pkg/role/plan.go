package role

import (
	"time"

	"github.com/dreadstar/meshrabiya-core/pkg/intelligence"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

// Plan is the output of a single planning pass: the roles to add, the
// roles to drop, the deadline by which the drops must complete, and any
// fallback roles to assume if a dropped role can't find a replacement
// in time (currently always empty; reserved for future handoff logic).
type Plan struct {
	AddRoles    []mmcp.Role
	RemoveRoles []mmcp.Role
	Deadline    time.Time
	Fallbacks   map[mmcp.Role][]mmcp.Role
}

// PlanTransition diffs current against target and derives a Plan. A
// gateway role is never dropped unless the mesh already has another
// active gateway (mi.ActiveGateways > 1): losing the only egress point
// the mesh has is worse than carrying a role nobody still wants.
func PlanTransition(current, target map[mmcp.Role]bool, mi intelligence.MeshIntelligence, now time.Time) Plan {
	var add, remove []mmcp.Role

	for r := range target {
		if !current[r] {
			add = append(add, r)
		}
	}

	removingGateway := false
	for r := range current {
		if target[r] {
			continue
		}
		if isGatewayRole(r) {
			if mi.ActiveGateways <= 1 {
				continue
			}
			removingGateway = true
		}
		remove = append(remove, r)
	}

	var deadline time.Time
	switch {
	case removingGateway:
		deadline = now.Add(5 * time.Minute)
	case len(remove) > 0:
		deadline = now.Add(2 * time.Minute)
	default:
		deadline = now.Add(30 * time.Second)
	}

	return Plan{AddRoles: add, RemoveRoles: remove, Deadline: deadline, Fallbacks: map[mmcp.Role][]mmcp.Role{}}
}
