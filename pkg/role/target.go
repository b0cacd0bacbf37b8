package role

import (
	"github.com/dreadstar/meshrabiya-core/pkg/capability"
	"github.com/dreadstar/meshrabiya-core/pkg/intelligence"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
	"github.com/dreadstar/meshrabiya-core/pkg/ports"
)

// Preferences carries the user-facing policy knobs that constrain or
// steer role selection: an explicit allow-list (nil/empty means "no
// restriction"), a forced gateway choice, and the Tor-proxy consent flag
// that breaks the gateway-type tie.
type Preferences struct {
	AllowedRoles     []mmcp.Role
	PreferredGateway *mmcp.Role
	AllowsTorProxy   bool
}

func (p *Preferences) allows(r mmcp.Role) bool {
	if p == nil || len(p.AllowedRoles) == 0 {
		return true
	}
	for _, x := range p.AllowedRoles {
		if x == r {
			return true
		}
	}
	return false
}

func isGatewayRole(r mmcp.Role) bool {
	return r == mmcp.RoleClearnetGateway || r == mmcp.RoleTorGateway || r == mmcp.RoleI2PGateway
}

// gatewayTypeFor maps a gateway role to the GatewayType carried on the
// GATEWAY_ANNOUNCEMENT wire message. ok is false for a non-gateway role.
func gatewayTypeFor(r mmcp.Role) (mmcp.GatewayType, bool) {
	switch r {
	case mmcp.RoleClearnetGateway:
		return mmcp.GatewayClearnet, true
	case mmcp.RoleTorGateway:
		return mmcp.GatewayTor, true
	case mmcp.RoleI2PGateway:
		return mmcp.GatewayI2P, true
	default:
		return 0, false
	}
}

// gatewayModeFor maps a gateway role to the local-routing mode passed to
// a ports.GatewayPort. ok is false for a non-gateway role.
func gatewayModeFor(r mmcp.Role) (ports.GatewayMode, bool) {
	switch r {
	case mmcp.RoleClearnetGateway:
		return ports.GatewayModeClearnet, true
	case mmcp.RoleTorGateway:
		return ports.GatewayModeTor, true
	case mmcp.RoleI2PGateway:
		return ports.GatewayModeI2P, true
	default:
		return "", false
	}
}

// TargetRoles computes the role set this node should be claiming right
// now, given its current capability snapshot, the mesh-wide intelligence
// view, its live neighbor count, and user preferences. RoleMeshParticipant
// is always present: it is the role baseline every node claims.
func TargetRoles(snap capability.Snapshot, mi intelligence.MeshIntelligence, neighborCount int, prefs *Preferences) map[mmcp.Role]bool {
	target := map[mmcp.Role]bool{mmcp.RoleMeshParticipant: true}
	fitness := Fitness(snap)
	stable := snap.HasStableConnection()
	notOverheated := snap.Thermal != mmcp.ThermalThrottling && snap.Thermal != mmcp.ThermalCritical

	if gw, ok := selectGateway(snap, mi, fitness, stable, prefs); ok && prefs.allows(gw) {
		target[gw] = true
	}

	if snap.Resources.StorageOffered > 1<<20 && fitness > 0.4 && notOverheated &&
		mi.NeedsMoreStorage() && prefs.allows(mmcp.RoleStorageNode) {
		target[mmcp.RoleStorageNode] = true
	}

	if snap.Resources.AvailableCPU > 0.3 && notOverheated &&
		(snap.Battery.IsCharging || snap.Battery.Level > 30) &&
		mi.NeedsMoreCompute() && prefs.allows(mmcp.RoleComputeNode) {
		target[mmcp.RoleComputeNode] = true
	}

	if fitness > 0.6 && neighborCount >= 2 {
		target[mmcp.RoleMeshRouter] = true
	}

	if fitness > 0.85 && stable && neighborCount >= 3 && prefs.allows(mmcp.RoleCoordinator) {
		target[mmcp.RoleCoordinator] = true
	}

	return target
}

// selectGateway picks at most one gateway role, honoring exclusivity: a
// node never claims more than one gateway type at once. Priority order:
// user-preferred gateway, then (no Tor consent AND >10 Mbps) clearnet,
// then (Tor consent) tor, then (>10 Mbps) clearnet, else tor.
func selectGateway(snap capability.Snapshot, mi intelligence.MeshIntelligence, fitness float32, stable bool, prefs *Preferences) (mmcp.Role, bool) {
	if !(stable && fitness > 0.8 && mi.NeedsMoreGateways()) {
		return 0, false
	}
	if prefs != nil && prefs.PreferredGateway != nil {
		return *prefs.PreferredGateway, true
	}

	allowsTor := prefs != nil && prefs.AllowsTorProxy
	highBandwidth := bandwidthMbps(snap) > 10

	switch {
	case !allowsTor && highBandwidth:
		return mmcp.RoleClearnetGateway, true
	case allowsTor:
		return mmcp.RoleTorGateway, true
	case highBandwidth:
		return mmcp.RoleClearnetGateway, true
	default:
		return mmcp.RoleTorGateway, true
	}
}
