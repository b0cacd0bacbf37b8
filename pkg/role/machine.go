package role

import (
	"sync"
	"time"

	"github.com/dreadstar/meshrabiya-core/pkg/intelligence"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
	"github.com/dreadstar/meshrabiya-core/pkg/ports"
	"github.com/dreadstar/meshrabiya-core/pkg/telemetry"
)

// GatewayAnnouncer is the EmergentRoleManager's send path for gateway
// role transitions: a gateway role newly added announces itself active,
// a gateway role torn down announces itself inactive. Satisfied by
// *manager.Manager in production; pkg/role has no import-time dependency
// on pkg/manager so this stays an interface.
type GatewayAnnouncer interface {
	AnnounceGateway(gatewayType mmcp.GatewayType, isActive bool)
}

// State is a single role's position in the Absent -> Announced -> Active
// -> Deactivating -> Absent lifecycle.
type State int

const (
	StateAbsent State = iota
	StateAnnounced
	StateActive
	StateDeactivating
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateAnnounced:
		return "announced"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	default:
		return "unknown"
	}
}

// announceWindow is how long a newly-added role stays Announced before
// it is promoted to Active on its own, absent an earlier heartbeat ack.
const announceWindow = 30 * time.Second

type roleEntry struct {
	state              State
	announcedAt        time.Time
	deactivateDeadline time.Time
}

// Machine is the per-node EmergentRoleManager state machine: it turns a
// sequence of Plans into the gated Absent/Announced/Active/Deactivating
// transitions that pace how role changes actually take effect, rather
// than flipping roles the instant a plan says to.
type Machine struct {
	mu        sync.Mutex
	entries   map[mmcp.Role]*roleEntry
	log       ports.Logger
	announcer GatewayAnnouncer
	gateway   ports.GatewayPort
	metrics   *telemetry.Metrics
}

// NewMachine constructs an empty Machine; every role starts Absent.
// announcer, gateway and metrics may all be nil.
func NewMachine(log ports.Logger, announcer GatewayAnnouncer, gateway ports.GatewayPort, metrics *telemetry.Metrics) *Machine {
	if log == nil {
		log = ports.NopLogger{}
	}
	return &Machine{entries: make(map[mmcp.Role]*roleEntry), log: log, announcer: announcer, gateway: gateway, metrics: metrics}
}

// Apply folds a Plan into the state machine: new roles become Announced
// (or, if they were mid-Deactivating, reclaimed straight to Active),
// dropped roles become Deactivating with the plan's deadline.
func (m *Machine) Apply(plan Plan, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range plan.AddRoles {
		e, ok := m.entries[r]
		if !ok || e.state == StateAbsent {
			m.entries[r] = &roleEntry{state: StateAnnounced, announcedAt: now}
			m.log.Info("role announced", "role", r.String())
			m.recordTransition(r, telemetry.TransitionAdd)
			m.announceGateway(r, true)
			continue
		}
		if e.state == StateDeactivating {
			e.state = StateActive
			m.log.Info("role reclaimed before deactivation deadline", "role", r.String())
			m.setActive(r, true)
		}
	}

	for _, r := range plan.RemoveRoles {
		e, ok := m.entries[r]
		if !ok || e.state == StateAbsent {
			continue
		}
		e.state = StateDeactivating
		e.deactivateDeadline = plan.Deadline
		m.log.Info("role deactivating", "role", r.String(), "deadline", plan.Deadline)
		m.recordTransition(r, telemetry.TransitionRemove)
		m.announceGateway(r, false)
	}
}

// recordTransition increments RoleTransitionsTotal for a role/direction
// pair; a no-op when no metrics were configured.
func (m *Machine) recordTransition(r mmcp.Role, transition string) {
	if m.metrics != nil {
		m.metrics.RoleTransitionsTotal.WithLabelValues(r.String(), transition).Inc()
	}
}

// setActive sets the ActiveRoles gauge for r; a no-op when no metrics
// were configured.
func (m *Machine) setActive(r mmcp.Role, active bool) {
	if m.metrics == nil {
		return
	}
	v := 0.0
	if active {
		v = 1.0
	}
	m.metrics.ActiveRoles.WithLabelValues(r.String()).Set(v)
}

// announceGateway emits the GATEWAY_ANNOUNCEMENT send-path hook for a
// gateway role add/remove, and enables/disables local gateway routing
// when a GatewayPort is configured. A no-op for non-gateway roles. With
// no GatewayPort, the announcement still goes out -- only local routing
// enable/disable is skipped.
func (m *Machine) announceGateway(r mmcp.Role, isActive bool) {
	gt, ok := gatewayTypeFor(r)
	if !ok {
		return
	}
	if m.announcer != nil {
		m.announcer.AnnounceGateway(gt, isActive)
	}
	if m.gateway == nil {
		return
	}
	mode, _ := gatewayModeFor(r)
	var err error
	if isActive {
		err = m.gateway.EnableGatewayRouting(mode)
	} else {
		err = m.gateway.DisableGatewayRouting()
	}
	if err != nil {
		m.log.Warn("gateway routing toggle failed", "role", r.String(), "active", isActive, "err", err)
	}
}

// ObserveHeartbeat promotes an Announced role to Active immediately,
// ahead of the 30s announce window, when an external ack (e.g. a
// neighbor's gossip confirming the role) arrives first.
func (m *Machine) ObserveHeartbeat(r mmcp.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[r]; ok && e.state == StateAnnounced {
		e.state = StateActive
		m.setActive(r, true)
	}
}

// Tick advances time-driven transitions: Announced roles past their
// announce window become Active, and Deactivating roles past their
// deadline become Absent -- unless the role is a gateway and the mesh
// intelligence view still shows no other active gateway, in which case
// the deadline slips by another announce window rather than dropping
// the mesh's only egress point.
func (m *Machine) Tick(now time.Time, mi intelligence.MeshIntelligence) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for r, e := range m.entries {
		switch e.state {
		case StateAnnounced:
			if now.Sub(e.announcedAt) >= announceWindow {
				e.state = StateActive
				m.setActive(r, true)
			}
		case StateDeactivating:
			if now.Before(e.deactivateDeadline) {
				continue
			}
			if isGatewayRole(r) && mi.ActiveGateways <= 1 {
				e.deactivateDeadline = now.Add(announceWindow)
				m.log.Warn("gateway deactivation deadline slipped: no replacement gateway confirmed", "role", r.String())
				continue
			}
			e.state = StateAbsent
			m.log.Info("role deactivated", "role", r.String())
			m.setActive(r, false)
		}
	}
}

// CurrentRoles returns the roles this node is actively claiming --
// Announced or Active -- for use as the "current" side of the next
// PlanTransition call. Deactivating roles are deliberately excluded: if
// the next target still wants one, PlanTransition's diff will surface it
// as an add, and Apply reclaims it straight back to Active.
func (m *Machine) CurrentRoles() map[mmcp.Role]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[mmcp.Role]bool, len(m.entries))
	for r, e := range m.entries {
		if e.state == StateAnnounced || e.state == StateActive {
			out[r] = true
		}
	}
	return out
}

// StateOf reports a role's current lifecycle state, for diagnostics.
func (m *Machine) StateOf(r mmcp.Role) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[r]; ok {
		return e.state
	}
	return StateAbsent
}
