// Package intelligence implements the Gossip Intelligence Aggregator:
// mesh-wide role population counters derived purely from received
// NODE_ANNOUNCEMENT payloads, de-duplicated and decayed over time.
package intelligence

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

// MeshIntelligence is the aggregated, read-only view of mesh-wide role
// populations and load.
type MeshIntelligence struct {
	TotalNodes         int
	ActiveGateways     int
	ActiveStorageNodes int
	ActiveComputeNodes int
	NetworkLoad        float32
}

// NeedsMoreGateways implements the spec's threshold formula.
func (m MeshIntelligence) NeedsMoreGateways() bool {
	return float32(m.ActiveGateways) < float32(m.TotalNodes)*0.2 || m.NetworkLoad > 0.8
}

// NeedsMoreStorage implements the spec's threshold formula.
func (m MeshIntelligence) NeedsMoreStorage() bool {
	return float32(m.ActiveStorageNodes) < float32(m.TotalNodes)*0.3 || m.NetworkLoad > 0.8
}

// NeedsMoreCompute implements the spec's threshold formula.
func (m MeshIntelligence) NeedsMoreCompute() bool {
	return float32(m.ActiveComputeNodes) < float32(m.TotalNodes)*0.25 || m.NetworkLoad > 0.8
}

type dedupKey struct {
	nodeID   string
	sentTime int64
}

type nodeEntry struct {
	roles     []mmcp.Role
	lastSeen  time.Time
	loadSample float32
	hasLoad   bool
}

// decayWindow derives the "announcer not seen in 2 x originationInterval
// x maxHops" staleness threshold from the node's configured values.
func decayWindow(originationInterval time.Duration, maxHops uint8) time.Duration {
	return 2 * originationInterval * time.Duration(maxHops)
}

// Aggregator consumes NODE_ANNOUNCEMENT (and optionally NETWORK_METRICS)
// messages and maintains role-population counts.
type Aggregator struct {
	mu    sync.Mutex
	nodes map[string]*nodeEntry
	seen  *lru.Cache[dedupKey, struct{}]

	decay time.Duration
	now   func() time.Time
}

// New constructs an Aggregator. originationInterval and maxHops come
// from the node's own config and determine the decay window (~42s at
// the documented defaults of 3s/7 hops).
func New(originationInterval time.Duration, maxHops uint8, now func() time.Time) *Aggregator {
	seen, err := lru.New[dedupKey, struct{}](4096)
	if err != nil {
		panic(err)
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		nodes: make(map[string]*nodeEntry),
		seen:  seen,
		decay: decayWindow(originationInterval, maxHops),
		now:   now,
	}
}

// ObserveNodeAnnouncement folds a NODE_ANNOUNCEMENT into the population
// counters, de-duplicating by (nodeId, sentTime).
func (a *Aggregator) ObserveNodeAnnouncement(msg *mmcp.NodeAnnouncementMessage) {
	key := dedupKey{nodeID: msg.NodeID, sentTime: msg.SentTime}
	if _, dup := a.seen.Get(key); dup {
		return
	}
	a.seen.Add(key, struct{}{})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nodes[msg.NodeID] = &nodeEntry{roles: msg.Roles, lastSeen: a.now()}
}

// ObserveNetworkMetrics folds a NETWORK_METRICS message's networkLoad
// sample into the originating node's entry, used for the load-driven
// "needsMore*" thresholds.
func (a *Aggregator) ObserveNetworkMetrics(msg *mmcp.NetworkMetricsMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.nodes[msg.NodeID]
	if !ok {
		e = &nodeEntry{lastSeen: a.now()}
		a.nodes[msg.NodeID] = e
	}
	e.loadSample = msg.NetworkLoad
	e.hasLoad = true
	e.lastSeen = a.now()
}

// Sweep removes entries not seen within the decay window. Call it
// periodically (e.g. alongside the lost-node sweep).
func (a *Aggregator) Sweep() {
	cutoff := a.now().Add(-a.decay)
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, e := range a.nodes {
		if e.lastSeen.Before(cutoff) {
			delete(a.nodes, id)
		}
	}
}

// Snapshot computes the current MeshIntelligence from the live node set.
func (a *Aggregator) Snapshot() MeshIntelligence {
	a.mu.Lock()
	defer a.mu.Unlock()

	mi := MeshIntelligence{TotalNodes: len(a.nodes)}
	var loadSum float32
	var loadCount int
	for _, e := range a.nodes {
		for _, r := range e.roles {
			switch r {
			case mmcp.RoleClearnetGateway, mmcp.RoleTorGateway, mmcp.RoleI2PGateway:
				mi.ActiveGateways++
			case mmcp.RoleStorageNode:
				mi.ActiveStorageNodes++
			case mmcp.RoleComputeNode:
				mi.ActiveComputeNodes++
			}
		}
		if e.hasLoad {
			loadSum += e.loadSample
			loadCount++
		}
	}
	if loadCount > 0 {
		mi.NetworkLoad = loadSum / float32(loadCount)
	}
	return mi
}
