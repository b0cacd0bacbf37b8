// Package routing implements the gossip-derived routing table: a map
// from originator address to the best OriginatorRecord seen for it, plus
// the replacement, neighbor-derivation and eviction rules that keep the
// table consistent with a B.A.T.M.A.N.-style "freshest, shortest" policy.
package routing

import (
	"sync"

	"github.com/dreadstar/meshrabiya-core/pkg/ifaceport"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

// OriginatorRecord is the routing table's value type: the best known
// path back to a single originator address.
type OriginatorRecord struct {
	OriginatorMessage      *mmcp.OriginatorMessage
	TimeReceived           int64 // Unix ms, from ports.Clock.Now()
	LastHopAddr            uint32
	HopCount               uint8
	ReceivedFromInterface  ifaceport.Port
}

// isStrictlyBetter reports whether a candidate record should replace cur,
// per the table's core invariant: never replace on ties.
func isStrictlyBetter(cur *OriginatorRecord, sentTime int64, hopCount uint8) bool {
	if cur == nil {
		return true
	}
	if sentTime > cur.OriginatorMessage.SentTime {
		return true
	}
	if sentTime == cur.OriginatorMessage.SentTime && hopCount < cur.HopCount {
		return true
	}
	return false
}

// Table is a concurrency-safe routing table keyed by originator address
// (the originator message's fromAddr, i.e. the interface that emitted it
// at its source).
type Table struct {
	mu      sync.RWMutex
	records map[uint32]*OriginatorRecord
}

// NewTable constructs an empty routing table.
func NewTable() *Table {
	return &Table{records: make(map[uint32]*OriginatorRecord)}
}

// Offer applies the replacement rule for a freshly received originator
// message from originatorAddr. It reports whether the record was
// accepted (created or replaced) and, if so, whether originatorAddr is a
// newly seen direct neighbor (hopCount==1, no prior record).
func (t *Table) Offer(originatorAddr uint32, msg *mmcp.OriginatorMessage, timeReceived int64, lastHopAddr uint32, hopCount uint8, recvIface ifaceport.Port) (accepted bool, isNewNeighbor bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.records[originatorAddr]
	if !isStrictlyBetter(cur, msg.SentTime, hopCount) {
		return false, false
	}

	isNewNeighbor = hopCount == 1 && cur == nil
	t.records[originatorAddr] = &OriginatorRecord{
		OriginatorMessage:     msg,
		TimeReceived:          timeReceived,
		LastHopAddr:           lastHopAddr,
		HopCount:              hopCount,
		ReceivedFromInterface: recvIface,
	}
	return true, isNewNeighbor
}

// Lookup returns the current record for an originator address, if any.
func (t *Table) Lookup(originatorAddr uint32) (*OriginatorRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.records[originatorAddr]
	return rec, ok
}

// Neighbors returns the set of originator addresses currently classified
// as direct neighbors (hopCount==1).
func (t *Table) Neighbors() []uint32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []uint32
	for addr, rec := range t.records {
		if rec.HopCount == 1 {
			out = append(out, addr)
		}
	}
	return out
}

// Snapshot returns a copy of the full address->record map, safe for the
// caller to range over without holding the table's lock.
func (t *Table) Snapshot() map[uint32]*OriginatorRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[uint32]*OriginatorRecord, len(t.records))
	for k, v := range t.records {
		out[k] = v
	}
	return out
}

// EvictOlderThan removes every record whose TimeReceived is more than
// thresholdMs behind nowMs, returning the evicted addresses. Used by the
// lost-node sweep task.
func (t *Table) EvictOlderThan(nowMs int64, thresholdMs int64) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []uint32
	for addr, rec := range t.records {
		if nowMs-rec.TimeReceived > thresholdMs {
			delete(t.records, addr)
			evicted = append(evicted, addr)
		}
	}
	return evicted
}

// EvictByInterface removes every record whose ReceivedFromInterface is
// iface, used when a transport reports InterfaceGone.
func (t *Table) EvictByInterface(iface ifaceport.Port) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []uint32
	for addr, rec := range t.records {
		if rec.ReceivedFromInterface == iface {
			delete(t.records, addr)
			evicted = append(evicted, addr)
		}
	}
	return evicted
}

// FindRoute implements ports.RouteLookup: the next hop toward dst is the
// lastHopAddr recorded for dst's originator record.
func (t *Table) FindRoute(dst uint32) (nextHop uint32, ok bool) {
	rec, found := t.Lookup(dst)
	if !found {
		return 0, false
	}
	return rec.LastHopAddr, true
}
