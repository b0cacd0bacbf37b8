// Package manager implements the OriginatingMessageManager: the three
// periodic gossip tasks (origination, neighbor ping, lost-node sweep)
// and the reception handlers that keep the routing table, neighbor
// latency map and pending-ping list consistent with what the mesh has
// actually heard.
package manager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dreadstar/meshrabiya-core/pkg/broadcast"
	"github.com/dreadstar/meshrabiya-core/pkg/ifaceport"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
	"github.com/dreadstar/meshrabiya-core/pkg/ports"
	"github.com/dreadstar/meshrabiya-core/pkg/routing"
	"github.com/dreadstar/meshrabiya-core/pkg/telemetry"
)

// FitnessProvider supplies the caller-determined fields an outgoing
// OriginatorMessage carries; the manager has no opinion on fitness.
type FitnessProvider func() (fitnessScore int32, nodeRole uint8, centralityScore float32)

// NeighborLatency is the measured round-trip time to a direct neighbor.
type NeighborLatency struct {
	Addr        uint32
	RTT         time.Duration
	MeasuredAt  time.Time
}

type pendingPing struct {
	toAddr    uint32
	messageID uint32
	sentAt    time.Time
}

type rebroadcastKey struct {
	fromAddr  uint32
	messageID uint32
}

// Manager is the OriginatingMessageManager.
type Manager struct {
	cfg     Config
	table   *routing.Table
	ifaces  []ifaceport.Port
	sched   ports.SchedulerPort
	clock   ports.Clock
	log     ports.Logger
	metrics *telemetry.Metrics
	fitness FitnessProvider

	nextMessageID atomic.Uint32

	mu       sync.Mutex
	pending  map[uint32]*pendingPing // keyed by messageId
	latency  map[uint32]*NeighborLatency

	rebroadcastSeen *lru.Cache[rebroadcastKey, struct{}]

	malformedMu  sync.Mutex
	malformedLim map[uint32]*rate.Limiter

	snapshots *broadcast.Broadcaster[map[uint32]*routing.OriginatorRecord]

	cancels   []ports.CancelFunc
	closeOnce sync.Once
	closed    chan struct{}
}

// New constructs a Manager. fitness supplies the locally-computed role
// and score fields for outgoing ORIGINATOR messages; metrics may be nil.
func New(cfg Config, table *routing.Table, ifaces []ifaceport.Port, sched ports.SchedulerPort, clock ports.Clock, log ports.Logger, fitness FitnessProvider, metrics *telemetry.Metrics) *Manager {
	seen, err := lru.New[rebroadcastKey, struct{}](1024)
	if err != nil {
		// Only fails for a non-positive size, which 1024 never is.
		panic(err)
	}
	return &Manager{
		cfg:             cfg,
		table:           table,
		ifaces:          ifaces,
		sched:           sched,
		clock:           clock,
		log:             log,
		metrics:         metrics,
		fitness:         fitness,
		pending:         make(map[uint32]*pendingPing),
		latency:         make(map[uint32]*NeighborLatency),
		rebroadcastSeen: seen,
		malformedLim:    make(map[uint32]*rate.Limiter),
		snapshots:       broadcast.New[map[uint32]*routing.OriginatorRecord](4),
		closed:          make(chan struct{}),
	}
}

// Start schedules the three periodic tasks. Safe to call once.
func (m *Manager) Start() {
	m.cancels = append(m.cancels,
		m.sched.ScheduleWithFixedDelay(m.originate, m.cfg.OriginationInitialDelay, m.cfg.OriginationInterval),
		m.sched.ScheduleWithFixedDelay(m.pingNeighbors, m.cfg.PingInterval, m.cfg.PingInterval),
		m.sched.ScheduleWithFixedDelay(m.sweepLostNodes, m.cfg.SweepInterval, m.cfg.SweepInterval),
	)
}

// Close is idempotent: it cancels every scheduled task and waits for any
// in-flight task body to return before closing the snapshot broadcaster.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.sched.CancelAll()
		m.snapshots.Close()
	})
}

// Snapshots returns a subscription to routing table updates.
func (m *Manager) Snapshots() broadcast.Subscription[map[uint32]*routing.OriginatorRecord] {
	return m.snapshots.Subscribe()
}

func (m *Manager) nextID() uint32 {
	return m.nextMessageID.Add(1)
}

func (m *Manager) ifaceByAddr(addr uint32) ifaceport.Port {
	for _, iface := range m.ifaces {
		if iface.VirtualAddress() == addr {
			return iface
		}
	}
	return nil
}

// originate builds and unicasts a fresh ORIGINATOR message to every
// known neighbor on every local interface, concurrently per neighbor so
// one slow interface send never delays the others.
func (m *Manager) originate() {
	fitnessScore, nodeRole, centrality := m.fitness()
	neighbors := m.table.Neighbors()
	int32Neighbors := make([]int32, len(neighbors))
	for i, n := range neighbors {
		int32Neighbors[i] = int32(n)
	}

	var g errgroup.Group
	for _, iface := range m.ifaces {
		iface := iface
		for _, neighborAddr := range iface.KnownNeighbors() {
			neighborAddr := neighborAddr
			g.Go(func() error {
				msg := &mmcp.OriginatorMessage{
					FitnessScore:    fitnessScore,
					NodeRole:        nodeRole,
					SentTime:        m.clock.WallNowMillis(),
					NeighborCount:   int32(len(int32Neighbors)),
					Neighbors:       int32Neighbors,
					CentralityScore: centrality,
				}
				msg.SetID(m.nextID())
				return m.sendMMCP(iface, msg, neighborAddr, iface.VirtualAddress(), iface.VirtualAddress(), 1)
			})
		}
	}
	if err := g.Wait(); err != nil {
		m.log.Warn("origination send failed", "err", err)
	}
}

// pingNeighbors sends a PING to every current direct neighbor and
// records it as pending; stale pending pings past PingTimeout are
// evicted here too (no neighbor-lost signal, that's the sweep's job).
func (m *Manager) pingNeighbors() {
	now := m.clock.Now()

	m.mu.Lock()
	for id, p := range m.pending {
		if now.Sub(p.sentAt) > m.cfg.PingTimeout {
			delete(m.pending, id)
		}
	}
	m.mu.Unlock()

	for _, neighborAddr := range m.table.Neighbors() {
		rec, ok := m.table.Lookup(neighborAddr)
		if !ok || rec.ReceivedFromInterface == nil {
			continue
		}
		iface := rec.ReceivedFromInterface
		id := m.nextID()
		ping := &mmcp.PingMessage{}
		ping.SetID(id)

		m.mu.Lock()
		m.pending[id] = &pendingPing{toAddr: neighborAddr, messageID: id, sentAt: now}
		m.mu.Unlock()

		if err := m.sendMMCP(iface, ping, neighborAddr, iface.VirtualAddress(), iface.VirtualAddress(), 1); err != nil {
			m.log.Warn("ping send failed", "neighbor", neighborAddr, "err", err)
		}
	}
}

// sweepLostNodes evicts routing table entries past LostNodeThreshold and
// publishes the resulting snapshot.
func (m *Manager) sweepLostNodes() {
	evicted := m.table.EvictOlderThan(m.clock.Now().UnixMilli(), m.cfg.LostNodeThreshold.Milliseconds())
	if len(evicted) > 0 {
		m.log.Debug("lost-node sweep evicted records", "count", len(evicted))
	}
	if m.metrics != nil {
		m.metrics.NeighborCount.Set(float64(len(m.table.Neighbors())))
	}
	m.snapshots.Publish(m.table.Snapshot())
}

// HandleOriginator implements the ORIGINATOR reception handler: ping-time
// cost accrual, the strictly-better replacement rule, new-neighbor
// immediate-origination trigger, and suppressed rebroadcast.
func (m *Manager) HandleOriginator(fromAddr, lastHopAddr uint32, hopCount uint8, msg *mmcp.OriginatorMessage, recvIface ifaceport.Port) {
	adjusted := *msg
	m.mu.Lock()
	if lat, ok := m.latency[lastHopAddr]; ok && lat.RTT > 0 {
		adjusted.SentTime = msg.SentTime + lat.RTT.Milliseconds()
	}
	m.mu.Unlock()

	accepted, isNewNeighbor := m.table.Offer(fromAddr, &adjusted, m.clock.Now().UnixMilli(), lastHopAddr, hopCount, recvIface)
	if !accepted {
		return
	}

	if isNewNeighbor {
		m.sched.ScheduleOnce(m.originate, 0)
	}

	m.maybeRebroadcast(fromAddr, msg, &adjusted)
}

// maybeRebroadcast forwards an updated originator message to this
// node's own neighbors, suppressing duplicates of one already sent for
// the same (fromAddr, messageId).
func (m *Manager) maybeRebroadcast(fromAddr uint32, orig *mmcp.OriginatorMessage, adjusted *mmcp.OriginatorMessage) {
	key := rebroadcastKey{fromAddr: fromAddr, messageID: orig.MessageID()}
	if _, dup := m.rebroadcastSeen.Get(key); dup {
		if m.metrics != nil {
			m.metrics.RebroadcastsSuppressed.Inc()
		}
		return
	}
	m.rebroadcastSeen.Add(key, struct{}{})

	for _, iface := range m.ifaces {
		for _, neighborAddr := range iface.KnownNeighbors() {
			if neighborAddr == fromAddr {
				continue
			}
			out := *adjusted
			out.SetID(m.nextID())
			if err := m.sendMMCP(iface, &out, neighborAddr, iface.VirtualAddress(), iface.VirtualAddress(), 1); err != nil {
				m.log.Warn("rebroadcast send failed", "neighbor", neighborAddr, "err", err)
				continue
			}
			if m.metrics != nil {
				m.metrics.RebroadcastsTotal.Inc()
			}
		}
	}
}

// AnnounceGateway unicasts a GATEWAY_ANNOUNCEMENT to every known neighbor
// on every local interface: isActive true when a gateway role has just
// been added, false when one is being torn down. This is the EmergentRoleManager's
// send path for the gateway announce hook; it does not go through
// maybeRebroadcast's dedup cache since each call is a fresh, one-shot event.
func (m *Manager) AnnounceGateway(gatewayType mmcp.GatewayType, isActive bool) {
	for _, iface := range m.ifaces {
		nodeID := fmt.Sprintf("%d", iface.VirtualAddress())
		for _, neighborAddr := range iface.KnownNeighbors() {
			msg := &mmcp.GatewayAnnouncementMessage{
				NodeID:      nodeID,
				GatewayType: gatewayType,
				IsActive:    isActive,
				Timestamp:   m.clock.WallNowMillis(),
			}
			msg.SetID(m.nextID())
			if err := m.sendMMCP(iface, msg, neighborAddr, iface.VirtualAddress(), iface.VirtualAddress(), 1); err != nil {
				m.log.Warn("gateway announcement send failed", "neighbor", neighborAddr, "err", err)
			}
		}
	}
}

// HandlePong implements the PONG reception handler: locate the pending
// ping by messageId, measure RTT, update neighbor latency, and evict.
func (m *Manager) HandlePong(fromAddr uint32, pong *mmcp.PongMessage) {
	id := uint32(pong.ReplyToMessageID)

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pending[id]
	if !ok {
		m.log.Debug("pong with no matching pending ping", "fromAddr", fromAddr, "replyTo", id)
		return
	}
	delete(m.pending, id)

	rtt := m.clock.Now().Sub(p.sentAt)
	if rtt < time.Millisecond {
		rtt = time.Millisecond
	}
	m.latency[fromAddr] = &NeighborLatency{Addr: fromAddr, RTT: rtt, MeasuredAt: m.clock.Now()}
	if m.metrics != nil {
		m.metrics.PingRTTSeconds.Observe(rtt.Seconds())
	}
}

// FindOriginatingMessageFor is a constant-time lookup of the best known
// record for addr.
func (m *Manager) FindOriginatingMessageFor(addr uint32) (*routing.OriginatorRecord, bool) {
	return m.table.Lookup(addr)
}

// SelectOutgoingAddrForDestination walks local interfaces to find the one
// whose address matches the routing record's lastHopAddr.
func (m *Manager) SelectOutgoingAddrForDestination(addr uint32) (ifaceport.Port, error) {
	rec, ok := m.table.Lookup(addr)
	if !ok {
		return nil, ErrNoRoute
	}
	iface := m.ifaceByAddr(rec.LastHopAddr)
	if iface == nil {
		return nil, ErrNoRoute
	}
	return iface, nil
}

// NoteMalformedFrame logs a malformed-inbound-frame event, rate limited
// to once per minute per source address so a misbehaving or buggy
// neighbor can't flood the log.
func (m *Manager) NoteMalformedFrame(sourceAddr uint32, err error) {
	if m.metrics != nil {
		m.metrics.PacketsDroppedTotal.WithLabelValues(telemetry.ReasonMalformed).Inc()
	}

	m.malformedMu.Lock()
	lim, ok := m.malformedLim[sourceAddr]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute), 1)
		m.malformedLim[sourceAddr] = lim
	}
	allowed := lim.Allow()
	m.malformedMu.Unlock()

	if allowed {
		m.log.Warn("malformed inbound frame", "source", sourceAddr, "err", err)
	}
}

func (m *Manager) sendMMCP(iface ifaceport.Port, msg mmcp.Message, toAddr, fromAddr, lastHopAddr uint32, hopCount uint8) error {
	payload := mmcp.Encode(msg)
	pkt, err := newPacket(toAddr, fromAddr, lastHopAddr, hopCount, m.cfg.MaxHops, payload)
	if err != nil {
		return err
	}
	return iface.Send(pkt, toAddr)
}
