package main

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dreadstar/meshrabiya-core/internal/config"
	"github.com/dreadstar/meshrabiya-core/pkg/broadcast"
	"github.com/dreadstar/meshrabiya-core/pkg/capability"
	"github.com/dreadstar/meshrabiya-core/pkg/ifaceport"
	"github.com/dreadstar/meshrabiya-core/pkg/intelligence"
	"github.com/dreadstar/meshrabiya-core/pkg/manager"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
	"github.com/dreadstar/meshrabiya-core/pkg/ports"
	"github.com/dreadstar/meshrabiya-core/pkg/role"
	"github.com/dreadstar/meshrabiya-core/pkg/router"
	"github.com/dreadstar/meshrabiya-core/pkg/routing"
	"github.com/dreadstar/meshrabiya-core/pkg/telemetry"
)

// node wires one mesh participant's full stack -- routing table,
// OriginatingMessageManager, VirtualRouter, capability builder,
// EmergentRoleManager state machine -- over a set of loopback
// interfaces, for local smoke-testing without any real transport.
type node struct {
	addr    uint32
	table   *routing.Table
	mgr     *manager.Manager
	router  *router.Router
	roles   *role.Machine
	intel   *intelligence.Aggregator
	prefs   *role.Preferences
	log     ports.Logger
	clock   ports.Clock
	metrics *telemetry.Metrics

	inbound  broadcast.Subscription[router.InboundMMCP]
	stopPump chan struct{}
	wg       sync.WaitGroup
}

func newNode(addr uint32, ifaces []ifaceport.Port, resolved config.ResolvedRouting, log ports.Logger, metrics *telemetry.Metrics) *node {
	table := routing.NewTable()
	clock := ports.SystemClock{}
	sched := ports.NewTickerScheduler()

	cfg := manager.Config{
		OriginationInterval:     resolved.OriginationInterval,
		OriginationInitialDelay: resolved.OriginationInitialDelay,
		PingInterval:            resolved.PingInterval,
		PingTimeout:             resolved.PingTimeout,
		LostNodeThreshold:       resolved.LostNodeThreshold,
		SweepInterval:           resolved.SweepInterval,
		MaxHops:                 resolved.MaxHops,
	}

	fitnessScore := func() (int32, uint8, float32) { return 0, 0, 0 }
	mgr := manager.New(cfg, table, ifaces, sched, clock, log, fitnessScore, metrics)
	r := router.New(ifaces, table, mgr, log, metrics)
	intel := intelligence.New(resolved.OriginationInterval, resolved.MaxHops, time.Now)

	n := &node{
		addr:     addr,
		table:    table,
		mgr:      mgr,
		router:   r,
		roles:    role.NewMachine(log, mgr, nil, metrics),
		intel:    intel,
		log:      log,
		clock:    clock,
		metrics:  metrics,
		inbound:  r.Inbound(),
		stopPump: make(chan struct{}),
	}

	n.wg.Add(1)
	go n.drainIntelligence()

	for _, iface := range ifaces {
		n.wg.Add(1)
		go n.pump(iface)
	}

	mgr.Start()
	return n
}

// drainIntelligence feeds the gossip-intelligence aggregator from every
// MMCP kind the router doesn't consume internally.
func (n *node) drainIntelligence() {
	defer n.wg.Done()
	for msg := range n.inbound.C {
		switch m := msg.Message.(type) {
		case *mmcp.NodeAnnouncementMessage:
			n.intel.ObserveNodeAnnouncement(m)
		case *mmcp.NetworkMetricsMessage:
			n.intel.ObserveNetworkMetrics(m)
		}
	}
}

// pump delivers inbound packets on one interface to the router.
func (n *node) pump(iface ifaceport.Port) {
	defer n.wg.Done()
	for {
		select {
		case <-n.stopPump:
			return
		case ev, ok := <-iface.Inbound():
			if !ok {
				return
			}
			n.router.HandleInbound(ev.Packet, ev.ReceivedOn)
		}
	}
}

// planRoles runs one EmergentRoleManager planning pass: build a fresh
// capability snapshot, consult the mesh intelligence view, diff against
// the currently-claimed role set, and apply the resulting Plan.
func (n *node) planRoles(builder *capability.Builder) {
	snap := builder.Build(fmt.Sprintf("node-%d", n.addr))
	n.intel.Sweep()
	mi := n.intel.Snapshot()
	neighbors := len(n.table.Neighbors())

	target := role.TargetRoles(snap, mi, neighbors, n.prefs)
	current := n.roles.CurrentRoles()
	plan := role.PlanTransition(current, target, mi, n.clock.Now())
	n.roles.Apply(plan, n.clock.Now())
	n.roles.Tick(n.clock.Now(), mi)
}

func (n *node) close() {
	close(n.stopPump)
	n.mgr.Close()
	n.inbound.Close()
	n.wg.Wait()
}

func newLogger() ports.Logger {
	return ports.NewSlogLogger(slog.Default())
}
