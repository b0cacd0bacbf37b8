// Package router implements the VirtualRouter: the per-packet forwarding
// decision tree (local-deliver vs MMCP-dispatch vs hop-forward vs drop)
// that sits between interfaces and both the OriginatingMessageManager and
// any application-level socket listeners.
package router

import (
	"github.com/dreadstar/meshrabiya-core/pkg/broadcast"
	"github.com/dreadstar/meshrabiya-core/pkg/ifaceport"
	"github.com/dreadstar/meshrabiya-core/pkg/manager"
	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
	"github.com/dreadstar/meshrabiya-core/pkg/packet"
	"github.com/dreadstar/meshrabiya-core/pkg/ports"
	"github.com/dreadstar/meshrabiya-core/pkg/routing"
	"github.com/dreadstar/meshrabiya-core/pkg/telemetry"
)

// InboundMMCP is published for every decoded MMCP frame the router
// doesn't handle itself (everything but PING/PONG/ORIGINATOR, which are
// consumed internally).
type InboundMMCP struct {
	Message    mmcp.Message
	Header     packet.Header
	ReceivedOn ifaceport.Port
}

// Listener receives locally-delivered packets addressed to a specific
// application toPort.
type Listener func(p *packet.VirtualPacket)

// Router is the VirtualRouter.
type Router struct {
	ifaces  []ifaceport.Port
	table   *routing.Table
	mgr     *manager.Manager
	log     ports.Logger
	metrics *telemetry.Metrics

	inbound *broadcast.Broadcaster[InboundMMCP]

	listeners map[uint16]Listener
}

// New constructs a Router. mgr handles ORIGINATOR/PONG internally; ping
// replies are generated by the router itself.
func New(ifaces []ifaceport.Port, table *routing.Table, mgr *manager.Manager, log ports.Logger, metrics *telemetry.Metrics) *Router {
	return &Router{
		ifaces:    ifaces,
		table:     table,
		mgr:       mgr,
		log:       log,
		metrics:   metrics,
		inbound:   broadcast.New[InboundMMCP](16),
		listeners: make(map[uint16]Listener),
	}
}

// Inbound returns a subscription to decoded MMCP frames the router
// doesn't consume internally (service/storage/compute advertisements,
// gateway/network-metrics/quorum/heartbeat/emergency messages).
func (r *Router) Inbound() broadcast.Subscription[InboundMMCP] {
	return r.inbound.Subscribe()
}

// Listen registers a socket listener for toPort. A nil listener removes
// any existing registration.
func (r *Router) Listen(toPort uint16, fn Listener) {
	if fn == nil {
		delete(r.listeners, toPort)
		return
	}
	r.listeners[toPort] = fn
}

func (r *Router) isLocal(addr uint32) bool {
	for _, iface := range r.ifaces {
		if iface.VirtualAddress() == addr {
			return true
		}
	}
	return false
}

func (r *Router) drop(reason string) {
	if r.metrics != nil {
		r.metrics.PacketsDroppedTotal.WithLabelValues(reason).Inc()
	}
}

// HandleInbound runs the forwarding decision tree for pkt. receivedOn is
// nil for locally originated traffic.
func (r *Router) HandleInbound(pkt *packet.VirtualPacket, receivedOn ifaceport.Port) {
	if uint32(pkt.Header.HopCount) >= uint32(pkt.Header.MaxHops) {
		r.drop(telemetry.ReasonTTL)
		return
	}

	if r.isLocal(pkt.Header.ToAddr) {
		if pkt.Header.ToPort == 0 && receivedOn != nil {
			r.dispatchMMCP(pkt, receivedOn)
			return
		}
		r.deliverLocal(pkt)
		return
	}

	r.forward(pkt)
}

func (r *Router) deliverLocal(pkt *packet.VirtualPacket) {
	fn, ok := r.listeners[pkt.Header.ToPort]
	if !ok {
		r.log.Debug("no listener for local delivery", "toPort", pkt.Header.ToPort)
		r.drop(telemetry.ReasonNoListener)
		return
	}
	fn(pkt)
	if r.metrics != nil {
		r.metrics.PacketsDeliveredLocal.Inc()
	}
}

func (r *Router) dispatchMMCP(pkt *packet.VirtualPacket, receivedOn ifaceport.Port) {
	msg, err := mmcp.Decode(pkt.Payload)
	if err != nil {
		r.mgr.NoteMalformedFrame(pkt.Header.FromAddr, err)
		return
	}

	switch m := msg.(type) {
	case *mmcp.PingMessage:
		r.replyPong(pkt, m, receivedOn)
	case *mmcp.OriginatorMessage:
		r.mgr.HandleOriginator(pkt.Header.FromAddr, pkt.Header.LastHopAddr, pkt.Header.HopCount, m, receivedOn)
	case *mmcp.PongMessage:
		r.mgr.HandlePong(pkt.Header.FromAddr, m)
	default:
		r.inbound.Publish(InboundMMCP{Message: msg, Header: pkt.Header, ReceivedOn: receivedOn})
	}
}

func (r *Router) replyPong(pkt *packet.VirtualPacket, ping *mmcp.PingMessage, receivedOn ifaceport.Port) {
	pong := &mmcp.PongMessage{ReplyToMessageID: int32(ping.MessageID())}
	pong.SetID(ping.MessageID())

	reply := packet.Header{
		ToAddr:      pkt.Header.FromAddr,
		FromAddr:    receivedOn.VirtualAddress(),
		LastHopAddr: receivedOn.VirtualAddress(),
		ToPort:      0,
		FromPort:    0,
		HopCount:    1,
		MaxHops:     pkt.Header.MaxHops,
	}
	replyPkt, err := packet.NewVirtualPacket(reply, mmcp.Encode(pong))
	if err != nil {
		r.log.Warn("failed to build pong reply", "err", err)
		return
	}
	if err := receivedOn.Send(replyPkt, pkt.Header.FromAddr); err != nil {
		r.drop(telemetry.ReasonSendError)
		r.log.Warn("pong send failed", "err", err)
	}
}

func (r *Router) forward(pkt *packet.VirtualPacket) {
	rec, ok := r.table.Lookup(pkt.Header.ToAddr)
	if !ok || rec.ReceivedFromInterface == nil {
		r.drop(telemetry.ReasonNoRoute)
		r.log.Warn("no route to destination", "toAddr", pkt.Header.ToAddr)
		return
	}

	iface := rec.ReceivedFromInterface
	next, err := packet.Forward(pkt, iface.VirtualAddress())
	if err != nil {
		r.drop(telemetry.ReasonTTL)
		return
	}
	if err := iface.Send(next, pkt.Header.ToAddr); err != nil {
		r.drop(telemetry.ReasonSendError)
		r.log.Warn("interface send failed", "err", err)
		return
	}
	if r.metrics != nil {
		r.metrics.PacketsForwardedTotal.Inc()
	}
}
