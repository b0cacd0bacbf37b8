package ifaceport

import (
	"errors"
	"sync"

	"github.com/dreadstar/meshrabiya-core/pkg/packet"
)

// ErrPeerUnset is returned by Send on a LoopbackPort that hasn't been
// linked to a peer yet via Link.
var ErrPeerUnset = errors.New("ifaceport: loopback peer not linked")

// LoopbackPort is an in-memory Port for tests and the demo CLI: two
// LoopbackPorts linked via Link deliver to each other's inbound channel
// directly, with no real transport underneath.
type LoopbackPort struct {
	addr      uint32
	inbound   chan InboundEvent
	mu        sync.RWMutex
	neighbors []uint32
	peer      *LoopbackPort
}

// NewLoopbackPort creates an unlinked loopback interface owning addr,
// buffering up to buf undelivered inbound events.
func NewLoopbackPort(addr uint32, buf int) *LoopbackPort {
	return &LoopbackPort{
		addr:    addr,
		inbound: make(chan InboundEvent, buf),
	}
}

// Link connects two loopback ports as each other's sole neighbor.
func Link(a, b *LoopbackPort) {
	a.mu.Lock()
	a.peer = b
	a.neighbors = []uint32{b.addr}
	a.mu.Unlock()

	b.mu.Lock()
	b.peer = a
	b.neighbors = []uint32{a.addr}
	b.mu.Unlock()
}

func (p *LoopbackPort) VirtualAddress() uint32 { return p.addr }

func (p *LoopbackPort) KnownNeighbors() []uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uint32, len(p.neighbors))
	copy(out, p.neighbors)
	return out
}

// Send delivers pkt to the linked peer's inbound stream, dropping it if
// that stream's buffer is full (mirrors a real transport's best-effort
// send semantics).
func (p *LoopbackPort) Send(pkt *packet.VirtualPacket, nextHop uint32) error {
	p.mu.RLock()
	peer := p.peer
	p.mu.RUnlock()
	if peer == nil {
		return ErrPeerUnset
	}
	select {
	case peer.inbound <- InboundEvent{Packet: pkt, ReceivedOn: peer}:
	default:
	}
	return nil
}

func (p *LoopbackPort) Inbound() <-chan InboundEvent { return p.inbound }
