// Package ifaceport defines the seam between the routing core and the
// transports that actually move bytes (Wi-Fi Direct, hotspot, Bluetooth,
// local sockets). The core only ever talks to the Port interface; how a
// transport frames bytes on the wire is its own concern.
package ifaceport

import "github.com/dreadstar/meshrabiya-core/pkg/packet"

// Port is the abstract "send on this link to that neighbor" capability a
// transport implements and the router/manager consume. Send is
// conceptually non-blocking: a transport may enqueue internally and
// report failures asynchronously as dropped-packet telemetry rather than
// through the Send return value, though Send may still return an error
// for cases it can detect synchronously (e.g. unknown next hop).
type Port interface {
	// VirtualAddress is this interface's own virtual address.
	VirtualAddress() uint32
	// KnownNeighbors lists the virtual addresses currently reachable
	// directly over this interface.
	KnownNeighbors() []uint32
	// Send transmits p toward nextHop over this interface.
	Send(p *packet.VirtualPacket, nextHop uint32) error
	// Inbound is the stream of packets this interface has received.
	// Implementations must not block publishing to it for longer than
	// their internal buffer allows; LoopbackPort drops the newly arriving
	// packet when its buffer is full.
	Inbound() <-chan InboundEvent
}

// InboundEvent pairs a received packet with the interface it arrived on,
// so a handler can answer "which interface should the reply go out on".
type InboundEvent struct {
	Packet       *packet.VirtualPacket
	ReceivedOn   Port
}
