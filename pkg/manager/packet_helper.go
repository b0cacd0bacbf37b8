package manager

import "github.com/dreadstar/meshrabiya-core/pkg/packet"

// newPacket wraps an MMCP-encoded payload in a virtual packet addressed
// to toPort=0, the control-message slot the router treats specially.
func newPacket(toAddr, fromAddr, lastHopAddr uint32, hopCount, maxHops uint8, payload []byte) (*packet.VirtualPacket, error) {
	h := packet.Header{
		ToAddr:      toAddr,
		FromAddr:    fromAddr,
		LastHopAddr: lastHopAddr,
		ToPort:      0,
		FromPort:    0,
		HopCount:    hopCount,
		MaxHops:     maxHops,
		Protocol:    0,
	}
	return packet.NewVirtualPacket(h, payload)
}
