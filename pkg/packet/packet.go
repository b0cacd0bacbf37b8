package packet

import "fmt"

// VirtualPacket is a Header paired with a payload whose length must
// match header.PayloadLen.
type VirtualPacket struct {
	Header  Header
	Payload []byte
}

// NewVirtualPacket builds a packet, setting h.PayloadLen from payload and
// rejecting payloads that would overflow the u16 length field.
func NewVirtualPacket(h Header, payload []byte) (*VirtualPacket, error) {
	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("packet: payload length %d exceeds u16 range", len(payload))
	}
	h.PayloadLen = uint16(len(payload))
	return &VirtualPacket{Header: h, Payload: payload}, nil
}

// Encode serializes p to its wire form: header followed by payload.
func (p *VirtualPacket) Encode() []byte {
	buf := EncodeHeader(p.Header)
	return append(buf, p.Payload...)
}

// Decode reads a VirtualPacket from buf, validating that the declared
// payloadLen matches the bytes actually present.
func Decode(buf []byte) (*VirtualPacket, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	rest := buf[HeaderSize:]
	if len(rest) < int(h.PayloadLen) {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrPayloadTruncated, len(rest), h.PayloadLen)
	}
	payload := make([]byte, h.PayloadLen)
	copy(payload, rest[:h.PayloadLen])
	return &VirtualPacket{Header: h, Payload: payload}, nil
}

// Forward produces the packet as it should appear after this node relays
// it onward: hopCount incremented, lastHopAddr set to myAddr, everything
// else unchanged. It refuses to forward a packet that has exhausted its
// hop budget.
func Forward(p *VirtualPacket, myAddr uint32) (*VirtualPacket, error) {
	if uint32(p.Header.HopCount)+1 >= uint32(p.Header.MaxHops) {
		return nil, ErrTTLExceeded
	}
	next := p.Header
	next.HopCount++
	next.LastHopAddr = myAddr
	return &VirtualPacket{Header: next, Payload: p.Payload}, nil
}
