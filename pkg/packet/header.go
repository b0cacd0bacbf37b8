// Package packet implements the virtual packet model: a fixed 22-byte
// header carrying virtual addressing and hop-count/TTL fields, wrapping
// an arbitrary payload. Headers are always big-endian on the wire.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed on-wire size of Header, in bytes.
const HeaderSize = 22

var (
	// ErrHeaderTruncated is returned when fewer than HeaderSize bytes are
	// available to decode.
	ErrHeaderTruncated = errors.New("packet: header truncated")
	// ErrPayloadTruncated is returned when fewer bytes than payloadLen
	// remain after the header.
	ErrPayloadTruncated = errors.New("packet: payload truncated")
	// ErrTTLExceeded is returned by Forward when a packet has exhausted
	// its hop budget and must be dropped rather than forwarded.
	ErrTTLExceeded = errors.New("packet: ttl exceeded")
)

// Header is the fixed 22-byte virtual packet header:
//
//	toAddr       u32
//	fromAddr     u32
//	lastHopAddr  u32
//	toPort       u16
//	fromPort     u16
//	hopCount     u8
//	maxHops      u8
//	protocol     u8
//	reserved     u8
//	payloadLen   u16
type Header struct {
	ToAddr      uint32
	FromAddr    uint32
	LastHopAddr uint32
	ToPort      uint16
	FromPort    uint16
	HopCount    uint8
	MaxHops     uint8
	Protocol    uint8
	PayloadLen  uint16
}

// EncodeHeader writes h's fixed wire layout into a new HeaderSize-byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.ToAddr)
	binary.BigEndian.PutUint32(buf[4:8], h.FromAddr)
	binary.BigEndian.PutUint32(buf[8:12], h.LastHopAddr)
	binary.BigEndian.PutUint16(buf[12:14], h.ToPort)
	binary.BigEndian.PutUint16(buf[14:16], h.FromPort)
	buf[16] = h.HopCount
	buf[17] = h.MaxHops
	buf[18] = h.Protocol
	buf[19] = 0 // reserved
	binary.BigEndian.PutUint16(buf[20:22], h.PayloadLen)
	return buf
}

// DecodeHeader reads a Header from the first HeaderSize bytes of buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: have %d bytes, need %d", ErrHeaderTruncated, len(buf), HeaderSize)
	}
	return Header{
		ToAddr:      binary.BigEndian.Uint32(buf[0:4]),
		FromAddr:    binary.BigEndian.Uint32(buf[4:8]),
		LastHopAddr: binary.BigEndian.Uint32(buf[8:12]),
		ToPort:      binary.BigEndian.Uint16(buf[12:14]),
		FromPort:    binary.BigEndian.Uint16(buf[14:16]),
		HopCount:    buf[16],
		MaxHops:     buf[17],
		Protocol:    buf[18],
		PayloadLen:  binary.BigEndian.Uint16(buf[20:22]),
	}, nil
}
