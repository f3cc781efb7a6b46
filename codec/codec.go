// Package codec packs a Message into the single 32-bit word sent on the wire.
//
//	 31 30                                                   0
//	┌──┬──────────────────────────────────────────────────────┐
//	│v │                     payload (31 bits)                 │
//	└──┴──────────────────────────────────────────────────────┘
//
// Encode and Decode work on host-order words and are total. AppendWire and
// Unmarshal do the host/network conversion (big-endian).
package codec

import (
	"errors"
	"fmt"

	"mini-ack/message"
)

const (
	payloadMask uint32 = 0x7FFFFFFF
	versionBit         = 31
)

var (
	ErrPayloadRange = errors.New("codec: payload exceeds 31 bits")
	ErrShortMessage = errors.New("codec: message must be exactly 4 bytes")
)

// Encode packs version and payload. Bits of payload above bit 30 are dropped,
// callers that care use Pack.
func Encode(version uint8, payload uint32) uint32 {
	return (payload & payloadMask) | (uint32(version&1) << versionBit)
}

// Decode is the inverse of Encode.
func Decode(wire uint32) (version uint8, payload uint32) {
	return uint8(wire >> versionBit), wire & payloadMask
}

// Pack checks the payload range before encoding.
func Pack(m message.Message) (uint32, error) {
	if m.Payload > message.MaxPayload {
		return 0, fmt.Errorf("%w: %d", ErrPayloadRange, m.Payload)
	}
	return Encode(m.Version, m.Payload), nil
}

// Unpack rebuilds a Message from a wire word.
func Unpack(wire uint32) message.Message {
	v, p := Decode(wire)
	return message.Message{Version: v, Payload: p}
}
