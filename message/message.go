// Package message defines the values exchanged between client and server.
//
// A Message is the logical request: a version tag and a 31-bit payload. It is
// built by the sender right before encoding, sent once, rebuilt by the receiver
// right after decoding, and then dropped.
package message

import "net"

const (
	Version    uint8  = 1
	MaxPayload uint32 = 0x7FFFFFFF // The top bit of the wire word carries the version flag
)

// Message carries a single numeric request.
type Message struct {
	Version uint8  // Only the low bit survives encoding
	Payload uint32 // Must be <= MaxPayload
}

// New returns a Message with the current protocol version.
func New(payload uint32) Message {
	return Message{Version: Version, Payload: payload}
}

// Ack is the one-byte reply sent back for every request.
type Ack byte

const (
	AckRejected Ack = 0x00
	AckAccepted Ack = 0x01
)

func (a Ack) String() string {
	switch a {
	case AckAccepted:
		return "accepted"
	case AckRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Request is what the server hands to its handler chain.
//
//   - Network is "tcp" or "udp".
//   - ConnID identifies a stream connection; empty for datagrams.
type Request struct {
	Msg     Message
	Peer    net.Addr
	Network string
	ConnID  string
}
