package transport

import (
	"strings"

	"mini-ack/protocol"
)

// Kind selects the transport family.
type Kind int

const (
	KindStream   Kind = iota // connection-oriented (TCP)
	KindDatagram             // connectionless (UDP)
)

// ParseKind accepts "tcp" and "udp" in any case.
func ParseKind(s string) (Kind, error) {
	switch {
	case strings.EqualFold(s, "tcp"):
		return KindStream, nil
	case strings.EqualFold(s, "udp"):
		return KindDatagram, nil
	default:
		return 0, protocol.Configf("invalid transport %q, use tcp or udp", s)
	}
}

func (k Kind) String() string {
	if k == KindDatagram {
		return "udp"
	}
	return "tcp"
}

// Network returns the IPv4-only network name for net.Dial / net.Listen.
func (k Kind) Network() string {
	if k == KindDatagram {
		return "udp4"
	}
	return "tcp4"
}
