package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"mini-ack/protocol"
)

// Candidate is one resolved endpoint for a single send.
type Candidate struct {
	Network string // "tcp4" or "udp4"
	Addr    netip.AddrPort
}

func (c Candidate) String() string { return c.Addr.String() }

// Resolve looks up IPv4 addresses for host and pairs each with port. The
// returned slice belongs to the caller and lives only as long as one send or
// bind; nothing is cached between calls.
func Resolve(ctx context.Context, resolver *net.Resolver, host string, port int, kind Kind) ([]Candidate, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	target := net.JoinHostPort(host, strconv.Itoa(port))
	if port < 0 || port > 65535 {
		return nil, protocol.NewError(protocol.KindResolution, "resolve", target, fmt.Errorf("port out of range"))
	}

	ips, err := resolver.LookupNetIP(ctx, "ip4", host)
	if err != nil {
		return nil, protocol.NewError(protocol.KindResolution, "resolve", target, err)
	}

	candidates := make([]Candidate, 0, len(ips))
	for _, ip := range ips {
		candidates = append(candidates, Candidate{
			Network: kind.Network(),
			Addr:    netip.AddrPortFrom(ip.Unmap(), uint16(port)),
		})
	}
	if len(candidates) == 0 {
		return nil, protocol.NewError(protocol.KindResolution, "resolve", target, fmt.Errorf("no IPv4 address"))
	}
	return candidates, nil
}
