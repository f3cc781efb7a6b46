package registry

import (
	"context"
	"errors"
)

// Endpoint is one announced listener.
type Endpoint struct {
	Addr    string `json:"addr"`             // routable host:port, e.g. "10.0.0.5:9000"
	Network string `json:"network"`          // "tcp" or "udp"
	Weight  int    `json:"weight,omitempty"` // relative share for weighted balancing, 0 counts as 1
}

var ErrNotFound = errors.New("registry: no endpoints")

type Registry interface {
	Register(ctx context.Context, ep Endpoint, ttl int64) error
	Deregister(ctx context.Context, ep Endpoint) error
	Discover(ctx context.Context, network string) ([]Endpoint, error)
}

func key(ep Endpoint) string {
	return prefix(ep.Network) + ep.Addr
}

func prefix(network string) string {
	return "/mini-ack/" + network + "/"
}
