// Package loadbalance picks which announced endpoint a client tries first.
//
//   - RoundRobin:     equal-capacity servers
//   - WeightedRandom: servers announced with different weights
package loadbalance

import (
	"errors"

	"mini-ack/registry"
)

var ErrNoEndpoints = errors.New("no endpoints available")

// Balancer selects one endpoint. Pick is called once per send and must be
// goroutine-safe.
type Balancer interface {
	Pick(endpoints []registry.Endpoint) (*registry.Endpoint, error)
	Name() string
}

// Order returns endpoints with the balancer's pick first and the rest in
// their original order, so a send can fall through to the others.
func Order(b Balancer, endpoints []registry.Endpoint) ([]registry.Endpoint, error) {
	picked, err := b.Pick(endpoints)
	if err != nil {
		return nil, err
	}
	out := make([]registry.Endpoint, 0, len(endpoints))
	out = append(out, *picked)
	for _, ep := range endpoints {
		if ep.Addr != picked.Addr {
			out = append(out, ep)
		}
	}
	return out, nil
}

// New returns the balancer registered under name, RoundRobin by default.
func New(name string) Balancer {
	switch name {
	case "weighted_random", "WeightedRandom":
		return &WeightedRandomBalancer{}
	default:
		return &RoundRobinBalancer{}
	}
}
