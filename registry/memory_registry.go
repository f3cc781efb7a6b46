package registry

import (
	"context"
	"sort"
	"sync"
)

// MemoryRegistry is an in-process Registry. TTLs are ignored.
type MemoryRegistry struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{endpoints: make(map[string]Endpoint)}
}

func (m *MemoryRegistry) Register(_ context.Context, ep Endpoint, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[key(ep)] = ep
	return nil
}

func (m *MemoryRegistry) Deregister(_ context.Context, ep Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.endpoints, key(ep))
	return nil
}

func (m *MemoryRegistry) Discover(_ context.Context, network string) ([]Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Endpoint
	for _, ep := range m.endpoints {
		if ep.Network == network {
			out = append(out, ep)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out, nil
}
