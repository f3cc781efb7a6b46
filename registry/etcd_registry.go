// Package registry announces server endpoints so operators and tooling can
// find running listeners.
//
//	Key:   /mini-ack/{network}/{addr}
//	Value: JSON-encoded Endpoint
//
// Registration uses a TTL lease kept alive in the background: if the server
// dies without deregistering, the entry expires on its own.
package registry

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client
}

// NewEtcdRegistry creates a client for the given endpoints. The connection is
// established lazily by the etcd client.
func NewEtcdRegistry(endpoints []string, dialTimeout time.Duration) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c}, nil
}

// Register grants a lease of ttl seconds, writes the endpoint under it and
// keeps the lease alive until ctx passed to KeepAlive ends or the client closes.
func (r *EtcdRegistry) Register(ctx context.Context, ep Endpoint, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(ep)
	if err != nil {
		return err
	}

	if _, err := r.client.Put(ctx, key(ep), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	// KeepAlive must outlive the registration call, so it does not use ctx.
	ch, err := r.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
	}()
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, ep Endpoint) error {
	_, err := r.client.Delete(ctx, key(ep))
	return err
}

// Discover lists every endpoint announced for network.
func (r *EtcdRegistry) Discover(ctx context.Context, network string) ([]Endpoint, error) {
	resp, err := r.client.Get(ctx, prefix(network), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	endpoints := make([]Endpoint, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var ep Endpoint
		if err := json.Unmarshal(kv.Value, &ep); err != nil {
			continue // skip malformed entries
		}
		endpoints = append(endpoints, ep)
	}
	if len(endpoints) == 0 {
		return nil, ErrNotFound
	}
	return endpoints, nil
}

// Close releases the etcd client and with it every lease keep-alive.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
