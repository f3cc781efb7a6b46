package client

import (
	"context"
	"net"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"mini-ack/codec"
	"mini-ack/loadbalance"
	"mini-ack/message"
	"mini-ack/protocol"
	"mini-ack/registry"
	"mini-ack/transport"
)

// Client sends one message per call and waits for the one-byte ack.
// A Client holds no sockets between calls and is safe for concurrent use.
type Client struct {
	replyTimeout time.Duration
	dialTimeout  time.Duration
	logger       *zap.Logger
	resolver     *net.Resolver
	registry     registry.Registry // optional, used by SendDiscovered
	balancer     loadbalance.Balancer
}

type Option func(*Client)

// WithReplyTimeout bounds the wait for the ack. Default 3s.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.replyTimeout = d
		}
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithResolver(r *net.Resolver) Option {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithRegistry lets SendDiscovered find a server without a host and port.
func WithRegistry(reg registry.Registry) Option {
	return func(c *Client) {
		c.registry = reg
	}
}

// WithBalancer chooses which discovered endpoint is tried first. Default
// RoundRobin.
func WithBalancer(b loadbalance.Balancer) Option {
	return func(c *Client) {
		if b != nil {
			c.balancer = b
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		replyTimeout: transport.DefaultReplyTimeout,
		logger:       zap.NewNop(),
		resolver:     net.DefaultResolver,
		balancer:     &loadbalance.RoundRobinBalancer{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send resolves host, delivers the packed wire word over kind and waits for
// the ack. The returned error is nil or a *protocol.Error.
func (c *Client) Send(ctx context.Context, kind transport.Kind, host string, port int, wire uint32) error {
	candidates, err := transport.Resolve(ctx, c.resolver, host, port, kind)
	if err != nil {
		return err
	}
	return c.send(ctx, kind, candidates, wire)
}

// SendMessage packs msg and sends it. Payloads above message.MaxPayload are
// a config error; nothing is sent.
func (c *Client) SendMessage(ctx context.Context, kind transport.Kind, host string, port int, msg message.Message) error {
	wire, err := codec.Pack(msg)
	if err != nil {
		return protocol.NewError(protocol.KindConfig, "pack", "", err)
	}
	return c.Send(ctx, kind, host, port, wire)
}

// SendDiscovered sends msg to the endpoints announced for kind. The
// balancer's pick is tried first, then the others in registry order. The
// registry lookup is bounded by the dial timeout.
func (c *Client) SendDiscovered(ctx context.Context, kind transport.Kind, msg message.Message) error {
	if c.registry == nil {
		return protocol.Configf("no registry configured")
	}
	wire, err := codec.Pack(msg)
	if err != nil {
		return protocol.NewError(protocol.KindConfig, "pack", "", err)
	}

	dctx := ctx
	if c.dialTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()
	}
	endpoints, err := c.registry.Discover(dctx, kind.String())
	if err != nil {
		return protocol.NewError(protocol.KindResolution, "discover", kind.String(), err)
	}
	endpoints, err = loadbalance.Order(c.balancer, endpoints)
	if err != nil {
		return protocol.NewError(protocol.KindResolution, "discover", kind.String(), err)
	}
	c.logger.Debug("discovered endpoints",
		zap.String("balancer", c.balancer.Name()),
		zap.Int("count", len(endpoints)),
		zap.String("first", endpoints[0].Addr))

	var candidates []transport.Candidate
	for _, ep := range endpoints {
		ap, err := netip.ParseAddrPort(ep.Addr)
		if err != nil || !ap.Addr().Unmap().Is4() {
			c.logger.Debug("skipping endpoint", zap.String("addr", ep.Addr))
			continue
		}
		candidates = append(candidates, transport.Candidate{
			Network: kind.Network(),
			Addr:    netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()),
		})
	}
	if len(candidates) == 0 {
		return protocol.NewError(protocol.KindResolution, "discover", kind.String(), registry.ErrNotFound)
	}
	return c.send(ctx, kind, candidates, wire)
}

func (c *Client) send(ctx context.Context, kind transport.Kind, candidates []transport.Candidate, wire uint32) error {
	opts := transport.SendOptions{
		ReplyTimeout: c.replyTimeout,
		DialTimeout:  c.dialTimeout,
		Logger:       c.logger,
	}

	var err error
	if kind == transport.KindStream {
		err = transport.SendStream(ctx, candidates, wire, opts)
	} else {
		err = transport.SendDatagram(ctx, candidates, wire, opts)
	}
	if err != nil {
		c.logger.Debug("send failed", zap.String("network", kind.String()), zap.Error(err))
		return err
	}
	c.logger.Debug("acknowledged", zap.String("network", kind.String()))
	return nil
}
