// Package server implements the listening side.
//
// Stream (TCP):
//
//	Accept → go handleConn (one goroutine per connection)
//	  → ReadRequest (4 bytes) → handler chain → WriteAck (1 byte) → Close
//
// Datagram (UDP), a single loop:
//
//	ReadFrom → ParseRequest → handler chain → WriteTo(peer)
//
// The acceptor never waits on a connection, so a stalled peer only holds its
// own goroutine. Connection goroutines are tracked by a WaitGroup that Serve
// drains before it returns; Shutdown waits for Serve.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mini-ack/message"
	"mini-ack/middleware"
	"mini-ack/observability"
	"mini-ack/protocol"
	"mini-ack/registry"
	"mini-ack/transport"
)

// Server listens on one transport.
type Server struct {
	kind        transport.Kind
	opts        *Options
	logger      *zap.Logger
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc // user handler, PrintHandler by default
	chain       middleware.HandlerFunc // middlewares wrapped around handler, built in Serve

	mu         sync.Mutex
	listener   net.Listener   // stream only
	packetConn net.PacketConn // datagram only
	endpoint   *registry.Endpoint

	wg       sync.WaitGroup // in-flight connections, Add only on the Serve goroutine
	done     chan struct{}  // closed when Serve has returned
	shutdown atomic.Bool
	serving  atomic.Bool
}

func NewServer(kind transport.Kind, options ...Option) *Server {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}
	return &Server{
		kind:    kind,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("network", kind.String())),
		handler: PrintHandler(opts.Output),
		done:    make(chan struct{}),
	}
}

// Use registers a middleware. Middlewares run in the order they are added.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// Handle replaces the default PrintHandler.
func (s *Server) Handle(h middleware.HandlerFunc) {
	s.handler = h
}

// Listen binds addr (e.g. ":9000") on IPv4. Go listeners set SO_REUSEADDR, so
// a restart is not blocked by connections lingering in TIME_WAIT.
func (s *Server) Listen(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil || s.packetConn != nil {
		return fmt.Errorf("already listening on %s", s.addrLocked())
	}

	lc := net.ListenConfig{}
	var err error
	if s.kind == transport.KindStream {
		s.listener, err = lc.Listen(context.Background(), s.kind.Network(), addr)
	} else {
		s.packetConn, err = lc.ListenPacket(context.Background(), s.kind.Network(), addr)
	}
	if err != nil {
		return protocol.NewError(protocol.KindConnect, "bind", addr, err)
	}

	s.logger.Info("listening", zap.Stringer("addr", s.addrLocked()))
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil && s.packetConn == nil {
		return nil
	}
	return s.addrLocked()
}

func (s *Server) addrLocked() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return s.packetConn.LocalAddr()
}

// ListenAndServe binds addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	if err := s.Listen(addr); err != nil {
		return err
	}
	return s.Serve()
}

// Serve runs the accept or receive loop. It returns nil after Shutdown, once
// every in-flight connection has finished.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln, pc := s.listener, s.packetConn
	s.mu.Unlock()
	if ln == nil && pc == nil {
		return errors.New("server: Serve called before Listen")
	}
	if !s.serving.CompareAndSwap(false, true) {
		return errors.New("server: already serving")
	}
	defer close(s.done)

	// Build the chain once, not per request.
	s.chain = middleware.Chain(s.middlewares...)(s.handler)

	if err := s.announce(); err != nil {
		s.logger.Warn("registry announce failed", zap.Error(err))
	}

	if ln != nil {
		return s.serveStream(ln)
	}
	return s.serveDatagram(pc)
}

func (s *Server) serveStream(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			// A failed accept only loses that one connection.
			s.logger.Warn("accept failed", zap.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}

		s.wg.Add(1)
		observability.ActiveConnections.Inc()
		go s.handleConn(conn)
	}
}

// handleConn serves exactly one request on conn and closes it.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer observability.ActiveConnections.Dec()
	defer conn.Close()

	connID := uuid.NewString()
	logger := s.logger.With(zap.String("conn_id", connID), zap.String("peer", conn.RemoteAddr().String()))

	if s.opts.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
	}
	msg, err := protocol.ReadRequest(conn)
	if err != nil {
		observability.MalformedTotal.WithLabelValues(s.kind.String()).Inc()
		logger.Warn("read request failed", zap.Error(protocol.NewError(protocol.KindIO, "recv", conn.RemoteAddr().String(), err)))
		return
	}

	req := &message.Request{
		Msg:     msg,
		Peer:    conn.RemoteAddr(),
		Network: s.kind.String(),
		ConnID:  connID,
	}
	ack := s.chain(context.Background(), req)

	if s.opts.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if err := protocol.WriteAck(conn, ack); err != nil {
		logger.Warn("reply failed", zap.Error(protocol.NewError(protocol.KindIO, "reply", conn.RemoteAddr().String(), err)))
	}
}

func (s *Server) serveDatagram(pc net.PacketConn) error {
	// One byte larger than a request so oversized datagrams are detected
	// instead of silently truncated.
	buf := make([]byte, protocol.RequestSize+1)
	for {
		n, peer, err := pc.ReadFrom(buf)
		if err != nil {
			if s.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("receive failed", zap.Error(err))
			time.Sleep(10 * time.Millisecond)
			continue
		}

		ack := message.AckRejected
		msg, err := protocol.ParseRequest(buf[:n])
		if err != nil {
			observability.MalformedTotal.WithLabelValues(s.kind.String()).Inc()
			s.logger.Warn("malformed datagram", zap.String("peer", peer.String()), zap.Int("bytes", n), zap.Error(err))
		} else {
			ack = s.chain(context.Background(), &message.Request{
				Msg:     msg,
				Peer:    peer,
				Network: s.kind.String(),
			})
		}

		if _, err := pc.WriteTo([]byte{byte(ack)}, peer); err != nil {
			s.logger.Warn("reply failed", zap.String("peer", peer.String()), zap.Error(err))
		}
	}
}

func (s *Server) announce() error {
	if s.opts.Registry == nil {
		return nil
	}
	addr := s.opts.AdvertiseAddr
	if addr == "" {
		addr = s.Addr().String()
	}
	ep := registry.Endpoint{Addr: addr, Network: s.kind.String(), Weight: s.opts.Weight}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.opts.Registry.Register(ctx, ep, s.opts.RegistryTTL); err != nil {
		return err
	}

	s.mu.Lock()
	s.endpoint = &ep
	s.mu.Unlock()
	s.logger.Info("registered endpoint", zap.String("addr", ep.Addr))
	return nil
}

// Shutdown performs a graceful stop:
//  1. withdraw the endpoint from the registry, if any
//  2. set the shutdown flag, then close the socket (so the loop sees a clean exit)
//  3. wait up to timeout for Serve to drain in-flight connections and return
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	ep := s.endpoint
	s.endpoint = nil
	ln, pc := s.listener, s.packetConn
	s.mu.Unlock()

	if ep != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.opts.Registry.Deregister(ctx, *ep); err != nil {
			s.logger.Warn("registry deregister failed", zap.Error(err))
		}
		cancel()
	}

	s.shutdown.Store(true)
	if ln != nil {
		ln.Close()
	}
	if pc != nil {
		pc.Close()
	}

	if !s.serving.Load() {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for %s connections to finish", s.kind)
	}
}
