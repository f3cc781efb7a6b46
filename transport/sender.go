// Package transport implements the sending side of the exchange and the
// timed receive shared by client and server.
//
// One send is strictly sequential:
//
//	Resolve → dial/open → write 4 bytes → RecvTimeout(1 byte) → close
//
// The reply wait is the only deadline. Its result is folded into one of three
// outcomes the caller can tell apart: accepted (nil), no reply (ErrTimeout),
// and failure (ErrConnect / ErrIO / ErrProtocol).
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"mini-ack/message"
	"mini-ack/protocol"
)

// DefaultReplyTimeout is how long a sender waits for the ack byte.
const DefaultReplyTimeout = 3 * time.Second

// SendOptions tune a single send.
type SendOptions struct {
	ReplyTimeout time.Duration
	DialTimeout  time.Duration // 0 means no dial timeout beyond ctx
	Logger       *zap.Logger
}

func (o SendOptions) withDefaults() SendOptions {
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = DefaultReplyTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// SendStream connects to the first reachable candidate, sends wire and waits
// for the ack.
func SendStream(ctx context.Context, candidates []Candidate, wire uint32, opts SendOptions) error {
	opts = opts.withDefaults()

	conn, cand, err := dialFirst(ctx, candidates, opts)
	if err != nil {
		return err
	}
	defer conn.Close()

	addr := cand.String()
	if err := protocol.WriteRequest(conn, wire); err != nil {
		return protocol.NewError(protocol.KindIO, "send", addr, err)
	}

	var reply [protocol.AckSize]byte
	res := RecvTimeout(conn, reply[:], opts.ReplyTimeout)
	return interpretReply(res, reply[:], addr, opts.ReplyTimeout)
}

// SendDatagram opens a UDP socket for the first usable candidate, sends wire
// as one datagram and waits for a one-byte reply datagram.
func SendDatagram(ctx context.Context, candidates []Candidate, wire uint32, opts SendOptions) error {
	opts = opts.withDefaults()

	var (
		pc   net.PacketConn
		cand Candidate
		errs []error
	)
	lc := net.ListenConfig{}
	for _, c := range candidates {
		p, err := lc.ListenPacket(ctx, c.Network, ":0")
		if err != nil {
			opts.Logger.Debug("open datagram socket failed", zap.String("candidate", c.String()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		pc, cand = p, c
		break
	}
	if pc == nil {
		return protocol.NewError(protocol.KindConnect, "socket", "", joinOrNoCandidates(errs))
	}
	defer pc.Close()

	addr := cand.String()
	buf := protocol.AppendRequest(make([]byte, 0, protocol.RequestSize), wire)
	n, err := pc.WriteTo(buf, net.UDPAddrFromAddrPort(cand.Addr))
	if err != nil {
		return protocol.NewError(protocol.KindIO, "send", addr, err)
	}
	if n != protocol.RequestSize {
		return protocol.NewError(protocol.KindIO, "send", addr, io.ErrShortWrite)
	}

	var reply [protocol.AckSize]byte
	deadline := time.Now().Add(opts.ReplyTimeout)
	for {
		res := RecvFromTimeout(pc, reply[:], time.Until(deadline))
		if res.Outcome == OutcomeData && !fromPeer(res.Peer, cand.Addr) {
			// Stray datagram; keep waiting for the candidate within the same deadline.
			opts.Logger.Debug("ignoring reply from unexpected source", zap.Stringer("from", res.Peer), zap.String("want", addr))
			continue
		}
		return interpretReply(res, reply[:], addr, opts.ReplyTimeout)
	}
}

// fromPeer reports whether a datagram source is the candidate it was sent to.
func fromPeer(src net.Addr, want netip.AddrPort) bool {
	ua, ok := src.(*net.UDPAddr)
	if !ok {
		return false
	}
	ap := ua.AddrPort()
	return ap.Addr().Unmap() == want.Addr().Unmap() && ap.Port() == want.Port()
}

func dialFirst(ctx context.Context, candidates []Candidate, opts SendOptions) (net.Conn, Candidate, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	var errs []error
	for _, c := range candidates {
		conn, err := d.DialContext(ctx, c.Network, c.String())
		if err != nil {
			opts.Logger.Debug("connect failed", zap.String("candidate", c.String()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		return conn, c, nil
	}
	return nil, Candidate{}, protocol.NewError(protocol.KindConnect, "dial", "", joinOrNoCandidates(errs))
}

func interpretReply(res RecvResult, reply []byte, addr string, timeout time.Duration) error {
	switch {
	case res.Outcome == OutcomeTimeout:
		return protocol.NewError(protocol.KindTimeout, "reply", addr, fmt.Errorf("no reply within %s", timeout))
	case res.Outcome == OutcomeError:
		return protocol.NewError(protocol.KindIO, "reply", addr, res.Err)
	case res.N == 0:
		return protocol.NewError(protocol.KindIO, "reply", addr, fmt.Errorf("peer closed without reply: %w", io.ErrUnexpectedEOF))
	case message.Ack(reply[0]) != message.AckAccepted:
		return protocol.NewError(protocol.KindProtocol, "reply", addr, fmt.Errorf("unexpected reply 0x%02x", reply[0]))
	default:
		return nil
	}
}

func joinOrNoCandidates(errs []error) error {
	if len(errs) == 0 {
		return errors.New("no candidate addresses")
	}
	return errors.Join(errs...)
}
