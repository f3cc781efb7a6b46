package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// Outcome tags the result of a timed receive.
type Outcome int

const (
	OutcomeData    Outcome = iota // N bytes were read (N may be 0 on orderly shutdown)
	OutcomeTimeout                // nothing arrived before the deadline
	OutcomeError                  // arming the deadline or the read itself failed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeData:
		return "data"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// RecvResult is what RecvTimeout and RecvFromTimeout return.
type RecvResult struct {
	Outcome Outcome
	N       int
	Peer    net.Addr // set for datagram receives only
	Err     error    // set when Outcome == OutcomeError
}

// RecvTimeout waits up to timeout for data on a connected stream socket and
// performs exactly one read.
func RecvTimeout(conn net.Conn, buf []byte, timeout time.Duration) RecvResult {
	return recvWithDeadline(conn.SetReadDeadline, timeout, func() (int, net.Addr, error) {
		n, err := conn.Read(buf)
		return n, nil, err
	})
}

// RecvFromTimeout is RecvTimeout for a datagram socket; the peer address of
// the received datagram is reported in RecvResult.Peer.
func RecvFromTimeout(pc net.PacketConn, buf []byte, timeout time.Duration) RecvResult {
	return recvWithDeadline(pc.SetReadDeadline, timeout, func() (int, net.Addr, error) {
		return pc.ReadFrom(buf)
	})
}

func recvWithDeadline(setDeadline func(time.Time) error, timeout time.Duration, read func() (int, net.Addr, error)) RecvResult {
	if err := setDeadline(time.Now().Add(timeout)); err != nil {
		return RecvResult{Outcome: OutcomeError, Err: err}
	}
	defer setDeadline(time.Time{})

	n, peer, err := read()
	switch {
	case err == nil:
		return RecvResult{Outcome: OutcomeData, N: n, Peer: peer}
	case errors.Is(err, os.ErrDeadlineExceeded):
		return RecvResult{Outcome: OutcomeTimeout}
	case errors.Is(err, io.EOF):
		return RecvResult{Outcome: OutcomeData, N: n, Peer: peer}
	default:
		return RecvResult{Outcome: OutcomeError, N: n, Peer: peer, Err: err}
	}
}
