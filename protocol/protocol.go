// Package protocol implements the request/ack framing.
//
// There is no header: a request is exactly one encoded Message, an ack is
// exactly one byte.
//
//	request:  ┌────────────────────┐      ack:  ┌──┐
//	          │ wire word (4B, BE) │            │a │
//	          └────────────────────┘            └──┘
package protocol

import (
	"fmt"
	"io"

	"mini-ack/codec"
	"mini-ack/message"
)

const (
	RequestSize = codec.Size
	AckSize     = 1
)

// WriteRequest writes the 4-byte request. net.Conn.Write loops until every
// byte is out or an error occurs, so a nil error means the whole word was sent.
func WriteRequest(w io.Writer, wire uint32) error {
	_, err := w.Write(AppendRequest(make([]byte, 0, RequestSize), wire))
	return err
}

// AppendRequest appends the network-order form of wire to b.
func AppendRequest(b []byte, wire uint32) []byte {
	return codec.AppendWire(b, wire)
}

// ReadRequest reads exactly one request from a stream.
// Uses io.ReadFull so a request split across segments is still read whole.
func ReadRequest(r io.Reader) (message.Message, error) {
	var buf [RequestSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return message.Message{}, err
	}
	return codec.Unmarshal(buf[:])
}

// ParseRequest reads a request out of a single datagram. Any length other
// than RequestSize is codec.ErrShortMessage.
func ParseRequest(datagram []byte) (message.Message, error) {
	m, err := codec.Unmarshal(datagram)
	if err != nil {
		return message.Message{}, fmt.Errorf("malformed request: %w", err)
	}
	return m, nil
}

// WriteAck writes the one-byte reply.
func WriteAck(w io.Writer, ack message.Ack) error {
	_, err := w.Write([]byte{byte(ack)})
	return err
}
