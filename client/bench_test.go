package client

import (
	"context"
	"io"
	"testing"
	"time"

	"mini-ack/loadbalance"
	"mini-ack/message"
	"mini-ack/registry"
	"mini-ack/server"
	"mini-ack/transport"
)

func setupServerAndClient(b *testing.B, kind transport.Kind) *Client {
	svr := server.NewServer(kind, server.WithOutput(io.Discard))
	if err := svr.Listen("127.0.0.1:0"); err != nil {
		b.Fatal(err)
	}
	go svr.Serve()
	b.Cleanup(func() { svr.Shutdown(3 * time.Second) })

	reg := registry.NewMemoryRegistry()
	reg.Register(context.Background(), registry.Endpoint{Addr: svr.Addr().String(), Network: kind.String()}, 10)

	return NewClient(WithRegistry(reg), WithBalancer(&loadbalance.RoundRobinBalancer{}), WithReplyTimeout(time.Second))
}

// One goroutine, one connection per send.
func BenchmarkSerialStream(b *testing.B) {
	cli := setupServerAndClient(b, transport.KindStream)
	msg := message.New(42)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := cli.SendDiscovered(context.Background(), transport.KindStream, msg); err != nil {
			b.Fatal(err)
		}
	}
}

// Many concurrent senders; each is served by its own server goroutine.
func BenchmarkConcurrentStream(b *testing.B) {
	cli := setupServerAndClient(b, transport.KindStream)
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		msg := message.New(42)
		for pb.Next() {
			if err := cli.SendDiscovered(context.Background(), transport.KindStream, msg); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func BenchmarkSerialDatagram(b *testing.B) {
	cli := setupServerAndClient(b, transport.KindDatagram)
	msg := message.New(42)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if err := cli.SendDiscovered(context.Background(), transport.KindDatagram, msg); err != nil {
			b.Fatal(err)
		}
	}
}
