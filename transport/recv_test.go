package transport

import (
	"net"
	"testing"
	"time"
)

func TestRecvTimeoutStream(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	conn, err := net.Dial("tcp4", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	peer := <-accepted
	defer peer.Close()

	buf := make([]byte, 1)

	// Nobody writes: same call path must report a timeout...
	start := time.Now()
	res := RecvTimeout(conn, buf, 200*time.Millisecond)
	if res.Outcome != OutcomeTimeout {
		t.Fatalf("expect timeout, got %v (err=%v)", res.Outcome, res.Err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("returned too early: %s", elapsed)
	}

	// ...and data once the peer replies inside the deadline.
	go func() {
		time.Sleep(50 * time.Millisecond)
		peer.Write([]byte{1})
	}()
	res = RecvTimeout(conn, buf, time.Second)
	if res.Outcome != OutcomeData || res.N != 1 || buf[0] != 1 {
		t.Fatalf("expect data(1)=0x01, got %v n=%d buf=%v err=%v", res.Outcome, res.N, buf, res.Err)
	}

	// Orderly shutdown reads as zero bytes of data.
	peer.Close()
	res = RecvTimeout(conn, buf, time.Second)
	if res.Outcome != OutcomeData || res.N != 0 {
		t.Fatalf("expect data(0) on close, got %v n=%d err=%v", res.Outcome, res.N, res.Err)
	}
}

func TestRecvFromTimeoutDatagram(t *testing.T) {
	a, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	buf := make([]byte, 8)
	res := RecvFromTimeout(a, buf, 100*time.Millisecond)
	if res.Outcome != OutcomeTimeout {
		t.Fatalf("expect timeout, got %v", res.Outcome)
	}

	if _, err := b.WriteTo([]byte{9, 8}, a.LocalAddr()); err != nil {
		t.Fatal(err)
	}
	res = RecvFromTimeout(a, buf, time.Second)
	if res.Outcome != OutcomeData || res.N != 2 {
		t.Fatalf("expect data(2), got %v n=%d err=%v", res.Outcome, res.N, res.Err)
	}
	if res.Peer == nil || res.Peer.String() != b.LocalAddr().String() {
		t.Fatalf("expect peer %s, got %v", b.LocalAddr(), res.Peer)
	}
}

func TestRecvTimeoutClosedConn(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	pc.Close()

	res := RecvFromTimeout(pc, make([]byte, 1), time.Second)
	if res.Outcome != OutcomeError || res.Err == nil {
		t.Fatalf("expect error outcome, got %v", res.Outcome)
	}
}
