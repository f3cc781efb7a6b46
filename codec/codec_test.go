package codec

import (
	"errors"
	"math/rand"
	"testing"

	"mini-ack/message"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := []uint32{0, 1, 42, 0xFFFF, 0x40000000, message.MaxPayload}
	for i := 0; i < 1000; i++ {
		payloads = append(payloads, rand.Uint32()&message.MaxPayload)
	}

	for _, p := range payloads {
		for _, v := range []uint8{0, 1} {
			gotV, gotP := Decode(Encode(v, p))
			if gotV != v&1 || gotP != p {
				t.Fatalf("Decode(Encode(%d, %d)) = (%d, %d)", v, p, gotV, gotP)
			}
		}
	}
}

func TestEncodeVersionBit(t *testing.T) {
	if got := Encode(1, 0); got != 0x80000000 {
		t.Fatalf("expect 0x80000000, got %#x", got)
	}
	if got := Encode(0, 42); got != 42 {
		t.Fatalf("expect 42, got %#x", got)
	}
	// only the low bit of version is kept
	if got := Encode(2, 7); got != 7 {
		t.Fatalf("expect 7, got %#x", got)
	}
}

func TestPackRejectsOversizedPayload(t *testing.T) {
	_, err := Pack(message.Message{Version: 1, Payload: message.MaxPayload + 1})
	if !errors.Is(err, ErrPayloadRange) {
		t.Fatalf("expect ErrPayloadRange, got %v", err)
	}

	wire, err := Pack(message.New(message.MaxPayload))
	if err != nil {
		t.Fatal(err)
	}
	if wire != 0xFFFFFFFF {
		t.Fatalf("expect 0xFFFFFFFF, got %#x", wire)
	}
}

func TestWireNetworkOrder(t *testing.T) {
	wire, err := Pack(message.New(42))
	if err != nil {
		t.Fatal(err)
	}
	data := AppendWire(nil, wire)
	want := []byte{0x80, 0x00, 0x00, 0x2A}
	if string(data) != string(want) {
		t.Fatalf("expect % x, got % x", want, data)
	}

	m, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Version != 1 || m.Payload != 42 {
		t.Fatalf("expect {1 42}, got %+v", m)
	}
}

func TestUnmarshalWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 8} {
		if _, err := Unmarshal(make([]byte, n)); !errors.Is(err, ErrShortMessage) {
			t.Errorf("len %d: expect ErrShortMessage, got %v", n, err)
		}
	}
}

func BenchmarkWireRoundTrip(b *testing.B) {
	wire := Encode(message.Version, 123456)
	buf := make([]byte, 0, Size)
	for i := 0; i < b.N; i++ {
		Unmarshal(AppendWire(buf[:0], wire))
	}
}
