package codec

import (
	"encoding/binary"
	"fmt"

	"mini-ack/message"
)

// Size is the encoded length of a Message in bytes.
const Size = 4

// AppendWire appends the 4-byte network-order form of wire to b.
func AppendWire(b []byte, wire uint32) []byte {
	return binary.BigEndian.AppendUint32(b, wire)
}

// Unmarshal parses exactly 4 network-order bytes.
func Unmarshal(data []byte) (message.Message, error) {
	if len(data) != Size {
		return message.Message{}, fmt.Errorf("%w: got %d", ErrShortMessage, len(data))
	}
	return Unpack(binary.BigEndian.Uint32(data)), nil
}
