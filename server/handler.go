package server

import (
	"context"
	"fmt"
	"io"
	"sync"

	"mini-ack/message"
	"mini-ack/middleware"
)

// PrintHandler writes "the sent number is: N" for every request and accepts
// it. Writes are serialized so concurrent connections never interleave lines.
func PrintHandler(w io.Writer) middleware.HandlerFunc {
	var mu sync.Mutex
	return func(ctx context.Context, req *message.Request) message.Ack {
		mu.Lock()
		fmt.Fprintf(w, "the sent number is: %d\n", req.Msg.Payload)
		mu.Unlock()
		return message.AckAccepted
	}
}
