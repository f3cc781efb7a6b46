package middleware

import (
	"context"
	"time"

	"mini-ack/message"
)

// TimeoutMiddleware answers AckRejected if the handler does not finish within
// timeout. The handler goroutine is left to finish on its own; it sees ctx
// cancelled.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Ack {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan message.Ack, 1)
			go func() {
				done <- next(ctx, req)
			}()

			select {
			case ack := <-done:
				return ack
			case <-ctx.Done():
				return message.AckRejected
			}
		}
	}
}
