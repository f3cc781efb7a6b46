package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"mini-ack/message"
)

// RateLimitMiddleware rejects requests beyond r per second (token bucket
// with the given burst). Rejected requests are still answered, with AckRejected.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Ack {
			if !limiter.Allow() {
				return message.AckRejected
			}
			return next(ctx, req)
		}
	}
}
