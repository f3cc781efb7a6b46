package middleware

import (
	"context"
	"time"

	"mini-ack/message"
	"mini-ack/observability"
)

func MetricsMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Ack {
			start := time.Now()
			ack := next(ctx, req)
			observability.RequestsTotal.WithLabelValues(req.Network, ack.String()).Inc()
			observability.RequestDuration.WithLabelValues(req.Network).Observe(time.Since(start).Seconds())
			return ack
		}
	}
}
