package middleware

import (
	"context"

	"go.uber.org/zap"

	"mini-ack/message"
)

// RecoveryMiddleware turns a handler panic into AckRejected so one bad
// request cannot take down the accept or receive loop.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) (ack message.Ack) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panic", zap.Any("panic", r), zap.String("network", req.Network))
					ack = message.AckRejected
				}
			}()
			return next(ctx, req)
		}
	}
}
