package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mini-ack/message"
)

func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.Request) message.Ack {
			start := time.Now()
			ack := next(ctx, req)
			fields := []zap.Field{
				zap.String("network", req.Network),
				zap.Uint32("payload", req.Msg.Payload),
				zap.Uint8("version", req.Msg.Version),
				zap.Stringer("ack", ack),
				zap.Duration("duration", time.Since(start)),
			}
			if req.Peer != nil {
				fields = append(fields, zap.String("peer", req.Peer.String()))
			}
			if req.ConnID != "" {
				fields = append(fields, zap.String("conn_id", req.ConnID))
			}
			if ack != message.AckAccepted {
				logger.Warn("request rejected", fields...)
			} else {
				logger.Debug("request handled", fields...)
			}
			return ack
		}
	}
}
