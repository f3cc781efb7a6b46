// Package middleware wraps the server's per-request handler.
//
//	Chain(A, B, C)(h) → A(B(C(h)))
//	A.before → B.before → C.before → h → C.after → B.after → A.after
//
// A handler always returns an Ack; there is no error path because the reply
// byte is the only thing the peer ever sees.
package middleware

import (
	"context"

	"mini-ack/message"
)

type HandlerFunc func(ctx context.Context, req *message.Request) message.Ack

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines several middlewares into one.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
