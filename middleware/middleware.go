// Package middleware composes interceptors around the command pipeline.
//
// A HandlerFunc performs one command exchange (send the request, wait for
// the correlated reply); middlewares wrap it to add logging, rate limiting
// or an overall deadline. The engine itself never retries and never bounds a
// whole logical wait — those policies live here, in the caller's hands.
package middleware

import (
	"context"

	"armlink/protocol"
)

// Command is one outbound command: its descriptor and opaque payload.
type Command struct {
	Desc    protocol.Descriptor
	Payload []byte
}

// Result is the outcome of one exchange.
type Result struct {
	Payload []byte
	Err     error
}

type HandlerFunc func(ctx context.Context, cmd *Command) *Result

type Middleware func(next HandlerFunc) HandlerFunc

// Chain folds multiple middlewares into one; the first listed runs
// outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
