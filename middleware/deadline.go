package middleware

import (
	"context"
	"time"
)

// Deadline bounds a whole exchange. The connection-level timeouts bound only
// individual read syscalls, so a caller that needs an overall limit on a
// blocking wait wraps the pipeline with this.
//
// On expiry the exchange is abandoned, not cancelled: the underlying wait
// keeps running until the connection's own timeout fires, and its eventual
// reply stays in the stream. Treat an expired exchange as grounds for
// tearing the session down.
func Deadline(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) *Result {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan *Result, 1)
			go func() {
				done <- next(ctx, cmd)
			}()

			select {
			case result := <-done:
				return result
			case <-ctx.Done():
				return &Result{Err: ctx.Err()}
			}
		}
	}
}
