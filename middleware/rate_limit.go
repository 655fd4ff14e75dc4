package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited reports a command rejected by the token bucket.
var ErrRateLimited = errors.New("command rate limit exceeded")

// RateLimit bounds the command rate with a token bucket: r commands per
// second sustained, burst allowed at once. Rejected commands are never sent.
func RateLimit(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) *Result {
			if !limiter.Allow() {
				return &Result{Err: ErrRateLimited}
			}
			return next(ctx, cmd)
		}
	}
}
