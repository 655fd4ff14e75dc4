package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Logging records every exchange: command name, duration and outcome.
func Logging(logger zerolog.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, cmd *Command) *Result {
			start := time.Now()
			result := next(ctx, cmd)
			evt := logger.Debug()
			if result.Err != nil {
				evt = logger.Error().Err(result.Err)
			}
			evt.Str("command", cmd.Desc.Name).
				Dur("duration", time.Since(start)).
				Msg("command exchange")
			return result
		}
	}
}
