package middleware

import (
	"context"
	"runtime/debug"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
)

// ErrPanic is wrapped by errors returned from Recover after a panic.
var ErrPanic = errors.New("panic recovered")

// Recover runs fn and turns a panic into an error wrapping ErrPanic.
// The stack trace is logged to the context logger.
func Recover(ctx context.Context, scope string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Str("scope", scope).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("PANIC recovered")
			err = errors.Wrapf(ErrPanic, "%s: %v", scope, r)
		}
	}()
	return fn()
}
