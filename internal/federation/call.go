package federation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"heekkr/internal/resolver"
)

type outcome[T any] struct {
	val T
	err error
}

// guardedCall runs fn under its own deadline and turns a panic into
// resolver.ErrPanic. When the deadline passes first the call is abandoned:
// fn keeps its goroutine until it returns, but its result is discarded.
func guardedCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome[T]{err: fmt.Errorf("%w: %v\n%s", resolver.ErrPanic, p, debug.Stack())}
			}
		}()
		v, err := fn(ctx)
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(o.err, resolver.ErrPanic) {
			return o.val, fmt.Errorf("%w: %v", resolver.ErrTimeout, o.err)
		}
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", resolver.ErrTimeout, timeout)
		}
		return zero, ctx.Err()
	}
}
