package resolver

import (
	"context"
	"errors"
)

var (
	ErrUnavailable = errors.New("backend unreachable")
	ErrMalformed   = errors.New("malformed backend response")
	ErrTimeout     = errors.New("resolver deadline exceeded")
	ErrPanic       = errors.New("resolver panicked")
)

// Kind classifies a resolver failure for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, ErrUnavailable):
		return "unreachable"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	}
	return "error"
}
