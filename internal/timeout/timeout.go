// Package timeout runs a unit of work under a deadline and tears it down
// when the deadline passes.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
)

// DefaultGrace bounds how long a timed-out caller waits for the abandoned
// worker to observe cancellation.
const DefaultGrace = 50 * time.Millisecond

// Executor bounds a unit of work by Deadline.
type Executor struct {
	deadline time.Duration
	grace    time.Duration
	clock    clockz.Clock
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock sets the clock the deadline is measured on.
func WithClock(c clockz.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New returns an Executor. A negative grace is treated as zero.
func New(deadline, grace time.Duration, opts ...Option) *Executor {
	if grace < 0 {
		grace = 0
	}
	e := &Executor{
		deadline: deadline,
		grace:    grace,
		clock:    clockz.RealClock,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "timeout")
	return e
}

// Deadline returns the configured deadline.
func (e *Executor) Deadline() time.Duration { return e.deadline }

// Grace returns the configured teardown grace.
func (e *Executor) Grace() time.Duration { return e.grace }

type result[T any] struct {
	v   T
	err error
}

// Run calls fn on its own goroutine with a context that ends at the
// deadline. A result produced in time is returned unchanged.
//
// Otherwise fn's context is cancelled and Run waits at most the grace period
// for fn to return before reporting a *apperr.TimeoutError. If the caller's
// ctx was cancelled first, its error is returned instead. The worker sends on
// a buffered channel, so it exits even when nobody is left to receive.
func Run[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	unitCtx, cancel := e.clock.WithTimeout(ctx, e.deadline)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result[T]{err: fmt.Errorf("%w: panic: %v", apperr.ErrInternal, p)}
			}
		}()
		v, err := fn(unitCtx)
		done <- result[T]{v: v, err: err}
	}()

	select {
	case res := <-done:
		return res.v, res.err
	case <-unitCtx.Done():
	}

	cancel()
	select {
	case <-done:
	case <-e.clock.After(e.grace):
		e.logger.Warn("worker still running after grace period", "deadline", e.deadline, "grace", e.grace)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return zero, ctx.Err()
	}
	e.logger.Warn("unit of work timed out", "deadline", e.deadline)
	return zero, &apperr.TimeoutError{After: e.deadline}
}
