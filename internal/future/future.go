// Package future provides a small typed future for composing concurrent
// steps: start work, join two results, chain a dependent step and map
// failures to values.
package future

import (
	"context"
	"fmt"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
)

// Future is the eventual result of a computation running on its own
// goroutine. It completes exactly once.
type Future[T any] struct {
	done chan struct{}
	v    T
	err  error
}

// Go starts fn on a new goroutine. A panic in fn completes the future with
// an error matching apperr.ErrInternal.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if p := recover(); p != nil {
				f.err = fmt.Errorf("%w: panic: %v", apperr.ErrInternal, p)
			}
		}()
		f.v, f.err = fn(ctx)
	}()
	return f
}

// Completed returns a future that already holds v.
func Completed[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), v: v}
	close(f.done)
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until f completes or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.v, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Combine joins two futures. It waits for both; if either failed, the first
// one's error wins, otherwise fn merges the values.
func Combine[A, B, C any](ctx context.Context, fa *Future[A], fb *Future[B], fn func(A, B) (C, error)) *Future[C] {
	return Go(ctx, func(ctx context.Context) (C, error) {
		var zero C
		a, errA := fa.Await(ctx)
		b, errB := fb.Await(ctx)
		if errA != nil {
			return zero, errA
		}
		if errB != nil {
			return zero, errB
		}
		return fn(a, b)
	})
}

// Compose runs fn with f's value once f succeeds. A failure of f skips fn
// and passes through.
func Compose[A, B any](ctx context.Context, f *Future[A], fn func(context.Context, A) (B, error)) *Future[B] {
	return Go(ctx, func(ctx context.Context) (B, error) {
		var zero B
		a, err := f.Await(ctx)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a)
	})
}

// Recover maps a failure of f to a value. The returned future never fails
// unless ctx ends first.
func Recover[T any](ctx context.Context, f *Future[T], fn func(error) T) *Future[T] {
	return Go(ctx, func(ctx context.Context) (T, error) {
		v, err := f.Await(ctx)
		if err != nil {
			return fn(err), nil
		}
		return v, nil
	})
}
