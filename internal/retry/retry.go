// Package retry runs a single operation with bounded-attempt exponential
// backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
)

// Policy bounds how an operation is retried. Each call to Do owns its own
// attempt counter; a Policy carries no mutable state.
type Policy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultPolicy tries three times, waiting 100ms then 200ms.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, Multiplier: 2}
}

// Validate reports a policy that cannot run.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base_delay must not be negative, got %s", p.BaseDelay)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1, got %g", p.Multiplier)
	}
	return nil
}

// maxDelay is the longest wait Delay returns.
const maxDelay = time.Duration(math.MaxInt64)

// Delay returns the wait after failed attempt n (1-indexed):
// BaseDelay * Multiplier^(n-1), saturating at maxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if d >= float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}

// Metrics receives retry events. *metrics.Recorder satisfies it.
type Metrics interface {
	Retry(operation string)
	Exhausted(operation string)
}

type noMetrics struct{}

func (noMetrics) Retry(string)     {}
func (noMetrics) Exhausted(string) {}

// Retrier applies a Policy. It is safe for concurrent use.
type Retrier struct {
	policy  Policy
	clock   clockz.Clock
	logger  *slog.Logger
	metrics Metrics
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithClock sets the clock backoff waits are measured on.
func WithClock(c clockz.Clock) Option {
	return func(r *Retrier) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retrier) { r.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(r *Retrier) { r.metrics = m }
}

// New returns a Retrier for p.
func New(p Policy, opts ...Option) *Retrier {
	r := &Retrier{
		policy:  p,
		clock:   clockz.RealClock,
		logger:  slog.Default(),
		metrics: noMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.MaxAttempts < 1 {
		r.policy.MaxAttempts = 1
	}
	r.logger = r.logger.With("component", "retry")
	return r
}

// Policy returns the policy r applies.
func (r *Retrier) Policy() Policy { return r.policy }

// Do calls op until it succeeds or the policy's attempts are spent.
//
// A business negative (apperr.Negative) is an answer, not a fault, and is
// returned at once. So is a failure caused by ctx ending. If every attempt
// fails the result is a *apperr.RetryError wrapping the last cause. If ctx
// ends during a backoff wait, ctx.Err() is returned.
func Do[T any](ctx context.Context, r *Retrier, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("operation recovered", "op", name, "attempt", attempt)
			}
			return v, nil
		}
		if apperr.Negative(err) {
			return v, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return zero, err
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Warn("operation failed, backing off",
			"op", name,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		r.metrics.Retry(name)

		select {
		case <-r.clock.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	r.metrics.Exhausted(name)
	r.logger.Error("operation exhausted retries", "op", name, "attempts", r.policy.MaxAttempts, "error", lastErr)
	return zero, &apperr.RetryError{Op: name, Attempts: r.policy.MaxAttempts, Err: lastErr}
}
