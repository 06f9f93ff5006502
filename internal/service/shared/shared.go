// Package shared provides the latency and failure behavior common to the
// simulated external systems, and cancellation-aware sleeps.
package shared

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/iliamunaev/order-fulfillment/internal/service/tracker"
)

// Behavior describes how a simulated operation performs.
//
// NegativeRate is the probability of an authoritative "no" (out of stock,
// declined). FaultRate is the probability of a transient fault. Both are
// ignored by operations that have no such outcome.
type Behavior struct {
	Latency      time.Duration `yaml:"latency"`
	NegativeRate float64       `yaml:"negative_rate"`
	FaultRate    float64       `yaml:"fault_rate"`
}

// Roll returns a float in [0, 1). It must be safe for concurrent use.
type Roll func() float64

// DefaultRoll draws from the global math/rand/v2 source.
func DefaultRoll() float64 { return rand.Float64() }

// Fixed returns a Roll that always yields v.
func Fixed(v float64) Roll { return func() float64 { return v } }

// Faulted reports whether this call should fail transiently.
func (b Behavior) Faulted(roll Roll) bool {
	return b.FaultRate > 0 && roll() < b.FaultRate
}

// Negative reports whether this call should answer "no".
func (b Behavior) Negative(roll Roll) bool {
	return b.NegativeRate > 0 && roll() < b.NegativeRate
}

// SleepOrDone waits for the duration or returns early on context cancellation.
func SleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Options carries the collaborators every simulated system accepts.
// Zero values are replaced with defaults by Defaults.
type Options struct {
	Tracker *tracker.Tracker
	Roll    Roll
	Logger  *slog.Logger
}

// Defaults fills unset fields.
func (o Options) Defaults(component string) Options {
	if o.Tracker == nil {
		o.Tracker = &tracker.Tracker{}
	}
	if o.Roll == nil {
		o.Roll = DefaultRoll
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	o.Logger = o.Logger.With("component", component)
	return o
}
