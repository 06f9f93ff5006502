package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/order-fulfillment/internal/model"
)

// Concurrent launches the independent probes (availability, payment and
// shipping quote) together, waits for all of them, then reserves and
// schedules the pickup in order. The confirmation is not waited for.
//
// Payment runs alongside the availability check, so an order can be charged
// and still be rejected as unavailable.
type Concurrent struct {
	core
}

// NewConcurrent returns a Concurrent pipeline.
func NewConcurrent(d Deps) *Concurrent {
	return &Concurrent{core: newCore(NameConcurrent, d)}
}

// Run processes the order.
func (c *Concurrent) Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome {
	r := c.begin(order, customer, nil)
	tracking, step, err := c.execute(ctx, r)
	return r.finish(tracking, step, err)
}

func (c *Concurrent) execute(ctx context.Context, r *run) (string, string, error) {
	// The probes do not share a cancelling context: each runs to completion
	// whatever the others answer.
	var (
		g                          errgroup.Group
		availErr, payErr, quoteErr error
	)
	g.Go(func() error {
		_, availErr = call(ctx, r, model.StepAvailability, r.available)
		return availErr
	})
	g.Go(func() error {
		_, payErr = call(ctx, r, model.StepPayment, r.charge)
		return payErr
	})
	g.Go(func() error {
		_, quoteErr = call(ctx, r, model.StepQuote, r.quote)
		return quoteErr
	})

	if err := g.Wait(); err != nil {
		switch {
		case availErr != nil:
			return "", model.StepAvailability, availErr
		case payErr != nil:
			return "", model.StepPayment, payErr
		default:
			return "", model.StepQuote, quoteErr
		}
	}

	if _, err := call(ctx, r, model.StepReserve, void(r.reserve)); err != nil {
		return "", model.StepReserve, err
	}
	tracking, err := call(ctx, r, model.StepPickup, r.pickup)
	if err != nil {
		return "", model.StepPickup, err
	}

	r.confirmLater(ctx, tracking)
	return tracking, "", nil
}
