package pipeline

import (
	"context"
	"fmt"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/model"
)

// Compensating reserves before charging and releases the reservation when
// the charge does not go through. Any failure after reservation and before
// a completed payment, panics included, triggers the same release. Once
// payment is captured nothing is undone.
type Compensating struct {
	core
}

// NewCompensating returns a Compensating pipeline.
func NewCompensating(d Deps) *Compensating {
	return &Compensating{core: newCore(NameCompensating, d)}
}

// Run processes the order.
func (c *Compensating) Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome {
	r := c.begin(order, customer, nil)
	tracking, step, err := compensated(ctx, r, r.confirm)
	return r.finish(tracking, step, err)
}

// compensated is the reserve-then-charge workflow shared by Compensating and
// Hardened. notify delivers the confirmation.
func compensated(ctx context.Context, r *run, notify func(context.Context, string)) (tracking, step string, err error) {
	var reserved, paid bool
	defer func() {
		if p := recover(); p != nil {
			tracking, step = "", model.StepWorkflow
			err = fmt.Errorf("%w: panic: %v", apperr.ErrInternal, p)
		}
		if err != nil && reserved && !paid {
			r.compensate(ctx)
		}
	}()

	if _, err := call(ctx, r, model.StepAvailability, r.available); err != nil {
		return "", model.StepAvailability, err
	}

	if _, err := call(ctx, r, model.StepReserve, void(r.reserve)); err != nil {
		return "", model.StepReserve, err
	}
	reserved = true

	if _, err := call(ctx, r, model.StepPayment, r.charge); err != nil {
		return "", model.StepPayment, err
	}
	paid = true

	if _, err := call(ctx, r, model.StepQuote, r.quote); err != nil {
		return "", model.StepQuote, err
	}
	tracking, err = call(ctx, r, model.StepPickup, r.pickup)
	if err != nil {
		return "", model.StepPickup, err
	}

	notify(ctx, tracking)
	return tracking, "", nil
}
