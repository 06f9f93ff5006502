package pipeline

import (
	"context"

	"github.com/iliamunaev/order-fulfillment/internal/model"
)

// Sequential runs every step one after another and stops at the first
// failure. Nothing is compensated: payment precedes reservation.
type Sequential struct {
	core
}

// NewSequential returns a Sequential pipeline.
func NewSequential(d Deps) *Sequential {
	return &Sequential{core: newCore(NameSequential, d)}
}

// Run processes the order.
func (s *Sequential) Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome {
	r := s.begin(order, customer, nil)
	tracking, step, err := s.execute(ctx, r)
	return r.finish(tracking, step, err)
}

func (s *Sequential) execute(ctx context.Context, r *run) (string, string, error) {
	if _, err := call(ctx, r, model.StepAvailability, r.available); err != nil {
		return "", model.StepAvailability, err
	}
	if _, err := call(ctx, r, model.StepPayment, r.charge); err != nil {
		return "", model.StepPayment, err
	}
	if _, err := call(ctx, r, model.StepReserve, void(r.reserve)); err != nil {
		return "", model.StepReserve, err
	}
	if _, err := call(ctx, r, model.StepQuote, r.quote); err != nil {
		return "", model.StepQuote, err
	}
	tracking, err := call(ctx, r, model.StepPickup, r.pickup)
	if err != nil {
		return "", model.StepPickup, err
	}

	r.confirm(ctx, tracking)
	return tracking, "", nil
}
