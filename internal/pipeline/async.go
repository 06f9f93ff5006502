package pipeline

import (
	"context"
	"errors"

	"github.com/iliamunaev/order-fulfillment/internal/future"
	"github.com/iliamunaev/order-fulfillment/internal/model"
)

// Async expresses the Concurrent dependency graph as composed futures:
// availability and payment are joined, the join gates reservation and
// pickup, and the quote is started and discarded. Any failure from any
// stage, panics included, maps to a failed Outcome.
type Async struct {
	core
}

// NewAsync returns an Async pipeline.
func NewAsync(d Deps) *Async {
	return &Async{core: newCore(NameAsync, d)}
}

// stepError tags a stage failure with the step that produced it, so the
// Outcome names the step whose error it carries.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func atStep[T any](step string, v T, err error) (T, error) {
	if err != nil {
		return v, &stepError{step: step, err: err}
	}
	return v, nil
}

// Submit starts the workflow and returns its eventual Outcome. The future
// only fails if ctx ends before the Outcome is ready.
func (a *Async) Submit(ctx context.Context, order model.Order, customer model.Customer) *future.Future[model.Outcome] {
	return a.submit(ctx, a.begin(order, customer, nil))
}

func (a *Async) submit(ctx context.Context, r *run) *future.Future[model.Outcome] {
	avail := future.Go(ctx, func(ctx context.Context) (bool, error) {
		ok, err := call(ctx, r, model.StepAvailability, r.available)
		return atStep(model.StepAvailability, ok, err)
	})
	paid := future.Go(ctx, func(ctx context.Context) (bool, error) {
		ok, err := call(ctx, r, model.StepPayment, r.charge)
		return atStep(model.StepPayment, ok, err)
	})
	_ = future.Go(ctx, func(ctx context.Context) (string, error) {
		return call(ctx, r, model.StepQuote, r.quote)
	})

	ready := future.Combine(ctx, avail, paid, func(inStock, charged bool) (bool, error) {
		return inStock && charged, nil
	})
	fulfilled := future.Compose(ctx, ready, func(ctx context.Context, _ bool) (model.Outcome, error) {
		if _, err := call(ctx, r, model.StepReserve, void(r.reserve)); err != nil {
			return atStep(model.StepReserve, model.Outcome{}, err)
		}
		tracking, err := call(ctx, r, model.StepPickup, r.pickup)
		if err != nil {
			return atStep(model.StepPickup, model.Outcome{}, err)
		}
		r.confirmLater(ctx, tracking)
		return r.finish(tracking, "", nil), nil
	})

	return future.Recover(ctx, fulfilled, func(err error) model.Outcome {
		step := model.StepWorkflow
		var se *stepError
		if errors.As(err, &se) {
			step, err = se.step, se.err
		}
		return r.finish("", step, err)
	})
}

// Run submits the workflow and waits for its Outcome. If ctx ends first,
// the invocation finishes as a workflow failure carrying ctx's error.
func (a *Async) Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome {
	r := a.begin(order, customer, nil)
	out, err := a.submit(ctx, r).Await(ctx)
	if err != nil {
		return r.finish("", model.StepWorkflow, err)
	}
	return out
}
