package pipeline

import (
	"context"

	"github.com/iliamunaev/order-fulfillment/internal/model"
	"github.com/iliamunaev/order-fulfillment/internal/retry"
	"github.com/iliamunaev/order-fulfillment/internal/timeout"
)

// Hardened is the compensating workflow with every forward step retried,
// the confirmation sent in the background and the whole run bounded by a
// deadline. Releases are never retried.
type Hardened struct {
	core
	retrier *retry.Retrier
	timeout *timeout.Executor
}

// NewHardened returns a Hardened pipeline. It panics if retrier or ex is nil.
func NewHardened(d Deps, retrier *retry.Retrier, ex *timeout.Executor) *Hardened {
	if retrier == nil {
		panic("pipeline.NewHardened: nil retrier")
	}
	if ex == nil {
		panic("pipeline.NewHardened: nil timeout executor")
	}
	return &Hardened{
		core:    newCore(NameHardened, d),
		retrier: retrier,
		timeout: ex,
	}
}

type result struct {
	tracking string
	step     string
	err      error
}

// Run processes the order. If the deadline passes, the outcome is a timeout
// and the abandoned attempt releases its own reservation as it unwinds.
// A timed out outcome is a snapshot taken when the grace period ends: a
// release that completes after that is not reflected in Compensated or
// Steps, only in the inventory and the compensation metric.
func (h *Hardened) Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome {
	r := h.begin(order, customer, h.retrier)

	res, err := timeout.Run(ctx, h.timeout, func(ctx context.Context) (result, error) {
		tracking, step, err := compensated(ctx, r, r.confirmLater)
		return result{tracking: tracking, step: step, err: err}, nil
	})
	if err != nil {
		return r.finish("", model.StepWorkflow, err)
	}
	return r.finish(res.tracking, res.step, res.err)
}
