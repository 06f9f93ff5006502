// Package bulk runs a single-order workflow over many orders with bounded
// concurrency.
package bulk

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/metrics"
	"github.com/iliamunaev/order-fulfillment/internal/model"
	"github.com/iliamunaev/order-fulfillment/internal/service/pool"
	"github.com/iliamunaev/order-fulfillment/internal/service/tracker"
)

// Workflow processes one order. pipeline.Pipeline satisfies it.
type Workflow interface {
	Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome
}

// WorkflowFunc adapts a function to Workflow.
type WorkflowFunc func(ctx context.Context, order model.Order, customer model.Customer) model.Outcome

// Run calls f.
func (f WorkflowFunc) Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome {
	return f(ctx, order, customer)
}

// Dispatcher fans orders out to a Workflow.
type Dispatcher struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// New returns a Dispatcher. Both arguments may be nil.
func New(logger *slog.Logger, m *metrics.Recorder) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:  logger.With("component", "bulk"),
		metrics: m,
	}
}

// RunAll runs wf for every order whose customer resolves through lookup,
// with at most maxConcurrency workflows in flight. maxConcurrency is clamped
// to [1, pool.MaxSize].
//
// Orders whose customer is missing are skipped and get no entry. Every other
// order gets exactly one: its workflow's outcome, an internal failure if the
// workflow panicked, or a cancellation if ctx ended before it could start.
// Orders sharing an ID keep the last outcome written.
func (d *Dispatcher) RunAll(ctx context.Context, orders []model.Order, lookup model.CustomerLookup, wf Workflow, maxConcurrency int) *Results {
	slots := pool.New(maxConcurrency)
	var tr tracker.Tracker
	results := NewResults(len(orders))

	d.logger.Info("dispatching orders", "orders", len(orders), "max_concurrency", slots.Size())

	var g errgroup.Group
	for i, order := range orders {
		customer, ok := lookup.Lookup(order.CustomerID)
		if !ok {
			d.logger.Debug("skipping order, customer not found", "order_id", order.ID, "customer_id", order.CustomerID)
			d.metrics.Skipped()
			continue
		}

		if err := slots.Acquire(ctx); err != nil {
			d.cancelRemaining(orders[i:], lookup, results, err)
			break
		}

		g.Go(func() error {
			defer slots.Release()
			tr.Inc()
			defer tr.Dec()
			d.metrics.InflightInc()
			defer d.metrics.InflightDec()

			results.Set(order.ID, d.invoke(ctx, wf, order, customer))
			return nil
		})
	}

	_ = g.Wait()
	results.setPeak(tr.Peak())

	d.logger.Info("dispatch finished", "results", results.Len(), "peak_concurrency", tr.Peak())
	return results
}

// invoke runs one workflow and turns a panic into that order's outcome.
func (d *Dispatcher) invoke(ctx context.Context, wf Workflow, order model.Order, customer model.Customer) (out model.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("workflow panicked", "order_id", order.ID, "panic", p)
			out = model.Failed(order.ID, model.StepWorkflow, fmt.Errorf("%w: panic: %v", apperr.ErrInternal, p))
		}
	}()
	return wf.Run(ctx, order, customer)
}

// cancelRemaining gives every not-yet-started resolved order an outcome
// carrying cause.
func (d *Dispatcher) cancelRemaining(rest []model.Order, lookup model.CustomerLookup, results *Results, cause error) {
	canceled := 0
	for _, order := range rest {
		if _, ok := lookup.Lookup(order.CustomerID); !ok {
			continue
		}
		results.Set(order.ID, model.Failed(order.ID, model.StepWorkflow, cause))
		canceled++
	}
	d.logger.Warn("dispatch interrupted", "canceled", canceled, "error", cause)
}
