// Package pipeline implements the order fulfillment workflows: sequential,
// concurrent, async, compensating and hardened. Each turns one order and its
// customer into exactly one model.Outcome.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/metrics"
	"github.com/iliamunaev/order-fulfillment/internal/model"
	"github.com/iliamunaev/order-fulfillment/internal/retry"
	"github.com/iliamunaev/order-fulfillment/internal/service"
)

// Pipeline names.
const (
	NameSequential   = "sequential"
	NameConcurrent   = "concurrent"
	NameAsync        = "async"
	NameCompensating = "compensating"
	NameHardened     = "hardened"
)

// DefaultReleaseTimeout bounds a compensating release, which runs detached
// from the workflow's context.
const DefaultReleaseTimeout = 5 * time.Second

// Pipeline runs a single order workflow. Business failures are reported in
// the Outcome, never as a panic.
type Pipeline interface {
	Name() string
	Run(ctx context.Context, order model.Order, customer model.Customer) model.Outcome
}

// Deps are the collaborators shared by every pipeline.
type Deps struct {
	Adapter service.Adapter
	Logger  *slog.Logger
	Metrics *metrics.Recorder

	// Notifications tracks fire-and-forget confirmations. When nil each
	// pipeline gets its own.
	Notifications *Notifications

	// ReleaseTimeout bounds compensating releases.
	ReleaseTimeout time.Duration
}

// core is embedded by every pipeline.
type core struct {
	name           string
	adapter        service.Adapter
	logger         *slog.Logger
	metrics        *metrics.Recorder
	notifications  *Notifications
	releaseTimeout time.Duration
}

func newCore(name string, d Deps) core {
	if err := d.Adapter.Validate(); err != nil {
		panic(fmt.Sprintf("pipeline.%s: %v", name, err))
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.ReleaseTimeout <= 0 {
		d.ReleaseTimeout = DefaultReleaseTimeout
	}
	logger := d.Logger.With("pipeline", name)
	if d.Notifications == nil {
		d.Notifications = NewNotifications(d.Adapter.Notifier, logger, d.Metrics)
	}
	return core{
		name:           name,
		adapter:        d.Adapter,
		logger:         logger,
		metrics:        d.Metrics,
		notifications:  d.Notifications,
		releaseTimeout: d.ReleaseTimeout,
	}
}

// Name returns the pipeline's registry name.
func (c *core) Name() string { return c.name }

// Drain waits for this pipeline's in-flight confirmations.
func (c *core) Drain(ctx context.Context) error { return c.notifications.Drain(ctx) }

// begin starts one invocation. A nil retrier means one attempt per step.
func (c *core) begin(order model.Order, customer model.Customer, retrier *retry.Retrier) *run {
	return &run{
		core:     c,
		order:    order,
		customer: customer,
		retrier:  retrier,
		start:    time.Now(),
		logger:   c.logger.With("order_id", order.ID),
	}
}

// run is the state of one workflow invocation. Steps may record from
// several goroutines, so everything mutable sits behind mu.
type run struct {
	*core
	order    model.Order
	customer model.Customer
	retrier  *retry.Retrier
	start    time.Time
	logger   *slog.Logger

	mu          sync.Mutex
	steps       []model.StepResult
	released    bool
	compensated bool

	finished sync.Once
	outcome  model.Outcome
}

func (r *run) record(name string, start time.Time, err error) {
	res := model.StepResult{
		Name:       name,
		Status:     model.StepOK,
		DurationMS: time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
	case apperr.Negative(err):
		res.Status = model.StepNegative
		res.Detail = apperr.Kind(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.Status = model.StepCanceled
	default:
		res.Status = model.StepError
		res.Detail = apperr.Kind(err)
	}

	r.mu.Lock()
	r.steps = append(r.steps, res)
	r.mu.Unlock()
}

var stepOrder = map[string]int{
	model.StepAvailability: 0,
	model.StepPayment:      1,
	model.StepReserve:      2,
	model.StepQuote:        3,
	model.StepRelease:      4,
	model.StepPickup:       5,
	model.StepConfirmation: 6,
}

// snapshot returns the recorded steps in a fixed order so the result does
// not depend on which goroutine finished first.
func (r *run) snapshot() []model.StepResult {
	r.mu.Lock()
	out := slices.Clone(r.steps)
	r.mu.Unlock()

	slices.SortStableFunc(out, func(a, b model.StepResult) int {
		return cmp.Compare(stepOrder[a.Name], stepOrder[b.Name])
	})
	return out
}

// finish builds the invocation's single Outcome, logs it and records it.
// Only the first call builds; later calls return the same Outcome.
func (r *run) finish(tracking, failedStep string, err error) model.Outcome {
	r.finished.Do(func() { r.outcome = r.build(tracking, failedStep, err) })
	return r.outcome
}

func (r *run) build(tracking, failedStep string, err error) model.Outcome {
	var out model.Outcome
	if err == nil && tracking != "" {
		out = model.Succeeded(r.order.ID, tracking)
	} else {
		if err == nil {
			err = fmt.Errorf("%w: workflow ended without a tracking id", apperr.ErrInternal)
		}
		if failedStep == "" {
			failedStep = model.StepWorkflow
		}
		out = model.Failed(r.order.ID, failedStep, err)
	}

	r.mu.Lock()
	out.Compensated = r.compensated
	r.mu.Unlock()
	out.Steps = r.snapshot()
	out.Elapsed = time.Since(r.start)

	r.metrics.Outcome(r.name, out.Kind(), out.Elapsed)

	switch {
	case out.OK():
		r.logger.Info("order fulfilled", "tracking_id", out.TrackingID, "elapsed", out.Elapsed)
	case apperr.Negative(out.Err):
		r.logger.Info("order declined", "step", out.FailedStep, "kind", out.Kind(),
			"compensated", out.Compensated, "elapsed", out.Elapsed)
	default:
		r.logger.Warn("order failed", "step", out.FailedStep, "kind", out.Kind(),
			"compensated", out.Compensated, "elapsed", out.Elapsed, "error", out.Err)
	}
	return out
}

// call runs one step, retrying it when the invocation has a retrier, and
// records it. A panic inside the step becomes an apperr.ErrInternal error.
func call[T any](ctx context.Context, r *run, name string, fn func(context.Context) (T, error)) (T, error) {
	if r.retrier == nil {
		return once(ctx, r, name, fn)
	}
	return once(ctx, r, name, func(ctx context.Context) (T, error) {
		return retry.Do(ctx, r.retrier, name, fn)
	})
}

// once runs one step a single time and records it.
func once[T any](ctx context.Context, r *run, name string, fn func(context.Context) (T, error)) (v T, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			var zero T
			v, err = zero, fmt.Errorf("%s: %w: panic: %v", name, apperr.ErrInternal, p)
		}
		r.record(name, start, err)
	}()
	return fn(ctx)
}

func void(fn func(context.Context) error) func(context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}

// The step bodies below turn the adapter's boolean answers into errors so
// every step has the same shape. A false answer becomes a business negative.

func (r *run) available(ctx context.Context) (bool, error) {
	ok, err := r.adapter.Inventory.CheckAvailability(ctx, r.order.ID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("order %d: %w", r.order.ID, apperr.ErrUnavailable)
	}
	return true, nil
}

func (r *run) charge(ctx context.Context) (bool, error) {
	ok, err := r.adapter.Payments.Charge(ctx, r.order.ID, r.order.Total())
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("order %d: %w", r.order.ID, apperr.ErrPaymentDeclined)
	}
	return true, nil
}

func (r *run) reserve(ctx context.Context) error {
	return r.adapter.Inventory.Reserve(ctx, r.order.ID)
}

func (r *run) quote(ctx context.Context) (string, error) {
	q, err := r.adapter.Shipping.Quote(ctx, r.order.ID, r.customer.City)
	if err != nil {
		return "", err
	}
	r.logger.Debug("shipping quoted", "city", r.customer.City, "quote", q.StringFixed(2))
	return q.StringFixed(2), nil
}

func (r *run) pickup(ctx context.Context) (string, error) {
	return r.adapter.Shipping.SchedulePickup(ctx, r.order.ID)
}

// confirm sends the confirmation and waits for it. A failed send is logged;
// it never changes the outcome.
func (r *run) confirm(ctx context.Context, tracking string) {
	_, _ = once(ctx, r, model.StepConfirmation, void(func(ctx context.Context) error {
		return r.notifications.Send(ctx, r.customer.Email, r.order.ID, tracking)
	}))
}

// confirmLater dispatches the confirmation without waiting for it.
func (r *run) confirmLater(ctx context.Context, tracking string) {
	r.notifications.Fire(ctx, r.customer.Email, r.order.ID, tracking)
}

// compensate releases the order's reservation. It runs at most once per
// invocation, on a context detached from the workflow's cancellation.
func (r *run) compensate(ctx context.Context) {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.releaseTimeout)
	defer cancel()

	r.metrics.Compensation(r.name)
	_, err := once(ctx, r, model.StepRelease, void(func(ctx context.Context) error {
		return r.adapter.Inventory.Release(ctx, r.order.ID)
	}))
	if err != nil {
		r.logger.Error("release failed, reservation may be orphaned", "error", err)
		return
	}

	r.mu.Lock()
	r.compensated = true
	r.mu.Unlock()
	r.logger.Info("reservation released")
}
