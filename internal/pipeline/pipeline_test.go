package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/order-fulfillment/internal/model"
	"github.com/iliamunaev/order-fulfillment/internal/retry"
	"github.com/iliamunaev/order-fulfillment/internal/service"
	"github.com/iliamunaev/order-fulfillment/internal/service/tracker"
	"github.com/iliamunaev/order-fulfillment/internal/timeout"
)

// --- stub adapter ---

// stubAdapter implements every collaborator, counts calls and succeeds
// unless a hook says otherwise. Hooks receive the 1-indexed call number.
type stubAdapter struct {
	probes tracker.Tracker

	mu      sync.Mutex
	calls   map[string]int
	charged []decimal.Decimal
	sent    []string

	check   func(ctx context.Context, n int) (bool, error)
	charge  func(ctx context.Context, n int) (bool, error)
	reserve func(ctx context.Context, n int) error
	release func(ctx context.Context, n int) error
	quote   func(ctx context.Context, n int) (decimal.Decimal, error)
	pickup  func(ctx context.Context, n int) (string, error)
	notify  func(ctx context.Context, n int) error
}

func newStub() *stubAdapter {
	return &stubAdapter{calls: make(map[string]int)}
}

func (s *stubAdapter) hit(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
	return s.calls[name]
}

func (s *stubAdapter) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubAdapter) adapter() service.Adapter {
	return service.Adapter{Inventory: s, Payments: s, Shipping: s, Notifier: s}
}

func (s *stubAdapter) CheckAvailability(ctx context.Context, _ int64) (bool, error) {
	s.probes.Inc()
	defer s.probes.Dec()
	n := s.hit(model.StepAvailability)
	if s.check != nil {
		return s.check(ctx, n)
	}
	return true, nil
}

func (s *stubAdapter) Charge(ctx context.Context, _ int64, amount decimal.Decimal) (bool, error) {
	s.probes.Inc()
	defer s.probes.Dec()
	n := s.hit(model.StepPayment)
	s.mu.Lock()
	s.charged = append(s.charged, amount)
	s.mu.Unlock()
	if s.charge != nil {
		return s.charge(ctx, n)
	}
	return true, nil
}

func (s *stubAdapter) Reserve(ctx context.Context, _ int64) error {
	n := s.hit(model.StepReserve)
	if s.reserve != nil {
		return s.reserve(ctx, n)
	}
	return nil
}

func (s *stubAdapter) Release(ctx context.Context, _ int64) error {
	n := s.hit(model.StepRelease)
	if s.release != nil {
		return s.release(ctx, n)
	}
	return nil
}

func (s *stubAdapter) Quote(ctx context.Context, _ int64, _ string) (decimal.Decimal, error) {
	s.probes.Inc()
	defer s.probes.Dec()
	n := s.hit(model.StepQuote)
	if s.quote != nil {
		return s.quote(ctx, n)
	}
	return decimal.RequireFromString("12.50"), nil
}

func (s *stubAdapter) SchedulePickup(ctx context.Context, _ int64) (string, error) {
	n := s.hit(model.StepPickup)
	if s.pickup != nil {
		return s.pickup(ctx, n)
	}
	return "TRK-test", nil
}

func (s *stubAdapter) SendConfirmation(ctx context.Context, email string, _ int64, _ string) error {
	n := s.hit(model.StepConfirmation)
	s.mu.Lock()
	s.sent = append(s.sent, email)
	s.mu.Unlock()
	if s.notify != nil {
		return s.notify(ctx, n)
	}
	return nil
}

// --- fixtures ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeps(s *stubAdapter) Deps {
	return Deps{Adapter: s.adapter(), Logger: discardLogger()}
}

func testRetrier() *retry.Retrier {
	return retry.New(retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2},
		retry.WithLogger(discardLogger()))
}

func testTimeout(deadline time.Duration) *timeout.Executor {
	return timeout.New(deadline, 100*time.Millisecond, timeout.WithLogger(discardLogger()))
}

// sampleOrder is two Laptop Pros and a Wireless Mouse.
func sampleOrder() (model.Order, model.Customer) {
	order := model.Order{
		ID:         1,
		CustomerID: 1,
		Status:     model.StatusPending,
		PlacedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Items: []model.LineItem{
			{ProductID: 1, ProductName: "Laptop Pro", Quantity: 2, Price: decimal.RequireFromString("1299.99")},
			{ProductID: 2, ProductName: "Wireless Mouse", Quantity: 1, Price: decimal.RequireFromString("29.99")},
		},
	}
	customer := model.Customer{ID: 1, Name: "Alice Johnson", Email: "alice@email.com", City: "New York"}
	return order, customer
}

func stepStatuses(out model.Outcome) map[string]string {
	m := make(map[string]string, len(out.Steps))
	for _, s := range out.Steps {
		m[s.Name] = s.Status
	}
	return m
}

// --- shared helpers ---

func TestNewCore_InvalidAdapterPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewSequential(Deps{}) })
}

func TestSnapshotOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	s := newStub()
	p := NewSequential(testDeps(s))
	order, customer := sampleOrder()
	r := p.begin(order, customer, nil)

	now := time.Now()
	r.record(model.StepPickup, now, nil)
	r.record(model.StepQuote, now, nil)
	r.record(model.StepAvailability, now, nil)
	r.record(model.StepPayment, now, nil)

	var names []string
	for _, st := range r.snapshot() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{model.StepAvailability, model.StepPayment, model.StepQuote, model.StepPickup}, names)
}

func TestFinishBuildsOnce(t *testing.T) {
	t.Parallel()

	s := newStub()
	p := NewSequential(testDeps(s))
	order, customer := sampleOrder()
	r := p.begin(order, customer, nil)

	first := r.finish("TRK-1", "", nil)
	second := r.finish("", model.StepWorkflow, context.Canceled)

	assert.True(t, second.OK())
	assert.Equal(t, first, second)
}

func TestOncePanicBecomesInternal(t *testing.T) {
	t.Parallel()

	s := newStub()
	p := NewSequential(testDeps(s))
	order, customer := sampleOrder()
	r := p.begin(order, customer, nil)

	_, err := once(context.Background(), r, model.StepQuote, func(context.Context) (int, error) {
		panic("quote service exploded")
	})

	require.Error(t, err)
	assert.Equal(t, "internal", stepStatusDetail(r, model.StepQuote))
}

func stepStatusDetail(r *run, name string) string {
	for _, s := range r.snapshot() {
		if s.Name == name {
			return s.Detail
		}
	}
	return ""
}
