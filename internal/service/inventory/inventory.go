// Package inventory simulates the stock system an order workflow checks,
// reserves against, and releases on rollback.
package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/service/shared"
)

// Config sets the behavior of each inventory operation.
type Config struct {
	Check   shared.Behavior `yaml:"check"`
	Reserve shared.Behavior `yaml:"reserve"`
	Release shared.Behavior `yaml:"release"`
}

// DefaultConfig mirrors a warehouse that answers in a few hundred
// milliseconds and is out of stock for one order in twenty.
func DefaultConfig() Config {
	return Config{
		Check:   shared.Behavior{Latency: 300 * time.Millisecond, NegativeRate: 0.05},
		Reserve: shared.Behavior{Latency: 200 * time.Millisecond},
		Release: shared.Behavior{Latency: 100 * time.Millisecond},
	}
}

// System is a concurrency-safe simulated inventory.
type System struct {
	cfg  Config
	opts shared.Options

	mu       sync.Mutex
	reserved map[int64]bool
	releases map[int64]int
}

// New creates a simulated inventory.
func New(cfg Config, opts shared.Options) *System {
	return &System{
		cfg:      cfg,
		opts:     opts.Defaults("inventory"),
		reserved: make(map[int64]bool),
		releases: make(map[int64]int),
	}
}

// CheckAvailability reports whether every item of the order is in stock.
func (s *System) CheckAvailability(ctx context.Context, orderID int64) (bool, error) {
	s.opts.Tracker.Inc()
	defer s.opts.Tracker.Dec()

	s.opts.Logger.Debug("checking stock", "order_id", orderID)
	if err := shared.SleepOrDone(ctx, s.cfg.Check.Latency); err != nil {
		return false, err
	}
	if s.cfg.Check.Faulted(s.opts.Roll) {
		return false, fmt.Errorf("inventory check: %w", apperr.ErrTransient)
	}

	available := !s.cfg.Check.Negative(s.opts.Roll)
	s.opts.Logger.Debug("stock checked", "order_id", orderID, "available", available)
	return available, nil
}

// Reserve holds the order's items.
func (s *System) Reserve(ctx context.Context, orderID int64) error {
	s.opts.Tracker.Inc()
	defer s.opts.Tracker.Dec()

	s.opts.Logger.Debug("reserving items", "order_id", orderID)
	if err := shared.SleepOrDone(ctx, s.cfg.Reserve.Latency); err != nil {
		return err
	}
	if s.cfg.Reserve.Faulted(s.opts.Roll) {
		return fmt.Errorf("inventory reserve: %w", apperr.ErrTransient)
	}

	s.mu.Lock()
	s.reserved[orderID] = true
	s.mu.Unlock()
	return nil
}

// Release returns the order's reserved items to stock. Releasing an order
// that holds no reservation is a no-op, but is still counted.
func (s *System) Release(ctx context.Context, orderID int64) error {
	s.opts.Tracker.Inc()
	defer s.opts.Tracker.Dec()

	s.opts.Logger.Debug("releasing items", "order_id", orderID)
	if err := shared.SleepOrDone(ctx, s.cfg.Release.Latency); err != nil {
		return err
	}
	if s.cfg.Release.Faulted(s.opts.Roll) {
		return fmt.Errorf("inventory release: %w", apperr.ErrTransient)
	}

	s.mu.Lock()
	delete(s.reserved, orderID)
	s.releases[orderID]++
	s.mu.Unlock()
	return nil
}

// Reserved reports whether the order currently holds a reservation.
func (s *System) Reserved(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserved[orderID]
}

// Releases returns how many times the order was released.
func (s *System) Releases(orderID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases[orderID]
}
