// Package payment simulates the payment gateway used by the order pipeline.
//
// Charge respects context cancellation. A declined charge is an answer, not
// an error: it returns false with a nil error. Only simulated transient
// faults and cancellation return errors.
package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/service/shared"
)

// Config sets the behavior of the gateway.
type Config struct {
	Charge shared.Behavior `yaml:"charge"`
}

// DefaultConfig mirrors a gateway that takes half a second and declines one
// charge in ten.
func DefaultConfig() Config {
	return Config{
		Charge: shared.Behavior{Latency: 500 * time.Millisecond, NegativeRate: 0.1},
	}
}

// Gateway is a concurrency-safe simulated payment gateway.
type Gateway struct {
	cfg  Config
	opts shared.Options

	mu      sync.Mutex
	charged map[int64]decimal.Decimal
}

// New creates a simulated gateway.
func New(cfg Config, opts shared.Options) *Gateway {
	return &Gateway{
		cfg:     cfg,
		opts:    opts.Defaults("payment"),
		charged: make(map[int64]decimal.Decimal),
	}
}

// Charge captures amount for the order. Non-positive amounts are declined.
func (g *Gateway) Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (bool, error) {
	g.opts.Tracker.Inc()
	defer g.opts.Tracker.Dec()

	g.opts.Logger.Debug("processing payment", "order_id", orderID, "amount", amount.StringFixed(2))

	// Block until the delay elapses or the context is done
	if err := shared.SleepOrDone(ctx, g.cfg.Charge.Latency); err != nil {
		return false, err
	}

	if g.cfg.Charge.Faulted(g.opts.Roll) {
		return false, fmt.Errorf("payment: %w", apperr.ErrTransient)
	}

	if !amount.IsPositive() || g.cfg.Charge.Negative(g.opts.Roll) {
		g.opts.Logger.Debug("payment declined", "order_id", orderID)
		return false, nil
	}

	g.mu.Lock()
	g.charged[orderID] = amount
	g.mu.Unlock()
	return true, nil
}

// Charged returns the captured amount for the order, if any.
func (g *Gateway) Charged(orderID int64) (decimal.Decimal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amt, ok := g.charged[orderID]
	return amt, ok
}
