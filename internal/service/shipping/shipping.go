// Package shipping simulates the carrier an order workflow asks for a
// delivery quote and a pickup. Pickups are bounded by courier capacity.
package shipping

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/service/shared"
)

// Limiter bounds concurrent courier assignments.
type Limiter interface {
	Acquire(context.Context) error
	Release()
}

// Config sets the behavior of the carrier.
type Config struct {
	Quote    shared.Behavior `yaml:"quote"`
	Pickup   shared.Behavior `yaml:"pickup"`
	MinQuote float64         `yaml:"min_quote"`
	MaxQuote float64         `yaml:"max_quote"`
}

// DefaultConfig mirrors a carrier quoting $5-$20 in 400ms and scheduling a
// pickup in 300ms.
func DefaultConfig() Config {
	return Config{
		Quote:    shared.Behavior{Latency: 400 * time.Millisecond},
		Pickup:   shared.Behavior{Latency: 300 * time.Millisecond},
		MinQuote: 5,
		MaxQuote: 20,
	}
}

// Provider is a simulated carrier.
type Provider struct {
	cfg      Config
	opts     shared.Options
	couriers Limiter
}

// New creates a simulated carrier. A nil limiter means unbounded pickups.
func New(cfg Config, couriers Limiter, opts shared.Options) *Provider {
	return &Provider{
		cfg:      cfg,
		opts:     opts.Defaults("shipping"),
		couriers: couriers,
	}
}

// Quote prices delivery of the order to city.
func (p *Provider) Quote(ctx context.Context, orderID int64, city string) (decimal.Decimal, error) {
	p.opts.Tracker.Inc()
	defer p.opts.Tracker.Dec()

	p.opts.Logger.Debug("getting quote", "order_id", orderID, "city", city)
	if err := shared.SleepOrDone(ctx, p.cfg.Quote.Latency); err != nil {
		return decimal.Zero, err
	}
	if p.cfg.Quote.Faulted(p.opts.Roll) {
		return decimal.Zero, fmt.Errorf("shipping quote: %w", apperr.ErrTransient)
	}

	spread := p.cfg.MaxQuote - p.cfg.MinQuote
	quote := decimal.NewFromFloat(p.cfg.MinQuote + p.opts.Roll()*spread).Round(2)
	p.opts.Logger.Debug("quote ready", "order_id", orderID, "quote", quote.StringFixed(2))
	return quote, nil
}

// SchedulePickup books a courier and returns a tracking ID.
func (p *Provider) SchedulePickup(ctx context.Context, orderID int64) (string, error) {
	p.opts.Tracker.Inc()
	defer p.opts.Tracker.Dec()

	if p.couriers != nil {
		if err := p.couriers.Acquire(ctx); err != nil {
			return "", err
		}
		defer p.couriers.Release()
	}

	p.opts.Logger.Debug("scheduling pickup", "order_id", orderID)
	if err := shared.SleepOrDone(ctx, p.cfg.Pickup.Latency); err != nil {
		return "", err
	}
	if p.cfg.Pickup.Faulted(p.opts.Roll) {
		return "", fmt.Errorf("shipping pickup: %w", apperr.ErrTransient)
	}

	trackingID := "TRK-" + uuid.NewString()
	p.opts.Logger.Debug("pickup scheduled", "order_id", orderID, "tracking_id", trackingID)
	return trackingID, nil
}
