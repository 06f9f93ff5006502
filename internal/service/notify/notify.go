// Package notify simulates the email sender used to confirm orders.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/service/shared"
)

// Config sets the behavior of the sender.
type Config struct {
	Email shared.Behavior `yaml:"email"`
}

// DefaultConfig mirrors a mail relay that takes 200ms per message.
func DefaultConfig() Config {
	return Config{
		Email: shared.Behavior{Latency: 200 * time.Millisecond},
	}
}

// Confirmation is a delivered order confirmation.
type Confirmation struct {
	Email      string
	Subject    string
	Body       string
	OrderID    int64
	TrackingID string
}

// Sender is a concurrency-safe simulated email sender.
type Sender struct {
	cfg  Config
	opts shared.Options

	mu   sync.Mutex
	sent []Confirmation
}

// New creates a simulated sender.
func New(cfg Config, opts shared.Options) *Sender {
	return &Sender{cfg: cfg, opts: opts.Defaults("notify")}
}

// SendConfirmation emails the customer their tracking ID.
func (s *Sender) SendConfirmation(ctx context.Context, email string, orderID int64, trackingID string) error {
	s.opts.Tracker.Inc()
	defer s.opts.Tracker.Dec()

	msg := Confirmation{
		Email:      email,
		Subject:    fmt.Sprintf("Order Confirmation #%d", orderID),
		Body:       "Your order has been confirmed. Tracking: " + trackingID,
		OrderID:    orderID,
		TrackingID: trackingID,
	}

	s.opts.Logger.Debug("sending email", "to", email, "subject", msg.Subject)
	if err := shared.SleepOrDone(ctx, s.cfg.Email.Latency); err != nil {
		return err
	}
	if s.cfg.Email.Faulted(s.opts.Roll) {
		return fmt.Errorf("send confirmation: %w", apperr.ErrTransient)
	}

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of every delivered confirmation.
func (s *Sender) Sent() []Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Confirmation, len(s.sent))
	copy(out, s.sent)
	return out
}
