package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/iliamunaev/order-fulfillment/internal/metrics"
	"github.com/iliamunaev/order-fulfillment/internal/service"
)

// Notifications sends order confirmations and tracks the ones dispatched
// without waiting, so shutdown can drain them.
type Notifications struct {
	notifier service.Notifier
	logger   *slog.Logger
	metrics  *metrics.Recorder
	wg       sync.WaitGroup
}

// NewNotifications wraps n.
func NewNotifications(n service.Notifier, logger *slog.Logger, m *metrics.Recorder) *Notifications {
	if n == nil {
		panic("pipeline.NewNotifications: nil notifier")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifications{notifier: n, logger: logger, metrics: m}
}

// Send delivers a confirmation and waits for it.
func (n *Notifications) Send(ctx context.Context, email string, orderID int64, trackingID string) error {
	err := n.notifier.SendConfirmation(ctx, email, orderID, trackingID)
	n.metrics.Notification(err)
	if err != nil {
		n.logger.Warn("confirmation not sent", "order_id", orderID, "error", err)
		return err
	}
	n.logger.Debug("confirmation sent", "order_id", orderID, "tracking_id", trackingID)
	return nil
}

// Fire delivers a confirmation in the background. The send is detached from
// ctx's cancellation so a finished request does not abort it.
func (n *Notifications) Fire(ctx context.Context, email string, orderID int64, trackingID string) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Go(func() {
		_ = n.Send(ctx, email, orderID, trackingID)
	})
}

// Drain waits until every fired confirmation has finished or ctx ends.
func (n *Notifications) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
