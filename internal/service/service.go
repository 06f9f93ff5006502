// Package service defines the boundary between the orchestrator and the
// external systems it drives. Sub-packages provide simulated implementations.
//
// Every operation may be slow and may fail. A returned error is a fault the
// caller may retry; a false result is an authoritative business answer.
package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Inventory checks, reserves and releases stock for an order.
type Inventory interface {
	CheckAvailability(ctx context.Context, orderID int64) (bool, error)
	Reserve(ctx context.Context, orderID int64) error
	Release(ctx context.Context, orderID int64) error
}

// Payments charges an order's total.
type Payments interface {
	Charge(ctx context.Context, orderID int64, amount decimal.Decimal) (bool, error)
}

// Shipping quotes delivery and schedules a courier pickup.
type Shipping interface {
	Quote(ctx context.Context, orderID int64, city string) (decimal.Decimal, error)
	SchedulePickup(ctx context.Context, orderID int64) (string, error)
}

// Notifier tells the customer their order is on its way.
type Notifier interface {
	SendConfirmation(ctx context.Context, email string, orderID int64, trackingID string) error
}

// Adapter bundles the four external systems a workflow talks to.
type Adapter struct {
	Inventory Inventory
	Payments  Payments
	Shipping  Shipping
	Notifier  Notifier
}

// Validate reports a missing collaborator.
func (a Adapter) Validate() error {
	var errs []error
	if a.Inventory == nil {
		errs = append(errs, errors.New("inventory is nil"))
	}
	if a.Payments == nil {
		errs = append(errs, errors.New("payments is nil"))
	}
	if a.Shipping == nil {
		errs = append(errs, errors.New("shipping is nil"))
	}
	if a.Notifier == nil {
		errs = append(errs, errors.New("notifier is nil"))
	}
	return errors.Join(errs...)
}
