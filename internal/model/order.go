// Package model defines the orders and customers a workflow reads, the
// outcome it produces, and the request and response payloads used by the API.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. Workflows read it but never
// change it.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// LineItem is one product line of an order.
type LineItem struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal returns quantity × price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a read-only input to the orchestrator.
type Order struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Items      []LineItem `json:"items"`
	PlacedAt   time.Time  `json:"placed_at"`
	Status     Status     `json:"status"`
}

// Total returns the sum of all line subtotals.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Validate reports an order a workflow cannot process.
func (o Order) Validate() error {
	if o.ID <= 0 {
		return errors.New("order id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order has no items")
	}
	for i, it := range o.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item %d: quantity must be positive", i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("item %d: price must not be negative", i)
		}
	}
	if o.Status != "" && !o.Status.Valid() {
		return fmt.Errorf("unknown status %q", o.Status)
	}
	return nil
}

// Customer is a read-only input. Workflows only consume Email and City.
type Customer struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	City           string          `json:"city"`
	Premium        bool            `json:"premium"`
	TotalPurchases decimal.Decimal `json:"total_purchases"`
}

// CustomerLookup resolves a customer by identifier.
type CustomerLookup interface {
	Lookup(id int64) (Customer, bool)
}

// CustomerIndex is a CustomerLookup backed by a map.
type CustomerIndex map[int64]Customer

// IndexCustomers builds a CustomerIndex from a slice. Later duplicates win.
func IndexCustomers(customers []Customer) CustomerIndex {
	idx := make(CustomerIndex, len(customers))
	for _, c := range customers {
		idx[c.ID] = c
	}
	return idx
}

// Lookup implements CustomerLookup.
func (idx CustomerIndex) Lookup(id int64) (Customer, bool) {
	c, ok := idx[id]
	return c, ok
}
