package bulk

import (
	"maps"
	"sync"

	"github.com/iliamunaev/order-fulfillment/internal/model"
)

// Results collects one Outcome per dispatched order. It is safe for
// concurrent writers keyed by distinct order IDs.
type Results struct {
	mu       sync.Mutex
	outcomes map[int64]model.Outcome
	peak     int64
}

// NewResults returns an empty collection sized for n orders.
func NewResults(n int) *Results {
	return &Results{outcomes: make(map[int64]model.Outcome, n)}
}

// Set stores the outcome for orderID.
func (r *Results) Set(orderID int64, out model.Outcome) {
	r.mu.Lock()
	r.outcomes[orderID] = out
	r.mu.Unlock()
}

// Get returns the outcome for orderID.
func (r *Results) Get(orderID int64) (model.Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.outcomes[orderID]
	return out, ok
}

// Len returns the number of orders with an outcome.
func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outcomes)
}

// Snapshot returns a copy of every outcome keyed by order ID.
func (r *Results) Snapshot() map[int64]model.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.outcomes)
}

// Peak returns the highest number of workflows that ran at once.
func (r *Results) Peak() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func (r *Results) setPeak(n int64) {
	r.mu.Lock()
	r.peak = n
	r.mu.Unlock()
}
