// Package pool provides a bounded concurrency semaphore.
package pool

import "context"

// MaxSize caps the number of slots a Pool may have.
const MaxSize = 128

// Pool limits how many units of work hold a slot at once. It bounds both
// courier assignments in the shipping simulation and in-flight workflows in
// the bulk dispatcher.
type Pool struct {
	sem chan struct{}
}

// New creates a pool with at least one slot and at most MaxSize slots.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire reserves one slot in the pool.
// If the pool is full, it blocks until a slot becomes available
// or the context is canceled.
// It returns ctx.Err() if acquisition is aborted due to cancellation.
func (p *Pool) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	<-p.sem
}

// Size returns the number of slots.
func (p *Pool) Size() int { return cap(p.sem) }

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int { return len(p.sem) }
