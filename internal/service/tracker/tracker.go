// Package tracker provides lightweight counters for running work.
package tracker

import "sync/atomic"

// Tracker counts running units of work using atomics and remembers the
// highest count observed.
type Tracker struct {
	running atomic.Int64
	peak    atomic.Int64
}

// Inc increments the running counter.
func (t *Tracker) Inc() {
	n := t.running.Add(1)
	for {
		p := t.peak.Load()
		if n <= p || t.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// Dec decrements the running counter.
func (t *Tracker) Dec() { t.running.Add(-1) }

// Running returns the current running count.
func (t *Tracker) Running() int64 { return t.running.Load() }

// Peak returns the highest running count since creation.
func (t *Tracker) Peak() int64 { return t.peak.Load() }
