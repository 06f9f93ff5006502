package tracker

import (
	"sync"
	"testing"
)

func TestTrackerIncDec(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	tr.Inc()
	if got := tr.Running(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	tr.Dec()
	if got := tr.Running(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestTrackerPeak(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	tr.Inc()
	tr.Inc()
	tr.Inc()
	tr.Dec()
	tr.Dec()
	tr.Inc()

	if got := tr.Running(); got != 2 {
		t.Fatalf("expected running 2, got %d", got)
	}
	if got := tr.Peak(); got != 3 {
		t.Fatalf("expected peak 3, got %d", got)
	}
}

// Peak never exceeds the number of callers holding the tracker at once.
func TestTrackerConcurrent(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	const callers = 10
	const rounds = 100

	var wg sync.WaitGroup
	for range callers {
		wg.Go(func() {
			for range rounds {
				tr.Inc()
				tr.Dec()
			}
		})
	}
	wg.Wait()

	if got := tr.Running(); got != 0 {
		t.Fatalf("expected nothing running, got %d", got)
	}
	if got := tr.Peak(); got < 1 || got > callers {
		t.Fatalf("expected peak in [1,%d], got %d", callers, got)
	}
}

func TestTrackerZeroValue(t *testing.T) {
	t.Parallel()

	var tr Tracker
	if tr.Running() != 0 || tr.Peak() != 0 {
		t.Fatalf("expected zero tracker, got running=%d peak=%d", tr.Running(), tr.Peak())
	}
}
