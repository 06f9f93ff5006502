package pipeline

import (
	"context"
	"slices"

	"github.com/iliamunaev/order-fulfillment/internal/retry"
	"github.com/iliamunaev/order-fulfillment/internal/timeout"
)

// Registry looks pipelines up by name. All of its pipelines share one
// Notifications so a single Drain covers every background confirmation.
type Registry struct {
	pipelines     map[string]Pipeline
	notifications *Notifications
}

// NewRegistry builds every pipeline over the same dependencies.
func NewRegistry(d Deps, retrier *retry.Retrier, ex *timeout.Executor) *Registry {
	if d.Notifications == nil {
		d.Notifications = NewNotifications(d.Adapter.Notifier, d.Logger, d.Metrics)
	}

	reg := &Registry{
		pipelines:     make(map[string]Pipeline, 5),
		notifications: d.Notifications,
	}
	for _, p := range []Pipeline{
		NewSequential(d),
		NewConcurrent(d),
		NewAsync(d),
		NewCompensating(d),
		NewHardened(d, retrier, ex),
	} {
		reg.pipelines[p.Name()] = p
	}
	return reg
}

// Get returns the named pipeline.
func (r *Registry) Get(name string) (Pipeline, bool) {
	p, ok := r.pipelines[name]
	return p, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.pipelines))
	for name := range r.pipelines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Drain waits for background confirmations to finish or ctx to end.
func (r *Registry) Drain(ctx context.Context) error {
	return r.notifications.Drain(ctx)
}
