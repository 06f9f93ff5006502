package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
	"github.com/iliamunaev/order-fulfillment/internal/model"
)

func TestCompensating_Success(t *testing.T) {
	t.Parallel()

	s := newStub()
	p := NewCompensating(testDeps(s))
	order, customer := sampleOrder()

	out := p.Run(context.Background(), order, customer)

	require.True(t, out.OK(), "unexpected failure: %v", out.Err)
	assert.Equal(t, 0, s.count(model.StepRelease), "paid orders are never released")
	assert.False(t, out.Compensated)
	assert.Equal(t, 1, s.count(model.StepConfirmation))
}

func TestCompensating_Paths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		setup           func(s *stubAdapter)
		wantStep        string
		wantKind        string
		wantReserve     int
		wantRelease     int
		wantCompensated bool
	}{
		{
			name:     "unavailable_nothing_to_undo",
			setup:    func(s *stubAdapter) { s.check = func(context.Context, int) (bool, error) { return false, nil } },
			wantStep: model.StepAvailability,
			wantKind: apperr.KindUnavailable,
		},
		{
			name:            "declined_releases_once",
			setup:           func(s *stubAdapter) { s.charge = func(context.Context, int) (bool, error) { return false, nil } },
			wantStep:        model.StepPayment,
			wantKind:        apperr.KindPaymentDeclined,
			wantReserve:     1,
			wantRelease:     1,
			wantCompensated: true,
		},
		{
			name: "payment_fault_releases",
			setup: func(s *stubAdapter) {
				s.charge = func(context.Context, int) (bool, error) { return false, apperr.ErrTransient }
			},
			wantStep:        model.StepPayment,
			wantKind:        apperr.KindInternal,
			wantReserve:     1,
			wantRelease:     1,
			wantCompensated: true,
		},
		{
			name: "payment_panic_releases",
			setup: func(s *stubAdapter) {
				s.charge = func(context.Context, int) (bool, error) { panic("gateway bug") }
			},
			wantStep:        model.StepPayment,
			wantKind:        apperr.KindInternal,
			wantReserve:     1,
			wantRelease:     1,
			wantCompensated: true,
		},
		{
			name: "reserve_fault_nothing_reserved",
			setup: func(s *stubAdapter) {
				s.reserve = func(context.Context, int) error { return apperr.ErrTransient }
			},
			wantStep:    model.StepReserve,
			wantKind:    apperr.KindInternal,
			wantReserve: 1,
		},
		{
			name: "pickup_fault_after_payment_not_undone",
			setup: func(s *stubAdapter) {
				s.pickup = func(context.Context, int) (string, error) { return "", apperr.ErrTransient }
			},
			wantStep:    model.StepPickup,
			wantKind:    apperr.KindInternal,
			wantReserve: 1,
		},
		{
			name: "release_fault_reported_uncompensated",
			setup: func(s *stubAdapter) {
				s.charge = func(context.Context, int) (bool, error) { return false, nil }
				s.release = func(context.Context, int) error { return errors.New("warehouse offline") }
			},
			wantStep:    model.StepPayment,
			wantKind:    apperr.KindPaymentDeclined,
			wantReserve: 1,
			wantRelease: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newStub()
			tt.setup(s)
			p := NewCompensating(testDeps(s))
			order, customer := sampleOrder()

			out := p.Run(context.Background(), order, customer)

			assert.False(t, out.OK())
			assert.Empty(t, out.TrackingID)
			assert.Equal(t, tt.wantStep, out.FailedStep)
			assert.Equal(t, tt.wantKind, out.Kind())
			assert.Equal(t, tt.wantReserve, s.count(model.StepReserve))
			assert.Equal(t, tt.wantRelease, s.count(model.StepRelease))
			assert.Equal(t, tt.wantCompensated, out.Compensated)
			assert.Equal(t, 0, s.count(model.StepConfirmation))
		})
	}
}

func TestCompensating_ReservesBeforeCharging(t *testing.T) {
	t.Parallel()

	s := newStub()
	s.charge = func(context.Context, int) (bool, error) {
		if s.count(model.StepReserve) != 1 {
			return false, errors.New("charged before reservation")
		}
		return true, nil
	}
	p := NewCompensating(testDeps(s))
	order, customer := sampleOrder()

	out := p.Run(context.Background(), order, customer)
	assert.True(t, out.OK(), "unexpected failure: %v", out.Err)
}

func TestCompensating_ReleaseSurvivesCancellation(t *testing.T) {
	t.Parallel()

	s := newStub()
	s.charge = func(ctx context.Context, _ int) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	}
	var releaseCtxErr error
	s.release = func(ctx context.Context, _ int) error {
		releaseCtxErr = ctx.Err()
		return nil
	}
	p := NewCompensating(testDeps(s))
	order, customer := sampleOrder()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := p.Run(ctx, order, customer)

	assert.False(t, out.OK())
	assert.Equal(t, apperr.KindTimeout, out.Kind())
	assert.Equal(t, 1, s.count(model.StepRelease))
	assert.NoError(t, releaseCtxErr, "release must not inherit the cancelled context")
	assert.True(t, out.Compensated)
}

func TestRunCompensate_AtMostOnce(t *testing.T) {
	t.Parallel()

	s := newStub()
	p := NewCompensating(testDeps(s))
	order, customer := sampleOrder()
	r := p.begin(order, customer, nil)

	r.compensate(context.Background())
	r.compensate(context.Background())

	assert.Equal(t, 1, s.count(model.StepRelease))
}
