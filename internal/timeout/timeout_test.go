package timeout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
)

func TestRun_CompletesBeforeDeadline(t *testing.T) {
	t.Parallel()

	e := New(time.Second, DefaultGrace)

	got, err := Run(context.Background(), e, func(context.Context) (string, error) {
		return "TRK-1", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "TRK-1", got)
}

func TestRun_ErrorBeforeDeadlineIsUnchanged(t *testing.T) {
	t.Parallel()

	e := New(time.Second, DefaultGrace)

	_, err := Run(context.Background(), e, func(context.Context) (string, error) {
		return "", apperr.ErrPaymentDeclined
	})

	assert.ErrorIs(t, err, apperr.ErrPaymentDeclined)
	assert.NotErrorIs(t, err, apperr.ErrTimeout)
}

func TestRun_TimesOutWithinGrace(t *testing.T) {
	t.Parallel()

	const (
		deadline = 30 * time.Millisecond
		grace    = 20 * time.Millisecond
	)
	e := New(deadline, grace)

	var exited atomic.Bool
	start := time.Now()
	_, err := Run(context.Background(), e, func(ctx context.Context) (string, error) {
		defer exited.Store(true)
		select {
		case <-time.After(5 * time.Second):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, apperr.KindTimeout, apperr.Kind(err))

	var te *apperr.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, deadline, te.After)

	assert.Less(t, elapsed, deadline+grace+200*time.Millisecond)
	assert.True(t, exited.Load(), "worker should observe cancellation within grace")
}

func TestRun_AbandonsStubbornWorker(t *testing.T) {
	t.Parallel()

	e := New(20*time.Millisecond, 10*time.Millisecond)

	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Run(context.Background(), e, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	assert.ErrorIs(t, err, apperr.ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRun_CallerCancellation(t *testing.T) {
	t.Parallel()

	e := New(time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, e, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperr.ErrTimeout)
}

func TestRun_PanicBecomesInternal(t *testing.T) {
	t.Parallel()

	e := New(time.Second, DefaultGrace)

	_, err := Run(context.Background(), e, func(context.Context) (int, error) {
		panic("boom")
	})

	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.Equal(t, apperr.KindInternal, apperr.Kind(err))
}

func TestRun_FakeClockDeadline(t *testing.T) {
	t.Parallel()

	clock := clockz.NewFakeClock()
	e := New(100*time.Millisecond, 0, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), e, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, apperr.ErrTimeout), "expected timeout, got %v", err)
	case <-time.After(time.Second):
		t.Fatal("test timed out")
	}
}

func TestNew_NegativeGrace(t *testing.T) {
	t.Parallel()

	e := New(time.Second, -time.Second)
	assert.Equal(t, time.Duration(0), e.Grace())
	assert.Equal(t, time.Second, e.Deadline())
}
