// Package apperr classifies the failures an order workflow can end with.
//
// Business negatives (out of stock, payment declined) are authoritative
// answers, not faults: they are never retried. Transient faults are eligible
// for retry and escalate as RetryError once attempts are spent. Timeouts
// escalate as TimeoutError so callers can tell "too slow" from "declined".
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrUnavailable     = errors.New("inventory unavailable")
	ErrPaymentDeclined = errors.New("payment declined")
	ErrTransient       = errors.New("transient failure")
	ErrRetryExhausted  = errors.New("retries exhausted")
	ErrTimeout         = errors.New("workflow timed out")
	ErrInternal        = errors.New("internal error")
)

// Kinds reported by Kind.
const (
	KindUnavailable     = "unavailable"
	KindPaymentDeclined = "payment_declined"
	KindRetryExhausted  = "retry_exhausted"
	KindTimeout         = "timeout"
	KindCanceled        = "canceled"
	KindInternal        = "internal"
)

// RetryError is returned when every attempt of an operation failed.
type RetryError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// Is matches ErrRetryExhausted.
func (e *RetryError) Is(target error) bool { return target == ErrRetryExhausted }

// TimeoutError is returned when a workflow did not finish before its deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workflow timed out after %s", e.After)
}

// Is matches both ErrTimeout and context.DeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// Negative reports whether err is an authoritative business answer.
func Negative(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrPaymentDeclined)
}

// Kind maps err onto a short stable classification. Order matters: a
// timeout wraps DeadlineExceeded and must win over cancellation, and an
// exhausted retry wraps its last cause.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrUnavailable):
		return KindUnavailable

	case errors.Is(err, ErrPaymentDeclined):
		return KindPaymentDeclined

	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, ErrRetryExhausted):
		return KindRetryExhausted

	case errors.Is(err, context.Canceled):
		return KindCanceled

	default:
		return KindInternal
	}
}

// HTTPStatus maps err onto the status code the HTTP transport responds with.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case KindUnavailable, KindPaymentDeclined:
		return http.StatusUnprocessableEntity
	case KindRetryExhausted:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
