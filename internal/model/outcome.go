package model

import (
	"time"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
)

// Step names shared by every pipeline.
const (
	StepAvailability = "availability"
	StepPayment      = "payment"
	StepReserve      = "reserve"
	StepRelease      = "release"
	StepQuote        = "quote"
	StepPickup       = "pickup"
	StepConfirmation = "confirmation"
	StepWorkflow     = "workflow"
)

// Step statuses.
const (
	StepOK       = "ok"
	StepNegative = "negative"
	StepError    = "error"
	StepCanceled = "canceled"
)

// Outcome is the single terminal value of one workflow invocation.
//
// A successful outcome carries a tracking ID. Every failure, business or
// fatal, carries no tracking ID; Err and FailedStep say why.
type Outcome struct {
	OrderID     int64
	TrackingID  string
	FailedStep  string
	Err         error
	// Compensated reports a release that completed before the outcome was
	// built. It is best effort for timed out runs.
	Compensated bool
	Steps       []StepResult
	Elapsed     time.Duration
}

// OK reports whether the workflow produced a tracking ID.
func (o Outcome) OK() bool { return o.TrackingID != "" }

// Kind classifies the failure; empty on success.
func (o Outcome) Kind() string {
	if o.OK() {
		return ""
	}
	if o.Err == nil {
		return apperr.KindInternal
	}
	return apperr.Kind(o.Err)
}

// Succeeded builds a successful outcome.
func Succeeded(orderID int64, trackingID string) Outcome {
	return Outcome{OrderID: orderID, TrackingID: trackingID}
}

// Failed builds a failed outcome for step.
func Failed(orderID int64, step string, err error) Outcome {
	return Outcome{OrderID: orderID, FailedStep: step, Err: err}
}
