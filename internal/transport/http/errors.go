package httptransport

import (
	"net/http"

	"github.com/iliamunaev/order-fulfillment/internal/apperr"
)

// Request-level kinds that never reach a workflow.
const (
	kindBadRequest      = "bad_request"
	kindUnknownPipeline = "unknown_pipeline"
)

// kindToStatus maps error classification kinds
// to HTTP status codes.
var kindToStatus = map[string]int{
	apperr.KindUnavailable:     http.StatusUnprocessableEntity,
	apperr.KindPaymentDeclined: http.StatusUnprocessableEntity,
	apperr.KindRetryExhausted:  http.StatusServiceUnavailable,
	apperr.KindTimeout:         http.StatusGatewayTimeout,
	apperr.KindCanceled:        http.StatusRequestTimeout,
	apperr.KindInternal:        http.StatusInternalServerError,
	kindBadRequest:             http.StatusBadRequest,
	kindUnknownPipeline:        http.StatusBadRequest,
}

// httpStatus returns the status for a kind; an empty kind is success.
func httpStatus(kind string) int {
	if kind == "" {
		return http.StatusOK
	}
	if s, ok := kindToStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}
