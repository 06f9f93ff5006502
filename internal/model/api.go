package model

// OrderRequest is the input payload for running one order through a pipeline.
type OrderRequest struct {
	Pipeline string   `json:"pipeline"`
	Order    Order    `json:"order"`
	Customer Customer `json:"customer"`
}

// OrderResponse is the output payload returned by the order handler.
type OrderResponse struct {
	Status      string        `json:"status"` // "ok" | "error"
	OrderID     int64         `json:"order_id"`
	TrackingID  string        `json:"tracking_id,omitempty"`
	Compensated bool          `json:"compensated,omitempty"`
	ElapsedMS   int64         `json:"elapsed_ms"`
	Steps       []StepResult  `json:"steps,omitempty"`
	Error       *ErrorPayload `json:"error,omitempty"`
}

// BulkRequest is the input payload for dispatching many orders.
type BulkRequest struct {
	Pipeline       string     `json:"pipeline"`
	MaxConcurrency int        `json:"max_concurrency"`
	Orders         []Order    `json:"orders"`
	Customers      []Customer `json:"customers"`
}

// BulkResponse maps order IDs to their outcomes. Orders whose customer did
// not resolve have no entry.
type BulkResponse struct {
	Status    string                  `json:"status"`
	Submitted int                     `json:"submitted"`
	Results   map[int64]OrderResponse `json:"results"`
}

// StepResult captures the outcome of a processing step.
type StepResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // "ok" | "negative" | "error" | "canceled"
	DurationMS int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"` // optional, error kind
}

// ErrorPayload describes an error response.
type ErrorPayload struct {
	Kind    string `json:"kind"`              // "payment_declined", "timeout", ...
	Step    string `json:"step,omitempty"`    // failing step, when known
	Message string `json:"message,omitempty"` // optional, human-readable error message
}

// NewOrderResponse renders an Outcome as an OrderResponse.
func NewOrderResponse(out Outcome) OrderResponse {
	resp := OrderResponse{
		Status:      "ok",
		OrderID:     out.OrderID,
		TrackingID:  out.TrackingID,
		Compensated: out.Compensated,
		ElapsedMS:   out.Elapsed.Milliseconds(),
		Steps:       out.Steps,
	}
	if !out.OK() {
		resp.Status = "error"
		resp.Error = &ErrorPayload{
			Kind:    out.Kind(),
			Step:    out.FailedStep,
			Message: "order failed",
		}
	}
	return resp
}
