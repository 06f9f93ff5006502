// Package httptransport implements the HTTP transport layer
// for order fulfillment.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iliamunaev/order-fulfillment/internal/bulk"
	"github.com/iliamunaev/order-fulfillment/internal/model"
	"github.com/iliamunaev/order-fulfillment/internal/pipeline"
)

type pipelines interface {
	Get(name string) (pipeline.Pipeline, bool)
}

type dispatcher interface {
	RunAll(ctx context.Context, orders []model.Order, lookup model.CustomerLookup, wf bulk.Workflow, maxConcurrency int) *bulk.Results
}

// Options tunes a Handler. Zero values get defaults.
type Options struct {
	RequestTimeout  time.Duration
	DefaultPipeline string
	MaxConcurrency  int
	Logger          *slog.Logger
}

// Handler handles HTTP requests to order orchestration.
type Handler struct {
	pipelines       pipelines
	dispatcher      dispatcher
	requestTimeout  time.Duration
	defaultPipeline string
	maxConcurrency  int
	logger          *slog.Logger
}

// New returns a Handler serving the given pipelines.
//
// It panics if pipelines or dispatcher is nil. If the request timeout is
// non-positive, a default timeout is applied.
func New(p pipelines, d dispatcher, opts Options) *Handler {
	if p == nil {
		panic("httptransport.New: nil pipelines")
	}
	if d == nil {
		panic("httptransport.New: nil dispatcher")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Second
	}
	if opts.DefaultPipeline == "" {
		opts.DefaultPipeline = pipeline.NameCompensating
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		pipelines:       p,
		dispatcher:      d,
		requestTimeout:  opts.RequestTimeout,
		defaultPipeline: opts.DefaultPipeline,
		maxConcurrency:  opts.MaxConcurrency,
		logger:          opts.Logger.With("component", "http"),
	}
}

// Register mounts the order endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/order", h.HandleOrder)
	mux.HandleFunc("/orders/bulk", h.HandleBulk)
	mux.HandleFunc("/health", h.HandleHealth)
}

// HandleOrder runs one order through a pipeline.
//
// The request must be a POST with a valid JSON body.
// Processing is executed with a per-request timeout.
// The response always contains a structured OrderResponse.
func (h *Handler) HandleOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req model.OrderRequest
	if err := decodeStrict(r.Body, &req); err != nil {
		writeError(w, kindBadRequest, "invalid JSON")
		return
	}
	if err := req.Order.Validate(); err != nil {
		writeError(w, kindBadRequest, err.Error())
		return
	}
	if req.Customer.ID != 0 && req.Order.CustomerID != 0 && req.Customer.ID != req.Order.CustomerID {
		writeError(w, kindBadRequest, "customer does not match order")
		return
	}

	p, ok := h.pipeline(req.Pipeline)
	if !ok {
		writeError(w, kindUnknownPipeline, fmt.Sprintf("unknown pipeline %q", req.Pipeline))
		return
	}

	// Set a deadline for the entire workflow
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	out := p.Run(ctx, req.Order, req.Customer)
	h.logger.Debug("order handled", "pipeline", p.Name(), "order_id", out.OrderID, "kind", out.Kind())

	writeJSON(w, httpStatus(out.Kind()), model.NewOrderResponse(out))
}

// HandleBulk runs many orders through a pipeline with bounded concurrency.
// Per-order failures are reported in the body; the request itself succeeds.
func (h *Handler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req model.BulkRequest
	if err := decodeStrict(r.Body, &req); err != nil {
		writeError(w, kindBadRequest, "invalid JSON")
		return
	}
	for _, o := range req.Orders {
		if err := o.Validate(); err != nil {
			writeError(w, kindBadRequest, fmt.Sprintf("order %d: %v", o.ID, err))
			return
		}
	}

	p, ok := h.pipeline(req.Pipeline)
	if !ok {
		writeError(w, kindUnknownPipeline, fmt.Sprintf("unknown pipeline %q", req.Pipeline))
		return
	}

	limit := req.MaxConcurrency
	if limit <= 0 {
		limit = h.maxConcurrency
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	results := h.dispatcher.RunAll(ctx, req.Orders, model.IndexCustomers(req.Customers), p, limit)

	resp := model.BulkResponse{
		Status:    "ok",
		Submitted: len(req.Orders),
		Results:   make(map[int64]model.OrderResponse, results.Len()),
	}
	for id, out := range results.Snapshot() {
		resp.Results[id] = model.NewOrderResponse(out)
	}
	h.logger.Info("bulk handled", "pipeline", p.Name(), "submitted", resp.Submitted,
		"results", len(resp.Results), "peak_concurrency", results.Peak())
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) pipeline(name string) (pipeline.Pipeline, bool) {
	if name == "" {
		name = h.defaultPipeline
	}
	return h.pipelines.Get(name)
}

// decodeStrict decodes exactly one JSON value with no unknown fields.
func decodeStrict(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func writeError(w http.ResponseWriter, kind, msg string) {
	writeJSON(w, httpStatus(kind), model.OrderResponse{
		Status: "error",
		Error:  &model.ErrorPayload{Kind: kind, Message: msg},
	})
}

// writeJSON writes v as a JSON response with the given status code.
// The Content-Type is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
