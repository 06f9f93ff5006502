// Package app wires configuration, the simulated external systems, the
// pipelines and the HTTP surface into one application.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliamunaev/order-fulfillment/internal/bulk"
	"github.com/iliamunaev/order-fulfillment/internal/config"
	"github.com/iliamunaev/order-fulfillment/internal/metrics"
	"github.com/iliamunaev/order-fulfillment/internal/middleware"
	"github.com/iliamunaev/order-fulfillment/internal/pipeline"
	"github.com/iliamunaev/order-fulfillment/internal/retry"
	"github.com/iliamunaev/order-fulfillment/internal/service"
	"github.com/iliamunaev/order-fulfillment/internal/service/inventory"
	"github.com/iliamunaev/order-fulfillment/internal/service/notify"
	"github.com/iliamunaev/order-fulfillment/internal/service/payment"
	"github.com/iliamunaev/order-fulfillment/internal/service/pool"
	"github.com/iliamunaev/order-fulfillment/internal/service/shared"
	"github.com/iliamunaev/order-fulfillment/internal/service/shipping"
	"github.com/iliamunaev/order-fulfillment/internal/service/tracker"
	"github.com/iliamunaev/order-fulfillment/internal/timeout"
	httptransport "github.com/iliamunaev/order-fulfillment/internal/transport/http"
)

// App holds the wired application.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Recorder
	Pipelines  *pipeline.Registry
	Dispatcher *bulk.Dispatcher
	Handler    *httptransport.Handler

	// Simulated systems, exposed for inspection.
	Inventory *inventory.System
	Payments  *payment.Gateway
	Shipping  *shipping.Provider
	Notifier  *notify.Sender
	Tracker   *tracker.Tracker
}

// New builds an App from cfg. A nil logger means slog.Default; a nil roll
// means the default random source.
func New(cfg config.Config, logger *slog.Logger, roll shared.Roll) *App {
	if logger == nil {
		logger = slog.Default()
	}

	reg := metrics.NewRegistry()
	rec := metrics.New(reg, cfg.Metrics.Namespace)

	tr := &tracker.Tracker{}
	opts := shared.Options{Tracker: tr, Roll: roll, Logger: logger}

	inv := inventory.New(cfg.Simulation.Inventory, opts)
	pay := payment.New(cfg.Simulation.Payment, opts)
	ship := shipping.New(cfg.Simulation.Shipping, pool.New(cfg.Simulation.Couriers), opts)
	mail := notify.New(cfg.Simulation.Notify, opts)

	deps := pipeline.Deps{
		Adapter:        service.Adapter{Inventory: inv, Payments: pay, Shipping: ship, Notifier: mail},
		Logger:         logger,
		Metrics:        rec,
		ReleaseTimeout: cfg.Workflow.ReleaseTimeout,
	}
	retrier := retry.New(cfg.Workflow.Retry, retry.WithLogger(logger), retry.WithMetrics(rec))
	ex := timeout.New(cfg.Workflow.Deadline, cfg.Workflow.Grace, timeout.WithLogger(logger))
	pipelines := pipeline.NewRegistry(deps, retrier, ex)

	dispatcher := bulk.New(logger, rec)
	handler := httptransport.New(pipelines, dispatcher, httptransport.Options{
		RequestTimeout:  cfg.Server.RequestTimeout,
		DefaultPipeline: cfg.Workflow.DefaultPipeline,
		MaxConcurrency:  cfg.Workflow.MaxConcurrency,
		Logger:          logger,
	})

	return &App{
		Config:     cfg,
		Logger:     logger,
		Registry:   reg,
		Metrics:    rec,
		Pipelines:  pipelines,
		Dispatcher: dispatcher,
		Handler:    handler,
		Inventory:  inv,
		Payments:   pay,
		Shipping:   ship,
		Notifier:   mail,
		Tracker:    tr,
	}
}

// Routes returns the HTTP surface: the order endpoints, health and metrics,
// behind the access log.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()
	a.Handler.Register(mux)
	mux.Handle(a.Config.Metrics.Path, metrics.Handler(a.Registry))
	return middleware.Logging(a.Logger)(mux)
}

// Shutdown waits for background confirmations to finish or ctx to end.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Pipelines.Drain(ctx)
}
