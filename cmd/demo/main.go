// Command demo runs the sample orders through every pipeline and then as a
// bulk batch, printing each outcome.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliamunaev/order-fulfillment/internal/app"
	"github.com/iliamunaev/order-fulfillment/internal/config"
	"github.com/iliamunaev/order-fulfillment/internal/logging"
	"github.com/iliamunaev/order-fulfillment/internal/model"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config file")
	level := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	concurrency := flag.Int("concurrency", 3, "Bulk concurrency limit")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.Logging.Level = *level
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stderr"

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a := app.New(cfg, logger, nil)
	customers := sampleCustomers()
	orders := sampleOrders()
	idx := model.IndexCustomers(customers)

	ctx := context.Background()
	first := orders[0]
	owner, _ := idx.Lookup(first.CustomerID)

	for _, name := range a.Pipelines.Names() {
		p, _ := a.Pipelines.Get(name)
		fmt.Printf("--- %s ---\n", name)
		printOutcome(p.Run(ctx, first, owner))
	}

	p, ok := a.Pipelines.Get(cfg.Workflow.DefaultPipeline)
	if !ok {
		return fmt.Errorf("unknown pipeline %q", cfg.Workflow.DefaultPipeline)
	}
	fmt.Printf("--- bulk (%s, concurrency %d) ---\n", p.Name(), *concurrency)
	start := time.Now()
	results := a.Dispatcher.RunAll(ctx, orders, idx, p, *concurrency)
	for _, o := range orders {
		if out, ok := results.Get(o.ID); ok {
			printOutcome(out)
		}
	}
	fmt.Printf("bulk: %d orders in %s, peak concurrency %d\n",
		results.Len(), time.Since(start).Round(time.Millisecond), results.Peak())

	drainCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("drain confirmations: %w", err)
	}
	fmt.Printf("confirmations sent: %d\n", len(a.Notifier.Sent()))
	return nil
}

func printOutcome(out model.Outcome) {
	if out.OK() {
		fmt.Printf("order %d: shipped %s in %s\n", out.OrderID, out.TrackingID, out.Elapsed.Round(time.Millisecond))
		return
	}
	fmt.Printf("order %d: failed at %s (%s) compensated=%v: %v\n",
		out.OrderID, out.FailedStep, out.Kind(), out.Compensated, out.Err)
}

func sampleCustomers() []model.Customer {
	return []model.Customer{
		{ID: 1, Name: "Alice Johnson", Email: "alice@email.com", City: "New York", Premium: true, TotalPurchases: decimal.NewFromInt(15000)},
		{ID: 2, Name: "Bob Smith", Email: "bob@email.com", City: "Los Angeles", TotalPurchases: decimal.NewFromInt(3000)},
		{ID: 3, Name: "Carol White", Email: "carol@email.com", City: "New York", Premium: true, TotalPurchases: decimal.NewFromInt(25000)},
		{ID: 4, Name: "David Brown", Email: "david@email.com", City: "Chicago", TotalPurchases: decimal.NewFromInt(1500)},
		{ID: 5, Name: "Eve Davis", Email: "eve@email.com", City: "Los Angeles", Premium: true, TotalPurchases: decimal.NewFromInt(50000)},
		{ID: 6, Name: "Frank Miller", Email: "frank@email.com", City: "Chicago", TotalPurchases: decimal.NewFromInt(800)},
		{ID: 7, Name: "Grace Lee", Email: "grace@email.com", City: "New York", Premium: true, TotalPurchases: decimal.NewFromInt(12000)},
		{ID: 8, Name: "Henry Wilson", Email: "henry@email.com", City: "Boston", TotalPurchases: decimal.NewFromInt(2200)},
	}
}

func item(id int64, name string, qty int, price string) model.LineItem {
	return model.LineItem{ProductID: id, ProductName: name, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func sampleOrders() []model.Order {
	now := time.Now()
	return []model.Order{
		{ID: 1, CustomerID: 1, Items: []model.LineItem{item(1, "Laptop Pro", 1, "1299.99"), item(2, "Wireless Mouse", 1, "29.99")}, PlacedAt: now, Status: model.StatusPending},
		{ID: 2, CustomerID: 2, Items: []model.LineItem{item(4, "Office Chair", 2, "299.99")}, PlacedAt: now, Status: model.StatusPending},
		{ID: 3, CustomerID: 3, Items: []model.LineItem{item(6, `Monitor 27"`, 2, "349.99"), item(7, "Keyboard", 1, "79.99")}, PlacedAt: now, Status: model.StatusPending},
		{ID: 4, CustomerID: 1, Items: []model.LineItem{item(5, "Standing Desk", 1, "599.99")}, PlacedAt: now, Status: model.StatusPending},
		{ID: 5, CustomerID: 5, Items: []model.LineItem{item(1, "Laptop Pro", 2, "1299.99"), item(9, "Webcam HD", 2, "89.99")}, PlacedAt: now, Status: model.StatusPending},
	}
}
