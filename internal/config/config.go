// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliamunaev/order-fulfillment/internal/logging"
	"github.com/iliamunaev/order-fulfillment/internal/retry"
	"github.com/iliamunaev/order-fulfillment/internal/service/inventory"
	"github.com/iliamunaev/order-fulfillment/internal/service/notify"
	"github.com/iliamunaev/order-fulfillment/internal/service/payment"
	"github.com/iliamunaev/order-fulfillment/internal/service/pool"
	"github.com/iliamunaev/order-fulfillment/internal/service/shared"
	"github.com/iliamunaev/order-fulfillment/internal/service/shipping"
)

const (
	// Default server settings
	defaultAddr              = ":8080"
	defaultRequestTimeout    = 10 * time.Second
	defaultReadHeaderTimeout = 3 * time.Second
	defaultShutdownTimeout   = 15 * time.Second

	// Default workflow settings
	defaultDeadline       = 3 * time.Second
	defaultGrace          = 250 * time.Millisecond
	defaultReleaseTimeout = 5 * time.Second
	defaultMaxConcurrency = 4
	defaultPipeline       = "compensating"

	// Default simulation settings
	defaultCouriers = 5

	// Default monitoring settings
	defaultMetricsNamespace = "orderflow"
	defaultMetricsPath      = "/metrics"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Simulation SimulationConfig `yaml:"simulation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    logging.Config   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RequestTimeout bounds a single /order or /orders/bulk request.
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// WorkflowConfig tunes the orchestrator.
type WorkflowConfig struct {
	Retry retry.Policy `yaml:"retry"`

	// Deadline bounds a whole hardened workflow; Grace is how long a timed
	// out caller waits for the abandoned attempt to unwind.
	Deadline time.Duration `yaml:"deadline"`
	Grace    time.Duration `yaml:"grace"`

	ReleaseTimeout time.Duration `yaml:"release_timeout"`

	// MaxConcurrency is the bulk default when a request does not set one.
	MaxConcurrency  int    `yaml:"max_concurrency"`
	DefaultPipeline string `yaml:"default_pipeline"`
}

// SimulationConfig sets the behavior of the simulated external systems.
type SimulationConfig struct {
	Couriers  int              `yaml:"couriers"`
	Inventory inventory.Config `yaml:"inventory"`
	Payment   payment.Config   `yaml:"payment"`
	Shipping  shipping.Config  `yaml:"shipping"`
	Notify    notify.Config    `yaml:"notify"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// Default returns a configuration matching the reference scenario.
func Default() Config {
	cfg := Config{
		Workflow: WorkflowConfig{Retry: retry.DefaultPolicy()},
		Simulation: SimulationConfig{
			Inventory: inventory.DefaultConfig(),
			Payment:   payment.DefaultConfig(),
			Shipping:  shipping.DefaultConfig(),
			Notify:    notify.DefaultConfig(),
		},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets reasonable default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Workflow.Retry.MaxAttempts == 0 {
		c.Workflow.Retry = retry.DefaultPolicy()
	}
	if c.Workflow.Deadline == 0 {
		c.Workflow.Deadline = defaultDeadline
	}
	if c.Workflow.Grace == 0 {
		c.Workflow.Grace = defaultGrace
	}
	if c.Workflow.ReleaseTimeout == 0 {
		c.Workflow.ReleaseTimeout = defaultReleaseTimeout
	}
	if c.Workflow.MaxConcurrency == 0 {
		c.Workflow.MaxConcurrency = defaultMaxConcurrency
	}
	if c.Workflow.DefaultPipeline == "" {
		c.Workflow.DefaultPipeline = defaultPipeline
	}
	if c.Simulation.Couriers == 0 {
		c.Simulation.Couriers = defaultCouriers
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaultMetricsNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
	c.Logging = c.Logging.WithDefaults()
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server request timeout must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server shutdown timeout must be positive"))
	}
	if err := c.Workflow.Retry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("workflow retry: %w", err))
	}
	if c.Workflow.Deadline <= 0 {
		errs = append(errs, errors.New("workflow deadline must be positive"))
	}
	if c.Workflow.Grace < 0 {
		errs = append(errs, errors.New("workflow grace must not be negative"))
	}
	if c.Workflow.MaxConcurrency < 1 || c.Workflow.MaxConcurrency > pool.MaxSize {
		errs = append(errs, fmt.Errorf("workflow max concurrency must be between 1 and %d", pool.MaxSize))
	}
	if c.Simulation.Couriers < 1 || c.Simulation.Couriers > pool.MaxSize {
		errs = append(errs, fmt.Errorf("simulation couriers must be between 1 and %d", pool.MaxSize))
	}
	if c.Simulation.Shipping.MinQuote < 0 || c.Simulation.Shipping.MaxQuote < c.Simulation.Shipping.MinQuote {
		errs = append(errs, errors.New("simulation shipping quote range is invalid"))
	}
	for name, b := range map[string]shared.Behavior{
		"inventory.check":   c.Simulation.Inventory.Check,
		"inventory.reserve": c.Simulation.Inventory.Reserve,
		"inventory.release": c.Simulation.Inventory.Release,
		"payment.charge":    c.Simulation.Payment.Charge,
		"shipping.quote":    c.Simulation.Shipping.Quote,
		"shipping.pickup":   c.Simulation.Shipping.Pickup,
		"notify.email":      c.Simulation.Notify.Email,
	} {
		if err := validBehavior(b); err != nil {
			errs = append(errs, fmt.Errorf("simulation %s: %w", name, err))
		}
	}
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	return errors.Join(errs...)
}

func validBehavior(b shared.Behavior) error {
	if b.Latency < 0 {
		return errors.New("latency must not be negative")
	}
	if b.NegativeRate < 0 || b.NegativeRate > 1 {
		return errors.New("negative_rate must be within [0, 1]")
	}
	if b.FaultRate < 0 || b.FaultRate > 1 {
		return errors.New("fault_rate must be within [0, 1]")
	}
	return nil
}

// Load reads the YAML config file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
