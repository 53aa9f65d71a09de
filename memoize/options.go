package memoize

import (
	"context"
	"time"

	"github.com/agentuity/go-memoize/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"k8s.io/utils/clock"
)

const instrumentationName = "github.com/agentuity/go-memoize"

// config holds the resolved configuration for a Memoizer.
type config struct {
	ctx             context.Context
	logger          logger.Logger
	clock           clock.PassiveClock
	meter           metric.Meter
	name            string
	cleanupInterval time.Duration
}

// Option configures a Memoizer. Options may be passed anywhere after fn in the
// argument list of New, Memoize and Wrap.
type Option func(*config)

func defaultConfig() config {
	return config{
		ctx:    context.Background(),
		logger: logger.NewConsoleLogger(logger.LevelNone),
		clock:  clock.RealClock{},
		meter:  otel.Meter(instrumentationName),
		name:   uuid.NewString()[:8],
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithContext bounds the background goroutines of the Memoizer (the cleanup
// janitor and pending-computation watchers). Cancelling ctx stops them; the
// wrapped function keeps working with lazy expiry only.
func WithContext(ctx context.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// WithLogger sets the logger. Defaults to a console logger that logs nothing.
func WithLogger(l logger.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock sets the clock used to stamp and check entry expiry.
// Defaults to the wall clock.
func WithClock(clk clock.PassiveClock) Option {
	return func(c *config) { c.clock = clk }
}

// WithMeter sets the OpenTelemetry meter used for the hit, miss, expiry and
// failure counters. Defaults to the global meter provider.
func WithMeter(meter metric.Meter) Option {
	return func(c *config) { c.meter = meter }
}

// WithName names the Memoizer in logs and metric attributes.
// Defaults to a short random identifier.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithCleanupInterval enables a background janitor that removes expired
// entries every d. Expired entries are never returned either way; the janitor
// only bounds memory when keys stop being requested. Disabled by default.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *config) { c.cleanupInterval = d }
}
