package memoize

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Stats is a point-in-time snapshot of a Memoizer's counters.
type Stats struct {
	// Hits counts calls served from a fresh entry.
	Hits uint64
	// Misses counts calls that invoked the wrapped function.
	Misses uint64
	// Expired counts entries dropped because their TTL had passed, whether
	// found on lookup or by the janitor.
	Expired uint64
	// Failures counts results that were not cached, or were evicted, because
	// the call returned an error or its pending computation failed.
	Failures uint64
	// Entries is the number of entries currently held, including expired
	// entries that have not been looked up or swept yet.
	Entries int
}

// HitRate returns Hits / (Hits + Misses), or 0 before the first call.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type counters struct {
	ctx      context.Context
	attrs    metric.MeasurementOption
	hits     atomic.Uint64
	misses   atomic.Uint64
	expired  atomic.Uint64
	failures atomic.Uint64

	hitCounter     metric.Int64Counter
	missCounter    metric.Int64Counter
	expiredCounter metric.Int64Counter
	failureCounter metric.Int64Counter
}

// newCounters creates the metric instruments. The instruments returned by the
// otel API are usable even when an error is reported, so the error is advisory.
func newCounters(ctx context.Context, meter metric.Meter, name string) (*counters, error) {
	c := &counters{
		ctx:   ctx,
		attrs: metric.WithAttributes(attribute.String("memoizer", name)),
	}
	var errs, err error
	c.hitCounter, err = meter.Int64Counter("memoize.hits",
		metric.WithDescription("Calls served from a fresh cache entry"), metric.WithUnit("{call}"))
	errs = errors.CombineErrors(errs, err)
	c.missCounter, err = meter.Int64Counter("memoize.misses",
		metric.WithDescription("Calls that invoked the memoized function"), metric.WithUnit("{call}"))
	errs = errors.CombineErrors(errs, err)
	c.expiredCounter, err = meter.Int64Counter("memoize.expired",
		metric.WithDescription("Cache entries dropped after their TTL"), metric.WithUnit("{entry}"))
	errs = errors.CombineErrors(errs, err)
	c.failureCounter, err = meter.Int64Counter("memoize.failures",
		metric.WithDescription("Results not cached or evicted because they failed"), metric.WithUnit("{call}"))
	errs = errors.CombineErrors(errs, err)
	return c, errs
}

func (c *counters) hit() {
	c.hits.Add(1)
	c.hitCounter.Add(c.ctx, 1, c.attrs)
}

func (c *counters) miss() {
	c.misses.Add(1)
	c.missCounter.Add(c.ctx, 1, c.attrs)
}

func (c *counters) expire(n int) {
	c.expired.Add(uint64(n))
	c.expiredCounter.Add(c.ctx, int64(n), c.attrs)
}

func (c *counters) failure() {
	c.failures.Add(1)
	c.failureCounter.Add(c.ctx, 1, c.attrs)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Expired:  c.expired.Load(),
		Failures: c.failures.Load(),
	}
}
