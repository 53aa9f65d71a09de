package memoize

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/agentuity/go-memoize/logger"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

// Memoizer caches the results of one function for a fixed TTL, keyed by the
// output of a resolver applied to each call's arguments.
type Memoizer struct {
	fn        reflect.Value
	fnType    reflect.Type
	wrapped   reflect.Value
	resolve   resolverFunc
	ttl       time.Duration
	clock     clock.PassiveClock
	store     *store
	stats     *counters
	flight    singleflight.Group
	log       logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	cleanup   runtime.Cleanup
	closeOnce sync.Once
}

// New builds a Memoizer for fn. The remaining arguments are either (ttl) or
// (resolver, ttl), optionally interleaved with Options:
//
//	m, err := memoize.New(fetch, 5000)                      // key: first argument
//	m, err := memoize.New(fetch, func(y, m, d int) int {    // key: resolver result
//	    return y + m + d
//	}, 5*time.Second, memoize.WithName("fetch"))
//
// ttl is a time.Duration or a positive number of milliseconds. A resolver must
// accept the same arguments as fn and return one key. Every validation failure
// is an *ArgumentError matching ErrArgument.
func New(fn any, args ...any) (*Memoizer, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, argumentError("fn", "must be a function, got %T", fn)
	}
	fnType := fv.Type()

	positional, opts := splitArgs(args)
	var resolverArg, ttlArg any
	hasResolver := false
	switch len(positional) {
	case 0:
		return nil, argumentError("ttl", "missing")
	case 1:
		ttlArg = positional[0]
	case 2:
		resolverArg, ttlArg = positional[0], positional[1]
		hasResolver = true
	default:
		return nil, argumentError("ttl", "expected (ttl) or (resolver, ttl), got %d arguments", len(positional))
	}

	resolve := firstArgument(fnType)
	if hasResolver {
		var err error
		if resolve, err = newResolver(fnType, resolverArg); err != nil {
			return nil, err
		}
	}
	ttl, err := parseTTL(ttlArg)
	if err != nil {
		return nil, err
	}

	cfg := applyOptions(opts)
	log := cfg.logger.WithPrefix("[memoize]").With(map[string]interface{}{"memoizer": cfg.name})
	stats, err := newCounters(cfg.ctx, cfg.meter, cfg.name)
	if err != nil {
		log.Warn("error creating metric instruments: %v", err)
	}
	ctx, cancel := context.WithCancel(cfg.ctx)

	m := &Memoizer{
		fn:      fv,
		fnType:  fnType,
		resolve: resolve,
		ttl:     ttl,
		clock:   cfg.clock,
		store:   newStore(cfg.clock, log, stats),
		stats:   stats,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	m.wrapped = reflect.MakeFunc(fnType, m.call)
	if cfg.cleanupInterval > 0 {
		m.store.waitGroup.Add(1)
		go m.store.run(ctx, cfg.cleanupInterval)
	}
	// stop background work once neither the Memoizer nor its function is reachable
	m.cleanup = runtime.AddCleanup(m, func(cancel context.CancelFunc) { cancel() }, cancel)
	log.Debug("created for %s with ttl %s", fnType, ttl)
	return m, nil
}

// Memoize is New followed by Func: it returns the memoized function as an any
// holding the same function type as fn.
func Memoize(fn any, args ...any) (any, error) {
	m, err := New(fn, args...)
	if err != nil {
		return nil, err
	}
	return m.Func(), nil
}

// Wrap is the typed form of Memoize:
//
//	lookup, err := memoize.Wrap(db.LookupUser, time.Minute)
//	user, err := lookup(ctx, id) // same signature as db.LookupUser
func Wrap[F any](fn F, args ...any) (F, error) {
	m, err := New(fn, args...)
	if err != nil {
		var zero F
		return zero, err
	}
	return m.Func().(F), nil
}

// Func returns the memoized function. Its dynamic type is the type of fn.
func (m *Memoizer) Func() any {
	return m.wrapped.Interface()
}

// TTL returns how long results stay cached.
func (m *Memoizer) TTL() time.Duration {
	return m.ttl
}

// Len returns the number of entries held, including expired entries that have
// not been looked up or swept yet.
func (m *Memoizer) Len() int {
	return m.store.len()
}

// Stats returns a snapshot of the Memoizer's counters.
func (m *Memoizer) Stats() Stats {
	s := m.stats.snapshot()
	s.Entries = m.store.len()
	return s
}

// Close stops the janitor and any goroutines watching pending results. The
// memoized function stays usable afterwards, relying on lazy expiry alone.
func (m *Memoizer) Close() error {
	m.closeOnce.Do(func() {
		m.cleanup.Stop()
		m.store.shutdown(m.cancel)
	})
	return nil
}

func (m *Memoizer) call(args []reflect.Value) []reflect.Value {
	key := normalizeKey(m.resolve(args))
	results, status := m.store.lookup(key)
	if status == statusFresh {
		if m.log.IsTraceEnabled() {
			m.log.Trace("hit %s", fingerprint(key))
		}
		return results
	}
	if status == statusStale && m.log.IsTraceEnabled() {
		m.log.Trace("expired %s", fingerprint(key))
	}
	v, err, _ := m.flight.Do(key, func() (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				m.stats.failure()
				err = &callPanic{value: r}
			}
		}()
		// another flight may have stored the key since our lookup
		if results, status := m.store.lookup(key); status == statusFresh {
			return results, nil
		}
		return m.compute(key, args), nil
	})
	if p, ok := err.(*callPanic); ok {
		panic(p.value)
	}
	return v.([]reflect.Value)
}

// callPanic carries a panic out of a singleflight call so it can be re-raised
// with its original value.
type callPanic struct {
	value any
}

func (p *callPanic) Error() string {
	return fmt.Sprintf("memoize: memoized function panicked: %v", p.value)
}

func (m *Memoizer) compute(key string, args []reflect.Value) []reflect.Value {
	if m.log.IsTraceEnabled() {
		m.log.Trace("miss %s", fingerprint(key))
	}
	// the TTL runs from the call, not from when fn returns
	now := m.clock.Now()
	m.stats.miss()
	var results []reflect.Value
	if m.fnType.IsVariadic() {
		results = m.fn.CallSlice(args)
	} else {
		results = m.fn.Call(args)
	}
	if failed(m.fnType, results) {
		m.stats.failure()
		m.log.Debug("call for key %s failed, not cached: %v", fingerprint(key), results[len(results)-1].Interface())
		return results
	}
	e := &entry{results: results, expiresAt: now.Add(m.ttl)}
	m.store.put(key, e)
	for _, r := range results {
		if p, ok := pendingOf(r); ok {
			m.store.watch(m.ctx, key, e, p)
		}
	}
	return results
}
