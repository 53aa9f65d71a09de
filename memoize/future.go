package memoize

import (
	"context"
	"fmt"
	"sync"
)

// Pending is implemented by results that complete asynchronously. When a
// memoized function returns a Pending value the handle itself is cached, so
// every caller inside the TTL shares one underlying computation.
type Pending interface {
	// Done is closed once the computation has settled.
	Done() <-chan struct{}
	// Err returns nil until the computation has settled, and the failure, if
	// any, afterwards.
	Err() error
}

// settleNotifier is implemented by Pending values that can report settlement
// synchronously, before Done is closed.
type settleNotifier interface {
	notify(fn func(error))
}

// Result holds either a value (Ok) or an error (Err).
type Result[T any] struct {
	Ok  T
	Err error
}

// IsOk returns true if the Result contains no error.
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// Future is a Pending computation producing a T.
type Future[T any] struct {
	done     chan struct{}
	mu       sync.Mutex
	result   Result[T]
	settled  bool
	watchers []func(error)
}

var (
	_ Pending        = (*Future[int])(nil)
	_ settleNotifier = (*Future[int])(nil)
)

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic in fn settles the Future with an error instead of crashing the process.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go f.run(fn)
	return f
}

// GoContext is like Go, passing ctx to fn.
func GoContext[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	return Go(func() (T, error) { return fn(ctx) })
}

// Resolved returns a Future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Failed returns a Future already settled with err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) run(fn func() (T, error)) {
	var (
		val T
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			var zero T
			f.settle(zero, fmt.Errorf("memoize: future panicked: %v", r))
			return
		}
		f.settle(val, err)
	}()
	val, err = fn()
}

func (f *Future[T]) settle(val T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.result = Result[T]{Ok: val, Err: err}
	watchers := f.watchers
	f.watchers = nil
	f.mu.Unlock()
	for _, fn := range watchers {
		fn(err)
	}
	close(f.done)
}

func (f *Future[T]) notify(fn func(error)) {
	f.mu.Lock()
	if !f.settled {
		f.watchers = append(f.watchers, fn)
		f.mu.Unlock()
		return
	}
	err := f.result.Err
	f.mu.Unlock()
	fn(err)
}

// Done is closed once the Future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Err returns the failure of a settled Future, and nil before it settles.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
		return f.result.Err
	default:
		return nil
	}
}

// Await blocks until the Future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result.Ok, f.result.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the Future settles and returns its outcome.
func (f *Future[T]) Result() Result[T] {
	<-f.done
	return f.result
}
