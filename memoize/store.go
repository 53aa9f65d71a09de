package memoize

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/agentuity/go-memoize/logger"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
)

type entry struct {
	results   []reflect.Value
	expiresAt time.Time
}

// expired reports whether now is past the entry's expiry. An entry is still
// fresh at exactly expiresAt.
func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

type lookupStatus int

const (
	statusAbsent lookupStatus = iota
	statusFresh
	statusStale
)

// store holds the entries of a single Memoizer. It does not reference the
// Memoizer, so background goroutines working on it do not keep the Memoizer
// reachable.
type store struct {
	clock     clock.PassiveClock
	entries   map[string]*entry
	mutex     sync.Mutex
	waitGroup sync.WaitGroup
	closed    bool
	log       logger.Logger
	stats     *counters
}

func newStore(clk clock.PassiveClock, log logger.Logger, stats *counters) *store {
	return &store{
		clock:   clk,
		entries: make(map[string]*entry),
		log:     log,
		stats:   stats,
	}
}

// lookup returns the results stored under key if they are still fresh.
// A stale entry is removed on the way out.
func (s *store) lookup(key string) ([]reflect.Value, lookupStatus) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, statusAbsent
	}
	if e.expired(s.clock.Now()) {
		delete(s.entries, key)
		s.stats.expire(1)
		return nil, statusStale
	}
	s.stats.hit()
	return e.results, statusFresh
}

func (s *store) put(key string, e *entry) {
	s.mutex.Lock()
	s.entries[key] = e
	s.mutex.Unlock()
}

// deleteIf removes key only while it still maps to e, so a late failure of an
// old pending computation cannot drop the entry that replaced it.
func (s *store) deleteIf(key string, e *entry) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if cur, ok := s.entries[key]; ok && cur == e {
		delete(s.entries, key)
		return true
	}
	return false
}

func (s *store) len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.entries)
}

// sweep removes every expired entry and returns how many were removed.
func (s *store) sweep() int {
	now := s.clock.Now()
	var removed int
	s.mutex.Lock()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mutex.Unlock()
	if removed > 0 {
		s.stats.expire(removed)
	}
	return removed
}

// shutdown stops new watchers from starting and waits for the running
// goroutines, which must already have been told to stop through their context.
func (s *store) shutdown(cancel context.CancelFunc) {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	cancel()
	s.waitGroup.Wait()
}

func (s *store) run(ctx context.Context, interval time.Duration) {
	defer s.waitGroup.Done()
	wait.UntilWithContext(ctx, func(context.Context) {
		if n := s.sweep(); n > 0 {
			s.log.Debug("janitor removed %d expired entries", n)
		}
	}, interval)
}

// watch evicts e from key if p fails. Futures report synchronously; any
// other Pending is observed from a goroutine that gives up when ctx is done.
func (s *store) watch(ctx context.Context, key string, e *entry, p Pending) {
	evict := func(err error) {
		if err == nil {
			return
		}
		s.stats.failure()
		if s.deleteIf(key, e) {
			s.log.Debug("pending result for key %s failed, evicted: %v", fingerprint(key), err)
		}
	}
	if n, ok := p.(settleNotifier); ok {
		n.notify(evict)
		return
	}
	// Add must not race with the Wait in shutdown
	s.mutex.Lock()
	if s.closed || ctx.Err() != nil {
		s.mutex.Unlock()
		return
	}
	s.waitGroup.Add(1)
	s.mutex.Unlock()
	go func() {
		defer s.waitGroup.Done()
		select {
		case <-p.Done():
			evict(p.Err())
		case <-ctx.Done():
		}
	}()
}
