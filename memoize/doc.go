// Package memoize wraps arbitrary functions with a result cache whose entries
// expire after a fixed time-to-live.
//
// # Constructing a memoized function
//
// [New], [Memoize] and [Wrap] take the function to cache followed by either a
// TTL or a resolver and a TTL:
//
//	// key is the first argument
//	lookup, err := memoize.Wrap(lookupUser, 5000)
//
//	// key is whatever the resolver returns
//	sum, err := memoize.Wrap(addToTime, func(y, m, d int) int {
//	    return y + m + d
//	}, 5*time.Second)
//
// The TTL is a [time.Duration], or any integer or float read as milliseconds.
// Arguments are validated once, when the wrapper is built; every failure is an
// [*ArgumentError] that matches [ErrArgument]. The returned function has the
// exact type of the function passed in.
//
// # Keys
//
// The resolver is called with the arguments of each call. Its result is
// turned into a map key as follows:
//
//   - nil shares a single slot, so every call resolving to nil hits the same
//     entry.
//   - Booleans, numbers and strings are used as they are, tagged with their
//     dynamic type: int(1), uint8(1) and "1" are different keys.
//   - Composite values (structs, arrays, slices, maps, pointers) are walked
//     and encoded with msgpack, so equal values collide regardless of
//     identity. All struct fields take part, exported or not; map entries are
//     ordered by key; -0 and 0 are the same; values held in interfaces are
//     tagged with their dynamic type.
//   - Channels and functions are keyed by identity.
//
// # Expiry
//
// An entry is fresh until now passes its expiry, stamped when the call that
// produced it was made. Freshness is checked on every lookup, which is all
// correctness needs. [WithCleanupInterval] adds a janitor that also drops
// expired entries nobody asks for again. There is no size limit and no other
// eviction.
//
// # Failures
//
// Results are only cached when the call succeeded. When the function's last
// result is an error and it is non-nil, or the function panics, the outcome
// is handed to the caller unchanged and nothing is stored.
//
// # Asynchronous results
//
// When a result implements [Pending], such as a [*Future] from [Go], the
// handle itself is cached: callers within the TTL all receive the same Future
// and the underlying work runs once. If the Future later fails, its entry is
// evicted so the next call retries.
//
//	fetch, _ := memoize.Wrap(func(url string) *memoize.Future[[]byte] {
//	    return memoize.Go(func() ([]byte, error) { return download(url) })
//	}, time.Minute)
//	body, err := fetch(u).Await(ctx)
//
// # Concurrency
//
// A memoized function is safe for concurrent use. Concurrent misses for one
// key run the function once and share its result. A memoized function must
// not call itself with a key that is currently being computed.
package memoize
