package memoize

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapArgumentErrors(t *testing.T) {
	fn := func(k int) int { return k }
	resolver := func(k int) int { return k }

	tests := []struct {
		name     string
		call     func() error
		argument string
	}{
		{"missing ttl", func() error { _, err := Wrap(fn); return err }, "ttl"},
		{"options only", func() error { _, err := Wrap(fn, WithName("x")); return err }, "ttl"},
		{"fn not a function", func() error { _, err := Wrap(1, resolver, 1000); return err }, "fn"},
		{"nil fn", func() error { _, err := Wrap[func(int) int](nil, 1000); return err }, "fn"},
		{"ttl not a number", func() error { _, err := Wrap(fn, "hello"); return err }, "ttl"},
		{"ttl after resolver not a number", func() error { _, err := Wrap(fn, resolver, "1000"); return err }, "ttl"},
		{"zero ttl", func() error { _, err := Wrap(fn, 0); return err }, "ttl"},
		{"negative ttl", func() error { _, err := Wrap(fn, -5); return err }, "ttl"},
		{"negative duration", func() error { _, err := Wrap(fn, -time.Second); return err }, "ttl"},
		{"NaN ttl", func() error { _, err := Wrap(fn, math.NaN()); return err }, "ttl"},
		{"infinite ttl", func() error { _, err := Wrap(fn, math.Inf(1)); return err }, "ttl"},
		{"overflowing ttl", func() error { _, err := Wrap(fn, int64(math.MaxInt64)); return err }, "ttl"},
		{"sub-nanosecond ttl", func() error { _, err := Wrap(fn, 1e-9); return err }, "ttl"},
		{"resolver not a function", func() error { _, err := Wrap(fn, "key", 1000); return err }, "resolver"},
		{"nil resolver", func() error { _, err := Wrap(fn, nil, 1000); return err }, "resolver"},
		{"resolver arity", func() error { _, err := Wrap(fn, func(a, b int) int { return a }, 1000); return err }, "resolver"},
		{"resolver argument type", func() error { _, err := Wrap(fn, func(s string) string { return s }, 1000); return err }, "resolver"},
		{"resolver without result", func() error { _, err := Wrap(fn, func(int) {}, 1000); return err }, "resolver"},
		{"resolver with two results", func() error { _, err := Wrap(fn, func(k int) (int, error) { return k, nil }, 1000); return err }, "resolver"},
		{"too many arguments", func() error { _, err := Wrap(fn, resolver, 1000, 2000); return err }, "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArgument)
			var argErr *ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.Equal(t, tt.argument, argErr.Argument)
			assert.Contains(t, err.Error(), "memoize: invalid "+tt.argument)
			assert.Contains(t, errors.GetAllHints(err), usage)
		})
	}
}

func TestWrapAcceptedTTLs(t *testing.T) {
	fn := func(k int) int { return k }
	tests := []struct {
		ttl  any
		want time.Duration
	}{
		{1000, time.Second},
		{int32(250), 250 * time.Millisecond},
		{uint16(5), 5 * time.Millisecond},
		{1.5, 1500 * time.Microsecond},
		{float32(0.5), 500 * time.Microsecond},
		{3 * time.Minute, 3 * time.Minute},
	}
	for _, tt := range tests {
		m, err := New(fn, tt.ttl)
		require.NoError(t, err, "ttl %v", tt.ttl)
		assert.Equal(t, tt.want, m.TTL())
	}
}

func TestWrapResolverAcceptsInterfaces(t *testing.T) {
	fn := func(k int, s string) string { return s }
	_, err := Wrap(fn, func(k any, s any) any { return k }, 1000)
	assert.NoError(t, err)
}

func TestMemoizeArgumentError(t *testing.T) {
	_, err := Memoize(func() {}, "soon")
	assert.True(t, errors.Is(err, ErrArgument))
	assert.False(t, errors.Is(errors.New("other"), ErrArgument))
}
