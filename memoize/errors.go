package memoize

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrArgument is matched by every error returned when a Memoizer cannot be
// constructed from the arguments it was given.
var ErrArgument = errors.New("memoize: argument error")

const usage = "memoize.New(fn, [resolver,] ttl, [options...]): fn and resolver must be functions, ttl must be a positive number of milliseconds or a time.Duration"

// ArgumentError describes why the arguments to New, Memoize or Wrap were rejected.
type ArgumentError struct {
	// Argument names the offending positional argument: "fn", "resolver" or "ttl".
	Argument string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("memoize: invalid %s: %s", e.Argument, e.Reason)
}

// Is reports whether target is ErrArgument.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrArgument
}

func argumentError(argument string, format string, args ...interface{}) error {
	return errors.WithHint(&ArgumentError{Argument: argument, Reason: fmt.Sprintf(format, args...)}, usage)
}
