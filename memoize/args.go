package memoize

import (
	"math"
	"reflect"
	"time"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// splitArgs separates Options from the positional arguments.
func splitArgs(args []any) ([]any, []Option) {
	var positional []any
	var opts []Option
	for _, arg := range args {
		if opt, ok := arg.(Option); ok {
			opts = append(opts, opt)
			continue
		}
		positional = append(positional, arg)
	}
	return positional, opts
}

// parseTTL accepts a time.Duration or any integer or float kind, the latter
// read as milliseconds.
func parseTTL(v any) (time.Duration, error) {
	if d, ok := v.(time.Duration); ok {
		if d <= 0 {
			return 0, argumentError("ttl", "must be positive, got %s", d)
		}
		return d, nil
	}
	var ttl time.Duration
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ms := rv.Int()
		if ms > math.MaxInt64/int64(time.Millisecond) {
			return 0, argumentError("ttl", "%d milliseconds overflows time.Duration", ms)
		}
		ttl = time.Duration(ms) * time.Millisecond
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ms := rv.Uint()
		if ms > uint64(math.MaxInt64/int64(time.Millisecond)) {
			return 0, argumentError("ttl", "%d milliseconds overflows time.Duration", ms)
		}
		ttl = time.Duration(ms) * time.Millisecond
	case reflect.Float32, reflect.Float64:
		ms := rv.Float()
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return 0, argumentError("ttl", "must be finite, got %v", ms)
		}
		if ms*float64(time.Millisecond) >= math.MaxInt64 {
			return 0, argumentError("ttl", "%v milliseconds overflows time.Duration", ms)
		}
		ttl = time.Duration(ms * float64(time.Millisecond))
	default:
		return 0, argumentError("ttl", "must be numeric, got %T", v)
	}
	if ttl <= 0 {
		return 0, argumentError("ttl", "must be positive, got %v", v)
	}
	return ttl, nil
}

type resolverFunc func(args []reflect.Value) any

// firstArgument is the default resolver.
func firstArgument(fnType reflect.Type) resolverFunc {
	return func(args []reflect.Value) any {
		if len(args) == 0 {
			return nil
		}
		if fnType.IsVariadic() && fnType.NumIn() == 1 {
			if args[0].Len() == 0 {
				return nil
			}
			return args[0].Index(0).Interface()
		}
		return args[0].Interface()
	}
}

// newResolver checks that resolver can be called with the arguments of a
// function of type fnType and returns a single key.
func newResolver(fnType reflect.Type, resolver any) (resolverFunc, error) {
	rv := reflect.ValueOf(resolver)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, argumentError("resolver", "must be a function, got %T", resolver)
	}
	rt := rv.Type()
	if rt.NumIn() != fnType.NumIn() || rt.IsVariadic() != fnType.IsVariadic() {
		return nil, argumentError("resolver", "%s does not take the same arguments as %s", rt, fnType)
	}
	for i := 0; i < rt.NumIn(); i++ {
		if !fnType.In(i).AssignableTo(rt.In(i)) {
			return nil, argumentError("resolver", "argument %d of %s cannot accept %s", i, rt, fnType.In(i))
		}
	}
	if rt.NumOut() != 1 {
		return nil, argumentError("resolver", "%s must return exactly one key", rt)
	}
	if rt.IsVariadic() {
		return func(args []reflect.Value) any { return rv.CallSlice(args)[0].Interface() }, nil
	}
	return func(args []reflect.Value) any { return rv.Call(args)[0].Interface() }, nil
}

// failed reports whether results end in a non-nil error.
func failed(fnType reflect.Type, results []reflect.Value) bool {
	n := fnType.NumOut()
	if n == 0 || fnType.Out(n-1) != errorType {
		return false
	}
	return !results[n-1].IsNil()
}

// pendingOf returns the Pending held by v, if any.
func pendingOf(v reflect.Value) (Pending, bool) {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		if v.IsNil() {
			return nil, false
		}
	}
	p, ok := v.Interface().(Pending)
	return p, ok
}
