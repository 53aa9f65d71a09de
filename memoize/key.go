package memoize

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// nilKey is the single slot shared by every call whose resolver yields nil.
const nilKey = "\x00nil"

// normalizeKey turns a resolver result into a map key. Scalars keep their
// value, tagged with their dynamic type. Composite values are encoded
// structurally so that equal values share a key regardless of identity.
func normalizeKey(v any) string {
	if v == nil {
		return nilKey
	}
	rv := reflect.ValueOf(v)
	t := rv.Type()
	switch rv.Kind() {
	case reflect.Bool:
		return tagged(t, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return tagged(t, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return tagged(t, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		return tagged(t, strconv.FormatFloat(canonicalFloat(rv.Float()), 'g', -1, 64))
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return tagged(t, strconv.FormatComplex(complex(canonicalFloat(real(c)), canonicalFloat(imag(c))), 'g', -1, 128))
	case reflect.String:
		return tagged(t, rv.String())
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return tagged(t, identity(rv))
	}
	c := canonicalizer{visiting: make(map[visit]bool)}
	tree, err := c.value(rv)
	if err == nil {
		var buf []byte
		if buf, err = msgpack.Marshal(tree); err == nil {
			return tagged(t, "m"+string(buf))
		}
	}
	return tagged(t, "f"+fmt.Sprintf("%#v", v))
}

func tagged(t reflect.Type, body string) string {
	name := t.String()
	return strconv.Itoa(len(name)) + ":" + name + body
}

// canonicalFloat folds -0 into 0, matching ==.
func canonicalFloat(f float64) float64 {
	if f == 0 {
		return 0
	}
	return f
}

func identity(v reflect.Value) string {
	return "@" + strconv.FormatUint(uint64(v.Pointer()), 16)
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

// canonicalizer rewrites a value into a tree of nil, bools, numbers, strings
// and slices that encodes identically for structurally equal inputs. Every
// struct field takes part, exported or not. Map entries are ordered by their
// encoded key. Pointers, slices and maps already being walked are replaced by
// their address, so cyclic values terminate.
type canonicalizer struct {
	visiting map[visit]bool
}

func (c *canonicalizer) value(v reflect.Value) (any, error) {
	switch v.Kind() {
	case reflect.Invalid:
		return nil, nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return canonicalFloat(v.Float()), nil
	case reflect.Complex64, reflect.Complex128:
		z := v.Complex()
		return []any{canonicalFloat(real(z)), canonicalFloat(imag(z))}, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return identity(v), nil
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		// the dynamic type is part of the key: any(1) and any(int64(1)) differ
		e := v.Elem()
		inner, err := c.value(e)
		return []any{e.Type().String(), inner}, err
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return c.enter(v, func() (any, error) {
			inner, err := c.value(v.Elem())
			return []any{inner}, err
		})
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		return c.enter(v, func() (any, error) { return c.elements(v) })
	case reflect.Array:
		return c.elements(v)
	case reflect.Struct:
		fields := make([]any, v.NumField())
		for i := range fields {
			f, err := c.value(v.Field(i))
			if err != nil {
				return nil, err
			}
			fields[i] = f
		}
		return fields, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return c.enter(v, func() (any, error) { return c.entries(v) })
	}
	return nil, fmt.Errorf("memoize: cannot encode %s", v.Type())
}

// enter walks fn unless v is already on the current path, in which case the
// value is replaced by its address. Addresses are strings, which never occur
// where a pointer, slice or map is otherwise encoded.
func (c *canonicalizer) enter(v reflect.Value, fn func() (any, error)) (any, error) {
	k := visit{ptr: v.Pointer(), typ: v.Type()}
	if c.visiting[k] {
		return identity(v), nil
	}
	c.visiting[k] = true
	defer delete(c.visiting, k)
	return fn()
}

func (c *canonicalizer) elements(v reflect.Value) (any, error) {
	out := make([]any, v.Len())
	for i := range out {
		e, err := c.value(v.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

type mapEntry struct {
	key   string
	value any
}

func (c *canonicalizer) entries(v reflect.Value) (any, error) {
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := c.value(iter.Key())
		if err != nil {
			return nil, err
		}
		encoded, err := msgpack.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := c.value(iter.Value())
		if err != nil {
			return nil, err
		}
		entries = append(entries, mapEntry{key: string(encoded), value: val})
	}
	slices.SortFunc(entries, func(a, b mapEntry) int { return strings.Compare(a.key, b.key) })
	out := make([]any, 0, 2*len(entries))
	for _, e := range entries {
		out = append(out, e.key, e.value)
	}
	return out, nil
}

// fingerprint is the form in which keys appear in logs.
func fingerprint(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}
