package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// KeySeparator separates serialized arguments.
	KeySeparator = "::"

	// maxKeyLength is the length above which serialized keys are folded
	// into an xxhash digest.
	maxKeyLength = 256
)

// KeyFunc derives a cache key from a memoized function's argument.
type KeyFunc[A any] func(A) string

// SerializeKey builds a deterministic key from args. Maps are serialized
// with sorted keys, structs by exported field, and pointers by the value
// they point to. Keys longer than 256 bytes are replaced by
// "xx:<length>:<digest>".
func SerializeKey(args ...any) string {
	w := keyWriter{path: make(map[visit]struct{})}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = w.value(reflect.ValueOf(arg))
	}
	return Fold(strings.Join(parts, KeySeparator))
}

// Fold shortens a key above the length limit to an xxhash digest.
func Fold(key string) string {
	if len(key) <= maxKeyLength {
		return key
	}
	return fmt.Sprintf("xx:%d:%016x", len(key), xxhash.Sum64String(key))
}

// keyWriter serializes one key. path holds the references being expanded
// so that a value reachable from itself is written as "cycle" instead of
// recursing forever.
type keyWriter struct {
	path map[visit]struct{}
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

// enter marks a reference as being expanded. It reports false when the
// reference is already on the path.
func (w *keyWriter) enter(rv reflect.Value) (visit, bool) {
	v := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if _, ok := w.path[v]; ok {
		return v, false
	}
	w.path[v] = struct{}{}
	return v, true
}

func (w *keyWriter) value(rv reflect.Value) string {
	if !rv.IsValid() {
		return "nil"
	}

	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return w.value(rv.Elem())

	case reflect.Pointer:
		if rv.IsNil() {
			return "nil"
		}
		v, ok := w.enter(rv)
		if !ok {
			return "cycle"
		}
		defer delete(w.path, v)
		return w.value(rv.Elem())

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%s:%x", rv.Kind(), rv.Pointer())

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		if rv.Len() == 0 {
			return "slice" + w.sequence(rv)
		}
		v, ok := w.enter(rv)
		if !ok {
			return "cycle"
		}
		defer delete(w.path, v)
		return "slice" + w.sequence(rv)

	case reflect.Array:
		return "array" + w.sequence(rv)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		v, ok := w.enter(rv)
		if !ok {
			return "cycle"
		}
		defer delete(w.path, v)
		return w.mapping(rv)

	case reflect.Struct:
		return w.structure(rv)

	case reflect.String:
		return strconv.Quote(rv.String())

	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", rv.Interface())
	}

	return jsonFallback(rv)
}

func (w *keyWriter) sequence(rv reflect.Value) string {
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = w.value(rv.Index(i))
	}
	return fmt.Sprintf("[%d]{%s}", len(parts), strings.Join(parts, ","))
}

func (w *keyWriter) mapping(rv reflect.Value) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{w.value(iter.Key()), w.value(iter.Value())})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return fmt.Sprintf("map[%d]{%s}", len(parts), strings.Join(parts, ","))
}

func (w *keyWriter) structure(rv reflect.Value) string {
	rt := rv.Type()
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		parts = append(parts, field.Name+":"+w.value(rv.Field(i)))
	}
	return fmt.Sprintf("%s{%s}", rt.Name(), strings.Join(parts, ","))
}

func jsonFallback(rv reflect.Value) string {
	if !rv.CanInterface() {
		return "opaque:" + rv.Type().String()
	}
	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return "opaque:" + rv.Type().String()
	}
	return "json:" + string(data)
}
