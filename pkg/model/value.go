package model

import (
	"maps"
	"reflect"
	"strconv"
)

// childValue reads key out of a container value.
func childValue(container any, key string) (any, bool) {
	switch c := container.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case []any:
		i, ok := index(key, len(c))
		if !ok {
			return nil, false
		}
		return c[i], true
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := index(key, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	case reflect.Struct:
		f := rv.FieldByName(key)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

func index(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// assign writes value at keys below container and returns the container to
// store in its parent. Missing intermediate containers become maps.
func assign(container any, keys []string, value any) (any, bool) {
	if len(keys) == 0 {
		return value, true
	}
	key, rest := keys[0], keys[1:]

	switch c := container.(type) {
	case nil:
		m := map[string]any{}
		v, ok := assign(nil, rest, value)
		if !ok {
			return container, false
		}
		m[key] = v
		return m, true
	case map[string]any:
		v, ok := assign(c[key], rest, value)
		if !ok {
			return container, false
		}
		c[key] = v
		return c, true
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			return container, false
		}
		for len(c) <= i {
			c = append(c, nil)
		}
		v, ok := assign(c[i], rest, value)
		if !ok {
			return container, false
		}
		c[i] = v
		return c, true
	}
	return container, false
}

// equals reports whether two observed values are the same. Comparable
// values use ==, everything else falls back to reflect.DeepEqual.
func equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Struct, reflect.Array, reflect.Interface:
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

// Clone returns a deep copy of m. Nested maps and []any lists are copied;
// other values are shared.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and []any lists and returns other values
// unchanged.
func CloneValue(v any) any {
	switch c := v.(type) {
	case map[string]any:
		return Clone(c)
	case []any:
		out := make([]any, len(c))
		for i, item := range c {
			out[i] = CloneValue(item)
		}
		return out
	}
	return v
}
