package scene

import (
	"fmt"
	"sort"
	"strings"
)

// Op computes a value from the values of its dependencies.
type Op func(values []any) any

var ops = map[string]Op{
	"sum":      sum,
	"concat":   concat,
	"count":    count,
	"join":     join,
	"coalesce": coalesce,
}

// OpNames returns the names usable in computed properties and
// expressions.
func OpNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sum adds numbers. Integers stay integers until a float shows up;
// non-numbers count as zero.
func sum(values []any) any {
	var (
		i       int
		f       float64
		isFloat bool
	)
	for _, v := range values {
		switch n := v.(type) {
		case int:
			i += n
		case int64:
			i += int(n)
		case uint64:
			i += int(n)
		case float64:
			f += n
			isFloat = true
		}
	}
	if isFloat {
		return f + float64(i)
	}
	return i
}

func concat(values []any) any {
	var b strings.Builder
	for _, v := range values {
		if v != nil {
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// count returns the length of the first value if it is a list or a map.
func count(values []any) any {
	if len(values) == 0 {
		return 0
	}
	switch c := values[0].(type) {
	case []any:
		return len(c)
	case map[string]any:
		return len(c)
	}
	return 0
}

// join joins the items of the list in the first value with the second
// value as separator, ", " by default.
func join(values []any) any {
	if len(values) == 0 {
		return ""
	}
	list, _ := values[0].([]any)
	sep := ", "
	if len(values) > 1 {
		if s, ok := values[1].(string); ok {
			sep = s
		}
	}
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, sep)
}

// coalesce returns the first value that is not nil or "".
func coalesce(values []any) any {
	for _, v := range values {
		if v != nil && v != "" {
			return v
		}
	}
	return nil
}
