package model

// Adaptor is a pluggable transform applied to values in the data tree.
// When Filter accepts a value, the model reads it through the Wrapper that
// Wrap returns until the value is replaced.
//
// Adaptors are compared by identity when lists are combined, so
// implementations must be comparable; pointer types are the norm.
type Adaptor interface {
	Filter(value any, keypath string, owner any) bool
	Wrap(owner any, value any, keypath string) Wrapper
}

// Wrapper is the live view of an adapted value.
type Wrapper interface {
	Get() any
	Teardown()
}

// Combine merges adaptor lists in order. Duplicate entries collapse onto
// the first occurrence, so earlier lists keep their position and later
// lists only contribute what is new.
func Combine(srcs ...[]Adaptor) []Adaptor {
	var n int
	for _, src := range srcs {
		n += len(src)
	}
	out := make([]Adaptor, 0, n)
	for _, src := range srcs {
	next:
		for _, a := range src {
			if a == nil {
				continue
			}
			for _, seen := range out {
				if seen == a {
					continue next
				}
			}
			out = append(out, a)
		}
	}
	return out
}
