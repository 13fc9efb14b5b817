// Package keypath parses and classifies the symbolic references that
// templates use to point into an instance's data tree.
package keypath

import "strings"

// Reference markers.
const (
	IndexMarker = "@index"
	KeypathRef  = "@keypath"
	RootpathRef = "@rootpath"
	ThisRef     = "@this"
	GUIDRef     = "@guid"
)

// Split breaks a keypath into its keys. "\." escapes a literal dot.
func Split(kp string) []string {
	if kp == "" {
		return nil
	}
	if !strings.Contains(kp, `\.`) {
		return strings.Split(kp, ".")
	}

	var keys []string
	var cur strings.Builder
	for i := 0; i < len(kp); i++ {
		switch {
		case kp[i] == '\\' && i+1 < len(kp) && kp[i+1] == '.':
			cur.WriteByte('.')
			i++
		case kp[i] == '.':
			keys = append(keys, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(kp[i])
		}
	}
	return append(keys, cur.String())
}

// Escape escapes dots inside a single key.
func Escape(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}

// Join escapes and joins keys, skipping empty ones.
func Join(keys ...string) string {
	var b strings.Builder
	for _, k := range keys {
		if k == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(Escape(k))
	}
	return b.String()
}

// Concat appends an already escaped keypath to a base keypath.
func Concat(base, rest string) string {
	switch {
	case base == "":
		return rest
	case rest == "":
		return base
	}
	return base + "." + rest
}

// Parent returns the keypath one level up, or "" at the root.
func Parent(kp string) string {
	keys := Split(kp)
	if len(keys) <= 1 {
		return ""
	}
	return Join(keys[:len(keys)-1]...)
}

// IsIndex reports whether ref is the anonymous loop index.
func IsIndex(ref string) bool {
	return ref == IndexMarker
}

// IsSpecial reports whether ref is one of the @-prefixed special references
// other than @index.
func IsSpecial(ref string) bool {
	switch ref {
	case KeypathRef, RootpathRef, ThisRef, GUIDRef:
		return true
	}
	return false
}

// Kind classifies how a reference is anchored.
type Kind uint8

const (
	// Plain references ("foo.bar") are looked up through the context chain.
	Plain Kind = iota
	// Rooted references ("~/foo") start at the instance root.
	Rooted
	// Relative references ("." / "./foo" / "../foo") start at a context.
	Relative
)

// Reference is a parsed data reference.
type Reference struct {
	Kind Kind
	// Up is how many contexts to climb for Relative references;
	// 0 means the current context.
	Up int
	// Path is the remaining keypath, possibly empty.
	Path string
}

// First returns the first key of the path.
func (r Reference) First() string {
	keys := Split(r.Path)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}

// Parse classifies a data reference.
func Parse(ref string) Reference {
	switch {
	case strings.HasPrefix(ref, "~/"):
		return Reference{Kind: Rooted, Path: ref[2:]}
	case ref == ".", ref == "this":
		return Reference{Kind: Relative}
	case strings.HasPrefix(ref, "./"):
		return Reference{Kind: Relative, Path: ref[2:]}
	case strings.HasPrefix(ref, "this."):
		return Reference{Kind: Relative, Path: ref[5:]}
	case strings.HasPrefix(ref, "../"):
		up := 0
		for strings.HasPrefix(ref, "../") {
			up++
			ref = ref[3:]
		}
		return Reference{Kind: Relative, Up: up, Path: ref}
	case ref == "..":
		return Reference{Kind: Relative, Up: 1}
	}
	return Reference{Kind: Plain, Path: ref}
}
