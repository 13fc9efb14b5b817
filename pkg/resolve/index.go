package resolve

import (
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/keypath"
)

// IndexResolver resolves "@index" and named index references. It binds to
// the repeating fragment that owns the index and is keyed in that
// fragment's table by the index it currently reflects.
type IndexResolver struct {
	base

	ref      string
	fragment fragment.ID
}

// NewIndexResolver resolves ref from the fragment from. A named reference
// that no ancestor exposes yields a resolver with no fragment and a nil
// value; that is a valid, empty binding.
func NewIndexResolver(env *Env, from fragment.ID, ref string, cb Callback) *IndexResolver {
	r := &IndexResolver{base: newBase(env), ref: ref}

	// The value and the table come from the same fragment.
	var match *fragment.Fragment
	env.Tree.Walk(from, func(f *fragment.Fragment) bool {
		if ref == keypath.IndexMarker {
			if f.Repeating {
				match = f
			}
		} else if f.IndexRef == ref {
			match = f
		}
		return match == nil
	})
	if match != nil {
		r.value = match.Index
	}

	call(cb, r)

	if match == nil {
		env.logger().Debug("index reference has no repeating ancestor", "ref", ref, "fragment", from)
		return r
	}

	r.fragment = match.ID()
	match.AddIndexResolver(match.Index, r)
	r.resolved = true
	env.bound(KindIndex)
	return r
}

func (r *IndexResolver) resolver() {}

// Kind implements Resolver.
func (r *IndexResolver) Kind() Kind {
	return KindIndex
}

// Keypath always returns the index marker: indices are not data paths.
func (r *IndexResolver) Keypath() string {
	return keypath.IndexMarker
}

// Ref returns the reference this resolver was created for.
func (r *IndexResolver) Ref() string {
	return r.ref
}

// Fragment returns the repeating fragment the resolver is bound to, or 0.
func (r *IndexResolver) Fragment() fragment.ID {
	return r.fragment
}

// Index returns the current value as an int.
func (r *IndexResolver) Index() (int, bool) {
	i, ok := r.value.(int)
	return i, ok
}

// Update sets the new index and notifies every dependent in order. It does
// not move the resolver within its fragment's table; the repeating context
// that changed the index does that.
func (r *IndexResolver) Update(newValue int) {
	if r.unbound {
		return
	}
	r.value = newValue
	r.deps.Notify()
}

// Unbind removes the resolver from its fragment's table by identity.
func (r *IndexResolver) Unbind() {
	if r.unbound {
		return
	}
	r.unbound = true
	if r.fragment == 0 {
		return
	}
	if f := r.env.Tree.Get(r.fragment); f != nil {
		idx, _ := r.Index()
		if !f.RemoveIndexResolver(idx, r) {
			f.DropIndexResolver(r)
		}
	}
	r.fragment = 0
	r.resolved = false
	r.env.unbound(KindIndex)
}
