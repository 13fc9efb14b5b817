package resolve

import (
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/keypath"
)

// GUIDer is implemented by instances that expose a unique identifier.
type GUIDer interface {
	GUID() string
}

// SpecialResolver resolves the @-references that describe the rendering
// position rather than data: @keypath, @rootpath, @this and @guid.
type SpecialResolver struct {
	base

	ref     string
	from    fragment.ID
	binders binders
}

// NewSpecialResolver resolves ref from the fragment from.
func NewSpecialResolver(env *Env, from fragment.ID, ref string, cb Callback) *SpecialResolver {
	r := &SpecialResolver{base: newBase(env), ref: ref, from: from}
	walked := r.compute()

	call(cb, r)

	r.binders.add(walked, r)
	r.resolved = true
	env.bound(KindSpecial)
	return r
}

func (r *SpecialResolver) resolver() {}

// Kind implements Resolver.
func (r *SpecialResolver) Kind() Kind {
	return KindSpecial
}

// Keypath returns the special reference itself.
func (r *SpecialResolver) Keypath() string {
	return r.ref
}

// Rebind recomputes a context-sensitive value after the context moved.
func (r *SpecialResolver) Rebind() {
	if r.unbound {
		return
	}
	old := r.value
	r.binders.release(r.env.Tree, r)
	r.binders.add(r.compute(), r)
	if r.value != old {
		r.deps.Notify()
	}
}

// Unbind releases the context binding.
func (r *SpecialResolver) Unbind() {
	if r.unbound {
		return
	}
	r.unbound = true
	r.binders.release(r.env.Tree, r)
	r.resolved = false
	r.env.unbound(KindSpecial)
}

// compute sets the value and returns the fragments whose context the value
// depends on: the nearest one with a context and everything below it.
func (r *SpecialResolver) compute() []*fragment.Fragment {
	from := r.env.Tree.Get(r.from)
	if from == nil {
		r.value = nil
		return nil
	}

	switch r.ref {
	case keypath.ThisRef:
		r.value = from.Owner
		return nil
	case keypath.GUIDRef:
		r.value = nil
		if g, ok := from.Owner.(GUIDer); ok {
			r.value = g.GUID()
		}
		return nil
	}

	ctx, walked := nearestContext(r.env.Tree, from)
	kp := ""
	if ctx != nil {
		kp = ctx.Context
	}
	if r.ref == keypath.RootpathRef && from.Root != nil {
		kp = rootpath(from, kp)
	}
	r.value = kp
	return walked
}

// rootpath rewrites kp through the instance's mappings so it names the
// location in the model that actually owns the data.
func rootpath(from *fragment.Fragment, kp string) string {
	keys := keypath.Split(kp)
	if len(keys) == 0 {
		return kp
	}
	target, ok := from.Root.Mapping(keys[0])
	if !ok {
		return kp
	}
	return keypath.Concat(target.Keypath(), keypath.Join(keys[1:]...))
}
