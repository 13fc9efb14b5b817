package resolve

import (
	"io"
	"log/slog"

	"github.com/vango-dev/viewmodel/pkg/dep"
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/keypath"
)

// Kind discriminates the resolver variants.
type Kind uint8

const (
	KindKeypath Kind = iota + 1
	KindIndex
	KindComputed
	KindSpecial
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindKeypath:
		return "keypath"
	case KindIndex:
		return "index"
	case KindComputed:
		return "computed"
	case KindSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Resolver is the surface shared by every resolver kind. The set of
// implementations is closed to this package.
type Resolver interface {
	dep.Source

	// Kind reports which variant this is.
	Kind() Kind
	// Keypath identifies what the resolver observes.
	Keypath() string
	// Value returns the current resolved value.
	Value() any
	// Resolved reports whether the reference has been bound to a source.
	Resolved() bool
	// Unbind releases the resolver from its source. Safe to call twice.
	Unbind()

	resolver()
}

// Observer is told when resolvers are bound and released.
type Observer interface {
	ResolverBound(kind Kind)
	ResolverUnbound(kind Kind)
}

// Env carries what resolvers need from their runtime.
type Env struct {
	Tree     *fragment.Tree
	Tracker  *dep.Tracker
	Logger   *slog.Logger
	Observer Observer
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

func (e *Env) bound(k Kind) {
	if e.Observer != nil {
		e.Observer.ResolverBound(k)
	}
}

func (e *Env) unbound(k Kind) {
	if e.Observer != nil {
		e.Observer.ResolverUnbound(k)
	}
}

// base holds the state every variant shares.
type base struct {
	env      *Env
	deps     dep.List
	value    any
	resolved bool
	unbound  bool
}

func newBase(env *Env) base {
	return base{env: env, deps: dep.NewList(env.Tracker)}
}

// Register adds d to the resolver's dependents.
func (b *base) Register(d dep.Dependent) {
	b.deps.Register(d)
}

// Unregister removes d. No-op if absent.
func (b *base) Unregister(d dep.Dependent) {
	b.deps.Unregister(d)
}

// Value returns the current value.
func (b *base) Value() any {
	return b.value
}

// Resolved reports whether the resolver is bound to a source.
func (b *base) Resolved() bool {
	return b.resolved
}

// Dependents returns the number of registered dependents.
func (b *base) Dependents() int {
	return b.deps.Len()
}

// Callback receives a resolver before it binds to its source.
type Callback func(r Resolver)

// Resolve creates the resolver for ref as seen from the fragment from.
func Resolve(env *Env, from fragment.ID, ref string, cb Callback) Resolver {
	switch {
	case keypath.IsIndex(ref):
		return NewIndexResolver(env, from, ref, cb)
	case keypath.IsSpecial(ref):
		return NewSpecialResolver(env, from, ref, cb)
	}
	if _, ok := env.Tree.IndexRefs(from)[ref]; ok {
		return NewIndexResolver(env, from, ref, cb)
	}
	return NewKeypathResolver(env, from, ref, cb)
}

func call(cb Callback, r Resolver) {
	if cb != nil {
		cb(r)
	}
}
