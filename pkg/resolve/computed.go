package resolve

import (
	"strconv"
	"strings"

	"github.com/vango-dev/viewmodel/pkg/fragment"
)

// Evaluator computes an expression from the values of its references.
type Evaluator func(values []any) any

// ComputedResolver resolves an expression. It owns one child resolver per
// reference and recomputes whenever any of them changes.
type ComputedResolver struct {
	base

	signature string
	fn        Evaluator
	children  []Resolver
}

// NewComputedResolver resolves an expression seen from the fragment from.
// signature is the expression text with references written as _0, _1, ...
// in the order of refs.
func NewComputedResolver(env *Env, from fragment.ID, signature string, refs []string, fn Evaluator, cb Callback) *ComputedResolver {
	r := &ComputedResolver{
		base:      newBase(env),
		signature: signature,
		fn:        fn,
	}

	r.children = make([]Resolver, len(refs))
	for i, ref := range refs {
		r.children[i] = Resolve(env, from, ref, nil)
	}
	r.value = r.evaluate()

	call(cb, r)

	for _, child := range r.children {
		child.Register(r)
	}
	r.resolved = true
	env.bound(KindComputed)
	return r
}

func (r *ComputedResolver) resolver() {}

// Kind implements Resolver.
func (r *ComputedResolver) Kind() Kind {
	return KindComputed
}

// Keypath returns "${...}" with every placeholder replaced by the keypath of
// the reference it stands for, so equal expressions over the same data
// share a keypath.
func (r *ComputedResolver) Keypath() string {
	var b strings.Builder
	b.WriteString("${")
	sig := r.signature
	for i := 0; i < len(sig); i++ {
		if sig[i] != '_' {
			b.WriteByte(sig[i])
			continue
		}
		j := i + 1
		for j < len(sig) && sig[j] >= '0' && sig[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(sig[i+1 : j])
		if err != nil || n >= len(r.children) {
			b.WriteByte('_')
			continue
		}
		b.WriteString(r.children[n].Keypath())
		i = j - 1
	}
	b.WriteString("}")
	return b.String()
}

// Children returns the resolvers of the expression's references.
func (r *ComputedResolver) Children() []Resolver {
	return append([]Resolver(nil), r.children...)
}

// HandleChange recomputes the expression and forwards the change.
func (r *ComputedResolver) HandleChange() {
	if r.unbound {
		return
	}
	r.value = r.evaluate()
	r.deps.Notify()
}

// Unbind releases every child resolver.
func (r *ComputedResolver) Unbind() {
	if r.unbound {
		return
	}
	r.unbound = true
	for _, child := range r.children {
		child.Unregister(r)
		child.Unbind()
	}
	r.resolved = false
	r.env.unbound(KindComputed)
}

func (r *ComputedResolver) evaluate() any {
	values := make([]any, len(r.children))
	for i, child := range r.children {
		values[i] = child.Value()
	}
	if r.fn == nil {
		return nil
	}
	return r.fn(values)
}
