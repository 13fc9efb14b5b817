package resolve

import (
	"reflect"

	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/keypath"
	"github.com/vango-dev/viewmodel/pkg/model"
)

// KeypathResolver resolves a data reference to a node of a data model.
// References that cannot be found yet wait on the instance's model and bind
// as soon as the missing key appears.
type KeypathResolver struct {
	base

	ref    string
	parsed keypath.Reference
	from   fragment.ID

	model   *model.Model
	binders binders

	waitRoot *model.Root
	waitKey  string

	counted bool
}

// NewKeypathResolver resolves ref from the fragment from.
func NewKeypathResolver(env *Env, from fragment.ID, ref string, cb Callback) *KeypathResolver {
	r := &KeypathResolver{
		base:   newBase(env),
		ref:    ref,
		parsed: keypath.Parse(ref),
		from:   from,
	}

	node, walked := r.lookup()
	if node != nil {
		r.value = node.Get()
	}

	call(cb, r)

	r.attach(node, walked)
	r.account()
	return r
}

func (r *KeypathResolver) resolver() {}

// Kind implements Resolver.
func (r *KeypathResolver) Kind() Kind {
	return KindKeypath
}

// Keypath returns the keypath of the bound node, or the raw reference
// while unresolved.
func (r *KeypathResolver) Keypath() string {
	if r.model != nil {
		return r.model.Keypath()
	}
	return r.ref
}

// Model returns the bound node, or nil while unresolved.
func (r *KeypathResolver) Model() *model.Model {
	return r.model
}

// HandleChange re-reads the bound node and forwards the change. While
// unresolved it is the late-binding hook: the awaited key appeared.
func (r *KeypathResolver) HandleChange() {
	if r.unbound {
		return
	}
	if r.model == nil {
		r.release()
		r.attach(r.lookup())
		r.account()
		if r.model != nil {
			r.deps.Notify()
		}
		return
	}
	r.value = r.model.Get()
	r.deps.Notify()
}

// Rebind resolves the reference again after an ancestor context moved and
// notifies dependents if the binding or the value changed.
func (r *KeypathResolver) Rebind() {
	if r.unbound {
		return
	}
	oldKeypath, oldValue := r.Keypath(), r.value
	r.release()
	r.value = nil
	r.attach(r.lookup())
	r.account()
	if r.Keypath() != oldKeypath || !reflect.DeepEqual(r.value, oldValue) {
		r.deps.Notify()
	}
}

// Unbind releases the node, the context binding and any pending wait.
func (r *KeypathResolver) Unbind() {
	if r.unbound {
		return
	}
	r.release()
	r.unbound = true
	r.account()
}

// account keeps the observer's view in step with the resolved flag.
func (r *KeypathResolver) account() {
	if r.resolved == r.counted {
		return
	}
	r.counted = r.resolved
	if r.resolved {
		r.env.bound(KindKeypath)
	} else {
		r.env.unbound(KindKeypath)
	}
}

// attach binds to node, or waits when it is nil, and watches every fragment
// the lookup walked through: a context change on any of them can make the
// reference resolve somewhere else.
func (r *KeypathResolver) attach(node *model.Model, walked []*fragment.Fragment) {
	r.binders.add(walked, r)
	if node == nil {
		r.park()
		return
	}
	r.model = node
	r.value = node.Get()
	r.resolved = true
	node.Register(r)
}

func (r *KeypathResolver) release() {
	if r.model != nil {
		r.model.Unregister(r)
		r.model = nil
	}
	r.binders.release(r.env.Tree, r)
	if r.waitRoot != nil {
		r.waitRoot.CancelAwait(r.waitKey, r)
		r.waitRoot, r.waitKey = nil, ""
	}
	r.resolved = false
}

func (r *KeypathResolver) park() {
	f := r.env.Tree.Get(r.from)
	if f == nil || f.Root == nil {
		return
	}
	key := r.parsed.First()
	if key == "" {
		return
	}
	r.waitRoot, r.waitKey = f.Root, key
	f.Root.Await(key, r)
	r.env.logger().Debug("reference unresolved, waiting for data", "ref", r.ref, "key", key)
}

// lookup finds the node the reference points at, and the fragments the
// search went through on the way.
func (r *KeypathResolver) lookup() (*model.Model, []*fragment.Fragment) {
	tree := r.env.Tree
	from := tree.Get(r.from)
	if from == nil || from.Root == nil {
		return nil, nil
	}

	switch r.parsed.Kind {
	case keypath.Rooted:
		return from.Root.Joinall(r.parsed.Path), nil

	case keypath.Relative:
		ctx, walked := nearestContext(tree, from)
		if ctx == nil {
			return from.Root.Joinall(r.parsed.Path), walked
		}
		base := ctx.Context
		for i := 0; i < r.parsed.Up; i++ {
			base = keypath.Parent(base)
		}
		return ctx.Root.Joinall(keypath.Concat(base, r.parsed.Path)), walked
	}

	first := r.parsed.First()
	var (
		found  *model.Model
		walked []*fragment.Fragment
	)
	root := from.Root
	tree.Walk(r.from, func(f *fragment.Fragment) bool {
		if f.Root != root {
			// Crossed into the hosting instance: the previous instance's
			// root is the last place to look on that side.
			if root.Has(first) {
				found = root.Joinall(r.parsed.Path)
				return false
			}
			root = f.Root
		}
		walked = append(walked, f)
		if f.Context != "" && f.Root.Joinall(f.Context).Has(first) {
			found = f.Root.Joinall(keypath.Concat(f.Context, r.parsed.Path))
			return false
		}
		if f.ComponentParent != 0 && f.Parent == 0 && f.Isolated {
			if root.Has(first) {
				found = root.Joinall(r.parsed.Path)
			}
			root = nil
			return false
		}
		return true
	})
	if found == nil && root != nil && root.Has(first) {
		found = root.Joinall(r.parsed.Path)
	}
	return found, walked
}

// nearestContext returns the closest fragment that sets a context without
// leaving the instance that from renders, and every fragment visited
// before it was found.
func nearestContext(tree *fragment.Tree, from *fragment.Fragment) (*fragment.Fragment, []*fragment.Fragment) {
	var (
		ctx    *fragment.Fragment
		walked []*fragment.Fragment
	)
	tree.Walk(from.ID(), func(f *fragment.Fragment) bool {
		if f.Root != from.Root {
			return false
		}
		walked = append(walked, f)
		if f.Context != "" {
			ctx = f
			return false
		}
		return true
	})
	return ctx, walked
}

// binders remembers the fragments a resolver asked to be rebound by.
type binders []fragment.ID

func (b *binders) add(frags []*fragment.Fragment, r fragment.Rebinder) {
	for _, f := range frags {
		*b = append(*b, f.ID())
		f.AddBinder(r)
	}
}

func (b *binders) release(tree *fragment.Tree, r fragment.Rebinder) {
	for _, id := range *b {
		if f := tree.Get(id); f != nil {
			f.RemoveBinder(r)
		}
	}
	*b = (*b)[:0]
}
