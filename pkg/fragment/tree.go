package fragment

import "github.com/vango-dev/viewmodel/pkg/model"

// Options describes a fragment to add to a Tree.
type Options struct {
	Parent          ID
	ComponentParent ID

	Repeating bool
	Index     int
	IndexRef  string
	Context   string

	// Root and Owner default to the parent's when unset.
	Root     *model.Root
	Owner    any
	Isolated bool
}

// Tree is the arena that owns every fragment.
type Tree struct {
	frags map[ID]*Fragment
	next  ID
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{frags: make(map[ID]*Fragment)}
}

// Len returns the number of live fragments.
func (t *Tree) Len() int {
	return len(t.frags)
}

// New adds a fragment and returns it.
func (t *Tree) New(opts Options) *Fragment {
	t.next++
	f := &Fragment{
		id:              t.next,
		Parent:          opts.Parent,
		ComponentParent: opts.ComponentParent,
		Repeating:       opts.Repeating,
		Index:           opts.Index,
		IndexRef:        opts.IndexRef,
		Context:         opts.Context,
		Root:            opts.Root,
		Owner:           opts.Owner,
		Isolated:        opts.Isolated,
	}
	if f.Repeating {
		f.indexRefResolvers = make(map[int][]IndexBinding)
	}
	if p := t.frags[opts.Parent]; p != nil {
		p.children = append(p.children, f.id)
		if f.Root == nil {
			f.Root = p.Root
		}
		if f.Owner == nil {
			f.Owner = p.Owner
		}
	}
	t.frags[f.id] = f
	return f
}

// Get returns the fragment for id, or nil when it does not exist.
func (t *Tree) Get(id ID) *Fragment {
	if id == 0 {
		return nil
	}
	return t.frags[id]
}

// Ancestor returns the next fragment up: Parent when set, otherwise
// ComponentParent. It returns nil at the top of the tree.
func (t *Tree) Ancestor(f *Fragment) *Fragment {
	if f == nil {
		return nil
	}
	if f.Parent != 0 {
		return t.frags[f.Parent]
	}
	return t.frags[f.ComponentParent]
}

// Walk calls fn on the fragment for id and then each ancestor until fn
// returns false or the top is reached.
func (t *Tree) Walk(id ID, fn func(f *Fragment) bool) {
	for f := t.Get(id); f != nil; f = t.Ancestor(f) {
		if !fn(f) {
			return
		}
	}
}

// IndexRefs returns the named indices visible from id. The nearest
// fragment exposing a name wins.
func (t *Tree) IndexRefs(id ID) map[string]int {
	refs := make(map[string]int)
	t.Walk(id, func(f *Fragment) bool {
		if f.IndexRef != "" {
			if _, seen := refs[f.IndexRef]; !seen {
				refs[f.IndexRef] = f.Index
			}
		}
		return true
	})
	return refs
}

// Index returns the index of the nearest repeating fragment at or above id.
func (t *Tree) Index(id ID) (int, bool) {
	var (
		index int
		found bool
	)
	t.Walk(id, func(f *Fragment) bool {
		if f.Repeating {
			index, found = f.Index, true
			return false
		}
		return true
	})
	return index, found
}

// SetIndex moves a repeating fragment to a new iteration index. Every
// resolver keyed at the old index is re-keyed under the new one and then
// told about the new value. Resolvers do not relocate themselves.
func (t *Tree) SetIndex(id ID, newIndex int) {
	f := t.Get(id)
	if f == nil || f.Index == newIndex {
		return
	}
	old := f.Index
	f.Index = newIndex

	moved := f.indexRefResolvers[old]
	if len(moved) == 0 {
		return
	}
	delete(f.indexRefResolvers, old)
	f.indexRefResolvers[newIndex] = append(f.indexRefResolvers[newIndex], moved...)
	for _, b := range moved {
		b.Update(newIndex)
	}
}

// SetContext changes the context keypath of a fragment and rebinds every
// resolver that resolved through it.
func (t *Tree) SetContext(id ID, kp string) {
	f := t.Get(id)
	if f == nil || f.Context == kp {
		return
	}
	f.Context = kp
	for _, b := range append([]Rebinder(nil), f.binders...) {
		b.Rebind()
	}
}

// Remove deletes a fragment and its descendants. Resolvers still bound to
// them are their owners' responsibility; their unbind stays safe because
// lookups of removed fragments just return nil.
func (t *Tree) Remove(id ID) {
	f := t.Get(id)
	if f == nil {
		return
	}
	if p := t.frags[f.Parent]; p != nil {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	t.remove(f)
}

func (t *Tree) remove(f *Fragment) {
	for _, c := range f.children {
		if child := t.frags[c]; child != nil {
			t.remove(child)
		}
	}
	delete(t.frags, f.id)
}
