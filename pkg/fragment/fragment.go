package fragment

import "github.com/vango-dev/viewmodel/pkg/model"

// ID identifies a fragment within its Tree. The zero ID means "none".
type ID uint32

// IndexBinding is what a repeating fragment keeps in its index table.
type IndexBinding interface {
	Update(newValue int)
}

// Rebinder is notified when a fragment's context keypath changes.
type Rebinder interface {
	Rebind()
}

// Fragment is one node of the rendered template-instance tree.
type Fragment struct {
	id ID

	// Parent is the enclosing fragment inside the same instance.
	Parent ID
	// ComponentParent is the fragment that hosts this component's template,
	// set only on a component's top fragment.
	ComponentParent ID

	// Repeating marks a fragment that is one iteration of a repeating
	// context. Only repeating fragments carry an index table.
	Repeating bool
	// Index is the current iteration index of a repeating fragment.
	Index int
	// IndexRef is the name the iteration index is exposed under, if any.
	IndexRef string

	// Context is the keypath this fragment makes current for relative and
	// plain references. Empty means the fragment adds no context.
	Context string

	// Root is the data model of the instance the fragment renders.
	Root *model.Root
	// Owner is the instance the fragment renders.
	Owner any
	// Isolated stops lookups from leaving a component's top fragment.
	Isolated bool

	children          []ID
	indexRefResolvers map[int][]IndexBinding
	binders           []Rebinder
}

// ID returns the fragment's identifier.
func (f *Fragment) ID() ID {
	return f.id
}

// Children returns the IDs of fragments whose Parent is f.
func (f *Fragment) Children() []ID {
	return append([]ID(nil), f.children...)
}

// HasIndexTable reports whether f maintains an index resolver table.
func (f *Fragment) HasIndexTable() bool {
	return f.indexRefResolvers != nil
}

// AddIndexResolver appends b to the list kept under key, creating the list
// on first use.
func (f *Fragment) AddIndexResolver(key int, b IndexBinding) {
	if f.indexRefResolvers == nil {
		f.indexRefResolvers = make(map[int][]IndexBinding)
	}
	f.indexRefResolvers[key] = append(f.indexRefResolvers[key], b)
}

// RemoveIndexResolver removes b from the list under key by identity and
// reports whether it was present. Other entries, including ones currently
// reflecting the same index, are left untouched.
func (f *Fragment) RemoveIndexResolver(key int, b IndexBinding) bool {
	list := f.indexRefResolvers[key]
	for i, existing := range list {
		if existing == b {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(f.indexRefResolvers, key)
			} else {
				f.indexRefResolvers[key] = list
			}
			return true
		}
	}
	return false
}

// IndexResolvers returns a copy of the list kept under key.
func (f *Fragment) IndexResolvers(key int) []IndexBinding {
	return append([]IndexBinding(nil), f.indexRefResolvers[key]...)
}

// IndexKeys returns the number of distinct keys in the index table.
func (f *Fragment) IndexKeys() int {
	return len(f.indexRefResolvers)
}

// AddBinder registers r to be rebound when f's context changes.
func (f *Fragment) AddBinder(r Rebinder) {
	f.binders = append(f.binders, r)
}

// RemoveBinder removes r by identity. No-op if absent.
func (f *Fragment) RemoveBinder(r Rebinder) {
	for i, existing := range f.binders {
		if existing == r {
			f.binders = append(f.binders[:i], f.binders[i+1:]...)
			return
		}
	}
}

// Binders returns how many rebinders are registered on f.
func (f *Fragment) Binders() int {
	return len(f.binders)
}

// DropIndexResolver removes b by identity from whichever key holds it.
// It backs up RemoveIndexResolver when the caller's key may be stale.
func (f *Fragment) DropIndexResolver(b IndexBinding) bool {
	for key := range f.indexRefResolvers {
		if f.RemoveIndexResolver(key, b) {
			return true
		}
	}
	return false
}
