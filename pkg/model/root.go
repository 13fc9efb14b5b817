package model

import (
	"fmt"

	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/dep"
	"github.com/vango-dev/viewmodel/pkg/keypath"
)

// Root is the data model of one instance: the root of every keypath lookup
// and the owner of the instance's resolved adaptor list.
type Root struct {
	node *Model

	adaptors []Adaptor
	owner    any
	tracker  *dep.Tracker
	data     map[string]any

	mappings map[string]*Model
	waiting  map[string][]dep.Dependent
}

// NewRoot builds the data model for owner. adapt is the already merged
// adaptor list; the returned Root keeps it as the single source of truth.
func NewRoot(adapt []Adaptor, data map[string]any, owner any, t *dep.Tracker) *Root {
	if data == nil {
		data = map[string]any{}
	}
	r := &Root{
		adaptors: adapt,
		owner:    owner,
		tracker:  t,
		data:     data,
	}
	r.node = newModel(r, nil, "")
	return r
}

// Adaptors returns the resolved adaptor list. The slice is shared, not
// copied, so the owner can keep referencing it.
func (r *Root) Adaptors() []Adaptor {
	return r.adaptors
}

// Owner returns the instance this model belongs to.
func (r *Root) Owner() any {
	return r.owner
}

// Tracker returns the propagation tracker shared by this model's nodes.
func (r *Root) Tracker() *dep.Tracker {
	return r.tracker
}

// Data returns the underlying data tree.
func (r *Root) Data() map[string]any {
	return r.data
}

// Node returns the root node (keypath "").
func (r *Root) Node() *Model {
	return r.node
}

// Joinkey returns the top-level node for key.
func (r *Root) Joinkey(key string) *Model {
	return r.node.Joinkey(key)
}

// Joinall returns the node at kp, creating nodes on the way.
func (r *Root) Joinall(kp string) *Model {
	return r.node.Joinall(keypath.Split(kp))
}

// Get returns the value at kp.
func (r *Root) Get(kp string) any {
	if kp == "" {
		return r.data
	}
	return r.Joinall(kp).Get()
}

// Has reports whether the top-level key exists, including mapped and
// computed keys.
func (r *Root) Has(key string) bool {
	return r.node.Has(key)
}

func (r *Root) hasOwn(key string) bool {
	if _, ok := r.mappings[key]; ok {
		return true
	}
	if child, ok := r.node.children[key]; ok && child.computed != nil {
		return true
	}
	return false
}

func (r *Root) linked(key string) *Model {
	return r.mappings[key]
}

// Map links the local top-level key to a node that usually lives in a parent
// instance's model. Reads, writes and registrations on key go to target.
func (r *Root) Map(key string, target *Model) {
	if r.mappings == nil {
		r.mappings = make(map[string]*Model)
	}
	r.mappings[key] = target
	r.resolveWaiting(key)
}

// Mapping returns the node key is mapped to, if any.
func (r *Root) Mapping(key string) (*Model, bool) {
	m, ok := r.mappings[key]
	return m, ok
}

// Set writes value at kp, then notifies the node, its descendants and its
// ancestors.
func (r *Root) Set(kp string, value any) error {
	keys := keypath.Split(kp)
	if len(keys) == 0 {
		data, ok := value.(map[string]any)
		if !ok {
			return errors.New("E007").WithDetail("the root value must be a map")
		}
		r.data = data
		r.node.mark(true)
		return nil
	}

	if target, ok := r.mappings[keys[0]]; ok {
		rest := keypath.Join(keys[1:]...)
		return target.root.Set(keypath.Concat(target.keypath, rest), value)
	}
	if child, ok := r.node.children[keys[0]]; ok && child.computed != nil {
		return errors.New("E008").WithDetail(fmt.Sprintf("cannot set computed property %q", keys[0]))
	}

	_, existed := r.data[keys[0]]
	updated, ok := assign(r.data, keys, value)
	if !ok {
		return errors.New("E007").WithDetail(fmt.Sprintf("cannot set %q", kp))
	}
	r.data = updated.(map[string]any)

	m := r.node.Joinall(keys)
	m.mark(false)
	m.notifyUpstream()

	if !existed {
		r.resolveWaiting(keys[0])
	}
	return nil
}

// Update forces a notification for kp and everything below it that
// changed, for data that was mutated in place.
func (r *Root) Update(kp string) {
	m := r.Joinall(kp)
	m.mark(true)
	m.notifyUpstream()
}

// Splice replaces remove items at start of the list at kp with insert and
// returns the removed items. Index nodes below the list are refreshed, so a
// resolver bound to items.1 sees what moved into that position. A missing
// value splices as an empty list; any other non-list value is E007. remove
// is clamped to [0, len-start].
func (r *Root) Splice(kp string, start, remove int, insert ...any) ([]any, error) {
	var list []any
	switch v := r.Joinall(kp).raw().(type) {
	case nil:
	case []any:
		list = v
	default:
		return nil, errors.New("E007").WithDetail(fmt.Sprintf("cannot splice %q: it holds a %T, not a list", kp, v))
	}
	if start < 0 || start > len(list) {
		return nil, errors.New("E007").WithDetail(fmt.Sprintf("splice start %d out of range for %q", start, kp))
	}
	remove = max(0, min(remove, len(list)-start))

	removed := append([]any(nil), list[start:start+remove]...)
	next := make([]any, 0, len(list)-remove+len(insert))
	next = append(next, list[:start]...)
	next = append(next, insert...)
	next = append(next, list[start+remove:]...)

	if err := r.Set(kp, next); err != nil {
		return nil, err
	}
	return removed, nil
}

// Await parks d until the top-level key appears through Set or Map. Parked
// dependents are notified once and then forgotten.
func (r *Root) Await(key string, d dep.Dependent) {
	if r.waiting == nil {
		r.waiting = make(map[string][]dep.Dependent)
	}
	r.waiting[key] = append(r.waiting[key], d)
}

// CancelAwait removes a parked dependent. No-op if it is not parked.
func (r *Root) CancelAwait(key string, d dep.Dependent) {
	list := r.waiting[key]
	for i, w := range list {
		if w == d {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.waiting, key)
		return
	}
	r.waiting[key] = list
}

// Waiting returns how many dependents are parked on key.
func (r *Root) Waiting(key string) int {
	return len(r.waiting[key])
}

func (r *Root) resolveWaiting(key string) {
	list := r.waiting[key]
	if len(list) == 0 {
		return
	}
	delete(r.waiting, key)
	for _, d := range list {
		d.HandleChange()
	}
}

// Teardown releases every adaptor wrapper held by the model.
func (r *Root) Teardown() {
	r.node.teardown()
	r.waiting = nil
}
