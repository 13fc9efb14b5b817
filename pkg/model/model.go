package model

import (
	"github.com/vango-dev/viewmodel/pkg/dep"
	"github.com/vango-dev/viewmodel/pkg/keypath"
)

// Model is one node of an instance's data tree. Nodes are created lazily the
// first time something asks for them and live as long as their Root.
type Model struct {
	root    *Root
	parent  *Model
	key     string
	keypath string

	children map[string]*Model
	order    []string
	deps     dep.List

	// value is the last value dependents were told about.
	value any

	wrapper Wrapper
	adapted bool

	computed *Computation
}

func newModel(root *Root, parent *Model, key string) *Model {
	m := &Model{
		root:   root,
		parent: parent,
		key:    key,
		deps:   dep.NewList(root.tracker),
	}
	if parent != nil {
		m.keypath = keypath.Concat(parent.keypath, keypath.Escape(key))
	}
	m.value = m.raw()
	return m
}

// Keypath returns the canonical keypath of this node within its root.
func (m *Model) Keypath() string {
	return m.keypath
}

// Key returns the last key of the keypath.
func (m *Model) Key() string {
	return m.key
}

// Parent returns the enclosing node, or nil for the root node.
func (m *Model) Parent() *Model {
	return m.parent
}

// Root returns the data model this node belongs to.
func (m *Model) Root() *Root {
	return m.root
}

// Register adds d to this node's dependents.
func (m *Model) Register(d dep.Dependent) {
	m.deps.Register(d)
}

// Unregister removes d from this node's dependents.
func (m *Model) Unregister(d dep.Dependent) {
	m.deps.Unregister(d)
}

// Dependents returns how many dependents are registered on this node.
func (m *Model) Dependents() int {
	return m.deps.Len()
}

// raw reads the unadapted value out of the parent container.
func (m *Model) raw() any {
	if m.computed != nil {
		return m.computed.value
	}
	if m.parent == nil {
		return m.root.data
	}
	v, _ := childValue(m.parent.raw(), m.key)
	return v
}

// Get returns the current value, read through an adaptor wrapper when one
// applies.
func (m *Model) Get() any {
	if !m.adapted {
		m.adapt(m.raw())
	}
	if m.wrapper != nil {
		return m.wrapper.Get()
	}
	return m.raw()
}

// Has reports whether key currently exists below this node.
func (m *Model) Has(key string) bool {
	if m.parent == nil && m.root.hasOwn(key) {
		return true
	}
	_, ok := childValue(m.raw(), key)
	return ok
}

// Joinkey returns the child node for key, creating it on first use.
func (m *Model) Joinkey(key string) *Model {
	if m.parent == nil {
		if linked := m.root.linked(key); linked != nil {
			return linked
		}
	}
	if child, ok := m.children[key]; ok {
		return child
	}
	if m.children == nil {
		m.children = make(map[string]*Model)
	}
	child := newModel(m.root, m, key)
	m.children[key] = child
	m.order = append(m.order, key)
	return child
}

// Joinall follows keys from this node.
func (m *Model) Joinall(keys []string) *Model {
	cur := m
	for _, k := range keys {
		cur = cur.Joinkey(k)
	}
	return cur
}

// adapt rewraps v when an adaptor accepts it.
func (m *Model) adapt(v any) {
	if m.wrapper != nil {
		m.wrapper.Teardown()
		m.wrapper = nil
	}
	m.adapted = true
	if v == nil {
		return
	}
	for _, a := range m.root.adaptors {
		if a.Filter(v, m.keypath, m.root.owner) {
			m.wrapper = a.Wrap(m.root.owner, v, m.keypath)
			return
		}
	}
}

// mark refreshes this node and its existing descendants after a write,
// notifying every node whose value changed. force notifies this node even
// when the value compares equal.
func (m *Model) mark(force bool) {
	v := m.raw()
	changed := !equals(m.value, v)
	if changed {
		m.value = v
	}
	if changed || force {
		if m.adapted {
			m.adapt(v)
		}
		m.deps.Notify()
	}
	for _, key := range m.order {
		m.children[key].mark(false)
	}
}

// notifyUpstream tells every ancestor that something below it changed.
func (m *Model) notifyUpstream() {
	for p := m.parent; p != nil; p = p.parent {
		p.value = p.raw()
		p.deps.Notify()
	}
}

func (m *Model) teardown() {
	if m.wrapper != nil {
		m.wrapper.Teardown()
		m.wrapper = nil
	}
	for _, key := range m.order {
		m.children[key].teardown()
	}
}
