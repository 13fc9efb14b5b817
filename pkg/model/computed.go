package model

import (
	"fmt"

	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/dep"
	"github.com/vango-dev/viewmodel/pkg/keypath"
)

// Getter derives a computed value from the current values of its
// dependencies, in the order they were declared.
type Getter func(values []any) any

// Computation backs a computed top-level key.
type Computation struct {
	node    *Model
	sources []*Model
	get     Getter
	handler *dep.Handler
	value   any
}

// Compute installs a computed property at the top-level key. The value is
// derived from deps (keypaths in this model, mapped or computed keys
// included) and recomputed whenever one of them changes.
func (r *Root) Compute(key string, deps []string, get Getter) (*Model, error) {
	if key == "" || get == nil {
		return nil, errors.New("E103").WithDetail(fmt.Sprintf("computed property %q needs a name and a getter", key))
	}
	if existing, ok := r.node.children[key]; ok && existing.computed != nil {
		return nil, errors.New("E103").WithDetail(fmt.Sprintf("computed property %q is already defined", key))
	}

	if _, mapped := r.mappings[key]; mapped {
		return nil, errors.New("E103").WithDetail(fmt.Sprintf("computed property %q collides with a mapping", key))
	}

	c := &Computation{get: get}
	for _, kp := range deps {
		if keys := keypath.Split(kp); len(keys) > 0 && keys[0] == key {
			return nil, errors.New("E103").WithDetail(fmt.Sprintf("computed property %q depends on itself", key))
		}
		c.sources = append(c.sources, r.Joinall(kp))
	}
	c.value = c.compute()

	node := r.node.Joinkey(key)
	node.computed = c
	node.value = c.value
	node.adapted = false
	c.node = node

	c.handler = dep.Func(c.recompute)
	for _, src := range c.sources {
		src.Register(c.handler)
	}

	r.resolveWaiting(key)
	return node, nil
}

func (c *Computation) compute() any {
	values := make([]any, len(c.sources))
	for i, src := range c.sources {
		values[i] = src.Get()
	}
	return c.get(values)
}

func (c *Computation) recompute() {
	c.value = c.compute()
	c.node.mark(false)
}

// Dispose detaches the computation from its sources.
func (c *Computation) Dispose() {
	for _, src := range c.sources {
		src.Unregister(c.handler)
	}
	c.sources = nil
}

// Computation returns the computation behind a computed node, or nil.
func (m *Model) Computation() *Computation {
	return m.computed
}
