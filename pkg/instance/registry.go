package instance

import "sort"

// Registry is a named lookup table layered over a prototype registry. A
// lookup that misses the own entries continues into the prototype, so an
// instance sees its class's entries and the class sees the classes it
// extends.
type Registry[T any] struct {
	entries map[string]T
	proto   *Registry[T]
}

// NewRegistry returns a registry over proto holding a copy of entries.
func NewRegistry[T any](proto *Registry[T], entries map[string]T) *Registry[T] {
	r := &Registry[T]{entries: make(map[string]T, len(entries)), proto: proto}
	for k, v := range entries {
		r.entries[k] = v
	}
	return r
}

// Get returns the entry for name, searching the prototype chain.
func (r *Registry[T]) Get(name string) (T, bool) {
	for cur := r; cur != nil; cur = cur.proto {
		if v, ok := cur.entries[name]; ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Has reports whether name is visible through r.
func (r *Registry[T]) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Set adds or replaces an own entry.
func (r *Registry[T]) Set(name string, v T) {
	r.entries[name] = v
}

// Names returns every visible name, sorted.
func (r *Registry[T]) Names() []string {
	seen := make(map[string]bool)
	for cur := r; cur != nil; cur = cur.proto {
		for k := range cur.entries {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FindInstance returns the nearest instance, starting at inst and moving to
// its parents, whose registry knows name. The search does not leave an
// isolated instance.
func FindInstance[T any](inst *Instance, registry func(*Instance) *Registry[T], name string) *Instance {
	for cur := inst; cur != nil; cur = cur.Parent {
		if reg := registry(cur); reg != nil && reg.Has(name) {
			return cur
		}
		if cur.Isolated {
			return nil
		}
	}
	return nil
}

// FindInViewHierarchy looks name up in the registry selected by registry,
// walking outward from inst through its parents.
func FindInViewHierarchy[T any](inst *Instance, registry func(*Instance) *Registry[T], name string) (T, bool) {
	if found := FindInstance(inst, registry, name); found != nil {
		return registry(found).Get(name)
	}
	var zero T
	return zero, false
}

// Registry selectors for FindInViewHierarchy.
func AdaptorRegistry(i *Instance) *Registry[Adaptor]  { return i.Adaptors }
func ComponentRegistry(i *Instance) *Registry[*Class] { return i.Components }
