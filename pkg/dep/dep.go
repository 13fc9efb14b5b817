package dep

// Dependent is anything that can be told one of its sources changed.
// Resolvers, model nodes, computed values and render bindings implement it.
type Dependent interface {
	HandleChange()
}

// Source is the registration half of the protocol.
type Source interface {
	Register(d Dependent)
	Unregister(d Dependent)
}

// Handler adapts a closure into a Dependent. It is a pointer so that
// registration and removal work on identity.
type Handler struct {
	fn func()
}

// Func returns a Dependent that calls fn on every change.
func Func(fn func()) *Handler {
	return &Handler{fn: fn}
}

// HandleChange implements Dependent.
func (h *Handler) HandleChange() {
	if h.fn != nil {
		h.fn()
	}
}

// List is an ordered list of dependents. The zero value is ready to use and
// notifies without a depth guard; use NewList to attach a Tracker.
type List struct {
	tracker *Tracker
	deps    []Dependent
}

// NewList returns a List whose notifications are accounted to t.
func NewList(t *Tracker) List {
	return List{tracker: t}
}

// Register appends d. Registering the same dependent twice yields two
// entries; callers own that discipline.
func (l *List) Register(d Dependent) {
	if d == nil {
		return
	}
	l.deps = append(l.deps, d)
}

// Unregister removes the first entry identical to d. No-op if absent.
func (l *List) Unregister(d Dependent) {
	for i, existing := range l.deps {
		if existing == d {
			l.deps = append(l.deps[:i], l.deps[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered entries.
func (l *List) Len() int {
	return len(l.deps)
}

// Contains reports whether d is currently registered.
func (l *List) Contains(d Dependent) bool {
	for _, existing := range l.deps {
		if existing == d {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current entries in registration order.
func (l *List) Snapshot() []Dependent {
	out := make([]Dependent, len(l.deps))
	copy(out, l.deps)
	return out
}

// Notify calls HandleChange on every dependent in registration order.
// The list is snapshotted first; entries added during the wave are not
// called, and entries removed during the wave are skipped.
func (l *List) Notify() {
	if len(l.deps) == 0 {
		return
	}
	subs := l.Snapshot()

	l.tracker.enter()
	defer l.tracker.leave()

	for i, d := range subs {
		if i > 0 && !l.Contains(d) {
			continue
		}
		l.tracker.notified()
		d.HandleChange()
	}
}
