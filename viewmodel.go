// Package viewmodel is the reactive binding core of a template UI runtime.
//
// The subpackages hold the pieces: pkg/model is the data model, pkg/fragment
// the fragment hierarchy, pkg/resolve the reference resolvers and pkg/instance
// the instance construction. Runtime ties them together behind one mutex so a
// devtools server or a CLI can drive a tree of instances safely.
//
// Basic usage:
//
//	rt := viewmodel.New(viewmodel.WithDebug(true))
//	inst, err := rt.Construct(ctx, &instance.Class{Name: "app"}, instance.Options{
//		Data: map[string]any{"name": "world"},
//	})
//	top, _ := rt.Mount(inst.GUID(), 0)
//	r, _ := rt.Resolve(inst.GUID(), top, "name")
//	rt.Set(ctx, inst.GUID(), "name", "gopher") // r now reads "gopher"
package viewmodel

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/dep"
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/instance"
	"github.com/vango-dev/viewmodel/pkg/metrics"
	"github.com/vango-dev/viewmodel/pkg/model"
	"github.com/vango-dev/viewmodel/pkg/resolve"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/viewmodel"

// Runtime owns one fragment tree, one propagation tracker and every instance
// constructed through it. All methods are safe for concurrent use. Watch
// callbacks run while the runtime lock is held and must not call back into
// the Runtime.
type Runtime struct {
	mu sync.Mutex

	tree    *fragment.Tree
	tracker *dep.Tracker
	env     *instance.Env
	metrics *metrics.Collector
	tracer  trace.Tracer
	logger  *slog.Logger

	instances map[string]*instance.Instance
	order     []string
}

// Change describes a write observed by a Watch.
type Change struct {
	GUID    string `json:"guid"`
	Keypath string `json:"keypath"`
	Value   any    `json:"value"`
}

// Stats is a point-in-time view of a runtime.
type Stats struct {
	Instances     int    `json:"instances"`
	Fragments     int    `json:"fragments"`
	Waves         uint64 `json:"waves"`
	Notifications uint64 `json:"notifications"`
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	rt := &Runtime{
		tree:      fragment.NewTree(),
		tracer:    o.tracer,
		logger:    o.logger,
		instances: make(map[string]*instance.Instance),
	}

	env := &instance.Env{
		IDs:    o.ids,
		Debug:  o.debug,
		Tracer: o.tracer,
	}
	if o.metrics {
		mopts := o.metricOpts
		if o.registry != nil {
			mopts = append([]metrics.Option{metrics.WithRegistry(o.registry)}, mopts...)
		}
		rt.metrics = metrics.New(mopts...)
		rt.tracker = dep.NewTracker(o.maxDepth, rt.metrics)
		env.Observer = rt.metrics
		env.Instances = rt.metrics
	} else {
		rt.tracker = dep.NewTracker(o.maxDepth, nil)
	}
	env.Tree = rt.tree
	env.Tracker = rt.tracker
	env.Logger = o.logger
	rt.env = env
	return rt
}

// Metrics returns the collector, or nil when metrics are disabled.
func (rt *Runtime) Metrics() *metrics.Collector {
	return rt.metrics
}

// Do runs fn with the runtime locked. Use it to read resolvers or walk the
// fragment tree without racing other callers.
func (rt *Runtime) Do(fn func(tree *fragment.Tree)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn(rt.tree)
}

// Construct builds an instance of class and registers it with the runtime.
// opts.Parent, when set, must come from this runtime.
func (rt *Runtime) Construct(ctx context.Context, class *instance.Class, opts instance.Options) (*instance.Instance, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := instance.Construct(ctx, rt.env, class, opts)
	if err != nil {
		return nil, err
	}
	rt.instances[inst.GUID()] = inst
	rt.order = append(rt.order, inst.GUID())
	return inst, nil
}

// Instance returns the live instance with the given guid.
func (rt *Runtime) Instance(guid string) (*instance.Instance, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.lookup(guid)
}

func (rt *Runtime) lookup(guid string) (*instance.Instance, error) {
	inst, ok := rt.instances[guid]
	if !ok {
		return nil, errors.New("E104").WithDetail("no live instance " + guid)
	}
	return inst, nil
}

// Instances returns the live instances in construction order.
func (rt *Runtime) Instances() []*instance.Instance {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	out := make([]*instance.Instance, 0, len(rt.order))
	for _, guid := range rt.order {
		out = append(out, rt.instances[guid])
	}
	return out
}

// Mount creates the top fragment of the instance. host is the fragment that
// renders a component instance, 0 for a root instance.
func (rt *Runtime) Mount(guid string, host fragment.ID) (fragment.ID, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return 0, err
	}
	return inst.Mount(host).ID(), nil
}

// NewFragment adds a fragment below an existing one.
func (rt *Runtime) NewFragment(opts fragment.Options) fragment.ID {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.tree.New(opts).ID()
}

// SetIndex moves a repeated fragment to a new position. Index resolvers
// bound to it are re-keyed and updated.
func (rt *Runtime) SetIndex(id fragment.ID, index int) (err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	defer guard(&err)

	rt.tree.SetIndex(id, index)
	return nil
}

// SetContext changes the context keypath of a fragment and rebinds the
// resolvers that depend on it.
func (rt *Runtime) SetContext(id fragment.ID, kp string) (err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	defer guard(&err)

	rt.tree.SetContext(id, kp)
	return nil
}

// RemoveFragment removes a fragment and its subtree.
func (rt *Runtime) RemoveFragment(id fragment.ID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.tree.Remove(id)
}

// Resolve resolves ref from the fragment from on behalf of the instance.
// The resolver lives until Release or the instance's teardown.
func (rt *Runtime) Resolve(guid string, from fragment.ID, ref string) (resolve.Resolver, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return nil, err
	}
	return inst.Resolve(from, ref, nil), nil
}

// ResolveExpression resolves a computed expression over refs. signature
// names the references as _0, _1, ... in order.
func (rt *Runtime) ResolveExpression(guid string, from fragment.ID, signature string, refs []string, fn resolve.Evaluator) (resolve.Resolver, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return nil, err
	}
	return inst.ResolveExpression(from, signature, refs, fn, nil), nil
}

// Read returns the current value of a resolver.
func (rt *Runtime) Read(r resolve.Resolver) any {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return r.Value()
}

// Release unbinds a resolver created by Resolve.
func (rt *Runtime) Release(guid string, r resolve.Resolver) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return err
	}
	inst.Release(r)
	return nil
}

// Get returns the value at kp in the instance's model. Maps and lists are
// returned as copies.
func (rt *Runtime) Get(guid, kp string) (any, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return nil, err
	}
	return model.CloneValue(inst.Viewmodel.Get(kp)), nil
}

// Snapshot returns a deep copy of the instance's data.
func (rt *Runtime) Snapshot(guid string) (map[string]any, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return nil, err
	}
	return model.Clone(inst.Viewmodel.Data()), nil
}

// Set writes value at kp and propagates the change. A circular dependency
// uncovered by the write is returned as an E006 error.
func (rt *Runtime) Set(ctx context.Context, guid, kp string, value any) (err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	_, span := rt.tracer.Start(ctx, "viewmodel.set", trace.WithAttributes(
		attribute.String("viewmodel.guid", guid),
		attribute.String("viewmodel.keypath", kp),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer guard(&err)

	inst, err := rt.lookup(guid)
	if err != nil {
		return err
	}
	return inst.Viewmodel.Set(kp, value)
}

// Update re-notifies kp after data was mutated in place.
func (rt *Runtime) Update(guid, kp string) (err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	defer guard(&err)

	inst, err := rt.lookup(guid)
	if err != nil {
		return err
	}
	inst.Viewmodel.Update(kp)
	return nil
}

// Splice restructures the list at kp and returns the removed items.
func (rt *Runtime) Splice(ctx context.Context, guid, kp string, start, remove int, insert ...any) (removed []any, err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	_, span := rt.tracer.Start(ctx, "viewmodel.splice", trace.WithAttributes(
		attribute.String("viewmodel.guid", guid),
		attribute.String("viewmodel.keypath", kp),
		attribute.Int("viewmodel.start", start),
		attribute.Int("viewmodel.remove", remove),
		attribute.Int("viewmodel.insert", len(insert)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer guard(&err)

	inst, err := rt.lookup(guid)
	if err != nil {
		return nil, err
	}
	return inst.Viewmodel.Splice(kp, start, remove, insert...)
}

// Watch calls fn after every change that reaches kp, including writes to
// its descendants and ancestors. The returned cancel func is idempotent.
func (rt *Runtime) Watch(guid, kp string, fn func(Change)) (cancel func(), err error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return nil, err
	}
	node := inst.Viewmodel.Joinall(kp)
	h := dep.Func(func() {
		fn(Change{GUID: guid, Keypath: kp, Value: node.Get()})
	})
	node.Register(h)

	var once sync.Once
	return func() {
		once.Do(func() {
			rt.mu.Lock()
			defer rt.mu.Unlock()
			node.Unregister(h)
		})
	}, nil
}

// Teardown tears down the instance and every instance below it.
func (rt *Runtime) Teardown(guid string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	inst, err := rt.lookup(guid)
	if err != nil {
		return err
	}
	rt.teardown(inst)
	return nil
}

func (rt *Runtime) teardown(inst *instance.Instance) {
	gone := map[string]bool{}
	var collect func(i *instance.Instance)
	collect = func(i *instance.Instance) {
		gone[i.GUID()] = true
		for _, c := range i.Children() {
			collect(c)
		}
	}
	collect(inst)
	inst.Teardown()

	kept := rt.order[:0]
	for _, g := range rt.order {
		if gone[g] {
			delete(rt.instances, g)
			continue
		}
		kept = append(kept, g)
	}
	rt.order = kept
	rt.logger.Debug("instances released", "guid", inst.GUID(), "count", len(gone))
}

// Close tears down every instance, newest root first.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var roots []*instance.Instance
	for _, guid := range rt.order {
		if inst := rt.instances[guid]; inst.Parent == nil {
			roots = append(roots, inst)
		}
	}
	for i := len(roots) - 1; i >= 0; i-- {
		rt.teardown(roots[i])
	}
}

// Stats reports the runtime's size and propagation counters.
func (rt *Runtime) Stats() Stats {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	waves, delivered := rt.tracker.Stats()
	return Stats{
		Instances:     len(rt.instances),
		Fragments:     rt.tree.Len(),
		Waves:         waves,
		Notifications: delivered,
	}
}

// guard turns the tracker's circular dependency panic into an error.
func guard(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok && stderrors.Is(e, errors.ErrCircular) {
		*err = e
		return
	}
	panic(r)
}
