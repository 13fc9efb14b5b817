package instance

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/keypath"
	"github.com/vango-dev/viewmodel/pkg/model"
	"github.com/vango-dev/viewmodel/pkg/resolve"
	"github.com/vango-dev/viewmodel/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures one construction.
type Options struct {
	// Parent is the instance hosting this one. Nil for a root instance.
	Parent *Instance
	// Component is the template node this instance was created from.
	Component *template.Node
	// Host is the fragment in the parent that renders the component. It is
	// the starting point for mapped attribute references.
	Host fragment.ID

	Isolated bool

	Adapt []AdaptorRef
	Data  map[string]any

	Adaptors    map[string]Adaptor
	Components  map[string]*Class
	Partials    map[string]Partial
	Decorators  map[string]any
	Transitions map[string]any
	Computed    map[string]ComputedDef
}

// Construct builds an instance of class. Configuration errors, such as an
// adaptor name that nothing in the view hierarchy registers, abort the
// construction and are returned as *errors.Error.
func Construct(ctx context.Context, env *Env, class *Class, opts Options) (*Instance, error) {
	if class == nil {
		class = &Class{}
	}
	_, span := env.tracer().Start(ctx, "viewmodel.construct",
		trace.WithAttributes(
			attribute.String("viewmodel.class", class.Name),
			attribute.Bool("viewmodel.component", opts.Component != nil),
		),
	)
	defer span.End()

	inst, err := construct(env, class, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if env.Instances != nil {
			env.Instances.ConstructFailed(errorCode(err))
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("viewmodel.guid", inst.guid))
	if env.Instances != nil {
		env.Instances.InstanceConstructed(class.Name)
	}
	env.log().Debug("instance constructed", "guid", inst.guid, "class", class.Name, "adaptors", len(inst.Adapt))
	return inst, nil
}

func construct(env *Env, class *Class, opts Options) (*Instance, error) {
	inst := &Instance{
		env:       env,
		guid:      env.ids().Next(),
		Class:     class,
		Parent:    opts.Parent,
		Component: opts.Component,
		Isolated:  opts.Isolated || class.Isolated,
		byName:    make(map[string][]*Instance),
	}
	if inst.Parent == nil {
		inst.Root = inst
	} else {
		inst.Root = inst.Parent.Root
	}

	extra := inst.handleAttributes(env, class.attributes())

	inst.Adaptors = NewRegistry(registry(class, func(c *Class) map[string]Adaptor { return c.Adaptors }), opts.Adaptors)
	inst.Components = NewRegistry(registry(class, func(c *Class) map[string]*Class { return c.Components }), opts.Components)
	inst.Partials = NewRegistry(registry(class, func(c *Class) map[string]Partial { return c.Partials }), opts.Partials)
	inst.Decorators = NewRegistry(registry(class, func(c *Class) map[string]any { return c.Decorators }), opts.Decorators)
	inst.Transitions = NewRegistry(registry(class, func(c *Class) map[string]any { return c.Transitions }), opts.Transitions)
	inst.Computed = NewRegistry(registry(class, func(c *Class) map[string]ComputedDef { return c.Computed }), opts.Computed)
	if extra != nil {
		inst.Partials.Set(ExtraAttributesPartial, extra)
	}

	adapt, err := inst.resolveAdaptors(class, opts.Adapt)
	if err != nil {
		return nil, err
	}

	data, err := inst.initData(class, opts)
	if err != nil {
		return nil, err
	}
	mappings := inst.attributeData(data)

	inst.Viewmodel = model.NewRoot(adapt, data, inst, env.Tracker)
	inst.Adapt = inst.Viewmodel.Adaptors()

	inst.mapAttributes(mappings, opts.Host)

	var installed []*model.Computation
	for _, name := range inst.Computed.Names() {
		def, _ := inst.Computed.Get(name)
		node, err := inst.Viewmodel.Compute(name, def.Deps, def.Get)
		if err != nil {
			// Computations may already listen on the parent's nodes
			// through mapped attributes.
			for _, c := range installed {
				c.Dispose()
			}
			inst.Viewmodel.Teardown()
			return nil, err
		}
		installed = append(installed, node.Computation())
	}

	if inst.Parent != nil {
		inst.Parent.attach(inst)
	}
	return inst, nil
}

// resolveAdaptors merges the class adaptors, the configured adaptors and,
// unless the instance is isolated, the parent's resolved list. Names are
// looked up through the view hierarchy; an unknown name is fatal.
func (inst *Instance) resolveAdaptors(class *Class, configured []AdaptorRef) ([]Adaptor, error) {
	var protoRefs []AdaptorRef
	for _, c := range class.chain() {
		protoRefs = append(protoRefs, c.Adapt...)
	}

	proto, err := inst.lookupAdaptors(protoRefs)
	if err != nil {
		return nil, err
	}
	own, err := inst.lookupAdaptors(configured)
	if err != nil {
		return nil, err
	}

	srcs := [][]Adaptor{proto, own}
	if inst.Parent != nil && !inst.Isolated {
		srcs = append(srcs, inst.Parent.Viewmodel.Adaptors())
	}
	return model.Combine(srcs...), nil
}

func (inst *Instance) lookupAdaptors(refs []AdaptorRef) ([]Adaptor, error) {
	out := make([]Adaptor, 0, len(refs))
	for _, ref := range refs {
		if ref.Adaptor != nil {
			out = append(out, ref.Adaptor)
			continue
		}
		a, ok := FindInViewHierarchy(inst, AdaptorRegistry, ref.Name)
		if !ok || a == nil {
			return nil, errors.MissingPlugin(ref.Name, "adaptor")
		}
		out = append(out, a)
	}
	return out, nil
}

// initData merges the class chain's data with the configured data. Later
// classes override earlier ones and configured keys win over all of them.
func (inst *Instance) initData(class *Class, opts Options) (map[string]any, error) {
	data := make(map[string]any)
	for _, c := range class.chain() {
		switch d := c.Data.(type) {
		case nil:
		case DataFunc:
			for k, v := range d(inst) {
				data[k] = v
			}
		case func(*Instance) map[string]any:
			for k, v := range d(inst) {
				data[k] = v
			}
		case map[string]any:
			if opts.Component != nil {
				return nil, errors.New("E102").WithDetail(fmt.Sprintf("component %q declares data as a map", c.Name))
			}
			for k, v := range d {
				data[k] = v
			}
		default:
			return nil, errors.New("E102").WithDetail(fmt.Sprintf("class %q has data of type %T", c.Name, c.Data))
		}
	}
	for k, v := range opts.Data {
		data[k] = v
	}
	return data, nil
}

// mapAttributes links attribute keys to the nodes their references point at
// in the parent. A reference the parent cannot resolve yet is linked to the
// node it names so later writes still flow through.
func (inst *Instance) mapAttributes(mappings map[string]string, host fragment.ID) {
	if len(mappings) == 0 {
		return
	}
	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parent := inst.Parent.Viewmodel
	for _, name := range keys {
		ref := mappings[name]
		var target *model.Model
		if host != 0 && inst.env.Tree != nil && inst.env.Tree.Get(host) != nil {
			r := resolve.NewKeypathResolver(&inst.env.Env, host, ref, nil)
			target = r.Model()
			r.Unbind()
		}
		if target == nil {
			target = parent.Joinall(keypath.Parse(ref).Path)
		}
		inst.Viewmodel.Map(name, target)
	}
}

func errorCode(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return "unknown"
}
