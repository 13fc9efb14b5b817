package scene

import (
	"context"
	"strconv"
	"strings"

	"github.com/vango-dev/viewmodel"
	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/adaptors"
	"github.com/vango-dev/viewmodel/pkg/datasource"
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/instance"
	"github.com/vango-dev/viewmodel/pkg/keypath"
	"github.com/vango-dev/viewmodel/pkg/model"
	"github.com/vango-dev/viewmodel/pkg/resolve"
	"github.com/vango-dev/viewmodel/pkg/template"
)

// RootClass names the class of a root without an explicit class.
const RootClass = "root"

// Binding is one reference resolved while building a scene.
type Binding struct {
	Instance string
	Fragment fragment.ID
	Ref      string
	Resolver resolve.Resolver
}

// Result is a built scene.
type Result struct {
	Root     *instance.Instance
	Bindings []Binding
}

// Value is a binding's state at one point in time.
type Value struct {
	Instance string      `json:"instance" yaml:"instance"`
	Fragment fragment.ID `json:"fragment" yaml:"fragment"`
	Ref      string      `json:"ref" yaml:"ref"`
	Kind     string      `json:"kind" yaml:"kind"`
	Keypath  string      `json:"keypath" yaml:"keypath"`
	Resolved bool        `json:"resolved" yaml:"resolved"`
	Value    any         `json:"value" yaml:"value"`
}

// Values reads every binding under the runtime lock.
func (r *Result) Values(rt *viewmodel.Runtime) []Value {
	out := make([]Value, 0, len(r.Bindings))
	rt.Do(func(*fragment.Tree) {
		for _, b := range r.Bindings {
			out = append(out, Value{
				Instance: b.Instance,
				Fragment: b.Fragment,
				Ref:      b.Ref,
				Kind:     b.Resolver.Kind().String(),
				Keypath:  b.Resolver.Keypath(),
				Resolved: b.Resolver.Resolved(),
				Value:    b.Resolver.Value(),
			})
		}
	})
	return out
}

type builder struct {
	ctx     context.Context
	rt      *viewmodel.Runtime
	classes map[string]*instance.Class
	res     *Result
}

// Build constructs the scene's instance tree in rt. loader reads the root's
// data source; when nil, sources are read relative to the scene file.
func Build(ctx context.Context, rt *viewmodel.Runtime, sc *Scene, loader *datasource.Loader) (*Result, error) {
	b := &builder{
		ctx:     ctx,
		rt:      rt,
		classes: compileClasses(sc),
		res:     &Result{},
	}

	data, err := rootData(ctx, sc, loader)
	if err != nil {
		return nil, err
	}

	class := b.classes[sc.Root.Class]
	if class == nil {
		class = &instance.Class{Name: RootClass, Components: b.classes}
	}
	root, err := rt.Construct(ctx, class, instance.Options{
		Isolated:   sc.Root.Isolated,
		Adapt:      adaptRefs(sc.Root.Adapt),
		Data:       data,
		Adaptors:   adaptors.Builtins(),
		Components: b.classes,
	})
	if err != nil {
		return nil, err
	}
	b.res.Root = root

	top, err := rt.Mount(root.GUID(), 0)
	if err != nil {
		return nil, err
	}
	if err := b.fragments(root, top, sc.Root.Fragments); err != nil {
		_ = rt.Teardown(root.GUID())
		return nil, err
	}
	return b.res, nil
}

func compileClasses(sc *Scene) map[string]*instance.Class {
	classes := make(map[string]*instance.Class, len(sc.Classes))
	for name, c := range sc.Classes {
		ic := &instance.Class{
			Name:       name,
			Adapt:      adaptRefs(c.Adapt),
			Components: classes,
			Isolated:   c.Isolated,
		}
		if c.Data != nil {
			data := c.Data
			ic.Data = instance.DataFunc(func(*instance.Instance) map[string]any {
				return model.Clone(data)
			})
		}
		if c.Attributes != nil {
			ic.Attributes = &instance.Attributes{
				Required: c.Attributes.Required,
				Optional: c.Attributes.Optional,
				MapAll:   c.Attributes.MapAll,
			}
		}
		if len(c.Computed) > 0 {
			ic.Computed = make(map[string]instance.ComputedDef, len(c.Computed))
			for prop, comp := range c.Computed {
				ic.Computed[prop] = instance.ComputedDef{
					Deps: comp.Deps,
					Get:  model.Getter(ops[comp.Op]),
				}
			}
		}
		classes[name] = ic
	}
	for name, c := range sc.Classes {
		if c.Extends != "" {
			classes[name].Extends = classes[c.Extends]
		}
	}
	return classes
}

func adaptRefs(names []string) []instance.AdaptorRef {
	if len(names) == 0 {
		return nil
	}
	refs := make([]instance.AdaptorRef, len(names))
	for i, name := range names {
		refs[i] = instance.ByName(name)
	}
	return refs
}

func rootData(ctx context.Context, sc *Scene, loader *datasource.Loader) (map[string]any, error) {
	data := map[string]any{}
	if sc.Root.Source != "" {
		if loader == nil {
			loader = datasource.NewLoader(datasource.WithBaseDir(sc.Dir()))
		}
		loaded, err := loader.Load(ctx, sc.Root.Source)
		if err != nil {
			return nil, err
		}
		data = loaded
	}
	for k, v := range model.Clone(sc.Root.Data) {
		data[k] = v
	}
	return data, nil
}

func (b *builder) fragments(inst *instance.Instance, parent fragment.ID, frags []Fragment) error {
	for _, f := range frags {
		if f.Repeat == nil {
			id := b.rt.NewFragment(fragment.Options{Parent: parent, Context: f.Context})
			if err := b.body(inst, id, f); err != nil {
				return err
			}
			continue
		}

		section := b.rt.NewFragment(fragment.Options{Parent: parent, Context: f.Context})
		kp, n, err := b.list(inst, section, f.Repeat.Each)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			row := b.rt.NewFragment(fragment.Options{
				Parent:    section,
				Repeating: true,
				Index:     i,
				IndexRef:  f.Repeat.Index,
				Context:   keypath.Concat(kp, strconv.Itoa(i)),
			})
			if err := b.body(inst, row, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// list resolves the list a repeated fragment iterates over and returns its
// keypath and length.
func (b *builder) list(inst *instance.Instance, from fragment.ID, ref string) (string, int, error) {
	r, err := b.rt.Resolve(inst.GUID(), from, ref)
	if err != nil {
		return "", 0, err
	}
	var (
		kp string
		n  int
	)
	b.rt.Do(func(*fragment.Tree) {
		kp = r.Keypath()
		if items, ok := r.Value().([]any); ok {
			n = len(items)
		}
	})
	if err := b.rt.Release(inst.GUID(), r); err != nil {
		return "", 0, err
	}
	return kp, n, nil
}

func (b *builder) body(inst *instance.Instance, id fragment.ID, f Fragment) error {
	guid := inst.GUID()
	for _, ref := range f.Resolve {
		r, err := b.rt.Resolve(guid, id, ref)
		if err != nil {
			return err
		}
		b.bind(guid, id, ref, r)
	}
	for _, e := range f.Expressions {
		r, err := b.rt.ResolveExpression(guid, id, e.Signature(), e.Refs, resolve.Evaluator(ops[e.Op]))
		if err != nil {
			return err
		}
		b.bind(guid, id, e.Op+"("+strings.Join(e.Refs, ", ")+")", r)
	}
	if err := b.fragments(inst, id, f.Children); err != nil {
		return err
	}
	for _, c := range f.Components {
		if err := b.component(inst, id, c); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) component(parent *instance.Instance, host fragment.ID, c Component) error {
	class, ok := instance.FindInViewHierarchy(parent, instance.ComponentRegistry, c.Class)
	if !ok {
		return errors.MissingPlugin(c.Class, "component")
	}
	node := c.Node
	if node == nil {
		node = template.Comp(c.Class)
	}
	child, err := b.rt.Construct(b.ctx, class, instance.Options{
		Parent:    parent,
		Component: node,
		Host:      host,
		Isolated:  c.Isolated,
		Data:      c.Data,
	})
	if err != nil {
		return err
	}
	top, err := b.rt.Mount(child.GUID(), host)
	if err != nil {
		return err
	}
	return b.fragments(child, top, c.Fragments)
}

func (b *builder) bind(guid string, id fragment.ID, ref string, r resolve.Resolver) {
	b.res.Bindings = append(b.res.Bindings, Binding{
		Instance: guid,
		Fragment: id,
		Ref:      ref,
		Resolver: r,
	})
}
