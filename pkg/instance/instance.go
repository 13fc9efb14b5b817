package instance

import (
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/model"
	"github.com/vango-dev/viewmodel/pkg/resolve"
	"github.com/vango-dev/viewmodel/pkg/template"
)

// Instance is one mounted template with its own data model.
type Instance struct {
	env  *Env
	guid string

	Class     *Class
	Parent    *Instance
	Root      *Instance
	Component *template.Node
	Isolated  bool

	// Viewmodel is the instance's data model. It is built once during
	// construction and never replaced.
	Viewmodel *model.Root
	// Adapt shares the Viewmodel's resolved adaptor list.
	Adapt []Adaptor

	Adaptors    *Registry[Adaptor]
	Components  *Registry[*Class]
	Partials    *Registry[Partial]
	Decorators  *Registry[any]
	Transitions *Registry[any]
	Computed    *Registry[ComputedDef]

	children  []*Instance
	byName    map[string][]*Instance
	resolvers []resolve.Resolver
	fragments []fragment.ID
	torn      bool
}

// GUID returns the instance's unique identifier.
func (inst *Instance) GUID() string {
	return inst.guid
}

// Children returns the instances attached to inst, in attach order.
func (inst *Instance) Children() []*Instance {
	return append([]*Instance(nil), inst.children...)
}

// ChildrenNamed returns the children built from the class called name.
func (inst *Instance) ChildrenNamed(name string) []*Instance {
	return append([]*Instance(nil), inst.byName[name]...)
}

// TornDown reports whether Teardown has run.
func (inst *Instance) TornDown() bool {
	return inst.torn
}

func (inst *Instance) attach(child *Instance) {
	inst.children = append(inst.children, child)
	if child.Class.Name != "" {
		inst.byName[child.Class.Name] = append(inst.byName[child.Class.Name], child)
	}
}

func (inst *Instance) detach(child *Instance) {
	for i, c := range inst.children {
		if c == child {
			inst.children = append(inst.children[:i], inst.children[i+1:]...)
			break
		}
	}
	name := child.Class.Name
	list := inst.byName[name]
	for i, c := range list {
		if c == child {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(inst.byName, name)
	} else {
		inst.byName[name] = list
	}
}

// Mount creates the instance's top fragment. For a component, host is the
// parent fragment that renders it; 0 mounts a root instance.
func (inst *Instance) Mount(host fragment.ID) *fragment.Fragment {
	f := inst.env.Tree.New(fragment.Options{
		ComponentParent: host,
		Root:            inst.Viewmodel,
		Owner:           inst,
		Isolated:        inst.Isolated,
	})
	inst.fragments = append(inst.fragments, f.ID())
	return f
}

// Resolve resolves ref from the fragment from. The resolver is owned by the
// instance and released by Teardown at the latest.
func (inst *Instance) Resolve(from fragment.ID, ref string, cb resolve.Callback) resolve.Resolver {
	r := resolve.Resolve(&inst.env.Env, from, ref, cb)
	inst.resolvers = append(inst.resolvers, r)
	return r
}

// ResolveExpression resolves a computed expression owned by the instance.
func (inst *Instance) ResolveExpression(from fragment.ID, signature string, refs []string, fn resolve.Evaluator, cb resolve.Callback) resolve.Resolver {
	r := resolve.NewComputedResolver(&inst.env.Env, from, signature, refs, fn, cb)
	inst.resolvers = append(inst.resolvers, r)
	return r
}

// Release unbinds one owned resolver ahead of teardown.
func (inst *Instance) Release(r resolve.Resolver) {
	for i, owned := range inst.resolvers {
		if owned == r {
			inst.resolvers = append(inst.resolvers[:i], inst.resolvers[i+1:]...)
			break
		}
	}
	r.Unbind()
}

// Resolvers returns how many resolvers the instance currently owns.
func (inst *Instance) Resolvers() int {
	return len(inst.resolvers)
}

// Teardown releases everything the instance owns: child instances first,
// then resolvers in reverse creation order, then computed properties,
// adaptor wrappers and mounted fragments. The instance is detached from
// its parent. Calling it twice is a no-op.
func (inst *Instance) Teardown() {
	if inst.torn {
		return
	}
	inst.torn = true

	for i := len(inst.children) - 1; i >= 0; i-- {
		inst.children[i].Teardown()
	}
	for i := len(inst.resolvers) - 1; i >= 0; i-- {
		inst.resolvers[i].Unbind()
	}
	inst.resolvers = nil

	for _, name := range inst.Computed.Names() {
		if c := inst.Viewmodel.Joinkey(name).Computation(); c != nil {
			c.Dispose()
		}
	}
	inst.Viewmodel.Teardown()

	for _, id := range inst.fragments {
		inst.env.Tree.Remove(id)
	}
	inst.fragments = nil

	if inst.Parent != nil {
		inst.Parent.detach(inst)
	}
	if inst.env.Instances != nil {
		inst.env.Instances.InstanceTornDown(inst.Class.Name)
	}
	inst.env.log().Debug("instance torn down", "guid", inst.guid)
}

// FindContainer returns the nearest ancestor built from the class called
// name, or nil.
func (inst *Instance) FindContainer(name string) *Instance {
	for cur := inst.Parent; cur != nil; cur = cur.Parent {
		if cur.Class.Name == name {
			return cur
		}
	}
	return nil
}

// FindComponent returns the first descendant built from the class called
// name, searching depth first, or nil.
func (inst *Instance) FindComponent(name string) *Instance {
	for _, c := range inst.children {
		if c.Class.Name == name {
			return c
		}
		if found := c.FindComponent(name); found != nil {
			return found
		}
	}
	return nil
}
