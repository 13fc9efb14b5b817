// Package instance builds view instances and wires them into the binding
// core.
//
// Construct runs the construction sequence: it assigns the instance a
// guid, sorts the component's attributes, layers registries over the
// class, resolves the adaptor list, initialises data and builds the
// instance's data model. After that, resolvers created through
// Instance.Resolve are owned by the instance and released by Teardown.
//
//	inst, err := instance.Construct(ctx, env, todoList, instance.Options{
//	    Data:  map[string]any{"items": items},
//	    Adapt: []instance.AdaptorRef{instance.ByName("snapshot")},
//	})
//	if err != nil {
//	    return err // e.g. E101 when "snapshot" is not registered anywhere
//	}
//	top := inst.Mount(0)
//	r := inst.Resolve(top.ID(), "items.0.title", nil)
package instance
