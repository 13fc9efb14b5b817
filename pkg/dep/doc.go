// Package dep implements the registration and change propagation protocol
// shared by every value source in viewmodel.
//
// A source keeps an ordered List of dependents. Dependents register once per
// subscription and are told about changes through a single HandleChange
// call. A dependent can itself be a source, so notification recurses depth
// first through the graph:
//
//	var deps dep.List
//	h := dep.Func(func() { fmt.Println("changed") })
//	deps.Register(h)
//	deps.Notify() // prints "changed"
//
// Notification is synchronous and unbatched. A dependent removed while a
// wave is in flight is not called for the rest of that wave.
package dep
