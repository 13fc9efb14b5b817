package resolve

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/vango-dev/viewmodel/pkg/dep"
	"github.com/vango-dev/viewmodel/pkg/fragment"
	"github.com/vango-dev/viewmodel/pkg/keypath"
	"github.com/vango-dev/viewmodel/pkg/model"
)

type recorder struct {
	name string
	log  *[]string
}

func (r *recorder) HandleChange() { *r.log = append(*r.log, r.name) }

type countingObserver struct {
	bound, unbound map[Kind]int
}

func newObserver() *countingObserver {
	return &countingObserver{bound: map[Kind]int{}, unbound: map[Kind]int{}}
}

func (o *countingObserver) ResolverBound(k Kind)   { o.bound[k]++ }
func (o *countingObserver) ResolverUnbound(k Kind) { o.unbound[k]++ }

func newEnv() (*Env, *fragment.Tree) {
	tree := fragment.NewTree()
	return &Env{Tree: tree, Tracker: dep.NewTracker(0, nil), Observer: newObserver()}, tree
}

// repeat builds a repeating block with n items under parent, each item
// exposing its index under ref and setting the items.N context.
func repeat(tree *fragment.Tree, parent fragment.ID, ref string, n int) []*fragment.Fragment {
	items := make([]*fragment.Fragment, n)
	for i := range items {
		items[i] = tree.New(fragment.Options{
			Parent:    parent,
			Repeating: true,
			Index:     i,
			IndexRef:  ref,
			Context:   keypath.Join("items", strconv.Itoa(i)),
		})
	}
	return items
}

func TestAtIndexOfThreeItems(t *testing.T) {
	env, tree := newEnv()
	root := tree.New(fragment.Options{Root: model.NewRoot(nil, nil, nil, nil)})
	items := repeat(tree, root.ID(), "", 3)
	inner := tree.New(fragment.Options{Parent: items[1].ID()})

	r := Resolve(env, inner.ID(), "@index", nil)
	ir, ok := r.(*IndexResolver)
	if !ok {
		t.Fatalf("Resolve(@index) returned %T", r)
	}
	if ir.Value() != 1 {
		t.Errorf("value = %v, want 1", ir.Value())
	}
	if ir.Fragment() != items[1].ID() {
		t.Errorf("bound to fragment %d, want %d", ir.Fragment(), items[1].ID())
	}
	if got := items[1].IndexResolvers(1); len(got) != 1 || got[0] != ir {
		t.Errorf("table[1] = %v", got)
	}

	// Item 0 is removed; the fragment for item 1 is reused at index 0.
	tree.Remove(items[0].ID())
	tree.SetIndex(items[1].ID(), 0)

	if ir.Keypath() != "@index" {
		t.Errorf("Keypath() = %q", ir.Keypath())
	}
	if ir.Value() != 0 {
		t.Errorf("value = %v after shift, want 0", ir.Value())
	}
	if got := items[1].IndexResolvers(0); len(got) != 1 || got[0] != ir {
		t.Errorf("resolver should be re-keyed under 0, table[0] = %v", got)
	}
}

func TestNamedIndexInNestedContexts(t *testing.T) {
	env, tree := newEnv()
	root := tree.New(fragment.Options{Root: model.NewRoot(nil, nil, nil, nil)})
	outer := tree.New(fragment.Options{Parent: root.ID(), Repeating: true, Index: 3, IndexRef: "i"})
	middle := tree.New(fragment.Options{Parent: outer.ID(), Repeating: true, Index: 7, IndexRef: "j"})
	inner := tree.New(fragment.Options{Parent: middle.ID(), Repeating: true, Index: 1})
	leaf := tree.New(fragment.Options{Parent: inner.ID()})

	r := Resolve(env, leaf.ID(), "i", nil).(*IndexResolver)

	if r.Value() != 3 {
		t.Errorf("value = %v, want 3", r.Value())
	}
	if r.Fragment() != outer.ID() {
		t.Errorf("bound to %d, want the fragment exposing i (%d)", r.Fragment(), outer.ID())
	}
	if got := outer.IndexResolvers(3); len(got) != 1 || got[0] != r {
		t.Errorf("outer table[3] = %v", got)
	}
	for _, f := range []*fragment.Fragment{middle, inner} {
		if f.IndexKeys() != 0 {
			t.Errorf("fragment %d should not hold the resolver", f.ID())
		}
	}
}

func TestIndexAcrossComponentBoundary(t *testing.T) {
	env, tree := newEnv()
	host := tree.New(fragment.Options{Root: model.NewRoot(nil, nil, nil, nil)})
	item := tree.New(fragment.Options{Parent: host.ID(), Repeating: true, Index: 4, IndexRef: "row"})
	comp := tree.New(fragment.Options{ComponentParent: item.ID(), Root: model.NewRoot(nil, nil, nil, nil)})
	leaf := tree.New(fragment.Options{Parent: comp.ID()})

	r := Resolve(env, leaf.ID(), "row", nil).(*IndexResolver)
	if r.Value() != 4 || r.Fragment() != item.ID() {
		t.Errorf("value=%v fragment=%d; want 4 bound to %d", r.Value(), r.Fragment(), item.ID())
	}
}

func TestAtIndexSkipsNonRepeatingTables(t *testing.T) {
	env, tree := newEnv()
	top := tree.New(fragment.Options{Root: model.NewRoot(nil, nil, nil, nil)})
	item := tree.New(fragment.Options{Parent: top.ID(), Repeating: true, Index: 2})
	named := tree.New(fragment.Options{Parent: item.ID(), IndexRef: "j"})
	leaf := tree.New(fragment.Options{Parent: named.ID()})

	// Binding j gives the non-repeating fragment a table of its own.
	j := NewIndexResolver(env, leaf.ID(), "j", nil)
	if j.Fragment() != named.ID() || !named.HasIndexTable() {
		t.Fatalf("j bound to %d", j.Fragment())
	}

	at := NewIndexResolver(env, leaf.ID(), "@index", nil)
	if at.Fragment() != item.ID() || at.Value() != 2 {
		t.Fatalf("@index = %v bound to %d; want 2 bound to %d", at.Value(), at.Fragment(), item.ID())
	}
	if got := item.IndexResolvers(2); len(got) != 1 || got[0] != at {
		t.Errorf("item table[2] = %v", got)
	}

	tree.SetIndex(item.ID(), 5)
	if at.Value() != 5 {
		t.Errorf("@index after move = %v, want 5", at.Value())
	}
}

func TestUnmatchedNamedIndexDegenerates(t *testing.T) {
	env, tree := newEnv()
	root := tree.New(fragment.Options{Root: model.NewRoot(nil, nil, nil, nil)})

	r := NewIndexResolver(env, root.ID(), "missing", nil)
	if r.Fragment() != 0 || r.Resolved() {
		t.Error("unmatched index ref should stay unbound")
	}
	if r.Value() != nil {
		t.Errorf("value = %v, want nil", r.Value())
	}
	r.Unbind()
	r.Unbind()

	at := NewIndexResolver(env, root.ID(), "@index", nil)
	if at.Fragment() != 0 || at.Value() != nil {
		t.Error("@index outside a repeating context should be empty")
	}
	at.Unbind()
}

func TestUnbindIsIdentityBased(t *testing.T) {
	env, tree := newEnv()
	item := tree.New(fragment.Options{Repeating: true, Index: 2})
	a := NewIndexResolver(env, item.ID(), "@index", nil)
	b := NewIndexResolver(env, item.ID(), "@index", nil)
	c := NewIndexResolver(env, item.ID(), "@index", nil)

	b.Unbind()

	got := item.IndexResolvers(2)
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("table[2] = %v, want [a c]", got)
	}
	b.Unbind()
	if len(item.IndexResolvers(2)) != 2 {
		t.Error("second Unbind must be a no-op")
	}

	obs := env.Observer.(*countingObserver)
	if obs.bound[KindIndex] != 3 || obs.unbound[KindIndex] != 1 {
		t.Errorf("observer bound=%d unbound=%d", obs.bound[KindIndex], obs.unbound[KindIndex])
	}
}

func TestUnbindAfterFragmentRemoved(t *testing.T) {
	env, tree := newEnv()
	item := tree.New(fragment.Options{Repeating: true, Index: 0})
	r := NewIndexResolver(env, item.ID(), "@index", nil)
	tree.Remove(item.ID())
	r.Unbind()
	if r.Fragment() != 0 {
		t.Error("fragment should be cleared")
	}
}

func TestUpdateNotifiesInOrderOnce(t *testing.T) {
	env, tree := newEnv()
	item := tree.New(fragment.Options{Repeating: true, Index: 0})
	r := NewIndexResolver(env, item.ID(), "@index", nil)

	var log []string
	d1 := &recorder{name: "d1", log: &log}
	d2 := &recorder{name: "d2", log: &log}
	d3 := &recorder{name: "d3", log: &log}
	r.Register(d1)
	r.Register(d2)
	r.Register(d3)

	r.Update(5)

	if want := []string{"d1", "d2", "d3"}; !reflect.DeepEqual(log, want) {
		t.Errorf("notified %v, want %v", log, want)
	}
	if r.Value() != 5 {
		t.Errorf("value = %v", r.Value())
	}
	if r.Dependents() != 3 {
		t.Errorf("deps changed to %d", r.Dependents())
	}

	// Update does not relocate: the table still has the old key.
	if len(item.IndexResolvers(0)) != 1 || len(item.IndexResolvers(5)) != 0 {
		t.Error("Update must not re-key the resolver")
	}
	r.Unbind()
	if item.IndexKeys() != 0 {
		t.Error("Unbind after a bare Update should still find the resolver")
	}
}

func TestCallbackRunsBeforeBinding(t *testing.T) {
	env, tree := newEnv()
	item := tree.New(fragment.Options{Repeating: true, Index: 6})

	var seenValue any
	var tableSize int
	r := NewIndexResolver(env, item.ID(), "@index", func(r Resolver) {
		seenValue = r.Value()
		tableSize = len(item.IndexResolvers(6))
	})

	if seenValue != 6 {
		t.Errorf("callback saw value %v, want 6", seenValue)
	}
	if tableSize != 0 {
		t.Error("callback should run before the resolver joins the table")
	}
	if len(item.IndexResolvers(6)) != 1 {
		t.Error("resolver should be in the table after construction")
	}
	r.Unbind()
}

func TestDoubleRegistrationIsCallersResponsibility(t *testing.T) {
	env, tree := newEnv()
	item := tree.New(fragment.Options{Repeating: true, Index: 0})
	r := NewIndexResolver(env, item.ID(), "@index", nil)

	var log []string
	d := &recorder{name: "d", log: &log}
	r.Register(d)
	r.Register(d)
	r.Unregister(d)

	r.Update(1)
	if len(log) != 1 {
		t.Errorf("remaining registration fired %d times, want 1", len(log))
	}
}
