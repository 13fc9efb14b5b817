package fragment

import (
	"reflect"
	"testing"

	"github.com/vango-dev/viewmodel/pkg/model"
)

type binding struct {
	name    string
	updates []int
}

func (b *binding) Update(v int) { b.updates = append(b.updates, v) }

type rebinder struct{ n int }

func (r *rebinder) Rebind() { r.n++ }

// nested builds: root > list(repeating i=2, ref "i") > row > cell(repeating j=5, ref "j") > leaf
func nested(t *testing.T) (*Tree, map[string]*Fragment) {
	t.Helper()
	tr := NewTree()
	root := tr.New(Options{Root: model.NewRoot(nil, nil, nil, nil)})
	list := tr.New(Options{Parent: root.ID(), Repeating: true, Index: 2, IndexRef: "i", Context: "items.2"})
	row := tr.New(Options{Parent: list.ID()})
	cell := tr.New(Options{Parent: row.ID(), Repeating: true, Index: 5, IndexRef: "j"})
	leaf := tr.New(Options{Parent: cell.ID()})
	return tr, map[string]*Fragment{"root": root, "list": list, "row": row, "cell": cell, "leaf": leaf}
}

func TestNewInheritsRootAndOwner(t *testing.T) {
	tr := NewTree()
	r := model.NewRoot(nil, nil, nil, nil)
	top := tr.New(Options{Root: r, Owner: "inst"})
	child := tr.New(Options{Parent: top.ID()})
	if child.Root != r || child.Owner != "inst" {
		t.Error("child should inherit Root and Owner from its parent")
	}
	if !reflect.DeepEqual(top.Children(), []ID{child.ID()}) {
		t.Errorf("Children() = %v", top.Children())
	}
	if tr.Get(0) != nil {
		t.Error("ID 0 must never resolve")
	}
}

func TestAncestorCrossesComponentBoundary(t *testing.T) {
	tr := NewTree()
	host := tr.New(Options{})
	comp := tr.New(Options{ComponentParent: host.ID()})
	inner := tr.New(Options{Parent: comp.ID()})

	var seen []ID
	tr.Walk(inner.ID(), func(f *Fragment) bool {
		seen = append(seen, f.ID())
		return true
	})
	want := []ID{inner.ID(), comp.ID(), host.ID()}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("walk = %v, want %v", seen, want)
	}
}

func TestIndexRefsAndIndex(t *testing.T) {
	tr, f := nested(t)

	refs := tr.IndexRefs(f["leaf"].ID())
	if !reflect.DeepEqual(refs, map[string]int{"i": 2, "j": 5}) {
		t.Errorf("IndexRefs = %v", refs)
	}
	if idx, ok := tr.Index(f["leaf"].ID()); !ok || idx != 5 {
		t.Errorf("Index(leaf) = %d, %v; want 5", idx, ok)
	}
	if idx, ok := tr.Index(f["row"].ID()); !ok || idx != 2 {
		t.Errorf("Index(row) = %d, %v; want 2", idx, ok)
	}
	if _, ok := tr.Index(f["root"].ID()); ok {
		t.Error("root has no repeating ancestor")
	}
}

func TestIndexRefsNearestWins(t *testing.T) {
	tr := NewTree()
	outer := tr.New(Options{Repeating: true, Index: 1, IndexRef: "i"})
	inner := tr.New(Options{Parent: outer.ID(), Repeating: true, Index: 7, IndexRef: "i"})
	if got := tr.IndexRefs(inner.ID())["i"]; got != 7 {
		t.Errorf("shadowed index ref = %d, want 7", got)
	}
}

func TestIndexTableIdentityRemoval(t *testing.T) {
	f := &Fragment{}
	a, b := &binding{name: "a"}, &binding{name: "b"}
	f.AddIndexResolver(1, a)
	f.AddIndexResolver(1, b)

	if !f.RemoveIndexResolver(1, a) {
		t.Fatal("a should have been removed")
	}
	if got := f.IndexResolvers(1); len(got) != 1 || got[0] != b {
		t.Errorf("remaining = %v, want only b", got)
	}
	if f.RemoveIndexResolver(1, a) {
		t.Error("second removal should report false")
	}
	f.RemoveIndexResolver(1, b)
	if f.IndexKeys() != 0 {
		t.Error("empty lists should be dropped")
	}
}

func TestDropIndexResolver(t *testing.T) {
	f := &Fragment{}
	a := &binding{}
	f.AddIndexResolver(4, a)
	if !f.DropIndexResolver(a) || f.IndexKeys() != 0 {
		t.Error("DropIndexResolver should find a under any key")
	}
	if f.DropIndexResolver(a) {
		t.Error("nothing left to drop")
	}
}

func TestSetIndexRekeysThenUpdates(t *testing.T) {
	tr, f := nested(t)
	list := f["list"]
	a, b := &binding{}, &binding{}
	list.AddIndexResolver(2, a)
	list.AddIndexResolver(2, b)

	tr.SetIndex(list.ID(), 1)

	if list.Index != 1 {
		t.Errorf("Index = %d", list.Index)
	}
	if len(list.IndexResolvers(2)) != 0 {
		t.Error("old key should be empty")
	}
	if got := list.IndexResolvers(1); len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("new key = %v", got)
	}
	if !reflect.DeepEqual(a.updates, []int{1}) || !reflect.DeepEqual(b.updates, []int{1}) {
		t.Errorf("updates a=%v b=%v", a.updates, b.updates)
	}

	tr.SetIndex(list.ID(), 1)
	if len(a.updates) != 1 {
		t.Error("same index should be a no-op")
	}
}

func TestSetContextRebinds(t *testing.T) {
	tr, f := nested(t)
	r := &rebinder{}
	f["list"].AddBinder(r)
	tr.SetContext(f["list"].ID(), "items.1")
	tr.SetContext(f["list"].ID(), "items.1")
	if r.n != 1 {
		t.Errorf("rebinds = %d, want 1", r.n)
	}
	f["list"].RemoveBinder(r)
	f["list"].RemoveBinder(r)
	if f["list"].Binders() != 0 {
		t.Error("binder should be gone")
	}
}

func TestRemoveSubtree(t *testing.T) {
	tr, f := nested(t)
	tr.Remove(f["row"].ID())
	for _, name := range []string{"row", "cell", "leaf"} {
		if tr.Get(f[name].ID()) != nil {
			t.Errorf("%s should be removed", name)
		}
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
	if len(f["list"].Children()) != 0 {
		t.Error("parent should forget removed child")
	}
	tr.Remove(f["row"].ID())
}
