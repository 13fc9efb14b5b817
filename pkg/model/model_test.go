package model

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/pkg/dep"
)

func counter(n *int) *dep.Handler {
	return dep.Func(func() { *n++ })
}

func TestGetNested(t *testing.T) {
	r := NewRoot(nil, map[string]any{
		"user":  map[string]any{"name": "Ada"},
		"items": []any{"a", "b"},
	}, nil, nil)

	if got := r.Get("user.name"); got != "Ada" {
		t.Errorf("user.name = %v", got)
	}
	if got := r.Get("items.1"); got != "b" {
		t.Errorf("items.1 = %v", got)
	}
	if got := r.Get("items.9"); got != nil {
		t.Errorf("items.9 = %v, want nil", got)
	}
	if got := r.Joinall("user.name").Keypath(); got != "user.name" {
		t.Errorf("Keypath() = %q", got)
	}
	if r.Joinall("user.name") != r.Joinkey("user").Joinkey("name") {
		t.Error("nodes should be created once and reused")
	}
}

func TestGetStructAndTypedMap(t *testing.T) {
	type profile struct{ Name string }
	r := NewRoot(nil, map[string]any{
		"p":    profile{Name: "Lin"},
		"tags": map[string]string{"x": "y"},
		"nums": []int{4, 5},
	}, nil, nil)

	if got := r.Get("p.Name"); got != "Lin" {
		t.Errorf("p.Name = %v", got)
	}
	if got := r.Get("tags.x"); got != "y" {
		t.Errorf("tags.x = %v", got)
	}
	if got := r.Get("nums.1"); got != 5 {
		t.Errorf("nums.1 = %v", got)
	}
}

func TestSetNotifiesNodeDescendantsAncestors(t *testing.T) {
	r := NewRoot(nil, map[string]any{
		"user": map[string]any{"name": "Ada", "age": 36},
	}, nil, nil)

	var user, name, age, root int
	r.Joinkey("user").Register(counter(&user))
	r.Joinall("user.name").Register(counter(&name))
	r.Joinall("user.age").Register(counter(&age))
	r.Node().Register(counter(&root))

	if err := r.Set("user.name", "Grace"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if name != 1 || user != 1 || root != 1 {
		t.Errorf("name=%d user=%d root=%d, want 1 each", name, user, root)
	}
	if age != 0 {
		t.Errorf("age notified %d times for an unrelated write", age)
	}

	// Replacing the parent only notifies children whose value changed.
	if err := r.Set("user", map[string]any{"name": "Grace", "age": 37}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if age != 1 {
		t.Errorf("age = %d, want 1", age)
	}
	if name != 1 {
		t.Errorf("name = %d, want 1 (value unchanged)", name)
	}
}

func TestSetSameValueIsQuiet(t *testing.T) {
	r := NewRoot(nil, map[string]any{"n": 1}, nil, nil)
	var n int
	r.Joinkey("n").Register(counter(&n))

	_ = r.Set("n", 1)
	if n != 0 {
		t.Errorf("notified %d times for an unchanged value", n)
	}
	r.Update("n")
	if n != 1 {
		t.Errorf("Update should force a notification, got %d", n)
	}
}

func TestSetCreatesIntermediateContainers(t *testing.T) {
	r := NewRoot(nil, nil, nil, nil)
	if err := r.Set("a.b.c", 3); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := r.Get("a.b.c"); got != 3 {
		t.Errorf("a.b.c = %v", got)
	}

	if err := r.Set("list", []any{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := r.Set("list.2", "z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := r.Get("list"); !reflect.DeepEqual(got, []any{nil, nil, "z"}) {
		t.Errorf("list = %v", got)
	}
}

func TestSetThroughScalarFails(t *testing.T) {
	r := NewRoot(nil, map[string]any{"n": 1}, nil, nil)
	err := r.Set("n.x", 2)
	if err == nil || !stderrors.Is(err, errors.New("E007")) {
		t.Errorf("Set through a scalar = %v, want E007", err)
	}
}

func TestSplice(t *testing.T) {
	r := NewRoot(nil, map[string]any{"items": []any{"a", "b", "c"}}, nil, nil)
	var first, list int
	r.Joinall("items.0").Register(counter(&first))
	r.Joinkey("items").Register(counter(&list))

	removed, err := r.Splice("items", 0, 1)
	if err != nil {
		t.Fatalf("Splice: %v", err)
	}
	if !reflect.DeepEqual(removed, []any{"a"}) {
		t.Errorf("removed = %v", removed)
	}
	if got := r.Get("items.0"); got != "b" {
		t.Errorf("items.0 = %v after shift", got)
	}
	if first != 1 || list != 1 {
		t.Errorf("first=%d list=%d, want 1 each", first, list)
	}

	if _, err := r.Splice("items", 5, 0); err == nil {
		t.Error("out-of-range splice should fail")
	}
}

func TestSpliceNonList(t *testing.T) {
	r := NewRoot(nil, map[string]any{"user": map[string]any{"name": "ann"}, "title": "T"}, nil, nil)
	for _, kp := range []string{"user", "title"} {
		before := r.Get(kp)
		removed, err := r.Splice(kp, 0, 0, "x")
		if !stderrors.Is(err, errors.New("E007")) {
			t.Errorf("Splice(%q) err = %v, want E007", kp, err)
		}
		if removed != nil || !reflect.DeepEqual(r.Get(kp), before) {
			t.Errorf("Splice(%q) changed the value to %v", kp, r.Get(kp))
		}
	}

	if _, err := r.Splice("fresh", 0, 0, "a", "b"); err != nil {
		t.Fatalf("Splice on a missing key: %v", err)
	}
	if got := r.Get("fresh"); !reflect.DeepEqual(got, []any{"a", "b"}) {
		t.Errorf("fresh = %v", got)
	}
}

func TestSpliceClampsRemove(t *testing.T) {
	tests := []struct {
		name    string
		remove  int
		removed []any
		items   []any
	}{
		{"negative", -1, nil, []any{"a", "x", "b", "c"}},
		{"past end", 9, []any{"b", "c"}, []any{"a", "x"}},
		{"exact", 1, []any{"b"}, []any{"a", "x", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoot(nil, map[string]any{"items": []any{"a", "b", "c"}}, nil, nil)
			removed, err := r.Splice("items", 1, tt.remove, "x")
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(removed, tt.removed) {
				t.Errorf("removed = %#v, want %#v", removed, tt.removed)
			}
			if got := r.Get("items"); !reflect.DeepEqual(got, tt.items) {
				t.Errorf("items = %v, want %v", got, tt.items)
			}
		})
	}
}

func TestAwaitResolvesOnce(t *testing.T) {
	r := NewRoot(nil, nil, nil, nil)
	var n int
	h := counter(&n)
	r.Await("late", h)
	if r.Waiting("late") != 1 {
		t.Fatalf("Waiting = %d", r.Waiting("late"))
	}

	_ = r.Set("other", 1)
	if n != 0 {
		t.Error("unrelated key resolved a parked dependent")
	}
	_ = r.Set("late", 1)
	_ = r.Set("late", 2)
	if n != 1 {
		t.Errorf("parked dependent notified %d times, want 1", n)
	}
	if r.Waiting("late") != 0 {
		t.Error("resolved dependents should be forgotten")
	}
}

func TestCancelAwait(t *testing.T) {
	r := NewRoot(nil, nil, nil, nil)
	var n int
	h := counter(&n)
	r.Await("k", h)
	r.CancelAwait("k", h)
	r.CancelAwait("k", h)
	_ = r.Set("k", true)
	if n != 0 {
		t.Error("cancelled dependent was notified")
	}
}

func TestMapping(t *testing.T) {
	parent := NewRoot(nil, map[string]any{"user": map[string]any{"name": "Ada"}}, nil, nil)
	child := NewRoot(nil, nil, nil, nil)
	child.Map("person", parent.Joinkey("user"))

	if !child.Has("person") {
		t.Error("mapped key should exist")
	}
	if got := child.Get("person.name"); got != "Ada" {
		t.Errorf("person.name = %v", got)
	}

	var n int
	parent.Joinall("user.name").Register(counter(&n))
	if err := child.Set("person.name", "Grace"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := parent.Get("user.name"); got != "Grace" {
		t.Errorf("write through mapping did not reach parent: %v", got)
	}
	if n != 1 {
		t.Errorf("parent dependents notified %d times", n)
	}
	if child.Joinall("person.name") != parent.Joinall("user.name") {
		t.Error("mapped lookups should land on the parent's node")
	}
}

func TestCompute(t *testing.T) {
	r := NewRoot(nil, map[string]any{"a": 2, "b": 3}, nil, nil)
	sum, err := r.Compute("sum", []string{"a", "b"}, func(v []any) any {
		return v[0].(int) + v[1].(int)
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := r.Get("sum"); got != 5 {
		t.Errorf("sum = %v", got)
	}

	var n int
	sum.Register(counter(&n))
	_ = r.Set("a", 10)
	if got := r.Get("sum"); got != 13 {
		t.Errorf("sum = %v after write", got)
	}
	if n != 1 {
		t.Errorf("sum notified %d times", n)
	}

	if err := r.Set("sum", 1); !stderrors.Is(err, errors.New("E008")) {
		t.Errorf("Set on computed = %v, want E008", err)
	}

	sum.Computation().Dispose()
	_ = r.Set("a", 0)
	if n != 1 {
		t.Error("disposed computation kept recomputing")
	}
}

func TestComputeErrors(t *testing.T) {
	r := NewRoot(nil, nil, nil, nil)
	if _, err := r.Compute("", nil, func([]any) any { return nil }); err == nil {
		t.Error("empty name should fail")
	}
	if _, err := r.Compute("x", []string{"x.y"}, func([]any) any { return nil }); err == nil {
		t.Error("self dependency should fail")
	}
	if _, err := r.Compute("x", nil, func([]any) any { return 1 }); err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if _, err := r.Compute("x", nil, func([]any) any { return 2 }); err == nil {
		t.Error("duplicate computed should fail")
	}
}

type upper struct{ wrapped, torn int }

func (u *upper) Filter(v any, _ string, _ any) bool {
	_, ok := v.(string)
	return ok
}

func (u *upper) Wrap(_ any, v any, _ string) Wrapper {
	u.wrapped++
	return &upperWrapper{a: u, s: v.(string)}
}

type upperWrapper struct {
	a *upper
	s string
}

func (w *upperWrapper) Get() any  { return strings.ToUpper(w.s) }
func (w *upperWrapper) Teardown() { w.a.torn++ }

func TestAdaptorWrapsValues(t *testing.T) {
	a := &upper{}
	r := NewRoot([]Adaptor{a}, map[string]any{"name": "ada", "n": 1}, "owner", nil)

	if got := r.Get("name"); got != "ADA" {
		t.Errorf("name = %v, want adapted value", got)
	}
	if got := r.Get("n"); got != 1 {
		t.Errorf("n = %v, non-matching values pass through", got)
	}

	_ = r.Set("name", "grace")
	if got := r.Get("name"); got != "GRACE" {
		t.Errorf("name = %v after write", got)
	}
	if a.torn != 1 {
		t.Errorf("old wrapper torn down %d times, want 1", a.torn)
	}

	r.Teardown()
	if a.torn != 2 {
		t.Errorf("Teardown left wrappers alive: torn=%d", a.torn)
	}
}

func TestCombine(t *testing.T) {
	a, b, c := &upper{}, &upper{}, &upper{}
	got := Combine([]Adaptor{a, b}, []Adaptor{c, a}, nil, []Adaptor{b, nil})
	want := []Adaptor{a, b, c}
	if len(got) != len(want) {
		t.Fatalf("Combine len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Combine[%d] mismatch", i)
		}
	}
}

func TestAdaptorsShared(t *testing.T) {
	list := []Adaptor{&upper{}}
	r := NewRoot(list, nil, nil, nil)
	if &r.Adaptors()[0] != &list[0] {
		t.Error("Adaptors() should share the backing array")
	}
}

func TestSetRootReplacesData(t *testing.T) {
	r := NewRoot(nil, map[string]any{"a": 1}, nil, nil)
	var n int
	r.Joinkey("a").Register(counter(&n))
	if err := r.Set("", map[string]any{"a": 2}); err != nil {
		t.Fatalf("Set root: %v", err)
	}
	if n != 1 || r.Get("a") != 2 {
		t.Errorf("n=%d a=%v", n, r.Get("a"))
	}
	if err := r.Set("", 5); err == nil {
		t.Error("non-map root should fail")
	}
}

func TestClone(t *testing.T) {
	src := map[string]any{
		"list": []any{map[string]any{"k": 1}, "x"},
		"obj":  map[string]any{"n": 2},
	}
	out := Clone(src)
	if !reflect.DeepEqual(out, src) {
		t.Fatalf("Clone() = %v, want %v", out, src)
	}
	out["list"].([]any)[0].(map[string]any)["k"] = 9
	out["obj"].(map[string]any)["n"] = 9
	if src["list"].([]any)[0].(map[string]any)["k"] != 1 || src["obj"].(map[string]any)["n"] != 2 {
		t.Error("Clone shares nested containers")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}
