package dep

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/vango-dev/viewmodel/internal/errors"
)

type recorder struct {
	name string
	log  *[]string
	fn   func()
}

func (r *recorder) HandleChange() {
	*r.log = append(*r.log, r.name)
	if r.fn != nil {
		r.fn()
	}
}

func TestNotifyRegistrationOrder(t *testing.T) {
	var log []string
	var l List
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}
	c := &recorder{name: "c", log: &log}
	l.Register(a)
	l.Register(b)
	l.Register(c)

	l.Notify()

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(log, want) {
		t.Errorf("notify order = %v, want %v", log, want)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d after Notify, want 3", l.Len())
	}
}

func TestUnregisterMissingIsNoop(t *testing.T) {
	var l List
	h := Func(func() {})
	l.Unregister(h)
	l.Register(h)
	l.Unregister(Func(func() {}))
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestDoubleRegistration(t *testing.T) {
	calls := 0
	var l List
	h := Func(func() { calls++ })
	l.Register(h)
	l.Register(h)

	l.Notify()
	if calls != 2 {
		t.Errorf("calls = %d, want 2 for a double registration", calls)
	}

	l.Unregister(h)
	if !l.Contains(h) || l.Len() != 1 {
		t.Fatalf("one registration should remain after one Unregister")
	}
	calls = 0
	l.Notify()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestUnregisterDuringWave(t *testing.T) {
	var log []string
	var l List
	b := &recorder{name: "b", log: &log}
	a := &recorder{name: "a", log: &log, fn: func() { l.Unregister(b) }}
	c := &recorder{name: "c", log: &log}
	l.Register(a)
	l.Register(b)
	l.Register(c)

	l.Notify()

	if want := []string{"a", "c"}; !reflect.DeepEqual(log, want) {
		t.Errorf("notified %v, want %v (removed dependent must not fire)", log, want)
	}
}

func TestRegisterDuringWaveWaitsForNextWave(t *testing.T) {
	var log []string
	var l List
	late := &recorder{name: "late", log: &log}
	a := &recorder{name: "a", log: &log}
	a.fn = func() {
		if !l.Contains(late) {
			l.Register(late)
		}
	}
	l.Register(a)

	l.Notify()
	if want := []string{"a"}; !reflect.DeepEqual(log, want) {
		t.Errorf("first wave = %v, want %v", log, want)
	}

	log = nil
	l.Notify()
	if want := []string{"a", "late"}; !reflect.DeepEqual(log, want) {
		t.Errorf("second wave = %v, want %v", log, want)
	}
}

func TestNotifyDepthFirst(t *testing.T) {
	var log []string
	var parent, child List
	child.Register(&recorder{name: "grandchild", log: &log})
	parent.Register(&recorder{name: "child", log: &log, fn: child.Notify})
	parent.Register(&recorder{name: "sibling", log: &log})

	parent.Notify()

	if want := []string{"child", "grandchild", "sibling"}; !reflect.DeepEqual(log, want) {
		t.Errorf("order = %v, want %v", log, want)
	}
}

type countingObserver struct {
	notified int
	waves    []int
}

func (o *countingObserver) Notified()          { o.notified++ }
func (o *countingObserver) WaveDone(depth int) { o.waves = append(o.waves, depth) }

func TestTrackerAccounting(t *testing.T) {
	obs := &countingObserver{}
	tr := NewTracker(0, obs)
	parent, child := NewList(tr), NewList(tr)
	child.Register(Func(func() {}))
	parent.Register(Func(child.Notify))
	parent.Register(Func(func() {}))

	parent.Notify()

	if obs.notified != 3 {
		t.Errorf("notified = %d, want 3", obs.notified)
	}
	if !reflect.DeepEqual(obs.waves, []int{2}) {
		t.Errorf("waves = %v, want one wave of depth 2", obs.waves)
	}
	waves, delivered := tr.Stats()
	if waves != 1 || delivered != 3 {
		t.Errorf("Stats() = %d, %d; want 1, 3", waves, delivered)
	}
	if tr.Depth() != 0 {
		t.Errorf("Depth() = %d after wave, want 0", tr.Depth())
	}
}

func TestTrackerCycleGuard(t *testing.T) {
	tr := NewTracker(8, nil)
	l := NewList(tr)
	l.Register(Func(l.Notify))

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recovered %v, want an error", r)
		}
		if !stderrors.Is(err, errors.ErrCircular) {
			t.Errorf("recovered %v, want circular dependency error", err)
		}
		if tr.Depth() != 0 {
			t.Errorf("Depth() = %d after abort, want 0", tr.Depth())
		}
	}()
	l.Notify()
	t.Fatal("Notify on a self-dependent list should not return")
}

func TestNilTracker(t *testing.T) {
	var tr *Tracker
	if tr.Depth() != 0 {
		t.Error("nil tracker depth should be 0")
	}
	w, d := tr.Stats()
	if w != 0 || d != 0 {
		t.Error("nil tracker stats should be zero")
	}
	calls := 0
	l := NewList(nil)
	l.Register(Func(func() { calls++ }))
	l.Notify()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
