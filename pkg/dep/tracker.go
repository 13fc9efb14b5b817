package dep

import "github.com/vango-dev/viewmodel/internal/errors"

// DefaultMaxDepth bounds how many notifications may be nested inside one
// another before a wave is treated as circular.
const DefaultMaxDepth = 1000

// Observer receives propagation statistics. pkg/metrics implements it.
type Observer interface {
	Notified()
	WaveDone(depth int)
}

// Tracker carries the propagation state of one runtime. It is not safe for
// concurrent use; a runtime drives its graph from one goroutine at a time.
// A nil *Tracker is valid and disables both the guard and the accounting.
type Tracker struct {
	// MaxDepth overrides DefaultMaxDepth when positive.
	MaxDepth int

	// Observer, when set, is told about every delivered notification.
	Observer Observer

	depth    int
	maxSeen  int
	waves    uint64
	delivers uint64
}

// NewTracker returns a Tracker with the given depth limit and observer.
func NewTracker(maxDepth int, obs Observer) *Tracker {
	return &Tracker{MaxDepth: maxDepth, Observer: obs}
}

// Depth returns the current nesting depth.
func (t *Tracker) Depth() int {
	if t == nil {
		return 0
	}
	return t.depth
}

// Stats returns the number of completed waves and delivered notifications.
func (t *Tracker) Stats() (waves, delivered uint64) {
	if t == nil {
		return 0, 0
	}
	return t.waves, t.delivers
}

func (t *Tracker) limit() int {
	if t.MaxDepth > 0 {
		return t.MaxDepth
	}
	return DefaultMaxDepth
}

// enter panics with an E006 error once the nesting limit is exceeded.
// A cycle is a programming error, so it is not returned as a value.
func (t *Tracker) enter() {
	if t == nil {
		return
	}
	t.depth++
	if t.depth > t.maxSeen {
		t.maxSeen = t.depth
	}
	if t.depth > t.limit() {
		limit := t.limit()
		t.depth = 0
		t.maxSeen = 0
		panic(errors.Circular(limit))
	}
}

func (t *Tracker) leave() {
	if t == nil || t.depth == 0 {
		return
	}
	t.depth--
	if t.depth == 0 {
		t.waves++
		if t.Observer != nil {
			t.Observer.WaveDone(t.maxSeen)
		}
		t.maxSeen = 0
	}
}

func (t *Tracker) notified() {
	if t == nil {
		return
	}
	t.delivers++
	if t.Observer != nil {
		t.Observer.Notified()
	}
}
