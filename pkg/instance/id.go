package instance

import (
	"strconv"
	"sync/atomic"
)

// IDGenerator hands out instance guids "r-0", "r-1", ... in construction
// order.
type IDGenerator struct {
	next atomic.Uint64
}

// Next returns the next guid.
func (g *IDGenerator) Next() string {
	return "r-" + strconv.FormatUint(g.next.Add(1)-1, 10)
}

// Reset restarts the sequence at r-0. Tests use it to get stable guids.
func (g *IDGenerator) Reset() {
	g.next.Store(0)
}

// DefaultIDs is used when an Env has no generator of its own.
var DefaultIDs = &IDGenerator{}
