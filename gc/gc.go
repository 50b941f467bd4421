// Package gc implements the mark-sweep collector over value.Heap's
// arena (§4.5, C8). It knows nothing about frames or globals: the
// interpreter assembles the root set (each frame's operand stack, local
// env, closure env, global env and `this`) and passes it in, and Collect
// adds the heap's permanent singletons and prototypes itself, keeping the
// heap the single owner of liveness decisions the design notes call for
// (§9).
package gc

import "github.com/xianjiezh/clibjs/value"

// Collector runs mark-sweep over a Heap on demand or opportunistically
// between allocations.
type Collector struct {
	heap       *value.Heap
	generation int

	// AllocsSinceGC triggers an opportunistic collection once it
	// reaches AllocThreshold; the interpreter increments it when it
	// creates a function, builds an array or object literal, or enters a
	// call (number and string results are not counted), and Collect
	// resets it to 0.
	AllocsSinceGC int
	AllocThreshold int
}

func New(h *value.Heap) *Collector {
	return &Collector{heap: h, AllocThreshold: 4096}
}

// ShouldCollect reports whether enough allocations have happened since
// the last collection to justify a sweep.
func (c *Collector) ShouldCollect() bool {
	return c.AllocsSinceGC >= c.AllocThreshold
}

// Collect marks every value reachable from roots (plus the heap's
// permanent singletons and prototypes, which are always live) and frees
// everything else. Returns the number of values freed.
func (c *Collector) Collect(roots []value.ValueID) int {
	c.generation++
	gen := c.generation

	c.heap.Mark(c.heap.ObjectProto, gen)
	c.heap.Mark(c.heap.FunctionProto, gen)
	c.heap.Mark(c.heap.ArrayProto, gen)
	c.heap.Mark(c.heap.StringProto, gen)
	c.heap.Mark(c.heap.True, gen)
	c.heap.Mark(c.heap.False, gen)
	c.heap.Mark(c.heap.NullVal, gen)
	c.heap.Mark(c.heap.Undef, gen)
	c.heap.Mark(c.heap.NaN, gen)
	c.heap.Mark(c.heap.PosInf, gen)
	c.heap.Mark(c.heap.NegInf, gen)
	c.heap.Mark(c.heap.PosZero, gen)
	c.heap.Mark(c.heap.NegZero, gen)
	c.heap.Mark(c.heap.One, gen)
	c.heap.Mark(c.heap.NegOne, gen)
	c.heap.Mark(c.heap.EmptyStr, gen)

	for _, r := range roots {
		c.heap.Mark(r, gen)
	}

	freed := c.heap.SweepStale(gen)
	c.AllocsSinceGC = 0
	return freed
}
