package value

import "math"

// Heap is the arena owning every live Value. It is the single owner the
// design notes call for (§9): the interpreter allocates through it, and
// GC (package gc) marks and frees slots through the exported
// Mark/SweepStale API without needing access to Value's internals.
type Heap struct {
	slots []*Value
	free  []ValueID // recycled slot indices, reused before growing slots

	// reuse pools values by Kind to reduce allocator pressure (§4.5).
	reusePool map[Kind][]*Value

	True      ValueID
	False     ValueID
	NullVal   ValueID
	Undef     ValueID
	NaN       ValueID
	PosInf    ValueID
	NegInf    ValueID
	PosZero   ValueID
	NegZero   ValueID
	One       ValueID
	NegOne    ValueID
	EmptyStr  ValueID

	ObjectProto   ValueID
	FunctionProto ValueID
	ArrayProto    ValueID
	StringProto   ValueID
}

// NewHeap builds a Heap and pre-allocates the permanent singletons
// (§4.5) that are always GC roots.
func NewHeap() *Heap {
	h := &Heap{reusePool: map[Kind][]*Value{}}

	h.ObjectProto = h.alloc(&Value{Kind: Object, Obj: newObj(), Proto: NilID})
	h.FunctionProto = h.alloc(&Value{Kind: Object, Obj: newObj(), Proto: h.ObjectProto})
	h.ArrayProto = h.alloc(&Value{Kind: Object, Obj: newObj(), Proto: h.ObjectProto})
	h.StringProto = h.alloc(&Value{Kind: Object, Obj: newObj(), Proto: h.ObjectProto})

	h.True = h.alloc(&Value{Kind: Boolean, Bool: true})
	h.False = h.alloc(&Value{Kind: Boolean, Bool: false})
	h.NullVal = h.alloc(&Value{Kind: Null})
	h.Undef = h.alloc(&Value{Kind: Undefined})
	h.NaN = h.alloc(&Value{Kind: Number, Num: math.NaN()})
	h.PosInf = h.alloc(&Value{Kind: Number, Num: math.Inf(1)})
	h.NegInf = h.alloc(&Value{Kind: Number, Num: math.Inf(-1)})
	h.PosZero = h.alloc(&Value{Kind: Number, Num: 0})
	h.NegZero = h.alloc(&Value{Kind: Number, Num: math.Copysign(0, -1)})
	h.One = h.alloc(&Value{Kind: Number, Num: 1})
	h.NegOne = h.alloc(&Value{Kind: Number, Num: -1})
	h.EmptyStr = h.alloc(&Value{Kind: String, Str: ""})

	return h
}

func (h *Heap) alloc(v *Value) ValueID {
	if n := len(h.free); n > 0 {
		id := h.free[n-1]
		h.free = h.free[:n-1]
		h.slots[id] = v
		return id
	}
	h.slots = append(h.slots, v)
	return ValueID(len(h.slots) - 1)
}

// New allocates a fresh value, preferring a recycled instance of the
// same Kind from the reuse pool over growing the arena (§4.5).
func (h *Heap) New(kind Kind) ValueID {
	var v *Value
	if pool := h.reusePool[kind]; len(pool) > 0 {
		v = pool[len(pool)-1]
		h.reusePool[kind] = pool[:len(pool)-1]
		*v = Value{Kind: kind}
	} else {
		v = &Value{Kind: kind}
	}
	return h.alloc(v)
}

func (h *Heap) Get(id ValueID) *Value {
	if id == NilID {
		return nil
	}
	return h.slots[id]
}

// Each calls fn for every live slot id currently allocated.
func (h *Heap) Each(fn func(id ValueID, v *Value)) {
	for i, v := range h.slots {
		if v == nil {
			continue
		}
		fn(ValueID(i), v)
	}
}

// Free recycles id: the slot is cleared, the Value object is returned to
// the per-Kind reuse pool, and the index becomes available to New again.
func (h *Heap) Free(id ValueID) {
	v := h.slots[id]
	if v == nil {
		return
	}
	h.slots[id] = nil
	h.free = append(h.free, id)
	h.reusePool[v.Kind] = append(h.reusePool[v.Kind], v)
}

// Mark stamps id (and, for objects/functions, everything it reaches)
// with generation if not already stamped at or after it. Returns
// immediately on an already-current stamp to stop cycles.
func (h *Heap) Mark(id ValueID, generation int) {
	if id == NilID {
		return
	}
	v := h.slots[id]
	if v == nil || v.mark >= generation {
		return
	}
	v.mark = generation
	if v.Proto != NilID {
		h.Mark(v.Proto, generation)
	}
	if v.Obj != nil {
		for _, child := range v.Obj.Props {
			h.Mark(child, generation)
		}
		for _, child := range v.Obj.Special {
			h.Mark(child, generation)
		}
	}
	if v.Func != nil && v.Func.ClosureEnv != NilID {
		h.Mark(v.Func.ClosureEnv, generation)
	}
}

// MarkGeneration returns the current mark-generation stamp of id, or -1
// if id is not live.
func (h *Heap) MarkGeneration(id ValueID) int {
	v := h.Get(id)
	if v == nil {
		return -1
	}
	return v.mark
}

// SweepStale frees every live slot whose stamp is older than generation,
// i.e. unreached by the most recent mark phase. Permanent singletons and
// prototypes must be marked by the caller's root set before calling this.
func (h *Heap) SweepStale(generation int) int {
	freed := 0
	for i, v := range h.slots {
		if v == nil {
			continue
		}
		if v.mark < generation {
			h.Free(ValueID(i))
			freed++
		}
	}
	return freed
}

func (h *Heap) Len() int {
	return len(h.slots)
}
