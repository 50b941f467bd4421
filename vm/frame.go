package vm

import "github.com/xianjiezh/clibjs/value"

// activeTry is one open try region on a frame's unwind stack, recording
// the operand-stack depth to restore to when an exception unwinds past
// whatever the try body pushed (§4.3).
type activeTry struct {
	region     TryRegion
	stackDepth int
}

// pendingFinally marks a finally block currently executing on behalf of
// an uncaught exception: once the frame's pc reaches end, the exception
// resumes propagating outward (§12, §14). A return or a new throw
// encountered while it runs supersedes the pending rethrow, matching
// real JS finally semantics.
type pendingFinally struct {
	end   int
	value value.ValueID
}

// Frame is one call's activation record: its own operand stack, a
// local-bindings environment object, an optional captured closure
// environment, `this`, and try-region unwind state (§4.3).
//
// Locals and closures are represented as ordinary heap Objects (their
// Obj.Props map IS the binding table) rather than a side Go map, so the
// existing Heap.Mark walk already keeps every live binding reachable
// without the interpreter needing a second root-walking path (§9).
type Frame struct {
	Proto     *Proto
	pc        int
	stack     []value.ValueID
	LocalsID  value.ValueID
	ClosureID value.ValueID // value.NilID if this function captures nothing
	GlobalsID value.ValueID
	This      value.ValueID

	tryStack       []activeTry
	pendingFinally []pendingFinally
}

func newFrame(proto *Proto, locals, closure, globals, this value.ValueID) *Frame {
	return &Frame{Proto: proto, LocalsID: locals, ClosureID: closure, GlobalsID: globals, This: this}
}

func (f *Frame) push(id value.ValueID) { f.stack = append(f.stack, id) }

func (f *Frame) pop() value.ValueID {
	n := len(f.stack) - 1
	v := f.stack[n]
	f.stack = f.stack[:n]
	return v
}

func (f *Frame) top() value.ValueID { return f.stack[len(f.stack)-1] }

// roots returns every ValueID this frame directly holds, for the
// collector's root set (§4.5): the operand stack plus the three
// environment handles and `this`. Bindings reachable only through
// LocalsID/ClosureID/GlobalsID are found by Heap.Mark's own recursive
// walk, not listed here individually.
func (f *Frame) roots() []value.ValueID {
	roots := make([]value.ValueID, 0, len(f.stack)+4)
	roots = append(roots, f.stack...)
	roots = append(roots, f.LocalsID, f.ClosureID, f.GlobalsID, f.This)
	return roots
}
