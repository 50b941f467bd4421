// Package value implements the tagged runtime value model (§3, §4.4,
// C6): numbers, strings, booleans, null, undefined, objects and
// functions, with ECMAScript-like coercion and a prototype chain.
//
// Every inter-value reference (an object's property value, a
// prototype link, a closure's captured environment) is a ValueID, a
// non-owning handle into a Heap arena rather than a pointer — this is
// how weak references fall out naturally (design note, §9) without the
// shared_ptr/weak_ref cycle bookkeeping the original implementation
// needed.
package value

import "fmt"

// Kind is the tag of a runtime value. typeof (§4.4) collapses Null into
// "object" and treats Function specially; Kind keeps them distinct so
// the value model can still special-case null.
type Kind int

const (
	Undefined Kind = iota
	Null
	Boolean
	Number
	String
	Object
	Function
)

// Attr is a bitmask carried by every value (§3).
type Attr uint8

const (
	AttrConst Attr = 1 << iota
	AttrReadonly
)

// ValueID is a non-owning handle into a Heap's arena.
type ValueID int

// NilID is the zero handle: no value, used for an absent prototype or
// an uninitialized slot.
const NilID ValueID = -1

// Obj is the object payload: own string-keyed properties plus a
// separate slot table for engine-internal state (e.g. a function's
// bound env is not a property).
type Obj struct {
	Props   map[string]ValueID
	Special map[string]ValueID
}

func newObj() *Obj {
	return &Obj{Props: map[string]ValueID{}, Special: map[string]ValueID{}}
}

// FuncInfo is the function payload.
type FuncInfo struct {
	Name     string
	CodeRef  int  // index into the owning engine's compiled function table, or -1 for native
	Native   NativeFunc
	ClosureEnv ValueID // captured environment object: the defining frame's locals (the global object at top level)
}

// NativeFunc is a host trampoline invoked by CALL_FUNCTION/CALL_METHOD
// when FuncInfo.CodeRef is -1.
type NativeFunc func(this ValueID, args []ValueID) (ValueID, error)

// Value is a tagged runtime value.
type Value struct {
	Kind Kind
	Attr Attr

	Bool   bool
	Num    float64
	Str    string
	Obj    *Obj
	Func   *FuncInfo
	Proto  ValueID // weak: dereferenced through the owning Heap

	mark int // GC mark-generation stamp (§4.5); Heap-owned
}

func (v *Value) String() string {
	return fmt.Sprintf("Value{%v}", v.Kind)
}
