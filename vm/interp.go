package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xianjiezh/clibjs/constpool"
	"github.com/xianjiezh/clibjs/gc"
	"github.com/xianjiezh/clibjs/value"
)

// jsThrow is the sentinel error runFrame returns when a JS exception
// propagates out of a frame uncaught by any of its own try regions: the
// calling frame (CALL_FUNCTION/CALL_METHOD) must feed val back into its
// own unwind rather than treat this as a fatal Go error. Any other error
// type returned by runFrame is a genuine host/internal failure and is
// never JS-catchable.
type jsThrow struct{ val value.ValueID }

func (e *jsThrow) Error() string { return "uncaught exception" }

// Interp runs compiled Protos against a shared Heap. Environments
// (locals, closures, globals) are themselves heap Objects: a function's
// locals object has its Proto set to its captured closure, so the
// existing Heap.GetAttr proto-chain walk already implements the
// local -> enclosing-closure search LOAD_DEREF/LOAD_NAME need, with no
// separate environment representation or extra Mark logic required.
type Interp struct {
	heap      *value.Heap
	collector *gc.Collector
	pool      *constpool.Pool
	protos    []*Proto

	globalsID value.ValueID
	frames    []*Frame
	out       io.Writer
}

func NewInterp(heap *value.Heap, collector *gc.Collector, pool *constpool.Pool, protos []*Proto) *Interp {
	it := &Interp{heap: heap, collector: collector, pool: pool, protos: protos, out: os.Stdout}
	it.globalsID = heap.NewObject(value.NilID)
	it.registerGlobals()
	return it
}

// SetOutput redirects print/console.log's destination, the line buffer
// spec.md §8's end-to-end scenarios are specified against; tests use
// this to assert against a bytes.Buffer instead of the process's stdout.
func (it *Interp) SetOutput(w io.Writer) { it.out = w }

// Run executes Protos[0] (the top-level program) as a script whose
// locals object IS the global object, per §4.2's sharing of the
// top-level frame's env as the global env.
func (it *Interp) Run() (value.ValueID, error) {
	top := it.protos[0]
	f := newFrame(top, it.globalsID, value.NilID, it.globalsID, it.heap.Undef)
	it.frames = append(it.frames, f)
	res, err := it.runFrame(f)
	it.frames = it.frames[:0]
	if jt, ok := err.(*jsThrow); ok {
		return value.NilID, fmt.Errorf("uncaught %s", value.ToString(it.heap, jt.val))
	}
	return res, err
}

func (it *Interp) registerGlobals() {
	it.defineNative(it.globalsID, "print", it.nativePrint)

	console := it.heap.NewObject(it.heap.ObjectProto)
	it.defineNative(console, "log", it.nativePrint)
	it.heap.SetAttr(it.globalsID, "console", console)

	it.defineNative(it.heap.ArrayProto, "push", it.nativeArrayPush)
	it.defineNative(it.heap.ArrayProto, "toString", it.nativeArrayToString)
}

func (it *Interp) defineNative(obj value.ValueID, name string, fn value.NativeFunc) {
	fnID := it.heap.NewFunction(&value.FuncInfo{Name: name, CodeRef: -1, Native: fn})
	it.heap.SetAttr(obj, name, fnID)
}

func (it *Interp) nativePrint(this value.ValueID, args []value.ValueID) (value.ValueID, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.ToString(it.heap, a)
	}
	fmt.Fprintln(it.out, strings.Join(parts, " "))
	return it.heap.Undef, nil
}

// nativeArrayPush appends each argument as a new trailing index slot and
// bumps `length`, mirroring cjsrt_undefined.cpp's minimal Array surface.
func (it *Interp) nativeArrayPush(this value.ValueID, args []value.ValueID) (value.ValueID, error) {
	v := it.heap.Get(this)
	if v == nil || v.Obj == nil {
		return it.heap.Undef, nil
	}
	n := 0
	if lenID, ok := v.Obj.Props["length"]; ok {
		n = int(value.ToNumber(it.heap, lenID))
	}
	for _, a := range args {
		v.Obj.Props[strconv.Itoa(n)] = a
		n++
	}
	newLen := it.newNumber(float64(n))
	v.Obj.Props["length"] = newLen
	return newLen, nil
}

// nativeArrayToString joins the array's elements with "," (Array#join's
// default separator). Only an explicit `.toString()` call reaches it:
// print and string concatenation render an array through value.ToString,
// which gives "[object Object]".
func (it *Interp) nativeArrayToString(this value.ValueID, args []value.ValueID) (value.ValueID, error) {
	v := it.heap.Get(this)
	if v == nil || v.Obj == nil {
		return it.newString(""), nil
	}
	n := 0
	if lenID, ok := v.Obj.Props["length"]; ok {
		n = int(value.ToNumber(it.heap, lenID))
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		if id, ok := v.Obj.Props[strconv.Itoa(i)]; ok {
			parts[i] = value.ToString(it.heap, id)
		}
	}
	return it.newString(strings.Join(parts, ",")), nil
}

func (it *Interp) newString(s string) value.ValueID {
	id := it.heap.New(value.String)
	it.heap.Get(id).Str = s
	return id
}

func (it *Interp) newNumber(n float64) value.ValueID {
	id := it.heap.New(value.Number)
	it.heap.Get(id).Num = n
	return id
}

// directGet reads obj's own slot only, never walking the Proto chain:
// used for LOAD_FAST/LOAD_GLOBAL, where spilling into an enclosing
// scope's same-named binding would be a shadowing bug, not a feature.
func directGet(h *value.Heap, obj value.ValueID, name string) (value.ValueID, bool) {
	v := h.Get(obj)
	if v == nil || v.Obj == nil {
		return value.NilID, false
	}
	id, ok := v.Obj.Props[name]
	return id, ok
}

// attrOf is GetAttr widened to cover the primitive kinds that have no
// backing Obj of their own: a bare string's `.length` (spec's round-trip
// example: `var s = "he" + "llo"; print(s.length)` -> 5) is computed
// rather than stored, everything else still resolves through the normal
// own-slot/prototype-chain walk.
func (it *Interp) attrOf(obj value.ValueID, name string) (value.ValueID, bool) {
	if name == "length" {
		if v := it.heap.Get(obj); v != nil && v.Kind == value.String {
			return it.newNumber(float64(len([]rune(v.Str)))), true
		}
	}
	return it.heap.GetAttr(obj, name)
}

// findOwner walks obj's Proto chain (own slot, then each enclosing
// closure env) and returns the first object that actually holds name,
// or NilID if none does.
func (it *Interp) findOwner(start value.ValueID, name string) value.ValueID {
	cur := start
	for cur != value.NilID {
		v := it.heap.Get(cur)
		if v == nil {
			return value.NilID
		}
		if v.Obj != nil {
			if _, ok := v.Obj.Props[name]; ok {
				return cur
			}
		}
		cur = v.Proto
	}
	return value.NilID
}

// loadName implements LOAD_NAME's local -> closure -> global search.
// An unresolved name reads as undefined rather than throwing: this
// engine does not distinguish a never-declared identifier from one
// merely unreachable from the lowering pass's static scope tracking.
func (it *Interp) loadName(f *Frame, name string) value.ValueID {
	if id, ok := it.heap.GetAttr(f.LocalsID, name); ok {
		return id
	}
	if id, ok := directGet(it.heap, f.GlobalsID, name); ok {
		return id
	}
	return it.heap.Undef
}

// storeName implements STORE_NAME: update the binding wherever it
// already exists in the local/closure chain or in globals, so that
// assigning to a captured variable from a nested function (the common
// closure-counter pattern) mutates the captured slot instead of
// silently shadowing it; only when the name exists nowhere yet does it
// create a fresh binding, in the current frame's own locals.
func (it *Interp) storeName(f *Frame, name string, val value.ValueID) {
	if owner := it.findOwner(f.LocalsID, name); owner != value.NilID {
		it.heap.SetAttr(owner, name, val)
		return
	}
	if owner := it.findOwner(f.GlobalsID, name); owner != value.NilID {
		it.heap.SetAttr(owner, name, val)
		return
	}
	it.heap.SetAttr(f.LocalsID, name, val)
}

// raise attempts to unwind f to a catch/finally for thrown; it reports
// whether f has a handler (in which case f.pc has already been
// redirected and the dispatch loop should simply continue).
func (it *Interp) raise(f *Frame, thrown value.ValueID) bool {
	return it.unwind(f, thrown)
}

// unwind pops f's try regions, restoring the operand stack to each
// region's entry depth, until one wants the exception: HasCatch jumps
// straight to CatchPC with thrown pushed; HasFinally (no catch) records
// a pendingFinally so the dispatch loop resumes propagation once pc
// reaches FinallyEnd.
func (it *Interp) unwind(f *Frame, thrown value.ValueID) bool {
	for len(f.tryStack) > 0 {
		at := f.tryStack[len(f.tryStack)-1]
		f.tryStack = f.tryStack[:len(f.tryStack)-1]
		if at.stackDepth <= len(f.stack) {
			f.stack = f.stack[:at.stackDepth]
		}
		region := at.region
		if region.HasCatch {
			f.push(thrown)
			f.pc = region.CatchPC
			return true
		}
		if region.HasFinally {
			f.pendingFinally = append(f.pendingFinally, pendingFinally{end: region.FinallyEnd, value: thrown})
			f.pc = region.FinallyPC
			return true
		}
	}
	return false
}

func (it *Interp) roots() []value.ValueID {
	var roots []value.ValueID
	for _, f := range it.frames {
		roots = append(roots, f.roots()...)
	}
	return roots
}

func (it *Interp) maybeCollect() {
	it.collector.AllocsSinceGC++
	if it.collector.ShouldCollect() {
		it.collector.Collect(it.roots())
	}
}

var binOpTable = map[Op]value.BinOp{
	BINARY_ADD: value.Add, BINARY_SUBTRACT: value.Sub, BINARY_MULTIPLY: value.Mul,
	BINARY_TRUE_DIVIDE: value.Div, BINARY_MODULO: value.Mod, BINARY_POWER: value.Power,
	BINARY_LSHIFT: value.LShift, BINARY_RSHIFT: value.RShift, BINARY_URSHIFT: value.URShift,
	BINARY_AND: value.BitAnd, BINARY_OR: value.BitOr, BINARY_XOR: value.BitXor,
}

var cmpOpTable = map[CompareOp]value.BinOp{
	CmpLT: value.Less, CmpLE: value.LessEq, CmpEQ: value.Eq, CmpNE: value.NotEq,
	CmpGT: value.Greater, CmpGE: value.GreaterEq, CmpSEQ: value.StrictEq, CmpSNE: value.StrictNotEq,
}

// runFrame is the dispatch loop: it executes f.Proto.Code from f.pc
// until a RET (normal return) or an uncaught throw (jsThrow) leaves the
// frame. Every case sets f.pc itself, either to the instruction's
// natural successor or to a jump/unwind target.
func (it *Interp) runFrame(f *Frame) (value.ValueID, error) {
	for {
		if n := len(f.pendingFinally); n > 0 {
			top := f.pendingFinally[n-1]
			if f.pc == top.end {
				f.pendingFinally = f.pendingFinally[:n-1]
				if it.unwind(f, top.value) {
					continue
				}
				return value.NilID, &jsThrow{val: top.value}
			}
		}

		idx := f.Proto.indexOf(f.pc)
		if idx >= len(f.Proto.Code) {
			return it.heap.Undef, nil
		}
		instr := f.Proto.Code[idx]
		nextPC := f.pc + 1 + instr.Op.NumOperands()

		switch instr.Op {
		case LOAD_CONST:
			lit := it.pool.LiteralAt(int(instr.A))
			if lit.Kind == constpool.LiteralString {
				f.push(it.newString(lit.Str))
			} else {
				f.push(it.newNumber(lit.Number))
			}
			f.pc = nextPC
		case LOAD_NAME:
			f.push(it.loadName(f, it.pool.NameAt(int(instr.A))))
			f.pc = nextPC
		case LOAD_FAST:
			id, ok := directGet(it.heap, f.LocalsID, it.pool.NameAt(int(instr.A)))
			if !ok {
				id = it.heap.Undef
			}
			f.push(id)
			f.pc = nextPC
		case LOAD_GLOBAL:
			id, ok := directGet(it.heap, f.GlobalsID, it.pool.NameAt(int(instr.A)))
			if !ok {
				id = it.heap.Undef
			}
			f.push(id)
			f.pc = nextPC
		case LOAD_DEREF:
			id := it.heap.Undef
			if f.ClosureID != value.NilID {
				if v, ok := it.heap.GetAttr(f.ClosureID, it.pool.NameAt(int(instr.A))); ok {
					id = v
				}
			}
			f.push(id)
			f.pc = nextPC
		case LOAD_ATTR:
			obj := f.pop()
			id, ok := it.attrOf(obj, it.pool.NameAt(int(instr.A)))
			if !ok {
				id = it.heap.Undef
			}
			f.push(id)
			f.pc = nextPC
		case LOAD_METHOD:
			recv := f.pop()
			name := it.pool.NameAt(int(instr.A))
			method, ok := it.attrOf(recv, name)
			if !ok {
				method = it.heap.Undef
			}
			f.push(recv)
			f.push(method)
			f.pc = nextPC
		case LOAD_UNDEFINED:
			f.push(it.heap.Undef)
			f.pc = nextPC
		case LOAD_NULL:
			f.push(it.heap.NullVal)
			f.pc = nextPC
		case STORE_NAME:
			it.storeName(f, it.pool.NameAt(int(instr.A)), f.pop())
			f.pc = nextPC
		case STORE_FAST:
			it.heap.SetAttr(f.LocalsID, it.pool.NameAt(int(instr.A)), f.pop())
			f.pc = nextPC
		case STORE_ATTR:
			obj := f.pop()
			val := f.pop()
			it.heap.SetAttr(obj, it.pool.NameAt(int(instr.A)), val)
			f.pc = nextPC
		case STORE_SUBSCR:
			idx := f.pop()
			obj := f.pop()
			val := f.pop()
			it.heap.SetAttr(obj, value.ToString(it.heap, idx), val)
			f.pc = nextPC
		case BINARY_SUBSCR:
			idx := f.pop()
			obj := f.pop()
			id, ok := it.heap.GetAttr(obj, value.ToString(it.heap, idx))
			if !ok {
				id = it.heap.Undef
			}
			f.push(id)
			f.pc = nextPC
		case DELETE_ATTR:
			obj := f.pop()
			if v := it.heap.Get(obj); v != nil && v.Obj != nil {
				delete(v.Obj.Props, it.pool.NameAt(int(instr.A)))
			}
			f.pc = nextPC
		case DELETE_SUBSCR:
			idx := f.pop()
			obj := f.pop()
			if v := it.heap.Get(obj); v != nil && v.Obj != nil {
				delete(v.Obj.Props, value.ToString(it.heap, idx))
			}
			f.pc = nextPC
		case DUP_TOP:
			f.push(f.top())
			f.pc = nextPC
		case POP_TOP:
			f.pop()
			f.pc = nextPC
		case UNARY_POSITIVE:
			res, _ := value.UnaryOp(it.heap, value.Positive, f.pop())
			f.push(res)
			f.pc = nextPC
		case UNARY_NEGATIVE:
			res, _ := value.UnaryOp(it.heap, value.Negative, f.pop())
			f.push(res)
			f.pc = nextPC
		case UNARY_NOT:
			res, _ := value.UnaryOp(it.heap, value.Not, f.pop())
			f.push(res)
			f.pc = nextPC
		case UNARY_INVERT:
			res, _ := value.UnaryOp(it.heap, value.Invert, f.pop())
			f.push(res)
			f.pc = nextPC
		case UNARY_TYPEOF:
			f.push(it.newString(value.TypeOf(it.heap, f.pop())))
			f.pc = nextPC
		case BINARY_INC:
			res, _ := value.BinaryOp(it.heap, value.Add, f.pop(), it.heap.One)
			f.push(res)
			f.pc = nextPC
		case BINARY_DEC:
			res, _ := value.BinaryOp(it.heap, value.Sub, f.pop(), it.heap.One)
			f.push(res)
			f.pc = nextPC
		case BINARY_ADD, BINARY_SUBTRACT, BINARY_MULTIPLY, BINARY_TRUE_DIVIDE,
			BINARY_MODULO, BINARY_POWER, BINARY_LSHIFT, BINARY_RSHIFT,
			BINARY_URSHIFT, BINARY_AND, BINARY_OR, BINARY_XOR:
			b := f.pop()
			a := f.pop()
			res, err := value.BinaryOp(it.heap, binOpTable[instr.Op], a, b)
			if err != nil {
				return value.NilID, err
			}
			f.push(res)
			f.pc = nextPC
		case COMPARE_OP:
			b := f.pop()
			a := f.pop()
			res, err := value.BinaryOp(it.heap, cmpOpTable[CompareOp(instr.A)], a, b)
			if err != nil {
				return value.NilID, err
			}
			f.push(res)
			f.pc = nextPC
		case JUMP_IF_TRUE_OR_POP:
			if value.ToBool(it.heap, f.top()) {
				f.pc = int(instr.A)
			} else {
				f.pop()
				f.pc = nextPC
			}
		case JUMP_IF_FALSE_OR_POP:
			if !value.ToBool(it.heap, f.top()) {
				f.pc = int(instr.A)
			} else {
				f.pop()
				f.pc = nextPC
			}
		case POP_JUMP_IF_FALSE:
			if !value.ToBool(it.heap, f.pop()) {
				f.pc = int(instr.A)
			} else {
				f.pc = nextPC
			}
		case JUMP_ABSOLUTE, JUMP_FORWARD:
			f.pc = int(instr.A)
		case MAKE_FUNCTION:
			proto := it.protos[int(instr.A)]
			fnID := it.heap.NewFunction(&value.FuncInfo{Name: proto.Name, CodeRef: int(instr.A), ClosureEnv: f.LocalsID})
			f.push(fnID)
			it.maybeCollect()
			f.pc = nextPC
		case CALL_FUNCTION:
			argc := int(instr.A)
			args := make([]value.ValueID, argc)
			copy(args, f.stack[len(f.stack)-argc:])
			f.stack = f.stack[:len(f.stack)-argc]
			callee := f.pop()
			res, err := it.call(callee, it.heap.Undef, args)
			if err != nil {
				jt, ok := err.(*jsThrow)
				if !ok {
					return value.NilID, err
				}
				if it.raise(f, jt.val) {
					continue
				}
				return value.NilID, jt
			}
			f.push(res)
			f.pc = nextPC
		case CALL_METHOD:
			argc := int(instr.A)
			args := make([]value.ValueID, argc)
			copy(args, f.stack[len(f.stack)-argc:])
			f.stack = f.stack[:len(f.stack)-argc]
			method := f.pop()
			recv := f.pop()
			res, err := it.call(method, recv, args)
			if err != nil {
				jt, ok := err.(*jsThrow)
				if !ok {
					return value.NilID, err
				}
				if it.raise(f, jt.val) {
					continue
				}
				return value.NilID, jt
			}
			f.push(res)
			f.pc = nextPC
		case BUILD_LIST:
			n := int(instr.A)
			elems := make([]value.ValueID, n)
			copy(elems, f.stack[len(f.stack)-n:])
			f.stack = f.stack[:len(f.stack)-n]
			arr := it.heap.NewObject(it.heap.ArrayProto)
			for i, e := range elems {
				it.heap.SetAttr(arr, strconv.Itoa(i), e)
			}
			it.heap.SetAttr(arr, "length", it.newNumber(float64(n)))
			f.push(arr)
			it.maybeCollect()
			f.pc = nextPC
		case BUILD_MAP:
			n := int(instr.A)
			items := make([]value.ValueID, n*2)
			copy(items, f.stack[len(f.stack)-n*2:])
			f.stack = f.stack[:len(f.stack)-n*2]
			obj := it.heap.NewObject(it.heap.ObjectProto)
			for i := 0; i < n; i++ {
				it.heap.SetAttr(obj, value.ToString(it.heap, items[i*2]), items[i*2+1])
			}
			f.push(obj)
			it.maybeCollect()
			f.pc = nextPC
		case RET:
			return f.pop(), nil
		case THROW:
			thrown := f.pop()
			if it.raise(f, thrown) {
				continue
			}
			return value.NilID, &jsThrow{val: thrown}
		case SETUP_TRY:
			region := f.Proto.TryRegions[int(instr.A)]
			f.tryStack = append(f.tryStack, activeTry{region: region, stackDepth: len(f.stack)})
			f.pc = nextPC
		case POP_TRY:
			f.tryStack = f.tryStack[:len(f.tryStack)-1]
			f.pc = nextPC
		default:
			return value.NilID, fmt.Errorf("vm: unhandled opcode %v", instr.Op)
		}
	}
}

// call invokes callee (a function value) with the given this-binding
// and argument list. A Proto-backed function's parameters are bound by
// transplanting args directly onto the new frame's operand stack: the
// callee's own prologue (a reversed run of STORE_FAST instructions,
// see codegen's reorderParamBindings) consumes them in the right order
// with no argument marshalling needed here beyond padding/truncating to
// the declared parameter count.
func (it *Interp) call(callee, this value.ValueID, args []value.ValueID) (value.ValueID, error) {
	v := it.heap.Get(callee)
	if v == nil || v.Func == nil {
		return value.NilID, &jsThrow{val: it.newString(value.ToString(it.heap, callee) + " is not a function")}
	}
	info := v.Func
	if info.Native != nil {
		res, err := info.Native(this, args)
		if err != nil {
			return value.NilID, &jsThrow{val: it.newString(err.Error())}
		}
		return res, nil
	}

	proto := it.protos[info.CodeRef]
	locals := it.heap.NewObject(info.ClosureEnv)
	nf := newFrame(proto, locals, info.ClosureEnv, it.globalsID, this)
	needed := len(proto.Params)
	nf.stack = make([]value.ValueID, needed)
	for i := 0; i < needed; i++ {
		if i < len(args) {
			nf.stack[i] = args[i]
		} else {
			nf.stack[i] = it.heap.Undef
		}
	}

	it.frames = append(it.frames, nf)
	it.maybeCollect()
	res, err := it.runFrame(nf)
	it.frames = it.frames[:len(it.frames)-1]
	return res, err
}
