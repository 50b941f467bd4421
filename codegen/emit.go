package codegen

import (
	"fmt"

	"github.com/xianjiezh/clibjs/constpool"
	"github.com/xianjiezh/clibjs/internal/cerr"
	"github.com/xianjiezh/clibjs/symbol"
	"github.com/xianjiezh/clibjs/vm"
)

// Compiled is the output of a full compile: the shared constants pool
// and every function prototype reachable from the program, with the
// program itself always at Functions[0] (§6).
type Compiled struct {
	Pool      *constpool.Pool
	Functions []*vm.Proto
}

// Compile parses nothing itself: it lowers an already-built top-level
// symbol.Block (see Lowerer) into bytecode.
func Compile(top *symbol.Block) (*Compiled, error) {
	g := &Generator{pool: constpool.New()}
	protoIdx := g.newProto("", nil)
	g.pushLoopless()
	if err := g.emitBlock(top); err != nil {
		return nil, err
	}
	g.emit(vm.LOAD_UNDEFINED)
	g.emit(vm.RET)
	g.finishProto(protoIdx)
	return &Compiled{Pool: g.pool, Functions: g.protos}, nil
}

// loopCtx names the jump targets break/continue resolve against, and the
// patch lists for forward jumps emitted before the loop's end is known.
type loopCtx struct {
	continueTarget int
	breakPatches   []int // indices into cur.Code needing their jump target set to the loop's end
	hasTarget      bool
}

// fnCtx holds the in-progress instruction buffer and try-region table
// for one function while it is being emitted; Generator keeps a stack of
// these so nested function literals compile independently.
type fnCtx struct {
	code       []vm.Instr
	tryRegions []vm.TryRegion
	tryStack   []int // indices into tryRegions currently open, innermost last
	loops      []*loopCtx
}

// Generator walks a symbol.Sym tree and emits vm.Instr sequences against
// a shared constpool.Pool, one vm.Proto per function literal (§4.2,
// §6). Protos are finalized (code/try-regions copied out) as each
// function's body finishes compiling.
type Generator struct {
	pool   *constpool.Pool
	protos []*vm.Proto
	stack  []*fnCtx
}

func (g *Generator) cur() *fnCtx { return g.stack[len(g.stack)-1] }

func (g *Generator) newProto(name string, params []string) int {
	idx := len(g.protos)
	g.protos = append(g.protos, &vm.Proto{Name: name, Params: params})
	g.stack = append(g.stack, &fnCtx{})
	return idx
}

func (g *Generator) finishProto(idx int) {
	ctx := g.cur()
	g.protos[idx].Code = ctx.code
	g.protos[idx].TryRegions = ctx.tryRegions
	g.stack = g.stack[:len(g.stack)-1]
}

func (g *Generator) pushLoopless() {
	// placeholder hook kept for symmetry with pushLoop/popLoop; the
	// top-level function starts with an empty loop stack already.
}

// pc returns the logical instruction pointer the next emitted
// instruction will occupy: it is not the slice index, since each prior
// instruction advances it by 1+NumOperands (§3).
func (g *Generator) pc() int {
	total := 0
	for _, instr := range g.cur().code {
		total += 1 + instr.Op.NumOperands()
	}
	return total
}

func (g *Generator) emit(op vm.Op) int {
	return g.emitOperand(op, 0, 0)
}

func (g *Generator) emitOperand(op vm.Op, a, b int32) int {
	at := g.pc()
	g.cur().code = append(g.cur().code, vm.Instr{Op: op, OpNum: op.NumOperands(), A: a, B: b})
	return at
}

// index returns the slice index of the instruction whose logical PC is
// target, for backpatching a jump operand after the fact.
func (g *Generator) index(target int) int {
	total := 0
	for i, instr := range g.cur().code {
		if total == target {
			return i
		}
		total += 1 + instr.Op.NumOperands()
	}
	return len(g.cur().code)
}

func (g *Generator) patchA(pcTarget int, a int32) {
	g.cur().code[g.index(pcTarget)].A = a
}

func (g *Generator) pushLoop(continueTarget int) {
	g.cur().loops = append(g.cur().loops, &loopCtx{continueTarget: continueTarget, hasTarget: true})
}

func (g *Generator) popLoop(breakTarget int) {
	ctx := g.cur()
	lc := ctx.loops[len(ctx.loops)-1]
	ctx.loops = ctx.loops[:len(ctx.loops)-1]
	for _, at := range lc.breakPatches {
		g.patchA(at, int32(breakTarget))
	}
}

func (g *Generator) currentLoop() *loopCtx {
	ctx := g.cur()
	if len(ctx.loops) == 0 {
		return nil
	}
	return ctx.loops[len(ctx.loops)-1]
}

// --- statements ---

func (g *Generator) emitBlock(b *symbol.Block) error {
	for _, s := range b.Stmts {
		if err := g.emitStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) emitStmt(s symbol.Sym) error {
	switch n := s.(type) {
	case *symbol.StmtVar:
		for _, id := range n.Vars {
			if id.Init != nil {
				if err := g.emitExpr(id.Init); err != nil {
					return err
				}
			} else {
				g.emit(vm.LOAD_UNDEFINED)
			}
			g.emitStore(id.Name)
		}
		return nil
	case *symbol.StmtExp:
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.POP_TOP)
		return nil
	case *symbol.Block:
		return g.emitBlock(n)
	case *symbol.If:
		return g.emitIf(n)
	case *symbol.For:
		return g.emitFor(n)
	case *symbol.Return:
		if n.Value != nil {
			if err := g.emitExpr(n.Value); err != nil {
				return err
			}
		} else {
			g.emit(vm.LOAD_UNDEFINED)
		}
		g.emit(vm.RET)
		return nil
	case *symbol.Break:
		lc := g.currentLoop()
		if lc == nil {
			return g.semErr(n, "break outside of loop")
		}
		if n.Label != "" {
			return g.semErr(n, "labelled break is not supported")
		}
		at := g.emitOperand(vm.JUMP_FORWARD, 0, 0)
		lc.breakPatches = append(lc.breakPatches, at)
		return nil
	case *symbol.Continue:
		lc := g.currentLoop()
		if lc == nil {
			return g.semErr(n, "continue outside of loop")
		}
		if n.Label != "" {
			return g.semErr(n, "labelled continue is not supported")
		}
		g.emitOperand(vm.JUMP_ABSOLUTE, int32(lc.continueTarget), 0)
		return nil
	case *symbol.Throw:
		if err := g.emitExpr(n.Value); err != nil {
			return err
		}
		g.emitOperand(vm.THROW, 0, 0)
		return nil
	case *symbol.Try:
		return g.emitTry(n)
	case *symbol.FuncDecl:
		if err := g.emitFunctionLiteral(n.Fn); err != nil {
			return err
		}
		g.emitStore(n.Name)
		return nil
	default:
		return fmt.Errorf("codegen: unhandled statement %T", s)
	}
}

func (g *Generator) semErr(s symbol.Sym, msg string) error {
	pos := s.Position()
	return cerr.New(cerr.SemanticCompile, pos.Line, pos.Col, pos.Start, pos.End, "", msg)
}

func (g *Generator) emitIf(n *symbol.If) error {
	if err := g.emitExpr(n.Cond); err != nil {
		return err
	}
	jfalse := g.emitOperand(vm.POP_JUMP_IF_FALSE, 0, 0)
	if err := g.emitStmt(n.Then); err != nil {
		return err
	}
	if n.Else == nil {
		g.patchA(jfalse, int32(g.pc()))
		return nil
	}
	jend := g.emitOperand(vm.JUMP_FORWARD, 0, 0)
	g.patchA(jfalse, int32(g.pc()))
	if err := g.emitStmt(n.Else); err != nil {
		return err
	}
	g.patchA(jend, int32(g.pc()))
	return nil
}

func (g *Generator) emitFor(n *symbol.For) error {
	if n.Init != nil {
		if stmtVar, ok := n.Init.(*symbol.StmtVar); ok {
			if err := g.emitStmt(stmtVar); err != nil {
				return err
			}
		} else if err := g.emitExpr(n.Init); err != nil {
			return err
		} else {
			g.emit(vm.POP_TOP)
		}
	}
	condPC := g.pc()
	var jfalse int
	hasJfalse := false
	if n.Cond != nil {
		if err := g.emitExpr(n.Cond); err != nil {
			return err
		}
		jfalse = g.emitOperand(vm.POP_JUMP_IF_FALSE, 0, 0)
		hasJfalse = true
	}

	// continueTarget is where `continue` jumps: the update expression
	// (or, with no update, straight back to the condition re-check).
	// condPC is already known here and is correct whenever the loop has
	// no update expression; fixupContinueTargets rewrites it below when
	// an update exists.
	g.pushLoop(condPC)
	bodyErr := g.emitStmt(n.Body)
	updatePC := g.pc()
	if n.Update != nil {
		// Retroactively fix the continue target recorded for this loop:
		// Go's single-pass emission can't know updatePC before the body
		// compiles, since `continue` statements inside the body were
		// already emitted against the value pushed by pushLoop above.
		// This runs before the loop's own back-edge jump to condPC is
		// emitted, so that jump is not rewritten.
		g.fixupContinueTargets(condPC, updatePC)
		if err := g.emitExpr(n.Update); err != nil {
			return err
		}
		g.emit(vm.POP_TOP)
	}
	g.emitOperand(vm.JUMP_ABSOLUTE, int32(condPC), 0)
	end := g.pc()
	g.popLoop(end)
	if bodyErr != nil {
		return bodyErr
	}
	if hasJfalse {
		g.patchA(jfalse, int32(end))
	}
	return nil
}

// fixupContinueTargets rewrites JUMP_ABSOLUTE instructions that were
// emitted against the loop's placeholder continue-target (condPC, valid
// when there is no update expression) to instead target updatePC. emitFor
// calls it only for a loop with an update expression, after the body and
// before the loop's back-edge jump is emitted; any JUMP_ABSOLUTE to condPC
// already in the function's code at that point is rewritten.
func (g *Generator) fixupContinueTargets(condPC, updatePC int) {
	if condPC == updatePC {
		return
	}
	ctx := g.cur()
	for i := range ctx.code {
		instr := &ctx.code[i]
		if instr.Op == vm.JUMP_ABSOLUTE && int(instr.A) == condPC {
			instr.A = int32(updatePC)
		}
	}
}

func (g *Generator) emitTry(n *symbol.Try) error {
	ctx := g.cur()
	region := vm.TryRegion{Start: g.pc()}
	regionIdx := len(ctx.tryRegions)
	ctx.tryRegions = append(ctx.tryRegions, region)
	ctx.tryStack = append(ctx.tryStack, regionIdx)

	setupAt := g.emitOperand(vm.SETUP_TRY, int32(regionIdx), 0)
	_ = setupAt
	if err := g.emitBlock(n.Body); err != nil {
		return err
	}
	g.emit(vm.POP_TRY)
	jend := g.emitOperand(vm.JUMP_FORWARD, 0, 0)

	ctx.tryStack = ctx.tryStack[:len(ctx.tryStack)-1]
	ctx.tryRegions[regionIdx].End = g.pc()

	if n.HasCatch {
		ctx.tryRegions[regionIdx].HasCatch = true
		ctx.tryRegions[regionIdx].CatchPC = g.pc()
		ctx.tryRegions[regionIdx].CatchParam = n.CatchParam
		if n.CatchParam != "" {
			g.emitStore(n.CatchParam)
		} else {
			g.emit(vm.POP_TOP)
		}
		if err := g.emitBlock(n.CatchBody); err != nil {
			return err
		}
	}
	g.patchA(jend, int32(g.pc()))

	if n.HasFinally {
		ctx.tryRegions[regionIdx].HasFinally = true
		ctx.tryRegions[regionIdx].FinallyPC = g.pc()
		if err := g.emitBlock(n.FinallyBody); err != nil {
			return err
		}
		ctx.tryRegions[regionIdx].FinallyEnd = g.pc()
	}
	return nil
}

// --- expressions ---

// emitExpr emits code leaving exactly one value on the operand stack.
func (g *Generator) emitExpr(s symbol.Sym) error {
	switch n := s.(type) {
	case *symbol.Var:
		return g.emitLiteral(n)
	case *symbol.VarId:
		g.emitLoad(n.Name, n.Kind)
		return nil
	case *symbol.UnOp:
		return g.emitUnOp(n)
	case *symbol.SinOp:
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.DUP_TOP)
		if n.Op == "++" {
			g.emit(vm.BINARY_INC)
		} else {
			g.emit(vm.BINARY_DEC)
		}
		if err := g.emitStoreTarget(n.Expr); err != nil {
			return err
		}
		return nil
	case *symbol.BinOp:
		return g.emitBinOp(n)
	case *symbol.TriOp:
		return g.emitTriOp(n)
	case *symbol.MemberDot:
		if err := g.emitExpr(n.Obj); err != nil {
			return err
		}
		g.emitOperand(vm.LOAD_ATTR, int32(g.pool.Name(n.Name)), 0)
		return nil
	case *symbol.MemberIndex:
		if err := g.emitExpr(n.Obj); err != nil {
			return err
		}
		if err := g.emitExpr(n.Index); err != nil {
			return err
		}
		g.emit(vm.BINARY_SUBSCR)
		return nil
	case *symbol.Array:
		for _, el := range n.Elements {
			if err := g.emitExpr(el); err != nil {
				return err
			}
		}
		g.emitOperand(vm.BUILD_LIST, int32(len(n.Elements)), 0)
		return nil
	case *symbol.Object:
		for _, pair := range n.Pairs {
			g.emitOperand(vm.LOAD_CONST, int32(g.pool.String(pair.Key)), 0)
			if err := g.emitExpr(pair.Value); err != nil {
				return err
			}
		}
		g.emitOperand(vm.BUILD_MAP, int32(len(n.Pairs)), 0)
		return nil
	case *symbol.CallFunction:
		if err := g.emitExpr(n.Callee); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := g.emitExpr(a); err != nil {
				return err
			}
		}
		g.emitOperand(vm.CALL_FUNCTION, int32(len(n.Args)), 0)
		return nil
	case *symbol.CallMethod:
		if err := g.emitExpr(n.Recv); err != nil {
			return err
		}
		g.emitOperand(vm.LOAD_METHOD, int32(g.pool.Name(n.Name)), 0)
		for _, a := range n.Args {
			if err := g.emitExpr(a); err != nil {
				return err
			}
		}
		g.emitOperand(vm.CALL_METHOD, int32(len(n.Args)), 0)
		return nil
	case *symbol.ExpSeq:
		for i, e := range n.Exprs {
			if i > 0 {
				g.emit(vm.POP_TOP)
			}
			if err := g.emitExpr(e); err != nil {
				return err
			}
		}
		return nil
	case *symbol.Code:
		return g.emitFunctionLiteral(n)
	default:
		return fmt.Errorf("codegen: unhandled expression %T", s)
	}
}

func (g *Generator) emitLiteral(n *symbol.Var) error {
	switch n.Literal {
	case symbol.LitNumber:
		g.emitOperand(vm.LOAD_CONST, int32(g.pool.Number(n.Num)), 0)
	case symbol.LitString:
		g.emitOperand(vm.LOAD_CONST, int32(g.pool.String(n.Str)), 0)
	case symbol.LitBool:
		// Booleans are not pool literals (§3): LOAD_CONST's operand space
		// is strings/numbers only, so fold true/false into the
		// equivalent of `!!1`/`!!0` at emission time instead of teaching
		// the pool a third kind.
		g.emitOperand(vm.LOAD_CONST, int32(g.pool.Number(n.Num)), 0)
		g.emit(vm.UNARY_NOT)
		g.emit(vm.UNARY_NOT)
	case symbol.LitNull:
		g.emit(vm.LOAD_NULL)
	case symbol.LitUndefined:
		g.emit(vm.LOAD_UNDEFINED)
	case symbol.LitIdentifier:
		g.emitOperand(vm.LOAD_NAME, int32(g.pool.Name(n.Name)), 0)
	default:
		return fmt.Errorf("codegen: unhandled literal kind %v", n.Literal)
	}
	return nil
}

func (g *Generator) emitLoad(name string, kind symbol.ResolveKind) {
	switch kind {
	case symbol.ResolveFast:
		g.emitOperand(vm.LOAD_FAST, int32(g.pool.Name(name)), 0)
	case symbol.ResolveDeref:
		g.emitOperand(vm.LOAD_DEREF, int32(g.pool.Name(name)), 0)
	}
}

func (g *Generator) emitStore(name string) {
	g.emitOperand(vm.STORE_NAME, int32(g.pool.Name(name)), 0)
}

// emitStoreTarget emits the store half of an lvalue expression that was
// already evaluated once by emitExpr for its read (compound assignment,
// ++/--): identifiers, member-dot, and member-index.
func (g *Generator) emitStoreTarget(target symbol.Sym) error {
	switch t := target.(type) {
	case *symbol.VarId:
		switch t.Kind {
		case symbol.ResolveFast:
			g.emitOperand(vm.STORE_FAST, int32(g.pool.Name(t.Name)), 0)
		case symbol.ResolveDeref:
			g.emitOperand(vm.STORE_NAME, int32(g.pool.Name(t.Name)), 0)
		}
		return nil
	case *symbol.Var:
		if t.Literal != symbol.LitIdentifier {
			return fmt.Errorf("codegen: invalid assignment target")
		}
		g.emitStore(t.Name)
		return nil
	case *symbol.MemberDot:
		// Stack currently holds the new value on top; re-evaluate the
		// object, then swap isn't available, so push obj.name via a
		// direct two-step: push obj, then STORE_ATTR consumes [value,
		// obj] per the interpreter's calling convention (see vm/interp.go).
		if err := g.emitExpr(t.Obj); err != nil {
			return err
		}
		g.emitOperand(vm.STORE_ATTR, int32(g.pool.Name(t.Name)), 0)
		return nil
	case *symbol.MemberIndex:
		if err := g.emitExpr(t.Obj); err != nil {
			return err
		}
		if err := g.emitExpr(t.Index); err != nil {
			return err
		}
		g.emit(vm.STORE_SUBSCR)
		return nil
	default:
		return fmt.Errorf("codegen: unsupported assignment target %T", target)
	}
}

func (g *Generator) emitUnOp(n *symbol.UnOp) error {
	switch n.Op {
	case "+":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.UNARY_POSITIVE)
		return nil
	case "-":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.UNARY_NEGATIVE)
		return nil
	case "!":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.UNARY_NOT)
		return nil
	case "~":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.UNARY_INVERT)
		return nil
	case "typeof":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.UNARY_TYPEOF)
		return nil
	case "delete":
		switch t := n.Expr.(type) {
		case *symbol.MemberDot:
			if err := g.emitExpr(t.Obj); err != nil {
				return err
			}
			g.emitOperand(vm.DELETE_ATTR, int32(g.pool.Name(t.Name)), 0)
		case *symbol.MemberIndex:
			if err := g.emitExpr(t.Obj); err != nil {
				return err
			}
			if err := g.emitExpr(t.Index); err != nil {
				return err
			}
			g.emit(vm.DELETE_SUBSCR)
		default:
			// Deleting anything but a property is a no-op that still
			// evaluates to true (matches V8/SpiderMonkey for a plain
			// identifier operand).
		}
		g.emitOperand(vm.LOAD_CONST, int32(g.pool.Number(1)), 0)
		g.emit(vm.UNARY_NOT)
		g.emit(vm.UNARY_NOT)
		return nil
	case "void":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		g.emit(vm.POP_TOP)
		g.emit(vm.LOAD_UNDEFINED)
		return nil
	case "++", "--":
		if err := g.emitExpr(n.Expr); err != nil {
			return err
		}
		if n.Op == "++" {
			g.emit(vm.BINARY_INC)
		} else {
			g.emit(vm.BINARY_DEC)
		}
		g.emit(vm.DUP_TOP)
		return g.emitStoreTarget(n.Expr)
	default:
		return fmt.Errorf("codegen: unhandled unary operator %q", n.Op)
	}
}

var compareOps = map[string]vm.CompareOp{
	"<": vm.CmpLT, "<=": vm.CmpLE, "==": vm.CmpEQ, "!=": vm.CmpNE,
	">": vm.CmpGT, ">=": vm.CmpGE, "===": vm.CmpSEQ, "!==": vm.CmpSNE,
}

var binaryOpTable = map[string]vm.Op{
	"+": vm.BINARY_ADD, "-": vm.BINARY_SUBTRACT, "*": vm.BINARY_MULTIPLY,
	"/": vm.BINARY_TRUE_DIVIDE, "%": vm.BINARY_MODULO, "**": vm.BINARY_POWER,
	"<<": vm.BINARY_LSHIFT, ">>": vm.BINARY_RSHIFT, ">>>": vm.BINARY_URSHIFT,
	"&": vm.BINARY_AND, "|": vm.BINARY_OR, "^": vm.BINARY_XOR,
}

var compoundAssignOps = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"<<=": "<<", ">>=": ">>", ">>>=": ">>>", "&=": "&", "|=": "|", "^=": "^",
}

func (g *Generator) emitBinOp(n *symbol.BinOp) error {
	if n.Op == "=" {
		if err := g.emitExpr(n.RHS); err != nil {
			return err
		}
		g.emit(vm.DUP_TOP)
		return g.emitStoreTarget(n.LHS)
	}
	if base, ok := compoundAssignOps[n.Op]; ok {
		if err := g.emitExpr(n.LHS); err != nil {
			return err
		}
		if err := g.emitExpr(n.RHS); err != nil {
			return err
		}
		g.emit(binaryOpTable[base])
		g.emit(vm.DUP_TOP)
		return g.emitStoreTarget(n.LHS)
	}
	if cmp, ok := compareOps[n.Op]; ok {
		if err := g.emitExpr(n.LHS); err != nil {
			return err
		}
		if err := g.emitExpr(n.RHS); err != nil {
			return err
		}
		g.emitOperand(vm.COMPARE_OP, int32(cmp), 0)
		return nil
	}
	if n.Op == "&&" {
		if err := g.emitExpr(n.LHS); err != nil {
			return err
		}
		at := g.emitOperand(vm.JUMP_IF_FALSE_OR_POP, 0, 0)
		if err := g.emitExpr(n.RHS); err != nil {
			return err
		}
		g.patchA(at, int32(g.pc()))
		return nil
	}
	if n.Op == "||" {
		if err := g.emitExpr(n.LHS); err != nil {
			return err
		}
		at := g.emitOperand(vm.JUMP_IF_TRUE_OR_POP, 0, 0)
		if err := g.emitExpr(n.RHS); err != nil {
			return err
		}
		g.patchA(at, int32(g.pc()))
		return nil
	}
	if op, ok := binaryOpTable[n.Op]; ok {
		if err := g.emitExpr(n.LHS); err != nil {
			return err
		}
		if err := g.emitExpr(n.RHS); err != nil {
			return err
		}
		g.emit(op)
		return nil
	}
	return fmt.Errorf("codegen: unhandled binary operator %q", n.Op)
}

func (g *Generator) emitTriOp(n *symbol.TriOp) error {
	if err := g.emitExpr(n.Cond); err != nil {
		return err
	}
	jfalse := g.emitOperand(vm.POP_JUMP_IF_FALSE, 0, 0)
	if err := g.emitExpr(n.Then); err != nil {
		return err
	}
	jend := g.emitOperand(vm.JUMP_FORWARD, 0, 0)
	g.patchA(jfalse, int32(g.pc()))
	if err := g.emitExpr(n.Else); err != nil {
		return err
	}
	g.patchA(jend, int32(g.pc()))
	return nil
}

func (g *Generator) emitFunctionLiteral(n *symbol.Code) error {
	idx := g.newProto(n.Name, n.Params)
	g.pushLoopless()
	for _, p := range n.Params {
		g.emitOperand(vm.STORE_FAST, int32(g.pool.Name(p)), 0)
	}
	// Parameters arrive on the operand stack in declared order, so bind
	// them back-to-front.
	ctx := g.cur()
	reorderParamBindings(ctx, len(n.Params))
	if err := g.emitBlock(n.Body); err != nil {
		return err
	}
	g.emit(vm.LOAD_UNDEFINED)
	g.emit(vm.RET)
	g.finishProto(idx)
	g.emitOperand(vm.MAKE_FUNCTION, int32(idx), 0)
	return nil
}

// reorderParamBindings reverses the just-emitted run of n STORE_FAST
// instructions: CALL_FUNCTION (vm/interp.go) pushes the callee's
// arguments left-to-right and the callee pops them off the top of the
// stack, so the last-pushed (rightmost) argument is popped first. Popping
// into parameters in declared left-to-right order therefore requires the
// STORE_FAST run itself to run last-parameter-first.
func reorderParamBindings(ctx *fnCtx, n int) {
	if n < 2 {
		return
	}
	run := ctx.code[len(ctx.code)-n:]
	for i, j := 0, len(run)-1; i < j; i, j = i+1, j-1 {
		run[i], run[j] = run[j], run[i]
	}
}
