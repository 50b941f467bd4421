// Package codegen lowers the AST into the typed symbol tree of package
// symbol (C3) and emits bytecode from it (C4): Lowerer.LowerProgram walks
// an ast.Node tree recursively and classifies each collection into the
// closed symbol.Sym family (§4.2's per-collection rewrite rules, "tagged
// sum matched in the emitter" per the design notes, §9); Compile then
// walks the Sym tree and produces vm.Instr sequences plus a
// constpool.Pool (§4.2, §6).
package codegen

import (
	"fmt"
	"strconv"

	"github.com/xianjiezh/clibjs/ast"
	"github.com/xianjiezh/clibjs/internal/cerr"
	"github.com/xianjiezh/clibjs/symbol"
)

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// scope tracks the names declared within one function body (var/let
// declarations and parameters), function-scoped per real JS semantics
// rather than block-scoped, since this repo does not implement block
// scoping.
type scope struct {
	declared map[string]bool
	isTop    bool
}

func newScope(isTop bool) *scope {
	return &scope{declared: map[string]bool{}, isTop: isTop}
}

// Lowerer carries the scope stack across the single lowering pass.
type Lowerer struct {
	src    string
	scopes []*scope
}

func NewLowerer(src string) *Lowerer {
	l := &Lowerer{src: src}
	l.scopes = []*scope{newScope(true)}
	return l
}

func (l *Lowerer) fail(n *ast.Node, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return cerr.New(cerr.SemanticCompile, n.Pos.Line, n.Pos.Col, n.Pos.Start, n.Pos.End, l.src, msg)
}

func (l *Lowerer) declare(name string) {
	l.scopes[len(l.scopes)-1].declared[name] = true
}

// resolve classifies a bare identifier per §4.2/§12: a name bound in the
// current function's scope resolves fast; one bound in an enclosing
// (non-top) function scope resolves via closure; anything else —
// including every top-level binding — falls back to the unresolved Var
// form, which codegen emits as LOAD_NAME/STORE_NAME (a safe superset:
// that opcode's local->closure->global search finds any of the above).
func (l *Lowerer) resolve(pos ast.Position, name string) symbol.Sym {
	top := len(l.scopes) - 1
	for i := top; i >= 0; i-- {
		if !l.scopes[i].declared[name] {
			continue
		}
		if l.scopes[i].isTop {
			break
		}
		kind := symbol.ResolveDeref
		if i == top {
			kind = symbol.ResolveFast
		}
		return &symbol.VarId{Name: name, Kind: kind}
	}
	return &symbol.Var{Literal: symbol.LitIdentifier, Name: name}
}

// LowerProgram lowers the CollProgram root into a top-level Block.
func (l *Lowerer) LowerProgram(root *ast.Node) (*symbol.Block, error) {
	elems := root.Child // CollSourceElements
	blk := &symbol.Block{}
	blk.Pos = root.Pos
	if elems == nil {
		return blk, nil
	}
	for _, stmt := range elems.Children() {
		s, err := l.lowerStatement(stmt)
		if err != nil {
			return nil, err
		}
		if s != nil {
			blk.Stmts = append(blk.Stmts, s)
		}
	}
	return blk, nil
}

func (l *Lowerer) lowerBlock(n *ast.Node) (*symbol.Block, error) {
	blk := &symbol.Block{}
	blk.Pos = n.Pos
	for _, stmt := range n.Children() {
		s, err := l.lowerStatement(stmt)
		if err != nil {
			return nil, err
		}
		if s != nil {
			blk.Stmts = append(blk.Stmts, s)
		}
	}
	return blk, nil
}

func (l *Lowerer) lowerStatement(n *ast.Node) (symbol.Sym, error) {
	switch n.Coll {
	case ast.CollEmptyStatement:
		return nil, nil
	case ast.CollBlock:
		return l.lowerBlock(n)
	case ast.CollVariableStatement:
		return l.lowerVariableStatement(n)
	case ast.CollExpressionStatement:
		expr, err := l.lowerExpr(n.Child)
		if err != nil {
			return nil, err
		}
		return &symbol.StmtExp{Base: symbol.New(n.Pos), Expr: expr}, nil
	case ast.CollIfStatement:
		return l.lowerIf(n)
	case ast.CollIterationStatement:
		return l.lowerWhile(n)
	case ast.CollForStatement:
		return l.lowerFor(n)
	case ast.CollReturnStatement:
		var val symbol.Sym
		if n.Child != nil {
			v, err := l.lowerExpr(n.Child)
			if err != nil {
				return nil, err
			}
			val = v
		}
		return &symbol.Return{Base: symbol.New(n.Pos), Value: val}, nil
	case ast.CollBreakStatement:
		return &symbol.Break{Base: symbol.New(n.Pos)}, nil
	case ast.CollContinueStatement:
		return &symbol.Continue{Base: symbol.New(n.Pos)}, nil
	case ast.CollThrowStatement:
		v, err := l.lowerExpr(n.Child)
		if err != nil {
			return nil, err
		}
		return &symbol.Throw{Base: symbol.New(n.Pos), Value: v}, nil
	case ast.CollTryStatement:
		return l.lowerTry(n)
	case ast.CollFunctionDeclaration:
		return l.lowerFunctionDeclaration(n)
	default:
		return nil, l.fail(n, "unsupported statement form")
	}
}

func (l *Lowerer) lowerVariableStatement(n *ast.Node) (symbol.Sym, error) {
	list := n.Child // CollVariableDeclarationList
	stmt := &symbol.StmtVar{Base: symbol.New(n.Pos)}
	for _, decl := range list.Children() {
		children := decl.Children()
		name := children[0].Str
		var init symbol.Sym
		if len(children) > 1 {
			v, err := l.lowerExpr(children[1])
			if err != nil {
				return nil, err
			}
			init = v
		}
		if bin, ok := init.(*symbol.BinOp); ok && bin.Op == "=" {
			ids := symbol.SplitChainedAssignment(decl.Pos, name, init)
			for _, id := range ids {
				l.declare(id.Name)
			}
			stmt.Vars = append(stmt.Vars, ids...)
			continue
		}
		l.declare(name)
		stmt.Vars = append(stmt.Vars, &symbol.Id{Base: symbol.New(decl.Pos), Name: name, Init: init})
	}
	return stmt, nil
}

func (l *Lowerer) lowerIf(n *ast.Node) (symbol.Sym, error) {
	children := n.Children()
	cond, err := l.lowerExpr(children[0])
	if err != nil {
		return nil, err
	}
	then, err := l.lowerStatement(children[1])
	if err != nil {
		return nil, err
	}
	var els symbol.Sym
	if len(children) > 2 {
		els, err = l.lowerStatement(children[2])
		if err != nil {
			return nil, err
		}
	}
	return &symbol.If{Base: symbol.New(n.Pos), Cond: cond, Then: then, Else: els}, nil
}

func (l *Lowerer) lowerWhile(n *ast.Node) (symbol.Sym, error) {
	children := n.Children()
	cond, err := l.lowerExpr(children[0])
	if err != nil {
		return nil, err
	}
	body, err := l.lowerStatement(children[1])
	if err != nil {
		return nil, err
	}
	return &symbol.For{Base: symbol.New(n.Pos), Cond: cond, Body: body}, nil
}

func (l *Lowerer) lowerFor(n *ast.Node) (symbol.Sym, error) {
	children := n.Children()
	var init symbol.Sym
	var err error
	if n.KeywordCode == 1 {
		// var-initialized for-loop: children[0] is a declaration list.
		stmt := &symbol.StmtVar{Base: symbol.New(children[0].Pos)}
		for _, decl := range children[0].Children() {
			dc := decl.Children()
			name := dc[0].Str
			var iv symbol.Sym
			if len(dc) > 1 {
				iv, err = l.lowerExpr(dc[1])
				if err != nil {
					return nil, err
				}
			}
			l.declare(name)
			stmt.Vars = append(stmt.Vars, &symbol.Id{Base: symbol.New(decl.Pos), Name: name, Init: iv})
		}
		init = stmt
	} else if children[0].Coll != ast.CollEmptyStatement {
		init, err = l.lowerExpr(children[0])
		if err != nil {
			return nil, err
		}
	}

	var cond, update symbol.Sym
	if children[1].Coll != ast.CollEmptyStatement {
		cond, err = l.lowerExpr(children[1])
		if err != nil {
			return nil, err
		}
	}
	if children[2].Coll != ast.CollEmptyStatement {
		update, err = l.lowerExpr(children[2])
		if err != nil {
			return nil, err
		}
	}
	body, err := l.lowerStatement(children[3])
	if err != nil {
		return nil, err
	}
	return &symbol.For{Base: symbol.New(n.Pos), Init: init, Cond: cond, Update: update, Body: body}, nil
}

func (l *Lowerer) lowerTry(n *ast.Node) (symbol.Sym, error) {
	children := n.Children()
	body, err := l.lowerBlock(children[0])
	if err != nil {
		return nil, err
	}
	t := &symbol.Try{Base: symbol.New(n.Pos), Body: body}
	for _, c := range children[1:] {
		switch c.Coll {
		case ast.CollCatchProduction:
			t.HasCatch = true
			cc := c.Children()
			var blockNode *ast.Node
			if len(cc) == 2 {
				t.CatchParam = cc[0].Str
				blockNode = cc[1]
			} else {
				blockNode = cc[0]
			}
			cb, err := l.lowerBlock(blockNode)
			if err != nil {
				return nil, err
			}
			t.CatchBody = cb
		case ast.CollFinallyProduction:
			t.HasFinally = true
			fb, err := l.lowerBlock(c.Child)
			if err != nil {
				return nil, err
			}
			t.FinallyBody = fb
		}
	}
	return t, nil
}

// isAnonymousMarker reports whether n is the placeholder parsePrimaryExpression/
// parseFunctionExpression inserts in place of a function expression's
// optional name (an empty CollNone collection, never produced for a real
// identifier leaf since leaves never carry a Coll tag at all).
func isAnonymousMarker(n *ast.Node) bool {
	return n.Kind == ast.KindCollection && n.Coll == ast.CollNone
}

func (l *Lowerer) lowerFunctionDeclaration(n *ast.Node) (symbol.Sym, error) {
	children := n.Children()
	nameNode, params, bodyNode := children[0], children[1], children[2]
	anon := isAnonymousMarker(nameNode)
	name := ""
	if !anon {
		name = nameNode.Str
		l.declare(name)
	}
	code, err := l.lowerFunctionCode(n.Pos, name, params, bodyNode)
	if err != nil {
		return nil, err
	}
	if anon {
		return code, nil
	}
	return &symbol.FuncDecl{Base: symbol.New(n.Pos), Name: name, Fn: code}, nil
}

func (l *Lowerer) lowerFunctionCode(pos ast.Position, name string, params, body *ast.Node) (*symbol.Code, error) {
	fnScope := newScope(false)
	var paramNames []string
	for _, p := range params.Children() {
		paramNames = append(paramNames, p.Str)
		fnScope.declared[p.Str] = true
	}
	l.scopes = append(l.scopes, fnScope)
	blk, err := l.lowerBlock(body)
	l.scopes = l.scopes[:len(l.scopes)-1]
	if err != nil {
		return nil, err
	}
	return &symbol.Code{Base: symbol.New(pos), Name: name, Params: paramNames, Body: blk}, nil
}

// --- expressions ---

func (l *Lowerer) lowerExpr(n *ast.Node) (symbol.Sym, error) {
	switch n.Kind {
	case ast.KindCollection:
		return l.lowerExprColl(n)
	case ast.KindLiteral:
		// Identifier leaf (token kind Identifier -> ast.KindLiteral, §ast/node.go).
		return l.resolve(n.Pos, n.Str), nil
	case ast.KindNumber:
		num, err := parseNumber(n.Str)
		if err != nil {
			return nil, l.fail(n, "invalid number literal %q", n.Str)
		}
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitNumber, Num: num}, nil
	case ast.KindString:
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitString, Str: n.Str}, nil
	case ast.KindKeyword:
		return l.lowerKeywordPrimary(n)
	default:
		return nil, l.fail(n, "unsupported expression leaf")
	}
}

func (l *Lowerer) lowerKeywordPrimary(n *ast.Node) (symbol.Sym, error) {
	switch n.Str {
	case "true":
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitBool, Num: 1}, nil
	case "false":
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitBool, Num: 0}, nil
	case "null":
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitNull}, nil
	case "undefined":
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitUndefined}, nil
	case "this":
		return &symbol.Var{Base: symbol.New(n.Pos), Literal: symbol.LitIdentifier, Name: "this"}, nil
	default:
		return nil, l.fail(n, "unsupported keyword primary %q", n.Str)
	}
}

func (l *Lowerer) lowerExprColl(n *ast.Node) (symbol.Sym, error) {
	switch n.Coll {
	case ast.CollExpressionSequence:
		seq := &symbol.ExpSeq{Base: symbol.New(n.Pos)}
		for _, c := range n.Children() {
			e, err := l.lowerExpr(c)
			if err != nil {
				return nil, err
			}
			seq.Exprs = append(seq.Exprs, e)
		}
		return seq, nil
	case ast.CollArrayLiteral:
		return l.lowerArray(n)
	case ast.CollObjectLiteral:
		return l.lowerObject(n)
	case ast.CollFunctionDeclaration:
		children := n.Children()
		name := ""
		if !isAnonymousMarker(children[0]) {
			name = children[0].Str
		}
		return l.lowerFunctionCode(n.Pos, name, children[1], children[2])
	case ast.CollSingleExpression:
		return l.lowerSingleExpression(n)
	default:
		return nil, l.fail(n, "unsupported expression collection")
	}
}

func (l *Lowerer) lowerArray(n *ast.Node) (symbol.Sym, error) {
	arr := &symbol.Array{Base: symbol.New(n.Pos)}
	if n.Child == nil {
		return arr, nil
	}
	for _, el := range n.Child.Children() {
		v, err := l.lowerExpr(el)
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, v)
	}
	return arr, nil
}

func (l *Lowerer) lowerObject(n *ast.Node) (symbol.Sym, error) {
	obj := &symbol.Object{Base: symbol.New(n.Pos)}
	if n.Child == nil {
		return obj, nil
	}
	for _, pa := range n.Child.Children() {
		children := pa.Children()
		key := children[0].Str
		val, err := l.lowerExpr(children[1])
		if err != nil {
			return nil, err
		}
		obj.Pairs = append(obj.Pairs, &symbol.ObjectPair{Base: symbol.New(pa.Pos), Key: key, Value: val})
	}
	return obj, nil
}

// lowerSingleExpression dispatches the shapes parsed into
// CollSingleExpression by arity and operand kind: assignment/binary
// (operand, op-leaf, operand), ternary (cond, then, else), unary-prefix
// (op-leaf, operand), postfix (operand, op-leaf), member-dot (obj,
// CollIdentifierExpression wrapping the name leaf), member-index (obj,
// index-expr), and call
// (callee, CollArguments).
func (l *Lowerer) lowerSingleExpression(n *ast.Node) (symbol.Sym, error) {
	children := n.Children()
	switch len(children) {
	case 2:
		a, b := children[0], children[1]
		if a.Kind == ast.KindOperator || a.Kind == ast.KindKeyword {
			operand, err := l.lowerExpr(b)
			if err != nil {
				return nil, err
			}
			return &symbol.UnOp{Base: symbol.New(n.Pos), Op: a.Str, Expr: operand}, nil
		}
		if b.Kind == ast.KindOperator {
			operand, err := l.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			return &symbol.SinOp{Base: symbol.New(n.Pos), Op: b.Str, Expr: operand}, nil
		}
		if b.Kind == ast.KindCollection && b.Coll == ast.CollIdentifierExpression {
			obj, err := l.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			return &symbol.MemberDot{Base: symbol.New(n.Pos), Obj: obj, Name: b.Child.Str}, nil
		}
		if b.Coll == ast.CollArguments {
			callee, err := l.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			args, err := l.lowerArguments(b)
			if err != nil {
				return nil, err
			}
			if md, ok := callee.(*symbol.MemberDot); ok {
				return &symbol.CallMethod{Base: symbol.New(n.Pos), Recv: md.Obj, Name: md.Name, Args: args}, nil
			}
			return &symbol.CallFunction{Base: symbol.New(n.Pos), Callee: callee, Args: args}, nil
		}
		// member-index: [obj, indexExpr]
		obj, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		idx, err := l.lowerExpr(b)
		if err != nil {
			return nil, err
		}
		return &symbol.MemberIndex{Base: symbol.New(n.Pos), Obj: obj, Index: idx}, nil
	case 3:
		a, b, c := children[0], children[1], children[2]
		if b.Kind == ast.KindOperator {
			lhs, err := l.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			rhs, err := l.lowerExpr(c)
			if err != nil {
				return nil, err
			}
			return &symbol.BinOp{Base: symbol.New(n.Pos), Op: b.Str, LHS: lhs, RHS: rhs}, nil
		}
		cond, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		then, err := l.lowerExpr(b)
		if err != nil {
			return nil, err
		}
		els, err := l.lowerExpr(c)
		if err != nil {
			return nil, err
		}
		return &symbol.TriOp{Base: symbol.New(n.Pos), Cond: cond, Then: then, Else: els}, nil
	default:
		return nil, l.fail(n, "malformed single expression (%d operands)", len(children))
	}
}

func (l *Lowerer) lowerArguments(n *ast.Node) ([]symbol.Sym, error) {
	if n.Child == nil {
		return nil, nil
	}
	var out []symbol.Sym
	for _, a := range n.Child.Children() {
		v, err := l.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
