// Package rdparser builds the AST the rest of the engine consumes.
//
// §1 scopes grammar-table construction out of this specification, and
// this repository has no PDA table for the language's grammar. This
// package therefore builds the ast.Node tree (satisfying the ring
// invariants of §3) with an ordinary hand-written recursive-descent
// parser, the way a parser is written when no table generator is in
// scope (see SPEC_FULL.md §14).
package rdparser

import (
	"fmt"

	"github.com/xianjiezh/clibjs/ast"
	"github.com/xianjiezh/clibjs/internal/cerr"
	"github.com/xianjiezh/clibjs/internal/lexer"
)

// Parser consumes a token stream and builds an ast.Node tree rooted at a
// CollProgram collection.
type Parser struct {
	lex  *lexer.Lexer
	src  string
	tok  ast.Token
	prev ast.Token
}

func New(src string) *Parser {
	p := &Parser{lex: lexer.New(src), src: src}
	p.advance()
	return p
}

// Parse returns the program's AST root, or the first syntax error
// encountered.
func Parse(src string) (root *ast.Node, err error) {
	p := New(src)
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(parseError)
			if !ok {
				panic(r)
			}
			err = pe.err
		}
	}()
	root = p.parseProgram()
	return root, nil
}

type parseError struct{ err error }

func (p *Parser) fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(parseError{cerr.New(cerr.Syntactic, p.tok.Pos.Line, p.tok.Pos.Col, p.tok.Pos.Start, p.tok.Pos.End, p.src, msg)})
}

func (p *Parser) advance() {
	p.prev = p.tok
	t, err := p.lex.Next()
	if err != nil {
		panic(parseError{err})
	}
	p.tok = t
}

func (p *Parser) at(kind ast.TokenKind, text string) bool {
	return p.tok.Kind == kind && (text == "" || p.tok.Text == text)
}

func (p *Parser) atOp(text string) bool      { return p.at(ast.TokenOperator, text) }
func (p *Parser) atKeyword(text string) bool { return p.at(ast.TokenKeyword, text) }

func (p *Parser) expectOp(text string) ast.Token {
	if !p.atOp(text) {
		p.fail("expected %q, got %q", text, p.tok.Text)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *Parser) expectKeyword(text string) ast.Token {
	if !p.atKeyword(text) {
		p.fail("expected keyword %q, got %q", text, p.tok.Text)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *Parser) expectIdent() ast.Token {
	if p.tok.Kind != ast.TokenIdentifier {
		p.fail("expected identifier, got %q", p.tok.Text)
	}
	t := p.tok
	p.advance()
	return t
}

// optSemi consumes an optional `;` terminator (automatic semicolon
// insertion is not implemented; a following `}` or end-of-input also
// terminates a statement, matching the common subset SPEC_FULL names).
func (p *Parser) optSemi() {
	if p.atOp(";") {
		p.advance()
	}
}

func leaf(tok ast.Token) *ast.Node { return ast.NewFromToken(tok) }

func coll(c ast.Coll, pos ast.Position, children ...*ast.Node) *ast.Node {
	n := ast.NewCollection(c)
	n.Pos = pos
	for _, ch := range children {
		if ch != nil {
			ast.AppendChild(n, ch)
		}
	}
	return n
}

func (p *Parser) parseProgram() *ast.Node {
	start := p.tok.Pos
	root := ast.NewCollection(ast.CollProgram)
	root.Pos = start
	elems := ast.NewCollection(ast.CollSourceElements)
	ast.AppendChild(root, elems)
	for p.tok.Kind != ast.TokenEnd {
		ast.AppendChild(elems, p.parseStatement())
	}
	return root
}

func (p *Parser) parseStatement() *ast.Node {
	switch {
	case p.atOp("{"):
		return p.parseBlock()
	case p.atKeyword("var") || p.atKeyword("let"):
		return p.parseVarStatement()
	case p.atKeyword("if"):
		return p.parseIfStatement()
	case p.atKeyword("for"):
		return p.parseForStatement()
	case p.atKeyword("while"):
		return p.parseWhileStatement()
	case p.atKeyword("return"):
		return p.parseReturnStatement()
	case p.atKeyword("break"):
		return p.parseBreakStatement()
	case p.atKeyword("continue"):
		return p.parseContinueStatement()
	case p.atKeyword("function"):
		return p.parseFunctionDeclaration()
	case p.atKeyword("throw"):
		return p.parseThrowStatement()
	case p.atKeyword("try"):
		return p.parseTryStatement()
	case p.atOp(";"):
		start := p.tok.Pos
		p.advance()
		return coll(ast.CollEmptyStatement, start)
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseBlock() *ast.Node {
	start := p.expectOp("{").Pos
	n := ast.NewCollection(ast.CollBlock)
	n.Pos = start
	for !p.atOp("}") {
		if p.tok.Kind == ast.TokenEnd {
			p.fail("unclosed block")
		}
		ast.AppendChild(n, p.parseStatement())
	}
	p.advance()
	return n
}

func (p *Parser) parseVarStatement() *ast.Node {
	start := p.tok.Pos
	p.advance() // var|let
	n := coll(ast.CollVariableStatement, start)
	list := ast.NewCollection(ast.CollVariableDeclarationList)
	ast.AppendChild(n, list)
	for {
		ast.AppendChild(list, p.parseVariableDeclaration())
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	p.optSemi()
	return n
}

func (p *Parser) parseVariableDeclaration() *ast.Node {
	name := p.expectIdent()
	decl := coll(ast.CollVariableDeclaration, name.Pos, leaf(name))
	if p.atOp("=") {
		p.advance()
		ast.AppendChild(decl, p.parseAssignmentExpression())
	}
	return decl
}

func (p *Parser) parseIfStatement() *ast.Node {
	start := p.expectKeyword("if").Pos
	p.expectOp("(")
	cond := p.parseExpression()
	p.expectOp(")")
	then := p.parseStatement()
	n := coll(ast.CollIfStatement, start, cond, then)
	if p.atKeyword("else") {
		p.advance()
		ast.AppendChild(n, p.parseStatement())
	}
	return n
}

func (p *Parser) parseWhileStatement() *ast.Node {
	start := p.expectKeyword("while").Pos
	p.expectOp("(")
	cond := p.parseExpression()
	p.expectOp(")")
	body := p.parseStatement()
	n := coll(ast.CollIterationStatement, start, cond, body)
	return n
}

func (p *Parser) parseForStatement() *ast.Node {
	start := p.expectKeyword("for").Pos
	p.expectOp("(")
	n := ast.NewCollection(ast.CollForStatement)
	n.Pos = start

	if p.atOp(";") {
		ast.AppendChild(n, coll(ast.CollEmptyStatement, p.tok.Pos))
	} else if p.atKeyword("var") || p.atKeyword("let") {
		n.KeywordCode = 1
		p.advance()
		list := ast.NewCollection(ast.CollVariableDeclarationList)
		for {
			ast.AppendChild(list, p.parseVariableDeclaration())
			if p.atOp(",") {
				p.advance()
				continue
			}
			break
		}
		ast.AppendChild(n, list)
	} else {
		ast.AppendChild(n, p.parseExpression())
	}
	p.expectOp(";")

	if p.atOp(";") {
		ast.AppendChild(n, coll(ast.CollEmptyStatement, p.tok.Pos))
	} else {
		ast.AppendChild(n, p.parseExpression())
	}
	p.expectOp(";")

	if p.atOp(")") {
		ast.AppendChild(n, coll(ast.CollEmptyStatement, p.tok.Pos))
	} else {
		ast.AppendChild(n, p.parseExpression())
	}
	p.expectOp(")")

	ast.AppendChild(n, p.parseStatement())
	return n
}

func (p *Parser) parseReturnStatement() *ast.Node {
	start := p.expectKeyword("return").Pos
	n := coll(ast.CollReturnStatement, start)
	if !p.atOp(";") && !p.atOp("}") && p.tok.Kind != ast.TokenEnd {
		ast.AppendChild(n, p.parseExpression())
	}
	p.optSemi()
	return n
}

func (p *Parser) parseBreakStatement() *ast.Node {
	start := p.expectKeyword("break").Pos
	n := coll(ast.CollBreakStatement, start)
	p.optSemi()
	return n
}

func (p *Parser) parseContinueStatement() *ast.Node {
	start := p.expectKeyword("continue").Pos
	n := coll(ast.CollContinueStatement, start)
	p.optSemi()
	return n
}

func (p *Parser) parseThrowStatement() *ast.Node {
	start := p.expectKeyword("throw").Pos
	n := coll(ast.CollThrowStatement, start, p.parseExpression())
	p.optSemi()
	return n
}

func (p *Parser) parseTryStatement() *ast.Node {
	start := p.expectKeyword("try").Pos
	body := p.parseBlock()
	n := coll(ast.CollTryStatement, start, body)
	if p.atKeyword("catch") {
		catchPos := p.tok.Pos
		p.advance()
		catch := ast.NewCollection(ast.CollCatchProduction)
		catch.Pos = catchPos
		if p.atOp("(") {
			p.advance()
			ast.AppendChild(catch, leaf(p.expectIdent()))
			p.expectOp(")")
		}
		ast.AppendChild(catch, p.parseBlock())
		ast.AppendChild(n, catch)
	}
	if p.atKeyword("finally") {
		finPos := p.tok.Pos
		p.advance()
		fin := coll(ast.CollFinallyProduction, finPos, p.parseBlock())
		ast.AppendChild(n, fin)
	}
	return n
}

func (p *Parser) parseFunctionDeclaration() *ast.Node {
	start := p.expectKeyword("function").Pos
	name := p.expectIdent()
	n := coll(ast.CollFunctionDeclaration, start, leaf(name))
	p.expectOp("(")
	params := ast.NewCollection(ast.CollFormalParameterList)
	for !p.atOp(")") {
		ast.AppendChild(params, leaf(p.expectIdent()))
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectOp(")")
	ast.AppendChild(n, params)
	body := p.parseBlock()
	body.Coll = ast.CollFunctionBody
	ast.AppendChild(n, body)
	return n
}

func (p *Parser) parseExpressionStatement() *ast.Node {
	start := p.tok.Pos
	expr := p.parseExpression()
	p.optSemi()
	return coll(ast.CollExpressionStatement, start, expr)
}

// --- expressions, precedence-climbing ---

func (p *Parser) parseExpression() *ast.Node {
	start := p.tok.Pos
	first := p.parseAssignmentExpression()
	if !p.atOp(",") {
		return first
	}
	seq := coll(ast.CollExpressionSequence, start, first)
	for p.atOp(",") {
		p.advance()
		ast.AppendChild(seq, p.parseAssignmentExpression())
	}
	return seq
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, ">>>=": true, "&=": true, "|=": true, "^=": true,
}

func (p *Parser) parseAssignmentExpression() *ast.Node {
	lhs := p.parseConditionalExpression()
	if p.tok.Kind == ast.TokenOperator && assignOps[p.tok.Text] {
		op := p.tok
		p.advance()
		rhs := p.parseAssignmentExpression()
		return coll(ast.CollSingleExpression, lhs.Pos, lhs, leaf(op), rhs)
	}
	return lhs
}

func (p *Parser) parseConditionalExpression() *ast.Node {
	cond := p.parseBinaryExpression(0)
	if p.atOp("?") {
		p.advance()
		then := p.parseAssignmentExpression()
		p.expectOp(":")
		els := p.parseAssignmentExpression()
		return coll(ast.CollSingleExpression, cond.Pos, cond, then, els)
	}
	return cond
}

// precedence levels, low to high.
var precedence = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!=", "===", "!=="},
	{"<", ">", "<=", ">=", "instanceof", "in"},
	{"<<", ">>", ">>>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func opAt(level int, text string) bool {
	for _, t := range precedence[level] {
		if t == text {
			return true
		}
	}
	return false
}

func (p *Parser) parseBinaryExpression(level int) *ast.Node {
	if level >= len(precedence) {
		return p.parseUnaryExpression()
	}
	lhs := p.parseBinaryExpression(level + 1)
	for (p.tok.Kind == ast.TokenOperator || p.tok.Kind == ast.TokenKeyword) && opAt(level, p.tok.Text) {
		op := p.tok
		p.advance()
		rhs := p.parseBinaryExpression(level + 1)
		lhs = coll(ast.CollSingleExpression, lhs.Pos, lhs, leaf(op), rhs)
	}
	return lhs
}

var unaryOps = map[string]bool{
	"+": true, "-": true, "!": true, "~": true, "++": true, "--": true,
}

func (p *Parser) parseUnaryExpression() *ast.Node {
	if p.tok.Kind == ast.TokenOperator && unaryOps[p.tok.Text] {
		op := p.tok
		p.advance()
		operand := p.parseUnaryExpression()
		return coll(ast.CollSingleExpression, op.Pos, leaf(op), operand)
	}
	if p.atKeyword("typeof") || p.atKeyword("void") || p.atKeyword("delete") {
		op := p.tok
		p.advance()
		operand := p.parseUnaryExpression()
		return coll(ast.CollSingleExpression, op.Pos, leaf(op), operand)
	}
	return p.parsePostfixExpression()
}

func (p *Parser) parsePostfixExpression() *ast.Node {
	expr := p.parseCallExpression()
	if p.atOp("++") || p.atOp("--") {
		op := p.tok
		p.advance()
		return coll(ast.CollSingleExpression, expr.Pos, expr, leaf(op))
	}
	return expr
}

func (p *Parser) parseCallExpression() *ast.Node {
	expr := p.parsePrimaryExpression()
	for {
		switch {
		case p.atOp("."):
			p.advance()
			name := p.expectIdent()
			nameExpr := coll(ast.CollIdentifierExpression, name.Pos, leaf(name))
			expr = coll(ast.CollSingleExpression, expr.Pos, expr, nameExpr)
		case p.atOp("["):
			p.advance()
			idx := p.parseExpression()
			p.expectOp("]")
			expr = coll(ast.CollSingleExpression, expr.Pos, expr, idx)
		case p.atOp("("):
			args := p.parseArguments()
			expr = coll(ast.CollSingleExpression, expr.Pos, expr, args)
		default:
			return expr
		}
	}
}

func (p *Parser) parseArguments() *ast.Node {
	start := p.expectOp("(").Pos
	n := ast.NewCollection(ast.CollArguments)
	n.Pos = start
	if !p.atOp(")") {
		list := ast.NewCollection(ast.CollArgumentList)
		for {
			ast.AppendChild(list, p.parseAssignmentExpression())
			if p.atOp(",") {
				p.advance()
				continue
			}
			break
		}
		ast.AppendChild(n, list)
	}
	p.expectOp(")")
	return n
}

func (p *Parser) parsePrimaryExpression() *ast.Node {
	switch {
	case p.tok.Kind == ast.TokenIdentifier:
		t := p.tok
		p.advance()
		return leaf(t)
	case p.tok.Kind == ast.TokenNumber:
		t := p.tok
		p.advance()
		return leaf(t)
	case p.tok.Kind == ast.TokenString:
		t := p.tok
		p.advance()
		return leaf(t)
	case p.atKeyword("true") || p.atKeyword("false") || p.atKeyword("null") ||
		p.atKeyword("undefined") || p.atKeyword("this"):
		t := p.tok
		p.advance()
		return leaf(t)
	case p.atKeyword("function"):
		return p.parseFunctionExpression()
	case p.atOp("("):
		p.advance()
		inner := p.parseExpression()
		p.expectOp(")")
		return inner
	case p.atOp("["):
		return p.parseArrayLiteral()
	case p.atOp("{"):
		return p.parseObjectLiteral()
	default:
		p.fail("unexpected token %q", p.tok.Text)
		return nil
	}
}

func (p *Parser) parseFunctionExpression() *ast.Node {
	start := p.expectKeyword("function").Pos
	n := ast.NewCollection(ast.CollFunctionDeclaration)
	n.Pos = start
	if p.tok.Kind == ast.TokenIdentifier {
		ast.AppendChild(n, leaf(p.tok))
		p.advance()
	} else {
		ast.AppendChild(n, coll(ast.CollNone, start))
	}
	p.expectOp("(")
	params := ast.NewCollection(ast.CollFormalParameterList)
	for !p.atOp(")") {
		ast.AppendChild(params, leaf(p.expectIdent()))
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	p.expectOp(")")
	ast.AppendChild(n, params)
	body := p.parseBlock()
	body.Coll = ast.CollFunctionBody
	ast.AppendChild(n, body)
	return n
}

func (p *Parser) parseArrayLiteral() *ast.Node {
	start := p.expectOp("[").Pos
	n := ast.NewCollection(ast.CollArrayLiteral)
	n.Pos = start
	if !p.atOp("]") {
		list := ast.NewCollection(ast.CollElementList)
		for {
			list2 := p.parseAssignmentExpression()
			ast.AppendChild(list, list2)
			if p.atOp(",") {
				p.advance()
				continue
			}
			break
		}
		ast.AppendChild(n, list)
	}
	p.expectOp("]")
	return n
}

func (p *Parser) parseObjectLiteral() *ast.Node {
	start := p.expectOp("{").Pos
	n := ast.NewCollection(ast.CollObjectLiteral)
	n.Pos = start
	if !p.atOp("}") {
		assigns := ast.NewCollection(ast.CollPropertyAssignments)
		for {
			var key ast.Token
			if p.tok.Kind == ast.TokenIdentifier || p.tok.Kind == ast.TokenKeyword {
				key = p.tok
				p.advance()
			} else if p.tok.Kind == ast.TokenString || p.tok.Kind == ast.TokenNumber {
				key = p.tok
				p.advance()
			} else {
				p.fail("expected property key, got %q", p.tok.Text)
			}
			p.expectOp(":")
			val := p.parseAssignmentExpression()
			pa := coll(ast.CollPropertyAssignment, key.Pos, leaf(key), val)
			ast.AppendChild(assigns, pa)
			if p.atOp(",") {
				p.advance()
				continue
			}
			break
		}
		ast.AppendChild(n, assigns)
	}
	p.expectOp("}")
	return n
}
