// Package lexer is the out-of-scope lexical scanner collaborator (§1):
// it turns source text into the token stream rdparser consumes.
// Its own algorithm is not part of this specification's hard core, so it
// is a conventional hand-rolled scanner rather than a DFA built from a
// lexical specification.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xianjiezh/clibjs/ast"
	"github.com/xianjiezh/clibjs/internal/cerr"
)

var keywords = map[string]bool{
	"var": true, "let": true, "function": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"break": true, "continue": true, "true": true, "false": true,
	"null": true, "undefined": true, "typeof": true, "new": true,
	"this": true, "throw": true, "try": true, "catch": true,
	"finally": true, "in": true, "instanceof": true, "void": true,
	"delete": true,
}

// operators longest-match first.
var operators = []string{
	">>>=", "===", "!==", ">>>", "<<=", ">>=", "**=",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "<<", ">>", "**", "=>",
	"+", "-", "*", "/", "%", "=", "<", ">", "!", "~",
	"&", "|", "^", "(", ")", "{", "}", "[", "]",
	".", ",", ";", ":", "?",
}

// Lexer is a Scanner over a source string, consumed by rdparser one token
// at a time via Next.
type Lexer struct {
	src    string
	pos    int
	line   int
	col    int
	peeked *ast.Token
}

func New(src string) *Lexer {
	return &Lexer{src: src}
}

// Next returns the next token, or a TokenEnd token at end of input.
func (l *Lexer) Next() (ast.Token, error) {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		return t, nil
	}
	return l.scan()
}

func (l *Lexer) scan() (ast.Token, error) {
	l.skipTrivia()
	startLine, startCol, startOff := l.line, l.col, l.pos

	if l.pos >= len(l.src) {
		return ast.Token{Kind: ast.TokenEnd, Pos: ast.Position{Line: startLine, Col: startCol, Start: startOff, End: startOff}}, nil
	}

	r, size := utf8.DecodeRuneInString(l.src[l.pos:])

	switch {
	case r == '"' || r == '\'':
		return l.scanString(r, startLine, startCol, startOff)
	case unicode.IsDigit(r):
		return l.scanNumber(startLine, startCol, startOff)
	case isIdentStart(r):
		return l.scanIdent(startLine, startCol, startOff)
	default:
		for _, op := range operators {
			if strings.HasPrefix(l.src[l.pos:], op) {
				l.advance(len(op))
				return ast.Token{
					Kind: ast.TokenOperator,
					Pos:  ast.Position{Line: startLine, Col: startCol, Start: startOff, End: l.pos},
					Text: op,
				}, nil
			}
		}
		return ast.Token{}, cerr.New(cerr.Lexical, startLine, startCol, startOff, startOff+size, l.src,
			"unexpected character "+quoteRune(r))
	}
}

func (l *Lexer) scanString(quote rune, line, col, off int) (ast.Token, error) {
	l.advance(utf8.RuneLen(quote))
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return ast.Token{}, cerr.New(cerr.Lexical, line, col, off, l.pos, l.src, "unclosed string")
		}
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == quote {
			l.advance(size)
			break
		}
		if r == '\\' {
			l.advance(size)
			if l.pos >= len(l.src) {
				return ast.Token{}, cerr.New(cerr.Lexical, line, col, off, l.pos, l.src, "incomplete escape sequence")
			}
			er, esize := utf8.DecodeRuneInString(l.src[l.pos:])
			b.WriteRune(unescape(er))
			l.advance(esize)
			continue
		}
		b.WriteRune(r)
		l.advance(size)
	}
	return ast.Token{
		Kind: ast.TokenString,
		Pos:  ast.Position{Line: line, Col: col, Start: off, End: l.pos},
		Text: b.String(),
	}, nil
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return r
	}
}

func (l *Lexer) scanNumber(line, col, off int) (ast.Token, error) {
	start := l.pos
	for l.pos < len(l.src) && (isDigitByte(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.advanceByte()
	}
	return ast.Token{
		Kind: ast.TokenNumber,
		Pos:  ast.Position{Line: line, Col: col, Start: off, End: l.pos},
		Text: l.src[start:l.pos],
	}, nil
}

func (l *Lexer) scanIdent(line, col, off int) (ast.Token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.advance(size)
	}
	text := l.src[start:l.pos]
	kind := ast.TokenIdentifier
	if keywords[text] {
		kind = ast.TokenKeyword
	}
	return ast.Token{
		Kind: kind,
		Pos:  ast.Position{Line: line, Col: col, Start: off, End: l.pos},
		Text: text,
	}, nil
}

func (l *Lexer) skipTrivia() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		switch {
		case r == '\n':
			l.advance(size)
		case unicode.IsSpace(r):
			l.advance(size)
		case strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advanceByte()
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(l.src)
				return
			}
			l.advance(end + 4)
		default:
			return
		}
	}
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
		l.pos += size
		i += size
	}
}

func (l *Lexer) advanceByte() {
	l.advance(1)
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

func quoteRune(r rune) string {
	return string([]rune{'\'', r, '\''})
}
