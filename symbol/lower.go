package symbol

import "github.com/xianjiezh/clibjs/ast"

// SplitChainedAssignment implements sym_id_t::parse (§4.2, §12): given
// the first declared name and its initializer expression, walks down a
// right-associative chain of `name = name = ... = expr` and peels each
// identifier-LHS level into its own Id, all sharing the trailing
// initializer. `var a = b = c = expr;` yields three Ids (a, b, c) each
// with Init == expr.
func SplitChainedAssignment(pos ast.Position, firstName string, init Sym) []*Id {
	names := []string{firstName}
	cur := init
	for {
		b, ok := cur.(*BinOp)
		if !ok || b.Op != "=" {
			break
		}
		name, ok := identifierName(b.LHS)
		if !ok {
			break
		}
		names = append(names, name)
		cur = b.RHS
	}

	ids := make([]*Id, len(names))
	for i, n := range names {
		ids[i] = &Id{Base: Base{Pos: pos}, Name: n, Init: cur}
	}
	return ids
}

func identifierName(s Sym) (string, bool) {
	switch v := s.(type) {
	case *VarId:
		return v.Name, true
	case *Var:
		if v.Literal == LitIdentifier {
			return v.Name, true
		}
	}
	return "", false
}
