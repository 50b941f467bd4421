package constpool

import "testing"

func TestNameStability(t *testing.T) {
	p := New()
	a := p.Name("foo")
	b := p.Name("bar")
	c := p.Name("foo")
	if a != c {
		t.Fatalf("inserting the same name twice returned different indices: %d vs %d", a, c)
	}
	if a == b {
		t.Fatalf("distinct names got the same index")
	}
	if p.NameAt(a) != "foo" || p.NameAt(b) != "bar" {
		t.Fatalf("NameAt did not round-trip")
	}
}

func TestLiteralStability(t *testing.T) {
	p := New()
	s1 := p.String("hello")
	s2 := p.String("hello")
	if s1 != s2 {
		t.Fatalf("inserting the same string twice returned different indices: %d vs %d", s1, s2)
	}
	n1 := p.Number(3.5)
	n2 := p.Number(3.5)
	if n1 != n2 {
		t.Fatalf("inserting the same number twice returned different indices: %d vs %d", n1, n2)
	}
}

func TestNameAndLiteralIndicesAreDisjointSpaces(t *testing.T) {
	p := New()
	nameIdx := p.Name("x")
	litIdx := p.String("x")
	if nameIdx != 0 || litIdx != 0 {
		t.Fatalf("expected both index spaces to start at 0 independently, got name=%d literal=%d", nameIdx, litIdx)
	}
	if p.NameCount() != 1 || p.LiteralCount() != 1 {
		t.Fatalf("expected one entry in each space, got names=%d literals=%d", p.NameCount(), p.LiteralCount())
	}
}

func TestLiteralAtDistinguishesStringFromNumber(t *testing.T) {
	p := New()
	si := p.String("3")
	ni := p.Number(3)
	sl := p.LiteralAt(si)
	nl := p.LiteralAt(ni)
	if sl.Kind != LiteralString || sl.Str != "3" {
		t.Fatalf("expected string literal %q, got %+v", "3", sl)
	}
	if nl.Kind != LiteralNumber || nl.Number != 3 {
		t.Fatalf("expected number literal 3, got %+v", nl)
	}
}
