package value

import "testing"

func newStr(h *Heap, s string) ValueID {
	id := h.New(String)
	h.Get(id).Str = s
	return id
}

func newNum(h *Heap, n float64) ValueID {
	id := h.New(Number)
	h.Get(id).Num = n
	return id
}

func TestTypeOfTotality(t *testing.T) {
	h := NewHeap()
	fn := h.NewFunction(&FuncInfo{Name: "f", CodeRef: 0})
	tests := []struct {
		name string
		id   ValueID
		want string
	}{
		{"undefined", h.Undef, "undefined"},
		{"null", h.NullVal, "object"},
		{"boolean", h.True, "boolean"},
		{"number", newNum(h, 1), "number"},
		{"string", newStr(h, "x"), "string"},
		{"function", fn, "function"},
		{"object", h.NewObject(h.ObjectProto), "object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeOf(h, tt.id); got != tt.want {
				t.Fatalf("TypeOf(%s) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestNumberRoundTrip(t *testing.T) {
	tests := []float64{0, 1, -1, 42, 3.5, -0.25}
	for _, n := range tests {
		s := NumberToString(n)
		if s == "" {
			t.Fatalf("NumberToString(%v) returned empty string", n)
		}
	}
	if got := NumberToString(0); got != "0" {
		t.Fatalf("NumberToString(0) = %q, want %q", got, "0")
	}
	if got := NumberToString(3.5); got != "3.5" {
		t.Fatalf("NumberToString(3.5) = %q, want %q", got, "3.5")
	}
}

func TestGetAttrWalksPrototypeChain(t *testing.T) {
	h := NewHeap()
	base := h.NewObject(NilID)
	h.SetAttr(base, "greeting", newStr(h, "hi"))
	derived := h.NewObject(base)

	id, ok := h.GetAttr(derived, "greeting")
	if !ok {
		t.Fatalf("expected greeting to resolve through the prototype chain")
	}
	if got := h.Get(id).Str; got != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}

	if _, ok := h.GetAttr(derived, "missing"); ok {
		t.Fatalf("expected missing attribute to not resolve")
	}
}

func TestSetAttrNeverWalksPrototypeChain(t *testing.T) {
	h := NewHeap()
	base := h.NewObject(NilID)
	h.SetAttr(base, "x", newNum(h, 1))
	derived := h.NewObject(base)

	h.SetAttr(derived, "x", newNum(h, 2))

	baseVal, _ := h.GetAttr(base, "x")
	if h.Get(baseVal).Num != 1 {
		t.Fatalf("SetAttr on derived mutated base's own slot")
	}
	derivedVal, _ := h.GetAttr(derived, "x")
	if h.Get(derivedVal).Num != 2 {
		t.Fatalf("derived's own slot was not set")
	}
}

func TestBinaryAddCoercion(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		name    string
		a, b    ValueID
		wantStr string
		wantNum bool
	}{
		{"number plus number", newNum(h, 1), newNum(h, 2), "", true},
		{"string concat", newStr(h, "he"), newStr(h, "llo"), "hello", false},
		{"undefined plus string", h.Undef, newStr(h, "x"), "undefinedx", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := BinaryOp(h, Add, tt.a, tt.b)
			if err != nil {
				t.Fatalf("BinaryOp: %v", err)
			}
			if tt.wantNum {
				if h.Get(res).Num != 3 {
					t.Fatalf("got %v, want 3", h.Get(res).Num)
				}
				return
			}
			if got := ToString(h, res); got != tt.wantStr {
				t.Fatalf("got %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestUndefinedPlusNumberIsNaN(t *testing.T) {
	h := NewHeap()
	res, err := BinaryOp(h, Add, h.Undef, newNum(h, 1))
	if err != nil {
		t.Fatalf("BinaryOp: %v", err)
	}
	n := h.Get(res).Num
	if n == n {
		t.Fatalf("expected NaN, got %v", n)
	}
}

func TestLooseVsStrictEqualityOnNullUndefined(t *testing.T) {
	h := NewHeap()
	loose, _ := BinaryOp(h, Eq, h.NullVal, h.Undef)
	if !h.Get(loose).Bool {
		t.Fatalf("null == undefined should be true")
	}
	strict, _ := BinaryOp(h, StrictEq, h.NullVal, h.Undef)
	if h.Get(strict).Bool {
		t.Fatalf("null === undefined should be false")
	}
}

func TestMarkAndSweepReclaimsUnreachable(t *testing.T) {
	h := NewHeap()
	reachable := h.NewObject(h.ObjectProto)
	unreachable := h.NewObject(h.ObjectProto)
	_ = unreachable

	before := h.Len()

	h.Mark(h.ObjectProto, 1)
	h.Mark(h.FunctionProto, 1)
	h.Mark(h.ArrayProto, 1)
	h.Mark(h.StringProto, 1)
	h.Mark(reachable, 1)
	freed := h.SweepStale(1)

	if freed == 0 {
		t.Fatalf("expected at least one unreachable slot to be freed")
	}
	if h.Len() != before {
		t.Fatalf("SweepStale should not shrink the slot slice, only free slots for reuse")
	}
	if h.MarkGeneration(reachable) != 1 {
		t.Fatalf("reachable object should have survived the sweep")
	}
}
