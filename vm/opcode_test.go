package vm

import "testing"

func TestNumOperandsCoversEveryOpcode(t *testing.T) {
	for op := LOAD_CONST; op <= POP_TRY; op++ {
		if op.String() == "UNKNOWN_OP" {
			t.Fatalf("opcode %d has no name in Op.String()'s table", int(op))
		}
		// NumOperands must not panic and must return a small fixed arity.
		if n := op.NumOperands(); n < 0 || n > 2 {
			t.Fatalf("%v: NumOperands() = %d, want 0..2", op, n)
		}
	}
}

func TestSetupTryTakesTwoOperands(t *testing.T) {
	if SETUP_TRY.NumOperands() != 2 {
		t.Fatalf("SETUP_TRY.NumOperands() = %d, want 2", SETUP_TRY.NumOperands())
	}
}

func TestProtoIndexOfTracksLogicalPC(t *testing.T) {
	p := &Proto{
		Code: []Instr{
			{Op: LOAD_UNDEFINED},       // logical pc 0, width 1
			{Op: LOAD_CONST, A: 0},     // logical pc 1, width 2
			{Op: RET},                  // logical pc 3, width 1
		},
	}
	if idx := p.indexOf(0); idx != 0 {
		t.Fatalf("indexOf(0) = %d, want 0", idx)
	}
	if idx := p.indexOf(1); idx != 1 {
		t.Fatalf("indexOf(1) = %d, want 1", idx)
	}
	if idx := p.indexOf(3); idx != 2 {
		t.Fatalf("indexOf(3) = %d, want 2", idx)
	}
	// one-past-the-end, used as the natural successor of the last
	// instruction and by an empty try region.
	if idx := p.indexOf(4); idx != len(p.Code) {
		t.Fatalf("indexOf(4) = %d, want %d (one past the end)", idx, len(p.Code))
	}
}
