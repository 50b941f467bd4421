package vm

import (
	"testing"

	"github.com/xianjiezh/clibjs/value"
)

func TestFramePushPopTop(t *testing.T) {
	f := newFrame(&Proto{}, value.NilID, value.NilID, value.NilID, value.NilID)
	f.push(value.ValueID(1))
	f.push(value.ValueID(2))
	if got := f.top(); got != value.ValueID(2) {
		t.Fatalf("top() = %v, want 2", got)
	}
	if got := f.pop(); got != value.ValueID(2) {
		t.Fatalf("pop() = %v, want 2", got)
	}
	if got := f.pop(); got != value.ValueID(1) {
		t.Fatalf("pop() = %v, want 1", got)
	}
}

func TestFrameRootsIncludesStackAndEnvs(t *testing.T) {
	f := newFrame(&Proto{}, value.ValueID(10), value.ValueID(11), value.ValueID(12), value.ValueID(13))
	f.push(value.ValueID(1))
	f.push(value.ValueID(2))

	roots := f.roots()
	want := map[value.ValueID]bool{1: true, 2: true, 10: true, 11: true, 12: true, 13: true}
	if len(roots) != len(want) {
		t.Fatalf("roots() = %v, want exactly %v", roots, want)
	}
	for _, r := range roots {
		if !want[r] {
			t.Fatalf("unexpected root %v", r)
		}
	}
}
