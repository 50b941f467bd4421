package gc

import (
	"testing"

	"github.com/xianjiezh/clibjs/value"
)

func TestCollectReclaimsUnreachable(t *testing.T) {
	h := value.NewHeap()
	c := New(h)

	kept := h.NewObject(h.ObjectProto)
	_ = h.NewObject(h.ObjectProto) // unreachable: not in roots

	freed := c.Collect([]value.ValueID{kept})
	if freed == 0 {
		t.Fatalf("expected at least one object to be freed")
	}
	if h.MarkGeneration(kept) < 0 {
		t.Fatalf("rooted object should have survived collection")
	}
}

func TestCollectKeepsPermanentSingletonsAlive(t *testing.T) {
	h := value.NewHeap()
	c := New(h)

	c.Collect(nil)

	for name, id := range map[string]value.ValueID{
		"Undef": h.Undef, "NullVal": h.NullVal, "True": h.True, "False": h.False,
		"ObjectProto": h.ObjectProto, "ArrayProto": h.ArrayProto,
	} {
		if h.MarkGeneration(id) < 0 {
			t.Fatalf("singleton %s was freed by Collect", name)
		}
	}
}

func TestShouldCollectTriggersAtThreshold(t *testing.T) {
	h := value.NewHeap()
	c := New(h)
	c.AllocThreshold = 3

	c.AllocsSinceGC = 2
	if c.ShouldCollect() {
		t.Fatalf("should not collect below threshold")
	}
	c.AllocsSinceGC = 3
	if !c.ShouldCollect() {
		t.Fatalf("should collect at threshold")
	}
}

func TestCollectResetsAllocCounter(t *testing.T) {
	h := value.NewHeap()
	c := New(h)
	c.AllocsSinceGC = 100
	c.Collect(nil)
	if c.AllocsSinceGC != 0 {
		t.Fatalf("AllocsSinceGC = %d, want 0 after Collect", c.AllocsSinceGC)
	}
}
