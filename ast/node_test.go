package ast

import "testing"

func TestAppendChildBuildsValidRing(t *testing.T) {
	parent := NewCollection(CollBlock)
	a := NewCollection(CollStatement)
	b := NewCollection(CollStatement)
	c := NewCollection(CollStatement)
	AppendChild(parent, a)
	AppendChild(parent, b)
	AppendChild(parent, c)

	children := parent.Children()
	if len(children) != 3 || children[0] != a || children[1] != b || children[2] != c {
		t.Fatalf("Children() = %v, want [a b c] in insertion order", children)
	}
	for _, n := range children {
		if !RingValid(n) {
			t.Fatalf("ring invalid at node %v", n)
		}
	}
	if parent.ChildCount() != 3 {
		t.Fatalf("ChildCount() = %d, want 3", parent.ChildCount())
	}
}

func TestUnlinkRestoresSingletonAndPreservesRemainingRing(t *testing.T) {
	parent := NewCollection(CollBlock)
	a := NewCollection(CollStatement)
	b := NewCollection(CollStatement)
	c := NewCollection(CollStatement)
	AppendChild(parent, a)
	AppendChild(parent, b)
	AppendChild(parent, c)

	Unlink(b)

	if !b.IsSingleton() {
		t.Fatalf("unlinked node should be its own singleton ring")
	}
	if b.Parent != nil {
		t.Fatalf("unlinked node should have no parent")
	}
	remaining := parent.Children()
	if len(remaining) != 2 || remaining[0] != a || remaining[1] != c {
		t.Fatalf("Children() after unlink = %v, want [a c]", remaining)
	}
	if !RingValid(a) || !RingValid(c) {
		t.Fatalf("remaining ring invalid after unlink")
	}
}

func TestUnlinkOnlyChildClearsParentChild(t *testing.T) {
	parent := NewCollection(CollBlock)
	only := NewCollection(CollStatement)
	AppendChild(parent, only)

	Unlink(only)

	if parent.Child != nil {
		t.Fatalf("parent.Child should be nil after unlinking its only child")
	}
	if parent.ChildCount() != 0 {
		t.Fatalf("ChildCount() = %d, want 0", parent.ChildCount())
	}
}

func TestBacktrackRollbackRestoresOriginalRing(t *testing.T) {
	parent := NewCollection(CollBlock)
	a := NewCollection(CollStatement)
	AppendChild(parent, a)

	before := parent.Children()

	// Simulate a speculative branch: append, then roll back by
	// unlinking in reverse order, the way a backtracking parser discards
	// a failed branch's created nodes (testable property 2).
	speculative := NewCollection(CollStatement)
	AppendChild(parent, speculative)
	Unlink(speculative)

	after := parent.Children()
	if len(before) != len(after) {
		t.Fatalf("rollback left %d children, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("rollback changed child at index %d", i)
		}
	}
	if !RingValid(a) {
		t.Fatalf("ring invalid after rollback")
	}
}
