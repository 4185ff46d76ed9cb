package source

import (
	"testing"
)

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner()
	a := in.Intern("malloc")
	b := in.Intern("free")
	a2 := in.Intern("malloc")

	if a != a2 {
		t.Fatalf("same string interned twice: %d vs %d", a, a2)
	}
	if a == b {
		t.Fatalf("distinct strings share ID %d", a)
	}
	if s := in.MustLookup(a); s != "malloc" {
		t.Fatalf("lookup: got %q", s)
	}
}

func TestInternerEmptyStringIsNoStringID(t *testing.T) {
	in := NewInterner()
	if id := in.Intern(""); id != NoStringID {
		t.Fatalf("empty string must intern to NoStringID, got %d", id)
	}
	if in.Len() != 1 {
		t.Fatalf("fresh interner length: got %d", in.Len())
	}
}

func TestInternerLookupUnknown(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup(StringID(42)); ok {
		t.Fatal("lookup of unknown ID must fail")
	}
}
