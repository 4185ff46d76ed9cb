package diag

import (
	"testing"

	"memlint/internal/source"
)

func span(file source.FileID, start, end uint32) source.Span {
	return source.Span{File: file, Start: start, End: end}
}

func TestBagRespectsLimit(t *testing.T) {
	bag := NewBag(2)
	if !bag.Add(Finding{Code: MemLeak}) {
		t.Fatal("first add rejected")
	}
	if !bag.Add(Finding{Code: MemLeak}) {
		t.Fatal("second add rejected")
	}
	if bag.Add(Finding{Code: MemLeak}) {
		t.Fatal("third add must be rejected at limit")
	}
	if bag.Len() != 2 {
		t.Fatalf("len: got %d", bag.Len())
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	mk := func() *Bag {
		bag := NewBag(10)
		bag.Add(Finding{Severity: SevWarning, Code: MemLeak, Primary: span(1, 40, 44)})
		bag.Add(Finding{Severity: SevError, Code: MemDoubleFree, Primary: span(0, 10, 12)})
		bag.Add(Finding{Severity: SevError, Code: MemUseAfterFree, Primary: span(0, 10, 12)})
		bag.Add(Finding{Severity: SevInfo, Code: MemUnanalyzableFlow, Primary: span(0, 5, 6)})
		return bag
	}

	a, b := mk(), mk()
	a.Sort()
	b.Sort()

	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for i := range a.Items() {
		if a.Items()[i].Code != b.Items()[i].Code {
			t.Fatalf("order differs at %d: %v vs %v", i, a.Items()[i].Code, b.Items()[i].Code)
		}
	}
	// File 0 precedes file 1; within a span ties break on code.
	if a.Items()[0].Code != MemUnanalyzableFlow {
		t.Fatalf("first after sort: %v", a.Items()[0].Code)
	}
	if a.Items()[1].Code != MemDoubleFree || a.Items()[2].Code != MemUseAfterFree {
		t.Fatalf("tie-break by code failed: %v, %v", a.Items()[1].Code, a.Items()[2].Code)
	}
	if a.Items()[3].Code != MemLeak {
		t.Fatalf("last after sort: %v", a.Items()[3].Code)
	}
}

func TestBagDedup(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Finding{Code: MemDoubleFree, Primary: span(0, 10, 12)})
	bag.Add(Finding{Code: MemDoubleFree, Primary: span(0, 10, 12)})
	bag.Add(Finding{Code: MemDoubleFree, Primary: span(0, 20, 22)})
	bag.Dedup()
	if bag.Len() != 2 {
		t.Fatalf("dedup: got %d findings, want 2", bag.Len())
	}
}

func TestBagMergeGrowsLimit(t *testing.T) {
	a := NewBag(1)
	a.Add(Finding{Code: MemLeak})
	b := NewBag(2)
	b.Add(Finding{Code: MemDoubleFree})
	b.Add(Finding{Code: MemGuardedFree})
	a.Merge(b)
	if a.Len() != 3 {
		t.Fatalf("merge: got %d findings", a.Len())
	}
}

func TestHasErrorsAndWarnings(t *testing.T) {
	bag := NewBag(4)
	bag.Add(Finding{Severity: SevInfo})
	if bag.HasWarnings() || bag.HasErrors() {
		t.Fatal("info-only bag must report no warnings or errors")
	}
	bag.Add(Finding{Severity: SevWarning})
	if !bag.HasWarnings() || bag.HasErrors() {
		t.Fatal("warning bag state wrong")
	}
	bag.Add(Finding{Severity: SevError})
	if !bag.HasErrors() {
		t.Fatal("error not detected")
	}
}
