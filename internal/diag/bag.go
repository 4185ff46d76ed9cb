package diag

import (
	"fmt"
	"sort"
)

// Bag is a bounded, mergeable collection of findings for one run.
type Bag struct {
	items []Finding
	max   int
}

func NewBag(max int) *Bag {
	return &Bag{
		items: make([]Finding, 0, max),
		max:   max,
	}
}

// Add appends a finding, honoring the limit. Returns false when the
// bag is full.
func (b *Bag) Add(f Finding) bool {
	if len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, f)
	return true
}

func (b *Bag) Cap() int {
	return b.max
}

// HasErrors reports whether any finding has Severity >= Error.
func (b *Bag) HasErrors() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any finding has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity >= SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns a read-only view of the findings. Do not modify the
// returned slice; it aliases the bag's backing array.
func (b *Bag) Items() []Finding {
	return b.items
}

// Replace swaps the bag's contents, growing the limit as needed.
// Post-processing passes (rule filtering) rewrite in place through it.
func (b *Bag) Replace(items []Finding) {
	if len(items) > b.max {
		b.max = len(items)
	}
	b.items = items
}

// Merge appends all findings from other, growing the limit as needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if newTotal := len(b.items) + len(other.items); newTotal > b.max {
		b.max = newTotal
	}
	b.items = append(b.items, other.items...)
}

// Sort orders findings by file, start, end, severity (desc), code.
// The order is total, so repeated runs over the same input produce
// byte-identical sequences.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		fi, fj := b.items[i], b.items[j]
		if fi.Primary.File != fj.Primary.File {
			return fi.Primary.File < fj.Primary.File
		}
		if fi.Primary.Start != fj.Primary.Start {
			return fi.Primary.Start < fj.Primary.Start
		}
		if fi.Primary.End != fj.Primary.End {
			return fi.Primary.End < fj.Primary.End
		}
		if fi.Severity != fj.Severity {
			return fi.Severity > fj.Severity
		}
		return fi.Code < fj.Code
	})
}

// Dedup removes findings that repeat an earlier (code, primary span,
// entity) triple. Branch simulation may visit the same program point
// on several paths; one report per defect is enough.
func (b *Bag) Dedup() {
	seen := make(map[string]bool, len(b.items))
	kept := b.items[:0]
	for _, f := range b.items {
		entity := ""
		if len(f.Entities) > 0 {
			entity = f.Entities[0].Name
		}
		key := fmt.Sprintf("%d:%s:%s", f.Code, f.Primary.String(), entity)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, f)
	}
	b.items = kept
}
