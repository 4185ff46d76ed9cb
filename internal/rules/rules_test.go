package rules

import (
	"testing"

	"memlint/internal/diag"
	"memlint/internal/source"
)

func TestEvaluateDoubleFree(t *testing.T) {
	r := Default()
	out := r.Evaluate(Transition{
		Event: EvRelease,
		Name:  "p",
		From:  Released,
		Site:  source.Span{Start: 10, End: 11},
	})
	if len(out) != 1 {
		t.Fatalf("findings: %d", len(out))
	}
	if out[0].Code != diag.MemDoubleFree || out[0].Severity != diag.SevError {
		t.Fatalf("finding: %+v", out[0])
	}
}

func TestDisableSuppressesOnlyThatRule(t *testing.T) {
	r := Default()
	if err := r.Disable("double-free"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	out := r.Evaluate(Transition{Event: EvRelease, Name: "p", From: Released, Guarded: true})
	// guarded-free still fires even though double-free matched too.
	if len(out) != 1 || out[0].Code != diag.MemGuardedFree {
		t.Fatalf("findings: %+v", out)
	}
}

func TestDisableUnknownRule(t *testing.T) {
	if err := Default().Disable("no-such-rule"); err == nil {
		t.Fatal("want error for unknown rule")
	}
}

func TestOverrideSeverity(t *testing.T) {
	r := Default()
	if err := r.Override("leak", diag.SevWarning); err != nil {
		t.Fatalf("override: %v", err)
	}
	out := r.Evaluate(Transition{Event: EvExit, Name: "p", From: Owned})
	if len(out) != 1 || out[0].Severity != diag.SevWarning {
		t.Fatalf("findings: %+v", out)
	}
}

func TestRefCountEvents(t *testing.T) {
	r := Default()
	if out := r.Evaluate(Transition{Event: EvRefRetain, Name: "p", Count: 2}); len(out) != 0 {
		t.Fatalf("an increment never fires a rule: %+v", out)
	}
	out := r.Evaluate(Transition{Event: EvRefRelease, Name: "p", Count: -1})
	if len(out) != 1 || out[0].Code != diag.MemRefCountNegative {
		t.Fatalf("findings: %+v", out)
	}
}

func TestRegisterNeverReorders(t *testing.T) {
	r := Default()
	before := make([]string, 0, len(r.All()))
	for _, rule := range r.All() {
		before = append(before, rule.Name)
	}
	r.Register(Rule{
		Name:     "custom",
		Code:     diag.Code(5999),
		Severity: diag.SevWarning,
		Check:    func(Transition) (string, bool) { return "", false },
	})
	after := r.All()
	for i, name := range before {
		if after[i].Name != name {
			t.Fatalf("order changed at %d: %q vs %q", i, name, after[i].Name)
		}
	}
	if after[len(after)-1].Name != "custom" {
		t.Fatal("custom rule must append at the end")
	}
}

func TestApplyFiltersBag(t *testing.T) {
	r := Default()
	if err := r.Disable("leak"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if err := r.Override("use-after-free", diag.SevWarning); err != nil {
		t.Fatalf("override: %v", err)
	}

	bag := diag.NewBag(8)
	bag.Add(diag.Finding{Code: diag.MemLeak, Severity: diag.SevError})
	bag.Add(diag.Finding{Code: diag.MemUseAfterFree, Severity: diag.SevError})
	bag.Add(diag.Finding{Code: diag.SynExpectSemicolon, Severity: diag.SevError})

	r.Apply(bag)
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("items: %+v", items)
	}
	if items[0].Code != diag.MemUseAfterFree || items[0].Severity != diag.SevWarning {
		t.Fatalf("override not applied: %+v", items[0])
	}
	if items[1].Code != diag.SynExpectSemicolon || items[1].Severity != diag.SevError {
		t.Fatalf("non-rule diagnostic must pass through: %+v", items[1])
	}
}
