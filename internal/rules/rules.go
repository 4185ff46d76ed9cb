// Package rules holds the ordered registry of violation predicates the
// flow checker evaluates at each transition. Rules are pure functions
// of the transition and its local context; registering or disabling
// one never changes traversal order or another rule's output.
package rules

import (
	"fmt"

	"memlint/internal/diag"
	"memlint/internal/own"
	"memlint/internal/source"
)

// State is the simulated ownership state of one entity on one path.
type State uint8

const (
	Unbound State = iota
	Owned
	Borrowed
	Released
	Escaped
	Unknown
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Owned:
		return "owned"
	case Borrowed:
		return "borrowed"
	case Released:
		return "released"
	case Escaped:
		return "escaped"
	case Unknown:
		return "unknown"
	}
	return "invalid"
}

// Event says what the flow checker observed at a program point.
type Event uint8

const (
	EvInvalid Event = iota
	// EvRelease: the entity reached a release call or a
	// TakePossession argument position.
	EvRelease
	// EvUse: dereference, member access, arithmetic or pass-by-value.
	EvUse
	// EvExit: one control-flow path reached function exit.
	EvExit
	// EvStackReturn: a stack-scoped address is returned.
	EvStackReturn
	// EvUnknown: tracking degraded; further evaluation is suppressed.
	EvUnknown
	// EvRefRelease: a refcount decrement.
	EvRefRelease
	// EvRefRetain: a refcount increment.
	EvRefRetain
)

// Transition is one observed state change plus the context a predicate
// may need. Name is the entity's source spelling; Site the program
// point being evaluated.
type Transition struct {
	Event  Event
	Entity *own.Entity
	Name   string
	Site   source.Span
	From   State
	To     State

	// Guarded is set when the entity must never be released here.
	Guarded bool
	// Adjusted is set when pointer arithmetic moved the value off its
	// allocation before this point.
	Adjusted bool
	// Count is the simulated reference count after a refcount event.
	Count int
}

// Rule is one registered predicate.
type Rule struct {
	Name     string
	Code     diag.Code
	Severity diag.Severity
	Doc      string
	Check    func(tr Transition) (string, bool)
}

// Registry is the ordered rule table with per-run overrides.
type Registry struct {
	rules    []Rule
	disabled map[diag.Code]bool
	severity map[diag.Code]diag.Severity
}

// Default returns the registry with every builtin rule enabled.
func Default() *Registry {
	r := &Registry{
		disabled: make(map[diag.Code]bool),
		severity: make(map[diag.Code]diag.Severity),
	}
	for _, rule := range builtins {
		r.Register(rule)
	}
	return r
}

// Register appends a rule. Order of registration is order of
// evaluation and of listing.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// All returns the registered rules in order.
func (r *Registry) All() []Rule { return r.rules }

// Find looks a rule up by name.
func (r *Registry) Find(name string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return Rule{}, false
}

// Disable suppresses a rule's findings. The rule stays registered.
func (r *Registry) Disable(name string) error {
	rule, ok := r.Find(name)
	if !ok {
		return fmt.Errorf("unknown rule %q", name)
	}
	r.disabled[rule.Code] = true
	return nil
}

// Override replaces a rule's default severity.
func (r *Registry) Override(name string, sev diag.Severity) error {
	rule, ok := r.Find(name)
	if !ok {
		return fmt.Errorf("unknown rule %q", name)
	}
	r.severity[rule.Code] = sev
	return nil
}

// Enabled reports whether findings of the code should surface.
func (r *Registry) Enabled(code diag.Code) bool { return !r.disabled[code] }

// SeverityOf returns the effective severity for a rule code.
func (r *Registry) SeverityOf(rule Rule) diag.Severity {
	if sev, ok := r.severity[rule.Code]; ok {
		return sev
	}
	return rule.Severity
}

// Evaluate runs every enabled rule against the transition and returns
// the findings it produced, in registration order.
func (r *Registry) Evaluate(tr Transition) []diag.Finding {
	var out []diag.Finding
	for _, rule := range r.rules {
		if r.disabled[rule.Code] {
			continue
		}
		msg, fired := rule.Check(tr)
		if !fired {
			continue
		}
		f := diag.Finding{
			Severity: r.SeverityOf(rule),
			Code:     rule.Code,
			Message:  msg,
			Primary:  tr.Site,
		}
		if tr.Entity != nil {
			f.Entities = []diag.EntityRef{{Name: tr.Name, Decl: tr.Entity.Decl}}
		}
		out = append(out, f)
	}
	return out
}

// Apply rewrites a collected bag in place: findings of disabled rules
// are dropped, severity overrides take effect. Non-rule diagnostics
// pass through untouched.
func (r *Registry) Apply(bag *diag.Bag) {
	items := bag.Items()
	kept := items[:0]
	for _, f := range items {
		rule, registered := r.findByCode(f.Code)
		if !registered {
			kept = append(kept, f)
			continue
		}
		if r.disabled[f.Code] {
			continue
		}
		f.Severity = r.SeverityOf(rule)
		kept = append(kept, f)
	}
	bag.Replace(kept)
}

func (r *Registry) findByCode(code diag.Code) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.Code == code {
			return rule, true
		}
	}
	return Rule{}, false
}
