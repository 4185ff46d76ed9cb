package rules

import (
	"fmt"

	"memlint/internal/diag"
)

// builtins is the default rule set, in evaluation and listing order.
var builtins = []Rule{
	{
		Name:     "double-free",
		Code:     diag.MemDoubleFree,
		Severity: diag.SevError,
		Doc:      "a pointer is released twice on one control-flow path",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvRelease && tr.From == Released {
				return fmt.Sprintf("%q is released twice", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "use-after-free",
		Code:     diag.MemUseAfterFree,
		Severity: diag.SevError,
		Doc:      "a released pointer is dereferenced, passed or adjusted",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvUse && tr.From == Released {
				return fmt.Sprintf("%q is used after release", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "leak",
		Code:     diag.MemLeak,
		Severity: diag.SevError,
		Doc:      "an owned allocation is still live at function exit with no transfer",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvExit && tr.From == Owned {
				return fmt.Sprintf("%q is owned at exit and never released or transferred", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "guarded-free",
		Code:     diag.MemGuardedFree,
		Severity: diag.SevError,
		Doc:      "a guarded (borrowed) pointer reaches a release call",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvRelease && tr.Guarded {
				return fmt.Sprintf("%q is guarded and must not be released here", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "stack-escape",
		Code:     diag.MemStackEscape,
		Severity: diag.SevError,
		Doc:      "a stack-scoped address is returned to the caller",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvStackReturn {
				return fmt.Sprintf("address of stack-scoped %q escapes through return", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "release-of-adjusted-pointer",
		Code:     diag.MemReleaseOfAdjustedPointer,
		Severity: diag.SevError,
		Doc:      "a pointer moved by arithmetic is released without an unmodified alias",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvRelease && tr.Adjusted {
				return fmt.Sprintf("%q was adjusted by pointer arithmetic before this release", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "unanalyzable-flow",
		Code:     diag.MemUnanalyzableFlow,
		Severity: diag.SevInfo,
		Doc:      "tracking for an entity degraded to unknown; later checks are suppressed",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvUnknown {
				return fmt.Sprintf("flow of %q is not analyzable past this point", tr.Name), true
			}
			return "", false
		},
	},
	{
		Name:     "ambiguous-ownership",
		Code:     diag.MemAmbiguousOwnership,
		Severity: diag.SevInfo,
		Doc:      "a pointer field has no annotation and no destructor releases it",
		// The graph builder emits this during construction; it is
		// registered so config can disable it and listings show it.
		Check: func(Transition) (string, bool) { return "", false },
	},
	{
		Name:     "refcount-negative",
		Code:     diag.MemRefCountNegative,
		Severity: diag.SevError,
		Doc:      "a reference count is decremented below zero",
		Check: func(tr Transition) (string, bool) {
			if tr.Event == EvRefRelease && tr.Count < 0 {
				return fmt.Sprintf("reference count of %q drops below zero", tr.Name), true
			}
			return "", false
		},
	},
}
