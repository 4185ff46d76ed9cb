package diag

import (
	"memlint/internal/source"
)

// Note attaches a secondary location to a finding, e.g. the allocation
// site of a leaked pointer.
type Note struct {
	Span source.Span
	Msg  string
}

// EntityRef names a program entity implicated in a finding.
type EntityRef struct {
	Name string
	Decl source.Span
}

// Finding is one reported result about a specific program location.
// Immutable once emitted.
type Finding struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Entities []EntityRef
	Notes    []Note
}
