package own

import (
	"fmt"

	"memlint/internal/source"
)

// BuildErrorKind discriminates graph construction failures.
type BuildErrorKind uint8

const (
	// ErrUnresolvedSymbol: a direct call or annotation target names
	// nothing declared in scope.
	ErrUnresolvedSymbol BuildErrorKind = iota + 1
	// ErrAnnotationConflict: attachment-point validation failed.
	ErrAnnotationConflict
	// ErrDuplicateSymbol: two definitions share a name in one unit.
	ErrDuplicateSymbol
)

func (k BuildErrorKind) String() string {
	switch k {
	case ErrUnresolvedSymbol:
		return "unresolved symbol"
	case ErrAnnotationConflict:
		return "annotation conflict"
	case ErrDuplicateSymbol:
		return "duplicate symbol"
	}
	return "unknown build error"
}

// BuildError aborts graph construction for one unit. Other units are
// unaffected.
type BuildError struct {
	Kind BuildErrorKind
	Name string
	Span source.Span
	Err  error
}

func (e *BuildError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *BuildError) Unwrap() error { return e.Err }
