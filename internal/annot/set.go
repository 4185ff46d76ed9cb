package annot

import (
	"fmt"
)

// Set is a validated combination of annotations for one attachment
// point: at most one ownership tag, one flow tag, one lifetime tag,
// plus an optional OwnerOf relation.
type Set struct {
	anns []Annotation
}

// Empty reports whether no annotation is attached.
func (s Set) Empty() bool { return len(s.anns) == 0 }

// All returns the annotations in attachment order.
func (s Set) All() []Annotation { return s.anns }

// Has reports whether the set contains the tag.
func (s Set) Has(tag Tag) bool {
	for _, a := range s.anns {
		if a.Tag == tag {
			return true
		}
	}
	return false
}

// Find returns the annotation with the given tag.
func (s Set) Find(tag Tag) (Annotation, bool) {
	for _, a := range s.anns {
		if a.Tag == tag {
			return a, true
		}
	}
	return Annotation{}, false
}

// Ownership returns the ownership-category tag, if any.
func (s Set) Ownership() (Annotation, bool) {
	return s.byCategory(CatOwnership)
}

// Flow returns the flow tag (PtrInOut/PtrOut), if any.
func (s Set) Flow() (Annotation, bool) {
	return s.byCategory(CatFlow)
}

// Lifetime returns the lifetime tag (KeepAlive/ReleaseAfter), if any.
func (s Set) Lifetime() (Annotation, bool) {
	return s.byCategory(CatLifetime)
}

func (s Set) byCategory(cat Category) (Annotation, bool) {
	for _, a := range s.anns {
		if a.Tag.Category() == cat {
			return a, true
		}
	}
	return Annotation{}, false
}

// ConflictError reports two annotations that cannot share an
// attachment point.
type ConflictError struct {
	First  Annotation
	Second Annotation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting annotations %s and %s", e.First.Tag, e.Second.Tag)
}

// Validate checks a raw annotation list for legality: ownership tags
// are mutually exclusive, at most one flow tag, at most one lifetime
// tag. Duplicate tags count as conflicts. Target resolution for
// ReleaseAfter/OwnerOf is the builder's concern, not Validate's.
func Validate(anns []Annotation) (Set, error) {
	var haveOwnership, haveFlow, haveLifetime *Annotation
	for i := range anns {
		a := anns[i]
		switch a.Tag.Category() {
		case CatOwnership:
			if haveOwnership != nil {
				return Set{}, &ConflictError{First: *haveOwnership, Second: a}
			}
			haveOwnership = &anns[i]
		case CatFlow:
			if haveFlow != nil {
				return Set{}, &ConflictError{First: *haveFlow, Second: a}
			}
			haveFlow = &anns[i]
		case CatLifetime:
			if haveLifetime != nil {
				return Set{}, &ConflictError{First: *haveLifetime, Second: a}
			}
			haveLifetime = &anns[i]
		case CatNone:
			// OwnerOf: any number of relations would be odd but only a
			// duplicate of the same tag conflicts.
			for j := 0; j < i; j++ {
				if anns[j].Tag == a.Tag {
					return Set{}, &ConflictError{First: anns[j], Second: a}
				}
			}
		}
	}
	return Set{anns: anns}, nil
}

// MustValidate is a test helper that panics on conflict.
func MustValidate(anns []Annotation) Set {
	s, err := Validate(anns)
	if err != nil {
		panic(err)
	}
	return s
}
