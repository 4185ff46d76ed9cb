// Package annot defines the closed ownership-annotation vocabulary and
// validates legal combinations at a single attachment point. It is a
// leaf package: pure data and pure functions, no side effects.
package annot

import (
	"memlint/internal/source"
	"memlint/internal/token"
)

// Tag is one annotation from the closed vocabulary.
type Tag uint8

const (
	TagInvalid Tag = iota
	TagGuarded
	TagOwner
	TagTakePossession
	TagKeepAlive
	TagReleaseAfter
	TagOwnerOf
	TagRefCounted
	TagPtrInOut
	TagPtrOut
)

func (t Tag) String() string {
	switch t {
	case TagGuarded:
		return "memory_guarded"
	case TagOwner:
		return "memory_owner"
	case TagTakePossession:
		return "memory_take_possession"
	case TagKeepAlive:
		return "memory_keep_alive"
	case TagReleaseAfter:
		return "memory_release_after_of"
	case TagOwnerOf:
		return "memory_owner_of"
	case TagRefCounted:
		return "memory_ref_count"
	case TagPtrInOut:
		return "memory_ptr_inout"
	case TagPtrOut:
		return "memory_ptr_out"
	}
	return "invalid"
}

// Category groups tags by their exclusivity class.
type Category uint8

const (
	CatNone Category = iota
	// CatOwnership tags are mutually exclusive: who releases the memory.
	CatOwnership
	// CatFlow tags describe the pointer's data-flow direction.
	CatFlow
	// CatLifetime tags constrain how long the target must stay alive.
	CatLifetime
)

func (t Tag) Category() Category {
	switch t {
	case TagGuarded, TagOwner, TagTakePossession, TagRefCounted:
		return CatOwnership
	case TagPtrInOut, TagPtrOut:
		return CatFlow
	case TagKeepAlive, TagReleaseAfter:
		return CatLifetime
	case TagOwnerOf:
		// OwnerOf relates this entity to another; it rides along with
		// the ownership class without excluding one.
		return CatNone
	}
	return CatNone
}

// TakesTarget reports whether the tag carries a (mem) argument.
func (t Tag) TakesTarget() bool {
	return t == TagReleaseAfter || t == TagOwnerOf
}

// TagForKeyword maps an annotation keyword token onto its tag.
func TagForKeyword(k token.Kind) (Tag, bool) {
	switch k {
	case token.KwMemGuarded:
		return TagGuarded, true
	case token.KwMemOwner:
		return TagOwner, true
	case token.KwMemTakePossession:
		return TagTakePossession, true
	case token.KwMemKeepAlive:
		return TagKeepAlive, true
	case token.KwMemReleaseAfter:
		return TagReleaseAfter, true
	case token.KwMemOwnerOf:
		return TagOwnerOf, true
	case token.KwMemRefCount:
		return TagRefCounted, true
	case token.KwMemPtrInOut:
		return TagPtrInOut, true
	case token.KwMemPtrOut:
		return TagPtrOut, true
	default:
		return TagInvalid, false
	}
}

// Annotation is one tag attached at a specific source location,
// optionally referencing a target declaration (ReleaseAfter/OwnerOf).
type Annotation struct {
	Tag    Tag
	Target source.StringID
	Span   source.Span
}
