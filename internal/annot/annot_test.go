package annot

import (
	"errors"
	"testing"

	"memlint/internal/source"
)

func ann(tag Tag) Annotation {
	return Annotation{Tag: tag}
}

func TestValidateAcceptsLegalCombination(t *testing.T) {
	set, err := Validate([]Annotation{
		ann(TagOwner),
		ann(TagKeepAlive),
		ann(TagPtrInOut),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if own, ok := set.Ownership(); !ok || own.Tag != TagOwner {
		t.Fatalf("ownership: got %v, %v", own.Tag, ok)
	}
	if fl, ok := set.Flow(); !ok || fl.Tag != TagPtrInOut {
		t.Fatalf("flow: got %v, %v", fl.Tag, ok)
	}
	if life, ok := set.Lifetime(); !ok || life.Tag != TagKeepAlive {
		t.Fatalf("lifetime: got %v, %v", life.Tag, ok)
	}
}

func TestValidateRejectsTwoOwnershipTags(t *testing.T) {
	pairs := [][2]Tag{
		{TagGuarded, TagOwner},
		{TagOwner, TagTakePossession},
		{TagTakePossession, TagRefCounted},
		{TagGuarded, TagRefCounted},
		{TagOwner, TagOwner},
	}
	for _, p := range pairs {
		_, err := Validate([]Annotation{ann(p[0]), ann(p[1])})
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("%v+%v: expected ConflictError, got %v", p[0], p[1], err)
		}
	}
}

func TestValidateRejectsTwoFlowTags(t *testing.T) {
	_, err := Validate([]Annotation{ann(TagPtrOut), ann(TagPtrInOut)})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestValidateRejectsTwoLifetimeTags(t *testing.T) {
	_, err := Validate([]Annotation{ann(TagKeepAlive), ann(TagReleaseAfter)})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestValidateEmptySet(t *testing.T) {
	set, err := Validate(nil)
	if err != nil {
		t.Fatalf("empty set must validate: %v", err)
	}
	if !set.Empty() {
		t.Fatal("set should be empty")
	}
}

func TestOwnerOfRidesAlongWithOwnership(t *testing.T) {
	target := source.StringID(7)
	set, err := Validate([]Annotation{
		ann(TagOwner),
		{Tag: TagOwnerOf, Target: target},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rel, ok := set.Find(TagOwnerOf)
	if !ok || rel.Target != target {
		t.Fatalf("OwnerOf relation lost: %v, %v", rel, ok)
	}
}

func TestTagCategories(t *testing.T) {
	if TagGuarded.Category() != CatOwnership || TagRefCounted.Category() != CatOwnership {
		t.Fatal("ownership category wrong")
	}
	if TagPtrOut.Category() != CatFlow {
		t.Fatal("flow category wrong")
	}
	if TagReleaseAfter.Category() != CatLifetime {
		t.Fatal("lifetime category wrong")
	}
	if !TagReleaseAfter.TakesTarget() || !TagOwnerOf.TakesTarget() {
		t.Fatal("target-taking tags wrong")
	}
	if TagGuarded.TakesTarget() {
		t.Fatal("guarded must not take a target")
	}
}
