// Package own builds the per-unit ownership graph: one entity per
// pointer-typed parameter, field, local and return slot, with its
// validated annotation set and the transfer/borrow edges between call
// sites and callee parameters. The graph is built once and read-only
// afterwards, so flow analyses can share it across goroutines.
package own

import (
	"fortio.org/safecast"

	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/source"
)

// EntityID indexes the graph's entity arena. 0 is the zero sentinel.
type EntityID uint32

const NoEntityID EntityID = 0

func (id EntityID) IsValid() bool { return id != NoEntityID }

// EntityKind says which declaration form an entity came from.
type EntityKind uint8

const (
	EntityInvalid EntityKind = iota
	EntityParam
	EntityField
	EntityLocal
	EntityReturn
)

func (k EntityKind) String() string {
	switch k {
	case EntityParam:
		return "parameter"
	case EntityField:
		return "field"
	case EntityLocal:
		return "local"
	case EntityReturn:
		return "return value"
	}
	return "invalid"
}

// Entity is one pointer-typed construct the checker tracks. Immutable
// once built; the flow phase keeps its mutable state elsewhere.
type Entity struct {
	ID   EntityID
	Kind EntityKind
	Name source.StringID
	Decl source.Span
	Type ast.TypeRef
	Anns annot.Set

	// Owning container: exactly one is set.
	Func   ast.FuncID
	Struct ast.StructID

	// Tag is the effective ownership tag after defaults are applied
	// (implicit Guarded for bare params, implicit Owner for fields a
	// destructor releases). TagInvalid for locals until they bind.
	Tag      annot.Tag
	Implicit bool

	// Target is the resolved ReleaseAfter/OwnerOf reference, if any.
	Target EntityID
}

// EdgeKind classifies ownership edges.
type EdgeKind uint8

const (
	EdgeInvalid EdgeKind = iota
	// EdgeTransfer moves release responsibility into a callee.
	EdgeTransfer
	// EdgeBorrow grants temporary access without transfer.
	EdgeBorrow
	// EdgeOwns relates a struct's field to its release obligation.
	EdgeOwns
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeTransfer:
		return "transfer"
	case EdgeBorrow:
		return "borrow"
	case EdgeOwns:
		return "owns"
	}
	return "invalid"
}

// Edge records one ownership relation discovered during the build.
type Edge struct {
	Kind EdgeKind
	From EntityID
	To   EntityID
	Site source.Span
}

func entityID(length int) EntityID {
	v, err := safecast.Conv[uint32](length)
	if err != nil {
		panic(err)
	}
	return EntityID(v)
}
