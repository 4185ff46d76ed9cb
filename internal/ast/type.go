package ast

import (
	"strings"

	"memlint/internal/source"
)

// TypeRef is a flattened C type reference: base name plus pointer
// depth. Enough for ownership tracking; the checker needs pointers,
// not a full type system.
type TypeRef struct {
	Name     source.StringID // "int", "char" or the struct tag name
	IsStruct bool
	Const    bool
	Ptr      uint8 // pointer depth; 0 = value type
}

// IsPointer reports whether the type can carry ownership.
func (t TypeRef) IsPointer() bool { return t.Ptr > 0 }

// Format renders the type for messages, e.g. "struct buf *".
func (t TypeRef) Format(interner *source.Interner) string {
	var sb strings.Builder
	if t.Const {
		sb.WriteString("const ")
	}
	if t.IsStruct {
		sb.WriteString("struct ")
	}
	name, _ := interner.Lookup(t.Name)
	sb.WriteString(name)
	if t.Ptr > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Repeat("*", int(t.Ptr)))
	}
	return sb.String()
}
