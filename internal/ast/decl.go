package ast

import (
	"memlint/internal/annot"
	"memlint/internal/source"
)

// Param is one function parameter.
type Param struct {
	Name source.StringID
	Span source.Span
	Type TypeRef
	Anns []annot.Annotation
}

// Field is one struct field.
type Field struct {
	Name source.StringID
	Span source.Span
	Type TypeRef
	Anns []annot.Annotation
}

// Struct is one struct declaration with its fields.
type Struct struct {
	Name   source.StringID
	Span   source.Span
	Fields []FieldID
}

// Func is one function declaration or definition.
type Func struct {
	Name    source.StringID
	Span    source.Span
	Params  []ParamID
	Ret     TypeRef
	RetAnns []annot.Annotation
	Body    StmtID // NoStmtID for a declaration without body
	Static  bool
}

// IsDefinition reports whether the function has a body to analyze.
func (f *Func) IsDefinition() bool { return f.Body.IsValid() }

// Unit is one parsed translation unit.
type Unit struct {
	File    source.FileID
	Funcs   []FuncID
	Structs []StructID
}
