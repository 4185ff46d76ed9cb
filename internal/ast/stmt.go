package ast

import (
	"memlint/internal/annot"
	"memlint/internal/source"
)

// StmtKind discriminates statement nodes.
type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtBlock
	StmtDecl
	StmtExpr
	StmtIf
	StmtWhile
	StmtReturn
	StmtEmpty
)

// Stmt is one statement node. Fields are populated per Kind:
// Items for blocks; Name/Type/Anns/Init for local declarations;
// X for expression statements, conditions and return values;
// Then/Else/Body for control flow.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	Items []StmtID

	Name source.StringID
	Type TypeRef
	Anns []annot.Annotation
	Init ExprID

	X    ExprID
	Then StmtID
	Else StmtID
	Body StmtID
}
