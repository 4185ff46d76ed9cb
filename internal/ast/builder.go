package ast

import (
	"fmt"

	"fortio.org/safecast"

	"memlint/internal/annot"
	"memlint/internal/source"
)

// Builder owns the node arenas for one translation unit. Index 0 of
// every arena is a zero sentinel.
type Builder struct {
	Interner *source.Interner

	exprs   []Expr
	stmts   []Stmt
	params  []Param
	fields  []Field
	funcs   []Func
	structs []Struct

	Unit Unit
}

// NewBuilder creates an empty builder sharing the given interner.
func NewBuilder(interner *source.Interner) *Builder {
	if interner == nil {
		interner = source.NewInterner()
	}
	return &Builder{
		Interner: interner,
		exprs:    make([]Expr, 1),
		stmts:    make([]Stmt, 1),
		params:   make([]Param, 1),
		fields:   make([]Field, 1),
		funcs:    make([]Func, 1),
		structs:  make([]Struct, 1),
	}
}

func arenaID[T ~uint32](length int) T {
	v, err := safecast.Conv[uint32](length)
	if err != nil {
		panic(fmt.Errorf("arena overflow: %w", err))
	}
	return T(v)
}

// AddExpr appends an expression node.
func (b *Builder) AddExpr(e Expr) ExprID {
	id := arenaID[ExprID](len(b.exprs))
	b.exprs = append(b.exprs, e)
	return id
}

// AddStmt appends a statement node.
func (b *Builder) AddStmt(s Stmt) StmtID {
	id := arenaID[StmtID](len(b.stmts))
	b.stmts = append(b.stmts, s)
	return id
}

// AddParam appends a parameter.
func (b *Builder) AddParam(p Param) ParamID {
	id := arenaID[ParamID](len(b.params))
	b.params = append(b.params, p)
	return id
}

// AddField appends a field.
func (b *Builder) AddField(f Field) FieldID {
	id := arenaID[FieldID](len(b.fields))
	b.fields = append(b.fields, f)
	return id
}

// AddFunc appends a function and records it in the unit.
func (b *Builder) AddFunc(f Func) FuncID {
	id := arenaID[FuncID](len(b.funcs))
	b.funcs = append(b.funcs, f)
	b.Unit.Funcs = append(b.Unit.Funcs, id)
	return id
}

// AddStruct appends a struct and records it in the unit.
func (b *Builder) AddStruct(s Struct) StructID {
	id := arenaID[StructID](len(b.structs))
	b.structs = append(b.structs, s)
	b.Unit.Structs = append(b.Unit.Structs, id)
	return id
}

// Expr returns the node for id, or nil for the sentinel.
func (b *Builder) Expr(id ExprID) *Expr {
	if !id.IsValid() || int(id) >= len(b.exprs) {
		return nil
	}
	return &b.exprs[id]
}

// Stmt returns the node for id, or nil for the sentinel.
func (b *Builder) Stmt(id StmtID) *Stmt {
	if !id.IsValid() || int(id) >= len(b.stmts) {
		return nil
	}
	return &b.stmts[id]
}

// Param returns the node for id, or nil for the sentinel.
func (b *Builder) Param(id ParamID) *Param {
	if !id.IsValid() || int(id) >= len(b.params) {
		return nil
	}
	return &b.params[id]
}

// Field returns the node for id, or nil for the sentinel.
func (b *Builder) Field(id FieldID) *Field {
	if !id.IsValid() || int(id) >= len(b.fields) {
		return nil
	}
	return &b.fields[id]
}

// Func returns the node for id, or nil for the sentinel.
func (b *Builder) Func(id FuncID) *Func {
	if !id.IsValid() || int(id) >= len(b.funcs) {
		return nil
	}
	return &b.funcs[id]
}

// Struct returns the node for id, or nil for the sentinel.
func (b *Builder) Struct(id StructID) *Struct {
	if !id.IsValid() || int(id) >= len(b.structs) {
		return nil
	}
	return &b.structs[id]
}

// Name is a shortcut for interner lookups in messages.
func (b *Builder) Name(id source.StringID) string {
	s, _ := b.Interner.Lookup(id)
	return s
}

// Helpers used by the parser and by package tests.

// NewIdent creates an identifier expression.
func (b *Builder) NewIdent(span source.Span, name source.StringID) ExprID {
	return b.AddExpr(Expr{Kind: ExprIdent, Span: span, Name: name})
}

// NewCall creates a direct call expression.
func (b *Builder) NewCall(span source.Span, callee source.StringID, args []ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprCall, Span: span, Name: callee, Args: args})
}

// NewUnary creates a unary expression.
func (b *Builder) NewUnary(span source.Span, op UnaryOp, x ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprUnary, Span: span, Un: op, X: x})
}

// NewBinary creates a binary expression.
func (b *Builder) NewBinary(span source.Span, op BinOp, x, y ExprID) ExprID {
	return b.AddExpr(Expr{Kind: ExprBinary, Span: span, Bin: op, X: x, Y: y})
}

// NewMember creates a member access expression (x.name or x->name).
func (b *Builder) NewMember(span source.Span, x ExprID, name source.StringID) ExprID {
	return b.AddExpr(Expr{Kind: ExprMember, Span: span, X: x, Name: name})
}

// NewDecl creates a local declaration statement.
func (b *Builder) NewDecl(span source.Span, name source.StringID, typ TypeRef, anns []annot.Annotation, init ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtDecl, Span: span, Name: name, Type: typ, Anns: anns, Init: init})
}

// NewExprStmt creates an expression statement.
func (b *Builder) NewExprStmt(span source.Span, x ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtExpr, Span: span, X: x})
}

// NewBlock creates a block statement.
func (b *Builder) NewBlock(span source.Span, items []StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtBlock, Span: span, Items: items})
}

// NewIf creates an if statement; els may be NoStmtID.
func (b *Builder) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtIf, Span: span, X: cond, Then: then, Else: els})
}

// NewReturn creates a return statement; x may be NoExprID.
func (b *Builder) NewReturn(span source.Span, x ExprID) StmtID {
	return b.AddStmt(Stmt{Kind: StmtReturn, Span: span, X: x})
}
