package ast

import (
	"memlint/internal/source"
)

// ExprKind discriminates expression nodes.
type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprIdent
	ExprIntLit
	ExprFloatLit
	ExprCharLit
	ExprStrLit
	ExprNull
	ExprCall
	ExprUnary
	ExprBinary
	ExprMember
	ExprIndex
	ExprSizeof
)

// UnaryOp enumerates unary operators the checker cares about.
type UnaryOp uint8

const (
	UnaryInvalid UnaryOp = iota
	UnaryDeref           // *p
	UnaryAddr            // &x
	UnaryInc             // p++ / ++p
	UnaryDec             // p-- / --p
	UnaryNeg             // -x
	UnaryNot             // !x
)

// BinOp enumerates binary operators.
type BinOp uint8

const (
	BinInvalid BinOp = iota
	BinAssign
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinRem
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
	BinAddAssign // p += n adjusts the pointer like p++
	BinSubAssign
)

// Expr is one expression node. Fields are populated per Kind:
// Name for idents, members and direct-call callees; X/Y for operands;
// Args for call arguments; Text for literal spellings.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Name source.StringID
	X    ExprID
	Y    ExprID
	Args []ExprID
	Un   UnaryOp
	Bin  BinOp
	Text source.StringID
}

// IsAdjusting reports whether the expression moves a pointer off its
// original allocation (++/--/+=/-=).
func (e *Expr) IsAdjusting() bool {
	if e.Kind == ExprUnary && (e.Un == UnaryInc || e.Un == UnaryDec) {
		return true
	}
	if e.Kind == ExprBinary && (e.Bin == BinAddAssign || e.Bin == BinSubAssign) {
		return true
	}
	return false
}
