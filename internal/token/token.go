package token

import (
	"memlint/internal/source"
)

// Token represents a single source token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsLiteral reports whether the token is a literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, CharLit, StringLit:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a C keyword or an annotation
// keyword.
func (t Token) IsKeyword() bool {
	if t.Kind.IsAnnotation() {
		return true
	}
	switch t.Kind {
	case KwStruct, KwIf, KwElse, KwWhile, KwReturn, KwVoid, KwConst,
		KwStatic, KwUnsigned, KwInt, KwChar, KwLong, KwShort, KwFloat,
		KwDouble, KwSizeof, KwTypedef, KwNull:
		return true
	default:
		return false
	}
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }
