package lexer

import (
	"memlint/internal/diag"
	"memlint/internal/token"
)

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDec(b)
}

func isDec(b byte) bool {
	return b >= '0' && b <= '9'
}

func (lx *Lexer) scanIdentOrKeyword() token.Token {
	mark := lx.cursor.Mark()
	for !lx.cursor.EOF() && isIdentContinue(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	text := lx.cursor.Text(mark)
	kind := token.Ident
	if kw, ok := token.LookupKeyword(text); ok {
		kind = kw
	}
	return token.Token{Kind: kind, Span: lx.cursor.SpanFrom(mark), Text: text}
}

func (lx *Lexer) scanNumber() token.Token {
	mark := lx.cursor.Mark()
	kind := token.IntLit

	// Hex and octal prefixes are consumed but not distinguished.
	if lx.cursor.Peek() == '0' && (lx.cursor.PeekAt(1) == 'x' || lx.cursor.PeekAt(1) == 'X') {
		lx.cursor.Bump()
		lx.cursor.Bump()
		digits := 0
		for !lx.cursor.EOF() && isHex(lx.cursor.Peek()) {
			lx.cursor.Bump()
			digits++
		}
		if digits == 0 {
			sp := lx.cursor.SpanFrom(mark)
			lx.report(diag.LexBadNumber, sp, "hex literal with no digits")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Text(mark)}
		}
		lx.consumeIntSuffix()
		return token.Token{Kind: kind, Span: lx.cursor.SpanFrom(mark), Text: lx.cursor.Text(mark)}
	}

	for !lx.cursor.EOF() && isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	if lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		kind = token.FloatLit
		lx.cursor.Bump()
		for !lx.cursor.EOF() && isDec(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	}
	lx.consumeIntSuffix()
	return token.Token{Kind: kind, Span: lx.cursor.SpanFrom(mark), Text: lx.cursor.Text(mark)}
}

func (lx *Lexer) consumeIntSuffix() {
	for {
		b := lx.cursor.Peek()
		if b == 'u' || b == 'U' || b == 'l' || b == 'L' || b == 'f' || b == 'F' {
			lx.cursor.Bump()
			continue
		}
		return
	}
}

func isHex(b byte) bool {
	return isDec(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func (lx *Lexer) scanString() token.Token {
	mark := lx.cursor.Mark()
	lx.cursor.Bump() // opening quote
	for !lx.cursor.EOF() {
		b := lx.cursor.Bump()
		if b == '\\' && !lx.cursor.EOF() {
			lx.cursor.Bump()
			continue
		}
		if b == '"' {
			return token.Token{Kind: token.StringLit, Span: lx.cursor.SpanFrom(mark), Text: lx.cursor.Text(mark)}
		}
		if b == '\n' {
			break
		}
	}
	sp := lx.cursor.SpanFrom(mark)
	lx.report(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Text(mark)}
}

func (lx *Lexer) scanChar() token.Token {
	mark := lx.cursor.Mark()
	lx.cursor.Bump() // opening quote
	for !lx.cursor.EOF() {
		b := lx.cursor.Bump()
		if b == '\\' && !lx.cursor.EOF() {
			lx.cursor.Bump()
			continue
		}
		if b == '\'' {
			return token.Token{Kind: token.CharLit, Span: lx.cursor.SpanFrom(mark), Text: lx.cursor.Text(mark)}
		}
		if b == '\n' {
			break
		}
	}
	sp := lx.cursor.SpanFrom(mark)
	lx.report(diag.LexUnterminatedString, sp, "unterminated character literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Text(mark)}
}
