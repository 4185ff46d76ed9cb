package lexer

import (
	"fmt"

	"memlint/internal/diag"
	"memlint/internal/token"
)

func (lx *Lexer) scanOperatorOrPunct() token.Token {
	mark := lx.cursor.Mark()
	b := lx.cursor.Bump()

	mk := func(kind token.Kind) token.Token {
		return token.Token{Kind: kind, Span: lx.cursor.SpanFrom(mark), Text: lx.cursor.Text(mark)}
	}
	two := func(next byte, with, without token.Kind) token.Token {
		if lx.cursor.Peek() == next {
			lx.cursor.Bump()
			return mk(with)
		}
		return mk(without)
	}

	switch b {
	case '+':
		if lx.cursor.Peek() == '+' {
			lx.cursor.Bump()
			return mk(token.PlusPlus)
		}
		return two('=', token.PlusAssign, token.Plus)
	case '-':
		switch lx.cursor.Peek() {
		case '-':
			lx.cursor.Bump()
			return mk(token.MinusMinus)
		case '>':
			lx.cursor.Bump()
			return mk(token.Arrow)
		case '=':
			lx.cursor.Bump()
			return mk(token.MinusAssign)
		}
		return mk(token.Minus)
	case '*':
		return mk(token.Star)
	case '/':
		return mk(token.Slash)
	case '%':
		return mk(token.Percent)
	case '=':
		return two('=', token.EqEq, token.Assign)
	case '!':
		return two('=', token.BangEq, token.Bang)
	case '<':
		return two('=', token.LtEq, token.Lt)
	case '>':
		return two('=', token.GtEq, token.Gt)
	case '&':
		return two('&', token.AmpAmp, token.Amp)
	case '|':
		return two('|', token.PipePipe, token.Pipe)
	case '.':
		return mk(token.Dot)
	case ',':
		return mk(token.Comma)
	case ';':
		return mk(token.Semicolon)
	case '(':
		return mk(token.LParen)
	case ')':
		return mk(token.RParen)
	case '{':
		return mk(token.LBrace)
	case '}':
		return mk(token.RBrace)
	case '[':
		return mk(token.LBracket)
	case ']':
		return mk(token.RBracket)
	}

	sp := lx.cursor.SpanFrom(mark)
	lx.report(diag.LexUnknownChar, sp, fmt.Sprintf("unknown character %q", b))
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.cursor.Text(mark)}
}
