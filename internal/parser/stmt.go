package parser

import (
	"fmt"

	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/source"
	"memlint/internal/token"
)

func (p *Parser) parseBlock() ast.StmtID {
	open, _ := p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{'")
	var items []ast.StmtID
	for !p.at(token.RBrace) && !p.at(token.EOF) && !p.tooManyErrors() {
		if s := p.parseStmt(); s.IsValid() {
			items = append(items, s)
		}
	}
	closeTok, closed := p.expect(token.RBrace, diag.SynUnclosedBrace, "unterminated block")
	span := open.Span
	if closed {
		span = span.Cover(closeTok.Span)
	}
	return p.b.NewBlock(span, items)
}

func (p *Parser) parseStmt() ast.StmtID {
	switch {
	case p.at(token.Semicolon):
		tok := p.bump()
		return p.b.AddStmt(ast.Stmt{Kind: ast.StmtEmpty, Span: tok.Span})

	case p.at(token.LBrace):
		return p.parseBlock()

	case p.at(token.KwIf):
		return p.parseIf()

	case p.at(token.KwWhile):
		return p.parseWhile()

	case p.at(token.KwReturn):
		return p.parseReturn()

	case p.atDeclStart():
		return p.parseDeclStmt()

	default:
		start := p.cur().Span
		x := p.parseExpr()
		if !x.IsValid() {
			p.skipTo(token.Semicolon, token.RBrace)
			return ast.NoStmtID
		}
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after expression")
		return p.b.NewExprStmt(start.Cover(p.prevSpan()), x)
	}
}

// atDeclStart reports whether the current token can only begin a local
// declaration. Identifiers never do: typedef names are outside the
// subset, so `foo * bar;` parses as an expression.
func (p *Parser) atDeclStart() bool {
	k := p.cur().Kind
	return k.IsAnnotation() || k.IsTypeKeyword() || k == token.KwStatic
}

func (p *Parser) parseDeclStmt() ast.StmtID {
	start := p.cur().Span
	anns := p.parseAnnotations()
	for p.at(token.KwStatic) {
		p.bump()
	}
	anns = append(anns, p.parseAnnotations()...)

	tr, ok := p.parseType()
	if !ok {
		p.skipTo(token.Semicolon, token.RBrace)
		return ast.NoStmtID
	}
	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected variable name")
	if !ok {
		p.skipTo(token.Semicolon, token.RBrace)
		return ast.NoStmtID
	}
	if p.at(token.LBracket) {
		p.skipTo(token.RBracket)
	}

	init := ast.NoExprID
	if p.at(token.Assign) {
		p.bump()
		init = p.parseExpr()
		if !init.IsValid() {
			p.skipTo(token.Semicolon, token.RBrace)
			return ast.NoStmtID
		}
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after declaration")

	name := p.b.Interner.Intern(nameTok.Text)
	return p.b.NewDecl(start.Cover(p.prevSpan()), name, tr, anns, init)
}

func (p *Parser) parseIf() ast.StmtID {
	start := p.bump().Span // if
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after if")
	cond := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedParen, "unterminated if condition")

	then := p.parseStmt()
	els := ast.NoStmtID
	if p.at(token.KwElse) {
		p.bump()
		els = p.parseStmt()
	}
	return p.b.NewIf(start.Cover(p.prevSpan()), cond, then, els)
}

func (p *Parser) parseWhile() ast.StmtID {
	start := p.bump().Span // while
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after while")
	cond := p.parseExpr()
	p.expect(token.RParen, diag.SynUnclosedParen, "unterminated while condition")

	body := p.parseStmt()
	return p.b.AddStmt(ast.Stmt{
		Kind: ast.StmtWhile,
		Span: start.Cover(p.prevSpan()),
		X:    cond,
		Body: body,
	})
}

func (p *Parser) parseReturn() ast.StmtID {
	start := p.bump().Span // return
	x := ast.NoExprID
	if !p.at(token.Semicolon) {
		x = p.parseExpr()
		if !x.IsValid() {
			p.skipTo(token.Semicolon, token.RBrace)
			return ast.NoStmtID
		}
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after return")
	return p.b.NewReturn(start.Cover(p.prevSpan()), x)
}

// parseExpr is the entry point; assignment binds loosest and
// associates right.
func (p *Parser) parseExpr() ast.ExprID {
	lhs := p.parseOr()
	if !lhs.IsValid() {
		return ast.NoExprID
	}

	var op ast.BinOp
	switch p.cur().Kind {
	case token.Assign:
		op = ast.BinAssign
	case token.PlusAssign:
		op = ast.BinAddAssign
	case token.MinusAssign:
		op = ast.BinSubAssign
	default:
		return lhs
	}
	p.bump()
	rhs := p.parseExpr()
	if !rhs.IsValid() {
		return ast.NoExprID
	}
	return p.b.NewBinary(p.exprSpan(lhs).Cover(p.prevSpan()), op, lhs, rhs)
}

func (p *Parser) parseOr() ast.ExprID {
	return p.parseBinaryLevel(p.parseAnd, map[token.Kind]ast.BinOp{
		token.PipePipe: ast.BinOr,
	})
}

func (p *Parser) parseAnd() ast.ExprID {
	return p.parseBinaryLevel(p.parseEquality, map[token.Kind]ast.BinOp{
		token.AmpAmp: ast.BinAnd,
	})
}

func (p *Parser) parseEquality() ast.ExprID {
	return p.parseBinaryLevel(p.parseRelational, map[token.Kind]ast.BinOp{
		token.EqEq:   ast.BinEq,
		token.BangEq: ast.BinNe,
	})
}

func (p *Parser) parseRelational() ast.ExprID {
	return p.parseBinaryLevel(p.parseAdditive, map[token.Kind]ast.BinOp{
		token.Lt:   ast.BinLt,
		token.LtEq: ast.BinLe,
		token.Gt:   ast.BinGt,
		token.GtEq: ast.BinGe,
	})
}

func (p *Parser) parseAdditive() ast.ExprID {
	return p.parseBinaryLevel(p.parseMultiplicative, map[token.Kind]ast.BinOp{
		token.Plus:  ast.BinAdd,
		token.Minus: ast.BinSub,
	})
}

func (p *Parser) parseMultiplicative() ast.ExprID {
	return p.parseBinaryLevel(p.parseUnary, map[token.Kind]ast.BinOp{
		token.Star:    ast.BinMul,
		token.Slash:   ast.BinDiv,
		token.Percent: ast.BinRem,
	})
}

func (p *Parser) parseBinaryLevel(next func() ast.ExprID, ops map[token.Kind]ast.BinOp) ast.ExprID {
	lhs := next()
	for lhs.IsValid() {
		op, found := ops[p.cur().Kind]
		if !found {
			return lhs
		}
		p.bump()
		rhs := next()
		if !rhs.IsValid() {
			return ast.NoExprID
		}
		lhs = p.b.NewBinary(p.exprSpan(lhs).Cover(p.prevSpan()), op, lhs, rhs)
	}
	return lhs
}

func (p *Parser) parseUnary() ast.ExprID {
	switch p.cur().Kind {
	case token.Star:
		tok := p.bump()
		x := p.parseUnary()
		if !x.IsValid() {
			return ast.NoExprID
		}
		return p.b.NewUnary(tok.Span.Cover(p.exprSpan(x)), ast.UnaryDeref, x)
	case token.Amp:
		tok := p.bump()
		x := p.parseUnary()
		if !x.IsValid() {
			return ast.NoExprID
		}
		return p.b.NewUnary(tok.Span.Cover(p.exprSpan(x)), ast.UnaryAddr, x)
	case token.Minus:
		tok := p.bump()
		x := p.parseUnary()
		if !x.IsValid() {
			return ast.NoExprID
		}
		return p.b.NewUnary(tok.Span.Cover(p.exprSpan(x)), ast.UnaryNeg, x)
	case token.Bang:
		tok := p.bump()
		x := p.parseUnary()
		if !x.IsValid() {
			return ast.NoExprID
		}
		return p.b.NewUnary(tok.Span.Cover(p.exprSpan(x)), ast.UnaryNot, x)
	case token.PlusPlus:
		tok := p.bump()
		x := p.parseUnary()
		if !x.IsValid() {
			return ast.NoExprID
		}
		return p.b.NewUnary(tok.Span.Cover(p.exprSpan(x)), ast.UnaryInc, x)
	case token.MinusMinus:
		tok := p.bump()
		x := p.parseUnary()
		if !x.IsValid() {
			return ast.NoExprID
		}
		return p.b.NewUnary(tok.Span.Cover(p.exprSpan(x)), ast.UnaryDec, x)

	case token.KwSizeof:
		return p.parseSizeof()

	case token.LParen:
		// A parenthesized type is a cast; ownership does not change
		// across one, so the operand passes through unwrapped.
		if p.peek(1).Kind.IsTypeKeyword() {
			p.bump()
			p.parseType()
			p.expect(token.RParen, diag.SynUnclosedParen, "unterminated cast")
			return p.parseUnary()
		}
		return p.parsePostfix()

	default:
		return p.parsePostfix()
	}
}

// parseSizeof consumes sizeof with either a parenthesized operand or a
// unary expression. The operand's value never matters to the checker,
// so a parenthesized one is skipped token-wise.
func (p *Parser) parseSizeof() ast.ExprID {
	tok := p.bump() // sizeof
	span := tok.Span
	if p.at(token.LParen) {
		depth := 0
		for !p.at(token.EOF) {
			switch p.cur().Kind {
			case token.LParen:
				depth++
			case token.RParen:
				depth--
			}
			span = span.Cover(p.bump().Span)
			if depth == 0 {
				break
			}
		}
		if depth != 0 {
			p.errorAt(diag.SynUnclosedParen, span, "unterminated sizeof operand")
		}
	} else {
		x := p.parseUnary()
		if x.IsValid() {
			span = span.Cover(p.exprSpan(x))
		}
	}
	return p.b.AddExpr(ast.Expr{Kind: ast.ExprSizeof, Span: span})
}

func (p *Parser) parsePostfix() ast.ExprID {
	e := p.parsePrimary()
	for e.IsValid() {
		switch p.cur().Kind {
		case token.LParen:
			e = p.parseCall(e)

		case token.Arrow, token.Dot:
			p.bump()
			nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected member name")
			if !ok {
				return ast.NoExprID
			}
			name := p.b.Interner.Intern(nameTok.Text)
			e = p.b.NewMember(p.exprSpan(e).Cover(nameTok.Span), e, name)

		case token.LBracket:
			p.bump()
			idx := p.parseExpr()
			if !idx.IsValid() {
				return ast.NoExprID
			}
			closeTok, _ := p.expect(token.RBracket, diag.SynUnexpectedToken, "expected ']'")
			e = p.b.AddExpr(ast.Expr{
				Kind: ast.ExprIndex,
				Span: p.exprSpan(e).Cover(closeTok.Span),
				X:    e,
				Y:    idx,
			})

		case token.PlusPlus:
			tok := p.bump()
			e = p.b.NewUnary(p.exprSpan(e).Cover(tok.Span), ast.UnaryInc, e)

		case token.MinusMinus:
			tok := p.bump()
			e = p.b.NewUnary(p.exprSpan(e).Cover(tok.Span), ast.UnaryDec, e)

		default:
			return e
		}
	}
	return e
}

func (p *Parser) parseCall(callee ast.ExprID) ast.ExprID {
	p.bump() // (
	var args []ast.ExprID
	if !p.at(token.RParen) {
		for {
			a := p.parseExpr()
			if !a.IsValid() {
				p.skipTo(token.RParen, token.Semicolon)
				return ast.NoExprID
			}
			args = append(args, a)
			if !p.at(token.Comma) {
				break
			}
			p.bump()
		}
	}
	closeTok, _ := p.expect(token.RParen, diag.SynUnclosedParen, "unterminated call")
	span := p.exprSpan(callee).Cover(closeTok.Span)

	// Direct calls carry the callee name; anything else (calls through
	// members or derefs) keeps the callee expression and resolves to
	// an unknown symbol downstream.
	if ce := p.b.Expr(callee); ce != nil && ce.Kind == ast.ExprIdent {
		return p.b.NewCall(span, ce.Name, args)
	}
	return p.b.AddExpr(ast.Expr{Kind: ast.ExprCall, Span: span, X: callee, Args: args})
}

func (p *Parser) parsePrimary() ast.ExprID {
	tok := p.cur()
	switch tok.Kind {
	case token.Ident:
		p.bump()
		return p.b.NewIdent(tok.Span, p.b.Interner.Intern(tok.Text))

	case token.KwNull:
		p.bump()
		return p.b.AddExpr(ast.Expr{Kind: ast.ExprNull, Span: tok.Span})

	case token.IntLit:
		p.bump()
		return p.b.AddExpr(ast.Expr{Kind: ast.ExprIntLit, Span: tok.Span, Text: p.b.Interner.Intern(tok.Text)})

	case token.FloatLit:
		p.bump()
		return p.b.AddExpr(ast.Expr{Kind: ast.ExprFloatLit, Span: tok.Span, Text: p.b.Interner.Intern(tok.Text)})

	case token.CharLit:
		p.bump()
		return p.b.AddExpr(ast.Expr{Kind: ast.ExprCharLit, Span: tok.Span, Text: p.b.Interner.Intern(tok.Text)})

	case token.StringLit:
		p.bump()
		return p.b.AddExpr(ast.Expr{Kind: ast.ExprStrLit, Span: tok.Span, Text: p.b.Interner.Intern(tok.Text)})

	case token.LParen:
		p.bump()
		e := p.parseExpr()
		p.expect(token.RParen, diag.SynUnclosedParen, "unterminated parenthesized expression")
		return e

	default:
		p.errorAt(diag.SynUnexpectedToken, tok.Span,
			fmt.Sprintf("unexpected %s in expression", tok.Kind))
		p.bump()
		return ast.NoExprID
	}
}

func (p *Parser) exprSpan(id ast.ExprID) source.Span {
	if e := p.b.Expr(id); e != nil {
		return e.Span
	}
	return p.cur().Span
}
