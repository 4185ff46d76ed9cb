// Package parser turns the token stream into the per-file unit the
// ownership builder consumes. It is a recursive-descent parser over
// the annotated C subset: struct declarations, function declarations
// and definitions, and statement bodies. Anything outside the subset
// (typedefs, globals) is skipped without failing the file.
package parser

import (
	"fmt"
	"strings"

	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/lexer"
	"memlint/internal/source"
	"memlint/internal/token"
)

// Options controls parsing for one file.
type Options struct {
	Reporter diag.Reporter
	// MaxErrors aborts the file after this many syntax errors.
	// Zero means no limit.
	MaxErrors uint
}

// Parser consumes a pre-lexed token slice. Buffering the whole file
// keeps lookahead trivial; the subset never needs more than three
// tokens of it.
type Parser struct {
	file *source.File
	b    *ast.Builder
	toks []token.Token
	pos  int
	opts Options
	errs uint
}

// ParseFile lexes and parses one file into the builder, returning the
// unit. Syntax errors go to the reporter; the parser recovers and
// keeps going so one bad declaration does not hide the rest.
func ParseFile(file *source.File, b *ast.Builder, opts Options) ast.Unit {
	lx := lexer.New(file, lexer.Options{Reporter: opts.Reporter})
	p := &Parser{
		file: file,
		b:    b,
		toks: lx.Tokens(),
		opts: opts,
	}
	p.b.Unit.File = file.ID
	p.parseUnit()
	return p.b.Unit
}

func (p *Parser) parseUnit() {
	for !p.at(token.EOF) && !p.tooManyErrors() {
		anns := p.parseAnnotations()
		switch {
		case p.at(token.KwTypedef):
			p.skipTo(token.Semicolon)

		case p.at(token.KwStruct) && p.peek(1).Kind == token.Ident &&
			(p.peek(2).Kind == token.LBrace || p.peek(2).Kind == token.Semicolon):
			p.parseStructDecl()

		case p.at(token.KwStatic) || p.cur().Kind.IsTypeKeyword() || p.cur().Kind.IsAnnotation():
			p.parseFuncOrGlobal(anns)

		default:
			p.errorAt(diag.SynUnexpectedTopLevel, p.cur().Span,
				fmt.Sprintf("unexpected %s at top level", p.cur().Kind))
			p.skipTo(token.Semicolon, token.RBrace)
		}
	}
}

// parseStructDecl handles `struct name { fields } ;` and the bodyless
// forward declaration `struct name ;`.
func (p *Parser) parseStructDecl() {
	start := p.bump().Span // struct
	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected struct name")
	if !ok {
		p.skipTo(token.Semicolon, token.RBrace)
		return
	}
	name := p.b.Interner.Intern(nameTok.Text)

	if p.at(token.Semicolon) {
		p.bump()
		return // forward declaration carries no fields
	}

	p.expect(token.LBrace, diag.SynUnexpectedToken, "expected '{' in struct declaration")
	var fields []ast.FieldID
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		if fid, ok := p.parseField(); ok {
			fields = append(fields, fid)
		}
	}
	endTok, closed := p.expect(token.RBrace, diag.SynUnclosedBrace, "unterminated struct declaration")
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after struct declaration")

	span := start
	if closed {
		span = start.Cover(endTok.Span)
	}
	p.b.AddStruct(ast.Struct{Name: name, Span: span, Fields: fields})
}

func (p *Parser) parseField() (ast.FieldID, bool) {
	anns := p.parseAnnotations()
	tr, ok := p.parseType()
	if !ok {
		p.recoverField()
		return ast.NoFieldID, false
	}
	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected field name")
	if !ok {
		p.recoverField()
		return ast.NoFieldID, false
	}
	// Fixed-size array suffix; the extent does not matter for
	// ownership, only the declaration does.
	if p.at(token.LBracket) {
		p.skipTo(token.RBracket)
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';' after field")

	fid := p.b.AddField(ast.Field{
		Name: p.b.Interner.Intern(nameTok.Text),
		Span: nameTok.Span,
		Type: tr,
		Anns: anns,
	})
	return fid, true
}

// parseFuncOrGlobal parses a declaration that starts with a type:
// either a function (declaration or definition) or a file-scope
// variable, which the checker skips.
func (p *Parser) parseFuncOrGlobal(anns []annot.Annotation) {
	static := false
	for p.at(token.KwStatic) {
		static = true
		p.bump()
	}
	anns = append(anns, p.parseAnnotations()...)

	ret, ok := p.parseType()
	if !ok {
		p.skipTo(token.Semicolon, token.RBrace)
		return
	}
	nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected declaration name")
	if !ok {
		p.skipTo(token.Semicolon, token.RBrace)
		return
	}

	if !p.at(token.LParen) {
		// File-scope variable; not part of the analyzed subset.
		p.skipTo(token.Semicolon)
		return
	}

	params := p.parseParams()

	fn := ast.Func{
		Name:    p.b.Interner.Intern(nameTok.Text),
		Span:    nameTok.Span,
		Params:  params,
		Ret:     ret,
		RetAnns: anns,
		Static:  static,
	}

	switch {
	case p.at(token.Semicolon):
		p.bump()
	case p.at(token.LBrace):
		fn.Body = p.parseBlock()
	default:
		p.errorAt(diag.SynUnexpectedToken, p.cur().Span,
			fmt.Sprintf("expected ';' or function body, found %s", p.cur().Kind))
		p.skipTo(token.Semicolon, token.RBrace)
	}
	p.b.AddFunc(fn)
}

func (p *Parser) parseParams() []ast.ParamID {
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' in parameter list")

	if p.at(token.KwVoid) && p.peek(1).Kind == token.RParen {
		p.bump()
		p.bump()
		return nil
	}
	if p.at(token.RParen) {
		p.bump()
		return nil
	}

	var params []ast.ParamID
	for {
		anns := p.parseAnnotations()
		tr, ok := p.parseType()
		if !ok {
			p.skipTo(token.Comma, token.RParen)
		} else {
			prm := ast.Param{Type: tr, Anns: anns, Span: p.cur().Span}
			if p.at(token.Ident) {
				nameTok := p.bump()
				prm.Name = p.b.Interner.Intern(nameTok.Text)
				prm.Span = nameTok.Span
			}
			params = append(params, p.b.AddParam(prm))
		}
		if !p.at(token.Comma) {
			break
		}
		p.bump()
	}
	p.expect(token.RParen, diag.SynUnclosedParen, "unterminated parameter list")
	return params
}

// parseAnnotations consumes a run of memory_* keywords, each with an
// optional (target) argument. Legality of the combination is checked
// later, at graph construction; the parser only records what it saw.
func (p *Parser) parseAnnotations() []annot.Annotation {
	var anns []annot.Annotation
	for p.cur().Kind.IsAnnotation() {
		tok := p.bump()
		tag, _ := annot.TagForKeyword(tok.Kind)
		a := annot.Annotation{Tag: tag, Span: tok.Span}

		if p.at(token.LParen) {
			p.bump()
			if !tag.TakesTarget() {
				p.errorAt(diag.SynBadAnnotationArg, tok.Span,
					fmt.Sprintf("%s does not take an argument", tag))
				p.skipTo(token.RParen)
			} else if idTok, ok := p.expect(token.Ident, diag.SynBadAnnotationArg,
				fmt.Sprintf("%s requires a declaration name", tag)); ok {
				a.Target = p.b.Interner.Intern(idTok.Text)
				p.expect(token.RParen, diag.SynUnclosedParen, "unterminated annotation argument")
			} else {
				p.skipTo(token.RParen)
			}
		} else if tag.TakesTarget() {
			p.errorAt(diag.SynBadAnnotationArg, tok.Span,
				fmt.Sprintf("%s requires a (target) argument", tag))
		}

		anns = append(anns, a)
	}
	return anns
}

// parseType parses a flattened C type: qualifiers, a base (struct tag
// or builtin word sequence), then pointer stars.
func (p *Parser) parseType() (ast.TypeRef, bool) {
	var tr ast.TypeRef
	for p.at(token.KwConst) {
		tr.Const = true
		p.bump()
	}

	switch {
	case p.at(token.KwStruct):
		p.bump()
		nameTok, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected struct tag")
		if !ok {
			return tr, false
		}
		tr.IsStruct = true
		tr.Name = p.b.Interner.Intern(nameTok.Text)

	case p.atBuiltinType():
		var words []string
		for p.atBuiltinType() {
			words = append(words, p.bump().Text)
		}
		tr.Name = p.b.Interner.Intern(strings.Join(words, " "))

	default:
		p.errorAt(diag.SynExpectType, p.cur().Span,
			fmt.Sprintf("expected type, found %s", p.cur().Kind))
		return tr, false
	}

	for p.at(token.KwConst) {
		tr.Const = true
		p.bump()
	}
	for p.at(token.Star) {
		tr.Ptr++
		p.bump()
		for p.at(token.KwConst) {
			p.bump()
		}
	}
	return tr, true
}

func (p *Parser) atBuiltinType() bool {
	switch p.cur().Kind {
	case token.KwVoid, token.KwUnsigned, token.KwInt, token.KwChar,
		token.KwLong, token.KwShort, token.KwFloat, token.KwDouble:
		return true
	default:
		return false
	}
}

// Token stream plumbing.

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) peek(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) bump() token.Token {
	tok := p.cur()
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) prevSpan() source.Span {
	if p.pos == 0 {
		return p.cur().Span
	}
	return p.toks[p.pos-1].Span
}

func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.bump(), true
	}
	p.errorAt(code, p.cur().Span, msg)
	return p.cur(), false
}

func (p *Parser) errorAt(code diag.Code, span source.Span, msg string) {
	p.errs++
	diag.ReportError(p.opts.Reporter, code, span, msg).Emit()
}

func (p *Parser) tooManyErrors() bool {
	return p.opts.MaxErrors > 0 && p.errs >= p.opts.MaxErrors
}

// recoverField skips a malformed field: past the next ';', or up to
// but not including the struct's closing '}' so the field loop ends
// and the struct declaration can close normally.
func (p *Parser) recoverField() {
	for !p.at(token.EOF) && !p.at(token.RBrace) {
		if p.bump().Kind == token.Semicolon {
			return
		}
	}
}

// skipTo advances past the next occurrence of any of the given kinds,
// consuming it. It never crosses EOF.
func (p *Parser) skipTo(kinds ...token.Kind) {
	for !p.at(token.EOF) {
		k := p.cur().Kind
		for _, want := range kinds {
			if k == want {
				p.bump()
				return
			}
		}
		p.bump()
	}
}
