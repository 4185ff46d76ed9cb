package parser

import (
	"testing"

	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/source"
)

func parseSrc(t *testing.T, src string) (*ast.Builder, ast.Unit, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.c", []byte(src)))
	bag := diag.NewBag(64)
	b := ast.NewBuilder(nil)
	unit := ParseFile(file, b, Options{Reporter: diag.BagReporter{Bag: bag}})
	return b, unit, bag
}

func mustNoErrors(t *testing.T, bag *diag.Bag) {
	t.Helper()
	for _, f := range bag.Items() {
		t.Errorf("unexpected diagnostic: %s: %s", f.Code, f.Message)
	}
}

func TestParseStructWithAnnotatedFields(t *testing.T) {
	b, unit, bag := parseSrc(t, `
struct buf {
	memory_owner char *data;
	int len;
	memory_guarded struct pool *src;
};
`)
	mustNoErrors(t, bag)
	if len(unit.Structs) != 1 {
		t.Fatalf("structs: got %d, want 1", len(unit.Structs))
	}
	st := b.Struct(unit.Structs[0])
	if b.Name(st.Name) != "buf" {
		t.Fatalf("struct name: got %q", b.Name(st.Name))
	}
	if len(st.Fields) != 3 {
		t.Fatalf("fields: got %d, want 3", len(st.Fields))
	}

	data := b.Field(st.Fields[0])
	if b.Name(data.Name) != "data" || len(data.Anns) != 1 || data.Anns[0].Tag != annot.TagOwner {
		t.Fatalf("data field parsed wrong: %+v", data)
	}
	if data.Type.Ptr != 1 || data.Type.IsStruct {
		t.Fatalf("data type: %+v", data.Type)
	}

	length := b.Field(st.Fields[1])
	if b.Name(length.Name) != "len" || length.Type.IsPointer() || len(length.Anns) != 0 {
		t.Fatalf("len field parsed wrong: %+v", length)
	}

	src := b.Field(st.Fields[2])
	if src.Anns[0].Tag != annot.TagGuarded || !src.Type.IsStruct || b.Name(src.Type.Name) != "pool" {
		t.Fatalf("src field parsed wrong: %+v", src)
	}
}

func TestParseFuncDeclAndDef(t *testing.T) {
	b, unit, bag := parseSrc(t, `
void consume(memory_take_possession struct buf *b);

memory_owner struct buf *make_buf(unsigned long n)
{
	struct buf *b = malloc(sizeof(struct buf));
	return b;
}
`)
	mustNoErrors(t, bag)
	if len(unit.Funcs) != 2 {
		t.Fatalf("funcs: got %d, want 2", len(unit.Funcs))
	}

	decl := b.Func(unit.Funcs[0])
	if b.Name(decl.Name) != "consume" || decl.IsDefinition() {
		t.Fatalf("consume parsed wrong: %+v", decl)
	}
	prm := b.Param(decl.Params[0])
	if b.Name(prm.Name) != "b" || prm.Anns[0].Tag != annot.TagTakePossession {
		t.Fatalf("param parsed wrong: %+v", prm)
	}
	if !prm.Type.IsPointer() || !prm.Type.IsStruct {
		t.Fatalf("param type: %+v", prm.Type)
	}

	def := b.Func(unit.Funcs[1])
	if b.Name(def.Name) != "make_buf" || !def.IsDefinition() {
		t.Fatalf("make_buf parsed wrong: %+v", def)
	}
	if len(def.RetAnns) != 1 || def.RetAnns[0].Tag != annot.TagOwner {
		t.Fatalf("return annotations: %+v", def.RetAnns)
	}
	if b.Name(def.Ret.Name) != "buf" || def.Ret.Ptr != 1 {
		t.Fatalf("return type: %+v", def.Ret)
	}
	if b.Name(b.Param(def.Params[0]).Type.Name) != "unsigned long" {
		t.Fatalf("builtin word sequence lost: %+v", b.Param(def.Params[0]).Type)
	}

	body := b.Stmt(def.Body)
	if body.Kind != ast.StmtBlock || len(body.Items) != 2 {
		t.Fatalf("body: %+v", body)
	}
	decl0 := b.Stmt(body.Items[0])
	if decl0.Kind != ast.StmtDecl || b.Name(decl0.Name) != "b" {
		t.Fatalf("local decl: %+v", decl0)
	}
	init := b.Expr(decl0.Init)
	if init.Kind != ast.ExprCall || b.Name(init.Name) != "malloc" {
		t.Fatalf("init call: %+v", init)
	}
	if b.Expr(init.Args[0]).Kind != ast.ExprSizeof {
		t.Fatalf("sizeof arg: %+v", b.Expr(init.Args[0]))
	}
}

func TestParseAnnotationTarget(t *testing.T) {
	b, unit, bag := parseSrc(t, `
void copy_into(memory_release_after_of(dst) char *src, char *dst);
`)
	mustNoErrors(t, bag)
	fn := b.Func(unit.Funcs[0])
	prm := b.Param(fn.Params[0])
	if prm.Anns[0].Tag != annot.TagReleaseAfter {
		t.Fatalf("tag: %v", prm.Anns[0].Tag)
	}
	if b.Name(prm.Anns[0].Target) != "dst" {
		t.Fatalf("target: %q", b.Name(prm.Anns[0].Target))
	}
}

func TestParseShortAliases(t *testing.T) {
	b, unit, bag := parseSrc(t, `
void use(m_g char *p, m_t char *q, m_o_(p) char *r);
`)
	mustNoErrors(t, bag)
	fn := b.Func(unit.Funcs[0])
	tags := []annot.Tag{}
	for _, pid := range fn.Params {
		for _, a := range b.Param(pid).Anns {
			tags = append(tags, a.Tag)
		}
	}
	want := []annot.Tag{annot.TagGuarded, annot.TagTakePossession, annot.TagOwnerOf}
	if len(tags) != len(want) {
		t.Fatalf("tags: %v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tag %d: got %v, want %v", i, tags[i], want[i])
		}
	}
}

func TestParseControlFlow(t *testing.T) {
	b, unit, bag := parseSrc(t, `
void drain(struct buf *b)
{
	while (b->len > 0) {
		b->len--;
	}
	if (b != NULL) {
		free(b);
	} else {
		return;
	}
}
`)
	mustNoErrors(t, bag)
	body := b.Stmt(b.Func(unit.Funcs[0]).Body)
	if len(body.Items) != 2 {
		t.Fatalf("body items: %d", len(body.Items))
	}

	loop := b.Stmt(body.Items[0])
	if loop.Kind != ast.StmtWhile {
		t.Fatalf("loop: %+v", loop)
	}
	cond := b.Expr(loop.X)
	if cond.Kind != ast.ExprBinary || cond.Bin != ast.BinGt {
		t.Fatalf("loop cond: %+v", cond)
	}
	if b.Expr(cond.X).Kind != ast.ExprMember {
		t.Fatalf("loop cond lhs: %+v", b.Expr(cond.X))
	}

	branch := b.Stmt(body.Items[1])
	if branch.Kind != ast.StmtIf || !branch.Else.IsValid() {
		t.Fatalf("branch: %+v", branch)
	}
	bcond := b.Expr(branch.X)
	if bcond.Bin != ast.BinNe || b.Expr(bcond.Y).Kind != ast.ExprNull {
		t.Fatalf("branch cond: %+v", bcond)
	}
}

func TestParseCastIsTransparent(t *testing.T) {
	b, unit, bag := parseSrc(t, `
void init(void)
{
	struct buf *b = (struct buf *)malloc(64);
	free((void *)b);
}
`)
	mustNoErrors(t, bag)
	body := b.Stmt(b.Func(unit.Funcs[0]).Body)

	init := b.Expr(b.Stmt(body.Items[0]).Init)
	if init.Kind != ast.ExprCall || b.Name(init.Name) != "malloc" {
		t.Fatalf("cast must unwrap to the call: %+v", init)
	}

	freeCall := b.Expr(b.Stmt(body.Items[1]).X)
	if freeCall.Kind != ast.ExprCall || b.Name(freeCall.Name) != "free" {
		t.Fatalf("free call: %+v", freeCall)
	}
	if b.Expr(freeCall.Args[0]).Kind != ast.ExprIdent {
		t.Fatalf("cast arg must unwrap to the ident: %+v", b.Expr(freeCall.Args[0]))
	}
}

func TestParseAdjustingOperators(t *testing.T) {
	b, unit, bag := parseSrc(t, `
void walk(char *p)
{
	p++;
	p += 4;
	--p;
}
`)
	mustNoErrors(t, bag)
	body := b.Stmt(b.Func(unit.Funcs[0]).Body)
	for i, id := range body.Items {
		x := b.Expr(b.Stmt(id).X)
		if !x.IsAdjusting() {
			t.Errorf("stmt %d must be adjusting: %+v", i, x)
		}
	}
}

func TestParseRecoversAfterBadDecl(t *testing.T) {
	b, unit, bag := parseSrc(t, `
struct bad { oops };
void ok(void) { }
`)
	if bag.Len() == 0 {
		t.Fatal("expected syntax errors")
	}
	found := false
	for _, id := range unit.Funcs {
		if b.Name(b.Func(id).Name) == "ok" {
			found = true
		}
	}
	if !found {
		t.Fatal("parser failed to recover past the bad struct")
	}
}

func TestParseBadFieldKeepsStructAndLaterFields(t *testing.T) {
	b, unit, bag := parseSrc(t, `
struct s {
	oops;
	memory_owner char *data;
};
void after(void) { }
`)
	if bag.Len() == 0 {
		t.Fatal("expected syntax errors")
	}
	if len(unit.Structs) != 1 {
		t.Fatalf("structs: got %d, want 1", len(unit.Structs))
	}
	st := b.Struct(unit.Structs[0])
	if len(st.Fields) != 1 || b.Name(b.Field(st.Fields[0]).Name) != "data" {
		t.Fatalf("field after the bad one lost: %+v", st.Fields)
	}
	if len(unit.Funcs) != 1 || b.Name(b.Func(unit.Funcs[0]).Name) != "after" {
		t.Fatalf("declaration after the struct lost: %+v", unit.Funcs)
	}
}

func TestParseSkipsPreprocessorAndTypedef(t *testing.T) {
	_, unit, bag := parseSrc(t, `
#include <stdlib.h>
#define LIMIT 10
typedef unsigned long size_t;

void ok(void) { }
`)
	mustNoErrors(t, bag)
	if len(unit.Funcs) != 1 {
		t.Fatalf("funcs: got %d, want 1", len(unit.Funcs))
	}
}
