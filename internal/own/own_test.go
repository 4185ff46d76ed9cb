package own

import (
	"errors"
	"testing"

	"memlint/internal/annot"
	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/parser"
	"memlint/internal/source"
)

func buildSrc(t *testing.T, src string) (*Graph, *ast.Builder, *diag.Bag, error) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.c", []byte(src)))
	bag := diag.NewBag(64)
	rep := diag.BagReporter{Bag: bag}
	b := ast.NewBuilder(nil)
	parser.ParseFile(file, b, parser.Options{Reporter: rep})
	if bag.HasErrors() {
		t.Fatalf("parse errors: %+v", bag.Items())
	}
	g, err := Build(b, Options{Reporter: rep})
	return g, b, bag, err
}

func mustBuild(t *testing.T, src string) (*Graph, *ast.Builder, *diag.Bag) {
	t.Helper()
	g, b, bag, err := buildSrc(t, src)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g, b, bag
}

func TestImplicitGuardedParam(t *testing.T) {
	g, b, _ := mustBuild(t, `
void use(char *p);
`)
	fid, ok := g.FuncByName(b.Interner.Intern("use"))
	if !ok {
		t.Fatal("use not indexed")
	}
	params := g.Params(fid)
	if len(params) != 1 {
		t.Fatalf("params: %d", len(params))
	}
	ent := g.Entity(params[0])
	if ent.Tag != annot.TagGuarded || !ent.Implicit {
		t.Fatalf("bare pointer param must default to implicit Guarded: %+v", ent)
	}
}

func TestExplicitTagsWinOverDefault(t *testing.T) {
	g, b, _ := mustBuild(t, `
void consume(memory_take_possession char *p, memory_guarded char *q);
`)
	fid, _ := g.FuncByName(b.Interner.Intern("consume"))
	params := g.Params(fid)
	if g.Entity(params[0]).Tag != annot.TagTakePossession || g.Entity(params[0]).Implicit {
		t.Fatalf("explicit TakePossession lost: %+v", g.Entity(params[0]))
	}
	if g.Entity(params[1]).Tag != annot.TagGuarded || g.Entity(params[1]).Implicit {
		t.Fatalf("explicit Guarded lost: %+v", g.Entity(params[1]))
	}
}

func TestFieldDefaultOwnerViaDestructor(t *testing.T) {
	g, b, bag := mustBuild(t, `
struct buf {
	char *data;
};

void buf_free(struct buf *b)
{
	free(b->data);
	free(b);
}
`)
	for _, f := range bag.Items() {
		if f.Code == diag.MemAmbiguousOwnership {
			t.Fatalf("destructor-released field must not be ambiguous: %+v", f)
		}
	}
	sid, _ := g.StructByName(b.Interner.Intern("buf"))
	owned := g.OwnedFields(sid)
	if len(owned) != 1 {
		t.Fatalf("owned fields: %d", len(owned))
	}
	ent := g.Entity(owned[0])
	if ent.Tag != annot.TagOwner || !ent.Implicit {
		t.Fatalf("field must default to implicit Owner: %+v", ent)
	}
}

func TestFieldAmbiguousWithoutDestructor(t *testing.T) {
	_, _, bag := mustBuild(t, `
struct buf {
	char *data;
};
`)
	found := 0
	for _, f := range bag.Items() {
		if f.Code == diag.MemAmbiguousOwnership {
			found++
			if f.Severity != diag.SevInfo {
				t.Fatalf("ambiguous ownership must be informational: %+v", f)
			}
		}
	}
	if found != 1 {
		t.Fatalf("ambiguous findings: %d, want 1", found)
	}
}

func TestTransferAndBorrowEdges(t *testing.T) {
	g, b, _ := mustBuild(t, `
void sink(memory_take_possession char *p);
void peek(memory_guarded char *p);

void run(void)
{
	char *s = strdup("x");
	peek(s);
	sink(s);
}
`)
	var transfers, borrows int
	for _, e := range g.Edges {
		switch e.Kind {
		case EdgeTransfer:
			transfers++
		case EdgeBorrow:
			borrows++
		}
	}
	if transfers != 1 || borrows != 1 {
		t.Fatalf("edges: %d transfers, %d borrows", transfers, borrows)
	}

	fid, _ := g.FuncByName(b.Interner.Intern("run"))
	if !g.Lookup(fid, b.Interner.Intern("s")).IsValid() {
		t.Fatal("local s must have an entity")
	}
}

func TestAnnotationConflictFails(t *testing.T) {
	_, _, bag, err := buildSrc(t, `
void bad(memory_guarded memory_owner char *p);
`)
	var be *BuildError
	if !errors.As(err, &be) || be.Kind != ErrAnnotationConflict {
		t.Fatalf("want annotation conflict, got %v", err)
	}
	var ce *annot.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("conflict cause lost: %v", err)
	}
	if !bag.HasErrors() {
		t.Fatal("conflict must also be reported")
	}
}

func TestUndeclaredCallFails(t *testing.T) {
	_, _, _, err := buildSrc(t, `
void run(char *p)
{
	mystery(p);
}
`)
	var be *BuildError
	if !errors.As(err, &be) || be.Kind != ErrUnresolvedSymbol {
		t.Fatalf("want unresolved symbol, got %v", err)
	}
	if be.Name != "mystery" {
		t.Fatalf("name: %q", be.Name)
	}
}

func TestReleaseAfterTargetResolution(t *testing.T) {
	g, b, _ := mustBuild(t, `
void copy_into(memory_release_after_of(dst) char *src, char *dst);
`)
	fid, _ := g.FuncByName(b.Interner.Intern("copy_into"))
	src := g.Entity(g.Params(fid)[0])
	dst := g.Params(fid)[1]
	if src.Target != dst {
		t.Fatalf("target: got %d, want %d", src.Target, dst)
	}
}

func TestReleaseAfterUnresolvedTargetFails(t *testing.T) {
	_, _, _, err := buildSrc(t, `
void bad(memory_release_after_of(nothing) char *src);
`)
	var be *BuildError
	if !errors.As(err, &be) || be.Kind != ErrUnresolvedSymbol {
		t.Fatalf("want unresolved symbol, got %v", err)
	}
}

func TestDuplicateDefinitionFails(t *testing.T) {
	_, _, _, err := buildSrc(t, `
void f(void) { }
void f(void) { }
`)
	var be *BuildError
	if !errors.As(err, &be) || be.Kind != ErrDuplicateSymbol {
		t.Fatalf("want duplicate symbol, got %v", err)
	}
}

func TestDeclThenDefinitionIsFine(t *testing.T) {
	g, b, _ := mustBuild(t, `
void f(char *p);
void f(char *p) { }
`)
	fid, _ := g.FuncByName(b.Interner.Intern("f"))
	if !g.B.Func(fid).IsDefinition() {
		t.Fatal("definition must win over forward declaration")
	}
	if len(g.Params(fid)) != 1 {
		t.Fatalf("params: %d", len(g.Params(fid)))
	}
}
