package flow

import (
	"testing"

	"memlint/internal/ast"
	"memlint/internal/diag"
	"memlint/internal/own"
	"memlint/internal/parser"
	"memlint/internal/rules"
	"memlint/internal/source"
)

func checkSrc(t *testing.T, src string) *diag.Bag {
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
	g, err := own.Build(b, own.Options{Reporter: rep})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	Check(g, Options{Reporter: rep, Registry: rules.Default()})
	bag.Sort()
	bag.Dedup()
	return bag
}

func countCode(bag *diag.Bag, code diag.Code) int {
	n := 0
	for _, f := range bag.Items() {
		if f.Code == code {
			n++
		}
	}
	return n
}

func wantOnly(t *testing.T, bag *diag.Bag, code diag.Code) {
	t.Helper()
	if got := countCode(bag, code); got != 1 {
		t.Fatalf("%s: got %d findings, want 1; all: %+v", code, got, bag.Items())
	}
	if bag.Len() != 1 {
		t.Fatalf("extra findings: %+v", bag.Items())
	}
}

func TestUseAfterFree(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	int *p = malloc(4);
	free(p);
	*p = 1;
}
`)
	if countCode(bag, diag.MemUseAfterFree) != 1 {
		t.Fatalf("use-after-free: %+v", bag.Items())
	}
	if countCode(bag, diag.MemLeak) != 0 {
		t.Fatalf("released pointer must not leak: %+v", bag.Items())
	}
}

func TestDoubleFree(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	char *p = malloc(8);
	free(p);
	free(p);
}
`)
	wantOnly(t, bag, diag.MemDoubleFree)
}

func TestNoDoubleFreeWhenReleasedOnce(t *testing.T) {
	bag := checkSrc(t, `
void f(int c)
{
	char *p = malloc(8);
	if (c) {
		free(p);
	} else {
		free(p);
	}
}
`)
	if bag.Len() != 0 {
		t.Fatalf("clean program reported: %+v", bag.Items())
	}
}

func TestGuardedParamUntouchedIsClean(t *testing.T) {
	bag := checkSrc(t, `
void peek(memory_guarded char *s)
{
	char c = *s;
}
`)
	if bag.Len() != 0 {
		t.Fatalf("guarded read-only use reported: %+v", bag.Items())
	}
}

func TestGuardedFreeFiresOnceRegardlessOfLaterCode(t *testing.T) {
	bag := checkSrc(t, `
void f(memory_guarded char *p)
{
	free(p);
	free(p);
}
`)
	if countCode(bag, diag.MemGuardedFree) != 1 {
		t.Fatalf("guarded-free: %+v", bag.Items())
	}
	if countCode(bag, diag.MemDoubleFree) != 1 {
		t.Fatalf("second release must still be a double free: %+v", bag.Items())
	}
}

func TestImplicitGuardedParamFree(t *testing.T) {
	bag := checkSrc(t, `
void f(char *p)
{
	free(p);
}
`)
	wantOnly(t, bag, diag.MemGuardedFree)
}

func TestLeakOnOnePathOnly(t *testing.T) {
	bag := checkSrc(t, `
void f(memory_take_possession int *a, int c)
{
	if (c) {
		free(a);
		return;
	}
	return;
}
`)
	wantOnly(t, bag, diag.MemLeak)
}

func TestLeakReleasedOnAllPathsIsClean(t *testing.T) {
	bag := checkSrc(t, `
void f(memory_take_possession int *a, int c)
{
	if (c) {
		free(a);
	} else {
		free(a);
	}
}
`)
	if bag.Len() != 0 {
		t.Fatalf("all-paths release reported: %+v", bag.Items())
	}
}

func TestTransferSatisfiesObligation(t *testing.T) {
	bag := checkSrc(t, `
void sink(memory_take_possession char *p);

void f(void)
{
	char *p = malloc(8);
	sink(p);
}
`)
	if bag.Len() != 0 {
		t.Fatalf("transfer must discharge the obligation: %+v", bag.Items())
	}
}

func TestUseAfterTransfer(t *testing.T) {
	bag := checkSrc(t, `
void sink(memory_take_possession char *p);

void f(void)
{
	char *p = malloc(8);
	sink(p);
	*p = 1;
}
`)
	wantOnly(t, bag, diag.MemUseAfterFree)
}

func TestAdjustedRelease(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	char *p = strdup("x");
	p++;
	free(p);
}
`)
	wantOnly(t, bag, diag.MemReleaseOfAdjustedPointer)
}

func TestAdjustedReleaseAliasException(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	char *p = strdup("x");
	char *q = p;
	p++;
	free(q);
}
`)
	if bag.Len() != 0 {
		t.Fatalf("releasing the unmodified alias is fine: %+v", bag.Items())
	}
}

func TestPointerOffsetAssignAdjusts(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	char *p = strdup("x");
	p += 2;
	free(p);
}
`)
	wantOnly(t, bag, diag.MemReleaseOfAdjustedPointer)
}

func TestStackEscape(t *testing.T) {
	bag := checkSrc(t, `
int *f(void)
{
	int x;
	return &x;
}
`)
	if countCode(bag, diag.MemStackEscape) != 1 {
		t.Fatalf("stack-escape: %+v", bag.Items())
	}
	if countCode(bag, diag.MemLeak) != 0 || countCode(bag, diag.MemUseAfterFree) != 0 {
		t.Fatalf("escape must not double-report: %+v", bag.Items())
	}
}

func TestStackEscapeThroughLocal(t *testing.T) {
	bag := checkSrc(t, `
int *f(void)
{
	int x;
	int *p = &x;
	return p;
}
`)
	wantOnly(t, bag, diag.MemStackEscape)
}

func TestReturnTransfersOwnership(t *testing.T) {
	bag := checkSrc(t, `
memory_owner char *f(void)
{
	char *p = strdup("x");
	return p;
}
`)
	if bag.Len() != 0 {
		t.Fatalf("returning an owned value is a transfer: %+v", bag.Items())
	}
}

func TestAllocatedNeverReleasedLeaks(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	char *p = malloc(8);
	*p = 0;
}
`)
	wantOnly(t, bag, diag.MemLeak)
}

func TestNullComparisonOfFreedPointerIsSilent(t *testing.T) {
	bag := checkSrc(t, `
void f(void)
{
	char *p = malloc(8);
	free(p);
	if (p != NULL) {
		p = NULL;
	}
}
`)
	if bag.Len() != 0 {
		t.Fatalf("null guard on freed pointer reported: %+v", bag.Items())
	}
}

func TestIndirectCallDegradesOnce(t *testing.T) {
	bag := checkSrc(t, `
void f(char *fp, char *p)
{
	fp(p);
	fp(p);
}
`)
	if got := countCode(bag, diag.MemUnanalyzableFlow); got != 1 {
		t.Fatalf("unanalyzable-flow: got %d, want 1; all: %+v", got, bag.Items())
	}
	for _, f := range bag.Items() {
		if f.Code == diag.MemUnanalyzableFlow && f.Severity != diag.SevInfo {
			t.Fatalf("degrade must be informational: %+v", f)
		}
	}
}

func TestRefCountNegative(t *testing.T) {
	bag := checkSrc(t, `
void f(memory_ref_count char *p)
{
	free(p);
	free(p);
}
`)
	if countCode(bag, diag.MemRefCountNegative) != 1 {
		t.Fatalf("refcount-negative: %+v", bag.Items())
	}
	if countCode(bag, diag.MemDoubleFree) != 0 {
		t.Fatalf("refcounted entities never enter the single-owner machine: %+v", bag.Items())
	}
}

func TestRefCountBalancedIsClean(t *testing.T) {
	bag := checkSrc(t, `
void f(memory_ref_count char *p)
{
	free(p);
}
`)
	if bag.Len() != 0 {
		t.Fatalf("balanced refcount reported: %+v", bag.Items())
	}
}

func TestRefCountRetainThroughDeclaredParam(t *testing.T) {
	bag := checkSrc(t, `
void obj_ref(memory_ref_count char *p);

void f(memory_ref_count char *p)
{
	obj_ref(p);
	free(p);
	free(p);
}
`)
	if bag.Len() != 0 {
		t.Fatalf("one retain plus two releases is balanced: %+v", bag.Items())
	}
}

func TestRefCountRetainerSymbolBalances(t *testing.T) {
	src := `
void f(memory_ref_count char *p)
{
	obj_ref(p);
	free(p);
	free(p);
}
`
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.c", []byte(src)))
	bag := diag.NewBag(64)
	rep := diag.BagReporter{Bag: bag}

	b := ast.NewBuilder(nil)
	parser.ParseFile(file, b, parser.Options{Reporter: rep})
	if bag.HasErrors() {
		t.Fatalf("parse errors: %+v", bag.Items())
	}
	syms := own.DefaultSymbols()
	syms.Retainers["obj_ref"] = true
	g, err := own.Build(b, own.Options{Reporter: rep, Symbols: syms})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	Check(g, Options{Reporter: rep, Registry: rules.Default()})
	if bag.Len() != 0 {
		t.Fatalf("configured retainer must balance the count: %+v", bag.Items())
	}
}

func TestRefCountStillNegativePastRetains(t *testing.T) {
	bag := checkSrc(t, `
void obj_ref(memory_ref_count char *p);

void f(memory_ref_count char *p)
{
	obj_ref(p);
	free(p);
	free(p);
	free(p);
}
`)
	if countCode(bag, diag.MemRefCountNegative) != 1 {
		t.Fatalf("refcount-negative: %+v", bag.Items())
	}
}

func TestOutParamYieldsFreshOwned(t *testing.T) {
	bag := checkSrc(t, `
void produce(memory_ptr_out char **out);

void f(void)
{
	char *p = NULL;
	produce(&p);
	free(p);
}
`)
	if bag.Len() != 0 {
		t.Fatalf("out-param flow reported: %+v", bag.Items())
	}
}

func TestOutParamLeaksWithoutRelease(t *testing.T) {
	bag := checkSrc(t, `
void produce(memory_ptr_out char **out);

void f(void)
{
	char *p = NULL;
	produce(&p);
}
`)
	wantOnly(t, bag, diag.MemLeak)
}

func TestDestructorMissingOwnerFieldRelease(t *testing.T) {
	bag := checkSrc(t, `
struct buf {
	memory_owner char *data;
	memory_owner char *spare;
};

void buf_free(struct buf *b)
{
	free(b->data);
	free(b);
}
`)
	if got := countCode(bag, diag.MemLeak); got != 1 {
		t.Fatalf("missing owner-field release: got %d leaks; all: %+v", got, bag.Items())
	}
}

func TestDeterministicFindings(t *testing.T) {
	src := `
void f(int c)
{
	char *p = malloc(8);
	char *q = malloc(8);
	if (c) {
		free(p);
	}
	free(p);
}
`
	first := checkSrc(t, src)
	second := checkSrc(t, src)
	if first.Len() != second.Len() {
		t.Fatalf("run lengths differ: %d vs %d", first.Len(), second.Len())
	}
	for i := range first.Items() {
		a, b := first.Items()[i], second.Items()[i]
		if a.Code != b.Code || a.Primary != b.Primary || a.Message != b.Message {
			t.Fatalf("finding %d differs: %+v vs %+v", i, a, b)
		}
	}
}
