package source

import (
	"testing"
)

func TestAddVirtualAssignsSequentialIDs(t *testing.T) {
	fs := NewFileSet()
	a := fs.AddVirtual("a.c", []byte("int x;\n"))
	b := fs.AddVirtual("b.c", []byte("int y;\n"))
	if a == b {
		t.Fatalf("expected distinct file IDs, got %d twice", a)
	}
	if fs.Len() != 2 {
		t.Fatalf("expected 2 files, got %d", fs.Len())
	}
	if fs.Get(a).Path != "a.c" {
		t.Fatalf("unexpected path %q", fs.Get(a).Path)
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.c", []byte("abc\ndef\nghi"))

	cases := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 1, 4}, // the newline terminates line 1
		{4, 2, 1},
		{8, 3, 1},
		{10, 3, 3},
	}
	for _, tc := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: tc.off, End: tc.off})
		if start.Line != tc.line || start.Col != tc.col {
			t.Errorf("offset %d: got %d:%d, want %d:%d", tc.off, start.Line, start.Col, tc.line, tc.col)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("t.c", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	if got := f.GetLine(1); got != "first" {
		t.Errorf("line 1: got %q", got)
	}
	if got := f.GetLine(2); got != "second" {
		t.Errorf("line 2: got %q", got)
	}
	if got := f.GetLine(3); got != "third" {
		t.Errorf("line 3: got %q", got)
	}
	if got := f.GetLine(4); got != "" {
		t.Errorf("line 4: expected empty, got %q", got)
	}
	if got := f.GetLine(0); got != "" {
		t.Errorf("line 0: expected empty, got %q", got)
	}
}

func TestNormalizeCRLFAndBOM(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("crlf.c", mustNormalize([]byte("a\r\nb\r\n")), 0)
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("CRLF not normalized: %q", f.Content)
	}
}

func mustNormalize(b []byte) []byte {
	out, _ := normalizeCRLF(b)
	return out
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	c := a.Cover(b)
	if c.Start != 5 || c.End != 20 {
		t.Fatalf("cover: got %v", c)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("cover across files must be a no-op, got %v", got)
	}
}
