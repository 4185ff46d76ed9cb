package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"memlint/internal/diag"
	"memlint/internal/rules"
	"memlint/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet, source.Span) {
	t.Helper()
	fs := source.NewFileSet()
	src := "void f(void)\n{\n\tfree(p);\n}\n"
	id := fs.AddVirtual("sample.c", []byte(src))

	// "free(p)" on line 3.
	start := uint32(strings.Index(src, "free"))
	span := source.Span{File: id, Start: start, End: start + 7}

	bag := diag.NewBag(8)
	bag.Add(diag.Finding{
		Severity: diag.SevError,
		Code:     diag.MemDoubleFree,
		Message:  "pointer 'p' released twice",
		Primary:  span,
		Notes: []diag.Note{
			{Span: source.Span{File: id, Start: 0, End: 4}, Msg: "first release here"},
		},
		Entities: []diag.EntityRef{
			{Name: "p", Decl: source.Span{File: id, Start: 0, End: 4}},
		},
	})
	return bag, fs, span
}

func TestPrettyHeaderAndCaret(t *testing.T) {
	bag, fs, _ := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})

	out := buf.String()
	if !strings.Contains(out, "sample.c:3:2: ERROR MEM_DOUBLE_FREE: pointer 'p' released twice") {
		t.Fatalf("missing header line:\n%s", out)
	}
	if !strings.Contains(out, "free(p);") {
		t.Fatalf("missing source context:\n%s", out)
	}
	if !strings.Contains(out, "^~~~~~") {
		t.Fatalf("missing caret underline:\n%s", out)
	}
	if !strings.Contains(out, "note: sample.c:1:1: first release here") {
		t.Fatalf("missing note:\n%s", out)
	}
}

func TestPrettyNotesSuppressed(t *testing.T) {
	bag, fs, _ := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{})

	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes must be off by default:\n%s", buf.String())
	}
}

func TestPrettyWidthTruncates(t *testing.T) {
	fs := source.NewFileSet()
	long := "int x; " + strings.Repeat("/* pad */ ", 20) + "int *y;\n"
	id := fs.AddVirtual("wide.c", []byte(long))

	bag := diag.NewBag(4)
	bag.Add(diag.Finding{
		Severity: diag.SevWarning,
		Code:     diag.MemLeak,
		Message:  "leak",
		Primary:  source.Span{File: id, Start: 0, End: 3},
	})

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Width: 40})
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "pad") && len(line) > 40 {
			t.Fatalf("line exceeds width: %q", line)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs, span := sampleBag(t)
	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{
		IncludePositions: true,
		IncludeNotes:     true,
		IncludeEntities:  true,
		PathMode:         PathModeBasename,
	})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count: %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Code != "MEM_DOUBLE_FREE" || d.Severity != "ERROR" {
		t.Fatalf("code/severity: %+v", d)
	}
	if d.Location.File != "sample.c" {
		t.Fatalf("basename path: %+v", d.Location)
	}
	if d.Location.StartByte != span.Start || d.Location.EndByte != span.End {
		t.Fatalf("byte range: %+v", d.Location)
	}
	if d.Location.StartLine != 3 || d.Location.StartCol != 2 {
		t.Fatalf("resolved position: %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "first release here" {
		t.Fatalf("notes: %+v", d.Notes)
	}
	if len(d.Entities) != 1 || d.Entities[0].Name != "p" {
		t.Fatalf("entities: %+v", d.Entities)
	}
}

func TestJSONMaxTruncatesOutputOnly(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("many.c", []byte("int x;\n"))

	bag := diag.NewBag(8)
	for i := 0; i < 3; i++ {
		bag.Add(diag.Finding{
			Severity: diag.SevWarning,
			Code:     diag.MemLeak,
			Message:  "leak",
			Primary:  source.Span{File: id, Start: 0, End: 3},
		})
	}

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 2}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("truncated count: %d", out.Count)
	}
	if bag.Len() != 3 {
		t.Fatalf("bag must be untouched: %d", bag.Len())
	}
}

func TestSarifStructure(t *testing.T) {
	bag, fs, _ := sampleBag(t)
	var buf bytes.Buffer
	err := Sarif(&buf, bag, fs, SarifRunMeta{
		ToolName:       "memlint",
		ToolVersion:    "0.1.0",
		InvocationArgs: []string{"memlint", "check", "sample.c"},
	}, rules.Default())
	if err != nil {
		t.Fatalf("Sarif: %v", err)
	}

	var log map[string]any
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if log["version"] != "2.1.0" {
		t.Fatalf("version: %v", log["version"])
	}
	runs := log["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("runs: %d", len(runs))
	}
	run := runs[0].(map[string]any)
	driver := run["tool"].(map[string]any)["driver"].(map[string]any)
	if driver["name"] != "memlint" {
		t.Fatalf("driver name: %v", driver["name"])
	}
	ruleList := driver["rules"].([]any)
	if len(ruleList) != len(rules.Default().All()) {
		t.Fatalf("rule metadata count: %d", len(ruleList))
	}
	results := run["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("results: %d", len(results))
	}
	res := results[0].(map[string]any)
	if res["ruleId"] != "MEM_DOUBLE_FREE" || res["level"] != "error" {
		t.Fatalf("result: %+v", res)
	}
	if _, ok := res["relatedLocations"]; !ok {
		t.Fatalf("notes must map to relatedLocations: %+v", res)
	}
}

func TestSarifLevelMapping(t *testing.T) {
	cases := []struct {
		sev  diag.Severity
		want string
	}{
		{diag.SevError, "error"},
		{diag.SevWarning, "warning"},
		{diag.SevInfo, "note"},
	}
	for _, tc := range cases {
		if got := sarifLevel(tc.sev); got != tc.want {
			t.Fatalf("%v: got %q, want %q", tc.sev, got, tc.want)
		}
	}
}
