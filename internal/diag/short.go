package diag

import (
	"fmt"
	"strings"

	"memlint/internal/source"
)

// FormatShort renders findings one per line in a stable format:
//
//	<path>:<line>:<col>: <SEVERITY> <CODE>: <message>
//
// The bag should be sorted beforehand. Intended for CLI short output
// and golden comparisons in tests.
func FormatShort(bag *Bag, fs *source.FileSet, includeNotes bool) string {
	if bag == nil || fs == nil || bag.Len() == 0 {
		return ""
	}

	var sb strings.Builder
	for _, f := range bag.Items() {
		writeShortLine(&sb, f.Severity, f.Code.String(), f.Primary, f.Message, fs)
		if !includeNotes {
			continue
		}
		for _, n := range f.Notes {
			sb.WriteString("    note: ")
			start, _ := fs.Resolve(n.Span)
			file := fs.Get(n.Span.File)
			fmt.Fprintf(&sb, "%s:%d:%d: %s\n", file.Path, start.Line, start.Col, n.Msg)
		}
	}
	return sb.String()
}

func writeShortLine(sb *strings.Builder, sev Severity, code string, span source.Span, msg string, fs *source.FileSet) {
	file := fs.Get(span.File)
	start, _ := fs.Resolve(span)
	fmt.Fprintf(sb, "%s:%d:%d: %s %s: %s\n", file.Path, start.Line, start.Col, sev, code, msg)
}
