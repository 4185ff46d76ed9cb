package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"memlint/internal/diag"
	"memlint/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan, color.Bold)
	codeColor    = color.New(color.Bold)
	caretColor   = color.New(color.FgGreen, color.Bold)
	noteColor    = color.New(color.FgBlue)
)

// Pretty renders findings in a human-readable form. Walks bag.Items()
// in order (bag.Sort() is expected beforehand). For each finding:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//	    <source line>
//	    ^~~~
//
// followed by Notes in the same shape. Color is opt-in.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writePrettyFinding(w, d, fs, opts)
	}
}

func writePrettyFinding(w io.Writer, d diag.Finding, fs *source.FileSet, opts PrettyOpts) {
	f := fs.Get(d.Primary.File)
	start, end := fs.Resolve(d.Primary)

	path := ""
	if f != nil {
		path = formatPath(f, fs, opts.PathMode)
	}

	sev := d.Severity.String()
	code := d.Code.String()
	if opts.Color {
		sev = severityColor(d.Severity).Sprint(sev)
		code = codeColor.Sprint(code)
	}
	fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", path, start.Line, start.Col, sev, code, d.Message)

	if f != nil {
		writeSourceContext(w, f, start, end, opts)
	}

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nf := fs.Get(n.Span.File)
		if nf == nil {
			continue
		}
		nstart, _ := fs.Resolve(n.Span)
		label := "note"
		if opts.Color {
			label = noteColor.Sprint(label)
		}
		fmt.Fprintf(w, "  %s: %s:%d:%d: %s\n", label, formatPath(nf, fs, opts.PathMode), nstart.Line, nstart.Col, n.Msg)
	}
}

// writeSourceContext prints the offending line with a caret underline
// under the span. Multi-line spans underline to the end of the first
// line.
func writeSourceContext(w io.Writer, f *source.File, start, end source.LineCol, opts PrettyOpts) {
	line := f.GetLine(start.Line)
	if line == "" && start.Line == 0 {
		return
	}

	const indent = "    "
	shown := strings.ReplaceAll(line, "\t", " ")
	if opts.Width > 0 {
		shown = truncateLine(shown, opts.Width-len(indent))
	}
	fmt.Fprintf(w, "%s%s\n", indent, shown)

	if start.Col == 0 {
		return
	}
	pad := runewidth.StringWidth(shown)
	if int(start.Col)-1 <= len(shown) {
		pad = runewidth.StringWidth(shown[:start.Col-1])
	}

	span := 1
	if end.Line == start.Line && end.Col > start.Col {
		span = int(end.Col - start.Col)
	} else if end.Line > start.Line {
		span = len(shown) - int(start.Col) + 1
	}
	if span < 1 {
		span = 1
	}
	if opts.Width > 0 && pad+span > opts.Width-len(indent) {
		span = max(opts.Width-len(indent)-pad, 1)
	}

	underline := "^" + strings.Repeat("~", span-1)
	if opts.Color {
		underline = caretColor.Sprint(underline)
	}
	fmt.Fprintf(w, "%s%s%s\n", indent, strings.Repeat(" ", pad), underline)
}

func truncateLine(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}
