package lexer

import (
	"memlint/internal/diag"
	"memlint/internal/source"
)

// Options configure a lexer instance.
type Options struct {
	// Reporter receives lexical findings. May be nil; scanning
	// continues either way.
	Reporter diag.Reporter
}

func (lx *Lexer) report(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
	}
}
