package diag

import "memlint/internal/source"

// Reporter is the minimal contract for phases that emit findings.
// Implementations: BagReporter (collects into a Bag), NopReporter.
type Reporter interface {
	Report(f Finding)
}

// BagReporter writes findings into a Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(f Finding) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(f)
}

// NopReporter drops every finding.
type NopReporter struct{}

func (NopReporter) Report(Finding) {}

// ReportBuilder accumulates finding details before emitting.
type ReportBuilder struct {
	reporter Reporter
	finding  Finding
	emitted  bool
}

// NewReportBuilder constructs a builder bound to r.
func NewReportBuilder(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		finding: Finding{
			Severity: sev,
			Code:     code,
			Message:  msg,
			Primary:  primary,
		},
	}
}

// ReportError is a shortcut for SevError findings.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, primary, msg)
}

// ReportWarning is a shortcut for SevWarning findings.
func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, primary, msg)
}

// ReportInfo is a shortcut for SevInfo findings.
func ReportInfo(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevInfo, code, primary, msg)
}

// WithNote appends a secondary location.
func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.finding.Notes = append(b.finding.Notes, Note{Span: sp, Msg: msg})
	return b
}

// WithEntity records an implicated entity.
func (b *ReportBuilder) WithEntity(name string, decl source.Span) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.finding.Entities = append(b.finding.Entities, EntityRef{Name: name, Decl: decl})
	return b
}

// Emit sends the finding to the underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.finding)
	}
	b.emitted = true
}

// Finding returns the accumulated finding without emitting it.
func (b *ReportBuilder) Finding() Finding {
	if b == nil {
		return Finding{}
	}
	return b.finding
}
