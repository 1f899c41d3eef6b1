package diag

import "tyrb/internal/source"

// Reporter is the minimal contract for passes to hand off diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}

// ReportError is a shortcut for SevError diagnostics.
func ReportError(r Reporter, code Code, primary source.Span, msg string) {
	if r == nil {
		return
	}
	r.Report(NewError(code, primary, msg))
}

// SliceReporter accumulates into a slice, mostly for tests.
type SliceReporter struct {
	Items []Diagnostic
}

func (r *SliceReporter) Report(d Diagnostic) {
	r.Items = append(r.Items, d)
}
