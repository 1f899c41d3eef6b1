package diag

import (
	"tyrb/internal/source"
)

// Note is one related (location, message) entry inside a Section.
type Note struct {
	Span source.Span
	Msg  string
}

// Section groups related entries under a header. A note whose message is
// empty inherits the section header when rendered.
type Section struct {
	Header   string
	Messages []Note
}

// Diagnostic is one pipeline-reported error. A diagnostic with Sections is
// the "complex" variant; consumers pattern-match on len(Sections).
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Sections []Section
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithSection(header string, notes ...Note) Diagnostic {
	d.Sections = append(d.Sections, Section{Header: header, Messages: notes})
	return d
}
