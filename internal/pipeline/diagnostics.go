package pipeline

import (
	"fmt"

	"tyrb/internal/diag"
	"tyrb/internal/model"
	"tyrb/internal/source"
	"tyrb/internal/syntax"
)

func newRedefinition(st *model.State, n *syntax.MethodDecl, prev source.Span) diag.Diagnostic {
	d := diag.NewError(diag.NameRedefinitionOfMethod, n.NameSpan,
		fmt.Sprintf("Method %s redefined", st.NameString(n.Name)))
	if !prev.IsNone() {
		d = d.WithSection("Previous definition", diag.Note{Span: prev})
	}
	return d
}
