package pipeline

import (
	"fmt"

	"tyrb/internal/diag"
	"tyrb/internal/model"
	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/syntax"
)

// Resolve links superclasses and constant references for the given trees.
// It runs after indexing and before typechecking; the fingerprint engine
// stops here.
func Resolve(st *model.State, trees []*syntax.Tree) {
	for _, tree := range trees {
		if tree == nil {
			continue
		}
		resolveStmts(st, symbols.RootSymbolID, tree.Stmts)
	}
}

func resolveStmts(st *model.State, scope symbols.SymbolID, stmts []syntax.Node) {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *syntax.ClassDecl:
			resolveClass(st, scope, n)
		case *syntax.MethodDecl:
			resolveMethod(st, scope, n)
		default:
			resolveExpr(st, scope, stmt)
		}
	}
}

func resolveClass(st *model.State, scope symbols.SymbolID, n *syntax.ClassDecl) {
	sym := st.Symbol(n.Sym)
	if sym == nil {
		return
	}
	if n.SuperName != source.NoStringID {
		super := st.ResolveConstant(scope, n.SuperName)
		if !super.IsValid() {
			diag.ReportError(st.Reporter(), diag.ResUnresolvedConstant, n.SuperSpan,
				fmt.Sprintf("Unable to resolve constant %s", st.NameString(n.SuperName)))
		} else {
			if sym.Super.IsValid() && sym.Super != super && sym.Super != st.Builtins.Object {
				d := diag.NewError(diag.ResRedefinitionOfParents, n.SuperSpan,
					fmt.Sprintf("Parent of %s redefined from %s to %s",
						st.SymbolName(n.Sym), st.FullName(sym.Super), st.FullName(super)))
				d = d.WithSection("Previous parent", diag.Note{Span: st.Symbol(sym.Super).Def})
				st.Reporter().Report(d)
			}
			sym.Super = super
		}
	} else if !n.IsModule && !sym.Super.IsValid() && n.Sym != st.Builtins.Object {
		sym.Super = st.Builtins.Object
	}
	resolveStmts(st, n.Sym, n.Body)
}

func resolveMethod(st *model.State, scope symbols.SymbolID, n *syntax.MethodDecl) {
	seen := make(map[source.StringID]source.Span, len(n.Params))
	for _, p := range n.Params {
		if prev, dup := seen[p.Name]; dup {
			d := diag.NewError(diag.ResDuplicateVariableDeclaration, p.Sp,
				fmt.Sprintf("Duplicate variable declaration %s", st.NameString(p.Name)))
			d = d.WithSection("Previous declaration", diag.Note{Span: prev})
			st.Reporter().Report(d)
			continue
		}
		seen[p.Name] = p.Sp
	}
	for _, stmt := range n.Body {
		resolveExpr(st, scope, stmt)
	}
}

func resolveExpr(st *model.State, scope symbols.SymbolID, n syntax.Node) {
	switch n := n.(type) {
	case *syntax.ConstRef:
		if n.Sym.IsValid() {
			return
		}
		sym := st.ResolveConstant(scope, n.Name)
		if !sym.IsValid() {
			diag.ReportError(st.Reporter(), diag.ResUnresolvedConstant, n.Sp,
				fmt.Sprintf("Unable to resolve constant %s", st.NameString(n.Name)))
			return
		}
		n.Sym = sym
	case *syntax.Assign:
		// Constant targets declare static fields; they are not reads.
		if _, ok := n.Target.(*syntax.ConstRef); !ok {
			resolveExpr(st, scope, n.Target)
		}
		resolveExpr(st, scope, n.Value)
	case *syntax.Call:
		if n.Recv != nil {
			resolveExpr(st, scope, n.Recv)
		}
		for _, arg := range n.Args {
			resolveExpr(st, scope, arg)
		}
	}
}
