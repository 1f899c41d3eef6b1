// Package pipeline implements the passes that keep a program model
// consistent with its files: index (parse + name), resolve, and typecheck.
// Every pass takes the model explicitly and reports through its queue.
package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tyrb/internal/model"
	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/syntax"
)

// IndexFile parses and names a single file, installing the master tree in
// the model. Callers hold the unfreeze scopes.
func IndexFile(st *model.State, fref source.FileID) *syntax.Tree {
	file := st.GetFile(fref)
	if file == nil || file.Kind == source.KindTombStone {
		return nil
	}
	tree := syntax.Parse(fref, file, st.NameInterner(), st.Reporter())
	NameTree(st, tree)
	st.Trees[fref] = tree
	return tree
}

// Index parses the given files in parallel and then names them through the
// single-threaded merge step, installing master trees in the model. The
// result slice is index-aligned with frefs.
func Index(ctx context.Context, st *model.State, frefs []source.FileID, jobs int) ([]*syntax.Tree, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	trees := make([]*syntax.Tree, len(frefs))
	names := st.NameInterner()
	reporter := st.Reporter()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(frefs), 1)))
	for i, fref := range frefs {
		i, fref := i, fref
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			file := st.GetFile(fref)
			if file == nil || file.Kind == source.KindTombStone {
				return nil
			}
			// Result slots are index-unique; no mutex needed.
			trees[i] = syntax.Parse(fref, file, names, reporter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Naming mutates the symbol table; it stays on the caller's thread.
	for i, tree := range trees {
		if tree == nil {
			continue
		}
		NameTree(st, tree)
		st.Trees[frefs[i]] = tree
	}
	return trees, nil
}

// NameTree enters symbols for every declaration in the tree. Re-running
// over a re-parsed file reuses existing symbol ids, so indexing is
// idempotent with respect to the symbol shape. The fast path also runs it
// over tree copies against the final model to refresh definition spans.
func NameTree(st *model.State, tree *syntax.Tree) {
	nameStmts(st, tree, symbols.RootSymbolID, tree.Stmts)
}

func nameStmts(st *model.State, tree *syntax.Tree, owner symbols.SymbolID, stmts []syntax.Node) {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *syntax.ClassDecl:
			nameClass(st, tree, owner, n)
		case *syntax.MethodDecl:
			nameMethod(st, tree, owner, n)
		case *syntax.TypeMemberDecl:
			n.Sym = st.EnterSymbol(model.Symbol{
				Name:  n.Name,
				Kind:  symbols.KindTypeMember,
				Owner: owner,
				Def:   n.NameSpan,
			})
		case *syntax.Assign:
			nameAssign(st, owner, n, false)
		}
	}
}

func nameClass(st *model.State, tree *syntax.Tree, owner symbols.SymbolID, n *syntax.ClassDecl) {
	kind := symbols.KindClass
	if n.IsModule {
		kind = symbols.KindModule
	}
	n.Sym = st.EnterSymbol(model.Symbol{
		Name:      n.Name,
		Kind:      kind,
		Owner:     owner,
		Def:       n.NameSpan,
		SuperName: n.SuperName,
	})
	nameStmts(st, tree, n.Sym, n.Body)
}

func nameMethod(st *model.State, tree *syntax.Tree, owner symbols.SymbolID, n *syntax.MethodDecl) {
	params := make([]model.Param, len(n.Params))
	for i, p := range n.Params {
		params[i] = model.Param{Name: p.Name, Ann: p.Ann}
	}
	existing := st.LookupMember(owner, n.Name, symbols.KindMethod)
	if existing.IsValid() && st.Symbol(existing).Def != n.NameSpan {
		prev := st.Symbol(existing).Def
		d := newRedefinition(st, n, prev)
		st.Reporter().Report(d)
	}
	n.Sym = st.EnterSymbol(model.Symbol{
		Name:      n.Name,
		Kind:      symbols.KindMethod,
		Owner:     owner,
		Def:       n.NameSpan,
		Params:    params,
		ResultAnn: n.ResultAnn,
	})
	for i, p := range n.Params {
		p.Sym = st.EnterSymbol(model.Symbol{
			Name:  p.Name,
			Kind:  symbols.KindMethodArg,
			Owner: n.Sym,
			Def:   p.Sp,
		})
		st.Symbol(n.Sym).Params[i].Sym = p.Sym
	}
	// Field writes in the body declare fields on the enclosing class.
	for _, stmt := range n.Body {
		if a, ok := stmt.(*syntax.Assign); ok {
			nameAssign(st, owner, a, true)
		}
	}
}

func nameAssign(st *model.State, owner symbols.SymbolID, n *syntax.Assign, insideMethod bool) {
	switch target := n.Target.(type) {
	case *syntax.IVar:
		if insideMethod {
			target.Sym = st.EnterSymbol(model.Symbol{
				Name:  target.Name,
				Kind:  symbols.KindField,
				Owner: owner,
				Def:   target.Sp,
			})
		}
	case *syntax.ConstRef:
		if !insideMethod && owner != symbols.RootSymbolID {
			target.Sym = st.EnterSymbol(model.Symbol{
				Name:  target.Name,
				Kind:  symbols.KindStaticField,
				Owner: owner,
				Def:   target.Sp,
			})
		}
	}
}
