package pipeline

import (
	"fmt"

	"tyrb/internal/diag"
	"tyrb/internal/equeue"
	"tyrb/internal/model"
	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/syntax"
	"tyrb/internal/types"
)

// Typecheck infers and checks the given trees against the model. Method
// result types land on their symbols; diagnostics and query responses land
// on the model's queue. Methods outside the given trees keep the result
// types recorded by earlier runs, which is what lets the fast path check
// a subset of files.
func Typecheck(st *model.State, trees []*syntax.Tree) {
	c := &checker{
		st:    st,
		decls: make(map[symbols.SymbolID]*syntax.MethodDecl),
		done:  make(map[symbols.SymbolID]bool),
	}
	for _, tree := range trees {
		if tree != nil {
			c.collect(tree.Stmts)
		}
	}
	for _, tree := range trees {
		if tree == nil {
			continue
		}
		c.file = tree.File
		c.checkStmts(tree.Stmts, newEnv())
	}
}

type local struct {
	t   types.TypeID
	def source.Span
}

type env map[source.StringID]local

func newEnv() env { return make(env) }

type checker struct {
	st    *model.State
	decls map[symbols.SymbolID]*syntax.MethodDecl
	done  map[symbols.SymbolID]bool
	file  source.FileID
	// selfClass is the enclosing class while checking a method body; bare
	// identifiers fall back to implicit self sends against it.
	selfClass symbols.SymbolID
}

func (c *checker) collect(stmts []syntax.Node) {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *syntax.ClassDecl:
			c.collect(n.Body)
		case *syntax.MethodDecl:
			if n.Sym.IsValid() {
				c.decls[n.Sym] = n
			}
		}
	}
}

func (c *checker) report(d diag.Diagnostic) {
	c.st.Reporter().Report(d)
}

func (c *checker) checkStmts(stmts []syntax.Node, vars env) {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case *syntax.ClassDecl:
			c.checkStmts(n.Body, newEnv())
		case *syntax.MethodDecl:
			c.checkMethod(n.Sym)
		case *syntax.TypeMemberDecl:
			// nothing to infer
		default:
			c.checkExpr(stmt, vars)
		}
	}
}

func (c *checker) checkMethod(sym symbols.SymbolID) {
	if !sym.IsValid() || c.done[sym] {
		return
	}
	c.done[sym] = true
	decl := c.decls[sym]
	msym := c.st.Symbol(sym)
	if msym == nil {
		return
	}
	scope := msym.Owner
	if decl == nil {
		// Out-of-batch method: settle for the annotation.
		if !msym.Result.IsValid() && msym.ResultAnn != source.NoStringID {
			msym.Result = c.annType(scope, msym.ResultAnn)
		}
		return
	}
	vars := newEnv()
	for _, p := range decl.Params {
		t := c.annType(scope, p.Ann)
		vars[p.Name] = local{t: t, def: p.Sp}
	}
	prevSelf := c.selfClass
	if owner := c.st.Symbol(scope); owner != nil && owner.Kind == symbols.KindClass {
		c.selfClass = scope
	}
	defer func() { c.selfClass = prevSelf }()
	last := c.st.Types.Instance(c.st.Builtins.NilClass)
	for _, stmt := range decl.Body {
		switch stmt.(type) {
		case *syntax.ClassDecl, *syntax.MethodDecl, *syntax.TypeMemberDecl:
			// nested declarations do not contribute a value
		default:
			last = c.checkExpr(stmt, vars)
		}
	}
	result := last
	if decl.ResultAnn != source.NoStringID {
		result = c.annType(scope, decl.ResultAnn)
	}
	c.st.Symbol(sym).Result = result
}

// annType resolves a type annotation to an instance type; missing or
// unresolvable annotations come back untyped (NoTypeID means "no
// constraint" and only appears for absent annotations).
func (c *checker) annType(scope symbols.SymbolID, ann source.StringID) types.TypeID {
	if ann == source.NoStringID {
		return types.NoTypeID
	}
	class := c.st.ResolveConstant(scope, ann)
	if !class.IsValid() {
		return c.st.Types.Untyped()
	}
	return c.st.Types.Instance(class)
}

func (c *checker) checkExpr(n syntax.Node, vars env) types.TypeID {
	untyped := c.st.Types.Untyped()
	switch n := n.(type) {
	case *syntax.IntLit:
		t := c.st.Types.Instance(c.st.Builtins.Integer)
		c.maybeQuery(n.Sp, equeue.QueryResponse{Kind: equeue.KindLiteral, RetType: t, Origins: []source.Span{n.Sp}})
		return t
	case *syntax.StrLit:
		t := c.st.Types.Instance(c.st.Builtins.String)
		c.maybeQuery(n.Sp, equeue.QueryResponse{Kind: equeue.KindLiteral, RetType: t, Origins: []source.Span{n.Sp}})
		return t
	case *syntax.Ident:
		l, ok := vars[n.Name]
		if !ok {
			// Implicit self send.
			if c.selfClass.IsValid() {
				if m := c.st.LookupMethod(c.selfClass, n.Name); m.IsValid() {
					return c.selfSend(n, m)
				}
			}
			c.report(diag.NewError(diag.TypeUnresolvedIdent, n.Sp,
				fmt.Sprintf("Unknown variable %s", c.st.NameString(n.Name))))
			return untyped
		}
		t := l.t
		if !t.IsValid() {
			t = untyped
		}
		c.maybeQuery(n.Sp, equeue.QueryResponse{Kind: equeue.KindIdent, RetType: t, Origins: []source.Span{l.def}})
		return t
	case *syntax.IVar:
		t := untyped
		var origins []source.Span
		if n.Sym.IsValid() {
			origins = []source.Span{c.st.Symbol(n.Sym).Def}
		}
		c.maybeQuery(n.Sp, equeue.QueryResponse{Kind: equeue.KindIdent, RetType: t, Origins: origins})
		return t
	case *syntax.ConstRef:
		if !n.Sym.IsValid() {
			return untyped
		}
		t := c.st.Types.ClassOf(n.Sym)
		c.maybeQuery(n.Sp, equeue.QueryResponse{Kind: equeue.KindConstant, RetType: t, Origins: []source.Span{c.st.Symbol(n.Sym).Def}})
		return t
	case *syntax.Assign:
		vt := c.checkExpr(n.Value, vars)
		switch target := n.Target.(type) {
		case *syntax.Ident:
			vars[target.Name] = local{t: vt, def: target.Sp}
		case *syntax.IVar, *syntax.ConstRef:
			var sym symbols.SymbolID
			if iv, ok := target.(*syntax.IVar); ok {
				sym = iv.Sym
			} else {
				sym = target.(*syntax.ConstRef).Sym
			}
			if s := c.st.Symbol(sym); s != nil && (s.Kind == symbols.KindField || s.Kind == symbols.KindStaticField) {
				s.Result = vt
			}
		}
		return vt
	case *syntax.Call:
		return c.checkCall(n, vars)
	}
	return untyped
}

// selfSend types a zero-argument implicit self dispatch.
func (c *checker) selfSend(n *syntax.Ident, method symbols.SymbolID) types.TypeID {
	if !c.st.Symbol(method).Result.IsValid() {
		c.checkMethod(method)
	}
	result := c.st.Symbol(method).Result
	if !result.IsValid() {
		result = c.st.Types.Untyped()
	}
	c.maybeQuery(n.Sp, equeue.QueryResponse{
		Kind:    equeue.KindSend,
		RetType: result,
		Origins: []source.Span{n.Sp},
		Dispatch: []equeue.DispatchComponent{
			{Receiver: c.st.Types.Instance(c.selfClass), Method: method},
		},
	})
	return result
}

func (c *checker) checkCall(n *syntax.Call, vars env) types.TypeID {
	untyped := c.st.Types.Untyped()
	recvT := untyped
	if n.Recv != nil {
		recvT = c.checkExpr(n.Recv, vars)
	}
	argTs := make([]types.TypeID, len(n.Args))
	for i, arg := range n.Args {
		argTs[i] = c.checkExpr(arg, vars)
	}

	result := untyped
	method := symbols.NoSymbolID
	recv := c.st.Types.Get(recvT)
	name := c.st.NameString(n.Name)

	switch {
	case recv.Kind == types.KindClassOf && name == "new":
		result = c.st.Types.Instance(recv.Class)
		method = c.st.MethodByName(recv.Class, "initialize")
		if method.IsValid() {
			c.checkArgs(n, method, argTs)
		} else if len(n.Args) > 0 {
			c.report(diag.NewError(diag.TypeArityMismatch, n.Sp,
				fmt.Sprintf("Wrong number of arguments for constructor of %s: expected 0, got %d",
					c.st.FullName(recv.Class), len(n.Args))))
		}
	case recv.Kind == types.KindInstance || recv.Kind == types.KindClassOf:
		class := recv.Class
		method = c.st.LookupMethod(class, n.Name)
		if !method.IsValid() {
			c.report(diag.NewError(diag.TypeUnknownMethod, n.Sp,
				fmt.Sprintf("Method %s does not exist on %s", name, c.st.TypeLabel(recvT))))
		} else {
			c.checkArgs(n, method, argTs)
			msym := c.st.Symbol(method)
			if !msym.Result.IsValid() {
				c.checkMethod(method)
			}
			if r := c.st.Symbol(method).Result; r.IsValid() {
				result = r
			}
		}
	default:
		// untyped receiver: anything goes
	}

	c.maybeQuery(n.Sp, equeue.QueryResponse{
		Kind:    equeue.KindSend,
		RetType: result,
		Origins: []source.Span{n.Sp},
		Dispatch: []equeue.DispatchComponent{
			{Receiver: recvT, Method: method},
		},
	})
	return result
}

func (c *checker) checkArgs(n *syntax.Call, method symbols.SymbolID, argTs []types.TypeID) {
	msym := c.st.Symbol(method)
	if msym == nil {
		return
	}
	scope := msym.Owner
	if len(argTs) != len(msym.Params) {
		c.report(diag.NewError(diag.TypeArityMismatch, n.Sp,
			fmt.Sprintf("Wrong number of arguments for %s: expected %d, got %d",
				c.st.SymbolName(method), len(msym.Params), len(argTs))))
		return
	}
	for i, p := range msym.Params {
		want := c.annType(scope, p.Ann)
		if !want.IsValid() {
			continue
		}
		if !c.st.Types.Compatible(argTs[i], want) {
			d := diag.NewError(diag.TypeMismatch, n.Sp,
				fmt.Sprintf("Expression passed as argument %s to method %s does not match expected type %s (got %s)",
					c.st.NameString(p.Name), c.st.SymbolName(method),
					c.st.TypeLabel(want), c.st.TypeLabel(argTs[i])))
			if p.Sym.IsValid() {
				d = d.WithSection("Expected "+c.st.TypeLabel(want)+" for argument "+c.st.NameString(p.Name),
					diag.Note{Span: c.st.Symbol(p.Sym).Def})
			}
			c.report(d)
		}
	}
}

// maybeQuery emits a query response when the model's installed query
// location falls inside the span. Children are checked before their
// parents, so the first queued response is the innermost construct.
func (c *checker) maybeQuery(span source.Span, resp equeue.QueryResponse) {
	loc := c.st.QueryLoc
	if loc.IsNone() || loc.File != c.file || span.File != c.file {
		return
	}
	if !span.Contains(loc.Start) {
		return
	}
	c.st.PushResponse(resp)
}
