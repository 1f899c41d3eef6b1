package pipeline

import (
	"context"
	"strings"
	"testing"

	"tyrb/internal/diag"
	"tyrb/internal/equeue"
	"tyrb/internal/model"
	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/syntax"
)

func newBootstrapped(t *testing.T) *model.State {
	t.Helper()
	st := model.NewState(equeue.New())
	Bootstrap(st)
	if leftovers := st.Queue.DrainErrors(); len(leftovers) != 0 {
		t.Fatalf("payload bootstrap produced diagnostics: %+v", leftovers)
	}
	return st
}

func addFile(t *testing.T, st *model.State, path, content string) (source.FileID, *syntax.Tree) {
	t.Helper()
	fref := st.EnterFile(source.NewFile(path, []byte(content), source.KindNormal))
	tree := IndexFile(st, fref)
	if tree == nil {
		t.Fatalf("IndexFile returned nil for %s", path)
	}
	return fref, tree
}

func TestBootstrapBuiltins(t *testing.T) {
	st := newBootstrapped(t)
	b := st.Builtins
	for name, id := range map[string]symbols.SymbolID{
		"Object": b.Object, "Integer": b.Integer, "String": b.String,
		"NilClass": b.NilClass, "Boolean": b.Boolean,
	} {
		if !id.IsValid() {
			t.Fatalf("builtin %s missing", name)
		}
	}
	plus := st.MethodByName(b.Integer, "+")
	if !plus.IsValid() {
		t.Fatal("Integer#+ missing from payload")
	}
	if st.GetFile(st.Symbol(plus).Def.File).Kind != source.KindPayload {
		t.Fatal("payload method not defined in a payload file")
	}
}

func TestNamerEntersSymbolShapes(t *testing.T) {
	st := newBootstrapped(t)
	_, tree := addFile(t, st, "a.rb",
		"module M; class A; type_member :Elem; CONST = 1; def foo(x); @f = x; end; end; end")
	Resolve(st, []*syntax.Tree{tree})

	mod := st.ResolveConstant(symbols.RootSymbolID, mustName(t, st, "M"))
	if !mod.IsValid() || st.Symbol(mod).Kind != symbols.KindModule {
		t.Fatal("module symbol missing")
	}
	cls := st.ResolveConstant(mod, mustName(t, st, "A"))
	if !cls.IsValid() || st.Symbol(cls).Kind != symbols.KindClass {
		t.Fatal("class symbol missing")
	}
	foo := st.MethodByName(cls, "foo")
	if !foo.IsValid() {
		t.Fatal("method symbol missing")
	}
	kinds := map[symbols.Kind]bool{}
	for _, id := range st.Symbol(cls).Members {
		kinds[st.Symbol(id).Kind] = true
	}
	if !kinds[symbols.KindTypeMember] || !kinds[symbols.KindStaticField] || !kinds[symbols.KindField] {
		t.Fatalf("missing member kinds: %v", kinds)
	}
	if len(st.Symbol(foo).Params) != 1 {
		t.Fatal("method arity broken")
	}
}

func mustName(t *testing.T, st *model.State, s string) source.StringID {
	t.Helper()
	return st.InternName(s)
}

func TestIndexIsIdempotentOnSymbolShape(t *testing.T) {
	st := newBootstrapped(t)
	fref, _ := addFile(t, st, "a.rb", "class A; def foo; end; end")
	used := st.SymbolsUsed()
	st.ReplaceFile(fref, source.NewFile("a.rb", []byte("class A;  def foo; end; end"), source.KindNormal))
	IndexFile(st, fref)
	if st.SymbolsUsed() != used {
		t.Fatalf("re-index grew the symbol table: %d -> %d", used, st.SymbolsUsed())
	}
}

func TestTypecheckCallMismatch(t *testing.T) {
	st := newBootstrapped(t)
	content := `class A; def foo; 1 + ""; end; end`
	_, tree := addFile(t, st, "a.rb", content)
	Resolve(st, []*syntax.Tree{tree})
	Typecheck(st, []*syntax.Tree{tree})

	drained := st.Queue.DrainErrors()
	if len(drained) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d: %+v", len(drained), drained)
	}
	d := drained[0]
	if d.Code != diag.TypeMismatch {
		t.Fatalf("code = %v", d.Code)
	}
	start := uint32(strings.Index(content, `1 + ""`))
	end := start + uint32(len(`1 + ""`))
	if d.Primary.Start != start || d.Primary.End != end {
		t.Fatalf("span %d-%d, want %d-%d", d.Primary.Start, d.Primary.End, start, end)
	}
	if len(d.Sections) == 0 {
		t.Fatal("mismatch should carry a section pointing at the parameter")
	}
}

func TestTypecheckInfersResultTypes(t *testing.T) {
	st := newBootstrapped(t)
	_, tree := addFile(t, st, "a.rb", `class A
  def name; "x"; end
  def none; end
  def fwd; name; end
end`)
	Resolve(st, []*syntax.Tree{tree})
	Typecheck(st, []*syntax.Tree{tree})

	cls := st.ResolveConstant(symbols.RootSymbolID, mustName(t, st, "A"))
	wants := map[string]string{"name": "String", "none": "NilClass", "fwd": "String"}
	for name, want := range wants {
		m := st.MethodByName(cls, name)
		if got := st.TypeLabel(st.Symbol(m).Result); got != want {
			t.Fatalf("%s result = %q, want %q", name, got, want)
		}
	}
	if len(st.Queue.DrainErrors()) != 0 {
		t.Fatal("clean file produced diagnostics")
	}
}

func TestTypecheckUnknownMethod(t *testing.T) {
	st := newBootstrapped(t)
	_, aTree := addFile(t, st, "a.rb", "class A; def foo; end; end")
	_, bTree := addFile(t, st, "b.rb", "A.new.bar")
	Resolve(st, []*syntax.Tree{aTree, bTree})
	Typecheck(st, []*syntax.Tree{aTree, bTree})
	drained := st.Queue.DrainErrors()
	if len(drained) != 1 || drained[0].Code != diag.TypeUnknownMethod {
		t.Fatalf("expected one TypeUnknownMethod, got %+v", drained)
	}
}

func TestMethodsInheritThroughSuper(t *testing.T) {
	st := newBootstrapped(t)
	_, tree := addFile(t, st, "a.rb", `class A; def foo -> Integer; end; end
class B < A; end
B.new.foo`)
	Resolve(st, []*syntax.Tree{tree})
	Typecheck(st, []*syntax.Tree{tree})
	if drained := st.Queue.DrainErrors(); len(drained) != 0 {
		t.Fatalf("inherited call should typecheck: %+v", drained)
	}
}

func TestRedefinitionEmitsSilenceableClass(t *testing.T) {
	st := newBootstrapped(t)
	addFile(t, st, "a.rb", "class A; def foo; end; def foo; end; end")
	var saw bool
	for _, d := range st.Queue.DrainErrors() {
		if d.Code == diag.NameRedefinitionOfMethod {
			saw = true
		}
	}
	if !saw {
		t.Fatal("expected NameRedefinitionOfMethod from the namer")
	}
}

func TestQueryResponsesAtLocation(t *testing.T) {
	st := newBootstrapped(t)
	_, aTree := addFile(t, st, "a.rb", "class A; def foo; end; end")
	content := "A.new.foo"
	bref, bTree := addFile(t, st, "b.rb", content)
	trees := []*syntax.Tree{aTree, bTree}
	Resolve(st, trees)

	off := uint32(strings.Index(content, "foo"))
	st.QueryLoc = source.Span{File: bref, Start: off, End: off}
	Typecheck(st, trees)
	st.QueryLoc = source.None()

	responses := st.Queue.DrainQueryResponses()
	if len(responses) == 0 {
		t.Fatal("no query responses")
	}
	first := responses[0]
	if first.Kind != equeue.KindSend {
		t.Fatalf("first response kind = %v", first.Kind)
	}
	if len(first.Dispatch) != 1 {
		t.Fatal("expected one dispatch component")
	}
	cls := st.ResolveConstant(symbols.RootSymbolID, mustName(t, st, "A"))
	if first.Dispatch[0].Method != st.MethodByName(cls, "foo") {
		t.Fatal("dispatch does not target A#foo")
	}
	if recvLabel := st.TypeLabel(first.Dispatch[0].Receiver); recvLabel != "A" {
		t.Fatalf("receiver label = %q", recvLabel)
	}
	st.Queue.DiscardAll()
}

func TestQueryInnermostFirst(t *testing.T) {
	st := newBootstrapped(t)
	content := "A.new.foo"
	addFile(t, st, "a.rb", "class A; def foo; end; end")
	bref, bTree := addFile(t, st, "b.rb", content)
	aTree := st.Trees[st.FindFileByPath("a.rb")]
	trees := []*syntax.Tree{aTree, bTree}
	Resolve(st, trees)

	// Point at the constant: the Constant response must precede the Sends
	// whose spans also cover it.
	st.QueryLoc = source.Span{File: bref, Start: 0, End: 0}
	Typecheck(st, trees)
	st.QueryLoc = source.None()

	responses := st.Queue.DrainQueryResponses()
	if len(responses) < 2 {
		t.Fatalf("expected nested responses, got %d", len(responses))
	}
	if responses[0].Kind != equeue.KindConstant {
		t.Fatalf("first response = %v, want Constant", responses[0].Kind)
	}
}

func TestParallelIndexMatchesSequential(t *testing.T) {
	st := newBootstrapped(t)
	defer st.UnfreezeAll()()
	var frefs []source.FileID
	for _, spec := range []struct{ path, content string }{
		{"a.rb", "class A; def foo; end; end"},
		{"b.rb", "class B < A; end"},
		{"c.rb", "module M; class C; end; end"},
	} {
		frefs = append(frefs, st.EnterFile(source.NewFile(spec.path, []byte(spec.content), source.KindNormal)))
	}
	trees, err := Index(context.Background(), st, frefs, 4)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	for i, tree := range trees {
		if tree == nil {
			t.Fatalf("tree %d missing", i)
		}
		if st.Trees[frefs[i]] != tree {
			t.Fatalf("master tree %d not installed", i)
		}
	}
	for _, name := range []string{"A", "B"} {
		if !st.ResolveConstant(symbols.RootSymbolID, mustName(t, st, name)).IsValid() {
			t.Fatalf("class %s not named", name)
		}
	}
}

func TestAnnotatedResultBeatsInference(t *testing.T) {
	st := newBootstrapped(t)
	_, tree := addFile(t, st, "a.rb", `class A; def foo -> String; 1; end; end`)
	Resolve(st, []*syntax.Tree{tree})
	Typecheck(st, []*syntax.Tree{tree})
	cls := st.ResolveConstant(symbols.RootSymbolID, mustName(t, st, "A"))
	m := st.MethodByName(cls, "foo")
	if got := st.TypeLabel(st.Symbol(m).Result); got != "String" {
		t.Fatalf("result = %q, want String", got)
	}
}

func TestLiteralTypes(t *testing.T) {
	st := newBootstrapped(t)
	content := `x = 1`
	fref, tree := addFile(t, st, "a.rb", content)
	Resolve(st, []*syntax.Tree{tree})
	st.QueryLoc = source.Span{File: fref, Start: 4, End: 4}
	Typecheck(st, []*syntax.Tree{tree})
	st.QueryLoc = source.None()
	responses := st.Queue.DrainQueryResponses()
	if len(responses) == 0 || responses[0].Kind != equeue.KindLiteral {
		t.Fatalf("expected a Literal response, got %+v", responses)
	}
	if st.TypeLabel(responses[0].RetType) != "Integer" {
		t.Fatal("integer literal not typed Integer")
	}
}
