package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"tyrb/internal/diag"
	"tyrb/internal/equeue"
	"tyrb/internal/fingerprint"
	"tyrb/internal/source"
)

type logSink struct {
	lines []string
}

func (l *logSink) logf(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logSink) contains(needle string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

func (l *logSink) reset() { l.lines = nil }

func newTestEngine(t *testing.T) (*Engine, *logSink) {
	t.Helper()
	sink := &logSink{}
	e := New(Options{Jobs: 2, Logf: sink.logf})
	if err := e.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	sink.reset()
	return e, sink
}

func rb(path, content string) *source.File {
	return source.NewFile(path, []byte(content), source.KindNormal)
}

func pubFor(pubs []Publication, path string) (Publication, bool) {
	for _, p := range pubs {
		if p.Path == path {
			return p, true
		}
	}
	return Publication{}, false
}

func TestOpenNewFileTakesSlowPath(t *testing.T) {
	e, sink := newTestEngine(t)
	e.Update(context.Background(), []*source.File{rb("a.rb", "class A; end")})
	if !sink.contains("new file") {
		t.Fatalf("expected new-file slow path, logs: %v", sink.lines)
	}
	fref := e.FindFileByPath("a.rb")
	if !fref.IsValid() {
		t.Fatal("file not admitted")
	}
	if int(fref) >= len(e.Hashes()) || e.Hashes()[fref] == 0 {
		t.Fatal("hash vector not extended with the new fingerprint")
	}

	pubs := e.PushErrors()
	pub, ok := pubFor(pubs, "a.rb")
	if !ok {
		t.Fatalf("no publication for a.rb: %+v", pubs)
	}
	if len(pub.Diagnostics) != 0 {
		t.Fatalf("clean file published diagnostics: %+v", pub.Diagnostics)
	}
}

func TestWhitespaceChangeTakesFastPath(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; end")})
	e.PushErrors()
	sink.reset()

	e.Update(ctx, []*source.File{rb("a.rb", "class A;  end")})
	if !sink.contains("taking fast path") {
		t.Fatalf("expected fast path, logs: %v", sink.lines)
	}
	pubs := e.PushErrors()
	if len(pubs) != 1 || pubs[0].Path != "a.rb" || len(pubs[0].Diagnostics) != 0 {
		t.Fatalf("expected exactly one empty publication for a.rb, got %+v", pubs)
	}
}

func TestStructuralChangeTakesSlowPathAndUpdatesHash(t *testing.T) {
	e, sink := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; end")})
	e.PushErrors()
	sink.reset()

	changed := rb("a.rb", "class A; def foo; end; end")
	e.Update(ctx, []*source.File{changed})
	if !sink.contains("changed definitions") {
		t.Fatalf("expected structural slow path, logs: %v", sink.lines)
	}
	fref := e.FindFileByPath("a.rb")
	want := fingerprint.ComputeStateHashes(ctx, []*source.File{changed}, 1)[0]
	if e.Hashes()[fref] != want {
		t.Fatalf("stored hash %d, want %d", e.Hashes()[fref], want)
	}
}

func TestSlowPathRepublishesAllOpenFiles(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; end")})
	e.Update(ctx, []*source.File{rb("b.rb", "class B; end")})
	e.PushErrors()

	e.Update(ctx, []*source.File{rb("a.rb", "class A; def foo; end; end")})
	pubs := e.PushErrors()
	if _, ok := pubFor(pubs, "a.rb"); !ok {
		t.Fatal("a.rb not republished after slow path")
	}
	if _, ok := pubFor(pubs, "b.rb"); !ok {
		t.Fatal("b.rb not republished after slow path")
	}
}

func TestErrorIntroducedThenFixed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; end")})
	e.PushErrors()

	content := `class A; def foo; 1 + ""; end; end`
	e.Update(ctx, []*source.File{rb("a.rb", content)})
	pubs := e.PushErrors()
	pub, ok := pubFor(pubs, "a.rb")
	if !ok || len(pub.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic for a.rb, got %+v", pubs)
	}
	if pub.Diagnostics[0].Code != diag.TypeMismatch {
		t.Fatalf("code = %v", pub.Diagnostics[0].Code)
	}
	start := uint32(strings.Index(content, `1 + ""`))
	if pub.Diagnostics[0].Primary.Start != start {
		t.Fatalf("span start %d, want %d", pub.Diagnostics[0].Primary.Start, start)
	}

	e.Update(ctx, []*source.File{rb("a.rb", "class A; end")})
	pubs = e.PushErrors()
	pub, ok = pubFor(pubs, "a.rb")
	if !ok || len(pub.Diagnostics) != 0 {
		t.Fatalf("fix must republish an empty set, got %+v", pubs)
	}
}

func TestSilencedClassesNeverPublish(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; def foo; end; def foo; 1; end; end")})
	pubs := e.PushErrors()
	for _, pub := range pubs {
		for _, d := range pub.Diagnostics {
			if d.Code == diag.NameRedefinitionOfMethod {
				t.Fatal("silenced class reached a publication")
			}
		}
	}
	if !e.Silenced(diag.NameRedefinitionOfMethod) {
		t.Fatal("default silence set incomplete")
	}
}

func TestFileIDStableAcrossUpdates(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; end")})
	first := e.FindFileByPath("a.rb")
	e.Update(ctx, []*source.File{rb("a.rb", "class A; def foo; end; end")})
	e.Update(ctx, []*source.File{rb("a.rb", "class A;   def foo; end; end")})
	if e.FindFileByPath("a.rb") != first {
		t.Fatal("file id changed across updates")
	}
}

func TestNilEntriesSkipped(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{nil, rb("a.rb", "class A; end"), nil})
	if !e.FindFileByPath("a.rb").IsValid() {
		t.Fatal("live entry not admitted")
	}
}

func TestQueryReturnsSendAndLeavesErrorsAlone(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", "class A; def foo; end; end")})
	e.Update(ctx, []*source.File{rb("b.rb", "A.new.foo")})
	e.PushErrors()

	bref := e.FindFileByPath("b.rb")
	resp, ok := e.Query(ctx, bref, 0, 6)
	if !ok {
		t.Fatal("query returned nothing")
	}
	if resp.Kind != equeue.KindSend {
		t.Fatalf("kind = %v", resp.Kind)
	}
	if len(resp.Dispatch) != 1 || !resp.Dispatch[0].Method.IsValid() {
		t.Fatalf("dispatch = %+v", resp.Dispatch)
	}
	def := e.Final().Symbol(resp.Dispatch[0].Method).Def
	if e.Initial().GetFile(def.File).Path != "a.rb" {
		t.Fatal("definition not in a.rb")
	}

	// Query isolation: nothing new to publish afterwards.
	if pubs := e.PushErrors(); len(pubs) != 0 {
		t.Fatalf("query leaked publications: %+v", pubs)
	}
}

func TestQueryIsolationWithExistingErrors(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	content := `class A; def foo; 1 + ""; end; end`
	e.Update(ctx, []*source.File{rb("a.rb", content)})
	before := e.PushErrors()
	pub, _ := pubFor(before, "a.rb")
	if len(pub.Diagnostics) != 1 {
		t.Fatalf("setup expected one diagnostic, got %+v", before)
	}

	aref := e.FindFileByPath("a.rb")
	resp, ok := e.Query(ctx, aref, 0, strings.Index(content, "1"))
	if !ok {
		t.Fatal("query in method body returned nothing")
	}
	if resp.Kind != equeue.KindLiteral {
		t.Fatalf("kind = %v, want Literal", resp.Kind)
	}

	// The accumulated set must be value-identical: a subsequent structural
	// no-op update republishes exactly the one diagnostic.
	e.Update(ctx, []*source.File{rb("a.rb", content)})
	after := e.PushErrors()
	pub, ok = pubFor(after, "a.rb")
	if !ok || len(pub.Diagnostics) != 1 {
		t.Fatalf("accumulated diagnostics drifted after query: %+v", after)
	}
}

func TestFastPathFidelityMatchesBatchRebuild(t *testing.T) {
	ctx := context.Background()
	a := "class A; def foo -> Integer; end; end"
	b := "A.new.bar"

	incremental, _ := newTestEngine(t)
	incremental.Update(ctx, []*source.File{rb("a.rb", a)})
	incremental.Update(ctx, []*source.File{rb("b.rb", b)})
	incremental.Update(ctx, []*source.File{rb("b.rb", "A.new.bar ")}) // fast path
	incPubs := incremental.PushErrors()

	batch, _ := newTestEngine(t)
	batch.Update(ctx, []*source.File{rb("a.rb", a), rb("b.rb", "A.new.bar ")})
	batchPubs := batch.PushErrors()

	incB, ok1 := pubFor(incPubs, "b.rb")
	batchB, ok2 := pubFor(batchPubs, "b.rb")
	if !ok1 || !ok2 {
		t.Fatalf("missing publications: %v %v", incPubs, batchPubs)
	}
	if len(incB.Diagnostics) != len(batchB.Diagnostics) {
		t.Fatalf("diagnostic counts differ: %d vs %d", len(incB.Diagnostics), len(batchB.Diagnostics))
	}
	for i := range incB.Diagnostics {
		if incB.Diagnostics[i].Code != batchB.Diagnostics[i].Code {
			t.Fatalf("codes differ at %d", i)
		}
	}
	if len(incB.Diagnostics) != 1 || incB.Diagnostics[0].Code != diag.TypeUnknownMethod {
		t.Fatalf("expected the unknown-method diagnostic, got %+v", incB.Diagnostics)
	}
}

func TestTombstonedFilesDropFromPublications(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	e.Update(ctx, []*source.File{rb("a.rb", `class A; def foo; 1 + ""; end; end`)})
	e.PushErrors()

	fref := e.FindFileByPath("a.rb")
	func() {
		defer e.Initial().UnfreezeFiles()()
		e.Initial().Tombstone(fref)
	}()
	e.Update(ctx, []*source.File{rb("b.rb", "class B; end")})
	pubs := e.PushErrors()
	if _, ok := pubFor(pubs, "a.rb"); ok {
		t.Fatal("tombstoned file still publishing")
	}
}
