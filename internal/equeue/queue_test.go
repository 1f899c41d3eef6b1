package equeue

import (
	"fmt"
	"sync"
	"testing"

	"tyrb/internal/diag"
	"tyrb/internal/source"
)

func TestStreamsAreIndependent(t *testing.T) {
	q := New()
	q.PushDiagnostic(diag.NewError(diag.TypeMismatch, source.Span{File: 1}, "boom"))
	q.PushResponse(QueryResponse{Kind: KindSend})

	responses := q.DrainQueryResponses()
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	errors := q.DrainErrors()
	if len(errors) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(errors))
	}
	if len(q.DrainErrors()) != 0 || len(q.DrainQueryResponses()) != 0 {
		t.Fatal("drain did not take ownership")
	}
}

func TestDrainPreservesPushOrder(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.PushDiagnostic(diag.NewError(diag.TypeMismatch, source.Span{File: 1, Start: uint32(i)}, fmt.Sprintf("e%d", i)))
	}
	drained := q.DrainErrors()
	for i, d := range drained {
		if d.Message != fmt.Sprintf("e%d", i) {
			t.Fatalf("order broken at %d: %s", i, d.Message)
		}
	}
}

func TestDiscardAll(t *testing.T) {
	q := New()
	q.PushDiagnostic(diag.NewError(diag.TypeMismatch, source.Span{}, "boom"))
	q.PushResponse(QueryResponse{})
	q.DiscardAll()
	if len(q.DrainErrors()) != 0 || len(q.DrainQueryResponses()) != 0 {
		t.Fatal("discard left items behind")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New()
	const producers = 8
	const perProducer = 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.PushDiagnostic(diag.NewError(diag.TypeMismatch,
					source.Span{File: source.FileID(p + 1), Start: uint32(i)}, "x"))
			}
		}(p)
	}
	wg.Wait()
	drained := q.DrainErrors()
	if len(drained) != producers*perProducer {
		t.Fatalf("lost items: got %d", len(drained))
	}
	// Per-producer push order must survive interleaving.
	next := make(map[source.FileID]uint32)
	for _, d := range drained {
		f := d.Primary.File
		if d.Primary.Start != next[f] {
			t.Fatalf("producer %d out of order: got %d want %d", f, d.Primary.Start, next[f])
		}
		next[f]++
	}
}
