// Package equeue threads diagnostics and query responses from pipeline
// passes back to the server loop. Producers are the passes (possibly on
// worker goroutines), the consumer is the single server loop.
package equeue

import (
	"sync"

	"tyrb/internal/diag"
)

// Queue is a multi-producer single-consumer FIFO with two logically
// independent streams: diagnostics and query responses.
type Queue struct {
	mu        sync.Mutex
	errors    []diag.Diagnostic
	responses []QueryResponse
}

func New() *Queue {
	return &Queue{}
}

// PushDiagnostic enqueues one diagnostic. Non-blocking, thread-safe.
func (q *Queue) PushDiagnostic(d diag.Diagnostic) {
	q.mu.Lock()
	q.errors = append(q.errors, d)
	q.mu.Unlock()
}

// PushResponse enqueues one query response. Non-blocking, thread-safe.
func (q *Queue) PushResponse(r QueryResponse) {
	q.mu.Lock()
	q.responses = append(q.responses, r)
	q.mu.Unlock()
}

// DrainErrors takes ownership of all queued diagnostics, preserving push
// order. Query responses are untouched.
func (q *Queue) DrainErrors() []diag.Diagnostic {
	q.mu.Lock()
	out := q.errors
	q.errors = nil
	q.mu.Unlock()
	return out
}

// DrainQueryResponses takes ownership of all queued query responses,
// preserving push order. Diagnostics are untouched.
func (q *Queue) DrainQueryResponses() []QueryResponse {
	q.mu.Lock()
	out := q.responses
	q.responses = nil
	q.mu.Unlock()
	return out
}

// DiscardAll silences both streams, dropping everything queued so far.
func (q *Queue) DiscardAll() {
	q.mu.Lock()
	q.errors = nil
	q.responses = nil
	q.mu.Unlock()
}

// Len reports queued diagnostics; used by tests and trace logging.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.errors)
}
