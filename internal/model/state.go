// Package model holds the mutable program model: the file table, the name
// table, the symbol table, the indexed trees, and the flags the pipeline
// consults. Two models coexist at runtime: the initial model owns indexed
// trees only, the final model is a resolved+typechecked deep copy that
// answers queries.
package model

import (
	"tyrb/internal/diag"
	"tyrb/internal/equeue"
	"tyrb/internal/source"
	"tyrb/internal/symbols"
	"tyrb/internal/syntax"
	"tyrb/internal/types"
)

// Builtins records the well-known class symbols entered at bootstrap.
type Builtins struct {
	Object   symbols.SymbolID
	Integer  symbols.SymbolID
	Float    symbols.SymbolID
	String   symbols.SymbolID
	NilClass symbols.SymbolID
	Boolean  symbols.SymbolID
}

// State is the program model.
type State struct {
	files []*source.File // index 0 reserved for NoFileID
	paths map[string]source.FileID

	names *source.Interner
	syms  []Symbol // index 0 reserved, index 1 is root

	Types *types.Interner
	Trees []*syntax.Tree // indexed trees, by file id; master copies

	Queue *equeue.Queue

	// SilenceErrors makes the model's reporter discard diagnostics instead
	// of exposing them on the queue. Scratch models set it.
	SilenceErrors bool

	// QueryLoc is the single-point query location the typechecker answers
	// at. The zero span disables querying.
	QueryLoc source.Span

	Builtins Builtins

	filesFrozen bool
	symsFrozen  bool
	namesFrozen bool
}

// NewState creates an empty model bound to the queue.
func NewState(q *equeue.Queue) *State {
	st := &State{
		files: make([]*source.File, 1, 8),
		paths: make(map[string]source.FileID),
		names: source.NewInterner(),
		syms:  make([]Symbol, 1, 64),
		Types: types.NewInterner(),
		Trees: make([]*syntax.Tree, 1, 8),
		Queue: q,
	}
	st.syms = append(st.syms, Symbol{Name: st.names.Intern("<root>"), Kind: symbols.KindModule})
	return st
}

type stateReporter struct{ st *State }

func (r stateReporter) Report(d diag.Diagnostic) {
	if r.st.SilenceErrors || r.st.Queue == nil {
		return
	}
	r.st.Queue.PushDiagnostic(d)
}

// Reporter returns a reporter that feeds the model's queue, honoring
// SilenceErrors.
func (st *State) Reporter() diag.Reporter {
	return stateReporter{st: st}
}

// PushResponse forwards a query response to the queue. Responses are never
// silenced; scratch models simply never install a query location.
func (st *State) PushResponse(r equeue.QueryResponse) {
	if st.Queue != nil {
		st.Queue.PushResponse(r)
	}
}

// InternName inserts a name into the name table.
func (st *State) InternName(s string) source.StringID {
	if st.namesFrozen {
		panic("model: name table is frozen")
	}
	return st.names.Intern(s)
}

// NameString resolves a name id; returns "" for invalid ids.
func (st *State) NameString(id source.StringID) string {
	s, _ := st.names.Lookup(id)
	return s
}

// NameInterner exposes the name table for the parser. Callers must hold an
// unfreeze scope for names.
func (st *State) NameInterner() *source.Interner {
	if st.namesFrozen {
		panic("model: name table is frozen")
	}
	return st.names
}

// DeepCopy produces an independent clone. File snapshots are immutable
// and shared, and the name table is shared outright: it is append-only,
// so ids handed out by either snapshot stay valid in both. Everything
// else is copied. The clone keeps the same queue, so passes running over
// the copy report into the same stream. With freeze set, the clone's
// tables reject mutation until an unfreeze scope opens.
func (st *State) DeepCopy(freeze bool) *State {
	out := &State{
		files:         make([]*source.File, len(st.files)),
		paths:         make(map[string]source.FileID, len(st.paths)),
		names:         st.names,
		syms:          make([]Symbol, len(st.syms)),
		Types:         st.Types.Clone(),
		Trees:         make([]*syntax.Tree, len(st.Trees)),
		Queue:         st.Queue,
		SilenceErrors: st.SilenceErrors,
		QueryLoc:      st.QueryLoc,
		Builtins:      st.Builtins,
	}
	copy(out.files, st.files)
	for p, id := range st.paths {
		out.paths[p] = id
	}
	for i := range st.syms {
		out.syms[i] = st.syms[i].clone()
	}
	for i, t := range st.Trees {
		if t != nil {
			out.Trees[i] = t.Clone()
		}
	}
	if freeze {
		out.Freeze()
	}
	return out
}
