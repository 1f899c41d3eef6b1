package engine

import (
	"tyrb/internal/diag"
	"tyrb/internal/source"
)

// Publication is a full-file diagnostic set for the client: it replaces
// whatever the editor held for the file.
type Publication struct {
	File        source.FileID
	Path        string
	Kind        source.Kind
	Diagnostics []diag.Diagnostic
}

// PushErrors drains the queue, merges survivors into the accumulated
// per-file sets, and returns one publication per file recorded as updated
// since the last push.
func (e *Engine) PushErrors() []Publication {
	e.drainAccumulate()

	// Tombstoned files drop out of the accumulated map entirely.
	for fref := range e.errorsAccumulated {
		f := e.initial.GetFile(fref)
		if f == nil || f.Kind == source.KindTombStone {
			delete(e.errorsAccumulated, fref)
		}
	}

	pubs := make([]Publication, 0, len(e.updatedErrors))
	for _, fref := range e.updatedErrors {
		f := e.initial.GetFile(fref)
		if f == nil || f.Kind == source.KindTombStone {
			continue
		}
		list := e.errorsAccumulated[fref]
		if e.opts.MaxDiagnostics > 0 && len(list) > e.opts.MaxDiagnostics {
			list = list[:e.opts.MaxDiagnostics]
		}
		out := make([]diag.Diagnostic, len(list))
		copy(out, list)
		pubs = append(pubs, Publication{
			File:        fref,
			Path:        f.Path,
			Kind:        f.Kind,
			Diagnostics: out,
		})
	}
	e.updatedErrors = nil
	return pubs
}

// drainAccumulate moves queued diagnostics into errorsAccumulated,
// dropping silenced error classes and recording affected files.
func (e *Engine) drainAccumulate() {
	for _, d := range e.queue.DrainErrors() {
		if _, drop := e.silenced[d.Code]; drop {
			continue
		}
		fref := d.Primary.File
		e.errorsAccumulated[fref] = append(e.errorsAccumulated[fref], d)
		e.markUpdated(fref)
	}
}

// markUpdated records the file as needing publication, deduped to
// last-seen order.
func (e *Engine) markUpdated(fref source.FileID) {
	for i, existing := range e.updatedErrors {
		if existing == fref {
			e.updatedErrors = append(e.updatedErrors[:i], e.updatedErrors[i+1:]...)
			break
		}
	}
	e.updatedErrors = append(e.updatedErrors, fref)
}

// invalidateAllErrors forgets every accumulated diagnostic; the slow path
// repopulates from a clean slate.
func (e *Engine) invalidateAllErrors() {
	e.errorsAccumulated = make(map[source.FileID][]diag.Diagnostic)
	e.updatedErrors = nil
}

// invalidateErrorsFor forgets accumulated diagnostics for the subset and
// marks each file updated, so a clean file still republishes its (empty)
// set.
func (e *Engine) invalidateErrorsFor(subset []source.FileID) {
	for _, fref := range subset {
		delete(e.errorsAccumulated, fref)
		e.markUpdated(fref)
	}
}

// Silenced reports whether the error class is filtered from publications.
func (e *Engine) Silenced(code diag.Code) bool {
	_, ok := e.silenced[code]
	return ok
}
