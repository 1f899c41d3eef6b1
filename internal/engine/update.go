package engine

import (
	"context"

	"tyrb/internal/fingerprint"
	"tyrb/internal/observ"
	"tyrb/internal/pipeline"
	"tyrb/internal/source"
	"tyrb/internal/syntax"
)

// AddNewFile admits or replaces a file in the initial model and re-indexes
// it. Nil batch entries are skipped.
func (e *Engine) AddNewFile(f *source.File) source.FileID {
	if f == nil {
		return source.NoFileID
	}
	defer e.initial.UnfreezeAll()()
	fref := e.initial.FindFileByPath(f.Path)
	if fref.IsValid() {
		e.initial.ReplaceFile(fref, f)
	} else {
		fref = e.initial.EnterFile(f)
	}
	pipeline.IndexFile(e.initial, fref)
	return fref
}

// Update applies a batch of changed files, choosing between the fast and
// slow paths.
func (e *Engine) Update(ctx context.Context, changed []*source.File) {
	e.TryFastPath(ctx, changed)
}

// TryFastPath classifies each changed file as new, structurally equal, or
// structurally changed. The fast path runs iff every file is known and
// structurally equal; otherwise the loop still finishes so every file's
// stored fingerprint stays accurate, and the slow path runs once at the
// end.
func (e *Engine) TryFastPath(ctx context.Context, changed []*source.File) {
	timer := observ.NewTimer()
	phase := timer.Begin("fingerprint")
	hashes := fingerprint.ComputeStateHashes(ctx, changed, e.opts.Jobs)
	timer.End(phase, "")

	// Diagnostics still queued from an earlier, unpublished update move
	// into the accumulated sets first, so the invalidation below covers
	// them and they are not published twice.
	e.drainAccumulate()

	good := true
	var subset []source.FileID
	for i, f := range changed {
		if f == nil {
			continue
		}
		wasFiles := e.initial.FilesUsed()
		fref := e.AddNewFile(f)
		e.ensureHashLen(fref)
		if wasFiles != e.initial.FilesUsed() {
			e.logf("taking slow path because %s is a new file", f.Path)
			good = false
			e.hashes[fref] = hashes[i]
			continue
		}
		if hashes[i] != e.hashes[fref] {
			e.logf("taking slow path because %s has changed definitions", f.Path)
			good = false
			e.hashes[fref] = hashes[i]
		}
		if good && e.final != nil {
			func() {
				defer e.final.UnfreezeFiles()()
				e.final.ReplaceFile(fref, f)
			}()
			subset = append(subset, fref)
		}
	}

	if good && e.final != nil {
		e.invalidateErrorsFor(subset)
		e.logf("taking fast path")
		phase = timer.Begin("fast path")
		func() {
			defer e.final.UnfreezeAll()()
			// Reuse the trees AddNewFile just indexed: deep copies go to
			// the final model, which renames them to refresh definition
			// spans and then resolves and typechecks only the subset.
			copies := make([]*syntax.Tree, 0, len(subset))
			for _, fref := range subset {
				master := e.initial.Trees[fref]
				if master == nil {
					continue
				}
				clone := master.Clone()
				pipeline.NameTree(e.final, clone)
				e.final.Trees[fref] = clone
				copies = append(copies, clone)
			}
			pipeline.Resolve(e.final, copies)
			pipeline.Typecheck(e.final, copies)
		}()
		timer.End(phase, "")
		e.logf("%s", timer.Summary())
		return
	}
	e.RunSlowPath(ctx, changed)
}

// RunSlowPath rebuilds the final model: every changed file is re-admitted,
// every indexed tree deep-copied, and the whole copy resolved and
// typechecked.
func (e *Engine) RunSlowPath(ctx context.Context, changed []*source.File) {
	e.logf("taking slow path")
	timer := observ.NewTimer()
	phase := timer.Begin("slow path")

	e.invalidateAllErrors()
	for _, f := range changed {
		if f == nil {
			continue
		}
		fref := e.AddNewFile(f)
		e.ensureHashLen(fref)
	}

	final := e.initial.DeepCopy(true)
	copies := make([]*syntax.Tree, 0, len(final.Trees))
	for _, t := range final.Trees {
		if t != nil {
			copies = append(copies, t.Clone())
		}
	}
	pipeline.Resolve(final, copies)
	pipeline.Typecheck(final, copies)
	e.final = final

	// A slow path republishes every live workspace file, empty sets
	// included. Payload files only publish when they accumulate
	// diagnostics.
	for id := source.FileID(1); int(id) < e.initial.FilesUsed(); id++ {
		f := e.initial.GetFile(id)
		if f != nil && f.Kind == source.KindNormal {
			e.markUpdated(id)
		}
	}
	timer.End(phase, "")
	e.logf("%s", timer.Summary())
}
