// Package fingerprint computes per-file structural hashes by running each
// file in isolation through index and resolve on a throwaway model.
package fingerprint

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tyrb/internal/equeue"
	"tyrb/internal/model"
	"tyrb/internal/pipeline"
	"tyrb/internal/source"
	"tyrb/internal/syntax"
)

// ComputeStateHashes returns one structural hash per input file, at the
// original indices. A nil entry contributes 0. Jobs run in parallel on
// scratch models with silenced queues, so nothing a fingerprint pass does
// is observable outside this function. A panicking job reports 0, which
// at worst forces a slow path on the next update.
func ComputeStateHashes(ctx context.Context, files []*source.File, jobs int) []uint32 {
	res := make([]uint32, len(files))
	if len(files) == 0 {
		return res
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			if file == nil || file.Kind == source.KindTombStone {
				return nil
			}
			res[i] = hashOne(file)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func hashOne(file *source.File) (h uint32) {
	defer func() {
		if recover() != nil {
			// Scratch state is dropped; zero forces re-fingerprinting.
			h = 0
		}
	}()
	scratch := model.NewState(equeue.New())
	scratch.SilenceErrors = true
	pipeline.Bootstrap(scratch)
	// Hash the file's own shape, not its position in a batch: the file is
	// re-entered under its real path into an otherwise empty model.
	fref := scratch.EnterFile(source.NewFile(file.Path, file.Content, file.Kind))
	tree := pipeline.IndexFile(scratch, fref)
	pipeline.Resolve(scratch, []*syntax.Tree{tree})
	return scratch.Hash()
}
