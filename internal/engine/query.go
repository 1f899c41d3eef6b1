package engine

import (
	"context"

	"tyrb/internal/equeue"
	"tyrb/internal/source"
)

// Query installs a single-point query location, re-runs the fast path over
// just the file's current content, and harvests the first query response.
// Wire positions are 0-based; internal positions are 1-based.
//
// The re-run is a content-identical replace, so it takes the fast path and
// re-emits the file's existing diagnostics; those merge back into the
// accumulated sets unchanged and the publication marks are restored, so a
// query never alters what the editor sees.
func (e *Engine) Query(ctx context.Context, fref source.FileID, line, character int) (equeue.QueryResponse, bool) {
	if e.final == nil {
		return equeue.QueryResponse{}, false
	}
	file := e.final.GetFile(fref)
	if file == nil || file.Kind == source.KindTombStone {
		return equeue.QueryResponse{}, false
	}
	pos := source.LineCol{Line: uint32(line + 1), Col: uint32(character + 1)}
	off := file.Offset(pos)
	loc := source.Span{File: fref, Start: off, End: off}

	e.initial.QueryLoc = loc
	e.final.QueryLoc = loc
	marks := append([]source.FileID(nil), e.updatedErrors...)

	e.TryFastPath(ctx, []*source.File{file})

	e.initial.QueryLoc = source.None()
	e.final.QueryLoc = source.None()

	responses := e.queue.DrainQueryResponses()
	e.drainAccumulate()
	e.updatedErrors = marks

	if len(responses) == 0 {
		return equeue.QueryResponse{}, false
	}
	return responses[0], true
}
