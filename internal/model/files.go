package model

import (
	"fmt"

	"fortio.org/safecast"

	"tyrb/internal/source"
)

// FindFileByPath returns the live file id for a canonical path, or
// NoFileID.
func (st *State) FindFileByPath(path string) source.FileID {
	f := source.NewFile(path, nil, source.KindNormal)
	if id, ok := st.paths[f.Path]; ok {
		return id
	}
	return source.NoFileID
}

// EnterFile admits a new file and returns its id. Ids are dense and never
// reused. Panics if the path collides with a live entry; callers replace
// instead.
func (st *State) EnterFile(f *source.File) source.FileID {
	if st.filesFrozen {
		panic("model: file table is frozen")
	}
	if id, ok := st.paths[f.Path]; ok {
		panic(fmt.Sprintf("model: EnterFile path collision %q (id %d)", f.Path, id))
	}
	value, err := safecast.Conv[uint32](len(st.files))
	if err != nil {
		panic(fmt.Errorf("file table overflow: %w", err))
	}
	id := source.FileID(value)
	st.files = append(st.files, f)
	st.Trees = append(st.Trees, nil)
	st.paths[f.Path] = id
	return id
}

// ReplaceFile installs a new content snapshot under an existing id. Symbol
// tables and indexed trees remain; the caller re-indexes.
func (st *State) ReplaceFile(id source.FileID, f *source.File) {
	if st.filesFrozen {
		panic("model: file table is frozen")
	}
	old := st.GetFile(id)
	if old == nil {
		panic(fmt.Sprintf("model: ReplaceFile of unknown id %d", id))
	}
	if old.Path != f.Path {
		delete(st.paths, old.Path)
	}
	st.files[id] = f
	st.paths[f.Path] = id
}

// Tombstone retires a file id. The id stays allocated and inert.
func (st *State) Tombstone(id source.FileID) {
	if st.filesFrozen {
		panic("model: file table is frozen")
	}
	old := st.GetFile(id)
	if old == nil || old.Kind == source.KindTombStone {
		return
	}
	delete(st.paths, old.Path)
	st.files[id] = &source.File{Path: old.Path, Kind: source.KindTombStone}
	st.Trees[id] = nil
}

// GetFile returns the file snapshot for an id, or nil.
func (st *State) GetFile(id source.FileID) *source.File {
	if !id.IsValid() || int(id) >= len(st.files) {
		return nil
	}
	return st.files[id]
}

// FilesUsed reports the size of the file table including the sentinel
// slot; valid ids are 1..FilesUsed()-1.
func (st *State) FilesUsed() int { return len(st.files) }

// Files exposes the raw table, sentinel included. Entries may be nil or
// tombstoned; fingerprinting treats those as zero-hash.
func (st *State) Files() []*source.File { return st.files }

// Resolve converts a span into 1-based start/end positions.
func (st *State) Resolve(span source.Span) (start, end source.LineCol) {
	f := st.GetFile(span.File)
	if f == nil {
		return source.LineCol{}, source.LineCol{}
	}
	return f.LineCol(span.Start), f.LineCol(span.End)
}
