package lsp

import (
	"fmt"
	"strings"

	"tyrb/internal/source"
)

// The client contract is string-prefix based: the rootUri from initialize
// is kept verbatim and workspace files address as <rootUri>/<localPath>.
// Files outside the root are ignored.

func (s *Server) remoteToLocal(uri string) (string, bool) {
	if s.rootURI == "" || !strings.HasPrefix(uri, s.rootURI+"/") {
		return "", false
	}
	return uri[len(s.rootURI)+1:], true
}

func (s *Server) localToRemote(path string) string {
	return s.rootURI + "/" + path
}

// uri2FileRef resolves a client URI to a live file id.
func (s *Server) uri2FileRef(uri string) source.FileID {
	local, ok := s.remoteToLocal(uri)
	if !ok {
		return source.NoFileID
	}
	return s.eng.FindFileByPath(local)
}

// fileRef2URI renders the URI a file publishes under. Payload files use
// their raw path.
func (s *Server) fileRef2URI(fref source.FileID) string {
	f := s.eng.Initial().GetFile(fref)
	if f == nil {
		return ""
	}
	if f.Kind == source.KindPayload {
		return f.Path
	}
	return s.localToRemote(f.Path)
}

// loc2Range converts a span into a wire range. Internal positions are
// 1-based, wire positions 0-based.
func (s *Server) loc2Range(span source.Span) lspRange {
	f := s.eng.Initial().GetFile(span.File)
	if f == nil {
		return lspRange{}
	}
	start := f.LineCol(span.Start)
	end := f.LineCol(span.End)
	return lspRange{
		Start: position{Line: maxZero(int(start.Line) - 1), Character: maxZero(int(start.Col) - 1)},
		End:   position{Line: maxZero(int(end.Line) - 1), Character: maxZero(int(end.Col) - 1)},
	}
}

// loc2Location renders a span as a client location. Payload locations get
// a #L<line> anchor so they stay useful outside the workspace.
func (s *Server) loc2Location(span source.Span) location {
	f := s.eng.Initial().GetFile(span.File)
	rng := s.loc2Range(span)
	if f != nil && f.Kind == source.KindPayload {
		return location{
			URI:   fmt.Sprintf("%s#L%d", f.Path, rng.Start.Line+1),
			Range: rng,
		}
	}
	return location{URI: s.fileRef2URI(span.File), Range: rng}
}

func maxZero(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
