package source

import (
	"fmt"
	"path/filepath"

	"fortio.org/safecast"
)

// NewFile builds a content snapshot: normalizes CRLF/BOM, precomputes the
// line index. Content is not mutated after this point.
func NewFile(path string, content []byte, kind Kind) *File {
	content, _ = removeBOM(content)
	content, _ = normalizeCRLF(content)
	return &File{
		Path:    normalizePath(path),
		Content: content,
		Kind:    kind,
		LineIdx: buildLineIndex(content),
	}
}

// Len returns the content length as uint32.
func (f *File) Len() uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	return n
}

// LineCol resolves a byte offset into a 1-based line/column pair.
func (f *File) LineCol(off uint32) LineCol {
	if off > f.Len() {
		off = f.Len()
	}
	return toLineCol(f.LineIdx, off)
}

// Offset is the inverse of LineCol: a 1-based line/column pair back to a
// byte offset, clamped to the line's extent.
func (f *File) Offset(pos LineCol) uint32 {
	if pos.Line == 0 {
		return 0
	}
	var start uint32
	switch {
	case pos.Line == 1:
		start = 0
	case int(pos.Line-2) < len(f.LineIdx):
		start = f.LineIdx[pos.Line-2] + 1
	default:
		return f.Len()
	}
	end := f.Len()
	if int(pos.Line-1) < len(f.LineIdx) {
		end = f.LineIdx[pos.Line-1]
	}
	off := start
	if pos.Col > 0 {
		off = start + pos.Col - 1
	}
	if off > end {
		off = end
	}
	return off
}

// GetLine returns the 1-based line's text, or "" when out of range.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	var start, end uint32
	lenContent := f.Len()
	lenLineIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}
	if (lineNum - 1) < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}
	if start >= lenContent {
		return ""
	}
	if end > lenContent {
		end = lenContent
	}
	return string(f.Content[start:end])
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
