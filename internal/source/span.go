package source

import (
	"fmt"
)

// Span is a half-open byte range inside one file. The zero Span is the
// distinguished "none" location.
type Span struct {
	File  FileID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

// None returns the distinguished empty location.
func None() Span { return Span{} }

// IsNone reports whether the span is the distinguished empty location.
func (s Span) IsNone() bool { return s == Span{} }

func (s Span) Empty() bool { return s.Start == s.End }

func (s Span) Len() uint32 { return s.End - s.Start }

// Contains reports whether the offset falls inside the span. A zero-width
// span matches its own position, which is what point queries install.
func (s Span) Contains(off uint32) bool {
	if s.Start == s.End {
		return off == s.Start
	}
	return off >= s.Start && off < s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
