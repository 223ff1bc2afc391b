package editor

import (
	"strings"
	"unicode/utf8"
)

// Position is a location in a document. Both fields are zero based and
// Column counts runes, not bytes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Less reports whether p comes before other.
func (p Position) Less(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Advance returns the position reached after writing text at p.
func (p Position) Advance(text string) Position {
	lastNL := strings.LastIndexByte(text, '\n')
	if lastNL < 0 {
		return Position{Line: p.Line, Column: p.Column + utf8.RuneCountInString(text)}
	}
	return Position{
		Line:   p.Line + strings.Count(text, "\n"),
		Column: utf8.RuneCountInString(text[lastNL+1:]),
	}
}

// Span is the half-open range [Start, End) a placeholder occupies.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewSpan computes the range text will cover once inserted at start.
func NewSpan(start Position, text string) Span {
	return Span{Start: start, End: start.Advance(text)}
}

// Empty reports whether the span covers no characters.
func (s Span) Empty() bool {
	return s.Start == s.End
}
