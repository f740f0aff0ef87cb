package folding

import "strings"

// TextModel is the part of a text buffer the folding engine reads.
type TextModel interface {
	// LineCount returns the number of lines, at least 1.
	LineCount() int
	// LineContent returns the text of a 1-based line without its terminator.
	LineContent(lineNumber int) string
	// VersionID increases on every edit.
	VersionID() int
	// LanguageID identifies the document language, e.g. "go".
	LanguageID() string
	// URI identifies the document.
	URI() string
	// TabSize is the column width of a tab character.
	TabSize() int
}

// Position is a 1-based line/column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool {
	return p.Line < o.Line || (p.Line == o.Line && p.Column < o.Column)
}

// Range is a span between two positions, start inclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Selection is a cursor selection. Active is the caret, Anchor the fixed end.
type Selection struct {
	Anchor Position `json:"anchor"`
	Active Position `json:"active"`
}

// NewSelection returns a selection anchored at the start and active at the end.
func NewSelection(startLine, startColumn, endLine, endColumn int) Selection {
	return Selection{
		Anchor: Position{Line: startLine, Column: startColumn},
		Active: Position{Line: endLine, Column: endColumn},
	}
}

// Caret returns an empty selection at the given position.
func Caret(line, column int) Selection {
	return NewSelection(line, column, line, column)
}

// Start returns the earlier of the two positions.
func (s Selection) Start() Position {
	if s.Active.Before(s.Anchor) {
		return s.Active
	}
	return s.Anchor
}

// End returns the later of the two positions.
func (s Selection) End() Position {
	if s.Active.Before(s.Anchor) {
		return s.Anchor
	}
	return s.Active
}

// IsEmpty reports whether the selection is a caret.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Active
}

// withStart moves whichever position is the start.
func (s Selection) withStart(p Position) Selection {
	if s.Active.Before(s.Anchor) {
		s.Active = p
	} else {
		s.Anchor = p
	}
	return s
}

// withEnd moves whichever position is the end.
func (s Selection) withEnd(p Position) Selection {
	if s.Active.Before(s.Anchor) {
		s.Anchor = p
	} else {
		s.Active = p
	}
	return s
}

// LineRange is an inclusive range of 1-based lines.
type LineRange struct {
	Start int `json:"startLineNumber"`
	End   int `json:"endLineNumber"`
}

// Contains reports whether line lies in the range.
func (r LineRange) Contains(line int) bool {
	return r.Start <= line && line <= r.End
}

// Len returns the number of lines in the range.
func (r LineRange) Len() int {
	return r.End - r.Start + 1
}

// ContentChange is one edit: the text in Range was replaced by Text.
type ContentChange struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

// LineDelta returns how many lines the edit added (negative when removed).
func (c ContentChange) LineDelta() int {
	return strings.Count(c.Text, "\n") - (c.Range.End.Line - c.Range.Start.Line)
}

// ContentChangeEvent groups the edits that produced VersionID.
type ContentChangeEvent struct {
	Changes   []ContentChange `json:"changes"`
	VersionID int             `json:"versionId"`
	// IsFlush is set when the whole content was replaced.
	IsFlush bool `json:"isFlush,omitempty"`
}

// lineMaxColumn returns the column just past the end of a line.
func lineMaxColumn(text TextModel, line int) int {
	return len(text.LineContent(line)) + 1
}
