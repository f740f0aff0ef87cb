// Package document is an in-memory text buffer that satisfies
// folding.TextModel and reports edits as content-change events.
//
// A Document is safe for concurrent use. Readers that race with an edit see
// either the old or the new content of a line; LineContent returns "" for
// lines that no longer exist so that background computations never panic.
// Their results are discarded by version checks.
package document

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

// DefaultTabSize is used when no tab size is configured.
const DefaultTabSize = 4

var (
	// ErrInvalidPosition indicates an edit position outside the document.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrInvalidRange indicates an edit whose end precedes its start.
	ErrInvalidRange = errors.New("invalid range")
)

// Option configures a Document.
type Option func(*Document)

// WithTabSize sets the tab width used for indentation.
func WithTabSize(n int) Option {
	return func(d *Document) {
		if n > 0 {
			d.tabSize = n
		}
	}
}

// WithVersion sets the initial version id.
func WithVersion(v int) Option {
	return func(d *Document) {
		d.version = v
	}
}

// Document is a line-based text buffer.
type Document struct {
	mu         sync.RWMutex
	uri        string
	languageID string
	lines      []string
	version    int
	tabSize    int
	events     folding.Emitter[folding.ContentChangeEvent]
}

// New creates a document holding text.
func New(uri, languageID, text string, opts ...Option) *Document {
	d := &Document{
		uri:        uri,
		languageID: languageID,
		lines:      splitLines(text),
		version:    1,
		tabSize:    DefaultTabSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LineCount implements folding.TextModel.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.lines)
}

// LineContent implements folding.TextModel.
func (d *Document) LineContent(lineNumber int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if lineNumber < 1 || lineNumber > len(d.lines) {
		return ""
	}
	return d.lines[lineNumber-1]
}

// VersionID implements folding.TextModel.
func (d *Document) VersionID() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// LanguageID implements folding.TextModel.
func (d *Document) LanguageID() string { return d.languageID }

// URI implements folding.TextModel.
func (d *Document) URI() string { return d.uri }

// TabSize implements folding.TextModel.
func (d *Document) TabSize() int { return d.tabSize }

// Text returns the full content joined with "\n".
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return strings.Join(d.lines, "\n")
}

// Lines returns a copy of the lines.
func (d *Document) Lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// OnDidChangeContent subscribes to edits. Handlers run after the document
// lock is released.
func (d *Document) OnDidChangeContent(handler func(folding.ContentChangeEvent)) (unsubscribe func()) {
	return d.events.Subscribe(handler)
}

// SetText replaces the whole content and fires a flush event.
func (d *Document) SetText(text string) {
	d.mu.Lock()
	d.lines = splitLines(text)
	d.version++
	event := folding.ContentChangeEvent{VersionID: d.version, IsFlush: true}
	d.mu.Unlock()
	d.events.Emit(event)
}

// ApplyEdits applies changes in order. Positions of each change refer to
// the content after the previous changes. Either all changes apply or none.
func (d *Document) ApplyEdits(changes []folding.ContentChange) error {
	if len(changes) == 0 {
		return nil
	}
	d.mu.Lock()
	lines := make([]string, len(d.lines))
	copy(lines, d.lines)
	for i, c := range changes {
		var err error
		lines, err = applyChange(lines, c)
		if err != nil {
			d.mu.Unlock()
			return fmt.Errorf("edit %d: %w", i, err)
		}
	}
	d.lines = lines
	d.version++
	event := folding.ContentChangeEvent{
		Changes:   append([]folding.ContentChange(nil), changes...),
		VersionID: d.version,
	}
	d.mu.Unlock()
	d.events.Emit(event)
	return nil
}

// InsertLines inserts text lines before line (1-based; LineCount()+1
// appends).
func (d *Document) InsertLines(line int, text ...string) error {
	count := d.LineCount()
	if line < 1 || line > count+1 {
		return fmt.Errorf("%w: line %d", ErrInvalidPosition, line)
	}
	insert := strings.Join(text, "\n") + "\n"
	if line == count+1 {
		last := d.LineContent(count)
		pos := folding.Position{Line: count, Column: len(last) + 1}
		return d.ApplyEdits([]folding.ContentChange{{
			Range: folding.Range{Start: pos, End: pos},
			Text:  "\n" + strings.Join(text, "\n"),
		}})
	}
	pos := folding.Position{Line: line, Column: 1}
	return d.ApplyEdits([]folding.ContentChange{{Range: folding.Range{Start: pos, End: pos}, Text: insert}})
}

// DeleteLines removes lines start..end inclusive.
func (d *Document) DeleteLines(start, end int) error {
	count := d.LineCount()
	if start < 1 || end < start || end > count {
		return fmt.Errorf("%w: lines %d-%d", ErrInvalidRange, start, end)
	}
	var r folding.Range
	switch {
	case end < count:
		r = folding.Range{Start: folding.Position{Line: start, Column: 1}, End: folding.Position{Line: end + 1, Column: 1}}
	case start > 1:
		prev := d.LineContent(start - 1)
		r = folding.Range{
			Start: folding.Position{Line: start - 1, Column: len(prev) + 1},
			End:   folding.Position{Line: end, Column: len(d.LineContent(end)) + 1},
		}
	default:
		r = folding.Range{
			Start: folding.Position{Line: 1, Column: 1},
			End:   folding.Position{Line: end, Column: len(d.LineContent(end)) + 1},
		}
	}
	return d.ApplyEdits([]folding.ContentChange{{Range: r}})
}

func validPosition(lines []string, p folding.Position) bool {
	if p.Line < 1 || p.Line > len(lines) {
		return false
	}
	return p.Column >= 1 && p.Column <= len(lines[p.Line-1])+1
}

func applyChange(lines []string, c folding.ContentChange) ([]string, error) {
	start, end := c.Range.Start, c.Range.End
	if !validPosition(lines, start) {
		return nil, fmt.Errorf("%w: start %d:%d", ErrInvalidPosition, start.Line, start.Column)
	}
	if !validPosition(lines, end) {
		return nil, fmt.Errorf("%w: end %d:%d", ErrInvalidPosition, end.Line, end.Column)
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	prefix := lines[start.Line-1][:start.Column-1]
	suffix := lines[end.Line-1][end.Column-1:]
	replacement := splitLines(prefix + c.Text + suffix)

	out := make([]string, 0, len(lines)-(end.Line-start.Line)+len(replacement)-1)
	out = append(out, lines[:start.Line-1]...)
	out = append(out, replacement...)
	out = append(out, lines[end.Line:]...)
	return out, nil
}
