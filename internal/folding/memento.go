package folding

// MementoRange is one persisted collapsed or user-defined range.
type MementoRange struct {
	StartLine int    `json:"startLineNumber"`
	EndLine   int    `json:"endLineNumber"`
	Collapsed bool   `json:"isCollapsed"`
	Source    Source `json:"source"`
	// Checksum hashes the first hidden line and the last line of the range.
	// Zero disables the check.
	Checksum uint32 `json:"checksum,omitempty"`
}

// Memento is the persisted view state of one document.
type Memento struct {
	CollapsedRegions []MementoRange `json:"collapsedRegions,omitempty"`
	LineCount        int            `json:"lineCount"`
	Provider         string         `json:"provider,omitempty"`
	FoldedImports    bool           `json:"foldedImports,omitempty"`
}

// Validate reports ErrEmptyMemento when there is nothing to restore.
// Malformed ranges are not an error; Ranges skips them.
func (m *Memento) Validate() error {
	if m == nil || len(m.CollapsedRegions) == 0 {
		return ErrEmptyMemento
	}
	return nil
}

// Ranges returns the well-formed ranges of the memento.
func (m *Memento) Ranges() []MementoRange {
	if m == nil {
		return nil
	}
	out := make([]MementoRange, 0, len(m.CollapsedRegions))
	for _, r := range m.CollapsedRegions {
		if r.StartLine < 1 || r.StartLine >= r.EndLine {
			continue
		}
		out = append(out, r)
	}
	return out
}
