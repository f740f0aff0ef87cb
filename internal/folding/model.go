package folding

import (
	"context"

	"github.com/zeebo/xxh3"
)

// checksumModulus keeps memento checksums short in serialized form.
const checksumModulus = 1_000_000

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithModelLogger sets the logger used by the model.
func WithModelLogger(l *Logger) ModelOption {
	return func(m *Model) {
		m.logger = l
	}
}

// Model owns the fold regions of one document.
type Model struct {
	text    TextModel
	regions *Regions
	changes Emitter[ChangeEvent]
	logger  *Logger
}

// NewModel creates a model with no regions for text.
func NewModel(text TextModel, opts ...ModelOption) *Model {
	m := &Model{
		text:    text,
		regions: EmptyRegions(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Regions returns the current region table. Callers must not keep indices
// across calls to Update.
func (m *Model) Regions() *Regions { return m.regions }

// TextModel returns the document the model folds.
func (m *Model) TextModel() TextModel { return m.text }

// OnDidChange subscribes to model changes.
func (m *Model) OnDidChange(handler func(ChangeEvent)) (unsubscribe func()) {
	return m.changes.Subscribe(handler)
}

// ToggleCollapseState flips the collapse bit of every region. Regions from
// an older table are ignored.
func (m *Model) ToggleCollapseState(regions []Region) {
	if len(regions) == 0 {
		return
	}
	toggled := make([]Region, 0, len(regions))
	seen := make(map[int]struct{}, len(regions))
	for _, r := range regions {
		if r.ranges != m.regions {
			continue
		}
		if _, dup := seen[r.index]; dup {
			continue
		}
		seen[r.index] = struct{}{}
		m.regions.SetCollapsed(r.index, !m.regions.IsCollapsed(r.index))
		toggled = append(toggled, r)
	}
	if len(toggled) == 0 {
		return
	}
	m.logger.CollapseStateChanged(context.Background(), m.text.URI(), len(toggled))
	m.changes.Emit(ChangeEvent{Model: m, CollapseStateChanged: toggled})
}

// SetCollapseState collapses or expands regions, skipping those already in
// the requested state.
func (m *Model) SetCollapseState(regions []Region, collapsed bool) {
	toToggle := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.ranges == m.regions && r.IsCollapsed() != collapsed {
			toToggle = append(toToggle, r)
		}
	}
	m.ToggleCollapseState(toToggle)
}

// Update replaces the regions with newRegions. Collapse state is carried
// over for ranges with identical bounds, user-defined ranges are merged back
// in, and any collapsed range that would hide a selection end is expanded.
func (m *Model) Update(newRegions *Regions, selections []Selection) {
	kept := m.currentFoldedOrManualRanges(selections)
	merged := SanitizeAndMerge(newRegions, kept, m.text.LineCount())
	m.updatePost(FromFoldRanges(merged))
}

func (m *Model) updatePost(regions *Regions) {
	m.regions = regions
	m.logger.RegionsUpdated(context.Background(), m.text.URI(), m.text.VersionID(), regions.Length())
	m.changes.Emit(ChangeEvent{Model: m})
}

// currentFoldedOrManualRanges returns the collapsed and user-defined ranges,
// with ranges that hide a selection end marked as expanded.
func (m *Model) currentFoldedOrManualRanges(selections []Selection) []FoldRange {
	var out []FoldRange
	for i := 0; i < m.regions.Length(); i++ {
		collapsed := m.regions.IsCollapsed(i)
		if !collapsed && !m.regions.IsUserDefined(i) {
			continue
		}
		fr := m.regions.ToFoldRange(i)
		if collapsed && selectionsTouch(selections, fr.StartLine+1, fr.EndLine) {
			fr.Collapsed = false
		}
		out = append(out, fr)
	}
	return out
}

// selectionsTouch reports whether any selection end lies in [start, end].
func selectionsTouch(selections []Selection, start, end int) bool {
	for _, s := range selections {
		if (s.Anchor.Line >= start && s.Anchor.Line <= end) ||
			(s.Active.Line >= start && s.Active.Line <= end) {
			return true
		}
	}
	return false
}

// GetRegionAtLine returns the innermost region containing line.
func (m *Model) GetRegionAtLine(line int) (Region, bool) {
	if !m.validLine(line) {
		return Region{}, false
	}
	return m.regions.RegionAtLine(line)
}

// GetAllRegionsAtLine returns the regions containing line, innermost first.
// filter receives the region and its depth counted from the innermost (1).
func (m *Model) GetAllRegionsAtLine(line int, filter func(Region, int) bool) []Region {
	if !m.validLine(line) {
		return nil
	}
	var result []Region
	index := m.regions.FindRange(line)
	level := 1
	for index >= 0 {
		current := m.regions.ToRegion(index)
		if filter == nil || filter(current, level) {
			result = append(result, current)
		}
		level++
		index = current.ParentIndex()
	}
	return result
}

// GetRegionsInside returns the descendants of parent, or all regions when
// parent is nil.
func (m *Model) GetRegionsInside(parent *Region, filter func(Region, int) bool) []Region {
	index := -1
	if parent != nil {
		if parent.ranges != m.regions {
			return nil
		}
		index = parent.index
	}
	return m.regions.RegionsInside(index, filter)
}

func (m *Model) validLine(line int) bool {
	return line >= 1 && line <= m.text.LineCount()
}

// CreateManualRanges adds a collapsed user-defined range for every
// selection spanning more than one line. A selection ending at column 1
// does not include its last line. Ranges that conflict with existing
// user-defined ranges are dropped during merging. It returns the number of
// candidate ranges.
func (m *Model) CreateManualRanges(selections []Selection) int {
	var ranges []FoldRange
	for _, s := range selections {
		start, end := s.Start(), s.End()
		endLine := end.Line
		if end.Column == 1 && endLine > start.Line {
			endLine--
		}
		if endLine <= start.Line {
			continue
		}
		ranges = append(ranges, FoldRange{
			StartLine: start.Line,
			EndLine:   endLine,
			Collapsed: true,
			Source:    SourceUserDefined,
		})
	}
	if len(ranges) == 0 {
		return 0
	}
	merged := SanitizeAndMerge(m.regions, ranges, m.text.LineCount())
	m.updatePost(FromFoldRanges(merged))
	return len(ranges)
}

// RemoveManualRanges removes every user-defined region that intersects one
// of the given line ranges and returns how many were removed.
func (m *Model) RemoveManualRanges(ranges []LineRange) int {
	var kept []FoldRange
	removed := 0
	for i := 0; i < m.regions.Length(); i++ {
		fr := m.regions.ToFoldRange(i)
		if fr.Source == SourceUserDefined && intersectsAny(fr, ranges) {
			removed++
			continue
		}
		kept = append(kept, fr)
	}
	if removed == 0 {
		return 0
	}
	m.updatePost(FromFoldRanges(kept))
	return removed
}

func intersectsAny(fr FoldRange, ranges []LineRange) bool {
	for _, r := range ranges {
		if fr.StartLine <= r.End && r.Start <= fr.EndLine {
			return true
		}
	}
	return false
}

// ApplyEdits shifts region bounds by the line deltas of an edit so that
// queries between the edit and the next recomputation stay close to right.
// Ranges that collapse to a single line are dropped.
func (m *Model) ApplyEdits(event ContentChangeEvent) {
	if m.regions.Length() == 0 {
		return
	}
	if event.IsFlush {
		m.updatePost(EmptyRegions())
		return
	}
	ranges := m.regions.ToFoldRanges()
	for _, c := range event.Changes {
		delta := c.LineDelta()
		if delta == 0 {
			continue
		}
		for i := range ranges {
			ranges[i].StartLine = shiftLine(ranges[i].StartLine, c, delta)
			ranges[i].EndLine = shiftLine(ranges[i].EndLine, c, delta)
		}
	}
	m.updatePost(FromFoldRanges(ranges))
}

// shiftLine maps a line number across an edit. A line whose content starts
// at the edit end moves with it.
func shiftLine(line int, c ContentChange, delta int) int {
	editStart, editEnd := c.Range.Start.Line, c.Range.End.Line
	switch {
	case line > editEnd, line == editEnd && c.Range.End.Column == 1:
		return line + delta
	case line > editStart:
		if newEnd := editEnd + delta; line > newEnd {
			return newEnd
		}
	}
	return line
}

// CollapseMemento returns the collapsed and user-defined ranges with line
// checksums, or nil when there is nothing to persist.
func (m *Model) CollapseMemento() []MementoRange {
	lineCount := m.text.LineCount()
	var result []MementoRange
	for _, fr := range m.currentFoldedOrManualRanges(nil) {
		if fr.Validate(lineCount) != nil {
			continue
		}
		result = append(result, MementoRange{
			StartLine: fr.StartLine,
			EndLine:   fr.EndLine,
			Collapsed: fr.Collapsed,
			Source:    fr.Source,
			Checksum:  m.linesChecksum(fr.StartLine+1, fr.EndLine),
		})
	}
	return result
}

// ApplyCollapseMemento restores ranges saved by CollapseMemento. Entries
// outside the document or whose checksum no longer matches are skipped.
// It returns the number of ranges that were restored.
func (m *Model) ApplyCollapseMemento(state []MementoRange) int {
	if len(state) == 0 {
		return 0
	}
	lineCount := m.text.LineCount()
	restore := make([]FoldRange, 0, len(state))
	for _, r := range state {
		fr := FoldRange{
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
			Collapsed: r.Collapsed,
			Source:    r.Source,
		}
		if fr.Validate(lineCount) != nil {
			continue
		}
		if r.Checksum != 0 && r.Checksum != m.linesChecksum(r.StartLine+1, r.EndLine) {
			continue
		}
		restore = append(restore, fr)
	}
	merged := SanitizeAndMerge(m.regions, restore, lineCount)
	m.updatePost(FromFoldRanges(merged))
	m.logger.MementoApplied(context.Background(), m.text.URI(), len(state), len(restore))
	return len(restore)
}

// linesChecksum hashes two lines of text into [1, checksumModulus].
func (m *Model) linesChecksum(line1, line2 int) uint32 {
	h := xxh3.HashString(m.text.LineContent(line1) + "\n" + m.text.LineContent(line2))
	return uint32(h%checksumModulus) + 1
}
