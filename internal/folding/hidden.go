package folding

import "sort"

// HiddenRangeModel derives the lines hidden by collapsed regions of a Model
// and keeps them current as the model changes.
type HiddenRangeModel struct {
	model       *Model
	ranges      []LineRange
	lineChanges bool
	changes     Emitter[HiddenRangesEvent]
	unsubscribe func()
}

// NewHiddenRangeModel creates a hidden-range projection of model and
// subscribes to its changes.
func NewHiddenRangeModel(model *Model) *HiddenRangeModel {
	h := &HiddenRangeModel{model: model}
	h.unsubscribe = model.OnDidChange(func(ChangeEvent) {
		h.updateHiddenRanges()
	})
	if model.Regions().Length() > 0 {
		h.updateHiddenRanges()
	}
	return h
}

// OnDidChange subscribes to hidden-range changes.
func (h *HiddenRangeModel) OnDidChange(handler func(HiddenRangesEvent)) (unsubscribe func()) {
	return h.changes.Subscribe(handler)
}

// Ranges returns a copy of the hidden ranges in line order.
func (h *HiddenRangeModel) Ranges() []LineRange {
	out := make([]LineRange, len(h.ranges))
	copy(out, h.ranges)
	return out
}

// HasRanges reports whether any line is hidden.
func (h *HiddenRangeModel) HasRanges() bool {
	return len(h.ranges) > 0
}

// HiddenLineCount returns the number of hidden lines.
func (h *HiddenRangeModel) HiddenLineCount() int {
	n := 0
	for _, r := range h.ranges {
		n += r.Len()
	}
	return n
}

// updateHiddenRanges recomputes the hidden ranges from the collapsed
// regions. A collapsed region nested in another collapsed region adds
// nothing.
func (h *HiddenRangeModel) updateHiddenRanges() {
	regions := h.model.Regions()
	next := make([]LineRange, 0, len(h.ranges))
	changed := false
	k := 0
	lastStart, lastEnd := MaxLineNumber+1, -1
	for i := 0; i < regions.Length(); i++ {
		if !regions.IsCollapsed(i) {
			continue
		}
		start := regions.StartLineNumber(i) + 1
		end := regions.EndLineNumber(i)
		if lastStart <= start && end <= lastEnd {
			continue
		}
		r := LineRange{Start: start, End: end}
		if !changed && k < len(h.ranges) && h.ranges[k] == r {
			k++
		} else {
			changed = true
		}
		next = append(next, r)
		lastStart, lastEnd = start, end
	}
	if h.lineChanges || changed || k < len(h.ranges) {
		h.applyHiddenRanges(next)
	}
}

func (h *HiddenRangeModel) applyHiddenRanges(ranges []LineRange) {
	h.ranges = ranges
	h.lineChanges = false
	h.changes.Emit(HiddenRangesEvent{Ranges: h.Ranges()})
}

// findRange returns the hidden range containing line.
func (h *HiddenRangeModel) findRange(line int) (LineRange, bool) {
	i := sort.Search(len(h.ranges), func(k int) bool {
		return h.ranges[k].Start > line
	}) - 1
	if i >= 0 && h.ranges[i].End >= line {
		return h.ranges[i], true
	}
	return LineRange{}, false
}

// IsHidden reports whether line is hidden.
func (h *HiddenRangeModel) IsHidden(line int) bool {
	_, ok := h.findRange(line)
	return ok
}

// AdjustSelections moves selection ends that lie on hidden lines to the end
// of the visible line above the hidden range. It returns the adjusted
// selections and whether anything moved.
func (h *HiddenRangeModel) AdjustSelections(selections []Selection) ([]Selection, bool) {
	if len(h.ranges) == 0 {
		return selections, false
	}
	text := h.model.TextModel()
	out := make([]Selection, len(selections))
	changed := false
	adjust := func(line int) (int, bool) {
		if r, ok := h.findRange(line); ok {
			return r.Start - 1, true
		}
		return 0, false
	}
	for i, s := range selections {
		if line, ok := adjust(s.Start().Line); ok {
			s = s.withStart(Position{Line: line, Column: lineMaxColumn(text, line)})
			changed = true
		}
		if line, ok := adjust(s.End().Line); ok {
			s = s.withEnd(Position{Line: line, Column: lineMaxColumn(text, line)})
			changed = true
		}
		out[i] = s
	}
	return out, changed
}

// NotifyChangeModelContent shifts the hidden ranges by the line deltas of an
// edit. The next model change recomputes them exactly.
func (h *HiddenRangeModel) NotifyChangeModelContent(event ContentChangeEvent) {
	if len(h.ranges) == 0 {
		return
	}
	if event.IsFlush {
		h.lineChanges = true
		h.ranges = nil
		return
	}
	for _, c := range event.Changes {
		delta := c.LineDelta()
		if delta == 0 {
			continue
		}
		h.lineChanges = true
		shifted := h.ranges[:0]
		for _, r := range h.ranges {
			r.Start = shiftLine(r.Start, c, delta)
			r.End = shiftLine(r.End, c, delta)
			if r.End >= r.Start {
				shifted = append(shifted, r)
			}
		}
		h.ranges = shifted
	}
}

// Dispose detaches the projection from its model.
func (h *HiddenRangeModel) Dispose() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
	h.changes.Clear()
	h.ranges = nil
}

// VisibleLines returns the 1-based lines of a document of lineCount lines
// that no range in hidden covers. hidden must be sorted and disjoint.
func VisibleLines(lineCount int, hidden []LineRange) []int {
	out := make([]int, 0, lineCount)
	next := 0
	for line := 1; line <= lineCount; line++ {
		for next < len(hidden) && hidden[next].End < line {
			next++
		}
		if next < len(hidden) && hidden[next].Contains(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}
