package folding

import (
	"math"
	"regexp"
)

// AllLevels selects every nesting level.
const AllLevels = math.MaxInt

// ToggleCollapseStateAt toggles the innermost region at each line. When
// levels > 1, descendants up to that depth are set to the same new state.
func ToggleCollapseStateAt(m *Model, levels int, lineNumbers []int) {
	var toToggle []Region
	for _, line := range lineNumbers {
		region, ok := m.GetRegionAtLine(line)
		if !ok {
			continue
		}
		doCollapse := !region.IsCollapsed()
		toToggle = append(toToggle, region)
		if levels > 1 {
			toToggle = append(toToggle, m.GetRegionsInside(&region, func(r Region, level int) bool {
				return r.IsCollapsed() != doCollapse && level < levels
			})...)
		}
	}
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateLevelsDown sets the state of the innermost region at each
// line and of its descendants down to levels in total. Without lines, the
// whole forest is walked from the top.
func SetCollapseStateLevelsDown(m *Model, doCollapse bool, levels int, lineNumbers []int) {
	var toToggle []Region
	if len(lineNumbers) == 0 {
		toToggle = m.GetRegionsInside(nil, func(r Region, level int) bool {
			return r.IsCollapsed() != doCollapse && level <= levels
		})
		m.ToggleCollapseState(toToggle)
		return
	}
	for _, line := range lineNumbers {
		region, ok := m.GetRegionAtLine(line)
		if !ok {
			continue
		}
		if region.IsCollapsed() != doCollapse {
			toToggle = append(toToggle, region)
		}
		if levels > 1 {
			toToggle = append(toToggle, m.GetRegionsInside(&region, func(r Region, level int) bool {
				return r.IsCollapsed() != doCollapse && level < levels
			})...)
		}
	}
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateLevelsUp sets the state of the regions containing each
// line, from the innermost outwards, up to levels regions per line.
func SetCollapseStateLevelsUp(m *Model, doCollapse bool, levels int, lineNumbers []int) {
	var toToggle []Region
	for _, line := range lineNumbers {
		toToggle = append(toToggle, m.GetAllRegionsAtLine(line, func(r Region, level int) bool {
			return r.IsCollapsed() != doCollapse && level <= levels
		})...)
	}
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateUp sets the state of the nearest region at each line that
// is not already in that state, so repeated calls fold outwards.
func SetCollapseStateUp(m *Model, doCollapse bool, lineNumbers []int) {
	var toToggle []Region
	for _, line := range lineNumbers {
		regions := m.GetAllRegionsAtLine(line, func(r Region, _ int) bool {
			return r.IsCollapsed() != doCollapse
		})
		if len(regions) > 0 {
			toToggle = append(toToggle, regions[0])
		}
	}
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateAtLevel sets the state of every region at the given
// nesting level (top level is 1), skipping regions containing a blocked
// line.
func SetCollapseStateAtLevel(m *Model, foldLevel int, doCollapse bool, blockedLines []int) {
	toToggle := m.GetRegionsInside(nil, func(r Region, level int) bool {
		return level == foldLevel && r.IsCollapsed() != doCollapse && !containsAnyLine(r, blockedLines)
	})
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateForRest sets the state of every top-level region that
// contains none of exceptLines.
func SetCollapseStateForRest(m *Model, doCollapse bool, exceptLines []int) {
	toToggle := m.GetRegionsInside(nil, func(r Region, level int) bool {
		return level == 1 && r.IsCollapsed() != doCollapse && !containsAnyLine(r, exceptLines)
	})
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateForType sets the state of every region with the given
// type tag.
func SetCollapseStateForType(m *Model, typ string, doCollapse bool) {
	regions := m.Regions()
	var toToggle []Region
	for i := 0; i < regions.Length(); i++ {
		if regions.IsCollapsed(i) != doCollapse && regions.Type(i) == typ {
			toToggle = append(toToggle, regions.ToRegion(i))
		}
	}
	m.ToggleCollapseState(toToggle)
}

// SetCollapseStateForMatchingLines sets the state of every region whose
// start line matches re.
func SetCollapseStateForMatchingLines(m *Model, re *regexp.Regexp, doCollapse bool) {
	regions := m.Regions()
	text := m.TextModel()
	var toToggle []Region
	for i := regions.Length() - 1; i >= 0; i-- {
		if regions.IsCollapsed(i) == doCollapse {
			continue
		}
		if re.MatchString(text.LineContent(regions.StartLineNumber(i))) {
			toToggle = append(toToggle, regions.ToRegion(i))
		}
	}
	m.ToggleCollapseState(toToggle)
}

func containsAnyLine(r Region, lines []int) bool {
	for _, line := range lines {
		if r.ContainsLine(line) {
			return true
		}
	}
	return false
}

// GetParentFoldLine returns the start line of the region enclosing line.
// On a region's start line it returns the start of the parent region.
func GetParentFoldLine(line int, m *Model) (int, bool) {
	region, ok := m.GetRegionAtLine(line)
	if !ok {
		return 0, false
	}
	if line != region.StartLine() {
		return region.StartLine(), true
	}
	parent := region.ParentIndex()
	if parent < 0 {
		return 0, false
	}
	return m.Regions().StartLineNumber(parent), true
}

// GetPreviousFoldLine returns the start line of the previous sibling when
// line starts a region, otherwise the start of the last region that begins
// before line.
func GetPreviousFoldLine(line int, m *Model) (int, bool) {
	if !m.validLine(line) {
		return 0, false
	}
	regions := m.Regions()
	if region, ok := m.GetRegionAtLine(line); ok && region.StartLine() == line {
		parent := region.ParentIndex()
		minLine := 0
		if parent >= 0 {
			minLine = regions.StartLineNumber(parent)
		}
		for i := region.Index() - 1; i >= 0; i-- {
			if regions.StartLineNumber(i) <= minLine {
				return 0, false
			}
			if regions.ParentIndex(i) == parent {
				return regions.StartLineNumber(i), true
			}
		}
		return 0, false
	}
	for i := regions.Length() - 1; i >= 0; i-- {
		if regions.StartLineNumber(i) < line {
			return regions.StartLineNumber(i), true
		}
	}
	return 0, false
}

// GetNextFoldLine returns the start line of the next sibling when line
// starts a region, otherwise the start of the first region that begins
// after line.
func GetNextFoldLine(line int, m *Model) (int, bool) {
	if !m.validLine(line) {
		return 0, false
	}
	regions := m.Regions()
	if region, ok := m.GetRegionAtLine(line); ok && region.StartLine() == line {
		parent := region.ParentIndex()
		for i := region.Index() + 1; i < regions.Length(); i++ {
			if parent >= 0 && regions.StartLineNumber(i) > regions.EndLineNumber(parent) {
				return 0, false
			}
			if regions.ParentIndex(i) == parent {
				return regions.StartLineNumber(i), true
			}
		}
		return 0, false
	}
	for i := 0; i < regions.Length(); i++ {
		if regions.StartLineNumber(i) > line {
			return regions.StartLineNumber(i), true
		}
	}
	return 0, false
}
