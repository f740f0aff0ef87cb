package controller

import "github.com/fyrsmithlabs/foldkit/internal/folding"

// MouseTarget is the part of a line a mouse event hit.
type MouseTarget int

const (
	TargetText MouseTarget = iota
	// TargetGutterIcon is the fold icon next to a region start line.
	TargetGutterIcon
	// TargetContentAfterEOL is the empty space after the end of a line.
	TargetContentAfterEOL
)

// MouseButton identifies the pressed button.
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonMiddle
	ButtonRight
)

// MouseEvent is a mouse press or release on a line.
type MouseEvent struct {
	Line   int
	Target MouseTarget
	Button MouseButton
	Alt    bool
	Shift  bool
}

type mouseDownInfo struct {
	line        int
	iconClicked bool
}

// MouseDown records a press that may become a fold toggle on release.
func (c *Controller) MouseDown(e MouseEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mouseDown = nil
	if c.model == nil || e.Button == ButtonRight {
		return
	}
	switch e.Target {
	case TargetGutterIcon:
		c.mouseDown = &mouseDownInfo{line: e.Line, iconClicked: true}
	case TargetContentAfterEOL:
		if c.cfg.UnfoldOnClickAfterEndOfLine && c.hidden.HasRanges() {
			c.mouseDown = &mouseDownInfo{line: e.Line}
		}
	}
}

// MouseUp toggles the region starting at the released line when it matches
// the recorded press. Alt toggles the siblings instead; Shift or the middle
// button also toggles the descendants. It reports whether anything was
// toggled.
func (c *Controller) MouseUp(e MouseEvent) bool {
	c.mu.Lock()
	toggled := c.mouseUpLocked(e)
	c.mu.Unlock()
	c.flush()
	return toggled
}

func (c *Controller) mouseUpLocked(e MouseEvent) bool {
	info := c.mouseDown
	c.mouseDown = nil
	if info == nil || c.model == nil || info.line != e.Line {
		return false
	}
	if info.iconClicked && e.Target != TargetGutterIcon {
		return false
	}
	if !info.iconClicked && e.Target != TargetContentAfterEOL {
		return false
	}

	region, ok := c.model.GetRegionAtLine(e.Line)
	if !ok || region.StartLine() != e.Line {
		return false
	}
	collapsed := region.IsCollapsed()
	if !info.iconClicked && !collapsed {
		return false
	}

	var toToggle []folding.Region
	if e.Alt {
		toToggle = c.siblingsToToggle(region)
	} else {
		recursive := e.Button == ButtonMiddle || e.Shift
		if recursive {
			toToggle = c.model.GetRegionsInside(&region, func(r folding.Region, _ int) bool {
				return r.IsCollapsed() == collapsed
			})
		}
		if collapsed || !recursive || len(toToggle) == 0 {
			toToggle = append(toToggle, region)
		}
	}
	if len(toToggle) == 0 {
		return false
	}
	before := c.toggled
	c.model.ToggleCollapseState(toToggle)
	return c.toggled > before
}

// siblingsToToggle returns the collapsed siblings of region, or all of them
// when none is collapsed.
func (c *Controller) siblingsToToggle(region folding.Region) []folding.Region {
	var parent *folding.Region
	if p := region.ParentIndex(); p >= 0 {
		r := c.model.Regions().ToRegion(p)
		parent = &r
	}
	siblings := c.model.GetRegionsInside(parent, func(r folding.Region, level int) bool {
		return level == 1 && r.Index() != region.Index()
	})
	var collapsed []folding.Region
	for _, r := range siblings {
		if r.IsCollapsed() {
			collapsed = append(collapsed, r)
		}
	}
	if len(collapsed) > 0 {
		return collapsed
	}
	return siblings
}
