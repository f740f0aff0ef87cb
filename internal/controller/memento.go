package controller

import "github.com/fyrsmithlabs/foldkit/internal/folding"

// SaveViewState captures the collapse state of the document, or returns nil
// while no model is active.
func (c *Controller) SaveViewState() *folding.Memento {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return nil
	}
	return &folding.Memento{
		CollapsedRegions: c.model.CollapseMemento(),
		LineCount:        c.doc.LineCount(),
		Provider:         c.provider.ID(),
		FoldedImports:    c.importsFolded,
	}
}

// RestoreViewState reapplies a saved collapse state. Before the first
// computation the memento is kept and applied to its result. Malformed
// ranges and ranges whose text changed since the save are skipped.
func (c *Controller) RestoreViewState(m *folding.Memento) {
	if m == nil {
		return
	}
	c.mu.Lock()
	c.importsFolded = c.importsFolded || m.FoldedImports
	if m.Validate() == nil {
		if c.model != nil && c.applied > 0 {
			c.model.ApplyCollapseMemento(m.Ranges())
		} else {
			c.pendingMemento = m
		}
	}
	c.mu.Unlock()
	c.flush()
}
