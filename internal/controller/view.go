package controller

import (
	"sync"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

// View is the rendering side of a controller. Implementations must not call
// back into the Controller from these methods.
type View interface {
	// SetHiddenAreas replaces the lines the view must not render.
	SetHiddenAreas(ranges []folding.LineRange)
	// Selections returns the current cursor selections.
	Selections() []folding.Selection
	// SetSelections replaces the cursor selections.
	SetSelections(selections []folding.Selection)
}

// MemoryView is a View that only records state. It backs headless
// surfaces such as the HTTP service and the CLI.
type MemoryView struct {
	mu         sync.RWMutex
	hidden     []folding.LineRange
	selections []folding.Selection
}

// NewMemoryView creates a view with a caret on line 1.
func NewMemoryView() *MemoryView {
	return &MemoryView{selections: []folding.Selection{folding.Caret(1, 1)}}
}

// SetHiddenAreas implements View.
func (v *MemoryView) SetHiddenAreas(ranges []folding.LineRange) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hidden = append([]folding.LineRange(nil), ranges...)
}

// HiddenAreas returns the last hidden areas set.
func (v *MemoryView) HiddenAreas() []folding.LineRange {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]folding.LineRange(nil), v.hidden...)
}

// Selections implements View.
func (v *MemoryView) Selections() []folding.Selection {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]folding.Selection(nil), v.selections...)
}

// SetSelections implements View.
func (v *MemoryView) SetSelections(selections []folding.Selection) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selections = append([]folding.Selection(nil), selections...)
}

type nopView struct{}

func (nopView) SetHiddenAreas([]folding.LineRange) {}
func (nopView) Selections() []folding.Selection { return nil }
func (nopView) SetSelections([]folding.Selection) {}
