// Package folding implements the fold-region model of a code editor.
//
// The package holds the data structures that decide which line ranges of a
// document can be collapsed, which of them are collapsed right now, and which
// lines a view must therefore hide.
//
// # Core Concepts
//
// Regions: A flat, array-backed encoding of a fold-range forest. Ranges are
// sorted by start line (longer range first on ties) and are well nested.
// Parent indices are derived once at construction. Only the collapse and
// user-defined bits are mutable.
//
// Model: Owns the current Regions of one document. Update replaces the forest
// with a fresh provider result while carrying over collapse state and
// user-defined ranges. The package-level Set* functions implement the fold
// commands (levels down/up, by type, by matching line, all-except) on top of
// Model.ToggleCollapseState.
//
// HiddenRangeModel: Projects the collapsed regions of a Model into a sorted
// list of hidden line ranges and keeps selections out of them.
//
// RangesLimitReporter: Records how many ranges a provider computed and
// whether the result was truncated to the configured maximum.
//
// # Line Numbers
//
// All line numbers are 1-based. Operations on lines outside the document are
// no-ops. Malformed ranges (start >= end, out of bounds) are dropped during
// normalization and never surface as errors.
//
// # Event System
//
// Model, HiddenRangeModel and RangesLimitReporter publish changes through an
// Emitter. Handlers are invoked synchronously, after internal state has been
// updated:
//
//	model.OnDidChange(func(e folding.ChangeEvent) {
//	    if e.CollapseStateChanged {
//	        redraw()
//	    }
//	})
//
// # Concurrency
//
// Model and HiddenRangeModel are not safe for concurrent use. The controller
// package serializes access per document.
package folding
