// Package controller drives folding for one document.
//
// A Controller owns a folding.Model and a folding.HiddenRangeModel, picks a
// provider.RangeProvider for the document's language and recomputes regions
// after edits with an adaptive debounce. Results of computations that were
// overtaken by a newer edit or request are discarded. Hidden ranges reach
// the View outside the controller lock, newest first wins.
//
// Lifecycle:
//
//	uninitialized -> enabled -> active <-> computing
//
// Documents above Config.MaxDocumentLines stay enabled without a model
// until they shrink.
package controller
