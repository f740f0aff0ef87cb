package folding

import "errors"

// Range validation errors. Normalization drops offending ranges silently;
// these are returned only by the explicit Validate helpers.
var (
	ErrInvalidRange     = errors.New("range start must be before range end")
	ErrRangeOutOfBounds = errors.New("range lies outside the document")
	ErrTooManyRegions   = errors.New("number of regions exceeds the maximum")
)

// ErrEmptyMemento indicates a memento with no collapsed regions.
var ErrEmptyMemento = errors.New("memento has no collapsed regions")
