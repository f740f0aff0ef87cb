package viewstate

import "errors"

var (
	// ErrNotFound indicates no view state is stored for a document.
	ErrNotFound = errors.New("view state not found")

	// ErrCorrupt indicates a stored entry that cannot be decoded.
	ErrCorrupt = errors.New("corrupt view state entry")

	// ErrInvalidURI indicates an empty document URI.
	ErrInvalidURI = errors.New("document uri is empty")
)
