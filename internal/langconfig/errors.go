package langconfig

import "errors"

var (
	// ErrInvalidTOML indicates a rules file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")

	// ErrInvalidRegex indicates a marker pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrIncompleteMarkers indicates a language defines only one of the
	// start and end markers.
	ErrIncompleteMarkers = errors.New("region markers need both start and end")
)
