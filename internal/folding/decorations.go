package folding

// GutterMarker is the glyph a renderer shows on a region's start line.
type GutterMarker uint8

const (
	MarkerNone GutterMarker = iota
	MarkerExpanded
	MarkerCollapsed
	MarkerExpandedManual
	MarkerCollapsedManual
	// MarkerHidden is used when the start line itself lies in a collapsed
	// ancestor.
	MarkerHidden
)

var markerNames = [...]string{
	MarkerNone:            "none",
	MarkerExpanded:        "expanded",
	MarkerCollapsed:       "collapsed",
	MarkerExpandedManual:  "expanded-manual",
	MarkerCollapsedManual: "collapsed-manual",
	MarkerHidden:          "hidden",
}

// String implements fmt.Stringer.
func (g GutterMarker) String() string {
	if int(g) < len(markerNames) {
		return markerNames[g]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (g GutterMarker) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// LineMarker pairs a line with its gutter marker.
type LineMarker struct {
	Line   int          `json:"line"`
	Marker GutterMarker `json:"marker"`
}

// MarkerFor returns the marker of region i. isHidden may be nil.
func MarkerFor(regions *Regions, i int, isHidden func(line int) bool) GutterMarker {
	if isHidden != nil && isHidden(regions.StartLineNumber(i)) {
		return MarkerHidden
	}
	switch collapsed, manual := regions.IsCollapsed(i), regions.IsUserDefined(i); {
	case collapsed && manual:
		return MarkerCollapsedManual
	case collapsed:
		return MarkerCollapsed
	case manual:
		return MarkerExpandedManual
	default:
		return MarkerExpanded
	}
}

// GutterMarkers returns one marker per region start line. When several
// regions start on the same line the outermost one decides.
func GutterMarkers(regions *Regions, isHidden func(line int) bool) []LineMarker {
	out := make([]LineMarker, 0, regions.Length())
	for i := 0; i < regions.Length(); i++ {
		line := regions.StartLineNumber(i)
		if len(out) > 0 && out[len(out)-1].Line == line {
			continue
		}
		out = append(out, LineMarker{Line: line, Marker: MarkerFor(regions, i, isHidden)})
	}
	return out
}
