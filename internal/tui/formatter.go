package tui

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

// Ellipsis marks the start line of a collapsed region.
const Ellipsis = "⋯"

// Glyph returns the gutter glyph of a marker.
func Glyph(m folding.GutterMarker) string {
	switch m {
	case folding.MarkerExpanded:
		return "▾"
	case folding.MarkerCollapsed:
		return "▸"
	case folding.MarkerExpandedManual:
		return "▿"
	case folding.MarkerCollapsedManual:
		return "▹"
	default:
		return " "
	}
}

// IsCollapsed reports whether m marks a collapsed region.
func IsCollapsed(m folding.GutterMarker) bool {
	return m == folding.MarkerCollapsed || m == folding.MarkerCollapsedManual
}

// MarkerIndex maps start lines to their markers.
func MarkerIndex(markers []folding.LineMarker) map[int]folding.GutterMarker {
	out := make(map[int]folding.GutterMarker, len(markers))
	for _, m := range markers {
		out[m.Line] = m.Marker
	}
	return out
}

// FormatFolded renders the visible lines of doc with line numbers and
// gutter glyphs, one line per row.
func FormatFolded(doc folding.TextModel, markers []folding.LineMarker, hidden []folding.LineRange) string {
	idx := MarkerIndex(markers)
	width := len(fmt.Sprint(doc.LineCount()))
	var b strings.Builder
	for _, line := range folding.VisibleLines(doc.LineCount(), hidden) {
		marker := idx[line]
		fmt.Fprintf(&b, "%*d %s %s", width, line, Glyph(marker), doc.LineContent(line))
		if IsCollapsed(marker) {
			b.WriteString(" " + Ellipsis)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
