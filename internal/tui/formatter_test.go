package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

func TestGlyph(t *testing.T) {
	tests := []struct {
		marker folding.GutterMarker
		want   string
	}{
		{folding.MarkerNone, " "},
		{folding.MarkerExpanded, "▾"},
		{folding.MarkerCollapsed, "▸"},
		{folding.MarkerExpandedManual, "▿"},
		{folding.MarkerCollapsedManual, "▹"},
		{folding.MarkerHidden, " "},
	}
	for _, tt := range tests {
		t.Run(tt.marker.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Glyph(tt.marker))
		})
	}
}

func TestFormatFolded(t *testing.T) {
	doc := document.New("mem://f.txt", "plaintext", "a\n  b\n    c\n  d")
	markers := []folding.LineMarker{
		{Line: 1, Marker: folding.MarkerExpanded},
		{Line: 2, Marker: folding.MarkerCollapsed},
	}
	hidden := []folding.LineRange{{Start: 3, End: 3}}

	got := FormatFolded(doc, markers, hidden)
	assert.Equal(t, "1 ▾ a\n2 ▸   b ⋯\n4     d\n", got)
}

func TestFormatFolded_WidensLineNumbers(t *testing.T) {
	text := ""
	for i := 0; i < 10; i++ {
		text += "x\n"
	}
	doc := document.New("mem://w.txt", "plaintext", text)
	got := FormatFolded(doc, nil, nil)
	assert.Contains(t, got, " 1   x\n")
	assert.Contains(t, got, "10   x\n")
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0.0%", FormatPercentage(0))
	assert.Equal(t, "42.5%", FormatPercentage(0.425))
	assert.Equal(t, "100.0%", FormatPercentage(1))
}
