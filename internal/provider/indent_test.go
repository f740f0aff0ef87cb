package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
)

func doc(languageID string, lines ...string) *document.Document {
	return document.New("mem://test", languageID, strings.Join(lines, "\n"))
}

func spans(r *folding.Regions) [][2]int {
	out := [][2]int{}
	for i := 0; i < r.Length(); i++ {
		out = append(out, [2]int{r.StartLineNumber(i), r.EndLineNumber(i)})
	}
	return out
}

func TestComputeIndentRanges(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		offSide bool
		want    [][2]int
	}{
		{
			name:  "simple block",
			lines: []string{"if x:", "  a", "  b", "c"},
			want:  [][2]int{{1, 3}},
		},
		{
			name:  "nested blocks",
			lines: []string{"a", "  b", "    c", "    d", "  e", "f"},
			want:  [][2]int{{1, 5}, {2, 4}},
		},
		{
			name:  "trailing blank lines stay in block",
			lines: []string{"def f():", "  a", "", "def g():", "  b"},
			want:  [][2]int{{1, 3}, {4, 5}},
		},
		{
			name:    "off-side leaves trailing blank lines out",
			lines:   []string{"def f():", "  a", "", "def g():", "  b"},
			offSide: true,
			want:    [][2]int{{1, 2}, {4, 5}},
		},
		{
			name:  "tabs count to tab stops",
			lines: []string{"a", "\tb", "    c", "d"},
			want:  [][2]int{{1, 3}},
		},
		{
			name:  "no indentation",
			lines: []string{"a", "b", "c"},
			want:  [][2]int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions := ComputeIndentRanges(doc("plaintext", tt.lines...), tt.offSide, nil, nil)
			assert.Equal(t, tt.want, spans(regions))
		})
	}
}

func TestComputeIndentRanges_Markers(t *testing.T) {
	rules := langconfig.Default().Lookup("python")
	text := doc("python",
		"# region setup",
		"import os",
		"def f():",
		"    pass",
		"# endregion",
		"x = 1",
	)

	regions := ComputeIndentRanges(text, rules.OffSide, rules.Markers(), nil)

	require.Equal(t, [][2]int{{1, 5}, {3, 4}}, spans(regions))
	assert.Equal(t, folding.TypeRegion, regions.Type(0))
	assert.Equal(t, "", regions.Type(1))
}

func TestComputeIndentRanges_UnmatchedStartMarker(t *testing.T) {
	rules := langconfig.Default().Lookup("python")
	text := doc("python", "# region", "a", "  b")

	regions := ComputeIndentRanges(text, rules.OffSide, rules.Markers(), nil)
	assert.Equal(t, [][2]int{{2, 3}}, spans(regions))
}

func TestComputeIndentRanges_LimitTrimsDeepestLevels(t *testing.T) {
	// Three top-level blocks, each with two nested children.
	var lines []string
	for i := 0; i < 3; i++ {
		lines = append(lines, "top", "  mid", "    leaf", "  mid", "    leaf")
	}
	limit := folding.NewRangesLimitReporter(5)

	regions := ComputeIndentRanges(doc("plaintext", lines...), false, nil, limit)

	// Level 0 (3 ranges) fits; two of the six level-2 ranges fill the rest.
	require.Equal(t, 5, regions.Length())
	assert.Equal(t, [][2]int{{1, 5}, {2, 3}, {4, 5}, {6, 10}, {11, 15}}, spans(regions))
	assert.Equal(t, 9, limit.Computed())
	assert.Equal(t, 5, limit.Limited())
}

func TestIndentRangeProvider_Compute(t *testing.T) {
	p := NewIndentRangeProvider(doc("plaintext", "a", "  b"), langconfig.Rules{}, nil)
	assert.Equal(t, IndentID, p.ID())

	regions, err := p.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}}, spans(regions))

	empty := NewIndentRangeProvider(doc("plaintext"), langconfig.Rules{}, nil)
	regions, err = empty.Compute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, regions)
}

func TestIndentRangeProvider_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewIndentRangeProvider(doc("plaintext", "a", "  b"), langconfig.Rules{}, nil)
	_, err := p.Compute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndentLevel(t *testing.T) {
	assert.Equal(t, -1, indentLevel("   ", 4))
	assert.Equal(t, -1, indentLevel("", 4))
	assert.Equal(t, 0, indentLevel("x", 4))
	assert.Equal(t, 4, indentLevel("\tx", 4))
	assert.Equal(t, 4, indentLevel("  \tx", 4))
	assert.Equal(t, 6, indentLevel("\t  x", 4))
}
