package gofold

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
)

const sample = `package main

import (
	"fmt"
	"os"
)

// Doc comment line one
// line two
func main() {
	x := []int{
		1,
		2,
	}
	switch len(x) {
	case 1:
		fmt.Println(
			"one",
		)
	default:
		os.Exit(1)
	}
}`

func TestSource_ProvideFoldingRanges(t *testing.T) {
	doc := document.New("file:///main.go", "go", sample)

	ranges, err := New().ProvideFoldingRanges(context.Background(), doc)

	require.NoError(t, err)
	assert.ElementsMatch(t, []provider.RawRange{
		{Start: 3, End: 5, Kind: folding.TypeImports},
		{Start: 8, End: 9, Kind: folding.TypeComment},
		{Start: 10, End: 22},
		{Start: 11, End: 13},
		{Start: 15, End: 21},
		{Start: 16, End: 19},
		{Start: 17, End: 18},
		{Start: 20, End: 21},
	}, ranges)
}

func TestSource_Markers(t *testing.T) {
	doc := document.New("file:///m.go", "go", `package m

// region helpers
var a = 1

var b = 2
// endregion
`)

	ranges, err := New().ProvideFoldingRanges(context.Background(), doc)

	require.NoError(t, err)
	assert.Contains(t, ranges, provider.RawRange{Start: 3, End: 7, Kind: folding.TypeRegion})
}

func TestSource_SameLineBracketsNotFolded(t *testing.T) {
	doc := document.New("file:///s.go", "go", "package s\n\nvar x = []int{1,\n\t2}\n\nfunc f() { _ = x }\n")

	ranges, err := New().ProvideFoldingRanges(context.Background(), doc)

	require.NoError(t, err)
	assert.Empty(t, ranges)
}

func TestSource_ParseErrorYieldsNothing(t *testing.T) {
	doc := document.New("file:///broken.go", "go", "package broken\n\nfunc f() {\n\tx :=\n")

	ranges, err := New().ProvideFoldingRanges(context.Background(), doc)

	require.NoError(t, err)
	assert.Nil(t, ranges)
}

func TestSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ProvideFoldingRanges(ctx, document.New("file:///main.go", "go", sample))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_WithSyntaxProvider(t *testing.T) {
	r := provider.NewRegistry()
	New().Register(r, 10)
	assert.Equal(t, []string{"gofold"}, r.Names("go"))
	assert.False(t, r.Has("python"))

	doc := document.New("file:///main.go", "go", sample)
	p := provider.NewSyntaxRangeProvider(doc, r.Ordered("go"), nil, nil)
	regions, err := p.Compute(context.Background())

	require.NoError(t, err)
	require.Equal(t, 8, regions.Length())
	assert.Equal(t, 3, regions.StartLineNumber(0))
	assert.Equal(t, folding.TypeImports, regions.Type(0))
	assert.True(t, regions.HasTypes())
}
