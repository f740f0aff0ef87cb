package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
)

// fakeSource returns fixed ranges and counts calls.
type fakeSource struct {
	name     string
	ranges   []RawRange
	err      error
	calls    int
	handlers []func()
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) ProvideFoldingRanges(ctx context.Context, _ folding.TextModel) ([]RawRange, error) {
	s.calls++
	return s.ranges, s.err
}

func (s *fakeSource) OnDidChange(handler func()) func() {
	s.handlers = append(s.handlers, handler)
	i := len(s.handlers) - 1
	return func() { s.handlers[i] = nil }
}

func (s *fakeSource) fire() {
	for _, h := range s.handlers {
		if h != nil {
			h()
		}
	}
}

func TestSyntaxRangeProvider_FirstNonEmptyWins(t *testing.T) {
	text := doc("go", "a", "b", "c", "d", "e")
	empty := &fakeSource{name: "empty"}
	first := &fakeSource{name: "first", ranges: []RawRange{{Start: 1, End: 3, Kind: folding.TypeImports}}}
	second := &fakeSource{name: "second", ranges: []RawRange{{Start: 2, End: 5}}}

	p := NewSyntaxRangeProvider(text, []SyntaxSource{empty, first, second}, nil, nil)
	regions, err := p.Compute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}}, spans(regions))
	assert.Equal(t, folding.TypeImports, regions.Type(0))
	assert.Equal(t, 1, empty.calls)
	assert.Equal(t, 0, second.calls)
	assert.Equal(t, SyntaxID, p.ID())
}

func TestSyntaxRangeProvider_ErrorTriesNextSource(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	text := doc("go", "a", "b", "c")
	failing := &fakeSource{name: "failing", err: errors.New("server crashed")}
	working := &fakeSource{name: "working", ranges: []RawRange{{Start: 1, End: 3}}}

	p := NewSyntaxRangeProvider(text, []SyntaxSource{failing, working}, nil, nil, WithLogger(zap.New(core)))
	regions, err := p.Compute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}}, spans(regions))
	entries := logs.FilterMessage("syntax source failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "failing", entries[0].ContextMap()["source"])
}

func TestSyntaxRangeProvider_FallsBackToIndent(t *testing.T) {
	text := doc("go", "func f() {", "\tx", "}")
	fallback := NewIndentRangeProvider(text, langconfig.Rules{}, nil)
	p := NewSyntaxRangeProvider(text,
		[]SyntaxSource{&fakeSource{}, &fakeSource{err: errors.New("nope")}},
		nil, nil, WithFallback(fallback))

	regions, err := p.Compute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}}, spans(regions))
}

func TestSyntaxRangeProvider_InvalidRangesFallBack(t *testing.T) {
	text := doc("go", "func f() {", "\tx", "}")
	invalid := &fakeSource{name: "invalid", ranges: []RawRange{{Start: 3, End: 2}, {Start: 2, End: 9}}}
	fallback := NewIndentRangeProvider(text, langconfig.Rules{}, nil)
	p := NewSyntaxRangeProvider(text, []SyntaxSource{invalid}, nil, nil, WithFallback(fallback))

	regions, err := p.Compute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, invalid.calls)
	assert.Equal(t, [][2]int{{1, 2}}, spans(regions))
}

func TestSyntaxRangeProvider_NoFallback(t *testing.T) {
	p := NewSyntaxRangeProvider(doc("go", "a", "b"), nil, nil, nil)
	regions, err := p.Compute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, regions)
}

func TestSyntaxRangeProvider_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var second bool
	sources := []SyntaxSource{
		SourceFunc(func(ctx context.Context, _ folding.TextModel) ([]RawRange, error) {
			cancel()
			return []RawRange{{Start: 1, End: 2}}, nil
		}),
		SourceFunc(func(context.Context, folding.TextModel) ([]RawRange, error) {
			second = true
			return nil, nil
		}),
	}
	p := NewSyntaxRangeProvider(doc("go", "a", "b"), sources, nil, nil)

	regions, err := p.Compute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, regions)
	assert.False(t, second)
}

func TestSyntaxRangeProvider_ChangeSubscriptions(t *testing.T) {
	src := &fakeSource{}
	changes := 0
	p := NewSyntaxRangeProvider(doc("go", "a"), []SyntaxSource{src}, nil, func() { changes++ })

	src.fire()
	assert.Equal(t, 1, changes)

	p.Dispose()
	src.fire()
	assert.Equal(t, 1, changes)
}

func TestSanitizeRanges(t *testing.T) {
	raw := []RawRange{
		{Start: 0, End: 3},
		{Start: 4, End: 4},
		{Start: 5, End: 50},
		{Start: 2, End: 9, Kind: folding.TypeComment},
		{Start: 3, End: 5},
		{Start: 4, End: 12},
	}
	regions := SanitizeRanges(raw, 20, nil)
	assert.Equal(t, [][2]int{{2, 9}, {3, 5}}, spans(regions))
	assert.Equal(t, folding.TypeComment, regions.Type(0))
}

func TestSanitizeRanges_LimitByNestingLevel(t *testing.T) {
	raw := []RawRange{
		{Start: 1, End: 10}, {Start: 2, End: 4}, {Start: 5, End: 9}, {Start: 6, End: 7},
		{Start: 11, End: 20}, {Start: 12, End: 14},
	}
	limit := folding.NewRangesLimitReporter(3)
	var events []folding.LimitEvent
	limit.OnDidChange(func(e folding.LimitEvent) { events = append(events, e) })

	regions := SanitizeRanges(raw, 20, limit)

	// Both top-level ranges, then the first range of the next level.
	assert.Equal(t, [][2]int{{1, 10}, {2, 4}, {11, 20}}, spans(regions))
	require.Len(t, events, 1)
	assert.Equal(t, folding.LimitEvent{Computed: 6, Limited: 3}, events[0])
}
