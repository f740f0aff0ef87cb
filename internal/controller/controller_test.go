package controller

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/logging"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DebounceMin = time.Millisecond
	cfg.DebounceMax = 2 * time.Millisecond
	return cfg
}

// nestedLines has the regions 1-6, 2-4 and 5-6.
var nestedLines = []string{
	"a",
	"  b",
	"    c",
	"    d",
	"  e",
	"    f",
	"g",
}

func newDoc(lang string, lines ...string) *document.Document {
	return document.New("mem://test", lang, strings.Join(lines, "\n"))
}

func newController(t *testing.T, doc Document, opts ...Option) (*Controller, *MemoryView) {
	t.Helper()
	view := NewMemoryView()
	opts = append([]Option{WithConfig(testConfig()), WithView(view)}, opts...)
	c := New(doc, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, view
}

func activeController(t *testing.T, doc Document, opts ...Option) (*Controller, *MemoryView) {
	t.Helper()
	c, view := newController(t, doc, opts...)
	require.NoError(t, c.Enable())
	require.NoError(t, c.ComputeNow(context.Background()))
	return c, view
}

func ranges(c *Controller) [][2]int {
	out := [][2]int{}
	for _, r := range c.Regions() {
		out = append(out, [2]int{r.StartLine, r.EndLine})
	}
	return out
}

func collapsed(c *Controller) []int {
	var out []int
	for _, r := range c.Regions() {
		if r.Collapsed {
			out = append(out, r.StartLine)
		}
	}
	return out
}

type funcProvider struct {
	id string
	fn func(ctx context.Context) (*folding.Regions, error)
}

func (p *funcProvider) ID() string { return p.id }
func (p *funcProvider) Compute(ctx context.Context) (*folding.Regions, error) { return p.fn(ctx) }
func (p *funcProvider) Dispose() {}

func selectProvider(p provider.RangeProvider) Option {
	return WithProviderSelector(func(folding.TextModel, Candidates) provider.RangeProvider { return p })
}

func TestController_EnableComputesRegions(t *testing.T) {
	c, _ := newController(t, newDoc("plaintext", nestedLines...))
	assert.Equal(t, StateUninitialized, c.State())

	require.NoError(t, c.Enable())

	require.Eventually(t, func() bool { return len(c.Regions()) == 3 }, waitFor, tick)
	assert.Equal(t, [][2]int{{1, 6}, {2, 4}, {5, 6}}, ranges(c))
	assert.Equal(t, StateActive, c.State())
	assert.Equal(t, provider.IndentID, c.ProviderID())
	assert.ErrorIs(t, c.Enable(), ErrInvalidTransition)
}

func TestController_LargeDocumentStaysEnabled(t *testing.T) {
	doc := newDoc("plaintext", nestedLines...)
	cfg := testConfig()
	cfg.MaxDocumentLines = 5
	c, _ := newController(t, doc, WithConfig(cfg))

	require.NoError(t, c.Enable())
	assert.Equal(t, StateEnabled, c.State())
	assert.Nil(t, c.Regions())
	assert.ErrorIs(t, c.ComputeNow(context.Background()), ErrNotActive)

	require.NoError(t, doc.DeleteLines(6, 7))
	require.Eventually(t, func() bool { return len(c.Regions()) > 0 }, waitFor, tick)
	assert.Equal(t, [][2]int{{1, 5}, {2, 4}}, ranges(c))

	require.NoError(t, doc.InsertLines(1, "x", "y", "z"))
	assert.Equal(t, StateEnabled, c.State())
	assert.Nil(t, c.Regions())
}

func TestController_EditsShiftHiddenRanges(t *testing.T) {
	doc := newDoc("plaintext", "a", "  b", "  c", "d")
	c, view := activeController(t, doc)

	_, err := c.Execute(context.Background(), CmdFoldAll, Args{})
	require.NoError(t, err)
	assert.Equal(t, []folding.LineRange{{Start: 2, End: 3}}, view.HiddenAreas())

	require.NoError(t, doc.InsertLines(1, "x"))
	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}}, view.HiddenAreas())

	require.NoError(t, c.ComputeNow(context.Background()))
	assert.Equal(t, [][2]int{{2, 4}}, ranges(c))
	assert.Equal(t, []int{2}, collapsed(c))
	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}}, c.HiddenRanges())
}

func TestController_PendingDebounceIsComputing(t *testing.T) {
	cfg := testConfig()
	cfg.DebounceMin = 50 * time.Millisecond
	cfg.DebounceMax = 50 * time.Millisecond
	doc := newDoc("plaintext", nestedLines...)
	c, _ := activeController(t, doc, WithConfig(cfg))
	require.Equal(t, StateActive, c.State())

	require.NoError(t, doc.InsertLines(8, "  h"))

	assert.Equal(t, StateComputing, c.State())
	require.Eventually(t, func() bool { return c.State() == StateActive }, waitFor, tick)
	assert.Equal(t, [][2]int{{1, 6}, {2, 4}, {5, 6}, {7, 8}}, ranges(c))
}

func TestController_StaleResultDiscarded(t *testing.T) {
	logs := logging.NewTestLogger()
	release := make(chan struct{})
	var calls atomic.Int32
	slow := provider.SourceFunc(func(ctx context.Context, _ folding.TextModel) ([]provider.RawRange, error) {
		if calls.Add(1) == 1 {
			<-release
			return []provider.RawRange{{Start: 1, End: 2}}, nil
		}
		return []provider.RawRange{{Start: 1, End: 3}}, nil
	})
	registry := provider.NewRegistry()
	registry.Register("slow", slow, 1, "go")

	doc := newDoc("go", "a", "b", "c", "d")
	c, _ := newController(t, doc, WithRegistry(registry), WithLogger(logs.Zap()))

	var mu sync.Mutex
	var updates []UpdateEvent
	c.OnDidUpdate(func(e UpdateEvent) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, e)
	})

	require.NoError(t, c.Enable())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	assert.Equal(t, StateComputing, c.State())

	require.NoError(t, doc.InsertLines(5, "e"))
	require.Eventually(t, func() bool { return len(c.Regions()) == 1 }, waitFor, tick)
	close(release)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stale folding result discarded").Len() == 1
	}, waitFor, tick)
	assert.Equal(t, [][2]int{{1, 3}}, ranges(c))
	assert.Equal(t, provider.SyntaxID, c.ProviderID())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.Equal(t, 2, updates[0].Version)
	assert.Equal(t, 1, updates[0].Regions)
}

func TestController_SyntaxFailureFallsBackToIndent(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register("broken", provider.SourceFunc(func(context.Context, folding.TextModel) ([]provider.RawRange, error) {
		return nil, assert.AnError
	}), 1, provider.AnyLanguage)

	c, _ := activeController(t, newDoc("go", "func f() {", "\tx", "}"), WithRegistry(registry))

	assert.Equal(t, provider.SyntaxID, c.ProviderID())
	assert.Equal(t, [][2]int{{1, 2}}, ranges(c))
}

func TestController_IndentationStrategyIgnoresSyntax(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register("any", provider.SourceFunc(func(context.Context, folding.TextModel) ([]provider.RawRange, error) {
		return []provider.RawRange{{Start: 1, End: 3}}, nil
	}), 1, provider.AnyLanguage)
	cfg := testConfig()
	cfg.Strategy = StrategyIndentation

	c, _ := activeController(t, newDoc("go", "func f() {", "\tx", "}"), WithRegistry(registry), WithConfig(cfg))

	assert.Equal(t, provider.IndentID, c.ProviderID())
	assert.Equal(t, [][2]int{{1, 2}}, ranges(c))
}

func TestController_ProviderPanicRecovered(t *testing.T) {
	logs := logging.NewTestLogger()
	p := &funcProvider{id: "boom", fn: func(context.Context) (*folding.Regions, error) {
		panic("provider bug")
	}}
	c, _ := newController(t, newDoc("plaintext", nestedLines...), selectProvider(p), WithLogger(logs.Zap()))

	var failed atomic.Bool
	c.OnDidUpdate(func(e UpdateEvent) { failed.Store(e.Failed) })

	require.NoError(t, c.Enable())
	require.NoError(t, c.ComputeNow(context.Background()))

	assert.True(t, failed.Load())
	assert.Empty(t, c.Regions())
	assert.Equal(t, StateActive, c.State())
	logs.AssertLogged(t, zapcore.ErrorLevel, "range provider panicked, recovering")
	logs.AssertLogged(t, zapcore.ErrorLevel, "unexpected error computing folding ranges")
	logs.AssertField(t, "range provider panicked, recovering", "provider", "boom")
}

func TestController_ComputeNowHonoursContext(t *testing.T) {
	p := &funcProvider{id: "slow", fn: func(ctx context.Context) (*folding.Regions, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c, _ := newController(t, newDoc("plaintext", nestedLines...), selectProvider(p))
	require.NoError(t, c.Enable())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.ComputeNow(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateActive, c.State())
}

func TestController_FoldsImportsOnce(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register("imports", provider.SourceFunc(func(context.Context, folding.TextModel) ([]provider.RawRange, error) {
		return []provider.RawRange{
			{Start: 1, End: 3, Kind: folding.TypeImports},
			{Start: 5, End: 7},
		}, nil
	}), 1, "go")
	cfg := testConfig()
	cfg.FoldingImportsByDefault = true
	lines := []string{"import (", "\t\"os\"", ")", "", "func f() {", "\tx", "}"}

	c, _ := activeController(t, newDoc("go", lines...), WithRegistry(registry), WithConfig(cfg))
	assert.Equal(t, []int{1}, collapsed(c))
	assert.True(t, c.SaveViewState().FoldedImports)

	_, err := c.Execute(context.Background(), CmdUnfoldAll, Args{})
	require.NoError(t, err)
	require.NoError(t, c.ComputeNow(context.Background()))
	assert.Empty(t, collapsed(c))
}

func TestController_RestoreViewStateBeforeFirstCompute(t *testing.T) {
	c, view := newController(t, newDoc("plaintext", nestedLines...))
	c.RestoreViewState(&folding.Memento{
		CollapsedRegions: []folding.MementoRange{{StartLine: 2, EndLine: 4, Collapsed: true}},
		LineCount:        7,
	})

	require.NoError(t, c.Enable())
	require.Eventually(t, func() bool { return len(view.HiddenAreas()) == 1 }, waitFor, tick)
	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}}, view.HiddenAreas())
	assert.Equal(t, []int{2}, collapsed(c))
}

func TestController_SaveAndRestoreViewState(t *testing.T) {
	doc := newDoc("plaintext", nestedLines...)
	c, _ := activeController(t, doc)
	_, err := c.Execute(context.Background(), CmdFoldLevel, Args{Level: 2})
	require.NoError(t, err)
	saved := c.SaveViewState()
	require.NotNil(t, saved)
	assert.Equal(t, 7, saved.LineCount)
	assert.Equal(t, provider.IndentID, saved.Provider)

	other, view := activeController(t, newDoc("plaintext", nestedLines...))
	other.RestoreViewState(saved)
	assert.Equal(t, []int{2, 5}, collapsed(other))
	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}, {Start: 6, End: 6}}, view.HiddenAreas())

	other.RestoreViewState(nil)
	assert.Equal(t, []int{2, 5}, collapsed(other))
}

func TestController_RestoreViewStateSkipsMalformedRanges(t *testing.T) {
	c, view := activeController(t, newDoc("plaintext", nestedLines...))

	c.RestoreViewState(&folding.Memento{
		LineCount: 7,
		CollapsedRegions: []folding.MementoRange{
			{StartLine: 2, EndLine: 4, Collapsed: true},
			{StartLine: 6, EndLine: 5, Collapsed: true},
		},
	})

	assert.Equal(t, []int{2}, collapsed(c))
	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}}, view.HiddenAreas())

	c.RestoreViewState(&folding.Memento{
		CollapsedRegions: []folding.MementoRange{{StartLine: 4, EndLine: 2, Collapsed: true}},
	})
	assert.Equal(t, []int{2}, collapsed(c))
}

func TestController_RevealSelections(t *testing.T) {
	c, view := activeController(t, newDoc("plaintext", nestedLines...))
	_, err := c.Execute(context.Background(), CmdFoldAll, Args{})
	require.NoError(t, err)

	view.SetSelections([]folding.Selection{folding.Caret(3, 1)})
	c.SelectionsChanged()

	assert.Equal(t, []int{5}, collapsed(c))
	assert.Equal(t, []folding.LineRange{{Start: 6, End: 6}}, c.HiddenRanges())
}

func TestController_CollapseMovesHiddenCaret(t *testing.T) {
	c, view := activeController(t, newDoc("plaintext", nestedLines...))
	view.SetSelections([]folding.Selection{folding.Caret(3, 2)})

	_, err := c.Execute(context.Background(), CmdFold, Args{Lines: []int{2}})
	require.NoError(t, err)

	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}}, view.HiddenAreas())
	assert.Equal(t, []folding.Selection{folding.Caret(2, 4)}, view.Selections())
}

func TestController_CloseClearsView(t *testing.T) {
	c, view := activeController(t, newDoc("plaintext", nestedLines...))
	var events atomic.Int32
	c.OnDidChangeHiddenRanges(func(folding.HiddenRangesEvent) { events.Add(1) })

	_, err := c.Execute(context.Background(), CmdFoldAll, Args{})
	require.NoError(t, err)
	require.NotEmpty(t, view.HiddenAreas())

	require.NoError(t, c.Close())
	assert.Equal(t, StateUninitialized, c.State())
	assert.Empty(t, view.HiddenAreas())
	assert.Equal(t, int32(2), events.Load())

	_, err = c.Execute(context.Background(), CmdFoldAll, Args{})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.NoError(t, c.Close())

	require.NoError(t, c.Enable())
	require.Eventually(t, func() bool { return len(c.Regions()) == 3 }, waitFor, tick)
}

func TestController_WithModel(t *testing.T) {
	c, view := activeController(t, newDoc("plaintext", nestedLines...))

	err := c.WithModel(func(m *folding.Model, _ *folding.HiddenRangeModel) error {
		region, ok := m.GetRegionAtLine(5)
		require.True(t, ok)
		m.ToggleCollapseState([]folding.Region{region})
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []folding.LineRange{{Start: 6, End: 6}}, view.HiddenAreas())
}
