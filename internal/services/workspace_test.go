package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/viewstate"
)

var nestedText = strings.Join([]string{
	"a",
	"  b",
	"    c",
	"    d",
	"  e",
	"    f",
	"g",
}, "\n")

func newWorkspace(t *testing.T, store *viewstate.Store) *Workspace {
	t.Helper()
	ws := NewWorkspace(NewRegistry(Options{ViewState: store}))
	t.Cleanup(func() { _ = ws.CloseAll() })
	return ws
}

func spans(s *Session) [][2]int {
	var out [][2]int
	for _, r := range s.Ctrl.Regions() {
		out = append(out, [2]int{r.StartLine, r.EndLine})
	}
	return out
}

func TestNewRegistry_Defaults(t *testing.T) {
	reg := NewRegistry(Options{})
	assert.NotNil(t, reg.Providers())
	assert.NotNil(t, reg.Rules())
	assert.NotNil(t, reg.Logger())
	assert.Nil(t, reg.ViewState())
	assert.Nil(t, reg.Bus())
}

func TestWorkspace_OpenComputesRegions(t *testing.T) {
	ws := newWorkspace(t, nil)

	s, err := ws.Open(context.Background(), "mem://nested.txt", "", nestedText)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "plaintext", s.Doc.LanguageID())
	assert.Equal(t, controller.StateActive, s.Ctrl.State())
	assert.Equal(t, [][2]int{{1, 6}, {2, 4}, {5, 6}}, spans(s))

	got, err := ws.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestWorkspace_OpenErrors(t *testing.T) {
	ws := newWorkspace(t, nil)

	_, err := ws.Open(context.Background(), "", "go", "package a")
	assert.ErrorIs(t, err, ErrEmptyURI)

	_, err = ws.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ws.Update(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, ws.Close("missing"), ErrNotFound)
}

func TestWorkspace_Update(t *testing.T) {
	ws := newWorkspace(t, nil)
	s, err := ws.Open(context.Background(), "mem://nested.txt", "plaintext", nestedText)
	require.NoError(t, err)

	_, err = ws.Update(context.Background(), s.ID, "a\n  b\n  c\nd")
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}}, spans(s))
}

func TestWorkspace_ViewStateSurvivesReopen(t *testing.T) {
	store, err := viewstate.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ws := newWorkspace(t, store)
	ctx := context.Background()

	s, err := ws.Open(ctx, "mem://nested.txt", "plaintext", nestedText)
	require.NoError(t, err)
	_, err = s.Ctrl.Execute(ctx, controller.CmdFold, controller.Args{Lines: []int{2}})
	require.NoError(t, err)
	require.NoError(t, ws.Close(s.ID))

	again, err := ws.Open(ctx, "mem://nested.txt", "plaintext", nestedText)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, again.ID)

	var collapsed []int
	for _, r := range again.Ctrl.Regions() {
		if r.Collapsed {
			collapsed = append(collapsed, r.StartLine)
		}
	}
	assert.Equal(t, []int{2}, collapsed)
	assert.Equal(t, []folding.LineRange{{Start: 3, End: 4}}, again.View.HiddenAreas())
}

func TestWorkspace_ListAndCloseAll(t *testing.T) {
	ws := newWorkspace(t, nil)
	ctx := context.Background()

	_, err := ws.Open(ctx, "mem://b.txt", "", "x")
	require.NoError(t, err)
	_, err = ws.Open(ctx, "mem://a.txt", "", "y")
	require.NoError(t, err)

	list := ws.List()
	require.Len(t, list, 2)
	assert.Equal(t, "mem://a.txt", list[0].Doc.URI())

	require.NoError(t, ws.CloseAll())
	assert.Empty(t, ws.List())
}
