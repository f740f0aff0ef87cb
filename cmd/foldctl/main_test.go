package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/foldkit/internal/config"
	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/gofold"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
	"github.com/fyrsmithlabs/foldkit/internal/services"
)

const nestedText = "a\n  b\n    c\n    d\n  e\n    f\ng\n"

const goText = `package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println(os.Args)
}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testApp(t *testing.T) *app {
	t.Helper()
	providers := provider.NewRegistry()
	gofold.New().Register(providers, gofoldScore)
	return &app{
		cfg:      config.Default(),
		registry: services.NewRegistry(services.Options{Providers: providers}),
	}
}

func TestFoldingConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Folding.ImportsByDefault = true

	got := foldingConfig(cfg.Folding)
	assert.Equal(t, controller.StrategyAuto, got.Strategy)
	assert.Equal(t, 5000, got.MaxRegions)
	assert.Equal(t, 300000, got.MaxDocumentLines)
	assert.Equal(t, 200*time.Millisecond, got.DebounceMin)
	assert.Equal(t, 5*time.Second, got.DebounceMax)
	assert.True(t, got.FoldingImportsByDefault)
}

func TestValidateStrategy(t *testing.T) {
	assert.NoError(t, validateStrategy(""))
	assert.NoError(t, validateStrategy(controller.StrategyAuto))
	assert.NoError(t, validateStrategy(controller.StrategyIndentation))
	assert.ErrorIs(t, validateStrategy("syntax"), controller.ErrInvalidArgument)
}

func TestFileURI(t *testing.T) {
	assert.Equal(t, "file:///tmp/x.go", fileURI("/tmp/x.go"))
}

func TestComputeAll(t *testing.T) {
	a := testApp(t)
	txt := writeFile(t, "nested.txt", nestedText)
	src := writeFile(t, "main.go", goText)

	results, err := a.computeAll(context.Background(), []string{txt, src}, "", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, txt, results[0].Path)
	assert.Equal(t, "plaintext", results[0].LanguageID)
	assert.Equal(t, provider.IndentID, results[0].Provider)
	assert.Len(t, results[0].Regions, 3)

	assert.Equal(t, "go", results[1].LanguageID)
	assert.Equal(t, provider.SyntaxID, results[1].Provider)
	require.NotEmpty(t, results[1].Regions)
	assert.Equal(t, 3, results[1].Regions[0].StartLine)
	assert.Equal(t, "imports", results[1].Regions[0].Type)
}

func TestComputeAll_IndentationStrategy(t *testing.T) {
	a := testApp(t)
	src := writeFile(t, "main.go", goText)

	results, err := a.computeAll(context.Background(), []string{src}, controller.StrategyIndentation, 1)
	require.NoError(t, err)
	assert.Equal(t, provider.IndentID, results[0].Provider)
}

func TestComputeAll_MissingFile(t *testing.T) {
	a := testApp(t)
	_, err := a.computeAll(context.Background(), []string{filepath.Join(t.TempDir(), "nope.go")}, "", 1)
	assert.Error(t, err)
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, []fileRanges{
		{Path: "a.go", LanguageID: "go", Provider: "gofold", Lines: 10, Regions: make([]folding.FoldRange, 2)},
		{Path: "b.txt", LanguageID: "plaintext", Provider: "indent", Lines: 4, Limited: 1, Regions: make([]folding.FoldRange, 1)},
	})
	out := buf.String()
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "1 (limited)")
	assert.Contains(t, strings.ToUpper(out), "TOTAL FILES 2")
}

func TestApplyFolds(t *testing.T) {
	a := testApp(t)
	path := writeFile(t, "nested.txt", nestedText)

	tests := []struct {
		name   string
		all    bool
		level  int
		lines  []int
		hidden []int
	}{
		{name: "nothing", hidden: nil},
		{name: "all", all: true, hidden: []int{2, 6}},
		{name: "level 2", level: 2, hidden: []int{3, 4, 6, 6}},
		{name: "line", lines: []int{3}, hidden: []int{3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, err := a.compute(context.Background(), path, "")
			require.NoError(t, err)
			defer func() { _ = ctrl.Close() }()

			require.NoError(t, applyFolds(context.Background(), ctrl, tt.all, tt.level, tt.lines, 1))
			var got []int
			for _, r := range ctrl.HiddenRanges() {
				got = append(got, r.Start, r.End)
			}
			assert.Equal(t, tt.hidden, got)
		})
	}
}

func TestPrintFolded(t *testing.T) {
	a := testApp(t)
	path := writeFile(t, "nested.txt", nestedText)
	ctrl, err := a.compute(context.Background(), path, "")
	require.NoError(t, err)
	defer func() { _ = ctrl.Close() }()

	require.NoError(t, applyFolds(context.Background(), ctrl, false, 0, []int{2}, 1))

	var buf bytes.Buffer
	require.NoError(t, printFolded(&buf, ctrl))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "2 ▸   b ⋯", lines[1])
	assert.Equal(t, "5 ▾   e", lines[2])
}

func TestRangesCommand_JSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeFile(t, "nested.txt", nestedText)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"ranges", "--json", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		rangesJSON = false
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	var results []fileRanges
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 8, results[0].Lines)
	assert.Len(t, results[0].Regions, 3)
}
