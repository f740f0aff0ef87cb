package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
)

const defaultURI = "untitled:foldkit"

// ErrDocumentTooLarge indicates a text above the folding line limit.
var ErrDocumentTooLarge = errors.New("document exceeds the folding line limit")

// documentInput is the text every folding tool works on.
type documentInput struct {
	Text       string `json:"text" jsonschema:"Full document text"`
	URI        string `json:"uri,omitempty" jsonschema:"Document URI, used to guess the language when language_id is empty"`
	LanguageID string `json:"language_id,omitempty" jsonschema:"Language id such as go, python or yaml"`
	TabSize    int    `json:"tab_size,omitempty" jsonschema:"Tab width for indentation folding (default 4)"`
	Strategy   string `json:"strategy,omitempty" jsonschema:"auto (syntax when available) or indentation"`
}

type region struct {
	StartLine int    `json:"start_line" jsonschema:"First line of the region, 1-based"`
	EndLine   int    `json:"end_line" jsonschema:"Last line of the region, 1-based"`
	Kind      string `json:"kind,omitempty" jsonschema:"comment, imports or region"`
	Collapsed bool   `json:"collapsed" jsonschema:"Whether the region is folded"`
}

type lineRange struct {
	StartLine int `json:"start_line" jsonschema:"First hidden line, 1-based"`
	EndLine   int `json:"end_line" jsonschema:"Last hidden line, 1-based"`
}

type foldingRangesOutput struct {
	LanguageID string   `json:"language_id" jsonschema:"Language the text was folded as"`
	Provider   string   `json:"provider" jsonschema:"Provider that computed the regions"`
	Lines      int      `json:"lines" jsonschema:"Number of lines in the text"`
	Regions    []region `json:"regions" jsonschema:"Fold regions in document order"`
	Limit      int      `json:"limit" jsonschema:"Maximum number of regions"`
	Computed   int      `json:"computed" jsonschema:"Regions the provider found before the limit applied"`
}

type foldingHiddenInput struct {
	Text       string `json:"text" jsonschema:"Full document text"`
	URI        string `json:"uri,omitempty" jsonschema:"Document URI, used to guess the language when language_id is empty"`
	LanguageID string `json:"language_id,omitempty" jsonschema:"Language id such as go, python or yaml"`
	TabSize    int    `json:"tab_size,omitempty" jsonschema:"Tab width for indentation folding (default 4)"`
	Strategy   string `json:"strategy,omitempty" jsonschema:"auto (syntax when available) or indentation"`
	Lines      []int  `json:"lines,omitempty" jsonschema:"Fold the innermost region at each of these 1-based lines"`
	Levels     int    `json:"levels,omitempty" jsonschema:"How many levels to fold at each line (default 1)"`
	Level      int    `json:"level,omitempty" jsonschema:"Fold every region at this nesting level, starting at 1"`
	All        bool   `json:"all,omitempty" jsonschema:"Fold every region"`
}

func (in foldingHiddenInput) document() documentInput {
	return documentInput{Text: in.Text, URI: in.URI, LanguageID: in.LanguageID, TabSize: in.TabSize, Strategy: in.Strategy}
}

type foldingHiddenOutput struct {
	Hidden      []lineRange `json:"hidden" jsonschema:"Hidden line ranges"`
	HiddenLines int         `json:"hidden_lines" jsonschema:"Number of hidden lines"`
	Lines       int         `json:"lines" jsonschema:"Number of lines in the text"`
	Toggled     int         `json:"toggled" jsonschema:"Regions folded by the request"`
	Collapsed   []region    `json:"collapsed" jsonschema:"Folded regions"`
}

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"Tool name, keyword or regular expression"`
	Category string `json:"category,omitempty" jsonschema:"Restrict results to a category"`
}

type toolSearchOutput struct {
	Results []*SearchResult `json:"results" jsonschema:"Matching tools, best first"`
}

var toolMetadata = []*ToolMetadata{
	{
		Name:        "folding_ranges",
		Description: "Compute the fold regions of a source text",
		Category:    CategoryRanges,
		Keywords:    []string{"fold", "regions", "outline", "indentation", "syntax"},
	},
	{
		Name:        "folding_hidden",
		Description: "Compute the lines hidden after folding lines, a nesting level or everything",
		Category:    CategoryView,
		Keywords:    []string{"collapse", "hide", "level", "visible"},
	},
	{
		Name:        "tool_search",
		Description: "Search the available tools",
		Category:    CategorySearch,
		Keywords:    []string{"discover", "help"},
	},
}

func (s *Server) registerTools() {
	s.toolRegistry.RegisterAll(toolMetadata)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "folding_ranges",
		Description: "Compute the fold regions of a source text",
	}, instrument(s, "folding_ranges", s.foldingRanges))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "folding_hidden",
		Description: "Compute the lines hidden after folding lines, a nesting level or everything",
	}, instrument(s, "folding_hidden", s.foldingHidden))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "tool_search",
		Description: "Search the available tools by name, description or keyword",
	}, instrument(s, "tool_search", s.toolSearch))
}

// instrument adapts fn to a tool handler that records metrics and
// summarizes the output as text.
func instrument[In, Out any](s *Server, name string, fn func(context.Context, In) (Out, string, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, name)
		out, summary, err := fn(ctx, in)
		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			s.logger.Debug("tool failed", zap.String("tool", name), zap.Error(err))
			var zero Out
			return nil, zero, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: summary}},
		}, out, nil
	}
}

// open builds an active controller for in. The caller closes it.
func (s *Server) open(ctx context.Context, in documentInput) (*controller.Controller, error) {
	uri := in.URI
	if uri == "" {
		uri = defaultURI
	}
	lang := in.LanguageID
	if lang == "" {
		lang = langconfig.LanguageForFile(uri)
	}

	var opts []controller.Option
	switch in.Strategy {
	case "":
	case controller.StrategyAuto, controller.StrategyIndentation:
		opts = append(opts, controller.WithProviderSelector(controller.StrategySelector(in.Strategy)))
	default:
		return nil, fmt.Errorf("%w: strategy must be %q or %q, got %q", controller.ErrInvalidArgument,
			controller.StrategyAuto, controller.StrategyIndentation, in.Strategy)
	}

	doc := document.New(uri, lang, in.Text, document.WithTabSize(in.TabSize))
	ctrl := s.registry.NewController(doc, opts...)
	if err := ctrl.Enable(); err != nil {
		return nil, err
	}
	if err := ctrl.ComputeNow(ctx); err != nil {
		_ = ctrl.Close()
		if errors.Is(err, controller.ErrNotActive) {
			return nil, fmt.Errorf("%w: %d lines", ErrDocumentTooLarge, doc.LineCount())
		}
		return nil, err
	}
	return ctrl, nil
}

func toRegions(ranges []folding.FoldRange, collapsedOnly bool) []region {
	out := make([]region, 0, len(ranges))
	for _, r := range ranges {
		if collapsedOnly && !r.Collapsed {
			continue
		}
		out = append(out, region{StartLine: r.StartLine, EndLine: r.EndLine, Kind: r.Type, Collapsed: r.Collapsed})
	}
	return out
}

func (s *Server) foldingRanges(ctx context.Context, in documentInput) (foldingRangesOutput, string, error) {
	ctrl, err := s.open(ctx, in)
	if err != nil {
		return foldingRangesOutput{}, "", err
	}
	defer func() { _ = ctrl.Close() }()

	doc := ctrl.Document()
	limit := ctrl.LimitReporter()
	out := foldingRangesOutput{
		LanguageID: doc.LanguageID(),
		Provider:   ctrl.ProviderID(),
		Lines:      doc.LineCount(),
		Regions:    toRegions(ctrl.Regions(), false),
		Limit:      limit.Limit(),
		Computed:   limit.Computed(),
	}
	return out, fmt.Sprintf("%d fold regions (%s)", len(out.Regions), out.Provider), nil
}

func (s *Server) foldingHidden(ctx context.Context, in foldingHiddenInput) (foldingHiddenOutput, string, error) {
	if !in.All && in.Level == 0 && len(in.Lines) == 0 {
		return foldingHiddenOutput{}, "", fmt.Errorf("%w: one of lines, level or all is required", controller.ErrInvalidArgument)
	}
	ctrl, err := s.open(ctx, in.document())
	if err != nil {
		return foldingHiddenOutput{}, "", err
	}
	defer func() { _ = ctrl.Close() }()

	var toggled int
	run := func(name string, args controller.Args) error {
		res, err := ctrl.Execute(ctx, name, args)
		toggled += res.Toggled
		return err
	}
	if in.All {
		if err := run(controller.CmdFoldAll, controller.Args{}); err != nil {
			return foldingHiddenOutput{}, "", err
		}
	}
	if in.Level > 0 {
		if err := run(controller.CmdFoldLevel, controller.Args{Level: in.Level}); err != nil {
			return foldingHiddenOutput{}, "", err
		}
	}
	if len(in.Lines) > 0 {
		if err := run(controller.CmdFold, controller.Args{Lines: in.Lines, Levels: in.Levels}); err != nil {
			return foldingHiddenOutput{}, "", err
		}
	}

	out := foldingHiddenOutput{
		Hidden:    []lineRange{},
		Lines:     ctrl.Document().LineCount(),
		Toggled:   toggled,
		Collapsed: toRegions(ctrl.Regions(), true),
	}
	for _, r := range ctrl.HiddenRanges() {
		out.Hidden = append(out.Hidden, lineRange{StartLine: r.Start, EndLine: r.End})
		out.HiddenLines += r.Len()
	}
	return out, fmt.Sprintf("%d of %d lines hidden", out.HiddenLines, out.Lines), nil
}

func (s *Server) toolSearch(_ context.Context, in toolSearchInput) (toolSearchOutput, string, error) {
	if in.Query == "" {
		return toolSearchOutput{}, "", fmt.Errorf("%w: query is required", controller.ErrInvalidArgument)
	}
	var results []*SearchResult
	if in.Category != "" {
		results = s.toolRegistry.SearchByCategory(in.Query, ToolCategory(in.Category))
	} else {
		results = s.toolRegistry.Search(in.Query)
	}
	if results == nil {
		results = []*SearchResult{}
	}
	return toolSearchOutput{Results: results}, fmt.Sprintf("%d tools found", len(results)), nil
}
