// Package gofold computes fold ranges for Go sources from their syntax tree.
//
// Source folds blocks, composite literals, call arguments, field lists,
// grouped declarations, case clauses, raw strings, comment groups and
// "// region" marker pairs. The line holding the opening token stays
// visible, as does the line of the closing token. Files that do not parse
// produce no ranges, which makes the syntax provider fall back to
// indentation.
package gofold

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
)

// LanguageID is the language the source registers for.
const LanguageID = "go"

// checkEvery is how many visited nodes pass between ctx checks.
const checkEvery = 512

// Source is a provider.SyntaxSource for Go.
type Source struct {
	logger  *zap.Logger
	markers *langconfig.Markers
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMarkers overrides the region marker patterns.
func WithMarkers(m *langconfig.Markers) Option {
	return func(s *Source) {
		s.markers = m
	}
}

// New creates a Go syntax source.
func New(opts ...Option) *Source {
	s := &Source{
		logger:  zap.NewNop(),
		markers: langconfig.Default().Lookup(LanguageID).Markers(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("gofold")
	return s
}

// Name implements provider.Named.
func (s *Source) Name() string { return "gofold" }

// Register adds the source to r for Go documents.
func (s *Source) Register(r *provider.Registry, score int) (unregister func()) {
	return r.Register(s.Name(), s, score, LanguageID)
}

// ProvideFoldingRanges implements provider.SyntaxSource.
func (s *Source) ProvideFoldingRanges(ctx context.Context, doc folding.TextModel) ([]provider.RawRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := text(doc)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, doc.URI(), src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		s.logger.Debug("go source does not parse, skipping",
			zap.String("uri", doc.URI()),
			zap.Int("version", doc.VersionID()),
			zap.Error(err),
		)
		return nil, nil
	}

	w := &walker{ctx: ctx, tok: fset.File(file.Pos()), src: src}
	w.comments(file.Comments)
	w.markerRanges(doc, s.markers)
	ast.Inspect(file, w.visit)
	if w.err != nil {
		return nil, w.err
	}
	return w.ranges, nil
}

func text(doc folding.TextModel) string {
	var b strings.Builder
	for i := 1; i <= doc.LineCount(); i++ {
		if i > 1 {
			b.WriteByte('\n')
		}
		b.WriteString(doc.LineContent(i))
	}
	return b.String()
}

type walker struct {
	ctx    context.Context
	tok    *token.File
	src    string
	ranges []provider.RawRange
	seen   int
	err    error
}

func (w *walker) add(start, end int, kind string) {
	if end > start {
		w.ranges = append(w.ranges, provider.RawRange{Start: start, End: end, Kind: kind})
	}
}

func (w *walker) line(p token.Pos) int { return w.tok.Line(p) }

func (w *walker) visit(n ast.Node) bool {
	if w.err != nil || n == nil {
		return false
	}
	w.seen++
	if w.seen%checkEvery == 0 {
		if err := w.ctx.Err(); err != nil {
			w.err = err
			return false
		}
	}
	switch n := n.(type) {
	case *ast.BlockStmt:
		w.bracketed(n.Lbrace, n.Rbrace, "")
	case *ast.CaseClause:
		w.add(w.line(n.Colon), w.line(n.End()), "")
	case *ast.CommClause:
		w.add(w.line(n.Colon), w.line(n.End()), "")
	case *ast.CallExpr:
		w.bracketed(n.Lparen, n.Rparen, "")
	case *ast.FieldList:
		w.bracketed(n.Opening, n.Closing, "")
	case *ast.GenDecl:
		kind := ""
		if n.Tok == token.IMPORT {
			kind = folding.TypeImports
		}
		w.bracketed(n.Lparen, n.Rparen, kind)
	case *ast.CompositeLit:
		w.bracketed(n.Lbrace, n.Rbrace, "")
	case *ast.BasicLit:
		if n.Kind == token.STRING && strings.HasPrefix(n.Value, "`") {
			w.add(w.line(n.Pos()), w.line(n.End())-1, "")
		}
	}
	return true
}

// bracketed folds the lines between open and close when open ends its line
// and close starts its line.
func (w *walker) bracketed(open, close token.Pos, kind string) {
	if !open.IsValid() || !close.IsValid() || open+1 == close {
		return
	}
	startLine, endLine := w.line(open), w.line(close)
	if endLine <= startLine+1 {
		return
	}
	openOff, closeOff := w.tok.Offset(open), w.tok.Offset(close)
	nextLineStart := w.tok.Offset(w.tok.LineStart(startLine + 1))
	closeLineStart := w.tok.Offset(w.tok.LineStart(endLine))
	if strings.TrimSpace(w.src[openOff+1:nextLineStart]) != "" {
		return
	}
	if strings.TrimSpace(w.src[closeLineStart:closeOff]) != "" {
		return
	}
	w.add(startLine, endLine-1, kind)
}

func (w *walker) comments(groups []*ast.CommentGroup) {
	for _, g := range groups {
		w.add(w.line(g.Pos()), w.line(g.End()), folding.TypeComment)
	}
}

// markerRanges pairs region start and end comment lines.
func (w *walker) markerRanges(doc folding.TextModel, markers *langconfig.Markers) {
	if markers == nil || markers.Start == nil || markers.End == nil {
		return
	}
	var open []int
	for i := 1; i <= doc.LineCount(); i++ {
		content := doc.LineContent(i)
		switch {
		case markers.Start.MatchString(content):
			open = append(open, i)
		case markers.End.MatchString(content) && len(open) > 0:
			start := open[len(open)-1]
			open = open[:len(open)-1]
			w.add(start, i, folding.TypeRegion)
		}
	}
}
