package provider

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

// Option configures a SyntaxRangeProvider.
type Option func(*SyntaxRangeProvider)

// WithLogger sets the logger for source failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *SyntaxRangeProvider) {
		if l != nil {
			p.logger = l.Named("provider")
		}
	}
}

// WithFallback sets the provider used when no source returns ranges.
func WithFallback(fallback RangeProvider) Option {
	return func(p *SyntaxRangeProvider) {
		p.fallback = fallback
	}
}

// SyntaxRangeProvider asks its sources in order and uses the first
// non-empty answer.
type SyntaxRangeProvider struct {
	text          folding.TextModel
	sources       []SyntaxSource
	limit         *folding.RangesLimitReporter
	fallback      RangeProvider
	logger        *zap.Logger
	unsubscribers []func()
}

// NewSyntaxRangeProvider creates a provider over sources. When onChange is
// non-nil it is called whenever a source reports that its ranges changed.
func NewSyntaxRangeProvider(text folding.TextModel, sources []SyntaxSource, limit *folding.RangesLimitReporter, onChange func(), opts ...Option) *SyntaxRangeProvider {
	p := &SyntaxRangeProvider{
		text:    text,
		sources: sources,
		limit:   limit,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if onChange != nil {
		for _, s := range sources {
			if n, ok := s.(ChangeNotifier); ok {
				p.unsubscribers = append(p.unsubscribers, n.OnDidChange(onChange))
			}
		}
	}
	return p
}

// ID implements RangeProvider.
func (p *SyntaxRangeProvider) ID() string { return SyntaxID }

// Compute implements RangeProvider.
func (p *SyntaxRangeProvider) Compute(ctx context.Context) (*folding.Regions, error) {
	for _, source := range p.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := source.ProvideFoldingRanges(ctx, p.text)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			p.logger.Warn("syntax source failed",
				zap.String("source", sourceName(source)),
				zap.String("uri", p.text.URI()),
				zap.Error(err))
			continue
		}
		if len(raw) == 0 {
			continue
		}
		if regions := SanitizeRanges(raw, p.text.LineCount(), p.limit); regions.Length() > 0 {
			return regions, nil
		}
	}
	if p.fallback != nil {
		return p.fallback.Compute(ctx)
	}
	return nil, nil
}

// Dispose implements RangeProvider. It removes the change subscriptions and
// disposes the fallback.
func (p *SyntaxRangeProvider) Dispose() {
	for _, unsubscribe := range p.unsubscribers {
		unsubscribe()
	}
	p.unsubscribers = nil
	if p.fallback != nil {
		p.fallback.Dispose()
	}
}

// SanitizeRanges turns raw source ranges into regions. Ranges outside the
// document or with start >= end are dropped. When more than the limit
// remain, the deepest nesting levels are cut first.
func SanitizeRanges(raw []RawRange, lineCount int, limit *folding.RangesLimitReporter) *folding.Regions {
	ranges := make([]folding.FoldRange, 0, len(raw))
	for _, r := range raw {
		if r.Start < 1 || r.End <= r.Start || r.End > lineCount {
			continue
		}
		ranges = append(ranges, folding.FoldRange{StartLine: r.Start, EndLine: r.End, Type: r.Kind})
	}
	regions := folding.FromFoldRanges(ranges)

	maxRegions := limitOf(limit)
	computed := regions.Length()
	if computed <= maxRegions {
		if limit != nil {
			limit.Update(computed, 0)
		}
		return regions
	}

	depth := make([]int, computed)
	perLevel := map[int]int{}
	maxDepth := 0
	for i := 0; i < computed; i++ {
		if parent := regions.ParentIndex(i); parent >= 0 {
			depth[i] = depth[parent] + 1
		}
		perLevel[depth[i]]++
		if depth[i] > maxDepth {
			maxDepth = depth[i]
		}
	}
	entries := 0
	cutLevel := maxDepth + 1
	for level := 0; level <= maxDepth; level++ {
		if entries+perLevel[level] > maxRegions {
			cutLevel = level
			break
		}
		entries += perLevel[level]
	}
	kept := make([]folding.FoldRange, 0, maxRegions)
	for i := 0; i < computed; i++ {
		switch {
		case depth[i] < cutLevel:
			kept = append(kept, regions.ToFoldRange(i))
		case depth[i] == cutLevel && entries < maxRegions:
			entries++
			kept = append(kept, regions.ToFoldRange(i))
		}
	}
	if limit != nil {
		limit.Update(computed, maxRegions)
	}
	return folding.FromFoldRanges(kept)
}
