// Package provider computes fold regions for a document.
//
// Two strategies implement RangeProvider: IndentRangeProvider derives
// regions from indentation and region markers, SyntaxRangeProvider asks
// language-aware SyntaxSources in order and falls back to indentation when
// none of them answers. Providers observe ctx for cancellation and return
// ctx.Err() when it fires; any other error means the computation failed.
package provider

import (
	"context"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

// Provider ids.
const (
	IndentID = "indent"
	SyntaxID = "syntax"
)

// RangeProvider computes the fold regions of one document.
type RangeProvider interface {
	// ID names the strategy, e.g. "indent".
	ID() string
	// Compute returns the regions of the document's current content. A nil
	// result with a nil error means no regions.
	Compute(ctx context.Context) (*folding.Regions, error)
	// Dispose releases subscriptions held by the provider.
	Dispose()
}

// RawRange is a fold range reported by a syntax source. Lines are 1-based.
type RawRange struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  string `json:"kind,omitempty"`
}

// SyntaxSource reports fold ranges from a language-aware analysis.
type SyntaxSource interface {
	ProvideFoldingRanges(ctx context.Context, doc folding.TextModel) ([]RawRange, error)
}

// ChangeNotifier is implemented by sources whose results can change without
// a document edit.
type ChangeNotifier interface {
	OnDidChange(handler func()) (unsubscribe func())
}

// Named is implemented by sources that have a display name for logs.
type Named interface {
	Name() string
}

func sourceName(s SyntaxSource) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "anonymous"
}

// SourceFunc adapts a function to SyntaxSource.
type SourceFunc func(ctx context.Context, doc folding.TextModel) ([]RawRange, error)

// ProvideFoldingRanges implements SyntaxSource.
func (f SourceFunc) ProvideFoldingRanges(ctx context.Context, doc folding.TextModel) ([]RawRange, error) {
	return f(ctx, doc)
}
