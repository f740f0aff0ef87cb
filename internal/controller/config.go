package controller

import "time"

// Provider selection strategies.
const (
	StrategyAuto        = "auto"
	StrategyIndentation = "indentation"
)

// Config holds the folding behaviour of a controller.
type Config struct {
	// Strategy is StrategyAuto or StrategyIndentation.
	Strategy string
	// MaxRegions caps the regions a provider may return.
	MaxRegions int
	// MaxDocumentLines disables folding for larger documents.
	MaxDocumentLines int
	// DebounceMin and DebounceMax clamp the adaptive recompute delay.
	DebounceMin time.Duration
	DebounceMax time.Duration
	// FoldingImportsByDefault collapses import regions after the first
	// computation.
	FoldingImportsByDefault bool
	// UnfoldOnClickAfterEndOfLine lets a click past the end of a collapsed
	// region's start line expand it.
	UnfoldOnClickAfterEndOfLine bool
}

// DefaultConfig returns the default folding behaviour.
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyAuto,
		MaxRegions:       5000,
		MaxDocumentLines: 300000,
		DebounceMin:      200 * time.Millisecond,
		DebounceMax:      5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	if c.MaxRegions <= 0 {
		c.MaxRegions = d.MaxRegions
	}
	if c.MaxDocumentLines <= 0 {
		c.MaxDocumentLines = d.MaxDocumentLines
	}
	if c.DebounceMin <= 0 {
		c.DebounceMin = d.DebounceMin
	}
	if c.DebounceMax <= 0 {
		c.DebounceMax = d.DebounceMax
	}
	return c
}
