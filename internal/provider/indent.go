package provider

import (
	"context"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
)

// cancelCheckInterval is how many lines are scanned between ctx checks.
const cancelCheckInterval = 1024

// IndentRangeProvider folds blocks of lines indented deeper than the line
// above them. Region markers, when the language has them, fold everything
// between a start and an end marker regardless of indentation.
type IndentRangeProvider struct {
	text  folding.TextModel
	rules langconfig.Rules
	limit *folding.RangesLimitReporter
}

// NewIndentRangeProvider creates an indentation provider. limit may be nil.
func NewIndentRangeProvider(text folding.TextModel, rules langconfig.Rules, limit *folding.RangesLimitReporter) *IndentRangeProvider {
	return &IndentRangeProvider{text: text, rules: rules, limit: limit}
}

// ID implements RangeProvider.
func (p *IndentRangeProvider) ID() string { return IndentID }

// Dispose implements RangeProvider.
func (p *IndentRangeProvider) Dispose() {}

// Compute implements RangeProvider. It returns nil for an empty document.
func (p *IndentRangeProvider) Compute(ctx context.Context) (*folding.Regions, error) {
	if p.text.LineCount() <= 1 {
		return nil, nil
	}
	return computeIndentRanges(ctx, p.text, p.rules.OffSide, p.rules.Markers(), p.limit)
}

// ComputeIndentRanges runs the indentation algorithm synchronously.
func ComputeIndentRanges(text folding.TextModel, offSide bool, markers *langconfig.Markers, limit *folding.RangesLimitReporter) *folding.Regions {
	regions, _ := computeIndentRanges(context.Background(), text, offSide, markers, limit)
	return regions
}

// previousRegion is a stack entry of the bottom-up scan.
type previousRegion struct {
	// indent of the block, -1 for the sentinel and -2 for an end marker
	indent int
	// endAbove is the line below the last line of the block
	endAbove int
	// line where the block or marker starts
	line int
}

const (
	sentinelIndent  = -1
	endMarkerIndent = -2
)

// computeIndentRanges scans the document from the last line up, keeping a
// stack of open blocks. A line indented less than the block on top closes
// it. An end marker opens a pseudo block that the matching start marker
// closes.
func computeIndentRanges(ctx context.Context, text folding.TextModel, offSide bool, markers *langconfig.Markers, limit *folding.RangesLimitReporter) (*folding.Regions, error) {
	tabSize := text.TabSize()
	lineCount := text.LineCount()
	collector := newRangesCollector(limitOf(limit))

	previous := []previousRegion{{indent: sentinelIndent, endAbove: lineCount + 1, line: lineCount + 1}}
	for line := lineCount; line > 0; line-- {
		if (lineCount-line)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		content := text.LineContent(line)
		indent := indentLevel(content, tabSize)
		top := &previous[len(previous)-1]
		if indent == -1 {
			if offSide {
				// blank lines belong to the block below
				top.endAbove = line
			}
			continue
		}

		if markers != nil {
			if markers.Start.MatchString(content) {
				i := len(previous) - 1
				for i > 0 && previous[i].indent != endMarkerIndent {
					i--
				}
				if i > 0 {
					previous = previous[:i+1]
					top = &previous[i]
					// the marker range includes the end marker line
					collector.insertFirst(line, top.line, indent, folding.TypeRegion)
					top.line = line
					top.indent = indent
					top.endAbove = line
					continue
				}
				// no matching end marker: a regular line
			} else if markers.End.MatchString(content) {
				previous = append(previous, previousRegion{indent: endMarkerIndent, endAbove: line, line: line})
				continue
			}
		}

		if top.indent > indent {
			for top.indent > indent {
				previous = previous[:len(previous)-1]
				top = &previous[len(previous)-1]
			}
			if end := top.endAbove - 1; end-line >= 1 {
				collector.insertFirst(line, end, indent, "")
			}
		}
		if top.indent == indent {
			top.endAbove = line
		} else {
			previous = append(previous, previousRegion{indent: indent, endAbove: line, line: line})
		}
	}
	regions, computed, limited := collector.toRegions()
	if limit != nil {
		limit.Update(computed, limited)
	}
	return regions, nil
}

// indentLevel returns the visible indentation width of line, or -1 when the
// line is blank.
func indentLevel(line string, tabSize int) int {
	if tabSize <= 0 {
		tabSize = 4
	}
	indent := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			indent++
		case '\t':
			indent += tabSize - indent%tabSize
		default:
			return indent
		}
	}
	return -1
}

func limitOf(r *folding.RangesLimitReporter) int {
	if r == nil {
		return folding.MaxFoldingRegions
	}
	return r.Limit()
}

// rangesCollector accumulates ranges in reverse line order and trims the
// deepest ones when there are more than the limit.
type rangesCollector struct {
	starts  []int
	ends    []int
	indents []int
	types   []string
	// occurrences counts ranges per indent level
	occurrences []int
	limit       int
}

func newRangesCollector(limit int) *rangesCollector {
	return &rangesCollector{limit: limit}
}

func (c *rangesCollector) insertFirst(start, end, indent int, typ string) {
	if start > folding.MaxLineNumber || end > folding.MaxLineNumber {
		return
	}
	c.starts = append(c.starts, start)
	c.ends = append(c.ends, end)
	c.indents = append(c.indents, indent)
	c.types = append(c.types, typ)
	if indent >= 0 {
		for len(c.occurrences) <= indent {
			c.occurrences = append(c.occurrences, 0)
		}
		c.occurrences[indent]++
	}
}

// toRegions returns the collected regions in line order with the number of
// computed ranges and the limit that was applied (0 when nothing was cut).
func (c *rangesCollector) toRegions() (*folding.Regions, int, int) {
	n := len(c.starts)
	if n <= c.limit {
		ranges := make([]folding.FoldRange, n)
		for i := 0; i < n; i++ {
			k := n - 1 - i
			ranges[i] = folding.FoldRange{StartLine: c.starts[k], EndLine: c.ends[k], Type: c.types[k]}
		}
		return folding.FromFoldRanges(ranges), n, 0
	}

	// Keep whole indent levels from the outside in while they fit, then
	// fill the rest of the budget from the first level that does not.
	entries := 0
	maxIndent := len(c.occurrences)
	for i, count := range c.occurrences {
		if count == 0 {
			continue
		}
		if count+entries > c.limit {
			maxIndent = i
			break
		}
		entries += count
	}
	ranges := make([]folding.FoldRange, 0, c.limit)
	for k := n - 1; k >= 0; k-- {
		indent := c.indents[k]
		if indent < maxIndent || (indent == maxIndent && entries < c.limit) {
			if indent == maxIndent {
				entries++
			}
			ranges = append(ranges, folding.FoldRange{StartLine: c.starts[k], EndLine: c.ends[k], Type: c.types[k]})
		}
	}
	return folding.FromFoldRanges(ranges), n, c.limit
}
