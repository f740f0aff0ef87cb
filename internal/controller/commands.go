package controller

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

// Command names accepted by Execute.
const (
	CmdFold                  = "fold"
	CmdUnfold                = "unfold"
	CmdToggleFold            = "toggleFold"
	CmdFoldRecursively       = "foldRecursively"
	CmdUnfoldRecursively     = "unfoldRecursively"
	CmdToggleFoldRecursively = "toggleFoldRecursively"
	CmdFoldAll               = "foldAll"
	CmdUnfoldAll             = "unfoldAll"
	CmdFoldLevel             = "foldLevel"
	CmdFoldAllBlockComments  = "foldAllBlockComments"
	CmdFoldAllRegions        = "foldAllMarkerRegions"
	CmdUnfoldAllRegions      = "unfoldAllMarkerRegions"
	CmdFoldAllImports        = "foldAllImports"
	CmdFoldAllExcept         = "foldAllExcept"
	CmdUnfoldAllExcept       = "unfoldAllExcept"
	CmdGotoParentFold        = "gotoParentFold"
	CmdGotoNextFold          = "gotoNextFold"
	CmdGotoPreviousFold      = "gotoPreviousFold"
	CmdCreateManualFold      = "createManualFold"
	CmdRemoveManualFolds     = "removeManualFolds"
)

// Fold and unfold directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Args are the optional command arguments.
type Args struct {
	// Lines are the 1-based lines the command applies to. Empty means the
	// start lines of the view selections.
	Lines []int `json:"lines,omitempty"`
	// Levels is how many levels fold and unfold descend. 0 means 1.
	Levels int `json:"levels,omitempty"`
	// Direction is DirectionUp or DirectionDown for fold and unfold.
	Direction string `json:"direction,omitempty"`
	// Level is the nesting level foldLevel collapses, starting at 1.
	Level int `json:"level,omitempty"`
}

// Result reports what a command changed.
type Result struct {
	// Toggled is the number of regions whose collapse state changed.
	Toggled int `json:"toggled"`
	// Line is the target line of the goto commands, 0 when there is none.
	Line int `json:"line,omitempty"`
	// Ranges is the number of manual ranges created or removed.
	Ranges int `json:"ranges,omitempty"`
}

type commandFunc func(c *Controller, lines []int, args Args) (Result, error)

var commands = map[string]commandFunc{
	CmdFold:                  cmdFold,
	CmdUnfold:                cmdUnfold,
	CmdToggleFold:            toggleAt(1),
	CmdFoldRecursively:       levelsDown(true, folding.AllLevels),
	CmdUnfoldRecursively:     levelsDown(false, folding.AllLevels),
	CmdToggleFoldRecursively: toggleAt(folding.AllLevels),
	CmdFoldAll:               all(true),
	CmdUnfoldAll:             all(false),
	CmdFoldLevel:             cmdFoldLevel,
	CmdFoldAllBlockComments:  cmdFoldAllBlockComments,
	CmdFoldAllRegions:        markerRegions(true),
	CmdUnfoldAllRegions:      markerRegions(false),
	"foldAllRegions":         markerRegions(true),
	"unfoldAllRegions":       markerRegions(false),
	CmdFoldAllImports:        cmdFoldAllImports,
	CmdFoldAllExcept:         allExcept(true),
	CmdUnfoldAllExcept:       allExcept(false),
	CmdGotoParentFold:        gotoFold(folding.GetParentFoldLine),
	CmdGotoNextFold:          gotoFold(folding.GetNextFoldLine),
	CmdGotoPreviousFold:      gotoFold(folding.GetPreviousFoldLine),
	CmdCreateManualFold:      cmdCreateManualFold,
	CmdRemoveManualFolds:     cmdRemoveManualFolds,
}

// Commands returns the command names accepted by Execute.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs a fold command against the current model.
func (c *Controller) Execute(ctx context.Context, name string, args Args) (Result, error) {
	fn, ok := commands[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	ctx, span := folding.StartSpan(ctx, "folding.command", c.doc)
	defer span.End()

	c.mu.Lock()
	if c.model == nil {
		c.mu.Unlock()
		return Result{}, ErrNotActive
	}
	lines := args.Lines
	if len(lines) == 0 {
		lines = c.selectionLines()
	}
	before := c.toggled
	res, err := fn(c, lines, args)
	res.Toggled = c.toggled - before
	c.mu.Unlock()
	c.flush()

	if err != nil {
		folding.RecordError(ctx, err)
		return Result{}, err
	}
	c.prom.recordCommand(name)
	c.otel.RecordCollapseToggles(ctx, name, res.Toggled)
	c.logger.Debug("fold command executed",
		zap.String("command", name),
		zap.Int("toggled", res.Toggled),
	)
	return res, nil
}

func (c *Controller) selectionLines() []int {
	var lines []int
	for _, s := range c.view.Selections() {
		lines = append(lines, s.Start().Line)
	}
	return lines
}

func levels(args Args) int {
	if args.Levels <= 0 {
		return 1
	}
	return args.Levels
}

func cmdFold(c *Controller, lines []int, args Args) (Result, error) {
	switch {
	case args.Direction == DirectionUp:
		folding.SetCollapseStateLevelsUp(c.model, true, levels(args), lines)
	case args.Levels == 0 && args.Direction == "":
		folding.SetCollapseStateUp(c.model, true, lines)
	default:
		folding.SetCollapseStateLevelsDown(c.model, true, levels(args), lines)
	}
	return Result{}, nil
}

func cmdUnfold(c *Controller, lines []int, args Args) (Result, error) {
	if args.Direction == DirectionUp {
		folding.SetCollapseStateLevelsUp(c.model, false, levels(args), lines)
	} else {
		folding.SetCollapseStateLevelsDown(c.model, false, levels(args), lines)
	}
	return Result{}, nil
}

func toggleAt(n int) commandFunc {
	return func(c *Controller, lines []int, _ Args) (Result, error) {
		folding.ToggleCollapseStateAt(c.model, n, lines)
		return Result{}, nil
	}
}

func levelsDown(collapse bool, n int) commandFunc {
	return func(c *Controller, lines []int, _ Args) (Result, error) {
		folding.SetCollapseStateLevelsDown(c.model, collapse, n, lines)
		return Result{}, nil
	}
}

func all(collapse bool) commandFunc {
	return func(c *Controller, _ []int, _ Args) (Result, error) {
		folding.SetCollapseStateLevelsDown(c.model, collapse, folding.AllLevels, nil)
		return Result{}, nil
	}
}

func cmdFoldLevel(c *Controller, lines []int, args Args) (Result, error) {
	if args.Level < 1 {
		return Result{}, fmt.Errorf("%w: fold level must be at least 1, got %d", ErrInvalidArgument, args.Level)
	}
	folding.SetCollapseStateAtLevel(c.model, args.Level, true, lines)
	return Result{}, nil
}

func cmdFoldAllBlockComments(c *Controller, _ []int, _ Args) (Result, error) {
	if c.model.Regions().HasTypes() {
		folding.SetCollapseStateForType(c.model, folding.TypeComment, true)
		return Result{}, nil
	}
	rules := c.rules.Lookup(c.doc.LanguageID())
	if rules.LineComment != "" {
		re := regexp.MustCompile(`^\s*` + regexp.QuoteMeta(rules.LineComment))
		folding.SetCollapseStateForMatchingLines(c.model, re, true)
	}
	return Result{}, nil
}

func markerRegions(collapse bool) commandFunc {
	return func(c *Controller, _ []int, _ Args) (Result, error) {
		if c.model.Regions().HasTypes() {
			folding.SetCollapseStateForType(c.model, folding.TypeRegion, collapse)
			return Result{}, nil
		}
		if markers := c.rules.Lookup(c.doc.LanguageID()).Markers(); markers != nil && markers.Start != nil {
			folding.SetCollapseStateForMatchingLines(c.model, markers.Start, collapse)
		}
		return Result{}, nil
	}
}

func cmdFoldAllImports(c *Controller, _ []int, _ Args) (Result, error) {
	folding.SetCollapseStateForType(c.model, folding.TypeImports, true)
	return Result{}, nil
}

func allExcept(collapse bool) commandFunc {
	return func(c *Controller, lines []int, _ Args) (Result, error) {
		folding.SetCollapseStateForRest(c.model, collapse, lines)
		return Result{}, nil
	}
}

func gotoFold(find func(line int, m *folding.Model) (int, bool)) commandFunc {
	return func(c *Controller, lines []int, _ Args) (Result, error) {
		if len(lines) == 0 {
			return Result{}, nil
		}
		target, ok := find(lines[0], c.model)
		if !ok {
			return Result{}, nil
		}
		c.view.SetSelections([]folding.Selection{folding.Caret(target, 1)})
		return Result{Line: target}, nil
	}
}

func cmdCreateManualFold(c *Controller, _ []int, args Args) (Result, error) {
	selections := c.view.Selections()
	if len(args.Lines) == 2 {
		start, end := args.Lines[0], args.Lines[1]
		if start > end {
			start, end = end, start
		}
		selections = []folding.Selection{
			folding.NewSelection(start, 1, end, len(c.doc.LineContent(end))+1),
		}
	} else if len(args.Lines) != 0 {
		return Result{}, fmt.Errorf("%w: createManualFold takes a start and an end line", ErrInvalidArgument)
	}
	n := c.model.CreateManualRanges(selections)
	if n > 0 {
		carets := make([]folding.Selection, 0, len(selections))
		for _, s := range selections {
			carets = append(carets, folding.Caret(s.Start().Line, 1))
		}
		// A queued hidden-range delivery would restore the old selections.
		if c.pending != nil {
			c.pending.selections = carets
		} else {
			c.view.SetSelections(carets)
		}
	}
	return Result{Ranges: n}, nil
}

func cmdRemoveManualFolds(c *Controller, _ []int, args Args) (Result, error) {
	var ranges []folding.LineRange
	if len(args.Lines) > 0 {
		for _, line := range args.Lines {
			ranges = append(ranges, folding.LineRange{Start: line, End: line})
		}
	} else {
		for _, s := range c.view.Selections() {
			ranges = append(ranges, folding.LineRange{Start: s.Start().Line, End: s.End().Line})
		}
	}
	return Result{Ranges: c.model.RemoveManualRanges(ranges)}, nil
}
