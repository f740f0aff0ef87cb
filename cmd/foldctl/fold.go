package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/tui"
)

var (
	foldLevel    int
	foldLines    []int
	foldAll      bool
	foldLevels   int
	foldStrategy string
)

var foldCmd = &cobra.Command{
	Use:   "fold <file>",
	Short: "Print a file with regions collapsed",
	Long: `Collapse regions of a file and print the lines that stay visible.
Collapsed start lines end with ⋯.

Examples:
  # Collapse everything
  foldctl fold --all main.go

  # Collapse the second nesting level
  foldctl fold --level 2 main.go

  # Collapse the regions starting on lines 10 and 42
  foldctl fold --line 10 --line 42 main.go`,
	Args: cobra.ExactArgs(1),
	RunE: runFold,
}

func init() {
	foldCmd.Flags().IntVar(&foldLevel, "level", 0, "collapse regions at this nesting level")
	foldCmd.Flags().IntSliceVar(&foldLines, "line", nil, "collapse the region containing this line")
	foldCmd.Flags().IntVar(&foldLevels, "levels", 1, "levels collapsed below each --line")
	foldCmd.Flags().BoolVar(&foldAll, "all", false, "collapse every region")
	foldCmd.Flags().StringVar(&foldStrategy, "strategy", "", "auto or indentation (default from config)")
}

func runFold(cmd *cobra.Command, args []string) error {
	if err := validateStrategy(foldStrategy); err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), modeCLI)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	ctrl, err := a.compute(cmd.Context(), args[0], foldStrategy)
	if err != nil {
		return err
	}
	defer func() { _ = ctrl.Close() }()

	if err := applyFolds(cmd.Context(), ctrl, foldAll, foldLevel, foldLines, foldLevels); err != nil {
		return err
	}
	return printFolded(cmd.OutOrStdout(), ctrl)
}

// applyFolds runs foldAll, foldLevel and fold in that order.
func applyFolds(ctx context.Context, ctrl *controller.Controller, all bool, level int, lines []int, levels int) error {
	if all {
		if _, err := ctrl.Execute(ctx, controller.CmdFoldAll, controller.Args{}); err != nil {
			return err
		}
	}
	if level > 0 {
		if _, err := ctrl.Execute(ctx, controller.CmdFoldLevel, controller.Args{Level: level}); err != nil {
			return err
		}
	}
	if len(lines) > 0 {
		if _, err := ctrl.Execute(ctx, controller.CmdFold, controller.Args{Lines: lines, Levels: levels}); err != nil {
			return err
		}
	}
	return nil
}

func printFolded(w io.Writer, ctrl *controller.Controller) error {
	_, err := fmt.Fprint(w, tui.FormatFolded(ctrl.Document(), ctrl.GutterMarkers(), ctrl.HiddenRanges()))
	return err
}
