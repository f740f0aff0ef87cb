package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

var (
	rangesJSON     bool
	rangesRegions  bool
	rangesStrategy string
	rangesJobs     int
)

var rangesCmd = &cobra.Command{
	Use:   "ranges <files...>",
	Short: "Print the folding regions of files",
	Long: `Compute the folding regions of each file and print a summary table,
the individual regions, or JSON.

Examples:
  # Summary of a package
  foldctl ranges *.go

  # Every region of one file, indentation only
  foldctl ranges --regions --strategy indentation main.py

  # Machine-readable output
  foldctl ranges --json main.go`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRanges,
}

func init() {
	rangesCmd.Flags().BoolVar(&rangesJSON, "json", false, "print JSON")
	rangesCmd.Flags().BoolVar(&rangesRegions, "regions", false, "list every region")
	rangesCmd.Flags().StringVar(&rangesStrategy, "strategy", "", "auto or indentation (default from config)")
	rangesCmd.Flags().IntVarP(&rangesJobs, "jobs", "j", runtime.NumCPU(), "files computed in parallel")
}

// fileRanges is the result for one file.
type fileRanges struct {
	Path       string              `json:"path"`
	LanguageID string              `json:"languageId"`
	Provider   string              `json:"provider"`
	Lines      int                 `json:"lines"`
	Regions    []folding.FoldRange `json:"regions"`
	// Limited is the region limit applied, 0 when every region was kept.
	Limited int `json:"limited,omitempty"`
}

func runRanges(cmd *cobra.Command, args []string) error {
	if err := validateStrategy(rangesStrategy); err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), modeCLI)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	results, err := a.computeAll(cmd.Context(), args, rangesStrategy, rangesJobs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case rangesJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case rangesRegions:
		renderRegions(out, results)
	default:
		renderSummary(out, results)
	}
	return nil
}

// computeAll folds every path, at most jobs at a time. Results keep the
// order of paths.
func (a *app) computeAll(ctx context.Context, paths []string, strategy string, jobs int) ([]fileRanges, error) {
	results := make([]fileRanges, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			ctrl, err := a.compute(ctx, path, strategy)
			if err != nil {
				return err
			}
			defer func() { _ = ctrl.Close() }()

			doc := ctrl.Document()
			results[i] = fileRanges{
				Path:       path,
				LanguageID: doc.LanguageID(),
				Provider:   ctrl.ProviderID(),
				Lines:      doc.LineCount(),
				Regions:    ctrl.Regions(),
				Limited:    ctrl.LimitReporter().Limited(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func renderSummary(w io.Writer, results []fileRanges) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Path", "Language", "Provider", "Lines", "Regions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	total := 0
	for _, r := range results {
		regions := fmt.Sprintf("%d", len(r.Regions))
		if r.Limited > 0 {
			regions += " (limited)"
		}
		table.Append([]string{r.Path, r.LanguageID, r.Provider, fmt.Sprintf("%d", r.Lines), regions})
		total += len(r.Regions)
	}
	table.SetFooter([]string{fmt.Sprintf("Total Files %d", len(results)), "", "", "", fmt.Sprintf("%d", total)})
	table.Render()
}

func renderRegions(w io.Writer, results []fileRanges) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Path", "Start", "End", "Kind"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for _, r := range results {
		for _, region := range r.Regions {
			table.Append([]string{
				r.Path,
				fmt.Sprintf("%d", region.StartLine),
				fmt.Sprintf("%d", region.EndLine),
				region.Type,
			})
		}
	}
	table.Render()
}

func validateStrategy(s string) error {
	switch s {
	case "", controller.StrategyAuto, controller.StrategyIndentation:
		return nil
	}
	return fmt.Errorf("%w: strategy must be %q or %q, got %q", controller.ErrInvalidArgument,
		controller.StrategyAuto, controller.StrategyIndentation, s)
}
