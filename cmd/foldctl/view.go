package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/tui"
	"github.com/fyrsmithlabs/foldkit/internal/watch"
)

var viewWatch bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Browse a file with interactive folding",
	Long: `Open a terminal viewer over a file. Press ? for key bindings.

The collapsed regions are saved on exit and restored the next time the
file is opened when viewstate.enabled is set.

Examples:
  foldctl view main.go

  # Reload the file when it changes on disk
  foldctl view --watch main.go`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().BoolVarP(&viewWatch, "watch", "w", false, "reload the file when it changes")
}

func runView(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, modeCLI)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	ws, sess, err := openSession(ctx, a, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = ws.CloseAll() }()

	if viewWatch {
		w, err := watch.New(args[0], sess.Doc, watch.WithLogger(a.logger))
		if err != nil {
			return err
		}
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := w.Run(watchCtx); err != nil && watchCtx.Err() == nil {
				a.logger.Warn("file watcher stopped", zap.Error(err))
			}
		}()
	}

	p := tea.NewProgram(tui.NewModel(sess.Ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		return err
	}
	return nil
}
