package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/services"
	"github.com/fyrsmithlabs/foldkit/internal/watch"
)

var watchPrint bool

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Recompute regions whenever a file changes",
	Long: `Watch a file and report each recomputation of its regions until
interrupted.

Examples:
  foldctl watch main.go

  # Print the folded file after every change
  foldctl watch --print main.go`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchPrint, "print", false, "print the folded file after each update")
}

// openSession opens path in a fresh workspace, restoring saved view state.
func openSession(ctx context.Context, a *app, path string) (*services.Workspace, *services.Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	ws := services.NewWorkspace(a.registry)
	sess, err := ws.Open(ctx, fileURI(abs), "", string(data))
	if err != nil {
		return nil, nil, err
	}
	return ws, sess, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	w, err := watch.New(args[0], sess.Doc, watch.WithLogger(a.logger))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	updates := make(chan controller.UpdateEvent, 16)
	unsub := sess.Ctrl.OnDidUpdate(func(e controller.UpdateEvent) {
		select {
		case updates <- e:
		default:
		}
	})
	defer unsub()

	fmt.Fprintf(out, "watching %s (%d regions via %s)\n", w.Path(), len(sess.Ctrl.Regions()), sess.Ctrl.ProviderID())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	events := w.Events()
	for {
		select {
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if evt.Err != nil {
				a.logger.Warn("reload failed", zap.Error(evt.Err))
			}
		case e := <-updates:
			reportUpdate(out, sess.Ctrl, e)
		}
	}
}

func reportUpdate(out io.Writer, ctrl *controller.Controller, e controller.UpdateEvent) {
	if e.Failed {
		fmt.Fprintf(out, "version %d: computation failed\n", e.Version)
		return
	}
	fmt.Fprintf(out, "version %d: %d regions via %s\n", e.Version, e.Regions, e.Provider)
	if watchPrint {
		_ = printFolded(out, ctrl)
	}
}
