package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	foldhttp "github.com/fyrsmithlabs/foldkit/internal/http"
	"github.com/fyrsmithlabs/foldkit/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the folding HTTP API",
	Long: `Start the HTTP API on server.host:server.port. Documents opened over
the API keep their folding state until deleted or the server stops.

Examples:
  foldctl serve

  # Configure via environment
  FOLDKIT_SERVER_PORT=9300 FOLDKIT_VIEWSTATE_ENABLED=true foldctl serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, modeDaemon)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	ws := services.NewWorkspace(a.registry)
	defer func() { _ = ws.CloseAll() }()

	srvCfg := a.cfg.Server
	srv, err := foldhttp.NewServer(ws, a.log, &foldhttp.Config{
		Host:         srvCfg.Host,
		Port:         srvCfg.Port,
		CommandRate:  srvCfg.CommandRate,
		CommandBurst: srvCfg.CommandBurst,
		Version:      version,
		Telemetry:    a.telemetry,
	})
	if err != nil {
		return err
	}

	a.logger.Info("Starting foldkit",
		zap.String("addr", srvCfg.Addr()),
		zap.String("version", version),
		zap.Bool("viewstate", a.store != nil),
		zap.Bool("nats", a.nc != nil),
		zap.Bool("lsp", a.lsp != nil),
		zap.Bool("telemetry", a.telemetry.IsEnabled()),
		zap.Duration("shutdown_timeout", srvCfg.ShutdownTimeout.Duration()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	a.logger.Info("Server shutdown complete")
	return nil
}
