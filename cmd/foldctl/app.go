package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/foldkit/internal/config"
	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/gofold"
	"github.com/fyrsmithlabs/foldkit/internal/langconfig"
	"github.com/fyrsmithlabs/foldkit/internal/logging"
	"github.com/fyrsmithlabs/foldkit/internal/lspfold"
	"github.com/fyrsmithlabs/foldkit/internal/provider"
	"github.com/fyrsmithlabs/foldkit/internal/services"
	"github.com/fyrsmithlabs/foldkit/internal/telemetry"
	"github.com/fyrsmithlabs/foldkit/internal/viewbus"
	"github.com/fyrsmithlabs/foldkit/internal/viewstate"
)

// gofoldScore ranks the built-in Go source below a configured language
// server.
const gofoldScore = 5

// appMode selects the logging defaults of a command.
type appMode int

const (
	// modeCLI logs warnings to stderr and keeps stdout for output.
	modeCLI appMode = iota
	// modeDaemon logs JSON to stdout.
	modeDaemon
)

// app holds the services shared by every command.
type app struct {
	cfg       *config.Config
	log       *logging.Logger
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	lsp       *lspfold.Source
	store     *viewstate.Store
	nc        *nats.Conn
	registry  services.Registry
}

// newApp loads configuration and builds the service registry.
//
// Startup order:
//  1. configuration (file, FOLDKIT_* environment, defaults)
//  2. telemetry, so the logger can tee into the OTEL log pipeline
//  3. logger
//  4. language rules and syntax sources
//  5. view-state store and NATS bus when enabled
func newApp(ctx context.Context, mode appMode) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	a := &app{cfg: cfg}

	telCfg := telemetry.NewDefaultConfig()
	if err := cfg.Section("telemetry", telCfg); err != nil {
		return nil, err
	}
	a.telemetry, err = telemetry.New(ctx, telCfg)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	if mode == modeCLI {
		logCfg = logging.NewCLIConfig()
	}
	if err := cfg.Section("logging", logCfg); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if verbose {
		logCfg.Level = zapcore.DebugLevel
	}
	otelLogs := a.telemetry.LoggerProvider()
	if !logCfg.Output.OTEL {
		otelLogs = nil
	}
	a.log, err = logging.NewLogger(logCfg, otelLogs)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a.logger = a.log.Underlying()

	if err := a.initServices(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) initServices(ctx context.Context) error {
	cfg := a.cfg

	rules, err := langconfig.Load(cfg.Languages.RulesPath)
	if err != nil {
		return fmt.Errorf("loading language rules: %w", err)
	}

	providers := provider.NewRegistry()
	gofold.New(
		gofold.WithLogger(a.logger),
		gofold.WithMarkers(rules.Lookup(gofold.LanguageID).Markers()),
	).Register(providers, gofoldScore)

	if cfg.LSP.Command != "" {
		opts := []lspfold.Option{
			lspfold.WithLogger(a.logger),
			lspfold.WithRangeLimit(cfg.Folding.MaxRegions),
		}
		if len(cfg.LSP.LanguageIDs) > 0 {
			opts = append(opts, lspfold.WithLanguages(cfg.LSP.LanguageIDs...))
		}
		if cfg.LSP.RootURI != "" {
			opts = append(opts, lspfold.WithRootURI(cfg.LSP.RootURI))
		}
		src, err := lspfold.Start(ctx, cfg.LSP.Command, cfg.LSP.Args, opts...)
		if err != nil {
			// Indentation and gofold still work without the server.
			a.logger.Warn("language server unavailable",
				zap.String("command", cfg.LSP.Command), zap.Error(err))
		} else {
			a.lsp = src
			src.Register(providers, cfg.LSP.Score)
			a.logger.Info("language server started",
				zap.String("command", cfg.LSP.Command),
				zap.Strings("languages", src.Languages()))
		}
	}

	if cfg.ViewState.Enabled {
		dir, err := config.ExpandHome(cfg.ViewState.Dir)
		if err != nil {
			return err
		}
		opts := []viewstate.Option{viewstate.WithLogger(a.logger)}
		if cfg.ViewState.CompressionLevel > 0 {
			opts = append(opts, viewstate.WithCompressionLevel(cfg.ViewState.CompressionLevel))
		}
		if a.store, err = viewstate.Open(dir, opts...); err != nil {
			return fmt.Errorf("opening view state store: %w", err)
		}
	}

	var bus *viewbus.Bus
	if cfg.NATS.Enabled {
		opts := []nats.Option{
			nats.Name("foldctl"),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second),
		}
		if cfg.NATS.Token.IsSet() {
			opts = append(opts, nats.Token(cfg.NATS.Token.Value()))
		}
		nc, err := nats.Connect(cfg.NATS.URL, opts...)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		a.nc = nc
		if bus, err = viewbus.New(nc,
			viewbus.WithPrefix(cfg.NATS.SubjectPrefix),
			viewbus.WithLogger(a.logger),
		); err != nil {
			return err
		}
		a.logger.Info("connected to NATS",
			zap.String("url", cfg.NATS.URL),
			logging.Secret("token", cfg.NATS.Token))
	}

	otelMetrics, err := folding.NewMetrics(a.telemetry.Meter(folding.InstrumentationName))
	if err != nil {
		return fmt.Errorf("creating folding metrics: %w", err)
	}

	a.registry = services.NewRegistry(services.Options{
		Folding:   foldingConfig(cfg.Folding),
		Providers: providers,
		Rules:     rules,
		Logger:    a.logger,
		Metrics:   controller.NewMetrics(),
		Telemetry: otelMetrics,
		ViewState: a.store,
		Bus:       bus,
	})
	return nil
}

// foldingConfig maps the folding section onto controller settings.
func foldingConfig(c config.FoldingConfig) controller.Config {
	return controller.Config{
		Strategy:                    c.Strategy,
		MaxRegions:                  c.MaxRegions,
		MaxDocumentLines:            c.MaxDocumentLines,
		DebounceMin:                 c.DebounceMin.Duration(),
		DebounceMax:                 c.DebounceMax.Duration(),
		FoldingImportsByDefault:     c.ImportsByDefault,
		UnfoldOnClickAfterEndOfLine: c.UnfoldOnClickAfterEndOfLine,
	}
}

// Close releases every service. It is safe on a partially built app.
func (a *app) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if a.lsp != nil {
		if err := a.lsp.Close(ctx); err != nil && a.logger != nil {
			a.logger.Debug("closing language server", zap.Error(err))
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.nc != nil {
		_ = a.nc.Drain()
	}
	if a.telemetry != nil {
		_ = a.telemetry.Shutdown(ctx)
	}
	if a.log != nil {
		_ = a.log.Sync() // Best-effort sync on shutdown
	}
}

// loadFile reads path into a document named by its file URI.
func loadFile(path string, tabSize int) (*document.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return document.New(fileURI(abs), langconfig.LanguageForFile(abs), string(data),
		document.WithTabSize(tabSize)), nil
}

func fileURI(abs string) string {
	return "file://" + filepath.ToSlash(abs)
}

// compute folds a file once with a throwaway controller. The caller owns
// the returned controller.
func (a *app) compute(ctx context.Context, path, strategy string) (*controller.Controller, error) {
	doc, err := loadFile(path, tabSize)
	if err != nil {
		return nil, err
	}
	opts := []controller.Option{controller.WithView(controller.NewMemoryView())}
	if strategy != "" {
		opts = append(opts, controller.WithProviderSelector(controller.StrategySelector(strategy)))
	}
	ctrl := a.registry.NewController(doc, opts...)
	if err := ctrl.Enable(); err != nil {
		return nil, err
	}
	if err := ctrl.ComputeNow(ctx); err != nil {
		_ = ctrl.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ctrl, nil
}
