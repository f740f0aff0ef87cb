// Package http serves the folding workspace over an echo HTTP API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/foldkit/internal/logging"
	"github.com/fyrsmithlabs/foldkit/internal/services"
	"github.com/fyrsmithlabs/foldkit/internal/telemetry"
)

// Server provides the folding HTTP endpoints.
type Server struct {
	echo      *echo.Echo
	workspace *services.Workspace
	logger    *logging.Logger
	config    *Config
	metrics   *HTTPMetrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// CommandRate and CommandBurst limit fold commands per document.
	CommandRate  float64
	CommandBurst int
	Version      string
	// Telemetry, when set, reports its health on /health.
	Telemetry *telemetry.Telemetry
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Host == "" {
		out.Host = "127.0.0.1"
	}
	if out.Port == 0 {
		out.Port = 9191
	}
	if out.CommandRate <= 0 {
		out.CommandRate = 50
	}
	if out.CommandBurst <= 0 {
		out.CommandBurst = 100
	}
	if out.Gatherer == nil {
		out.Gatherer = prometheus.DefaultGatherer
	}
	return &out
}

// NewServer creates a new HTTP server.
func NewServer(ws *services.Workspace, logger *logging.Logger, cfg *Config) (*Server, error) {
	if ws == nil {
		return nil, fmt.Errorf("workspace cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.withDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		workspace: ws,
		logger:    logger.Named("http"),
		config:    cfg,
		metrics:   NewHTTPMetrics(logger.Underlying()),
		limiters:  make(map[string]*rate.Limiter),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(s.requestContext)
	e.Use(requestLogger)

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/documents", s.handleList)
	v1.POST("/documents", s.handleOpen)
	v1.GET("/documents/:id", s.handleGet)
	v1.PUT("/documents/:id", s.handleUpdate)
	v1.DELETE("/documents/:id", s.handleClose)
	v1.GET("/documents/:id/regions", s.handleRegions)
	v1.GET("/documents/:id/hidden", s.handleHidden)
	v1.POST("/documents/:id/commands", s.handleCommand)
	v1.GET("/documents/:id/state", s.handleGetState)
	v1.PUT("/documents/:id/state", s.handlePutState)
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo { return s.echo }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// limiter returns the command limiter of document id.
func (s *Server) limiter(id string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[id]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.config.CommandRate), s.config.CommandBurst)
		s.limiters[id] = l
	}
	return l
}

func (s *Server) dropLimiter(id string) {
	s.mu.Lock()
	delete(s.limiters, id)
	s.mu.Unlock()
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
