package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/foldkit/internal/services"
)

// Server is an MCP server backed by the folding services.
type Server struct {
	mcp          *mcp.Server
	registry     services.Registry
	toolRegistry *ToolRegistry
	metrics      *Metrics
	logger       *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "foldkit")
	Name string

	// Version is the server version (default: "0.1.0")
	Version string

	// Logger for structured logging. It must not write to stdout when the
	// server runs on stdio.
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "foldkit",
		Version: "0.1.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server on reg.
func NewServer(cfg *Config, reg services.Registry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		return nil, fmt.Errorf("service registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		registry:     reg,
		toolRegistry: NewToolRegistry(),
		metrics:      NewMetrics(cfg.Logger),
		logger:       cfg.Logger.Named("mcp"),
	}
	s.registerTools()
	return s, nil
}

// Tools returns the metadata of the registered tools.
func (s *Server) Tools() *ToolRegistry { return s.toolRegistry }

// MCP returns the underlying SDK server, e.g. to connect other transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
