package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/foldkit/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Serve the folding_ranges, folding_hidden and tool_search tools over the
Model Context Protocol on stdin/stdout. Logs go to stderr.

Example client configuration:
  {"command": "foldctl", "args": ["mcp"]}`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, modeCLI)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	cfg := mcp.DefaultConfig()
	cfg.Version = version
	cfg.Logger = a.logger
	srv, err := mcp.NewServer(cfg, a.registry)
	if err != nil {
		return err
	}

	// stdout carries the protocol.
	fmt.Fprintf(os.Stderr, "foldkit MCP server started (%d tools)\n", srv.Tools().Count())

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}
